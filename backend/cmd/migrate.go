package cmd

import (
	"coursegate/backend/utils"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer closeDB(db)

		if err := utils.Migrate(db); err != nil {
			return err
		}
		logger.Println("Migration complete")
		return nil
	},
}
