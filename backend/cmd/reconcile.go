package cmd

import (
	"errors"
	"fmt"

	"coursegate/backend/services"

	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Rebuild exam results of a course from stored attempts",
	RunE: func(cmd *cobra.Command, args []string) error {
		courseID, _ := cmd.Flags().GetUint("course")
		if courseID == 0 {
			return errors.New("--course is required")
		}

		_, logger, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer closeDB(db)

		n, err := services.NewExamResultService(db).Reconcile(cmd.Context(), courseID)
		if err != nil {
			return err
		}
		logger.Printf("[RECONCILE] course=%d rows=%d", courseID, n)
		fmt.Fprintf(cmd.OutOrStdout(), "rebuilt %d exam results for course %d\n", n, courseID)
		return nil
	},
}

func init() {
	reconcileCmd.Flags().Uint("course", 0, "Course ID")
}
