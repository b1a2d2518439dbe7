package cmd

import (
	"log"

	"coursegate/backend/config"
	"coursegate/backend/utils"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:   "coursegate",
	Short: "Lesson progression and assessment service",
	Long:  "Course Gate scores exams and trainings, decides which lessons a learner may open and tracks video progress.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(reconcileCmd)
}

// bootstrap загружает конфиг, создает логгер и открывает базу
func bootstrap() (*config.Config, *log.Logger, *gorm.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	logger := utils.InitLogger(utils.LoggerConfig{
		Format:       cfg.LogFormat,
		EnableColors: cfg.LogFormat != "json",
	})

	db, err := utils.InitDB(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
