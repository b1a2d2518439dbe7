package models

import "gorm.io/gorm"

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Course{},
		&Unit{},
		&Lesson{},
		&Assessment{},
		&AssessmentQuestion{},
		&Attempt{},
		&ExamResult{},
		&VideoProgress{},
		&VideoCheckpoint{},
	)
}
