package models

import "gorm.io/gorm"

// Course is the root of the content tree. Lessons with a nil UnitID are
// direct lessons; every other lesson belongs to one of Units.
type Course struct {
	gorm.Model
	Title         string
	Description   string
	DirectLessons []Lesson `gorm:"foreignKey:CourseID"`
	Units         []Unit
}

type Unit struct {
	gorm.Model
	CourseID      uint `gorm:"index;not null"`
	Title         string
	SequenceOrder int
	Lessons       []Lesson `gorm:"foreignKey:UnitID"`
}

type Lesson struct {
	gorm.Model
	CourseID      uint  `gorm:"index;not null"`
	UnitID        *uint `gorm:"index"` // nil for direct lessons
	Title         string
	Description   string
	Content       string
	SequenceOrder int
	Assessments   []Assessment
}
