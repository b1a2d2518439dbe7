package services

import (
	"context"
	"errors"

	"coursegate/backend/gating"
	"coursegate/backend/models"

	"gorm.io/gorm"
)

func bySequence(db *gorm.DB) *gorm.DB {
	return db.Order("sequence_order ASC, id ASC")
}

// LoadCourseTree reads the full content tree of a course, ordered, with
// assessments and their questions. It always hits the store: question sets
// may be edited between calls.
func LoadCourseTree(ctx context.Context, db *gorm.DB, courseID uint) (*models.Course, error) {
	var course models.Course
	err := db.WithContext(ctx).
		Preload("DirectLessons", func(db *gorm.DB) *gorm.DB {
			return bySequence(db.Where("unit_id IS NULL"))
		}).
		Preload("DirectLessons.Assessments", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("DirectLessons.Assessments.Questions", bySequence).
		Preload("Units", bySequence).
		Preload("Units.Lessons", bySequence).
		Preload("Units.Lessons.Assessments", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("Units.Lessons.Assessments.Questions", bySequence).
		First(&course, courseID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("course", courseID)
		}
		return nil, err
	}
	return &course, nil
}

// Snapshot converts the stored tree into the evaluator's input.
func Snapshot(course *models.Course) *gating.Course {
	snap := &gating.Course{
		ID:            course.ID,
		Title:         course.Title,
		DirectLessons: snapshotLessons(course.DirectLessons),
		Units:         make([]gating.Unit, 0, len(course.Units)),
	}
	for _, u := range course.Units {
		snap.Units = append(snap.Units, gating.Unit{
			ID:      u.ID,
			Title:   u.Title,
			Lessons: snapshotLessons(u.Lessons),
		})
	}
	return snap
}

func snapshotLessons(lessons []models.Lesson) []gating.Lesson {
	out := make([]gating.Lesson, 0, len(lessons))
	for _, l := range lessons {
		out = append(out, gating.Lesson{ID: l.ID, Title: l.Title, AssessmentCount: len(l.Assessments)})
	}
	return out
}

// assessmentIndex maps assessment id to its pass mark for one course.
func assessmentIndex(course *models.Course) map[uint]int {
	idx := make(map[uint]int)
	add := func(lessons []models.Lesson) {
		for _, l := range lessons {
			for _, a := range l.Assessments {
				idx[a.ID] = a.PassingScore
			}
		}
	}
	add(course.DirectLessons)
	for _, u := range course.Units {
		add(u.Lessons)
	}
	return idx
}

// PassedLessons builds the set of lessons on which the user has at least
// one passing attempt. Pass/fail is recomputed from score and the current
// pass mark of the assessment rather than trusted from the stored flag.
func PassedLessons(ctx context.Context, db *gorm.DB, course *models.Course, userID uint) (gating.PassedSet, error) {
	var attempts []models.Attempt
	err := db.WithContext(ctx).
		Select("assessment_id", "lesson_id", "score", "total_questions").
		Where("user_id = ? AND course_id = ?", userID, course.ID).
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}

	thresholds := assessmentIndex(course)
	passed := gating.NewPassedSet()
	for _, a := range attempts {
		threshold, ok := thresholds[a.AssessmentID]
		if !ok {
			// Оценка удалена из курса, попытка больше ничего не открывает
			continue
		}
		if gating.IsPassing(a.Score, a.TotalQuestions, threshold) {
			passed.Add(a.LessonID)
		}
	}
	return passed, nil
}

// resolvedLesson is a lesson located in the tree together with its unit.
type resolvedLesson struct {
	Lesson *models.Lesson
	Unit   *models.Unit
}

func findLesson(course *models.Course, lessonID uint, unitID *uint) (resolvedLesson, error) {
	if unitID != nil {
		for u := range course.Units {
			if course.Units[u].ID != *unitID {
				continue
			}
			for i := range course.Units[u].Lessons {
				if course.Units[u].Lessons[i].ID == lessonID {
					return resolvedLesson{Lesson: &course.Units[u].Lessons[i], Unit: &course.Units[u]}, nil
				}
			}
			return resolvedLesson{}, notFound("lesson", lessonID)
		}
		return resolvedLesson{}, notFound("unit", *unitID)
	}

	for i := range course.DirectLessons {
		if course.DirectLessons[i].ID == lessonID {
			return resolvedLesson{Lesson: &course.DirectLessons[i]}, nil
		}
	}
	for u := range course.Units {
		for i := range course.Units[u].Lessons {
			if course.Units[u].Lessons[i].ID == lessonID {
				return resolvedLesson{Lesson: &course.Units[u].Lessons[i], Unit: &course.Units[u]}, nil
			}
		}
	}
	return resolvedLesson{}, notFound("lesson", lessonID)
}
