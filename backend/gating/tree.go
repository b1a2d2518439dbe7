package gating

import "errors"

var (
	ErrLessonNotFound = errors.New("lesson not found in course")
	ErrUnitNotFound   = errors.New("unit not found in course")
)

// DirectLessonsTitle is reported as the unit title when direct lessons
// block a unit lesson.
const DirectLessonsTitle = "Direct Lessons"

// Course is a read-only snapshot of the content tree, already ordered.
type Course struct {
	ID            uint
	Title         string
	DirectLessons []Lesson
	Units         []Unit
}

type Unit struct {
	ID      uint
	Title   string
	Lessons []Lesson
}

type Lesson struct {
	ID              uint
	Title           string
	AssessmentCount int
}

func (l Lesson) HasAssessments() bool { return l.AssessmentCount > 0 }

// PassedSet holds the ids of lessons on which a learner has at least one
// passing attempt on any exam or training.
type PassedSet map[uint]struct{}

func NewPassedSet(lessonIDs ...uint) PassedSet {
	s := make(PassedSet, len(lessonIDs))
	for _, id := range lessonIDs {
		s.Add(id)
	}
	return s
}

func (s PassedSet) Add(lessonID uint) { s[lessonID] = struct{}{} }

func (s PassedSet) Has(lessonID uint) bool {
	_, ok := s[lessonID]
	return ok
}

// satisfied reports whether the lesson does not block anything for this learner.
func (s PassedSet) satisfied(l Lesson) bool {
	return !l.HasAssessments() || s.Has(l.ID)
}

// location pins a lesson inside the tree. unit is -1 for direct lessons.
type location struct {
	unit  int
	index int
}

func (c *Course) locate(lessonID uint, unitID *uint) (location, error) {
	if unitID != nil {
		for u := range c.Units {
			if c.Units[u].ID != *unitID {
				continue
			}
			for i, l := range c.Units[u].Lessons {
				if l.ID == lessonID {
					return location{unit: u, index: i}, nil
				}
			}
			return location{}, ErrLessonNotFound
		}
		return location{}, ErrUnitNotFound
	}

	for i, l := range c.DirectLessons {
		if l.ID == lessonID {
			return location{unit: -1, index: i}, nil
		}
	}
	// Без unitId ищем по всем модулям
	for u := range c.Units {
		for i, l := range c.Units[u].Lessons {
			if l.ID == lessonID {
				return location{unit: u, index: i}, nil
			}
		}
	}
	return location{}, ErrLessonNotFound
}

func (c *Course) container(loc location) []Lesson {
	if loc.unit < 0 {
		return c.DirectLessons
	}
	return c.Units[loc.unit].Lessons
}

// FirstLessonID returns the id of the first lesson of the whole course:
// the first direct lesson if there are any, otherwise the first lesson of
// the first unit.
func (c *Course) FirstLessonID() (uint, bool) {
	if len(c.DirectLessons) > 0 {
		return c.DirectLessons[0].ID, true
	}
	if len(c.Units) > 0 && len(c.Units[0].Lessons) > 0 {
		return c.Units[0].Lessons[0].ID, true
	}
	return 0, false
}

func (c *Course) isFirst(loc location) bool {
	first, ok := c.FirstLessonID()
	return ok && c.container(loc)[loc.index].ID == first
}

// LessonCount is the number of lessons in the tree, direct and unit ones.
func (c *Course) LessonCount() int {
	n := len(c.DirectLessons)
	for _, u := range c.Units {
		n += len(u.Lessons)
	}
	return n
}
