package gating

type Reason string

const (
	ReasonFirstLesson            Reason = "first_lesson"
	ReasonNoPreviousLesson       Reason = "no_previous_lesson"
	ReasonPreviousTransparent    Reason = "previous_lesson_transparent"
	ReasonPreviousPassed         Reason = "previous_lesson_passed"
	ReasonCompleteDirectLessons  Reason = "complete_direct_lessons_first"
	ReasonCompletePreviousUnit   Reason = "complete_previous_unit_first"
	ReasonCompletePreviousLesson Reason = "complete_previous_lesson_first"
)

var reasonMessages = map[Reason]string{
	ReasonFirstLesson:            "First lesson of the course is always available",
	ReasonNoPreviousLesson:       "First lesson of the unit",
	ReasonPreviousTransparent:    "Previous lesson has no assessments",
	ReasonPreviousPassed:         "Previous lesson assessment passed",
	ReasonCompleteDirectLessons:  "Complete direct lessons first",
	ReasonCompletePreviousUnit:   "Complete the previous unit first",
	ReasonCompletePreviousLesson: "Pass an exam or training of the previous lesson first",
}

// Message is the human readable text for the reason.
func (r Reason) Message() string {
	return reasonMessages[r]
}

// RequiredAssessment points at the lesson (and unit) whose assessment the
// learner has to pass before the requested lesson unlocks.
type RequiredAssessment struct {
	LessonID    uint   `json:"lessonId,omitempty"`
	LessonTitle string `json:"lessonTitle,omitempty"`
	UnitID      *uint  `json:"unitId,omitempty"`
	UnitTitle   string `json:"unitTitle,omitempty"`
}

type Verdict struct {
	HasAccess          bool                `json:"hasAccess"`
	Reason             Reason              `json:"reason"`
	Message            string              `json:"message"`
	RequiredAssessment *RequiredAssessment `json:"requiredAssessment,omitempty"`
}

func grant(r Reason) Verdict {
	return Verdict{HasAccess: true, Reason: r, Message: r.Message()}
}

func deny(r Reason, req *RequiredAssessment) Verdict {
	return Verdict{HasAccess: false, Reason: r, Message: r.Message(), RequiredAssessment: req}
}

// CheckAccess decides whether a learner with the given passed lessons may
// open lessonID. unitID narrows the lookup to one unit; when nil the lesson
// is searched among direct lessons first and then in every unit.
//
// Rules, first denial wins:
//  1. the first lesson of the course is always open;
//  2. unit lessons need every assessed direct lesson passed;
//  3. unit k needs every assessed lesson of units 0..k-1 passed;
//  4. the previous lesson of the same container must be transparent or passed.
//
// Only lookup failures are returned as errors.
func CheckAccess(course *Course, passed PassedSet, lessonID uint, unitID *uint) (Verdict, error) {
	loc, err := course.locate(lessonID, unitID)
	if err != nil {
		return Verdict{}, err
	}
	return course.evaluate(passed, loc), nil
}

func (c *Course) evaluate(passed PassedSet, loc location) Verdict {
	if c.isFirst(loc) {
		return grant(ReasonFirstLesson)
	}

	if loc.unit >= 0 {
		if blocker, ok := firstUnsatisfied(c.DirectLessons, passed); ok {
			return deny(ReasonCompleteDirectLessons, &RequiredAssessment{
				LessonID:    blocker.ID,
				LessonTitle: blocker.Title,
				UnitTitle:   DirectLessonsTitle,
			})
		}

		for u := 0; u < loc.unit; u++ {
			unit := c.Units[u]
			if blocker, ok := firstUnsatisfied(unit.Lessons, passed); ok {
				id := unit.ID
				return deny(ReasonCompletePreviousUnit, &RequiredAssessment{
					LessonID:    blocker.ID,
					LessonTitle: blocker.Title,
					UnitID:      &id,
					UnitTitle:   unit.Title,
				})
			}
		}
	}

	if loc.index == 0 {
		return grant(ReasonNoPreviousLesson)
	}

	prev := c.container(loc)[loc.index-1]
	if !prev.HasAssessments() {
		return grant(ReasonPreviousTransparent)
	}
	if passed.Has(prev.ID) {
		return grant(ReasonPreviousPassed)
	}

	req := &RequiredAssessment{LessonID: prev.ID, LessonTitle: prev.Title}
	if loc.unit >= 0 {
		id := c.Units[loc.unit].ID
		req.UnitID = &id
		req.UnitTitle = c.Units[loc.unit].Title
	}
	return deny(ReasonCompletePreviousLesson, req)
}

func firstUnsatisfied(lessons []Lesson, passed PassedSet) (Lesson, bool) {
	for _, l := range lessons {
		if !passed.satisfied(l) {
			return l, true
		}
	}
	return Lesson{}, false
}
