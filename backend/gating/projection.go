package gating

// LessonNode is one lesson of the progression tree with its verdict.
type LessonNode struct {
	ID                 uint                `json:"id"`
	Title              string              `json:"title"`
	Index              int                 `json:"index"`
	HasAccess          bool                `json:"hasAccess"`
	AccessReason       string              `json:"accessReason"`
	ReasonCode         Reason              `json:"reasonCode"`
	RequiredAssessment *RequiredAssessment `json:"requiredAssessment,omitempty"`
	IsFirstLesson      bool                `json:"isFirstLesson"`
	HasAssessments     bool                `json:"hasAssessments"`
	Passed             bool                `json:"passed"`
}

type UnitNode struct {
	ID        uint         `json:"id"`
	Title     string       `json:"title"`
	Index     int          `json:"index"`
	Completed bool         `json:"completed"`
	Lessons   []LessonNode `json:"lessons"`
}

// Progression is the whole course annotated for one learner.
type Progression struct {
	CourseID        uint         `json:"courseId"`
	Title           string       `json:"title"`
	DirectLessons   []LessonNode `json:"directLessons"`
	Units           []UnitNode   `json:"units"`
	TotalLessons    int          `json:"totalLessons"`
	UnlockedLessons int          `json:"unlockedLessons"`
	PassedLessons   int          `json:"passedLessons"`
}

// Project evaluates every lesson of the course against the same passed set.
func Project(course *Course, passed PassedSet) Progression {
	p := Progression{
		CourseID:      course.ID,
		Title:         course.Title,
		DirectLessons: make([]LessonNode, 0, len(course.DirectLessons)),
		Units:         make([]UnitNode, 0, len(course.Units)),
		TotalLessons:  course.LessonCount(),
	}

	for i, l := range course.DirectLessons {
		p.DirectLessons = append(p.DirectLessons, p.node(course, passed, l, location{unit: -1, index: i}))
	}

	for u, unit := range course.Units {
		un := UnitNode{
			ID:        unit.ID,
			Title:     unit.Title,
			Index:     u,
			Completed: true,
			Lessons:   make([]LessonNode, 0, len(unit.Lessons)),
		}
		for i, l := range unit.Lessons {
			un.Lessons = append(un.Lessons, p.node(course, passed, l, location{unit: u, index: i}))
			if !passed.satisfied(l) {
				un.Completed = false
			}
		}
		p.Units = append(p.Units, un)
	}
	return p
}

func (p *Progression) node(course *Course, passed PassedSet, l Lesson, loc location) LessonNode {
	v := course.evaluate(passed, loc)
	n := LessonNode{
		ID:                 l.ID,
		Title:              l.Title,
		Index:              loc.index,
		HasAccess:          v.HasAccess,
		AccessReason:       v.Message,
		ReasonCode:         v.Reason,
		RequiredAssessment: v.RequiredAssessment,
		IsFirstLesson:      course.isFirst(loc),
		HasAssessments:     l.HasAssessments(),
		Passed:             passed.Has(l.ID),
	}
	if n.HasAccess {
		p.UnlockedLessons++
	}
	if n.Passed {
		p.PassedLessons++
	}
	return n
}
