package services

import (
	"coursegate/backend/gating"
	"coursegate/backend/models"
)

const unanswered = -1

// SubmittedAnswer is one answer of a submission, keyed by question position.
type SubmittedAnswer struct {
	QuestionIndex  int `json:"questionIndex" validate:"gte=0"`
	SelectedAnswer int `json:"selectedAnswer" validate:"gte=-1"`
}

type QuestionResult struct {
	QuestionIndex  int      `json:"questionIndex"`
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	SelectedAnswer int      `json:"selectedAnswer"`
	CorrectAnswer  int      `json:"correctAnswer"`
	IsCorrect      bool     `json:"isCorrect"`
}

type ScoreResult struct {
	Score          int
	TotalQuestions int
	Percentage     int
	Passed         bool
	Questions      []QuestionResult
}

func (r ScoreResult) attemptAnswers() []models.AttemptAnswer {
	out := make([]models.AttemptAnswer, 0, len(r.Questions))
	for _, q := range r.Questions {
		out = append(out, models.AttemptAnswer{
			QuestionIndex:  q.QuestionIndex,
			SelectedAnswer: q.SelectedAnswer,
			IsCorrect:      q.IsCorrect,
		})
	}
	return out
}

// validateAnswers rejects indexes outside the question list, duplicate
// answers to one question and options a question does not have.
func validateAnswers(questions []models.AssessmentQuestion, answers []SubmittedAnswer) error {
	if len(questions) == 0 {
		return invalid("assessment has no questions")
	}
	seen := make(map[int]struct{}, len(answers))
	for _, a := range answers {
		if a.QuestionIndex < 0 || a.QuestionIndex >= len(questions) {
			return invalid("questionIndex %d out of range [0,%d)", a.QuestionIndex, len(questions))
		}
		if _, dup := seen[a.QuestionIndex]; dup {
			return invalid("question %d answered more than once", a.QuestionIndex)
		}
		seen[a.QuestionIndex] = struct{}{}

		opts := len(questions[a.QuestionIndex].Options)
		if a.SelectedAnswer < unanswered || a.SelectedAnswer >= opts {
			return invalid("selectedAnswer %d out of range for question %d", a.SelectedAnswer, a.QuestionIndex)
		}
	}
	return nil
}

// ScoreAnswers grades answers against questions. Questions without an answer
// count as selected -1, which is never correct.
func ScoreAnswers(questions []models.AssessmentQuestion, answers []SubmittedAnswer, passingScore int) (ScoreResult, error) {
	if err := validateAnswers(questions, answers); err != nil {
		return ScoreResult{}, err
	}

	byIndex := make(map[int]int, len(answers))
	for _, a := range answers {
		byIndex[a.QuestionIndex] = a.SelectedAnswer
	}

	res := ScoreResult{
		TotalQuestions: len(questions),
		Questions:      make([]QuestionResult, 0, len(questions)),
	}
	for i, q := range questions {
		selected, ok := byIndex[i]
		if !ok {
			selected = unanswered
		}
		correct := selected != unanswered && selected == q.CorrectAnswer
		if correct {
			res.Score++
		}
		res.Questions = append(res.Questions, QuestionResult{
			QuestionIndex:  i,
			Question:       q.Question,
			Options:        []string(q.Options),
			SelectedAnswer: selected,
			CorrectAnswer:  q.CorrectAnswer,
			IsCorrect:      correct,
		})
	}

	res.Percentage = gating.Percentage(res.Score, res.TotalQuestions)
	res.Passed = gating.IsPassing(res.Score, res.TotalQuestions, passingScore)
	return res, nil
}
