package controllers

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"coursegate/backend/models"
	"coursegate/backend/services"
	"coursegate/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ExamsController struct {
	Recorder *services.AttemptRecorder
	Logger   *log.Logger
}

func NewExamsController(db *gorm.DB, logger *log.Logger) *ExamsController {
	return &ExamsController{Recorder: services.NewAttemptRecorder(db, logger), Logger: logger}
}

// SubmitRequest тело POST /exams/final и /exams/training.
// Для тренировок id можно передать как trainingId. Клиентское timeTaken не принимается:
// время считается на сервере от startTime.
type SubmitRequest struct {
	CourseID   uint                       `json:"courseId" validate:"required"`
	LessonID   uint                       `json:"lessonId" validate:"required"`
	UnitID     *uint                      `json:"unitId" validate:"omitempty,gt=0"`
	ExamID     uint                       `json:"examId"`
	TrainingID uint                       `json:"trainingId"`
	Answers    []services.SubmittedAnswer `json:"answers" validate:"dive"`
	StartTime  *ClientTime                `json:"startTime"`
}

// ClientTime принимает и RFC3339 строку, и миллисекунды Unix (Date.now() в браузере)
type ClientTime struct {
	time.Time
}

func (t *ClientTime) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return t.Time.UnmarshalJSON(data)
	}
	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("startTime: expected RFC3339 string or unix milliseconds, got %s", data)
	}
	t.Time = time.UnixMilli(ms)
	return nil
}

func (t *ClientTime) ptr() *time.Time {
	if t == nil {
		return nil
	}
	return &t.Time
}

func (r SubmitRequest) assessmentID() uint {
	if r.ExamID != 0 {
		return r.ExamID
	}
	return r.TrainingID
}

// SubmitFinal godoc
// @Summary Submit a final exam
// @Description Scores a single-attempt final exam and stores the attempt
// @Tags exams
// @Accept json
// @Produce json
// @Param body body SubmitRequest true "Answers"
// @Success 200 {object} services.SubmitResult
// @Failure 403 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /exams/final [post]
func (ec *ExamsController) SubmitFinal(c *fiber.Ctx) error {
	return ec.submit(c, models.KindFinal)
}

// SubmitTraining godoc
// @Summary Submit a training
// @Description Scores a training; trainings allow unlimited attempts
// @Tags exams
// @Accept json
// @Produce json
// @Param body body SubmitRequest true "Answers"
// @Success 200 {object} services.SubmitResult
// @Failure 403 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /exams/training [post]
func (ec *ExamsController) SubmitTraining(c *fiber.Ctx) error {
	return ec.submit(c, models.KindTraining)
}

func (ec *ExamsController) submit(c *fiber.Ctx, kind models.AssessmentKind) error {
	userID, err := utils.CurrentUserID(c)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input SubmitRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := utils.ValidateStruct(input); errs != nil {
		return utils.ValidationError(c, errs)
	}
	if input.assessmentID() == 0 {
		return utils.ValidationError(c, map[string]string{"examId": "required"})
	}

	result, err := ec.Recorder.Submit(c.UserContext(), services.SubmitInput{
		CourseID:     input.CourseID,
		LessonID:     input.LessonID,
		UnitID:       input.UnitID,
		Kind:         kind,
		AssessmentID: input.assessmentID(),
		UserID:       userID,
		Answers:      input.Answers,
		StartTime:    input.StartTime.ptr(),
	})
	if err != nil {
		return respondError(c, ec.Logger, err)
	}

	return utils.Success(c, fiber.StatusOK, result)
}

// GetMyAttempts возвращает попытки текущего пользователя по одной оценке
func (ec *ExamsController) GetMyAttempts(c *fiber.Ctx) error {
	userID, err := utils.CurrentUserID(c)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	assessmentID, ok := paramID(c, "id")
	if !ok {
		return utils.BadRequest(c, "Invalid assessment ID")
	}

	attempts, err := ec.Recorder.Attempts(c.UserContext(), userID, assessmentID)
	if err != nil {
		return respondError(c, ec.Logger, err)
	}

	result := make([]fiber.Map, 0, len(attempts))
	for _, a := range attempts {
		result = append(result, fiber.Map{
			"id":             a.ID,
			"kind":           a.Kind,
			"score":          a.Score,
			"totalQuestions": a.TotalQuestions,
			"percentage":     a.Percentage,
			"passed":         a.Passed,
			"timeTaken":      a.TimeTakenSeconds,
			"answers":        a.Answers,
			"submittedAt":    a.SubmittedAt,
		})
	}

	return utils.Success(c, fiber.StatusOK, result)
}
