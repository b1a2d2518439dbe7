package controllers

import (
	"log"

	"coursegate/backend/models"
	"coursegate/backend/services"
	"coursegate/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ReportsController отвечает за админский поиск по проекции exam_results.
// Попытки напрямую здесь не читаются.
type ReportsController struct {
	Results *services.ExamResultService
	Logger  *log.Logger
}

func NewReportsController(db *gorm.DB, logger *log.Logger) *ReportsController {
	return &ReportsController{Results: services.NewExamResultService(db), Logger: logger}
}

// SearchExamResults godoc
// @Summary Search exam results
// @Tags admin
// @Produce json
// @Param courseId query int false "Course ID"
// @Param userId query int false "User ID"
// @Param lessonId query int false "Lesson ID"
// @Param examType query string false "final or training"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} utils.PaginatedResponse
// @Security ApiKeyAuth
// @Router /admin/exam-results [get]
func (rc *ReportsController) SearchExamResults(c *fiber.Ctx) error {
	filter := services.ExamResultFilter{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("pageSize", 20),
	}

	var ok bool
	if filter.CourseID, ok = queryID(c, "courseId"); !ok {
		return utils.BadRequest(c, "Invalid courseId")
	}
	if filter.UserID, ok = queryID(c, "userId"); !ok {
		return utils.BadRequest(c, "Invalid userId")
	}
	if filter.LessonID, ok = queryID(c, "lessonId"); !ok {
		return utils.BadRequest(c, "Invalid lessonId")
	}
	if examType := models.AssessmentKind(c.Query("examType")); examType != "" {
		if !examType.Valid() {
			return utils.BadRequest(c, "examType must be final or training")
		}
		filter.ExamType = examType
	}
	filter.Normalize()

	rows, total, err := rc.Results.List(c.UserContext(), filter)
	if err != nil {
		return respondError(c, rc.Logger, err)
	}

	return utils.Paginate(c, rows, total, filter.Page, filter.PageSize)
}

// ReconcileExamResults пересобирает проекцию курса из попыток
func (rc *ReportsController) ReconcileExamResults(c *fiber.Ctx) error {
	courseID, ok := paramID(c, "id")
	if !ok {
		return utils.BadRequest(c, "Invalid course ID")
	}

	n, err := rc.Results.Reconcile(c.UserContext(), courseID)
	if err != nil {
		return respondError(c, rc.Logger, err)
	}

	rc.Logger.Printf("[RECONCILE] course=%d rows=%d", courseID, n)
	return utils.Success(c, fiber.StatusOK, fiber.Map{"courseId": courseID, "rebuilt": n})
}
