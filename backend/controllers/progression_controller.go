package controllers

import (
	"log"

	"coursegate/backend/services"
	"coursegate/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ProgressionController struct {
	Access *services.AccessService
	Logger *log.Logger
}

func NewProgressionController(db *gorm.DB, logger *log.Logger) *ProgressionController {
	return &ProgressionController{Access: services.NewAccessService(db), Logger: logger}
}

// GetProgression godoc
// @Summary Course progression
// @Description Returns the course tree with an access verdict on every lesson
// @Tags courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} gating.Progression
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{id}/progression [get]
func (pc *ProgressionController) GetProgression(c *fiber.Ctx) error {
	userID, err := utils.CurrentUserID(c)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, ok := paramID(c, "id")
	if !ok {
		return utils.BadRequest(c, "Invalid course ID")
	}

	progression, err := pc.Access.Progression(c.UserContext(), userID, courseID)
	if err != nil {
		return respondError(c, pc.Logger, err)
	}

	return utils.Success(c, fiber.StatusOK, progression)
}

// CheckLessonAccess godoc
// @Summary Lesson access verdict
// @Description Tells whether the lesson is unlocked and, if not, which assessment to pass first.
// @Description A locked lesson is a normal 200 response with hasAccess=false.
// @Tags courses
// @Produce json
// @Param id path int true "Course ID"
// @Param lessonId path int true "Lesson ID"
// @Param unitId query int false "Unit ID"
// @Success 200 {object} gating.Verdict
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{id}/lessons/{lessonId}/access [get]
func (pc *ProgressionController) CheckLessonAccess(c *fiber.Ctx) error {
	userID, err := utils.CurrentUserID(c)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, ok := paramID(c, "id")
	if !ok {
		return utils.BadRequest(c, "Invalid course ID")
	}
	lessonID, ok := paramID(c, "lessonId")
	if !ok {
		return utils.BadRequest(c, "Invalid lesson ID")
	}
	unit, ok := queryID(c, "unitId")
	if !ok {
		return utils.BadRequest(c, "Invalid unit ID")
	}
	var unitID *uint
	if unit != 0 {
		unitID = &unit
	}

	verdict, err := pc.Access.CheckAccess(c.UserContext(), userID, courseID, lessonID, unitID)
	if err != nil {
		return respondError(c, pc.Logger, err)
	}

	return utils.Success(c, fiber.StatusOK, verdict)
}
