package controllers

import (
	"log"

	"coursegate/backend/models"
	"coursegate/backend/services"
	"coursegate/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type VideoProgressController struct {
	Progress *services.VideoProgressService
	Logger   *log.Logger
}

func NewVideoProgressController(db *gorm.DB, logger *log.Logger) *VideoProgressController {
	return &VideoProgressController{Progress: services.NewVideoProgressService(db, logger), Logger: logger}
}

// VideoProgressRequest тело PUT /video-progress/:courseId/:videoId.
// watchTime: сколько секунд просмотрено с прошлого отчета.
type VideoProgressRequest struct {
	CurrentTime       float64 `json:"currentTime" validate:"gte=0"`
	Duration          float64 `json:"duration" validate:"gte=0"`
	Progress          float64 `json:"progress" validate:"gte=0,lte=100"`
	WatchTime         float64 `json:"watchTime" validate:"gte=0"`
	ReachedPercentage *int    `json:"reachedPercentage" validate:"omitempty,gte=0,lte=100"`
}

func videoProgressView(vp *models.VideoProgress) fiber.Map {
	checkpoints := make([]int, 0, len(vp.Checkpoints))
	for _, cp := range vp.Checkpoints {
		checkpoints = append(checkpoints, cp.Percentage)
	}
	return fiber.Map{
		"videoId":            vp.VideoID,
		"courseId":           vp.CourseID,
		"currentTime":        vp.CurrentSeconds,
		"duration":           vp.Duration,
		"progress":           vp.Progress,
		"totalWatchTime":     vp.TotalWatchTime,
		"reachedPercentages": checkpoints,
		"isCompleted":        vp.IsCompleted,
		"completedAt":        vp.CompletedAt,
		"updatedAt":          vp.UpdatedAt,
	}
}

// UpdateVideoProgress godoc
// @Summary Report video playback
// @Description Merges a playback report; stored progress never decreases
// @Tags video-progress
// @Accept json
// @Produce json
// @Param courseId path int true "Course ID"
// @Param videoId path int true "Video ID"
// @Param body body VideoProgressRequest true "Playback report"
// @Success 200 {object} map[string]interface{}
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /video-progress/{courseId}/{videoId} [put]
func (vc *VideoProgressController) UpdateVideoProgress(c *fiber.Ctx) error {
	userID, err := utils.CurrentUserID(c)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, ok := paramID(c, "courseId")
	if !ok {
		return utils.BadRequest(c, "Invalid course ID")
	}
	videoID, ok := paramID(c, "videoId")
	if !ok {
		return utils.BadRequest(c, "Invalid video ID")
	}

	var input VideoProgressRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := utils.ValidateStruct(input); errs != nil {
		return utils.ValidationError(c, errs)
	}

	vp, err := vc.Progress.ApplyUpdate(c.UserContext(), userID, videoID, courseID, services.VideoObservation{
		CurrentTime:       input.CurrentTime,
		Duration:          input.Duration,
		Progress:          input.Progress,
		WatchTimeDelta:    input.WatchTime,
		ReachedPercentage: input.ReachedPercentage,
	})
	if err != nil {
		return respondError(c, vc.Logger, err)
	}

	return utils.Success(c, fiber.StatusOK, videoProgressView(vp))
}

// GetVideoProgress возвращает сохраненный прогресс по одному видео
func (vc *VideoProgressController) GetVideoProgress(c *fiber.Ctx) error {
	userID, err := utils.CurrentUserID(c)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	videoID, ok := paramID(c, "videoId")
	if !ok {
		return utils.BadRequest(c, "Invalid video ID")
	}

	vp, err := vc.Progress.Get(c.UserContext(), userID, videoID)
	if err != nil {
		return respondError(c, vc.Logger, err)
	}

	return utils.Success(c, fiber.StatusOK, videoProgressView(vp))
}

// GetCourseVideoProgress возвращает прогресс по всем видео курса
func (vc *VideoProgressController) GetCourseVideoProgress(c *fiber.Ctx) error {
	userID, err := utils.CurrentUserID(c)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, ok := paramID(c, "courseId")
	if !ok {
		return utils.BadRequest(c, "Invalid course ID")
	}

	rows, err := vc.Progress.ListForCourse(c.UserContext(), userID, courseID)
	if err != nil {
		return respondError(c, vc.Logger, err)
	}

	result := make([]fiber.Map, 0, len(rows))
	for i := range rows {
		result = append(result, videoProgressView(&rows[i]))
	}
	return utils.Success(c, fiber.StatusOK, result)
}
