package routes

import (
	"errors"
	"log"

	"coursegate/backend/config"
	"coursegate/backend/controllers"
	"coursegate/backend/middleware"
	"coursegate/backend/utils"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NewApp собирает fiber приложение со всеми middleware и маршрутами
func NewApp(db *gorm.DB, cfg *config.Config, logger *log.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(middleware.RecoveryMiddleware())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware(logger))
	app.Use(middleware.RateLimiter(cfg.RateLimitPerMinute))

	SetupRoutes(app, db, cfg, logger)
	return app
}

// errorHandler отдает ошибки fiber (404 маршрута, panic и т.п.) в общем формате
func errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	return utils.Error(c, status, err)
}

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, logger *log.Logger) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return utils.Success(c, fiber.StatusOK, fiber.Map{"status": "ok"})
	})

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	adminMiddleware := middleware.AdminMiddleware()

	api := app.Group("/api", authMiddleware)

	// Exams routes
	examsController := controllers.NewExamsController(db, logger)
	exams := api.Group("/exams")
	exams.Post("/final", examsController.SubmitFinal)
	exams.Post("/training", examsController.SubmitTraining)
	exams.Get("/:id/attempts", examsController.GetMyAttempts)

	// Progression routes
	progressionController := controllers.NewProgressionController(db, logger)
	courses := api.Group("/courses")
	courses.Get("/:id/progression", progressionController.GetProgression)
	courses.Get("/:id/lessons/:lessonId/access", progressionController.CheckLessonAccess)

	// Video progress routes
	videoController := controllers.NewVideoProgressController(db, logger)
	video := api.Group("/video-progress")
	video.Get("/:courseId", videoController.GetCourseVideoProgress)
	video.Get("/:courseId/:videoId", videoController.GetVideoProgress)
	video.Put("/:courseId/:videoId", videoController.UpdateVideoProgress)

	// Admin routes
	reportsController := controllers.NewReportsController(db, logger)
	admin := api.Group("/admin", adminMiddleware)
	admin.Get("/exam-results", reportsController.SearchExamResults)
	admin.Post("/courses/:id/exam-results/reconcile", reportsController.ReconcileExamResults)
}
