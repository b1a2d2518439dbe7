package controllers

import (
	"errors"
	"log"

	"coursegate/backend/services"
	"coursegate/backend/utils"

	"github.com/gofiber/fiber/v2"
)

// respondError переводит ошибки сервисов в HTTP ответы. Только сбои хранилища дают 500.
func respondError(c *fiber.Ctx, logger *log.Logger, err error) error {
	var already *services.AlreadyAttemptedError
	var denied *services.AccessDeniedError

	switch {
	case errors.As(err, &already):
		e := already.Existing
		return utils.ErrorWithCode(c, fiber.StatusConflict, "already_attempted", err, fiber.Map{
			"attemptId":      e.ID,
			"score":          e.Score,
			"totalQuestions": e.TotalQuestions,
			"percentage":     e.Percentage,
			"passed":         e.Passed,
			"submittedAt":    e.SubmittedAt,
		})
	case errors.As(err, &denied):
		return utils.ErrorWithCode(c, fiber.StatusForbidden, "access_denied", err, denied.Verdict)
	case errors.Is(err, services.ErrNotFound):
		return utils.NotFound(c, err.Error())
	case errors.Is(err, services.ErrNotOpenYet):
		return utils.ErrorWithCode(c, fiber.StatusForbidden, "not_open_yet", err)
	case errors.Is(err, services.ErrClosed):
		return utils.ErrorWithCode(c, fiber.StatusForbidden, "closed", err)
	case errors.Is(err, services.ErrValidation):
		return utils.ErrorWithCode(c, fiber.StatusUnprocessableEntity, "validation_error", err)
	}

	logger.Printf("[ERROR] %s %s: %v", c.Method(), c.Path(), err)
	return utils.InternalServerError(c, "Could not query database")
}

// paramID читает положительный числовой параметр пути
func paramID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

// queryID читает необязательный числовой query параметр, 0 если его нет
func queryID(c *fiber.Ctx, name string) (uint, bool) {
	if c.Query(name) == "" {
		return 0, true
	}
	id := c.QueryInt(name, -1)
	if id <= 0 {
		return 0, false
	}
	return uint(id), true
}
