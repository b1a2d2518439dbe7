package middleware

import (
	"log"
	"time"

	"coursegate/backend/utils"

	"github.com/gofiber/fiber/v2"
)

// LoggingMiddleware логирует каждый запрос: id запроса, пользователь, статус и время
func LoggingMiddleware(logger *log.Logger) fiber.Handler {
	colors := utils.Colorize(logger)

	return func(c *fiber.Ctx) error {
		start := time.Now()

		// Передаем управление следующему обработчику
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		method := c.Method()
		userID, _ := c.Locals(utils.LocalUserID).(uint)
		requestID, _ := c.Locals("requestid").(string)

		var statusColor, methodColor, resetColor string
		if colors {
			statusColor, methodColor, resetColor = utils.StatusColor(status), utils.MethodColor(method), utils.ResetColor
		}

		logger.Printf("%s %s %s%s%s %s %s%d%s %s user=%d",
			requestID,
			c.IP(),
			methodColor, method, resetColor,
			c.Path(),
			statusColor, status, resetColor,
			time.Since(start),
			userID,
		)

		return err
	}
}
