package middleware

import (
	"coursegate/backend/config"
	"coursegate/backend/utils"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware проверяет токен и кладет user_id и role в c.Locals
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, role, err := utils.ExtractUserFromToken(c, cfg)
		if err != nil {
			return utils.Unauthorized(c, "Unauthorized")
		}
		c.Locals(utils.LocalUserID, userID)
		c.Locals(utils.LocalRole, role)
		return c.Next()
	}
}

// AdminMiddleware пропускает только администраторов; ставится после AuthMiddleware
func AdminMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if role, _ := c.Locals(utils.LocalRole).(string); role != utils.RoleAdmin {
			return utils.Forbidden(c, "Forbidden - Admin access required")
		}
		return c.Next()
	}
}
