package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// NoStore sets Cache-Control: no-store on every JSON envelope.
func NoStore() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		ct := string(c.Response().Header.ContentType())
		if strings.HasPrefix(ct, fiber.MIMEApplicationJSON) {
			c.Set(fiber.HeaderCacheControl, "no-store")
		}
		return err
	}
}
