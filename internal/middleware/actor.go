package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	actorHeader  = "X-Actor"
	actorLocal   = "actor"
	DefaultActor = "system"
)

// Actor stores the caller's name from X-Actor for audit fields.
func Actor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := strings.TrimSpace(c.Get(actorHeader))
		if actor == "" {
			actor = DefaultActor
		}
		c.Locals(actorLocal, actor)
		return c.Next()
	}
}

// GetActor returns the request's actor, or DefaultActor outside the Actor middleware.
func GetActor(c *fiber.Ctx) string {
	if a, ok := c.Locals(actorLocal).(string); ok && a != "" {
		return a
	}
	return DefaultActor
}
