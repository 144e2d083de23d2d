package middleware

import (
	"strings"

	"tradedesk-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// CORSConfig allows browser origins by host suffix, or any origin presenting the dev password.
type CORSConfig struct {
	AllowedSuffix string
	DevPassword   string
}

const corsAllowHeaders = "Content-Type, dev-password, X-Actor, X-Trace-Id"

const corsAllowMethods = "GET, POST, PATCH, DELETE, OPTIONS"

// CORS rejects cross-origin requests that match neither rule. Requests without
// an Origin header pass through.
func CORS(cfg CORSConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := c.Get("Origin")
		if origin == "" {
			return c.Next()
		}
		if !originAllowed(c, cfg, origin) {
			return response.Error(c, "Not allowed by CORS", fiber.StatusForbidden, nil)
		}
		setCORSHeaders(c, origin)
		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}

func originAllowed(c *fiber.Ctx, cfg CORSConfig, origin string) bool {
	if c.Method() == fiber.MethodOptions && isLocalhost(origin) {
		return true
	}
	if cfg.AllowedSuffix != "" && strings.HasSuffix(strings.ToLower(origin), strings.ToLower(cfg.AllowedSuffix)) {
		return true
	}
	return cfg.DevPassword != "" && c.Get("dev-password") == cfg.DevPassword
}

func isLocalhost(origin string) bool {
	return strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")
}

func setCORSHeaders(c *fiber.Ctx, origin string) {
	c.Set("Access-Control-Allow-Origin", origin)
	c.Set("Access-Control-Allow-Credentials", "true")
	c.Set("Access-Control-Allow-Headers", corsAllowHeaders)
	c.Set("Access-Control-Allow-Methods", corsAllowMethods)
	c.Set("Access-Control-Expose-Headers", traceIDHeader)
}
