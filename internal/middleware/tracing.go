package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const traceIDHeader = "X-Trace-Id"
const traceIDLocal = "trace_id"

// Tracing gives every request a trace id and echoes it on the response. A
// well-formed incoming X-Trace-Id is kept. Services reach the id through the
// request context logger (log.Ctx) installed here.
func Tracing() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := traceIDFor(c)
		c.Locals(traceIDLocal, id)
		c.Set(traceIDHeader, id)
		scoped := log.With().Str("trace_id", id).Logger()
		c.SetUserContext(scoped.WithContext(c.UserContext()))
		return c.Next()
	}
}

func traceIDFor(c *fiber.Ctx) string {
	if id, err := uuid.Parse(c.Get(traceIDHeader)); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// GetTraceID returns the request's trace id, or "" before Tracing ran.
func GetTraceID(c *fiber.Ctx) string {
	id, _ := c.Locals(traceIDLocal).(string)
	return id
}
