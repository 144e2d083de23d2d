// Package httperr maps domain errors onto the standard error envelope.
package httperr

import (
	"errors"

	"tradedesk-backend/internal/domain"
	"tradedesk-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Write sends err with the status its type implies. Unknown errors are logged
// and reported as 500 without leaking their text.
func Write(c *fiber.Ctx, err error) error {
	var (
		nf   *domain.NotFoundError
		ve   *domain.ValidationError
		ce   *domain.CapacityExceededError
		de   *domain.DateRangeError
		rv   *domain.RoutingViolationError
		conf *domain.ConflictError
		fe   *fiber.Error
	)
	switch {
	case errors.As(err, &nf):
		return response.Error(c, nf.Error(), fiber.StatusNotFound, fiber.Map{"entity": nf.Entity, "id": nf.ID})
	case errors.As(err, &ve):
		return response.Error(c, ve.Error(), fiber.StatusUnprocessableEntity, fiber.Map{"errors": ve.Errors})
	case errors.As(err, &ce):
		return response.Error(c, ce.Error(), fiber.StatusUnprocessableEntity, fiber.Map{
			"parent":    ce.Parent,
			"parentId":  ce.ParentID,
			"requested": ce.Requested,
			"remaining": ce.Remaining,
		})
	case errors.As(err, &de):
		return response.Error(c, de.Error(), fiber.StatusUnprocessableEntity, fiber.Map{"reason": de.Reason, "window": de.Window, "child": de.Child})
	case errors.As(err, &rv):
		return response.Error(c, rv.Error(), fiber.StatusUnprocessableEntity, fiber.Map{"errors": rv.Errors})
	case errors.As(err, &conf):
		return response.Error(c, conf.Error(), fiber.StatusConflict, nil)
	case errors.As(err, &fe):
		return response.Error(c, fe.Message, fe.Code, nil)
	}
	log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("unhandled error")
	return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}

// BadBody is the response for a request body that could not be parsed.
func BadBody(c *fiber.Ctx) error {
	return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
}
