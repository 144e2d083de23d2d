package httperr

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"tradedesk-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite_StatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"not found", &domain.NotFoundError{Entity: "Contract", ID: "X"}, 404},
		{"validation", domain.NewValidationError("bad"), 422},
		{"capacity", &domain.CapacityExceededError{Parent: "contract", ParentID: "C", Requested: decimal.NewFromInt(5), Remaining: decimal.NewFromInt(4)}, 422},
		{"dates", &domain.DateRangeError{Reason: domain.DateEndBeforeStart}, 422},
		{"routing", &domain.RoutingViolationError{Errors: []string{"a", "b"}}, 422},
		{"conflict", domain.Conflictf("busy"), 409},
		{"fiber", fiber.NewError(400, "nope"), 400},
		{"other", errors.New("db down"), 500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return Write(c, tc.err) })
			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tc.code, resp.StatusCode)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, "error", body["status"])
		})
	}
}

func TestWrite_RoutingViolationMessage(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return Write(c, &domain.RoutingViolationError{Errors: []string{"Shipment X is cancelled", "Contract Y is closed"}})
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	var body struct {
		Error struct {
			Message string `json:"message"`
			Details struct {
				Errors []string `json:"errors"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Shipment X is cancelled; Contract Y is closed", body.Error.Message)
	assert.Len(t, body.Error.Details.Errors, 2)
}
