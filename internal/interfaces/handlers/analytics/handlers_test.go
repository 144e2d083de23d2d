package analytics

import (
	"testing"

	analyticssvc "tradedesk-backend/internal/application/analytics"
	"tradedesk-backend/internal/domain"
	"tradedesk-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummary_CachedOnSecondCall(t *testing.T) {
	st, _ := testutil.NewStore(t)
	rdb, _ := testutil.NewRedis(t)
	testutil.SeedContract(t, st, domain.Contract{ID: "SUP-1", Type: domain.ContractTypeSupply, ProductType: "CPO", Quantity: testutil.Dec("500")})

	app := fiber.New()
	(&Handlers{Service: &analyticssvc.Service{Store: st, Rdb: rdb}}).Register(app.Group("/api/v1"))

	resp, env := testutil.Do(t, app, "GET", "/api/v1/analytics/summary", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, false, env.Metadata["cached"])
	var sum analyticssvc.Summary
	env.DataInto(t, &sum)
	assert.Equal(t, 1, sum.Contracts.Total)

	_, env = testutil.Do(t, app, "GET", "/api/v1/analytics/summary", nil)
	assert.Equal(t, true, env.Metadata["cached"])
}
