package parties

import (
	"testing"

	partysvc "tradedesk-backend/internal/application/parties"
	"tradedesk-backend/internal/domain"
	"tradedesk-backend/internal/infrastructure/store"
	"tradedesk-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPartiesApp(t *testing.T) (*fiber.App, *store.Store) {
	st, _ := testutil.NewStore(t)
	app := fiber.New()
	(&Handlers{Service: &partysvc.Service{Store: st}}).Register(app.Group("/api/v1"))
	return app, st
}

func TestPartiesCRUD(t *testing.T) {
	app, st := setupPartiesApp(t)

	resp, env := testutil.Do(t, app, "POST", "/api/v1/parties", map[string]interface{}{
		"id": "SUPP-01", "type": "Supplier", "name": "Kebun Sawit", "countryCode": "id",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var p domain.Party
	env.DataInto(t, &p)
	assert.Equal(t, "ID", p.CountryCode)

	resp, _ = testutil.Do(t, app, "POST", "/api/v1/parties", map[string]interface{}{"id": "SUPP-01", "type": "Supplier", "name": "Dup"})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, env = testutil.Do(t, app, "POST", "/api/v1/parties", map[string]interface{}{"type": "Broker"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Len(t, env.Error.Details["errors"], 2)

	resp, _ = testutil.Do(t, app, "POST", "/api/v1/parties", map[string]interface{}{"type": "Buyer", "name": "Refinery"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	_, env = testutil.Do(t, app, "GET", "/api/v1/parties?type=Buyer", nil)
	assert.Equal(t, float64(1), env.Metadata["count"])
	_, env = testutil.Do(t, app, "GET", "/api/v1/parties", nil)
	assert.Equal(t, float64(2), env.Metadata["count"])

	resp, env = testutil.Do(t, app, "PATCH", "/api/v1/parties/SUPP-01", map[string]interface{}{"name": "Kebun Sawit Tbk"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	env.DataInto(t, &p)
	assert.Equal(t, "Kebun Sawit Tbk", p.Name)

	seller := "SUPP-01"
	testutil.SeedContract(t, st, domain.Contract{ID: "SUP-1", Type: domain.ContractTypeSupply, ProductType: "CPO", Quantity: testutil.Dec("1"), SellerID: &seller})
	resp, _ = testutil.Do(t, app, "DELETE", "/api/v1/parties/SUPP-01", nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, _ = testutil.Do(t, app, "GET", "/api/v1/parties/NOPE", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
