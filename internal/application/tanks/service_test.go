package tanks

import (
	"context"
	"errors"
	"testing"
	"time"

	"tradedesk-backend/internal/application/shipments"
	"tradedesk-backend/internal/domain"
	"tradedesk-backend/internal/events"
	"tradedesk-backend/internal/infrastructure/store"
	"tradedesk-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	tanks     *Service
	shipments *shipments.Service
	store     *store.Store
	bus       *events.Bus
	shipment  *domain.Shipment
}

func setupTanks(t *testing.T) *fixture {
	st, bus := testutil.NewStore(t)
	shipSvc := &shipments.Service{Store: st}
	shipSvc.Subscribe(bus)
	testutil.SeedContract(t, st, domain.Contract{
		ID:          "SUP-001",
		Type:        domain.ContractTypeSupply,
		ProductType: "CPO",
		Quantity:    testutil.Dec("10000"),
		QualityFFA:  "5",
		QualityIV:   "52",
	})
	sh, err := shipSvc.Create(context.Background(), shipments.Input{
		ContractID:    "SUP-001",
		Quantity:      testutil.Dec("6000"),
		DepartureDate: testutil.Date(2026, time.March, 2),
		ArrivalDate:   testutil.Date(2026, time.March, 20),
	})
	require.NoError(t, err)
	return &fixture{tanks: &Service{Store: st}, shipments: shipSvc, store: st, bus: bus, shipment: sh}
}

func (f *fixture) reload(t *testing.T) *domain.Shipment {
	sh, err := f.shipments.Get(context.Background(), f.shipment.ID)
	require.NoError(t, err)
	return sh
}

func TestCreate_RecomputesShipmentQuality(t *testing.T) {
	f := setupTanks(t)
	ctx := context.Background()
	rec := testutil.Record(f.bus, events.TankChanged, events.ShipmentChanged)

	t1, err := f.tanks.Create(ctx, Input{ShipmentID: f.shipment.ID, Quantity: testutil.Dec("4000"), Quality: &domain.Quality{FFA: 4, IV: 52}})
	require.NoError(t, err)
	assert.Equal(t, "SUP-001-SH-001-TNK-001", t1.Tank.ID)
	assert.Equal(t, domain.TankStatusLoaded, t1.Tank.Status)
	assert.Empty(t, t1.Warnings)

	t2, err := f.tanks.Create(ctx, Input{ShipmentID: f.shipment.ID, Quantity: testutil.Dec("2000"), Quality: &domain.Quality{FFA: 7, IV: 52}})
	require.NoError(t, err)
	assert.Equal(t, "SUP-001-SH-001-TNK-002", t2.Tank.ID)
	require.Len(t, t2.Warnings, 1)
	assert.Contains(t, t2.Warnings[0], "FFA")

	sh := f.reload(t)
	require.NotNil(t, sh.Quality)
	assert.InDelta(t, 5.0, sh.Quality.FFA, 1e-9)
	assert.Equal(t, 2, rec.Count(events.TankChanged, ""))
	assert.Equal(t, 2, rec.Count(events.ShipmentChanged, ""))
}

func TestCreate_WithoutQualityLeavesAggregateNil(t *testing.T) {
	f := setupTanks(t)
	_, err := f.tanks.Create(context.Background(), Input{ShipmentID: f.shipment.ID, Quantity: testutil.Dec("100")})
	require.NoError(t, err)
	assert.Nil(t, f.reload(t).Quality)
}

func TestCreate_Rejections(t *testing.T) {
	f := setupTanks(t)
	ctx := context.Background()

	_, err := f.tanks.Create(ctx, Input{ShipmentID: f.shipment.ID, Quantity: testutil.Dec("10"), Quality: &domain.Quality{FFA: 120, IV: 201}})
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Errors, 2)

	_, err = f.tanks.Create(ctx, Input{ShipmentID: f.shipment.ID, Quantity: testutil.Dec("10"), Status: "Sunk"})
	require.True(t, errors.As(err, &ve))

	_, err = f.tanks.Create(ctx, Input{ShipmentID: "nope", Quantity: testutil.Dec("10")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.tanks.Create(ctx, Input{ShipmentID: f.shipment.ID, Quantity: testutil.Dec("6000.001")})
	var ce *domain.CapacityExceededError
	require.True(t, errors.As(err, &ce))
	assert.True(t, testutil.Dec("6000").Equal(ce.Remaining))

	_, err = f.tanks.Create(ctx, Input{
		ShipmentID:    f.shipment.ID,
		Quantity:      testutil.Dec("10"),
		DepartureDate: testutil.Date(2026, time.March, 1),
	})
	var de *domain.DateRangeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.DateOutsideParentWindow, de.Reason)
}

func TestCreate_RefusedOnCancelledOrFulfilledShipment(t *testing.T) {
	f := setupTanks(t)
	ctx := context.Background()

	_, err := f.shipments.Update(ctx, f.shipment.ID, shipments.Patch{IsFulfilled: testutil.Ptr(true)})
	require.NoError(t, err)
	_, err = f.tanks.Create(ctx, Input{ShipmentID: f.shipment.ID, Quantity: testutil.Dec("10")})
	var ce *domain.ConflictError
	require.True(t, errors.As(err, &ce))

	_, err = f.shipments.Update(ctx, f.shipment.ID, shipments.Patch{IsFulfilled: testutil.Ptr(false)})
	require.NoError(t, err)
	_, err = f.shipments.Update(ctx, f.shipment.ID, shipments.Patch{Status: testutil.Ptr(domain.ShipmentStatusCancelled)})
	require.NoError(t, err)
	_, err = f.tanks.Create(ctx, Input{ShipmentID: f.shipment.ID, Quantity: testutil.Dec("10")})
	assert.True(t, errors.As(err, &ce))
}

func TestUpdate_QualityChangeRecomputes(t *testing.T) {
	f := setupTanks(t)
	ctx := context.Background()
	t1, err := f.tanks.Create(ctx, Input{ShipmentID: f.shipment.ID, Quantity: testutil.Dec("4000"), Quality: &domain.Quality{FFA: 4}})
	require.NoError(t, err)
	_, err = f.tanks.Create(ctx, Input{ShipmentID: f.shipment.ID, Quantity: testutil.Dec("2000"), Quality: &domain.Quality{FFA: 7}})
	require.NoError(t, err)

	res, err := f.tanks.Update(ctx, t1.Tank.ID, Patch{Quality: &domain.Quality{FFA: 1}})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Tank.Quality.FFA, 1e-9)
	assert.InDelta(t, 3.0, f.reload(t).Quality.FFA, 1e-9)

	_, err = f.tanks.Update(ctx, t1.Tank.ID, Patch{Quantity: testutil.Ptr(testutil.Dec("1000"))})
	require.NoError(t, err)
	assert.InDelta(t, 5.0, f.reload(t).Quality.FFA, 1e-9)

	_, err = f.tanks.Update(ctx, t1.Tank.ID, Patch{ClearQuality: true})
	require.NoError(t, err)
	assert.InDelta(t, 7.0, f.reload(t).Quality.FFA, 1e-9)
}

func TestUpdate_StatusOnlyDoesNotRecompute(t *testing.T) {
	f := setupTanks(t)
	ctx := context.Background()
	t1, err := f.tanks.Create(ctx, Input{ShipmentID: f.shipment.ID, Quantity: testutil.Dec("100"), Quality: &domain.Quality{FFA: 4}})
	require.NoError(t, err)

	rec := testutil.Record(f.bus, events.TankChanged)
	res, err := f.tanks.Update(ctx, t1.Tank.ID, Patch{Status: testutil.Ptr(domain.TankStatusDischarged)})
	require.NoError(t, err)
	assert.Equal(t, domain.TankStatusDischarged, res.Tank.Status)
	assert.Zero(t, rec.Count(events.TankChanged, ""))
}

func TestUpdate_CapacityExcludesSelf(t *testing.T) {
	f := setupTanks(t)
	ctx := context.Background()
	t1, err := f.tanks.Create(ctx, Input{ShipmentID: f.shipment.ID, Quantity: testutil.Dec("4000")})
	require.NoError(t, err)
	_, err = f.tanks.Create(ctx, Input{ShipmentID: f.shipment.ID, Quantity: testutil.Dec("2000")})
	require.NoError(t, err)

	_, err = f.tanks.Update(ctx, t1.Tank.ID, Patch{Quantity: testutil.Ptr(testutil.Dec("4001"))})
	var ce *domain.CapacityExceededError
	require.True(t, errors.As(err, &ce))
	assert.True(t, testutil.Dec("4000").Equal(ce.Remaining))

	_, err = f.tanks.Update(ctx, t1.Tank.ID, Patch{Quality: &domain.Quality{FFA: 101}})
	var ve *domain.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestDelete_RecomputesAndGuardsFulfilled(t *testing.T) {
	f := setupTanks(t)
	ctx := context.Background()
	t1, err := f.tanks.Create(ctx, Input{ShipmentID: f.shipment.ID, Quantity: testutil.Dec("4000"), Quality: &domain.Quality{FFA: 4}})
	require.NoError(t, err)
	t2, err := f.tanks.Create(ctx, Input{ShipmentID: f.shipment.ID, Quantity: testutil.Dec("2000"), Quality: &domain.Quality{FFA: 7}})
	require.NoError(t, err)

	require.NoError(t, f.tanks.Delete(ctx, t1.Tank.ID))
	assert.InDelta(t, 7.0, f.reload(t).Quality.FFA, 1e-9)

	_, err = f.shipments.Update(ctx, f.shipment.ID, shipments.Patch{IsFulfilled: testutil.Ptr(true)})
	require.NoError(t, err)
	var ce *domain.ConflictError
	assert.True(t, errors.As(f.tanks.Delete(ctx, t2.Tank.ID), &ce))

	_, err = f.shipments.Update(ctx, f.shipment.ID, shipments.Patch{IsFulfilled: testutil.Ptr(false)})
	require.NoError(t, err)
	require.NoError(t, f.tanks.Delete(ctx, t2.Tank.ID))
	assert.Nil(t, f.reload(t).Quality)

	assert.ErrorIs(t, f.tanks.Delete(ctx, t2.Tank.ID), domain.ErrNotFound)
}
