package shipments

import (
	"context"
	"errors"
	"testing"
	"time"

	"tradedesk-backend/internal/domain"
	"tradedesk-backend/internal/events"
	"tradedesk-backend/internal/infrastructure/store"
	"tradedesk-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupShipments(t *testing.T) (*Service, *store.Store, *events.Bus) {
	st, bus := testutil.NewStore(t)
	svc := &Service{Store: st}
	svc.Subscribe(bus)
	return svc, st, bus
}

func seedSupply(t *testing.T, st *store.Store) *domain.Contract {
	return testutil.SeedContract(t, st, domain.Contract{
		ID:            "SUP-001",
		Type:          domain.ContractTypeSupply,
		ProductType:   "CPO",
		Quantity:      testutil.Dec("10000"),
		QualityFFA:    "5",
		DeliveryStart: testutil.Date(2026, time.March, 1),
		DeliveryEnd:   testutil.Date(2026, time.March, 31),
	})
}

func seedTank(t *testing.T, st *store.Store, id, shipmentID, qty string, q *domain.Quality) {
	t.Helper()
	require.NoError(t, st.Tanks().Create(context.Background(), &domain.Tank{
		ID: id, ShipmentID: shipmentID, Status: domain.TankStatusLoaded, Quantity: testutil.Dec(qty), Quality: q,
	}))
}

func TestCreate_DerivesFieldsFromContract(t *testing.T) {
	svc, st, _ := setupShipments(t)
	c := seedSupply(t, st)

	sh, err := svc.Create(context.Background(), Input{
		ContractID:    c.ID,
		Quantity:      testutil.Dec("6000"),
		DepartureDate: testutil.Date(2026, time.March, 2),
		ArrivalDate:   testutil.Date(2026, time.March, 20),
		Port:          "Port Klang",
	})
	require.NoError(t, err)
	assert.Equal(t, "SUP-001-SH-001", sh.ID)
	assert.Equal(t, domain.ContractTypeSupply, sh.Type)
	assert.Equal(t, "CPO", sh.ProductType)
	assert.Equal(t, domain.ShipmentStatusScheduled, sh.Status)
	assert.Nil(t, sh.Quality)
	assert.Nil(t, sh.RoutingDetails)

	stored, err := svc.Get(context.Background(), sh.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Quality)
	assert.Nil(t, stored.RoutingDetails)
	assert.True(t, testutil.Dec("6000").Equal(stored.Quantity))
}

func TestCreate_CapacityExceeded(t *testing.T) {
	svc, st, _ := setupShipments(t)
	c := seedSupply(t, st)
	ctx := context.Background()

	_, err := svc.Create(ctx, Input{ContractID: c.ID, Quantity: testutil.Dec("6000")})
	require.NoError(t, err)

	_, err = svc.Create(ctx, Input{ContractID: c.ID, Quantity: testutil.Dec("5000")})
	var ce *domain.CapacityExceededError
	require.True(t, errors.As(err, &ce))
	assert.True(t, testutil.Dec("4000").Equal(ce.Remaining))

	all, err := svc.List(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	sh, err := svc.Create(ctx, Input{ContractID: c.ID, Quantity: testutil.Dec("4000")})
	require.NoError(t, err)
	assert.Equal(t, "SUP-001-SH-002", sh.ID)
}

func TestCreate_Rejections(t *testing.T) {
	svc, st, _ := setupShipments(t)
	c := seedSupply(t, st)
	ctx := context.Background()

	_, err := svc.Create(ctx, Input{ContractID: "missing", Quantity: testutil.Dec("1")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Create(ctx, Input{ContractID: c.ID, Quantity: testutil.Dec("-1"), Status: "lost"})
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Errors, 2)

	_, err = svc.Create(ctx, Input{
		ContractID:    c.ID,
		Quantity:      testutil.Dec("100"),
		DepartureDate: testutil.Date(2026, time.February, 27),
		ArrivalDate:   testutil.Date(2026, time.March, 5),
	})
	var de *domain.DateRangeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.DateOutsideParentWindow, de.Reason)

	_, err = svc.Create(ctx, Input{
		ContractID:    c.ID,
		Quantity:      testutil.Dec("100"),
		DepartureDate: testutil.Date(2026, time.March, 10),
		ArrivalDate:   testutil.Date(2026, time.March, 5),
	})
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.DateEndBeforeStart, de.Reason)

	closed := testutil.SeedContract(t, st, domain.Contract{
		ID: "SUP-002", Type: domain.ContractTypeSupply, ProductType: "CPO",
		Status: domain.ContractStatusClosed, Quantity: testutil.Dec("100"),
	})
	_, err = svc.Create(ctx, Input{ContractID: closed.ID, Quantity: testutil.Dec("1")})
	var conflict *domain.ConflictError
	assert.True(t, errors.As(err, &conflict))
}

func TestUpdate_CapacityExcludesSelf(t *testing.T) {
	svc, st, _ := setupShipments(t)
	c := seedSupply(t, st)
	ctx := context.Background()
	first, err := svc.Create(ctx, Input{ContractID: c.ID, Quantity: testutil.Dec("6000")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Input{ContractID: c.ID, Quantity: testutil.Dec("3000")})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, first.ID, Patch{Quantity: testutil.Ptr(testutil.Dec("7000"))})
	require.NoError(t, err)
	assert.True(t, testutil.Dec("7000").Equal(updated.Quantity))

	_, err = svc.Update(ctx, first.ID, Patch{Quantity: testutil.Ptr(testutil.Dec("7000.001"))})
	var ce *domain.CapacityExceededError
	require.True(t, errors.As(err, &ce))
	assert.True(t, testutil.Dec("7000").Equal(ce.Remaining))
}

func TestUpdate_QuantityNotBelowTanks(t *testing.T) {
	svc, st, _ := setupShipments(t)
	c := seedSupply(t, st)
	ctx := context.Background()
	sh, err := svc.Create(ctx, Input{ContractID: c.ID, Quantity: testutil.Dec("6000")})
	require.NoError(t, err)
	seedTank(t, st, sh.ID+"-TNK-001", sh.ID, "4000", nil)

	_, err = svc.Update(ctx, sh.ID, Patch{Quantity: testutil.Ptr(testutil.Dec("3999"))})
	var ve *domain.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestUpdate_DatesMustStillContainTanks(t *testing.T) {
	svc, st, _ := setupShipments(t)
	c := seedSupply(t, st)
	ctx := context.Background()
	sh, err := svc.Create(ctx, Input{
		ContractID:    c.ID,
		Quantity:      testutil.Dec("6000"),
		DepartureDate: testutil.Date(2026, time.March, 2),
		ArrivalDate:   testutil.Date(2026, time.March, 20),
	})
	require.NoError(t, err)
	require.NoError(t, st.Tanks().Create(ctx, &domain.Tank{
		ID: sh.ID + "-TNK-001", ShipmentID: sh.ID, Status: domain.TankStatusLoaded, Quantity: testutil.Dec("1000"),
		DepartureDate: testutil.Date(2026, time.March, 3), ArrivalDate: testutil.Date(2026, time.March, 19),
	}))

	_, err = svc.Update(ctx, sh.ID, Patch{
		DepartureDate: testutil.Date(2026, time.March, 10),
		ArrivalDate:   testutil.Date(2026, time.March, 12),
	})
	var de *domain.DateRangeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.DateOutsideParentWindow, de.Reason)
	assert.Equal(t, sh.ID+"-TNK-001", de.Child)

	stored, err := svc.Get(ctx, sh.ID)
	require.NoError(t, err)
	assert.True(t, testutil.Date(2026, time.March, 2).Equal(*stored.DepartureDate))
	assert.True(t, testutil.Date(2026, time.March, 20).Equal(*stored.ArrivalDate))

	_, err = svc.Update(ctx, sh.ID, Patch{ArrivalDate: testutil.Date(2026, time.March, 19)})
	require.NoError(t, err)
}

func TestUpdate_FulfilledIsFrozen(t *testing.T) {
	svc, st, _ := setupShipments(t)
	c := seedSupply(t, st)
	ctx := context.Background()
	sh, err := svc.Create(ctx, Input{ContractID: c.ID, Quantity: testutil.Dec("100")})
	require.NoError(t, err)

	_, err = svc.Update(ctx, sh.ID, Patch{IsFulfilled: testutil.Ptr(true)})
	require.NoError(t, err)

	_, err = svc.Update(ctx, sh.ID, Patch{Port: testutil.Ptr("Dumai")})
	var ce *domain.ConflictError
	require.True(t, errors.As(err, &ce))

	var conflict *domain.ConflictError
	assert.True(t, errors.As(svc.Delete(ctx, sh.ID), &conflict))

	reopened, err := svc.Update(ctx, sh.ID, Patch{IsFulfilled: testutil.Ptr(false)})
	require.NoError(t, err)
	assert.False(t, reopened.IsFulfilled)
}

func TestUpdate_CannotCancelRouted(t *testing.T) {
	svc, st, _ := setupShipments(t)
	c := seedSupply(t, st)
	ctx := context.Background()
	sh, err := svc.Create(ctx, Input{ContractID: c.ID, Quantity: testutil.Dec("100")})
	require.NoError(t, err)
	sh.RoutingDetails = &domain.RoutingDetails{RoutedToContractID: "SEL-001", RoutedAt: time.Now().UTC(), RoutedBy: "ops"}
	require.NoError(t, st.Shipments().Save(ctx, sh))

	_, err = svc.Update(ctx, sh.ID, Patch{Status: testutil.Ptr(domain.ShipmentStatusCancelled)})
	var ce *domain.ConflictError
	assert.True(t, errors.As(err, &ce))
}

func TestDelete_CascadesTanks(t *testing.T) {
	svc, st, bus := setupShipments(t)
	c := seedSupply(t, st)
	ctx := context.Background()
	sh, err := svc.Create(ctx, Input{ContractID: c.ID, Quantity: testutil.Dec("6000")})
	require.NoError(t, err)
	seedTank(t, st, sh.ID+"-TNK-001", sh.ID, "4000", nil)
	seedTank(t, st, sh.ID+"-TNK-002", sh.ID, "2000", nil)

	rec := testutil.Record(bus, events.CollectionChanged)
	require.NoError(t, svc.Delete(ctx, sh.ID))

	n, err := st.Tanks().Count(ctx, "shipment_id = ?", sh.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, rec.Count(events.CollectionChanged, domain.CollectionTanks))
	assert.Equal(t, 1, rec.Count(events.CollectionChanged, domain.CollectionShipments))

	assert.ErrorIs(t, svc.Delete(ctx, sh.ID), domain.ErrNotFound)
}

func TestTankChanged_RecomputesQuality(t *testing.T) {
	svc, st, bus := setupShipments(t)
	c := seedSupply(t, st)
	ctx := context.Background()
	sh, err := svc.Create(ctx, Input{ContractID: c.ID, Quantity: testutil.Dec("6000")})
	require.NoError(t, err)
	seedTank(t, st, sh.ID+"-TNK-001", sh.ID, "4000", &domain.Quality{FFA: 4, IV: 50})
	seedTank(t, st, sh.ID+"-TNK-002", sh.ID, "2000", &domain.Quality{FFA: 7, IV: 56})

	rec := testutil.Record(bus, events.ShipmentChanged)
	require.NoError(t, bus.Publish(ctx, events.TankChangedEvent(sh.ID)))

	got, err := svc.Get(ctx, sh.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Quality)
	assert.InDelta(t, 5.0, got.Quality.FFA, 1e-9)
	assert.InDelta(t, 52.0, got.Quality.IV, 1e-9)
	require.Len(t, rec.Events, 1)
	assert.Equal(t, c.ID, rec.Events[0].ContractID)

	report, err := svc.QualityReport(ctx, sh.ID)
	require.NoError(t, err)
	assert.Empty(t, report.Warnings)
}

func TestTankChanged_DeletedShipmentIgnored(t *testing.T) {
	svc, _, _ := setupShipments(t)
	assert.NoError(t, svc.HandleTankChanged(context.Background(), events.TankChangedEvent("gone")))
}

func TestQualityReport_WarnsAboveSpec(t *testing.T) {
	svc, st, _ := setupShipments(t)
	c := seedSupply(t, st)
	ctx := context.Background()
	sh, err := svc.Create(ctx, Input{ContractID: c.ID, Quantity: testutil.Dec("100")})
	require.NoError(t, err)

	empty, err := svc.QualityReport(ctx, sh.ID)
	require.NoError(t, err)
	assert.Nil(t, empty.Quality)

	seedTank(t, st, sh.ID+"-TNK-001", sh.ID, "100", &domain.Quality{FFA: 6})
	_, err = svc.RecomputeQuality(ctx, sh.ID)
	require.NoError(t, err)

	report, err := svc.QualityReport(ctx, sh.ID)
	require.NoError(t, err)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "FFA")
}
