package capacity

import (
	"errors"
	"testing"
	"time"

	"tradedesk-backend/internal/domain"
	"tradedesk-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemainingCapacity(t *testing.T) {
	siblings := []Allocation{
		{ID: "a", Quantity: testutil.Dec("6000")},
		{ID: "b", Quantity: testutil.Dec("1500.5")},
	}
	assert.True(t, testutil.Dec("2499.5").Equal(RemainingCapacity(testutil.Dec("10000"), siblings, "")))
	assert.True(t, testutil.Dec("8500.5").Equal(RemainingCapacity(testutil.Dec("10000"), siblings, "a")))
	assert.True(t, testutil.Dec("10000").Equal(RemainingCapacity(testutil.Dec("10000"), nil, "")))
}

func TestCheck_ExceededCarriesRemaining(t *testing.T) {
	parent := ParentRef{Kind: "contract", ID: "SUP-001", Quantity: testutil.Dec("10000")}
	siblings := []Allocation{{ID: "SUP-001-SH-001", Quantity: testutil.Dec("6000")}}

	err := Check(parent, siblings, "", testutil.Dec("5000"))
	require.Error(t, err)
	var ce *domain.CapacityExceededError
	require.True(t, errors.As(err, &ce))
	assert.True(t, testutil.Dec("4000").Equal(ce.Remaining))
	assert.True(t, testutil.Dec("5000").Equal(ce.Requested))
	assert.Equal(t, "SUP-001", ce.ParentID)

	assert.NoError(t, Check(parent, siblings, "", testutil.Dec("4000")))
}

func TestCheck_UpdateExcludesSelf(t *testing.T) {
	parent := ParentRef{Kind: "shipment", ID: "S1", Quantity: testutil.Dec("100")}
	siblings := []Allocation{{ID: "T1", Quantity: testutil.Dec("60")}, {ID: "T2", Quantity: testutil.Dec("40")}}
	assert.NoError(t, Check(parent, siblings, "T1", testutil.Dec("60")))
	assert.Error(t, Check(parent, siblings, "T1", testutil.Dec("60.001")))
}

func TestCheckDates(t *testing.T) {
	parent := Window{Start: testutil.Date(2026, time.March, 1), End: testutil.Date(2026, time.March, 31)}

	assert.NoError(t, CheckDates("contract delivery", parent,
		Window{Start: testutil.Date(2026, time.March, 1), End: testutil.Date(2026, time.March, 31)}))

	err := CheckDates("contract delivery", parent,
		Window{Start: testutil.Date(2026, time.February, 28), End: testutil.Date(2026, time.March, 10)})
	var de *domain.DateRangeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.DateOutsideParentWindow, de.Reason)

	err = CheckDates("contract delivery", parent,
		Window{Start: testutil.Date(2026, time.March, 5), End: testutil.Date(2026, time.April, 1)})
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.DateOutsideParentWindow, de.Reason)

	err = CheckDates("contract delivery", parent,
		Window{Start: testutil.Date(2026, time.March, 20), End: testutil.Date(2026, time.March, 10)})
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.DateEndBeforeStart, de.Reason)
}

func TestCheckDates_UnsetBoundsSkipped(t *testing.T) {
	assert.NoError(t, CheckDates("shipment", Window{}, Window{Start: testutil.Date(2026, time.May, 1)}))
	assert.NoError(t, CheckDates("shipment", Window{End: testutil.Date(2026, time.May, 31)}, Window{}))
}

func TestCheckChildren(t *testing.T) {
	children := []Child{
		{ID: "S1", Window: Window{Start: testutil.Date(2026, time.March, 3), End: testutil.Date(2026, time.March, 19)}},
		{ID: "S2"},
	}
	assert.NoError(t, CheckChildren("shipment", Window{Start: testutil.Date(2026, time.March, 3), End: testutil.Date(2026, time.March, 19)}, children))

	err := CheckChildren("shipment", Window{Start: testutil.Date(2026, time.March, 10), End: testutil.Date(2026, time.March, 12)}, children)
	var de *domain.DateRangeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.DateOutsideParentWindow, de.Reason)
	assert.Equal(t, "S1", de.Child)
	assert.Contains(t, de.Error(), "S1")
}
