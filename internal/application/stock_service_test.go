package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/allocation-service/internal/domain"
	apperrors "github.com/wms-platform/allocation-service/pkg/errors"
)

func TestReceiveCreatesAggregate(t *testing.T) {
	e := newEnv()
	svc := e.stockService()

	dto, err := svc.Receive(context.Background(), ReceiveStockCommand{
		SKU:           "SKU-100",
		ProductName:   "Widget",
		StorageUnitID: "BOX-1",
		LocationID:    "A-01-02",
		Zone:          "ZONE-A",
		Quantity:      12,
		Actor:         "receiver-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 12, dto.TotalQuantity)
	assert.Equal(t, 12, dto.PhysicalAvailable)
	require.Len(t, dto.Lines, 1)
	assert.Equal(t, "BOX-1", dto.Lines[0].StorageUnitID)

	// Second receipt into a new unit extends the aggregate
	dto, err = svc.Receive(context.Background(), ReceiveStockCommand{
		SKU:           "SKU-100",
		StorageUnitID: "BOX-2",
		LocationID:    "A-01-03",
		Zone:          "ZONE-A",
		Quantity:      5,
	})
	require.NoError(t, err)
	assert.Equal(t, 17, dto.TotalQuantity)
	assert.Len(t, dto.Lines, 2)

	entries, err := e.ledger.FindBySKU(context.Background(), "SKU-100", 10, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestAdjustRejectsBelowCommitment(t *testing.T) {
	e := newEnv()
	e.seedStock(t, "SKU-100", seedLine{unit: "BOX-1", zone: "ZONE-A", qty: 10})
	require.NoError(t, e.stocks.items["SKU-100"].Commit("BOX-1", 6))

	svc := e.stockService()
	_, err := svc.Adjust(context.Background(), AdjustStockCommand{
		SKU:           "SKU-100",
		StorageUnitID: "BOX-1",
		NewQuantity:   4,
		Reason:        "cycle count",
		Actor:         "counter-1",
	})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)

	// Down to exactly the commitment is allowed
	dto, err := svc.Adjust(context.Background(), AdjustStockCommand{
		SKU:           "SKU-100",
		StorageUnitID: "BOX-1",
		NewQuantity:   6,
		Reason:        "cycle count",
		Actor:         "counter-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 6, dto.TotalQuantity)
	assert.Equal(t, 0, dto.PhysicalAvailable)
}

func TestGetAvailabilitySubtractsSoftCommitments(t *testing.T) {
	// 10 physical, 3 hard-committed, one pending order for 4: the
	// advisory number is 7 physical minus 4 soft.
	e := newEnv()
	e.seedStock(t, "SKU-100", seedLine{unit: "BOX-1", zone: "ZONE-A", qty: 10})
	require.NoError(t, e.stocks.items["SKU-100"].Commit("BOX-1", 3))
	e.seedDocument(t, "ORD-1", itemLine("SKU-100", 4))

	svc := e.stockService()
	dto, err := svc.GetAvailability(context.Background(), "SKU-100")
	require.NoError(t, err)
	assert.Equal(t, 7, dto.PhysicalAvailable)
	assert.Equal(t, 4, dto.SoftCommitted)
	assert.Equal(t, 3, dto.AvailableToPromise)
}

func TestGetAvailabilityCanGoNegative(t *testing.T) {
	// Oversold: more promised than on hand. The advisory number says so
	// instead of clamping to zero.
	e := newEnv()
	e.seedStock(t, "SKU-100", seedLine{unit: "BOX-1", zone: "ZONE-A", qty: 5})
	e.seedDocument(t, "ORD-1", itemLine("SKU-100", 8))

	svc := e.stockService()
	dto, err := svc.GetAvailability(context.Background(), "SKU-100")
	require.NoError(t, err)
	assert.Equal(t, -3, dto.AvailableToPromise)
}

func TestGetAvailabilityIgnoresAllocatedDemand(t *testing.T) {
	// Once a document is allocated its claim lives on the hard side;
	// counting it as soft too would double-subtract.
	e := newEnv()
	e.seedStock(t, "SKU-100", seedLine{unit: "BOX-1", zone: "ZONE-A", qty: 10})
	e.seedDocument(t, "ORD-1", itemLine("SKU-100", 4))

	alloc := e.allocationService()
	_, err := alloc.Allocate(context.Background(), AllocateDocumentCommand{DocumentID: "ORD-1"})
	require.NoError(t, err)

	svc := e.stockService()
	dto, err := svc.GetAvailability(context.Background(), "SKU-100")
	require.NoError(t, err)
	assert.Equal(t, 6, dto.PhysicalAvailable)
	assert.Equal(t, 0, dto.SoftCommitted)
	assert.Equal(t, 6, dto.AvailableToPromise)
}

func TestGetStockNotFound(t *testing.T) {
	e := newEnv()
	svc := e.stockService()

	_, err := svc.GetStock(context.Background(), "SKU-MISSING")
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestAdjustWritesLedgerDelta(t *testing.T) {
	e := newEnv()
	e.seedStock(t, "SKU-100", seedLine{unit: "BOX-1", zone: "ZONE-A", qty: 10})

	svc := e.stockService()
	_, err := svc.Adjust(context.Background(), AdjustStockCommand{
		SKU:           "SKU-100",
		StorageUnitID: "BOX-1",
		NewQuantity:   7,
		Reason:        "damage",
		Actor:         "counter-1",
	})
	require.NoError(t, err)

	entries, err := e.ledger.FindBySKU(context.Background(), "SKU-100", 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.LedgerEntryAdjust, entries[0].EntryType)
	assert.Equal(t, -3, entries[0].Quantity)
	assert.Equal(t, "counter-1", entries[0].Actor)
}
