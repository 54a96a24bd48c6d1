package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/allocation-service/internal/domain"
	apperrors "github.com/wms-platform/allocation-service/pkg/errors"
)

func TestAllocateSplitsAcrossStorageUnits(t *testing.T) {
	// 8 demanded, 5 in the oldest unit and 5 in the next: the engine
	// takes 5 then 3, leaving 0 and 2 available.
	e := newEnv()
	e.seedStock(t, "SKU-100",
		seedLine{unit: "BOX-1", zone: "ZONE-A", qty: 5},
		seedLine{unit: "BOX-2", zone: "ZONE-A", qty: 5},
	)
	e.seedDocument(t, "ORD-1", itemLine("SKU-100", 8))

	svc := e.allocationService()
	result, err := svc.Allocate(context.Background(), AllocateDocumentCommand{DocumentID: "ORD-1"})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, 1, result.JobsCreated)
	assert.Equal(t, 2, result.TasksCreated)

	stock := e.stocks.items["SKU-100"]
	box1 := stock.LineFor("BOX-1")
	box2 := stock.LineFor("BOX-2")
	assert.Equal(t, 0, box1.Available())
	assert.Equal(t, 5, box1.HardCommitted)
	assert.Equal(t, 2, box2.Available())
	assert.Equal(t, 3, box2.HardCommitted)

	doc := e.documents.docs["ORD-1"]
	assert.Equal(t, domain.DemandStatusAllocated, doc.Status)
	assert.Equal(t, 8, doc.Lines[0].HardAllocatedQuantity)

	require.Len(t, e.jobs.jobs, 1)
	for _, job := range e.jobs.jobs {
		assert.Equal(t, "ZONE-A", job.Zone)
		require.Len(t, job.Tasks, 2)
		assert.Equal(t, 5, job.Tasks[0].Quantity)
		assert.Equal(t, "BOX-1", job.Tasks[0].StorageUnitID)
		assert.Equal(t, 3, job.Tasks[1].Quantity)
		assert.Equal(t, "BOX-2", job.Tasks[1].StorageUnitID)
	}

	// One commit entry per task
	entries, err := e.ledger.FindBySKU(context.Background(), "SKU-100", 10, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestAllocateShortageLeavesNoTrace(t *testing.T) {
	// Two orders race for 4 units of the same SKU. The first takes 3,
	// the second sees only 1 left and comes back short by 2 without
	// committing anything.
	e := newEnv()
	e.seedStock(t, "SKU-200", seedLine{unit: "BOX-1", zone: "ZONE-A", qty: 4})
	e.seedDocument(t, "ORD-1", itemLine("SKU-200", 3))
	e.seedDocument(t, "ORD-2", itemLine("SKU-200", 3))

	svc := e.allocationService()
	first, err := svc.Allocate(context.Background(), AllocateDocumentCommand{DocumentID: "ORD-1"})
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := svc.Allocate(context.Background(), AllocateDocumentCommand{DocumentID: "ORD-2"})
	require.NoError(t, err)
	require.False(t, second.Success)
	assert.Equal(t, apperrors.CodeShortage, second.Reason)
	require.Len(t, second.MissingItems, 1)
	missing := second.MissingItems[0]
	assert.Equal(t, "SKU-200", missing.SKU)
	assert.Equal(t, 3, missing.Needed)
	assert.Equal(t, 1, missing.Available)
	assert.Equal(t, 2, missing.Missing)

	// The short document is untouched
	doc := e.documents.docs["ORD-2"]
	assert.Equal(t, domain.DemandStatusPending, doc.Status)
	assert.Equal(t, 0, doc.Lines[0].HardAllocatedQuantity)
	assert.Equal(t, 3, e.stocks.items["SKU-200"].HardCommittedQuantity)
	assert.Len(t, e.jobs.jobs, 1)
}

func TestAllocateMultiLineAllOrNothing(t *testing.T) {
	// One line is satisfiable, the other is short: nothing commits and
	// the report covers only the short SKU.
	e := newEnv()
	e.seedStock(t, "SKU-A", seedLine{unit: "BOX-A", zone: "ZONE-A", qty: 10})
	e.seedStock(t, "SKU-B", seedLine{unit: "BOX-B", zone: "ZONE-B", qty: 1})
	e.seedDocument(t, "ORD-1", itemLine("SKU-A", 4), itemLine("SKU-B", 5))

	svc := e.allocationService()
	result, err := svc.Allocate(context.Background(), AllocateDocumentCommand{DocumentID: "ORD-1"})
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Len(t, result.MissingItems, 1)
	assert.Equal(t, "SKU-B", result.MissingItems[0].SKU)
	assert.Equal(t, 4, result.MissingItems[0].Missing)

	assert.Equal(t, 0, e.stocks.items["SKU-A"].HardCommittedQuantity)
	assert.Equal(t, 0, e.stocks.items["SKU-B"].HardCommittedQuantity)
	assert.Empty(t, e.jobs.jobs)
}

func TestAllocateConcurrentConflict(t *testing.T) {
	// A lost optimistic-concurrency race inside the transaction surfaces
	// as CONCURRENT_CONFLICT and persists nothing the caller could
	// observe on retry.
	e := newEnv()
	e.seedStock(t, "SKU-100", seedLine{unit: "BOX-1", zone: "ZONE-A", qty: 10})
	e.seedDocument(t, "ORD-1", itemLine("SKU-100", 4))
	e.jobs.saveErr = domain.ErrConcurrentConflict

	svc := e.allocationService()
	result, err := svc.Allocate(context.Background(), AllocateDocumentCommand{DocumentID: "ORD-1"})
	require.Error(t, err)
	assert.Nil(t, result)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConcurrentConflict, appErr.Code)

	assert.Empty(t, e.jobs.jobs)
	assert.Empty(t, e.ledger.entries)
}

func TestAllocateIdempotent(t *testing.T) {
	e := newEnv()
	e.seedStock(t, "SKU-100", seedLine{unit: "BOX-1", zone: "ZONE-A", qty: 10})
	e.seedDocument(t, "ORD-1", itemLine("SKU-100", 4))

	svc := e.allocationService()
	first, err := svc.Allocate(context.Background(), AllocateDocumentCommand{DocumentID: "ORD-1"})
	require.NoError(t, err)

	again, err := svc.Allocate(context.Background(), AllocateDocumentCommand{DocumentID: "ORD-1"})
	require.NoError(t, err)
	assert.True(t, again.Success)
	assert.Equal(t, first.JobsCreated, again.JobsCreated)
	assert.Equal(t, first.TasksCreated, again.TasksCreated)

	// Still committed exactly once
	assert.Equal(t, 4, e.stocks.items["SKU-100"].HardCommittedQuantity)
	assert.Len(t, e.jobs.jobs, 1)
}

func TestAllocateRequiresApproval(t *testing.T) {
	e := newEnv()
	e.seedStock(t, "SKU-100", seedLine{unit: "BOX-1", zone: "ZONE-A", qty: 10})
	doc, err := domain.NewDemandDocument(domain.DemandKindItem, domain.DemandSourceOrder,
		[]domain.DemandLine{itemLine("SKU-100", 4)}, "tester")
	require.NoError(t, err)
	doc.DocumentID = "ORD-1"
	e.documents.docs["ORD-1"] = doc

	svc := e.allocationService()
	_, err = svc.Allocate(context.Background(), AllocateDocumentCommand{DocumentID: "ORD-1"})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotApproved, appErr.Code)
}

func TestAllocateRejectsWavedDocument(t *testing.T) {
	e := newEnv()
	e.seedStock(t, "SKU-100", seedLine{unit: "BOX-1", zone: "ZONE-A", qty: 10})
	doc := e.seedDocument(t, "ORD-1", itemLine("SKU-100", 4))
	require.NoError(t, doc.AssignToWave("WV-1"))

	svc := e.allocationService()
	_, err := svc.Allocate(context.Background(), AllocateDocumentCommand{DocumentID: "ORD-1"})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
}

func TestAllocateStorageUnitKind(t *testing.T) {
	e := newEnv()
	e.seedStock(t, "SKU-100",
		seedLine{unit: "PAL-1", zone: "BULK", qty: 24},
		seedLine{unit: "PAL-2", zone: "BULK", qty: 24},
	)
	e.seedUnitDocument(t, "TRF-1", unitLine("SKU-100", "PAL-1", 24))

	svc := e.allocationService()
	result, err := svc.Allocate(context.Background(), AllocateDocumentCommand{DocumentID: "TRF-1"})
	require.NoError(t, err)
	require.True(t, result.Success)

	stock := e.stocks.items["SKU-100"]
	assert.Equal(t, 24, stock.LineFor("PAL-1").HardCommitted)
	assert.Equal(t, 0, stock.LineFor("PAL-2").HardCommitted)

	// The unit is claimed exclusively
	claim, err := e.claims.FindActiveByStorageUnit(context.Background(), "PAL-1")
	require.NoError(t, err)
	require.NotNil(t, claim)
	assert.Equal(t, "TRF-1", claim.DocumentID)
}

func TestAllocateStorageUnitPartialQuantityRejected(t *testing.T) {
	// A unit moves whole: demanding less than it holds would leave an
	// unclaimable remainder behind the exclusive claim.
	e := newEnv()
	e.seedStock(t, "SKU-100", seedLine{unit: "PAL-1", zone: "BULK", qty: 24})
	e.seedUnitDocument(t, "TRF-1", unitLine("SKU-100", "PAL-1", 10))

	svc := e.allocationService()
	result, err := svc.Allocate(context.Background(), AllocateDocumentCommand{DocumentID: "TRF-1"})
	require.Error(t, err)
	assert.Nil(t, result)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)

	assert.Equal(t, 0, e.stocks.items["SKU-100"].HardCommittedQuantity)
	claim, err := e.claims.FindActiveByStorageUnit(context.Background(), "PAL-1")
	require.NoError(t, err)
	assert.Nil(t, claim)
}

func TestAllocateClaimedStorageUnitConflicts(t *testing.T) {
	// A rival document holds the unit's claim but has not committed
	// stock yet, as happens mid-race. Availability passes, the claim
	// does not.
	e := newEnv()
	e.seedStock(t, "SKU-100",
		seedLine{unit: "PAL-1", zone: "BULK", qty: 48},
	)
	e.seedUnitDocument(t, "TRF-2", unitLine("SKU-100", "PAL-1", 48))
	require.NoError(t, e.claims.Claim(context.Background(), domain.NewStorageUnitClaim("PAL-1", "TRF-1", "")))

	svc := e.allocationService()
	_, err := svc.Allocate(context.Background(), AllocateDocumentCommand{DocumentID: "TRF-2"})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
}

func TestCancelPendingDocument(t *testing.T) {
	e := newEnv()
	e.seedDocument(t, "ORD-1", itemLine("SKU-100", 4))

	svc := e.allocationService()
	dto, err := svc.CancelDocument(context.Background(), CancelDocumentCommand{DocumentID: "ORD-1", Reason: "customer request"})
	require.NoError(t, err)
	assert.Equal(t, string(domain.DemandStatusCancelled), dto.Status)
}

func TestCancelAllocatedDocumentRollsBack(t *testing.T) {
	e := newEnv()
	e.seedStock(t, "SKU-100",
		seedLine{unit: "BOX-1", zone: "ZONE-A", qty: 5},
		seedLine{unit: "BOX-2", zone: "ZONE-B", qty: 5},
	)
	e.seedDocument(t, "ORD-1", itemLine("SKU-100", 8))

	svc := e.allocationService()
	_, err := svc.Allocate(context.Background(), AllocateDocumentCommand{DocumentID: "ORD-1"})
	require.NoError(t, err)
	require.Equal(t, 8, e.stocks.items["SKU-100"].HardCommittedQuantity)
	require.Len(t, e.jobs.jobs, 2) // two zones

	dto, err := svc.CancelDocument(context.Background(), CancelDocumentCommand{DocumentID: "ORD-1", Reason: "oversold"})
	require.NoError(t, err)

	// Back to pending and unapproved, every commitment released, jobs gone
	assert.Equal(t, string(domain.DemandStatusPending), dto.Status)
	assert.False(t, dto.Approved)
	assert.Equal(t, 0, dto.Lines[0].HardAllocatedQuantity)
	assert.Equal(t, 0, e.stocks.items["SKU-100"].HardCommittedQuantity)
	assert.Equal(t, 10, e.stocks.items["SKU-100"].PhysicalAvailable())
	assert.Empty(t, e.jobs.jobs)
}

func TestCancelAllocatedDocumentWithPickedWorkRejected(t *testing.T) {
	e := newEnv()
	e.seedStock(t, "SKU-100", seedLine{unit: "BOX-1", zone: "ZONE-A", qty: 10})
	e.seedDocument(t, "ORD-1", itemLine("SKU-100", 4))

	svc := e.allocationService()
	_, err := svc.Allocate(context.Background(), AllocateDocumentCommand{DocumentID: "ORD-1"})
	require.NoError(t, err)

	for _, job := range e.jobs.jobs {
		require.NoError(t, job.Assign("picker-1"))
		require.NoError(t, job.MarkTaskPicked(job.Tasks[0].TaskID, 4))
	}

	_, err = svc.CancelDocument(context.Background(), CancelDocumentCommand{DocumentID: "ORD-1", Reason: "too late"})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)

	// Commitments untouched
	assert.Equal(t, 4, e.stocks.items["SKU-100"].HardCommittedQuantity)
}

func TestCancelShippedDocumentRejected(t *testing.T) {
	e := newEnv()
	doc := e.seedDocument(t, "ORD-1", itemLine("SKU-100", 4))
	doc.Status = domain.DemandStatusShipped

	svc := e.allocationService()
	_, err := svc.CancelDocument(context.Background(), CancelDocumentCommand{DocumentID: "ORD-1", Reason: "no"})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
}
