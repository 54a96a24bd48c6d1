package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/allocation-service/internal/domain"
	apperrors "github.com/wms-platform/allocation-service/pkg/errors"
)

// allocateOrder seeds stock and one approved order, allocates it, and
// returns the created job.
func allocateOrder(t *testing.T, e *env, qty int) *domain.PickingJob {
	t.Helper()
	e.seedStock(t, "SKU-100", seedLine{unit: "BOX-1", zone: "ZONE-A", qty: qty + 10})
	e.seedDocument(t, "ORD-1", itemLine("SKU-100", qty))

	_, err := e.allocationService().Allocate(context.Background(), AllocateDocumentCommand{DocumentID: "ORD-1"})
	require.NoError(t, err)
	require.Len(t, e.jobs.jobs, 1)
	for _, job := range e.jobs.jobs {
		return job
	}
	return nil
}

func TestAssignJob(t *testing.T) {
	e := newEnv()
	job := allocateOrder(t, e, 4)

	svc := e.pickingService()
	dto, err := svc.AssignJob(context.Background(), AssignJobCommand{JobID: job.JobID, PickerID: "picker-1"})
	require.NoError(t, err)
	assert.Equal(t, string(domain.JobStatusAssigned), dto.Status)
	assert.Equal(t, "picker-1", dto.PickerID)

	// A second picker cannot take the same job
	_, err = svc.AssignJob(context.Background(), AssignJobCommand{JobID: job.JobID, PickerID: "picker-2"})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
}

func TestRecordPickCompletesJobAndDocument(t *testing.T) {
	e := newEnv()
	job := allocateOrder(t, e, 4)

	svc := e.pickingService()
	_, err := svc.AssignJob(context.Background(), AssignJobCommand{JobID: job.JobID, PickerID: "picker-1"})
	require.NoError(t, err)

	dto, err := svc.RecordPick(context.Background(), RecordPickCommand{
		JobID:    job.JobID,
		TaskID:   job.Tasks[0].TaskID,
		Quantity: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.JobStatusCompleted), dto.Status)
	assert.Equal(t, string(domain.TaskStatusPicked), dto.Tasks[0].Status)
	assert.Equal(t, 4, dto.Tasks[0].PickedQuantity)

	// All its tasks picked, the document follows
	assert.Equal(t, domain.DemandStatusPicked, e.documents.docs["ORD-1"].Status)
}

func TestRecordPickTwiceRejected(t *testing.T) {
	e := newEnv()
	job := allocateOrder(t, e, 4)

	svc := e.pickingService()
	_, err := svc.AssignJob(context.Background(), AssignJobCommand{JobID: job.JobID, PickerID: "picker-1"})
	require.NoError(t, err)
	_, err = svc.RecordPick(context.Background(), RecordPickCommand{JobID: job.JobID, TaskID: job.Tasks[0].TaskID, Quantity: 4})
	require.NoError(t, err)

	_, err = svc.RecordPick(context.Background(), RecordPickCommand{JobID: job.JobID, TaskID: job.Tasks[0].TaskID, Quantity: 4})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
}

func TestReportExceptionKeepsDocumentAllocated(t *testing.T) {
	e := newEnv()
	job := allocateOrder(t, e, 4)

	svc := e.pickingService()
	_, err := svc.AssignJob(context.Background(), AssignJobCommand{JobID: job.JobID, PickerID: "picker-1"})
	require.NoError(t, err)

	dto, err := svc.ReportException(context.Background(), ReportExceptionCommand{
		JobID:      job.JobID,
		TaskID:     job.Tasks[0].TaskID,
		Actual:     2,
		Reason:     "damaged carton",
		ReportedBy: "picker-1",
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.TaskStatusException), dto.Tasks[0].Status)

	// The document stays allocated for an operator to resolve
	assert.Equal(t, domain.DemandStatusAllocated, e.documents.docs["ORD-1"].Status)
}

func TestShipDocumentDeductsStockAndCommitment(t *testing.T) {
	e := newEnv()
	job := allocateOrder(t, e, 4)

	svc := e.pickingService()
	_, err := svc.AssignJob(context.Background(), AssignJobCommand{JobID: job.JobID, PickerID: "picker-1"})
	require.NoError(t, err)
	_, err = svc.RecordPick(context.Background(), RecordPickCommand{JobID: job.JobID, TaskID: job.Tasks[0].TaskID, Quantity: 4})
	require.NoError(t, err)

	stock := e.stocks.items["SKU-100"]
	require.Equal(t, 14, stock.TotalQuantity)
	require.Equal(t, 4, stock.HardCommittedQuantity)

	dto, err := svc.ShipDocument(context.Background(), ShipDocumentCommand{DocumentID: "ORD-1"})
	require.NoError(t, err)
	assert.Equal(t, string(domain.DemandStatusShipped), dto.Status)

	// Physical and committed leave together
	assert.Equal(t, 10, stock.TotalQuantity)
	assert.Equal(t, 0, stock.HardCommittedQuantity)
	assert.Equal(t, 10, stock.PhysicalAvailable())

	entries, err := e.ledger.FindBySKU(context.Background(), "SKU-100", 10, 0)
	require.NoError(t, err)
	var deducts int
	for _, entry := range entries {
		if entry.EntryType == domain.LedgerEntryDeduct {
			deducts++
		}
	}
	assert.Equal(t, 1, deducts)
}

func TestRecordShortPickRejected(t *testing.T) {
	e := newEnv()
	job := allocateOrder(t, e, 5)

	svc := e.pickingService()
	_, err := svc.AssignJob(context.Background(), AssignJobCommand{JobID: job.JobID, PickerID: "picker-1"})
	require.NoError(t, err)

	// Picking less than the task asks for must go through an exception,
	// otherwise the residual commitment would never be released.
	_, err = svc.RecordPick(context.Background(), RecordPickCommand{JobID: job.JobID, TaskID: job.Tasks[0].TaskID, Quantity: 3})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)

	stock := e.stocks.items["SKU-100"]
	assert.Equal(t, 5, stock.HardCommittedQuantity)
	assert.Equal(t, domain.DemandStatusAllocated, e.documents.docs["ORD-1"].Status)

	// The full pick still works and shipping drains the whole commitment.
	_, err = svc.RecordPick(context.Background(), RecordPickCommand{JobID: job.JobID, TaskID: job.Tasks[0].TaskID, Quantity: 5})
	require.NoError(t, err)
	_, err = svc.ShipDocument(context.Background(), ShipDocumentCommand{DocumentID: "ORD-1"})
	require.NoError(t, err)

	assert.Equal(t, 10, stock.TotalQuantity)
	assert.Equal(t, 0, stock.HardCommittedQuantity)
	assert.Equal(t, 10, stock.PhysicalAvailable())
}

func TestShipUnpickedDocumentRejected(t *testing.T) {
	e := newEnv()
	allocateOrder(t, e, 4)

	svc := e.pickingService()
	_, err := svc.ShipDocument(context.Background(), ShipDocumentCommand{DocumentID: "ORD-1"})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
}

func TestRecordPickUnknownTask(t *testing.T) {
	e := newEnv()
	job := allocateOrder(t, e, 4)

	svc := e.pickingService()
	_, err := svc.AssignJob(context.Background(), AssignJobCommand{JobID: job.JobID, PickerID: "picker-1"})
	require.NoError(t, err)

	_, err = svc.RecordPick(context.Background(), RecordPickCommand{JobID: job.JobID, TaskID: "TASK-missing", Quantity: 1})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}
