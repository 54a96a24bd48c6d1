package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/allocation-service/internal/domain"
	apperrors "github.com/wms-platform/allocation-service/pkg/errors"
)

func TestCreateWaveAssignsMembership(t *testing.T) {
	e := newEnv()
	e.seedDocument(t, "ORD-1", itemLine("SKU-100", 2))
	e.seedDocument(t, "ORD-2", itemLine("SKU-100", 3))

	svc := e.waveService()
	dto, err := svc.CreateWave(context.Background(), CreateWaveCommand{
		DocumentIDs: []string{"ORD-1", "ORD-2"},
		CreatedBy:   "planner",
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.WaveStatusPlanning), dto.Status)
	assert.Equal(t, 2, dto.OrderCount)

	assert.Equal(t, dto.WaveID, e.documents.docs["ORD-1"].WaveID)
	assert.Equal(t, dto.WaveID, e.documents.docs["ORD-2"].WaveID)
}

func TestCreateWaveRejectsEmptyMembership(t *testing.T) {
	e := newEnv()

	svc := e.waveService()
	dto, err := svc.CreateWave(context.Background(), CreateWaveCommand{DocumentIDs: nil, CreatedBy: "planner"})
	require.Error(t, err)
	assert.Nil(t, dto)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
	assert.Empty(t, e.waves.waves)
}

func TestCreateWaveRejectsAlreadyWavedDocument(t *testing.T) {
	e := newEnv()
	doc := e.seedDocument(t, "ORD-1", itemLine("SKU-100", 2))
	require.NoError(t, doc.AssignToWave("WV-OTHER"))

	svc := e.waveService()
	_, err := svc.CreateWave(context.Background(), CreateWaveCommand{
		DocumentIDs: []string{"ORD-1"},
		CreatedBy:   "planner",
	})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
}

func TestReleaseWaveCombinesZonesAcrossDocuments(t *testing.T) {
	e := newEnv()
	e.seedStock(t, "SKU-A", seedLine{unit: "BOX-A", zone: "ZONE-1", qty: 20})
	e.seedStock(t, "SKU-B", seedLine{unit: "BOX-B", zone: "ZONE-2", qty: 20})
	e.seedDocument(t, "ORD-1", itemLine("SKU-A", 3), itemLine("SKU-B", 2))
	e.seedDocument(t, "ORD-2", itemLine("SKU-A", 4))

	svc := e.waveService()
	wave, err := svc.CreateWave(context.Background(), CreateWaveCommand{
		DocumentIDs: []string{"ORD-1", "ORD-2"},
		CreatedBy:   "planner",
	})
	require.NoError(t, err)

	result, err := svc.ReleaseWave(context.Background(), ReleaseWaveCommand{WaveID: wave.WaveID})
	require.NoError(t, err)
	require.True(t, result.Success)

	// ZONE-1 tasks from both documents share one job, ZONE-2 gets its own
	assert.Equal(t, 2, result.JobsCreated)
	assert.Equal(t, 3, result.TasksCreated)

	jobs, err := e.jobs.FindByWaveID(context.Background(), wave.WaveID)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	byZone := make(map[string]*domain.PickingJob)
	for _, job := range jobs {
		byZone[job.Zone] = job
	}
	require.Len(t, byZone["ZONE-1"].Tasks, 2)
	require.Len(t, byZone["ZONE-2"].Tasks, 1)

	assert.Equal(t, domain.DemandStatusAllocated, e.documents.docs["ORD-1"].Status)
	assert.Equal(t, domain.DemandStatusAllocated, e.documents.docs["ORD-2"].Status)
	assert.Equal(t, 7, e.stocks.items["SKU-A"].HardCommittedQuantity)
	assert.Equal(t, 2, e.stocks.items["SKU-B"].HardCommittedQuantity)

	wv := e.waves.waves[wave.WaveID]
	assert.Equal(t, domain.WaveStatusReleased, wv.Status)
}

func TestReleaseWaveAggregatedShortage(t *testing.T) {
	// Five orders of 10 each against 40 on hand: individually fine,
	// collectively short by 10. The wave stays in planning with zero
	// commitments and zero jobs.
	e := newEnv()
	e.seedStock(t, "SKU-100", seedLine{unit: "BOX-1", zone: "ZONE-A", qty: 40})
	ids := []string{"ORD-1", "ORD-2", "ORD-3", "ORD-4", "ORD-5"}
	for _, id := range ids {
		e.seedDocument(t, id, itemLine("SKU-100", 10))
	}

	svc := e.waveService()
	wave, err := svc.CreateWave(context.Background(), CreateWaveCommand{DocumentIDs: ids, CreatedBy: "planner"})
	require.NoError(t, err)

	result, err := svc.ReleaseWave(context.Background(), ReleaseWaveCommand{WaveID: wave.WaveID})
	require.NoError(t, err)
	require.False(t, result.Success)
	assert.Equal(t, apperrors.CodeShortage, result.Reason)
	require.Len(t, result.MissingItems, 1)
	missing := result.MissingItems[0]
	assert.Equal(t, 50, missing.Needed)
	assert.Equal(t, 40, missing.Available)
	assert.Equal(t, 10, missing.Missing)

	assert.Equal(t, 0, e.stocks.items["SKU-100"].HardCommittedQuantity)
	assert.Empty(t, e.jobs.jobs)
	assert.Equal(t, domain.WaveStatusPlanning, e.waves.waves[wave.WaveID].Status)
	for _, id := range ids {
		assert.Equal(t, domain.DemandStatusPending, e.documents.docs[id].Status)
	}
}

func TestReleaseWaveConcurrentConflict(t *testing.T) {
	// A lost optimistic-concurrency race during release surfaces as
	// CONCURRENT_CONFLICT; the wave stays in planning with no jobs and
	// no ledger entries.
	e := newEnv()
	e.seedStock(t, "SKU-100", seedLine{unit: "BOX-1", zone: "ZONE-A", qty: 10})
	e.seedDocument(t, "ORD-1", itemLine("SKU-100", 4))

	svc := e.waveService()
	wave, err := svc.CreateWave(context.Background(), CreateWaveCommand{DocumentIDs: []string{"ORD-1"}, CreatedBy: "planner"})
	require.NoError(t, err)

	e.jobs.saveErr = domain.ErrConcurrentConflict
	result, err := svc.ReleaseWave(context.Background(), ReleaseWaveCommand{WaveID: wave.WaveID})
	require.Error(t, err)
	assert.Nil(t, result)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConcurrentConflict, appErr.Code)

	assert.Equal(t, domain.WaveStatusPlanning, e.waves.waves[wave.WaveID].Status)
	assert.Empty(t, e.jobs.jobs)
	assert.Empty(t, e.ledger.entries)
}

func TestCancelPlanningWaveFreesMembers(t *testing.T) {
	e := newEnv()
	e.seedDocument(t, "ORD-1", itemLine("SKU-100", 2))

	svc := e.waveService()
	wave, err := svc.CreateWave(context.Background(), CreateWaveCommand{DocumentIDs: []string{"ORD-1"}, CreatedBy: "planner"})
	require.NoError(t, err)

	dto, err := svc.CancelWave(context.Background(), CancelWaveCommand{WaveID: wave.WaveID, Reason: "replanned"})
	require.NoError(t, err)
	assert.Equal(t, string(domain.WaveStatusCancelled), dto.Status)
	assert.Empty(t, e.documents.docs["ORD-1"].WaveID)
	assert.Equal(t, domain.DemandStatusPending, e.documents.docs["ORD-1"].Status)
}

func TestCancelReleasedWaveRollsBackEverything(t *testing.T) {
	e := newEnv()
	e.seedStock(t, "SKU-100", seedLine{unit: "BOX-1", zone: "ZONE-A", qty: 20})
	e.seedDocument(t, "ORD-1", itemLine("SKU-100", 5))
	e.seedDocument(t, "ORD-2", itemLine("SKU-100", 5))

	svc := e.waveService()
	wave, err := svc.CreateWave(context.Background(), CreateWaveCommand{DocumentIDs: []string{"ORD-1", "ORD-2"}, CreatedBy: "planner"})
	require.NoError(t, err)
	_, err = svc.ReleaseWave(context.Background(), ReleaseWaveCommand{WaveID: wave.WaveID})
	require.NoError(t, err)
	require.Equal(t, 10, e.stocks.items["SKU-100"].HardCommittedQuantity)

	dto, err := svc.CancelWave(context.Background(), CancelWaveCommand{WaveID: wave.WaveID, Reason: "truck missed"})
	require.NoError(t, err)
	assert.Equal(t, string(domain.WaveStatusCancelled), dto.Status)

	assert.Equal(t, 0, e.stocks.items["SKU-100"].HardCommittedQuantity)
	assert.Empty(t, e.jobs.jobs)
	for _, id := range []string{"ORD-1", "ORD-2"} {
		doc := e.documents.docs[id]
		assert.Equal(t, domain.DemandStatusPending, doc.Status)
		assert.False(t, doc.Approved)
		assert.Empty(t, doc.WaveID)
	}
}

func TestCancelReleasedWaveWithPickedWorkRejected(t *testing.T) {
	e := newEnv()
	e.seedStock(t, "SKU-100", seedLine{unit: "BOX-1", zone: "ZONE-A", qty: 20})
	e.seedDocument(t, "ORD-1", itemLine("SKU-100", 5))

	svc := e.waveService()
	wave, err := svc.CreateWave(context.Background(), CreateWaveCommand{DocumentIDs: []string{"ORD-1"}, CreatedBy: "planner"})
	require.NoError(t, err)
	_, err = svc.ReleaseWave(context.Background(), ReleaseWaveCommand{WaveID: wave.WaveID})
	require.NoError(t, err)

	for _, job := range e.jobs.jobs {
		require.NoError(t, job.Assign("picker-1"))
		require.NoError(t, job.MarkTaskPicked(job.Tasks[0].TaskID, 5))
	}

	_, err = svc.CancelWave(context.Background(), CancelWaveCommand{WaveID: wave.WaveID, Reason: "too late"})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)

	// Nothing rolled back
	assert.Equal(t, 5, e.stocks.items["SKU-100"].HardCommittedQuantity)
	assert.Equal(t, domain.WaveStatusReleased, e.waves.waves[wave.WaveID].Status)
}

func TestCompleteWaveRequiresPickedMembers(t *testing.T) {
	e := newEnv()
	e.seedStock(t, "SKU-100", seedLine{unit: "BOX-1", zone: "ZONE-A", qty: 20})
	e.seedDocument(t, "ORD-1", itemLine("SKU-100", 5))

	svc := e.waveService()
	wave, err := svc.CreateWave(context.Background(), CreateWaveCommand{DocumentIDs: []string{"ORD-1"}, CreatedBy: "planner"})
	require.NoError(t, err)
	_, err = svc.ReleaseWave(context.Background(), ReleaseWaveCommand{WaveID: wave.WaveID})
	require.NoError(t, err)

	_, err = svc.CompleteWave(context.Background(), CompleteWaveCommand{WaveID: wave.WaveID})
	require.Error(t, err)

	// Pick everything, then completion succeeds and frees membership
	picking := e.pickingService()
	for _, job := range e.jobs.jobs {
		_, err := picking.AssignJob(context.Background(), AssignJobCommand{JobID: job.JobID, PickerID: "picker-1"})
		require.NoError(t, err)
		for _, task := range job.Tasks {
			_, err := picking.RecordPick(context.Background(), RecordPickCommand{JobID: job.JobID, TaskID: task.TaskID, Quantity: task.Quantity})
			require.NoError(t, err)
		}
	}
	require.Equal(t, domain.DemandStatusPicked, e.documents.docs["ORD-1"].Status)

	dto, err := svc.CompleteWave(context.Background(), CompleteWaveCommand{WaveID: wave.WaveID})
	require.NoError(t, err)
	assert.Equal(t, string(domain.WaveStatusCompleted), dto.Status)
	assert.Empty(t, e.documents.docs["ORD-1"].WaveID)
}

func TestReleaseWaveRejectsNonPlanning(t *testing.T) {
	e := newEnv()
	e.seedStock(t, "SKU-100", seedLine{unit: "BOX-1", zone: "ZONE-A", qty: 20})
	e.seedDocument(t, "ORD-1", itemLine("SKU-100", 5))

	svc := e.waveService()
	wave, err := svc.CreateWave(context.Background(), CreateWaveCommand{DocumentIDs: []string{"ORD-1"}, CreatedBy: "planner"})
	require.NoError(t, err)
	_, err = svc.ReleaseWave(context.Background(), ReleaseWaveCommand{WaveID: wave.WaveID})
	require.NoError(t, err)

	_, err = svc.ReleaseWave(context.Background(), ReleaseWaveCommand{WaveID: wave.WaveID})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
}
