package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestJob() *PickingJob {
	tasks := []PickingTask{
		NewPickingTask("ORD-1", "SKU-001", "Blue Widget", "BOX-A", "LOC-A1", "ZONE-A", 5),
		NewPickingTask("ORD-2", "SKU-002", "Red Widget", "BOX-B", "LOC-A2", "ZONE-A", 3),
	}
	job := NewPickingJob("WV-1", "ZONE-A", tasks)
	job.ClearDomainEvents()
	return job
}

func TestNewPickingJob(t *testing.T) {
	job := createTestJob()

	assert.Equal(t, JobStatusOpen, job.Status)
	assert.Equal(t, "ZONE-A", job.Zone)
	assert.Len(t, job.Tasks, 2)
	for _, task := range job.Tasks {
		assert.Equal(t, TaskStatusPending, task.Status)
		assert.NotEmpty(t, task.TaskID)
	}
}

func TestPickingJobAssign(t *testing.T) {
	job := createTestJob()

	require.NoError(t, job.Assign("picker-1"))
	assert.Equal(t, JobStatusAssigned, job.Status)
	assert.Equal(t, "picker-1", job.PickerID)

	// One picker at a time
	assert.ErrorIs(t, job.Assign("picker-2"), ErrJobAlreadyAssigned)

	require.NoError(t, job.Unassign())
	assert.Equal(t, JobStatusOpen, job.Status)
	assert.Empty(t, job.PickerID)
	assert.NoError(t, job.Assign("picker-2"))
}

func TestMarkTaskPicked(t *testing.T) {
	job := createTestJob()
	require.NoError(t, job.Assign("picker-1"))

	taskID := job.Tasks[0].TaskID
	require.NoError(t, job.MarkTaskPicked(taskID, 5))
	assert.Equal(t, TaskStatusPicked, job.Tasks[0].Status)
	assert.Equal(t, 5, job.Tasks[0].PickedQuantity)

	assert.ErrorIs(t, job.MarkTaskPicked(taskID, 5), ErrTaskAlreadyPicked)
	assert.ErrorIs(t, job.MarkTaskPicked("TASK-unknown", 1), ErrTaskNotFound)
	assert.ErrorIs(t, job.MarkTaskPicked(job.Tasks[1].TaskID, 99), ErrPickExceedsTask)

	// Last task closes the job
	require.NoError(t, job.MarkTaskPicked(job.Tasks[1].TaskID, 3))
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.NotNil(t, job.CompletedAt)

	assert.ErrorIs(t, job.MarkTaskPicked(taskID, 1), ErrJobClosed)
}

func TestMarkTaskPickedShortQuantity(t *testing.T) {
	job := createTestJob()
	require.NoError(t, job.Assign("picker-1"))

	taskID := job.Tasks[0].TaskID
	assert.ErrorIs(t, job.MarkTaskPicked(taskID, 3), ErrShortPick)
	assert.Equal(t, TaskStatusPending, job.Tasks[0].Status)
	assert.Zero(t, job.Tasks[0].PickedQuantity)

	// The same quantity is accepted through the exception path instead.
	require.NoError(t, job.RecordException(taskID, 3, "bin short", "picker-1"))
	assert.Equal(t, TaskStatusException, job.Tasks[0].Status)
}

func TestRecordException(t *testing.T) {
	job := createTestJob()
	require.NoError(t, job.Assign("picker-1"))

	taskID := job.Tasks[0].TaskID
	require.NoError(t, job.RecordException(taskID, 3, "bin short", "picker-1"))
	assert.Equal(t, TaskStatusException, job.Tasks[0].Status)
	assert.Equal(t, 3, job.Tasks[0].PickedQuantity)
	require.Len(t, job.Exceptions, 1)
	assert.Equal(t, 5, job.Exceptions[0].Expected)
	assert.Equal(t, 3, job.Exceptions[0].Actual)

	// Exceptions on picked tasks are rejected
	require.NoError(t, job.MarkTaskPicked(job.Tasks[1].TaskID, 3))
	assert.ErrorIs(t, job.RecordException(job.Tasks[1].TaskID, 1, "late", "picker-1"), ErrTaskAlreadyPicked)
}

func TestPickingJobCancel(t *testing.T) {
	job := createTestJob()
	require.NoError(t, job.Cancel("wave cancelled"))
	assert.Equal(t, JobStatusCancelled, job.Status)

	// Picked work is physical and cannot be rolled back
	job = createTestJob()
	require.NoError(t, job.MarkTaskPicked(job.Tasks[0].TaskID, 5))
	assert.ErrorIs(t, job.Cancel("wave cancelled"), ErrWaveHasPickedWork)
}

func TestHasPickedWork(t *testing.T) {
	job := createTestJob()
	assert.False(t, job.HasPickedWork())

	require.NoError(t, job.MarkTaskPicked(job.Tasks[0].TaskID, 5))
	assert.True(t, job.HasPickedWork())
}

func TestTasksForDocument(t *testing.T) {
	job := createTestJob()
	tasks := job.TasksForDocument("ORD-1")
	require.Len(t, tasks, 1)
	assert.Equal(t, "SKU-001", tasks[0].SKU)
	assert.Empty(t, job.TasksForDocument("ORD-999"))
}

func TestShortageReport(t *testing.T) {
	report := NewShortageReport()
	assert.False(t, report.IsShort())

	report.Add("SKU-X", "Gadget", 20, 40)
	report.Add("SKU-X", "Gadget", 30, 40)
	report.Add("SKU-A", "Widget", 5, 2)

	assert.True(t, report.IsShort())
	items := report.Sorted()
	require.Len(t, items, 2)
	assert.Equal(t, "SKU-A", items[0].SKU)
	assert.Equal(t, 3, items[0].Missing)
	// Repeated SKUs accumulate needed against one shared availability
	assert.Equal(t, 50, items[1].Needed)
	assert.Equal(t, 40, items[1].Available)
	assert.Equal(t, 10, items[1].Missing)
}
