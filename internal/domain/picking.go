package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Errors
var (
	ErrTaskNotFound       = errors.New("picking task not found")
	ErrTaskAlreadyPicked  = errors.New("picking task already picked")
	ErrJobAlreadyAssigned = errors.New("picking job already assigned to a picker")
	ErrJobNotAssigned     = errors.New("picking job is not assigned")
	ErrJobClosed          = errors.New("picking job is closed")
	ErrPickExceedsTask    = errors.New("picked quantity exceeds task quantity")
	ErrShortPick          = errors.New("short pick must be reported as an exception")
)

// TaskStatus represents the status of one picking task
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusPicked    TaskStatus = "picked"
	TaskStatusException TaskStatus = "exception"
)

// JobStatus represents the status of a picking job
type JobStatus string

const (
	JobStatusOpen      JobStatus = "open"
	JobStatusAssigned  JobStatus = "assigned"
	JobStatusCompleted JobStatus = "completed"
	JobStatusCancelled JobStatus = "cancelled"
)

// PickingTask is one concrete unit of pick work: take a quantity of one
// SKU out of one storage unit. Immutable once created except for status
// and picked quantity.
type PickingTask struct {
	TaskID         string     `bson:"taskId"`
	DocumentID     string     `bson:"documentId"`
	SKU            string     `bson:"sku"`
	ProductName    string     `bson:"productName"`
	StorageUnitID  string     `bson:"storageUnitId"`
	LocationID     string     `bson:"locationId"`
	Zone           string     `bson:"zone"`
	Quantity       int        `bson:"quantity"`
	PickedQuantity int        `bson:"pickedQuantity"`
	Status         TaskStatus `bson:"status"`
	PickedAt       *time.Time `bson:"pickedAt,omitempty"`
}

// PickException records a short pick discovered on the floor
type PickException struct {
	TaskID     string    `bson:"taskId"`
	Expected   int       `bson:"expected"`
	Actual     int       `bson:"actual"`
	Reason     string    `bson:"reason"`
	ReportedBy string    `bson:"reportedBy"`
	ReportedAt time.Time `bson:"reportedAt"`
}

// PickingJob is the aggregate root for zone-scoped pick work. Tasks for
// the same zone across different documents are combined into one job so
// a single picker covers one travel area. At most one picker holds a
// job at a time.
type PickingJob struct {
	ID     primitive.ObjectID `bson:"_id,omitempty"`
	JobID  string             `bson:"jobId"`
	WaveID string             `bson:"waveId,omitempty"`
	Zone   string             `bson:"zone"`
	Status JobStatus          `bson:"status"`

	PickerID string `bson:"pickerId,omitempty"`

	Tasks      []PickingTask   `bson:"tasks"`
	Exceptions []PickException `bson:"exceptions,omitempty"`

	Version int64 `bson:"version"`

	AssignedAt   *time.Time    `bson:"assignedAt,omitempty"`
	CompletedAt  *time.Time    `bson:"completedAt,omitempty"`
	CreatedAt    time.Time     `bson:"createdAt"`
	UpdatedAt    time.Time     `bson:"updatedAt"`
	DomainEvents []DomainEvent `bson:"-"`
}

// NewPickingJob creates a picking job for one zone
func NewPickingJob(waveID, zone string, tasks []PickingTask) *PickingJob {
	now := time.Now()
	job := &PickingJob{
		JobID:        generateJobID(),
		WaveID:       waveID,
		Zone:         zone,
		Status:       JobStatusOpen,
		Tasks:        tasks,
		CreatedAt:    now,
		UpdatedAt:    now,
		DomainEvents: make([]DomainEvent, 0),
	}

	job.AddDomainEvent(&PickingJobCreatedEvent{
		JobID:     job.JobID,
		WaveID:    waveID,
		Zone:      zone,
		TaskCount: len(tasks),
		CreatedAt: now,
	})

	return job
}

// Assign hands the job to a picker
func (j *PickingJob) Assign(pickerID string) error {
	if j.Status == JobStatusCompleted || j.Status == JobStatusCancelled {
		return ErrJobClosed
	}
	if j.PickerID != "" {
		return ErrJobAlreadyAssigned
	}

	now := time.Now()
	j.PickerID = pickerID
	j.Status = JobStatusAssigned
	j.AssignedAt = &now
	j.UpdatedAt = now

	j.AddDomainEvent(&PickingJobAssignedEvent{
		JobID:      j.JobID,
		PickerID:   pickerID,
		AssignedAt: now,
	})
	return nil
}

// Unassign releases the job back to the open pool
func (j *PickingJob) Unassign() error {
	if j.Status != JobStatusAssigned {
		return ErrJobNotAssigned
	}
	j.PickerID = ""
	j.Status = JobStatusOpen
	j.AssignedAt = nil
	j.UpdatedAt = time.Now()
	return nil
}

// MarkTaskPicked records a completed pick on one task. The full task
// quantity must be picked; anything less goes through RecordException
// so the residual commitment stays visible until an operator resolves
// it. The job completes itself once every task is picked.
func (j *PickingJob) MarkTaskPicked(taskID string, quantity int) error {
	if j.Status == JobStatusCompleted || j.Status == JobStatusCancelled {
		return ErrJobClosed
	}

	for idx := range j.Tasks {
		if j.Tasks[idx].TaskID != taskID {
			continue
		}
		if j.Tasks[idx].Status == TaskStatusPicked {
			return ErrTaskAlreadyPicked
		}
		if quantity > j.Tasks[idx].Quantity {
			return ErrPickExceedsTask
		}
		if quantity < j.Tasks[idx].Quantity {
			return ErrShortPick
		}

		now := time.Now()
		j.Tasks[idx].PickedQuantity = quantity
		j.Tasks[idx].Status = TaskStatusPicked
		j.Tasks[idx].PickedAt = &now
		j.UpdatedAt = now

		j.AddDomainEvent(&PickTaskPickedEvent{
			JobID:      j.JobID,
			TaskID:     taskID,
			DocumentID: j.Tasks[idx].DocumentID,
			SKU:        j.Tasks[idx].SKU,
			Quantity:   quantity,
			PickedAt:   now,
		})

		if j.allTasksClosed() {
			j.complete()
		}
		return nil
	}
	return ErrTaskNotFound
}

// RecordException records a short pick on one task. The task enters
// exception status and blocks document completion until resolved.
func (j *PickingJob) RecordException(taskID string, actual int, reason, reportedBy string) error {
	if j.Status == JobStatusCompleted || j.Status == JobStatusCancelled {
		return ErrJobClosed
	}

	for idx := range j.Tasks {
		if j.Tasks[idx].TaskID != taskID {
			continue
		}
		if j.Tasks[idx].Status == TaskStatusPicked {
			return ErrTaskAlreadyPicked
		}

		now := time.Now()
		j.Tasks[idx].Status = TaskStatusException
		j.Tasks[idx].PickedQuantity = actual
		j.UpdatedAt = now
		j.Exceptions = append(j.Exceptions, PickException{
			TaskID:     taskID,
			Expected:   j.Tasks[idx].Quantity,
			Actual:     actual,
			Reason:     reason,
			ReportedBy: reportedBy,
			ReportedAt: now,
		})

		j.AddDomainEvent(&PickExceptionEvent{
			JobID:      j.JobID,
			TaskID:     taskID,
			DocumentID: j.Tasks[idx].DocumentID,
			SKU:        j.Tasks[idx].SKU,
			Expected:   j.Tasks[idx].Quantity,
			Actual:     actual,
			Reason:     reason,
			ReportedBy: reportedBy,
			ReportedAt: now,
		})
		return nil
	}
	return ErrTaskNotFound
}

// Cancel terminates an open or assigned job during a rollback
func (j *PickingJob) Cancel(reason string) error {
	if j.Status == JobStatusCompleted || j.Status == JobStatusCancelled {
		return ErrJobClosed
	}
	if j.HasPickedWork() {
		return ErrWaveHasPickedWork
	}

	now := time.Now()
	j.Status = JobStatusCancelled
	j.PickerID = ""
	j.CancelledEvent(reason, now)
	j.UpdatedAt = now
	return nil
}

// CancelledEvent emits the cancellation event
func (j *PickingJob) CancelledEvent(reason string, at time.Time) {
	j.AddDomainEvent(&PickingJobCancelledEvent{
		JobID:       j.JobID,
		WaveID:      j.WaveID,
		Reason:      reason,
		CancelledAt: at,
	})
}

// HasPickedWork reports whether any task in the job has picked quantity.
// Picked work is physical and cannot be silently rolled back.
func (j *PickingJob) HasPickedWork() bool {
	for _, task := range j.Tasks {
		if task.Status == TaskStatusPicked || task.PickedQuantity > 0 {
			return true
		}
	}
	return false
}

// TasksForDocument returns the job's tasks belonging to one document
func (j *PickingJob) TasksForDocument(documentID string) []PickingTask {
	tasks := make([]PickingTask, 0)
	for _, task := range j.Tasks {
		if task.DocumentID == documentID {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

func (j *PickingJob) allTasksClosed() bool {
	for _, task := range j.Tasks {
		if task.Status == TaskStatusPending {
			return false
		}
	}
	return true
}

func (j *PickingJob) complete() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	j.UpdatedAt = now

	j.AddDomainEvent(&PickingJobCompletedEvent{
		JobID:       j.JobID,
		WaveID:      j.WaveID,
		Zone:        j.Zone,
		CompletedAt: now,
	})
}

// AddDomainEvent adds a domain event
func (j *PickingJob) AddDomainEvent(event DomainEvent) {
	j.DomainEvents = append(j.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (j *PickingJob) ClearDomainEvents() {
	j.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns all domain events
func (j *PickingJob) GetDomainEvents() []DomainEvent {
	return j.DomainEvents
}

// NewPickingTask creates one unit of pick work
func NewPickingTask(documentID, sku, productName, storageUnitID, locationID, zone string, quantity int) PickingTask {
	return PickingTask{
		TaskID:        generateTaskID(),
		DocumentID:    documentID,
		SKU:           sku,
		ProductName:   productName,
		StorageUnitID: storageUnitID,
		LocationID:    locationID,
		Zone:          zone,
		Quantity:      quantity,
		Status:        TaskStatusPending,
	}
}

func generateJobID() string {
	return "JOB-" + uuid.New().String()[:8]
}

func generateTaskID() string {
	return "TASK-" + uuid.New().String()
}
