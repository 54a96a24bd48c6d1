package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// StockReceivedEvent is published when physical stock is received
type StockReceivedEvent struct {
	SKU           string    `json:"sku"`
	StorageUnitID string    `json:"storageUnitId"`
	Quantity      int       `json:"quantity"`
	ReferenceID   string    `json:"referenceId,omitempty"`
	Actor         string    `json:"actor"`
	ReceivedAt    time.Time `json:"receivedAt"`
}

func (e *StockReceivedEvent) EventType() string     { return "wms.stock.received" }
func (e *StockReceivedEvent) OccurredAt() time.Time { return e.ReceivedAt }

// StockCommittedEvent is published when stock is hard-committed
type StockCommittedEvent struct {
	SKU             string    `json:"sku"`
	StorageUnitID   string    `json:"storageUnitId"`
	Quantity        int       `json:"quantity"`
	CommittedBefore int       `json:"committedBefore"`
	CommittedAfter  int       `json:"committedAfter"`
	CommittedAt     time.Time `json:"committedAt"`
}

func (e *StockCommittedEvent) EventType() string     { return "wms.stock.committed" }
func (e *StockCommittedEvent) OccurredAt() time.Time { return e.CommittedAt }

// StockReleasedEvent is published when a hard commitment is released
type StockReleasedEvent struct {
	SKU             string    `json:"sku"`
	StorageUnitID   string    `json:"storageUnitId"`
	Quantity        int       `json:"quantity"`
	CommittedBefore int       `json:"committedBefore"`
	CommittedAfter  int       `json:"committedAfter"`
	ReleasedAt      time.Time `json:"releasedAt"`
}

func (e *StockReleasedEvent) EventType() string     { return "wms.stock.released" }
func (e *StockReleasedEvent) OccurredAt() time.Time { return e.ReleasedAt }

// StockAdjustedEvent is published on cycle-count corrections
type StockAdjustedEvent struct {
	SKU           string    `json:"sku"`
	StorageUnitID string    `json:"storageUnitId"`
	OldQuantity   int       `json:"oldQuantity"`
	NewQuantity   int       `json:"newQuantity"`
	Reason        string    `json:"reason"`
	Actor         string    `json:"actor"`
	AdjustedAt    time.Time `json:"adjustedAt"`
}

func (e *StockAdjustedEvent) EventType() string     { return "wms.stock.adjusted" }
func (e *StockAdjustedEvent) OccurredAt() time.Time { return e.AdjustedAt }

// StockDeductedEvent is published when shipped stock leaves the building
type StockDeductedEvent struct {
	SKU           string    `json:"sku"`
	StorageUnitID string    `json:"storageUnitId"`
	Quantity      int       `json:"quantity"`
	ReferenceID   string    `json:"referenceId"`
	DeductedAt    time.Time `json:"deductedAt"`
}

func (e *StockDeductedEvent) EventType() string     { return "wms.stock.deducted" }
func (e *StockDeductedEvent) OccurredAt() time.Time { return e.DeductedAt }

// DocumentCreatedEvent is published when a demand document is created
type DocumentCreatedEvent struct {
	DocumentID string    `json:"documentId"`
	Kind       string    `json:"kind"`
	Source     string    `json:"source"`
	LineCount  int       `json:"lineCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (e *DocumentCreatedEvent) EventType() string     { return "wms.demand.created" }
func (e *DocumentCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// DocumentApprovedEvent is published when a document is approved
type DocumentApprovedEvent struct {
	DocumentID string    `json:"documentId"`
	Actor      string    `json:"actor"`
	ApprovedAt time.Time `json:"approvedAt"`
}

func (e *DocumentApprovedEvent) EventType() string     { return "wms.demand.approved" }
func (e *DocumentApprovedEvent) OccurredAt() time.Time { return e.ApprovedAt }

// DocumentAllocatedEvent is published on successful allocation
type DocumentAllocatedEvent struct {
	DocumentID  string    `json:"documentId"`
	TaskCount   int       `json:"taskCount"`
	AllocatedAt time.Time `json:"allocatedAt"`
}

func (e *DocumentAllocatedEvent) EventType() string     { return "wms.demand.allocated" }
func (e *DocumentAllocatedEvent) OccurredAt() time.Time { return e.AllocatedAt }

// AllocationShortageEvent is published when an allocation attempt finds
// insufficient stock
type AllocationShortageEvent struct {
	DocumentID string         `json:"documentId"`
	WaveID     string         `json:"waveId,omitempty"`
	Items      []ShortageItem `json:"items"`
	DetectedAt time.Time      `json:"detectedAt"`
}

func (e *AllocationShortageEvent) EventType() string     { return "wms.demand.shortage" }
func (e *AllocationShortageEvent) OccurredAt() time.Time { return e.DetectedAt }

// DocumentAllocationRevertedEvent is published when an allocated
// document is cancelled and its commitments released
type DocumentAllocationRevertedEvent struct {
	DocumentID string    `json:"documentId"`
	Reason     string    `json:"reason"`
	RevertedAt time.Time `json:"revertedAt"`
}

func (e *DocumentAllocationRevertedEvent) EventType() string     { return "wms.demand.allocation-reverted" }
func (e *DocumentAllocationRevertedEvent) OccurredAt() time.Time { return e.RevertedAt }

// DocumentPickedEvent is published when all pick work for a document is done
type DocumentPickedEvent struct {
	DocumentID string    `json:"documentId"`
	PickedAt   time.Time `json:"pickedAt"`
}

func (e *DocumentPickedEvent) EventType() string     { return "wms.demand.picked" }
func (e *DocumentPickedEvent) OccurredAt() time.Time { return e.PickedAt }

// DocumentShippedEvent is published when a document ships
type DocumentShippedEvent struct {
	DocumentID string    `json:"documentId"`
	ShippedAt  time.Time `json:"shippedAt"`
}

func (e *DocumentShippedEvent) EventType() string     { return "wms.demand.shipped" }
func (e *DocumentShippedEvent) OccurredAt() time.Time { return e.ShippedAt }

// DocumentCancelledEvent is published when a document is cancelled
type DocumentCancelledEvent struct {
	DocumentID  string    `json:"documentId"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelledAt"`
}

func (e *DocumentCancelledEvent) EventType() string     { return "wms.demand.cancelled" }
func (e *DocumentCancelledEvent) OccurredAt() time.Time { return e.CancelledAt }

// WaveCreatedEvent is published when a wave is created
type WaveCreatedEvent struct {
	WaveID    string    `json:"waveId"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

func (e *WaveCreatedEvent) EventType() string     { return "wms.waves.created" }
func (e *WaveCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// WaveReleasedEvent is published when a wave is released to picking
type WaveReleasedEvent struct {
	WaveID     string    `json:"waveId"`
	OrderCount int       `json:"orderCount"`
	JobCount   int       `json:"jobCount"`
	ReleasedAt time.Time `json:"releasedAt"`
}

func (e *WaveReleasedEvent) EventType() string     { return "wms.waves.released" }
func (e *WaveReleasedEvent) OccurredAt() time.Time { return e.ReleasedAt }

// WaveCompletedEvent is published when a wave completes
type WaveCompletedEvent struct {
	WaveID      string    `json:"waveId"`
	CompletedAt time.Time `json:"completedAt"`
}

func (e *WaveCompletedEvent) EventType() string     { return "wms.waves.completed" }
func (e *WaveCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }

// WaveCancelledEvent is published when a wave is cancelled
type WaveCancelledEvent struct {
	WaveID      string    `json:"waveId"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelledAt"`
}

func (e *WaveCancelledEvent) EventType() string     { return "wms.waves.cancelled" }
func (e *WaveCancelledEvent) OccurredAt() time.Time { return e.CancelledAt }

// PickingJobCreatedEvent is published when a zone job is dispatched
type PickingJobCreatedEvent struct {
	JobID     string    `json:"jobId"`
	WaveID    string    `json:"waveId,omitempty"`
	Zone      string    `json:"zone"`
	TaskCount int       `json:"taskCount"`
	CreatedAt time.Time `json:"createdAt"`
}

func (e *PickingJobCreatedEvent) EventType() string     { return "wms.picking.job-created" }
func (e *PickingJobCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// PickingJobAssignedEvent is published when a picker takes a job
type PickingJobAssignedEvent struct {
	JobID      string    `json:"jobId"`
	PickerID   string    `json:"pickerId"`
	AssignedAt time.Time `json:"assignedAt"`
}

func (e *PickingJobAssignedEvent) EventType() string     { return "wms.picking.job-assigned" }
func (e *PickingJobAssignedEvent) OccurredAt() time.Time { return e.AssignedAt }

// PickTaskPickedEvent is published when one task is picked
type PickTaskPickedEvent struct {
	JobID      string    `json:"jobId"`
	TaskID     string    `json:"taskId"`
	DocumentID string    `json:"documentId"`
	SKU        string    `json:"sku"`
	Quantity   int       `json:"quantity"`
	PickedAt   time.Time `json:"pickedAt"`
}

func (e *PickTaskPickedEvent) EventType() string     { return "wms.picking.task-picked" }
func (e *PickTaskPickedEvent) OccurredAt() time.Time { return e.PickedAt }

// PickExceptionEvent is published when a short pick is reported
type PickExceptionEvent struct {
	JobID      string    `json:"jobId"`
	TaskID     string    `json:"taskId"`
	DocumentID string    `json:"documentId"`
	SKU        string    `json:"sku"`
	Expected   int       `json:"expected"`
	Actual     int       `json:"actual"`
	Reason     string    `json:"reason"`
	ReportedBy string    `json:"reportedBy"`
	ReportedAt time.Time `json:"reportedAt"`
}

func (e *PickExceptionEvent) EventType() string     { return "wms.picking.exception" }
func (e *PickExceptionEvent) OccurredAt() time.Time { return e.ReportedAt }

// PickingJobCompletedEvent is published when every task in a job is closed
type PickingJobCompletedEvent struct {
	JobID       string    `json:"jobId"`
	WaveID      string    `json:"waveId,omitempty"`
	Zone        string    `json:"zone"`
	CompletedAt time.Time `json:"completedAt"`
}

func (e *PickingJobCompletedEvent) EventType() string     { return "wms.picking.job-completed" }
func (e *PickingJobCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }

// PickingJobCancelledEvent is published when a job is cancelled during rollback
type PickingJobCancelledEvent struct {
	JobID       string    `json:"jobId"`
	WaveID      string    `json:"waveId,omitempty"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelledAt"`
}

func (e *PickingJobCancelledEvent) EventType() string     { return "wms.picking.job-cancelled" }
func (e *PickingJobCancelledEvent) OccurredAt() time.Time { return e.CancelledAt }
