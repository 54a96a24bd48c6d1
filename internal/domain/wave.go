package domain

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Errors
var (
	ErrWaveEmpty             = errors.New("wave must contain at least one document")
	ErrWaveNotPlanning       = errors.New("wave is not in planning")
	ErrWaveNotReleased       = errors.New("wave is not released")
	ErrWaveAlreadyClosed     = errors.New("wave is already closed")
	ErrDocumentAlreadyInWave = errors.New("document is already in this wave")
	ErrWaveHasPickedWork     = errors.New("wave has picked work and cannot be rolled back")
)

// WaveStatus represents the status of a wave
type WaveStatus string

const (
	WaveStatusPlanning  WaveStatus = "planning"  // Wave is being assembled
	WaveStatusReleased  WaveStatus = "released"  // Allocation done, picking jobs dispatched
	WaveStatusCompleted WaveStatus = "completed" // All member documents fulfilled
	WaveStatusCancelled WaveStatus = "cancelled" // Wave was cancelled
)

// WaveSize buckets a wave by total line count for operational display
type WaveSize string

const (
	WaveSizeXS WaveSize = "XS" // up to 10 lines
	WaveSizeS  WaveSize = "S"  // up to 25 lines
	WaveSizeM  WaveSize = "M"  // up to 60 lines
	WaveSizeL  WaveSize = "L"  // everything larger
)

// SizeForLineCount returns the size bucket for a total line count
func SizeForLineCount(lines int) WaveSize {
	switch {
	case lines <= 10:
		return WaveSizeXS
	case lines <= 25:
		return WaveSizeS
	case lines <= 60:
		return WaveSizeM
	default:
		return WaveSizeL
	}
}

// Wave is the aggregate root for a batch of demand documents released
// together. Membership is exclusive while the wave is open: a member
// document cannot be allocated or cancelled outside the wave flow.
type Wave struct {
	ID     primitive.ObjectID `bson:"_id,omitempty"`
	WaveID string             `bson:"waveId"`
	Status WaveStatus         `bson:"status"`
	Size   WaveSize           `bson:"size"`

	Documents []WaveDocument `bson:"documents"`

	OrderCount    int `bson:"orderCount"`
	TotalLines    int `bson:"totalLines"`
	TotalQuantity int `bson:"totalQuantity"`

	Version int64 `bson:"version"`

	CreatedBy    string        `bson:"createdBy"`
	CancelReason string        `bson:"cancelReason,omitempty"`
	CreatedAt    time.Time     `bson:"createdAt"`
	UpdatedAt    time.Time     `bson:"updatedAt"`
	ReleasedAt   *time.Time    `bson:"releasedAt,omitempty"`
	CompletedAt  *time.Time    `bson:"completedAt,omitempty"`
	CancelledAt  *time.Time    `bson:"cancelledAt,omitempty"`
	DomainEvents []DomainEvent `bson:"-"`
}

// WaveDocument is a member document's summary inside a wave
type WaveDocument struct {
	DocumentID    string    `bson:"documentId"`
	LineCount     int       `bson:"lineCount"`
	TotalQuantity int       `bson:"totalQuantity"`
	AddedAt       time.Time `bson:"addedAt"`
}

// NewWave creates a new Wave aggregate in planning state
func NewWave(createdBy string) *Wave {
	now := time.Now()
	wave := &Wave{
		WaveID:       generateWaveID(),
		Status:       WaveStatusPlanning,
		Size:         WaveSizeXS,
		Documents:    make([]WaveDocument, 0),
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
		DomainEvents: make([]DomainEvent, 0),
	}

	wave.AddDomainEvent(&WaveCreatedEvent{
		WaveID:    wave.WaveID,
		CreatedBy: createdBy,
		CreatedAt: now,
	})

	return wave
}

// AddDocument adds a member document to a planning wave
func (w *Wave) AddDocument(doc *DemandDocument) error {
	if w.Status != WaveStatusPlanning {
		return ErrWaveNotPlanning
	}
	for _, member := range w.Documents {
		if member.DocumentID == doc.DocumentID {
			return ErrDocumentAlreadyInWave
		}
	}

	w.Documents = append(w.Documents, WaveDocument{
		DocumentID:    doc.DocumentID,
		LineCount:     len(doc.Lines),
		TotalQuantity: doc.TotalRequestedQuantity(),
		AddedAt:       time.Now(),
	})
	w.recalculateStats()
	w.UpdatedAt = time.Now()
	return nil
}

// RemoveDocument removes a member from a planning wave
func (w *Wave) RemoveDocument(documentID string) error {
	if w.Status != WaveStatusPlanning {
		return ErrWaveNotPlanning
	}
	for idx, member := range w.Documents {
		if member.DocumentID == documentID {
			w.Documents = append(w.Documents[:idx], w.Documents[idx+1:]...)
			w.recalculateStats()
			w.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrDocumentNotInWave
}

// Release transitions the wave after every member document has been
// allocated and picking jobs dispatched
func (w *Wave) Release(jobCount int) error {
	if w.Status != WaveStatusPlanning {
		return ErrWaveNotPlanning
	}
	if len(w.Documents) == 0 {
		return ErrWaveEmpty
	}

	now := time.Now()
	w.Status = WaveStatusReleased
	w.ReleasedAt = &now
	w.UpdatedAt = now

	w.AddDomainEvent(&WaveReleasedEvent{
		WaveID:     w.WaveID,
		OrderCount: w.OrderCount,
		JobCount:   jobCount,
		ReleasedAt: now,
	})
	return nil
}

// Complete closes a released wave once all member documents are picked
func (w *Wave) Complete() error {
	if w.Status != WaveStatusReleased {
		return ErrWaveNotReleased
	}

	now := time.Now()
	w.Status = WaveStatusCompleted
	w.CompletedAt = &now
	w.UpdatedAt = now

	w.AddDomainEvent(&WaveCompletedEvent{
		WaveID:      w.WaveID,
		CompletedAt: now,
	})
	return nil
}

// Cancel terminates a planning or released wave. Stock rollback for
// released waves is the caller's responsibility; the aggregate only
// guards the transition.
func (w *Wave) Cancel(reason string) error {
	if w.Status == WaveStatusCompleted || w.Status == WaveStatusCancelled {
		return ErrWaveAlreadyClosed
	}

	now := time.Now()
	w.Status = WaveStatusCancelled
	w.CancelReason = reason
	w.CancelledAt = &now
	w.UpdatedAt = now

	w.AddDomainEvent(&WaveCancelledEvent{
		WaveID:      w.WaveID,
		Reason:      reason,
		CancelledAt: now,
	})
	return nil
}

// DocumentIDs returns member document IDs in insertion order
func (w *Wave) DocumentIDs() []string {
	ids := make([]string, 0, len(w.Documents))
	for _, member := range w.Documents {
		ids = append(ids, member.DocumentID)
	}
	return ids
}

func (w *Wave) recalculateStats() {
	w.OrderCount = len(w.Documents)
	w.TotalLines = 0
	w.TotalQuantity = 0
	for _, member := range w.Documents {
		w.TotalLines += member.LineCount
		w.TotalQuantity += member.TotalQuantity
	}
	w.Size = SizeForLineCount(w.TotalLines)
}

// AddDomainEvent adds a domain event
func (w *Wave) AddDomainEvent(event DomainEvent) {
	w.DomainEvents = append(w.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (w *Wave) ClearDomainEvents() {
	w.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns all domain events
func (w *Wave) GetDomainEvents() []DomainEvent {
	return w.DomainEvents
}

func generateWaveID() string {
	return "WV-" + time.Now().Format("20060102-150405.000")
}
