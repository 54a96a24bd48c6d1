package domain

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Errors
var (
	ErrNotApproved           = errors.New("document is not approved")
	ErrAlreadyAllocated      = errors.New("document is already allocated")
	ErrAlreadyApproved       = errors.New("document is already approved")
	ErrInvalidDocumentStatus = errors.New("invalid document status for this operation")
	ErrUnknownDemandKind     = errors.New("unknown demand kind")
	ErrDocumentInWave        = errors.New("document belongs to an open wave")
	ErrDocumentNotInWave     = errors.New("document does not belong to this wave")
	ErrEmptyDocument         = errors.New("document has no demand lines")
	ErrMissingStorageUnit    = errors.New("storage-unit demand line is missing its storage unit")
	ErrDuplicateStorageUnit  = errors.New("storage unit named by more than one demand line")
	ErrPartialUnitDemand     = errors.New("storage-unit demand must take the unit's whole quantity")
)

// DemandKind discriminates how a document claims stock. Item demand is
// satisfied line by line from whichever storage units hold the SKU;
// storage-unit demand claims specific whole units chosen at creation time.
type DemandKind string

const (
	DemandKindItem        DemandKind = "item"
	DemandKindStorageUnit DemandKind = "storage_unit"
)

// IsValid checks if the demand kind is valid
func (k DemandKind) IsValid() bool {
	switch k {
	case DemandKindItem, DemandKindStorageUnit:
		return true
	default:
		return false
	}
}

// DemandStatus represents the document lifecycle state
type DemandStatus string

const (
	DemandStatusPending   DemandStatus = "pending"
	DemandStatusAllocated DemandStatus = "allocated"
	DemandStatusPicked    DemandStatus = "picked"
	DemandStatusShipped   DemandStatus = "shipped"
	DemandStatusCancelled DemandStatus = "cancelled"
)

// DemandSource distinguishes outbound orders from internal transfers
type DemandSource string

const (
	DemandSourceOrder    DemandSource = "order"
	DemandSourceTransfer DemandSource = "transfer"
)

// DemandDocument is the aggregate root for one order or transfer. It
// owns the soft claim its lines make against stock; the hard side of the
// claim lives on StockItem and the two only move together inside one
// allocation transaction.
type DemandDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	DocumentID string             `bson:"documentId"`
	Kind       DemandKind         `bson:"kind"`
	Source     DemandSource       `bson:"source"`
	Status     DemandStatus       `bson:"status"`
	Approved   bool               `bson:"approved"`

	Lines []DemandLine `bson:"lines"`

	// WaveID is set while the document belongs to a planning or released
	// wave; a waved document is excluded from manual allocation.
	WaveID string `bson:"waveId,omitempty"`

	Priority    int    `bson:"priority"`
	Destination string `bson:"destination,omitempty"`
	CreatedBy   string `bson:"createdBy"`

	Version int64 `bson:"version"`

	ApprovedAt   *time.Time    `bson:"approvedAt,omitempty"`
	AllocatedAt  *time.Time    `bson:"allocatedAt,omitempty"`
	PickedAt     *time.Time    `bson:"pickedAt,omitempty"`
	ShippedAt    *time.Time    `bson:"shippedAt,omitempty"`
	CancelledAt  *time.Time    `bson:"cancelledAt,omitempty"`
	CancelReason string        `bson:"cancelReason,omitempty"`
	CreatedAt    time.Time     `bson:"createdAt"`
	UpdatedAt    time.Time     `bson:"updatedAt"`
	DomainEvents []DomainEvent `bson:"-"`
}

// DemandLine is one product claim inside a demand document. For
// storage-unit kind documents the line carries the specific unit chosen
// at creation time.
type DemandLine struct {
	SKU                   string `bson:"sku"`
	ProductName           string `bson:"productName"`
	RequestedQuantity     int    `bson:"requestedQuantity"`
	HardAllocatedQuantity int    `bson:"hardAllocatedQuantity"`
	StorageUnitID         string `bson:"storageUnitId,omitempty"`
}

// NewDemandDocument creates a new DemandDocument aggregate in pending,
// unapproved state. Storage-unit kind requires every line to name its
// storage unit; item kind forbids it.
func NewDemandDocument(kind DemandKind, source DemandSource, lines []DemandLine, createdBy string) (*DemandDocument, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDemandKind, kind)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyDocument
	}
	seenUnits := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if line.RequestedQuantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		switch kind {
		case DemandKindItem:
			if line.StorageUnitID != "" {
				return nil, fmt.Errorf("item demand line for %s must not name a storage unit", line.SKU)
			}
		case DemandKindStorageUnit:
			if line.StorageUnitID == "" {
				return nil, ErrMissingStorageUnit
			}
			// A unit is claimed whole; two lines naming it can never both
			// be satisfied.
			if _, dup := seenUnits[line.StorageUnitID]; dup {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateStorageUnit, line.StorageUnitID)
			}
			seenUnits[line.StorageUnitID] = struct{}{}
		}
	}

	now := time.Now()
	doc := &DemandDocument{
		DocumentID:   generateDocumentID(source),
		Kind:         kind,
		Source:       source,
		Status:       DemandStatusPending,
		Lines:        lines,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
		DomainEvents: make([]DomainEvent, 0),
	}

	doc.AddDomainEvent(&DocumentCreatedEvent{
		DocumentID: doc.DocumentID,
		Kind:       string(kind),
		Source:     string(source),
		LineCount:  len(lines),
		CreatedAt:  now,
	})

	return doc, nil
}

// Approve gates the document for allocation
func (d *DemandDocument) Approve(actor string) error {
	if d.Status != DemandStatusPending {
		return ErrInvalidDocumentStatus
	}
	if d.Approved {
		return ErrAlreadyApproved
	}

	now := time.Now()
	d.Approved = true
	d.ApprovedAt = &now
	d.UpdatedAt = now

	d.AddDomainEvent(&DocumentApprovedEvent{
		DocumentID: d.DocumentID,
		Actor:      actor,
		ApprovedAt: now,
	})
	return nil
}

// CanAllocate reports whether the document is eligible for allocation
// outside a wave flow. Waved documents are allocated only by their wave.
func (d *DemandDocument) CanAllocate() error {
	if d.Status == DemandStatusAllocated {
		return ErrAlreadyAllocated
	}
	if d.Status != DemandStatusPending {
		return ErrInvalidDocumentStatus
	}
	if !d.Approved {
		return ErrNotApproved
	}
	return nil
}

// RecordHardAllocation records the hard-allocated quantity on one line
func (d *DemandDocument) RecordHardAllocation(sku string, quantity int) error {
	for idx := range d.Lines {
		if d.Lines[idx].SKU == sku {
			d.Lines[idx].HardAllocatedQuantity += quantity
			d.UpdatedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("no demand line for sku %s", sku)
}

// MarkAllocated transitions the document to allocated after every line
// has been hard-committed
func (d *DemandDocument) MarkAllocated(taskCount int) error {
	if err := d.CanAllocate(); err != nil {
		return err
	}

	now := time.Now()
	d.Status = DemandStatusAllocated
	d.AllocatedAt = &now
	d.UpdatedAt = now

	d.AddDomainEvent(&DocumentAllocatedEvent{
		DocumentID:  d.DocumentID,
		TaskCount:   taskCount,
		AllocatedAt: now,
	})
	return nil
}

// RevertAllocation returns an allocated document to pending, unapproved
// state after its hard commitments have been released. Line-level hard
// allocated quantities are zeroed; a human must re-approve.
func (d *DemandDocument) RevertAllocation(reason string) error {
	if d.Status != DemandStatusAllocated {
		return ErrInvalidDocumentStatus
	}

	for idx := range d.Lines {
		d.Lines[idx].HardAllocatedQuantity = 0
	}

	now := time.Now()
	d.Status = DemandStatusPending
	d.Approved = false
	d.AllocatedAt = nil
	d.UpdatedAt = now

	d.AddDomainEvent(&DocumentAllocationRevertedEvent{
		DocumentID: d.DocumentID,
		Reason:     reason,
		RevertedAt: now,
	})
	return nil
}

// MarkPicked transitions the document once all its pick work is done
func (d *DemandDocument) MarkPicked() error {
	if d.Status != DemandStatusAllocated {
		return ErrInvalidDocumentStatus
	}

	now := time.Now()
	d.Status = DemandStatusPicked
	d.PickedAt = &now
	d.UpdatedAt = now

	d.AddDomainEvent(&DocumentPickedEvent{
		DocumentID: d.DocumentID,
		PickedAt:   now,
	})
	return nil
}

// MarkShipped transitions a picked document out of the warehouse
func (d *DemandDocument) MarkShipped() error {
	if d.Status != DemandStatusPicked {
		return ErrInvalidDocumentStatus
	}

	now := time.Now()
	d.Status = DemandStatusShipped
	d.ShippedAt = &now
	d.UpdatedAt = now

	d.AddDomainEvent(&DocumentShippedEvent{
		DocumentID: d.DocumentID,
		ShippedAt:  now,
	})
	return nil
}

// Cancel terminates a pending document. Nothing is hard-committed at
// this stage so there is nothing to roll back. Allocated documents must
// go through RevertAllocation first.
func (d *DemandDocument) Cancel(reason string) error {
	if d.Status != DemandStatusPending {
		return ErrInvalidDocumentStatus
	}
	if d.WaveID != "" {
		return ErrDocumentInWave
	}

	now := time.Now()
	d.Status = DemandStatusCancelled
	d.CancelReason = reason
	d.CancelledAt = &now
	d.UpdatedAt = now

	d.AddDomainEvent(&DocumentCancelledEvent{
		DocumentID:  d.DocumentID,
		Reason:      reason,
		CancelledAt: now,
	})
	return nil
}

// AssignToWave records exclusive wave membership
func (d *DemandDocument) AssignToWave(waveID string) error {
	if d.WaveID != "" {
		return ErrDocumentInWave
	}
	if err := d.CanAllocate(); err != nil {
		return err
	}
	d.WaveID = waveID
	d.UpdatedAt = time.Now()
	return nil
}

// UnassignFromWave clears wave membership
func (d *DemandDocument) UnassignFromWave(waveID string) error {
	if d.WaveID != waveID {
		return ErrDocumentNotInWave
	}
	d.WaveID = ""
	d.UpdatedAt = time.Now()
	return nil
}

// ProductSet returns the distinct SKUs this document demands, used by
// wave clustering
func (d *DemandDocument) ProductSet() map[string]struct{} {
	set := make(map[string]struct{}, len(d.Lines))
	for _, line := range d.Lines {
		set[line.SKU] = struct{}{}
	}
	return set
}

// TotalRequestedQuantity sums requested quantity across lines
func (d *DemandDocument) TotalRequestedQuantity() int {
	total := 0
	for _, line := range d.Lines {
		total += line.RequestedQuantity
	}
	return total
}

// OpenSoftCommitment returns the not-yet-hard-allocated claim this
// document holds against one SKU. Only pending documents carry soft
// commitments; allocated demand is already counted on the hard side.
func (d *DemandDocument) OpenSoftCommitment(sku string) int {
	if d.Status != DemandStatusPending {
		return 0
	}
	total := 0
	for _, line := range d.Lines {
		if line.SKU == sku {
			total += line.RequestedQuantity - line.HardAllocatedQuantity
		}
	}
	return total
}

// AddDomainEvent adds a domain event
func (d *DemandDocument) AddDomainEvent(event DomainEvent) {
	d.DomainEvents = append(d.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (d *DemandDocument) ClearDomainEvents() {
	d.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns all domain events
func (d *DemandDocument) GetDomainEvents() []DomainEvent {
	return d.DomainEvents
}

func generateDocumentID(source DemandSource) string {
	prefix := "ORD"
	if source == DemandSourceTransfer {
		prefix = "TRF"
	}
	return prefix + "-" + time.Now().Format("20060102150405.000")
}
