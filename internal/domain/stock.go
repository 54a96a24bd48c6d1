package domain

import (
	"errors"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Errors
var (
	ErrInsufficientPhysicalStock = errors.New("insufficient physical stock")
	ErrOverRelease               = errors.New("release exceeds committed quantity")
	ErrInvalidQuantity           = errors.New("invalid quantity")
	ErrStorageUnitNotFound       = errors.New("storage unit not found")
	ErrConcurrentConflict        = errors.New("concurrent modification conflict")
)

// StockItem is the aggregate root for physical stock of one SKU.
// It is the single source of truth for physical quantity and hard
// commitments; every other entity's allocation fields are derived
// claims against it.
type StockItem struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	SKU         string             `bson:"sku"`
	ProductName string             `bson:"productName"`
	Barcode     string             `bson:"barcode,omitempty"`

	Lines []StockLine `bson:"lines"`

	TotalQuantity         int `bson:"totalQuantity"`
	HardCommittedQuantity int `bson:"hardCommittedQuantity"`

	// Version backs optimistic concurrency on the validate-then-commit
	// window. Incremented on every Save; a stale version aborts the
	// whole transaction with ErrConcurrentConflict.
	Version int64 `bson:"version"`

	CreatedAt    time.Time     `bson:"createdAt"`
	UpdatedAt    time.Time     `bson:"updatedAt"`
	DomainEvents []DomainEvent `bson:"-"`
}

// StockLine is physical stock of one SKU inside one storage unit.
// Invariant: 0 <= HardCommitted <= Quantity at all times.
type StockLine struct {
	StorageUnitID string    `bson:"storageUnitId"`
	LocationID    string    `bson:"locationId"`
	Zone          string    `bson:"zone"`
	Quantity      int       `bson:"quantity"`
	HardCommitted int       `bson:"hardCommitted"`
	ReceivedAt    time.Time `bson:"receivedAt"`
}

// Available returns the uncommitted physical quantity on this line.
func (l *StockLine) Available() int {
	return l.Quantity - l.HardCommitted
}

// NewStockItem creates a new StockItem aggregate
func NewStockItem(sku, productName, barcode string) *StockItem {
	now := time.Now()
	return &StockItem{
		SKU:          sku,
		ProductName:  productName,
		Barcode:      barcode,
		Lines:        make([]StockLine, 0),
		CreatedAt:    now,
		UpdatedAt:    now,
		DomainEvents: make([]DomainEvent, 0),
	}
}

// PhysicalAvailable returns total physical quantity minus hard commitments.
func (s *StockItem) PhysicalAvailable() int {
	return s.TotalQuantity - s.HardCommittedQuantity
}

// Receive adds physical stock to a storage unit
func (s *StockItem) Receive(storageUnitID, locationID, zone string, quantity int, referenceID, actor string) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	found := false
	for idx := range s.Lines {
		if s.Lines[idx].StorageUnitID == storageUnitID {
			s.Lines[idx].Quantity += quantity
			found = true
			break
		}
	}
	if !found {
		s.Lines = append(s.Lines, StockLine{
			StorageUnitID: storageUnitID,
			LocationID:    locationID,
			Zone:          zone,
			Quantity:      quantity,
			ReceivedAt:    time.Now(),
		})
	}

	s.TotalQuantity += quantity
	s.UpdatedAt = time.Now()

	s.AddDomainEvent(&StockReceivedEvent{
		SKU:           s.SKU,
		StorageUnitID: storageUnitID,
		Quantity:      quantity,
		ReferenceID:   referenceID,
		Actor:         actor,
		ReceivedAt:    time.Now(),
	})

	return nil
}

// Commit atomically increments the hard commitment on one storage unit.
// Fails with ErrInsufficientPhysicalStock if the commitment would exceed
// physical quantity; the line never goes negative-available.
func (s *StockItem) Commit(storageUnitID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	for idx := range s.Lines {
		if s.Lines[idx].StorageUnitID != storageUnitID {
			continue
		}
		if s.Lines[idx].HardCommitted+quantity > s.Lines[idx].Quantity {
			return ErrInsufficientPhysicalStock
		}

		before := s.Lines[idx].HardCommitted
		s.Lines[idx].HardCommitted += quantity
		s.HardCommittedQuantity += quantity
		s.UpdatedAt = time.Now()

		s.AddDomainEvent(&StockCommittedEvent{
			SKU:             s.SKU,
			StorageUnitID:   storageUnitID,
			Quantity:        quantity,
			CommittedBefore: before,
			CommittedAfter:  s.Lines[idx].HardCommitted,
			CommittedAt:     time.Now(),
		})
		return nil
	}
	return ErrStorageUnitNotFound
}

// Release atomically decrements the hard commitment on one storage unit.
// Releasing more than is committed indicates a bookkeeping bug upstream;
// it fails loudly with ErrOverRelease instead of clamping.
func (s *StockItem) Release(storageUnitID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	for idx := range s.Lines {
		if s.Lines[idx].StorageUnitID != storageUnitID {
			continue
		}
		if quantity > s.Lines[idx].HardCommitted {
			return ErrOverRelease
		}

		before := s.Lines[idx].HardCommitted
		s.Lines[idx].HardCommitted -= quantity
		s.HardCommittedQuantity -= quantity
		s.UpdatedAt = time.Now()

		s.AddDomainEvent(&StockReleasedEvent{
			SKU:             s.SKU,
			StorageUnitID:   storageUnitID,
			Quantity:        quantity,
			CommittedBefore: before,
			CommittedAfter:  s.Lines[idx].HardCommitted,
			ReleasedAt:      time.Now(),
		})
		return nil
	}
	return ErrStorageUnitNotFound
}

// Adjust sets the physical quantity of a storage unit (cycle counts,
// corrections). Never touches hard commitments; an adjustment below the
// current commitment is rejected.
func (s *StockItem) Adjust(storageUnitID string, newQuantity int, reason, actor string) error {
	if newQuantity < 0 {
		return ErrInvalidQuantity
	}

	for idx := range s.Lines {
		if s.Lines[idx].StorageUnitID != storageUnitID {
			continue
		}
		if newQuantity < s.Lines[idx].HardCommitted {
			return ErrInsufficientPhysicalStock
		}

		oldQty := s.Lines[idx].Quantity
		diff := newQuantity - oldQty
		s.Lines[idx].Quantity = newQuantity
		s.TotalQuantity += diff
		s.UpdatedAt = time.Now()

		s.AddDomainEvent(&StockAdjustedEvent{
			SKU:           s.SKU,
			StorageUnitID: storageUnitID,
			OldQuantity:   oldQty,
			NewQuantity:   newQuantity,
			Reason:        reason,
			Actor:         actor,
			AdjustedAt:    time.Now(),
		})
		return nil
	}
	return ErrStorageUnitNotFound
}

// Deduct removes shipped quantity from both physical stock and the hard
// commitment backing it, once the goods physically leave the warehouse.
func (s *StockItem) Deduct(storageUnitID string, quantity int, referenceID string) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	for idx := range s.Lines {
		if s.Lines[idx].StorageUnitID != storageUnitID {
			continue
		}
		if quantity > s.Lines[idx].HardCommitted {
			return ErrOverRelease
		}

		s.Lines[idx].Quantity -= quantity
		s.Lines[idx].HardCommitted -= quantity
		s.TotalQuantity -= quantity
		s.HardCommittedQuantity -= quantity
		s.UpdatedAt = time.Now()

		s.AddDomainEvent(&StockDeductedEvent{
			SKU:           s.SKU,
			StorageUnitID: storageUnitID,
			Quantity:      quantity,
			ReferenceID:   referenceID,
			DeductedAt:    time.Now(),
		})
		return nil
	}
	return ErrStorageUnitNotFound
}

// LineFor returns the stock line for a storage unit, or nil.
func (s *StockItem) LineFor(storageUnitID string) *StockLine {
	for idx := range s.Lines {
		if s.Lines[idx].StorageUnitID == storageUnitID {
			return &s.Lines[idx]
		}
	}
	return nil
}

// AvailableLinesFIFO returns lines with available quantity, oldest
// received first, storage unit ID as the tie-break. Allocation walks
// this order so line selection is deterministic and testable.
func (s *StockItem) AvailableLinesFIFO() []StockLine {
	lines := make([]StockLine, 0, len(s.Lines))
	for _, l := range s.Lines {
		if l.Available() > 0 {
			lines = append(lines, l)
		}
	}
	sort.SliceStable(lines, func(a, b int) bool {
		if lines[a].ReceivedAt.Equal(lines[b].ReceivedAt) {
			return lines[a].StorageUnitID < lines[b].StorageUnitID
		}
		return lines[a].ReceivedAt.Before(lines[b].ReceivedAt)
	})
	return lines
}

// AddDomainEvent adds a domain event
func (s *StockItem) AddDomainEvent(event DomainEvent) {
	s.DomainEvents = append(s.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (s *StockItem) ClearDomainEvents() {
	s.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns all domain events
func (s *StockItem) GetDomainEvents() []DomainEvent {
	return s.DomainEvents
}
