package domain

import "context"

// StockRepository defines the interface for stock persistence. Save
// enforces optimistic concurrency: writing an aggregate whose Version
// no longer matches the stored one fails with ErrConcurrentConflict.
type StockRepository interface {
	Save(ctx context.Context, item *StockItem) error
	FindBySKU(ctx context.Context, sku string) (*StockItem, error)
	FindBySKUs(ctx context.Context, skus []string) ([]*StockItem, error)
	FindByStorageUnit(ctx context.Context, storageUnitID string) ([]*StockItem, error)
	FindAll(ctx context.Context, limit, offset int) ([]*StockItem, error)
}

// DemandDocumentRepository defines the interface for demand document persistence
type DemandDocumentRepository interface {
	Save(ctx context.Context, doc *DemandDocument) error
	FindByDocumentID(ctx context.Context, documentID string) (*DemandDocument, error)
	FindByDocumentIDs(ctx context.Context, documentIDs []string) ([]*DemandDocument, error)
	FindByStatus(ctx context.Context, status DemandStatus, limit, offset int) ([]*DemandDocument, error)
	// FindAllocatable returns approved, pending documents not assigned
	// to any wave, the pool SuggestClusters draws from.
	FindAllocatable(ctx context.Context) ([]*DemandDocument, error)
	// SumOpenDemand returns the total not-yet-hard-allocated requested
	// quantity for one SKU across pending documents.
	SumOpenDemand(ctx context.Context, sku string) (int, error)
}

// WaveRepository defines the interface for wave persistence
type WaveRepository interface {
	Save(ctx context.Context, wave *Wave) error
	FindByWaveID(ctx context.Context, waveID string) (*Wave, error)
	FindByStatus(ctx context.Context, status WaveStatus, limit, offset int) ([]*Wave, error)
}

// PickingJobRepository defines the interface for picking job persistence
type PickingJobRepository interface {
	Save(ctx context.Context, job *PickingJob) error
	FindByJobID(ctx context.Context, jobID string) (*PickingJob, error)
	FindByWaveID(ctx context.Context, waveID string) ([]*PickingJob, error)
	FindByDocumentID(ctx context.Context, documentID string) ([]*PickingJob, error)
	FindByZone(ctx context.Context, zone string, status JobStatus) ([]*PickingJob, error)
	FindByPickerID(ctx context.Context, pickerID string) ([]*PickingJob, error)
	Delete(ctx context.Context, jobID string) error
}

// StorageUnitClaimRepository defines the interface for the exclusive
// claim table. Claim inserts must fail with ErrStorageUnitClaimed when
// an active claim already exists for the unit.
type StorageUnitClaimRepository interface {
	Claim(ctx context.Context, claim *StorageUnitClaim) error
	FindActiveByStorageUnit(ctx context.Context, storageUnitID string) (*StorageUnitClaim, error)
	FindActiveByDocument(ctx context.Context, documentID string) ([]*StorageUnitClaim, error)
	Release(ctx context.Context, claimID string) error
}

// LedgerRepository appends immutable audit records
type LedgerRepository interface {
	Append(ctx context.Context, entry *LedgerEntry) error
	AppendAll(ctx context.Context, entries []*LedgerEntry) error
	FindBySKU(ctx context.Context, sku string, limit, offset int) ([]*LedgerEntry, error)
}

// TransactionManager runs a function inside one storage transaction.
// Everything written through repositories within fn commits or aborts
// as a unit; returning an error aborts with zero side effects.
type TransactionManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
	PublishAll(ctx context.Context, events []DomainEvent) error
}
