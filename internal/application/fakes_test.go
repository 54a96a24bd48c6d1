package application

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wms-platform/allocation-service/internal/domain"
	"github.com/wms-platform/allocation-service/pkg/logging"
)

// In-memory repository fakes. Writes apply immediately; the fake
// transaction manager just runs the function, which is enough because
// the services are written to perform no writes before validation
// passes.

type fakeTxManager struct{}

func (f *fakeTxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeStockRepo struct {
	items map[string]*domain.StockItem
}

func newFakeStockRepo() *fakeStockRepo {
	return &fakeStockRepo{items: make(map[string]*domain.StockItem)}
}

func (r *fakeStockRepo) Save(ctx context.Context, item *domain.StockItem) error {
	r.items[item.SKU] = item
	return nil
}

func (r *fakeStockRepo) FindBySKU(ctx context.Context, sku string) (*domain.StockItem, error) {
	return r.items[sku], nil
}

func (r *fakeStockRepo) FindBySKUs(ctx context.Context, skus []string) ([]*domain.StockItem, error) {
	out := make([]*domain.StockItem, 0, len(skus))
	for _, sku := range skus {
		if item, ok := r.items[sku]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *fakeStockRepo) FindByStorageUnit(ctx context.Context, storageUnitID string) ([]*domain.StockItem, error) {
	out := make([]*domain.StockItem, 0)
	for _, item := range r.items {
		if item.LineFor(storageUnitID) != nil {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *fakeStockRepo) FindAll(ctx context.Context, limit, offset int) ([]*domain.StockItem, error) {
	out := make([]*domain.StockItem, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	return out, nil
}

type fakeDocumentRepo struct {
	docs map[string]*domain.DemandDocument
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{docs: make(map[string]*domain.DemandDocument)}
}

func (r *fakeDocumentRepo) Save(ctx context.Context, doc *domain.DemandDocument) error {
	r.docs[doc.DocumentID] = doc
	return nil
}

func (r *fakeDocumentRepo) FindByDocumentID(ctx context.Context, documentID string) (*domain.DemandDocument, error) {
	return r.docs[documentID], nil
}

func (r *fakeDocumentRepo) FindByDocumentIDs(ctx context.Context, documentIDs []string) ([]*domain.DemandDocument, error) {
	out := make([]*domain.DemandDocument, 0, len(documentIDs))
	for _, id := range documentIDs {
		if doc, ok := r.docs[id]; ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (r *fakeDocumentRepo) FindByStatus(ctx context.Context, status domain.DemandStatus, limit, offset int) ([]*domain.DemandDocument, error) {
	out := make([]*domain.DemandDocument, 0)
	for _, doc := range r.docs {
		if doc.Status == status {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (r *fakeDocumentRepo) FindAllocatable(ctx context.Context) ([]*domain.DemandDocument, error) {
	out := make([]*domain.DemandDocument, 0)
	for _, doc := range r.docs {
		if doc.Status == domain.DemandStatusPending && doc.Approved && doc.WaveID == "" {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (r *fakeDocumentRepo) SumOpenDemand(ctx context.Context, sku string) (int, error) {
	total := 0
	for _, doc := range r.docs {
		total += doc.OpenSoftCommitment(sku)
	}
	return total, nil
}

type fakeWaveRepo struct {
	waves map[string]*domain.Wave
}

func newFakeWaveRepo() *fakeWaveRepo {
	return &fakeWaveRepo{waves: make(map[string]*domain.Wave)}
}

func (r *fakeWaveRepo) Save(ctx context.Context, wave *domain.Wave) error {
	r.waves[wave.WaveID] = wave
	return nil
}

func (r *fakeWaveRepo) FindByWaveID(ctx context.Context, waveID string) (*domain.Wave, error) {
	return r.waves[waveID], nil
}

func (r *fakeWaveRepo) FindByStatus(ctx context.Context, status domain.WaveStatus, limit, offset int) ([]*domain.Wave, error) {
	out := make([]*domain.Wave, 0)
	for _, wave := range r.waves {
		if wave.Status == status {
			out = append(out, wave)
		}
	}
	return out, nil
}

type fakeJobRepo struct {
	jobs map[string]*domain.PickingJob

	// saveErr, when set, is returned by Save instead of storing. Lets
	// tests simulate an optimistic-concurrency loss on the write path.
	saveErr error
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[string]*domain.PickingJob)}
}

func (r *fakeJobRepo) Save(ctx context.Context, job *domain.PickingJob) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.jobs[job.JobID] = job
	return nil
}

func (r *fakeJobRepo) FindByJobID(ctx context.Context, jobID string) (*domain.PickingJob, error) {
	return r.jobs[jobID], nil
}

func (r *fakeJobRepo) FindByWaveID(ctx context.Context, waveID string) ([]*domain.PickingJob, error) {
	out := make([]*domain.PickingJob, 0)
	for _, job := range r.jobs {
		if job.WaveID == waveID {
			out = append(out, job)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) FindByDocumentID(ctx context.Context, documentID string) ([]*domain.PickingJob, error) {
	out := make([]*domain.PickingJob, 0)
	for _, job := range r.jobs {
		if len(job.TasksForDocument(documentID)) > 0 {
			out = append(out, job)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) FindByZone(ctx context.Context, zone string, status domain.JobStatus) ([]*domain.PickingJob, error) {
	out := make([]*domain.PickingJob, 0)
	for _, job := range r.jobs {
		if job.Zone == zone && job.Status == status {
			out = append(out, job)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) FindByPickerID(ctx context.Context, pickerID string) ([]*domain.PickingJob, error) {
	out := make([]*domain.PickingJob, 0)
	for _, job := range r.jobs {
		if job.PickerID == pickerID {
			out = append(out, job)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) Delete(ctx context.Context, jobID string) error {
	delete(r.jobs, jobID)
	return nil
}

type fakeClaimRepo struct {
	claims map[string]*domain.StorageUnitClaim // by claim ID
}

func newFakeClaimRepo() *fakeClaimRepo {
	return &fakeClaimRepo{claims: make(map[string]*domain.StorageUnitClaim)}
}

func (r *fakeClaimRepo) Claim(ctx context.Context, claim *domain.StorageUnitClaim) error {
	for _, existing := range r.claims {
		if existing.StorageUnitID == claim.StorageUnitID && existing.Status == domain.ClaimStatusActive {
			return domain.ErrStorageUnitClaimed
		}
	}
	r.claims[claim.ClaimID] = claim
	return nil
}

func (r *fakeClaimRepo) FindActiveByStorageUnit(ctx context.Context, storageUnitID string) (*domain.StorageUnitClaim, error) {
	for _, claim := range r.claims {
		if claim.StorageUnitID == storageUnitID && claim.Status == domain.ClaimStatusActive {
			return claim, nil
		}
	}
	return nil, nil
}

func (r *fakeClaimRepo) FindActiveByDocument(ctx context.Context, documentID string) ([]*domain.StorageUnitClaim, error) {
	out := make([]*domain.StorageUnitClaim, 0)
	for _, claim := range r.claims {
		if claim.DocumentID == documentID && claim.Status == domain.ClaimStatusActive {
			out = append(out, claim)
		}
	}
	return out, nil
}

func (r *fakeClaimRepo) Release(ctx context.Context, claimID string) error {
	claim, ok := r.claims[claimID]
	if !ok {
		return domain.ErrClaimNotFound
	}
	claim.Release()
	return nil
}

type fakeLedgerRepo struct {
	entries []*domain.LedgerEntry
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{entries: make([]*domain.LedgerEntry, 0)}
}

func (r *fakeLedgerRepo) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeLedgerRepo) AppendAll(ctx context.Context, entries []*domain.LedgerEntry) error {
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *fakeLedgerRepo) FindBySKU(ctx context.Context, sku string, limit, offset int) ([]*domain.LedgerEntry, error) {
	out := make([]*domain.LedgerEntry, 0)
	for _, entry := range r.entries {
		if entry.SKU == sku {
			out = append(out, entry)
		}
	}
	return out, nil
}

// env bundles every fake a service needs
type env struct {
	tx        *fakeTxManager
	stocks    *fakeStockRepo
	documents *fakeDocumentRepo
	waves     *fakeWaveRepo
	jobs      *fakeJobRepo
	claims    *fakeClaimRepo
	ledger    *fakeLedgerRepo
	logger    *logging.Logger
}

func newEnv() *env {
	return &env{
		tx:        &fakeTxManager{},
		stocks:    newFakeStockRepo(),
		documents: newFakeDocumentRepo(),
		waves:     newFakeWaveRepo(),
		jobs:      newFakeJobRepo(),
		claims:    newFakeClaimRepo(),
		ledger:    newFakeLedgerRepo(),
		logger: logging.New(&logging.Config{
			Level:       logging.LevelError,
			ServiceName: "test",
			Output:      io.Discard,
		}),
	}
}

func (e *env) allocationService() *AllocationService {
	return NewAllocationService(e.tx, e.stocks, e.documents, e.jobs, e.claims, e.ledger, e.logger)
}

func (e *env) waveService() *WaveService {
	return NewWaveService(e.tx, e.stocks, e.documents, e.waves, e.jobs, e.claims, e.ledger, e.logger)
}

func (e *env) stockService() *StockService {
	return NewStockService(e.tx, e.stocks, e.documents, e.ledger, e.logger)
}

func (e *env) pickingService() *PickingService {
	return NewPickingService(e.tx, e.stocks, e.documents, e.jobs, e.claims, e.ledger, e.logger)
}

func (e *env) documentService() *DocumentService {
	return NewDocumentService(e.documents, e.logger)
}

// seedStock registers a stock aggregate with the given storage unit
// lines, received in argument order so FIFO is deterministic.
func (e *env) seedStock(t *testing.T, sku string, lines ...seedLine) *domain.StockItem {
	t.Helper()
	item := domain.NewStockItem(sku, "Product "+sku, "")
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i, l := range lines {
		require.NoError(t, item.Receive(l.unit, "LOC-"+l.unit, l.zone, l.qty, "seed", "tester"))
		item.Lines[len(item.Lines)-1].ReceivedAt = base.Add(time.Duration(i) * time.Hour)
	}
	item.ClearDomainEvents()
	e.stocks.items[sku] = item
	return item
}

type seedLine struct {
	unit string
	zone string
	qty  int
}

// seedDocument registers an approved item-kind document with one line
// per (sku, qty) pair.
func (e *env) seedDocument(t *testing.T, documentID string, lines ...domain.DemandLine) *domain.DemandDocument {
	t.Helper()
	doc, err := domain.NewDemandDocument(domain.DemandKindItem, domain.DemandSourceOrder, lines, "tester")
	require.NoError(t, err)
	doc.DocumentID = documentID
	require.NoError(t, doc.Approve("tester"))
	doc.ClearDomainEvents()
	e.documents.docs[documentID] = doc
	return doc
}

// seedUnitDocument registers an approved storage-unit-kind document
func (e *env) seedUnitDocument(t *testing.T, documentID string, lines ...domain.DemandLine) *domain.DemandDocument {
	t.Helper()
	doc, err := domain.NewDemandDocument(domain.DemandKindStorageUnit, domain.DemandSourceTransfer, lines, "tester")
	require.NoError(t, err)
	doc.DocumentID = documentID
	require.NoError(t, doc.Approve("tester"))
	doc.ClearDomainEvents()
	e.documents.docs[documentID] = doc
	return doc
}

func itemLine(sku string, qty int) domain.DemandLine {
	return domain.DemandLine{SKU: sku, ProductName: "Product " + sku, RequestedQuantity: qty}
}

func unitLine(sku, unit string, qty int) domain.DemandLine {
	return domain.DemandLine{SKU: sku, ProductName: "Product " + sku, RequestedQuantity: qty, StorageUnitID: unit}
}
