package application

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/wms-platform/allocation-service/pkg/errors"
	"github.com/wms-platform/allocation-service/pkg/logging"

	"github.com/wms-platform/allocation-service/internal/domain"
)

// errShortage aborts the enclosing transaction when availability fails;
// the shortage report rides alongside the error so nothing is committed
// and the caller still gets the structured breakdown.
var errShortage = errors.New("allocation shortage")

// AllocationService runs the allocation engine: it converts a demand
// document's soft claim into hard commitments, picking tasks and
// zone-scoped jobs, atomically, or fails with a shortage report and
// zero side effects.
type AllocationService struct {
	tx        domain.TransactionManager
	stocks    domain.StockRepository
	documents domain.DemandDocumentRepository
	jobs      domain.PickingJobRepository
	claims    domain.StorageUnitClaimRepository
	ledger    domain.LedgerRepository
	logger    *logging.Logger
}

// NewAllocationService creates a new AllocationService
func NewAllocationService(
	tx domain.TransactionManager,
	stocks domain.StockRepository,
	documents domain.DemandDocumentRepository,
	jobs domain.PickingJobRepository,
	claims domain.StorageUnitClaimRepository,
	ledger domain.LedgerRepository,
	logger *logging.Logger,
) *AllocationService {
	return &AllocationService{
		tx:        tx,
		stocks:    stocks,
		documents: documents,
		jobs:      jobs,
		claims:    claims,
		ledger:    ledger,
		logger:    logger,
	}
}

// Allocate converts one approved document's demand into hard
// commitments. Availability is re-validated inside the transaction
// against freshly loaded stock; a concurrent writer surfaces as
// CONCURRENT_CONFLICT and the caller may retry the whole call.
func (s *AllocationService) Allocate(ctx context.Context, cmd AllocateDocumentCommand) (*AllocationResultDTO, error) {
	var result *AllocationResultDTO

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.documents.FindByDocumentID(ctx, cmd.DocumentID)
		if err != nil {
			return fmt.Errorf("failed to load document: %w", err)
		}
		if doc == nil {
			return apperrors.ErrNotFoundWithID("document", cmd.DocumentID)
		}

		// Idempotency guard: re-invoking on an allocated document is a
		// no-op returning the existing result, never a second allocation.
		if doc.Status == domain.DemandStatusAllocated {
			existing, err := s.jobs.FindByDocumentID(ctx, doc.DocumentID)
			if err != nil {
				return fmt.Errorf("failed to load existing jobs: %w", err)
			}
			taskCount := 0
			for _, job := range existing {
				taskCount += len(job.TasksForDocument(doc.DocumentID))
			}
			result = &AllocationResultDTO{
				Success:      true,
				DocumentID:   doc.DocumentID,
				JobsCreated:  len(existing),
				TasksCreated: taskCount,
			}
			return nil
		}

		if doc.WaveID != "" {
			return apperrors.ErrConflict("document belongs to an open wave and is allocated by wave release").
				WithDetail("waveId", doc.WaveID)
		}
		if err := doc.CanAllocate(); err != nil {
			if errors.Is(err, domain.ErrNotApproved) {
				return apperrors.ErrNotApproved(doc.DocumentID)
			}
			return apperrors.ErrValidation(err.Error())
		}

		stocks, err := s.loadStockMap(ctx, []*domain.DemandDocument{doc})
		if err != nil {
			return err
		}

		report, err := checkAvailability([]*domain.DemandDocument{doc}, stocks)
		if err != nil {
			return apperrors.ErrValidation(err.Error())
		}
		if report.IsShort() {
			result = &AllocationResultDTO{
				Success:      false,
				DocumentID:   doc.DocumentID,
				Reason:       apperrors.CodeShortage,
				MissingItems: ToShortageItemDTOs(report),
			}
			return errShortage
		}

		for _, unit := range storageUnitsToClaim(doc) {
			if err := s.claims.Claim(ctx, domain.NewStorageUnitClaim(unit, doc.DocumentID, "")); err != nil {
				if errors.Is(err, domain.ErrStorageUnitClaimed) {
					return apperrors.ErrConflict("storage unit is already claimed by another document").
						WithDetail("storageUnitId", unit)
				}
				return fmt.Errorf("failed to claim storage unit: %w", err)
			}
		}

		tasks, entries, err := buildPicks(doc, stocks)
		if err != nil {
			return fmt.Errorf("allocation execution failed: %w", err)
		}
		if err := doc.MarkAllocated(len(tasks)); err != nil {
			return apperrors.ErrValidation(err.Error())
		}

		jobList := groupTasksByZone("", tasks)
		for _, job := range jobList {
			if err := s.jobs.Save(ctx, job); err != nil {
				return fmt.Errorf("failed to save picking job: %w", err)
			}
		}
		for _, stock := range stocks {
			if err := s.stocks.Save(ctx, stock); err != nil {
				return err
			}
		}
		if err := s.documents.Save(ctx, doc); err != nil {
			return err
		}
		if err := s.ledger.AppendAll(ctx, entries); err != nil {
			return fmt.Errorf("failed to append ledger entries: %w", err)
		}

		result = &AllocationResultDTO{
			Success:      true,
			DocumentID:   doc.DocumentID,
			JobsCreated:  len(jobList),
			TasksCreated: len(tasks),
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, errShortage) {
			s.logger.Info("Allocation short", "documentId", cmd.DocumentID, "skus", len(result.MissingItems))
			return result, nil
		}
		if errors.Is(err, domain.ErrConcurrentConflict) {
			return nil, apperrors.ErrConcurrentConflict("allocate")
		}
		if apperrors.IsAppError(err) {
			return nil, err
		}
		s.logger.WithError(err).Error("Failed to allocate document", "documentId", cmd.DocumentID)
		return nil, fmt.Errorf("failed to allocate document: %w", err)
	}

	s.logger.Info("Allocated document", "documentId", cmd.DocumentID,
		"jobs", result.JobsCreated, "tasks", result.TasksCreated)
	return result, nil
}

// CancelDocument cancels a document. Pending documents simply
// terminate; allocated documents first release every hard commitment
// their tasks carry and delete the orphaned jobs, in one transaction.
func (s *AllocationService) CancelDocument(ctx context.Context, cmd CancelDocumentCommand) (*DocumentDTO, error) {
	var dto *DocumentDTO

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.documents.FindByDocumentID(ctx, cmd.DocumentID)
		if err != nil {
			return fmt.Errorf("failed to load document: %w", err)
		}
		if doc == nil {
			return apperrors.ErrNotFoundWithID("document", cmd.DocumentID)
		}

		switch doc.Status {
		case domain.DemandStatusPending:
			if err := doc.Cancel(cmd.Reason); err != nil {
				if errors.Is(err, domain.ErrDocumentInWave) {
					return apperrors.ErrConflict("document belongs to an open wave, cancel the wave instead")
				}
				return apperrors.ErrValidation(err.Error())
			}

		case domain.DemandStatusAllocated:
			if doc.WaveID != "" {
				return apperrors.ErrConflict("document belongs to an open wave, cancel the wave instead")
			}
			// An allocated document rolls back to pending, unapproved;
			// a human decides whether it terminates from there.
			if err := s.rollbackDocument(ctx, doc, cmd.Reason); err != nil {
				return err
			}

		default:
			return apperrors.ErrConflict(fmt.Sprintf("document in status %s cannot be cancelled", doc.Status))
		}

		if err := s.documents.Save(ctx, doc); err != nil {
			return err
		}
		dto = ToDocumentDTO(doc)
		return nil
	})

	if err != nil {
		if errors.Is(err, domain.ErrConcurrentConflict) {
			return nil, apperrors.ErrConcurrentConflict("cancel document")
		}
		if apperrors.IsAppError(err) {
			return nil, err
		}
		s.logger.WithError(err).Error("Failed to cancel document", "documentId", cmd.DocumentID)
		return nil, fmt.Errorf("failed to cancel document: %w", err)
	}

	s.logger.Info("Cancelled document", "documentId", cmd.DocumentID, "reason", cmd.Reason)
	return dto, nil
}

// rollbackDocument reverses every commit made for an allocated
// document: release each task's exact quantity, free unit claims,
// delete the orphaned jobs, and revert the document to pending. Runs
// inside the caller's transaction. Picked work blocks the rollback.
func (s *AllocationService) rollbackDocument(ctx context.Context, doc *domain.DemandDocument, reason string) error {
	jobList, err := s.jobs.FindByDocumentID(ctx, doc.DocumentID)
	if err != nil {
		return fmt.Errorf("failed to load picking jobs: %w", err)
	}

	for _, job := range jobList {
		if job.HasPickedWork() {
			return apperrors.ErrConflict("document has picked tasks and cannot be rolled back").
				WithDetail("jobId", job.JobID)
		}
	}

	stocks, err := s.loadStockMap(ctx, []*domain.DemandDocument{doc})
	if err != nil {
		return err
	}

	entries := make([]*domain.LedgerEntry, 0)
	for _, job := range jobList {
		for _, task := range job.TasksForDocument(doc.DocumentID) {
			stock, ok := stocks[task.SKU]
			if !ok {
				return apperrors.ErrOverRelease(fmt.Sprintf("no stock aggregate for sku %s during rollback", task.SKU))
			}
			line := stock.LineFor(task.StorageUnitID)
			if line == nil {
				return apperrors.ErrOverRelease(fmt.Sprintf("no stock line %s/%s during rollback", task.SKU, task.StorageUnitID))
			}
			before := line.HardCommitted
			if err := stock.Release(task.StorageUnitID, task.Quantity); err != nil {
				// OverRelease here is a rollback bug, abort loudly
				return apperrors.ErrOverRelease(err.Error())
			}
			entries = append(entries, domain.NewLedgerEntry(
				domain.LedgerEntryRelease, task.SKU, task.StorageUnitID,
				task.Quantity, before, before-task.Quantity, doc.DocumentID, "allocation-engine"))
		}
	}

	for _, job := range jobList {
		if err := s.jobs.Delete(ctx, job.JobID); err != nil {
			return fmt.Errorf("failed to delete picking job: %w", err)
		}
	}

	activeClaims, err := s.claims.FindActiveByDocument(ctx, doc.DocumentID)
	if err != nil {
		return fmt.Errorf("failed to load claims: %w", err)
	}
	for _, claim := range activeClaims {
		if err := s.claims.Release(ctx, claim.ClaimID); err != nil {
			return fmt.Errorf("failed to release claim: %w", err)
		}
	}

	for _, stock := range stocks {
		if err := s.stocks.Save(ctx, stock); err != nil {
			return err
		}
	}
	if err := s.ledger.AppendAll(ctx, entries); err != nil {
		return fmt.Errorf("failed to append ledger entries: %w", err)
	}

	return doc.RevertAllocation(reason)
}

func (s *AllocationService) loadStockMap(ctx context.Context, docs []*domain.DemandDocument) (map[string]*domain.StockItem, error) {
	skus := collectSKUs(docs)
	items, err := s.stocks.FindBySKUs(ctx, skus)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock: %w", err)
	}
	stocks := make(map[string]*domain.StockItem, len(items))
	for _, item := range items {
		stocks[item.SKU] = item
	}
	return stocks, nil
}
