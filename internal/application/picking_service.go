package application

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/wms-platform/allocation-service/pkg/errors"
	"github.com/wms-platform/allocation-service/pkg/logging"

	"github.com/wms-platform/allocation-service/internal/domain"
)

// PickingService handles job assignment, pick confirmation, and
// shipping.
type PickingService struct {
	tx        domain.TransactionManager
	stocks    domain.StockRepository
	documents domain.DemandDocumentRepository
	jobs      domain.PickingJobRepository
	claims    domain.StorageUnitClaimRepository
	ledger    domain.LedgerRepository
	logger    *logging.Logger
}

// NewPickingService creates a new PickingService
func NewPickingService(
	tx domain.TransactionManager,
	stocks domain.StockRepository,
	documents domain.DemandDocumentRepository,
	jobs domain.PickingJobRepository,
	claims domain.StorageUnitClaimRepository,
	ledger domain.LedgerRepository,
	logger *logging.Logger,
) *PickingService {
	return &PickingService{
		tx:        tx,
		stocks:    stocks,
		documents: documents,
		jobs:      jobs,
		claims:    claims,
		ledger:    ledger,
		logger:    logger,
	}
}

// AssignJob hands an open job to a picker
func (s *PickingService) AssignJob(ctx context.Context, cmd AssignJobCommand) (*PickingJobDTO, error) {
	var dto *PickingJobDTO

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		job, err := s.jobs.FindByJobID(ctx, cmd.JobID)
		if err != nil {
			return fmt.Errorf("failed to load job: %w", err)
		}
		if job == nil {
			return apperrors.ErrNotFoundWithID("picking job", cmd.JobID)
		}

		if err := job.Assign(cmd.PickerID); err != nil {
			if errors.Is(err, domain.ErrJobAlreadyAssigned) {
				return apperrors.ErrConflict("job is already assigned").
					WithDetail("pickerId", job.PickerID)
			}
			return apperrors.ErrValidation(err.Error())
		}

		if err := s.jobs.Save(ctx, job); err != nil {
			return err
		}
		dto = ToPickingJobDTO(job)
		return nil
	})

	if err != nil {
		if errors.Is(err, domain.ErrConcurrentConflict) {
			return nil, apperrors.ErrConcurrentConflict("assign job")
		}
		if apperrors.IsAppError(err) {
			return nil, err
		}
		s.logger.WithError(err).Error("Failed to assign job", "jobId", cmd.JobID)
		return nil, fmt.Errorf("failed to assign job: %w", err)
	}

	s.logger.Info("Assigned picking job", "jobId", cmd.JobID, "pickerId", cmd.PickerID)
	return dto, nil
}

// RecordPick marks one task picked. When every task of the document is
// picked, across all the wave's jobs, the document moves to picked.
func (s *PickingService) RecordPick(ctx context.Context, cmd RecordPickCommand) (*PickingJobDTO, error) {
	var dto *PickingJobDTO

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		job, err := s.jobs.FindByJobID(ctx, cmd.JobID)
		if err != nil {
			return fmt.Errorf("failed to load job: %w", err)
		}
		if job == nil {
			return apperrors.ErrNotFoundWithID("picking job", cmd.JobID)
		}

		var documentID string
		for _, task := range job.Tasks {
			if task.TaskID == cmd.TaskID {
				documentID = task.DocumentID
				break
			}
		}

		if err := job.MarkTaskPicked(cmd.TaskID, cmd.Quantity); err != nil {
			switch {
			case errors.Is(err, domain.ErrTaskNotFound):
				return apperrors.ErrNotFoundWithID("picking task", cmd.TaskID)
			case errors.Is(err, domain.ErrTaskAlreadyPicked):
				return apperrors.ErrConflict("task is already picked")
			case errors.Is(err, domain.ErrPickExceedsTask):
				return apperrors.ErrValidation("picked quantity exceeds task quantity")
			case errors.Is(err, domain.ErrShortPick):
				return apperrors.ErrValidation("short pick must be reported as an exception").
					WithDetail("taskId", cmd.TaskID)
			default:
				return apperrors.ErrValidation(err.Error())
			}
		}

		if err := s.jobs.Save(ctx, job); err != nil {
			return err
		}

		if err := s.promoteDocumentIfPicked(ctx, documentID); err != nil {
			return err
		}

		dto = ToPickingJobDTO(job)
		return nil
	})

	if err != nil {
		if errors.Is(err, domain.ErrConcurrentConflict) {
			return nil, apperrors.ErrConcurrentConflict("record pick")
		}
		if apperrors.IsAppError(err) {
			return nil, err
		}
		s.logger.WithError(err).Error("Failed to record pick", "jobId", cmd.JobID, "taskId", cmd.TaskID)
		return nil, fmt.Errorf("failed to record pick: %w", err)
	}

	s.logger.Info("Recorded pick", "jobId", cmd.JobID, "taskId", cmd.TaskID, "quantity", cmd.Quantity)
	return dto, nil
}

// ReportException records a short pick against one task. The task is
// closed with the exception attached; the document stays allocated
// until an operator resolves it.
func (s *PickingService) ReportException(ctx context.Context, cmd ReportExceptionCommand) (*PickingJobDTO, error) {
	var dto *PickingJobDTO

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		job, err := s.jobs.FindByJobID(ctx, cmd.JobID)
		if err != nil {
			return fmt.Errorf("failed to load job: %w", err)
		}
		if job == nil {
			return apperrors.ErrNotFoundWithID("picking job", cmd.JobID)
		}

		if err := job.RecordException(cmd.TaskID, cmd.Actual, cmd.Reason, cmd.ReportedBy); err != nil {
			if errors.Is(err, domain.ErrTaskNotFound) {
				return apperrors.ErrNotFoundWithID("picking task", cmd.TaskID)
			}
			return apperrors.ErrValidation(err.Error())
		}

		if err := s.jobs.Save(ctx, job); err != nil {
			return err
		}
		dto = ToPickingJobDTO(job)
		return nil
	})

	if err != nil {
		if errors.Is(err, domain.ErrConcurrentConflict) {
			return nil, apperrors.ErrConcurrentConflict("report exception")
		}
		if apperrors.IsAppError(err) {
			return nil, err
		}
		s.logger.WithError(err).Error("Failed to report exception", "jobId", cmd.JobID, "taskId", cmd.TaskID)
		return nil, fmt.Errorf("failed to report exception: %w", err)
	}

	s.logger.Warn("Pick exception reported", "jobId", cmd.JobID, "taskId", cmd.TaskID, "reason", cmd.Reason)
	return dto, nil
}

// ShipDocument ships a fully picked document: physical stock and its
// matching hard commitment leave together, line by line, so the
// commitment invariant holds throughout.
func (s *PickingService) ShipDocument(ctx context.Context, cmd ShipDocumentCommand) (*DocumentDTO, error) {
	var dto *DocumentDTO

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.documents.FindByDocumentID(ctx, cmd.DocumentID)
		if err != nil {
			return fmt.Errorf("failed to load document: %w", err)
		}
		if doc == nil {
			return apperrors.ErrNotFoundWithID("document", cmd.DocumentID)
		}
		if doc.Status != domain.DemandStatusPicked {
			return apperrors.ErrConflict(fmt.Sprintf("document in status %s cannot be shipped", doc.Status))
		}

		jobList, err := s.jobs.FindByDocumentID(ctx, doc.DocumentID)
		if err != nil {
			return fmt.Errorf("failed to load picking jobs: %w", err)
		}

		entries := make([]*domain.LedgerEntry, 0)
		stocks := make(map[string]*domain.StockItem)
		for _, job := range jobList {
			for _, task := range job.TasksForDocument(doc.DocumentID) {
				if task.Status != domain.TaskStatusPicked {
					continue
				}
				stock, ok := stocks[task.SKU]
				if !ok {
					stock, err = s.stocks.FindBySKU(ctx, task.SKU)
					if err != nil {
						return fmt.Errorf("failed to load stock: %w", err)
					}
					if stock == nil {
						return apperrors.ErrOverRelease(fmt.Sprintf("no stock aggregate for sku %s during ship", task.SKU))
					}
					stocks[task.SKU] = stock
				}
				line := stock.LineFor(task.StorageUnitID)
				if line == nil {
					return apperrors.ErrOverRelease(fmt.Sprintf("no stock line %s/%s during ship", task.SKU, task.StorageUnitID))
				}
				before := line.HardCommitted
				if err := stock.Deduct(task.StorageUnitID, task.PickedQuantity, doc.DocumentID); err != nil {
					return apperrors.ErrOverRelease(err.Error())
				}
				entries = append(entries, domain.NewLedgerEntry(
					domain.LedgerEntryDeduct, task.SKU, task.StorageUnitID,
					task.PickedQuantity, before, before-task.PickedQuantity, doc.DocumentID, "allocation-engine"))
			}
		}

		if err := doc.MarkShipped(); err != nil {
			return apperrors.ErrValidation(err.Error())
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
		if err := s.documents.Save(ctx, doc); err != nil {
			return err
		}
		if err := s.ledger.AppendAll(ctx, entries); err != nil {
			return fmt.Errorf("failed to append ledger entries: %w", err)
		}

		dto = ToDocumentDTO(doc)
		return nil
	})

	if err != nil {
		if errors.Is(err, domain.ErrConcurrentConflict) {
			return nil, apperrors.ErrConcurrentConflict("ship document")
		}
		if apperrors.IsAppError(err) {
			return nil, err
		}
		s.logger.WithError(err).Error("Failed to ship document", "documentId", cmd.DocumentID)
		return nil, fmt.Errorf("failed to ship document: %w", err)
	}

	s.logger.Info("Shipped document", "documentId", cmd.DocumentID)
	return dto, nil
}

// GetJob retrieves a picking job by ID
func (s *PickingService) GetJob(ctx context.Context, jobID string) (*PickingJobDTO, error) {
	job, err := s.jobs.FindByJobID(ctx, jobID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get job", "jobId", jobID)
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	if job == nil {
		return nil, apperrors.ErrNotFoundWithID("picking job", jobID)
	}
	return ToPickingJobDTO(job), nil
}

// ListJobsByZone lists jobs in one zone and status
func (s *PickingService) ListJobsByZone(ctx context.Context, zone string, status string) ([]PickingJobDTO, error) {
	jobList, err := s.jobs.FindByZone(ctx, zone, domain.JobStatus(status))
	if err != nil {
		s.logger.WithError(err).Error("Failed to list jobs", "zone", zone)
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return ToPickingJobDTOs(jobList), nil
}

// ListJobsByPicker lists jobs assigned to one picker
func (s *PickingService) ListJobsByPicker(ctx context.Context, pickerID string) ([]PickingJobDTO, error) {
	jobList, err := s.jobs.FindByPickerID(ctx, pickerID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list jobs", "pickerId", pickerID)
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return ToPickingJobDTOs(jobList), nil
}

// promoteDocumentIfPicked moves a document to picked once every one of
// its tasks, across every job holding them, is picked.
func (s *PickingService) promoteDocumentIfPicked(ctx context.Context, documentID string) error {
	if documentID == "" {
		return nil
	}
	jobList, err := s.jobs.FindByDocumentID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to load picking jobs: %w", err)
	}
	for _, job := range jobList {
		for _, task := range job.TasksForDocument(documentID) {
			if task.Status != domain.TaskStatusPicked {
				return nil
			}
		}
	}

	doc, err := s.documents.FindByDocumentID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}
	if doc == nil || doc.Status != domain.DemandStatusAllocated {
		return nil
	}
	if err := doc.MarkPicked(); err != nil {
		return apperrors.ErrValidation(err.Error())
	}
	if err := s.documents.Save(ctx, doc); err != nil {
		return err
	}
	s.logger.Info("Document fully picked", "documentId", documentID)
	return nil
}
