package application

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/wms-platform/allocation-service/pkg/errors"
	"github.com/wms-platform/allocation-service/pkg/logging"

	"github.com/wms-platform/allocation-service/internal/domain"
)

// WaveService handles wave assembly, release, and rollback. Release
// allocates every member document against one shared stock snapshot in
// one transaction: all succeed or the wave fails whole with an
// aggregated shortage report, so early members never starve later ones
// of shared SKUs.
type WaveService struct {
	tx        domain.TransactionManager
	stocks    domain.StockRepository
	documents domain.DemandDocumentRepository
	waves     domain.WaveRepository
	jobs      domain.PickingJobRepository
	claims    domain.StorageUnitClaimRepository
	ledger    domain.LedgerRepository
	logger    *logging.Logger
}

// NewWaveService creates a new WaveService
func NewWaveService(
	tx domain.TransactionManager,
	stocks domain.StockRepository,
	documents domain.DemandDocumentRepository,
	waves domain.WaveRepository,
	jobs domain.PickingJobRepository,
	claims domain.StorageUnitClaimRepository,
	ledger domain.LedgerRepository,
	logger *logging.Logger,
) *WaveService {
	return &WaveService{
		tx:        tx,
		stocks:    stocks,
		documents: documents,
		waves:     waves,
		jobs:      jobs,
		claims:    claims,
		ledger:    ledger,
		logger:    logger,
	}
}

// CreateWave assembles a planning wave from approved, unwaved
// documents. Membership is exclusive: each member is stamped with the
// wave ID and excluded from manual allocation until the wave closes.
func (s *WaveService) CreateWave(ctx context.Context, cmd CreateWaveCommand) (*WaveDTO, error) {
	var dto *WaveDTO

	if len(cmd.DocumentIDs) == 0 {
		return nil, apperrors.ErrValidation("a wave needs at least one member document")
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		docs, err := s.documents.FindByDocumentIDs(ctx, cmd.DocumentIDs)
		if err != nil {
			return fmt.Errorf("failed to load documents: %w", err)
		}
		if len(docs) != len(cmd.DocumentIDs) {
			return apperrors.ErrNotFound("one or more documents")
		}

		wave := domain.NewWave(cmd.CreatedBy)
		for _, doc := range docs {
			if err := doc.AssignToWave(wave.WaveID); err != nil {
				switch {
				case errors.Is(err, domain.ErrDocumentInWave):
					return apperrors.ErrConflict("document already belongs to a wave").
						WithDetail("documentId", doc.DocumentID)
				case errors.Is(err, domain.ErrNotApproved):
					return apperrors.ErrNotApproved(doc.DocumentID)
				default:
					return apperrors.ErrValidation(err.Error())
				}
			}
			if err := wave.AddDocument(doc); err != nil {
				return apperrors.ErrValidation(err.Error())
			}
		}

		for _, doc := range docs {
			if err := s.documents.Save(ctx, doc); err != nil {
				return err
			}
		}
		if err := s.waves.Save(ctx, wave); err != nil {
			return err
		}

		dto = ToWaveDTO(wave)
		return nil
	})

	if err != nil {
		if errors.Is(err, domain.ErrConcurrentConflict) {
			return nil, apperrors.ErrConcurrentConflict("create wave")
		}
		if apperrors.IsAppError(err) {
			return nil, err
		}
		s.logger.WithError(err).Error("Failed to create wave")
		return nil, fmt.Errorf("failed to create wave: %w", err)
	}

	s.logger.Info("Created wave", "waveId", dto.WaveID, "orders", dto.OrderCount)
	return dto, nil
}

// ReleaseWave allocates every member document in one transaction. On
// any shortage the wave stays in planning with zero commitments and
// zero jobs; the report aggregates demand across all members.
func (s *WaveService) ReleaseWave(ctx context.Context, cmd ReleaseWaveCommand) (*AllocationResultDTO, error) {
	var result *AllocationResultDTO

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		wave, err := s.waves.FindByWaveID(ctx, cmd.WaveID)
		if err != nil {
			return fmt.Errorf("failed to load wave: %w", err)
		}
		if wave == nil {
			return apperrors.ErrNotFoundWithID("wave", cmd.WaveID)
		}
		if wave.Status != domain.WaveStatusPlanning {
			return apperrors.ErrConflict(fmt.Sprintf("wave in status %s cannot be released", wave.Status))
		}

		docs, err := s.documents.FindByDocumentIDs(ctx, wave.DocumentIDs())
		if err != nil {
			return fmt.Errorf("failed to load member documents: %w", err)
		}
		for _, doc := range docs {
			if err := doc.CanAllocate(); err != nil {
				if errors.Is(err, domain.ErrNotApproved) {
					return apperrors.ErrNotApproved(doc.DocumentID)
				}
				return apperrors.ErrConflict(fmt.Sprintf("member document %s: %s", doc.DocumentID, err))
			}
		}

		stocks, err := s.loadStockMap(ctx, docs)
		if err != nil {
			return err
		}

		// Shared snapshot: all members evaluated before any commit
		report, err := checkAvailability(docs, stocks)
		if err != nil {
			return apperrors.ErrValidation(err.Error())
		}
		if report.IsShort() {
			result = &AllocationResultDTO{
				Success:      false,
				WaveID:       wave.WaveID,
				Reason:       apperrors.CodeShortage,
				MissingItems: ToShortageItemDTOs(report),
			}
			return errShortage
		}

		allTasks := make([]domain.PickingTask, 0)
		allEntries := make([]*domain.LedgerEntry, 0)
		for _, doc := range docs {
			for _, unit := range storageUnitsToClaim(doc) {
				if err := s.claims.Claim(ctx, domain.NewStorageUnitClaim(unit, doc.DocumentID, wave.WaveID)); err != nil {
					if errors.Is(err, domain.ErrStorageUnitClaimed) {
						return apperrors.ErrConflict("storage unit is already claimed").
							WithDetail("storageUnitId", unit)
					}
					return fmt.Errorf("failed to claim storage unit: %w", err)
				}
			}

			tasks, entries, err := buildPicks(doc, stocks)
			if err != nil {
				return fmt.Errorf("wave allocation execution failed: %w", err)
			}
			if err := doc.MarkAllocated(len(tasks)); err != nil {
				return apperrors.ErrValidation(err.Error())
			}
			allTasks = append(allTasks, tasks...)
			allEntries = append(allEntries, entries...)
		}

		// One job per zone, tasks combined across member documents
		jobList := groupTasksByZone(wave.WaveID, allTasks)
		for _, job := range jobList {
			if err := s.jobs.Save(ctx, job); err != nil {
				return fmt.Errorf("failed to save picking job: %w", err)
			}
		}

		if err := wave.Release(len(jobList)); err != nil {
			return apperrors.ErrValidation(err.Error())
		}

		for _, stock := range stocks {
			if err := s.stocks.Save(ctx, stock); err != nil {
				return err
			}
		}
		for _, doc := range docs {
			if err := s.documents.Save(ctx, doc); err != nil {
				return err
			}
		}
		if err := s.waves.Save(ctx, wave); err != nil {
			return err
		}
		if err := s.ledger.AppendAll(ctx, allEntries); err != nil {
			return fmt.Errorf("failed to append ledger entries: %w", err)
		}

		result = &AllocationResultDTO{
			Success:      true,
			WaveID:       wave.WaveID,
			JobsCreated:  len(jobList),
			TasksCreated: len(allTasks),
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, errShortage) {
			s.logger.Info("Wave release short", "waveId", cmd.WaveID, "skus", len(result.MissingItems))
			return result, nil
		}
		if errors.Is(err, domain.ErrConcurrentConflict) {
			return nil, apperrors.ErrConcurrentConflict("release wave")
		}
		if apperrors.IsAppError(err) {
			return nil, err
		}
		s.logger.WithError(err).Error("Failed to release wave", "waveId", cmd.WaveID)
		return nil, fmt.Errorf("failed to release wave: %w", err)
	}

	s.logger.Info("Released wave", "waveId", cmd.WaveID,
		"jobs", result.JobsCreated, "tasks", result.TasksCreated)
	return result, nil
}

// CancelWave cancels a wave. Planning waves just unassign their
// members; released waves roll back every member's commitments and
// delete the wave's jobs, rejected outright if any task was already
// picked.
func (s *WaveService) CancelWave(ctx context.Context, cmd CancelWaveCommand) (*WaveDTO, error) {
	var dto *WaveDTO

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		wave, err := s.waves.FindByWaveID(ctx, cmd.WaveID)
		if err != nil {
			return fmt.Errorf("failed to load wave: %w", err)
		}
		if wave == nil {
			return apperrors.ErrNotFoundWithID("wave", cmd.WaveID)
		}

		docs, err := s.documents.FindByDocumentIDs(ctx, wave.DocumentIDs())
		if err != nil {
			return fmt.Errorf("failed to load member documents: %w", err)
		}

		switch wave.Status {
		case domain.WaveStatusPlanning:
			// Nothing allocated yet, membership is the only thing to undo

		case domain.WaveStatusReleased:
			jobList, err := s.jobs.FindByWaveID(ctx, wave.WaveID)
			if err != nil {
				return fmt.Errorf("failed to load wave jobs: %w", err)
			}
			for _, job := range jobList {
				if job.HasPickedWork() {
					return apperrors.ErrConflict("wave has picked tasks and cannot be rolled back").
						WithDetail("jobId", job.JobID)
				}
			}

			stocks, err := s.loadStockMap(ctx, docs)
			if err != nil {
				return err
			}

			entries := make([]*domain.LedgerEntry, 0)
			for _, job := range jobList {
				for _, task := range job.Tasks {
					stock, ok := stocks[task.SKU]
					if !ok {
						return apperrors.ErrOverRelease(fmt.Sprintf("no stock aggregate for sku %s during wave rollback", task.SKU))
					}
					line := stock.LineFor(task.StorageUnitID)
					if line == nil {
						return apperrors.ErrOverRelease(fmt.Sprintf("no stock line %s/%s during wave rollback", task.SKU, task.StorageUnitID))
					}
					before := line.HardCommitted
					if err := stock.Release(task.StorageUnitID, task.Quantity); err != nil {
						return apperrors.ErrOverRelease(err.Error())
					}
					entries = append(entries, domain.NewLedgerEntry(
						domain.LedgerEntryRelease, task.SKU, task.StorageUnitID,
						task.Quantity, before, before-task.Quantity, wave.WaveID, "allocation-engine"))
				}
			}

			for _, job := range jobList {
				if err := s.jobs.Delete(ctx, job.JobID); err != nil {
					return fmt.Errorf("failed to delete picking job: %w", err)
				}
			}
			for _, doc := range docs {
				if doc.Status != domain.DemandStatusAllocated {
					continue
				}
				if err := doc.RevertAllocation(cmd.Reason); err != nil {
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
			}

			for _, stock := range stocks {
				if err := s.stocks.Save(ctx, stock); err != nil {
					return err
				}
			}
			if err := s.ledger.AppendAll(ctx, entries); err != nil {
				return fmt.Errorf("failed to append ledger entries: %w", err)
			}

		default:
			return apperrors.ErrConflict(fmt.Sprintf("wave in status %s cannot be cancelled", wave.Status))
		}

		for _, doc := range docs {
			if err := doc.UnassignFromWave(wave.WaveID); err != nil {
				return apperrors.ErrValidation(err.Error())
			}
			if err := s.documents.Save(ctx, doc); err != nil {
				return err
			}
		}
		if err := wave.Cancel(cmd.Reason); err != nil {
			return apperrors.ErrValidation(err.Error())
		}
		if err := s.waves.Save(ctx, wave); err != nil {
			return err
		}

		dto = ToWaveDTO(wave)
		return nil
	})

	if err != nil {
		if errors.Is(err, domain.ErrConcurrentConflict) {
			return nil, apperrors.ErrConcurrentConflict("cancel wave")
		}
		if apperrors.IsAppError(err) {
			return nil, err
		}
		s.logger.WithError(err).Error("Failed to cancel wave", "waveId", cmd.WaveID)
		return nil, fmt.Errorf("failed to cancel wave: %w", err)
	}

	s.logger.Info("Cancelled wave", "waveId", cmd.WaveID, "reason", cmd.Reason)
	return dto, nil
}

// CompleteWave closes a released wave once every member document has
// been picked.
func (s *WaveService) CompleteWave(ctx context.Context, cmd CompleteWaveCommand) (*WaveDTO, error) {
	var dto *WaveDTO

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		wave, err := s.waves.FindByWaveID(ctx, cmd.WaveID)
		if err != nil {
			return fmt.Errorf("failed to load wave: %w", err)
		}
		if wave == nil {
			return apperrors.ErrNotFoundWithID("wave", cmd.WaveID)
		}

		docs, err := s.documents.FindByDocumentIDs(ctx, wave.DocumentIDs())
		if err != nil {
			return fmt.Errorf("failed to load member documents: %w", err)
		}
		for _, doc := range docs {
			if doc.Status != domain.DemandStatusPicked && doc.Status != domain.DemandStatusShipped {
				return apperrors.ErrConflict("wave has unpicked member documents").
					WithDetail("documentId", doc.DocumentID)
			}
		}

		if err := wave.Complete(); err != nil {
			return apperrors.ErrValidation(err.Error())
		}
		for _, doc := range docs {
			if err := doc.UnassignFromWave(wave.WaveID); err != nil {
				return apperrors.ErrValidation(err.Error())
			}
			if err := s.documents.Save(ctx, doc); err != nil {
				return err
			}
		}
		if err := s.waves.Save(ctx, wave); err != nil {
			return err
		}

		dto = ToWaveDTO(wave)
		return nil
	})

	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		s.logger.WithError(err).Error("Failed to complete wave", "waveId", cmd.WaveID)
		return nil, fmt.Errorf("failed to complete wave: %w", err)
	}

	s.logger.Info("Completed wave", "waveId", cmd.WaveID)
	return dto, nil
}

// GetWave retrieves a wave by ID
func (s *WaveService) GetWave(ctx context.Context, waveID string) (*WaveDTO, error) {
	wave, err := s.waves.FindByWaveID(ctx, waveID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get wave", "waveId", waveID)
		return nil, fmt.Errorf("failed to get wave: %w", err)
	}
	if wave == nil {
		return nil, apperrors.ErrNotFoundWithID("wave", waveID)
	}
	return ToWaveDTO(wave), nil
}

// ListWavesByStatus lists waves in one status
func (s *WaveService) ListWavesByStatus(ctx context.Context, status string, limit, offset int) ([]WaveDTO, error) {
	waves, err := s.waves.FindByStatus(ctx, domain.WaveStatus(status), limit, offset)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list waves", "status", status)
		return nil, fmt.Errorf("failed to list waves: %w", err)
	}
	return ToWaveDTOs(waves), nil
}

// SuggestClusters proposes wave clusters from allocatable documents by
// product-set similarity. Advisory only: nothing is committed until a
// cluster is turned into a wave explicitly.
func (s *WaveService) SuggestClusters(ctx context.Context, cmd SuggestClustersCommand) ([]ClusterDTO, error) {
	docs, err := s.documents.FindAllocatable(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load allocatable documents")
		return nil, fmt.Errorf("failed to load allocatable documents: %w", err)
	}

	minSimilarity := cmd.MinSimilarity
	if minSimilarity <= 0 {
		minSimilarity = defaultMinSimilarity
	}
	maxOrders := cmd.MaxOrdersPerCluster
	if maxOrders <= 0 {
		maxOrders = defaultMaxOrdersPerCluster
	}

	clusters := suggestClusters(docs, minSimilarity, maxOrders)
	s.logger.Info("Suggested wave clusters", "documents", len(docs), "clusters", len(clusters))
	return clusters, nil
}

func (s *WaveService) loadStockMap(ctx context.Context, docs []*domain.DemandDocument) (map[string]*domain.StockItem, error) {
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
