package application

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/wms-platform/allocation-service/pkg/errors"
	"github.com/wms-platform/allocation-service/pkg/logging"

	"github.com/wms-platform/allocation-service/internal/domain"
)

// StockService handles stock receipt, adjustment, and availability
// queries.
type StockService struct {
	tx        domain.TransactionManager
	stocks    domain.StockRepository
	documents domain.DemandDocumentRepository
	ledger    domain.LedgerRepository
	logger    *logging.Logger
}

// NewStockService creates a new StockService
func NewStockService(
	tx domain.TransactionManager,
	stocks domain.StockRepository,
	documents domain.DemandDocumentRepository,
	ledger domain.LedgerRepository,
	logger *logging.Logger,
) *StockService {
	return &StockService{
		tx:        tx,
		stocks:    stocks,
		documents: documents,
		ledger:    ledger,
		logger:    logger,
	}
}

// Receive adds physical stock to a storage unit, creating the SKU's
// aggregate on first receipt.
func (s *StockService) Receive(ctx context.Context, cmd ReceiveStockCommand) (*StockItemDTO, error) {
	var dto *StockItemDTO

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		stock, err := s.stocks.FindBySKU(ctx, cmd.SKU)
		if err != nil {
			return fmt.Errorf("failed to load stock: %w", err)
		}
		if stock == nil {
			stock = domain.NewStockItem(cmd.SKU, cmd.ProductName, cmd.Barcode)
		}

		if err := stock.Receive(cmd.StorageUnitID, cmd.LocationID, cmd.Zone, cmd.Quantity, cmd.ReferenceID, cmd.Actor); err != nil {
			return apperrors.ErrValidation(err.Error())
		}

		line := stock.LineFor(cmd.StorageUnitID)
		entry := domain.NewLedgerEntry(
			domain.LedgerEntryReceive, cmd.SKU, cmd.StorageUnitID,
			cmd.Quantity, line.HardCommitted, line.HardCommitted, cmd.ReferenceID, cmd.Actor)

		if err := s.stocks.Save(ctx, stock); err != nil {
			return err
		}
		if err := s.ledger.Append(ctx, entry); err != nil {
			return fmt.Errorf("failed to append ledger entry: %w", err)
		}

		dto = ToStockItemDTO(stock)
		return nil
	})

	if err != nil {
		if errors.Is(err, domain.ErrConcurrentConflict) {
			return nil, apperrors.ErrConcurrentConflict("receive stock")
		}
		if apperrors.IsAppError(err) {
			return nil, err
		}
		s.logger.WithError(err).Error("Failed to receive stock", "sku", cmd.SKU)
		return nil, fmt.Errorf("failed to receive stock: %w", err)
	}

	s.logger.Info("Received stock", "sku", cmd.SKU,
		"storageUnitId", cmd.StorageUnitID, "quantity", cmd.Quantity)
	return dto, nil
}

// Adjust corrects the physical quantity of one storage unit. The new
// quantity may not fall below what is already hard-committed.
func (s *StockService) Adjust(ctx context.Context, cmd AdjustStockCommand) (*StockItemDTO, error) {
	var dto *StockItemDTO

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		stock, err := s.stocks.FindBySKU(ctx, cmd.SKU)
		if err != nil {
			return fmt.Errorf("failed to load stock: %w", err)
		}
		if stock == nil {
			return apperrors.ErrNotFoundWithID("stock item", cmd.SKU)
		}

		line := stock.LineFor(cmd.StorageUnitID)
		if line == nil {
			return apperrors.ErrNotFoundWithID("storage unit", cmd.StorageUnitID)
		}
		delta := cmd.NewQuantity - line.Quantity

		if err := stock.Adjust(cmd.StorageUnitID, cmd.NewQuantity, cmd.Reason, cmd.Actor); err != nil {
			if errors.Is(err, domain.ErrInsufficientPhysicalStock) {
				return apperrors.ErrConflict("adjustment would drop below hard-committed quantity").
					WithDetail("storageUnitId", cmd.StorageUnitID)
			}
			return apperrors.ErrValidation(err.Error())
		}

		entry := domain.NewLedgerEntry(
			domain.LedgerEntryAdjust, cmd.SKU, cmd.StorageUnitID,
			delta, line.HardCommitted, line.HardCommitted, cmd.Reason, cmd.Actor)

		if err := s.stocks.Save(ctx, stock); err != nil {
			return err
		}
		if err := s.ledger.Append(ctx, entry); err != nil {
			return fmt.Errorf("failed to append ledger entry: %w", err)
		}

		dto = ToStockItemDTO(stock)
		return nil
	})

	if err != nil {
		if errors.Is(err, domain.ErrConcurrentConflict) {
			return nil, apperrors.ErrConcurrentConflict("adjust stock")
		}
		if apperrors.IsAppError(err) {
			return nil, err
		}
		s.logger.WithError(err).Error("Failed to adjust stock", "sku", cmd.SKU)
		return nil, fmt.Errorf("failed to adjust stock: %w", err)
	}

	s.logger.Info("Adjusted stock", "sku", cmd.SKU,
		"storageUnitId", cmd.StorageUnitID, "newQuantity", cmd.NewQuantity)
	return dto, nil
}

// GetStock retrieves one SKU's stock
func (s *StockService) GetStock(ctx context.Context, sku string) (*StockItemDTO, error) {
	stock, err := s.stocks.FindBySKU(ctx, sku)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get stock", "sku", sku)
		return nil, fmt.Errorf("failed to get stock: %w", err)
	}
	if stock == nil {
		return nil, apperrors.ErrNotFoundWithID("stock item", sku)
	}
	return ToStockItemDTO(stock), nil
}

// ListStock lists stock items
func (s *StockService) ListStock(ctx context.Context, limit, offset int) ([]StockItemDTO, error) {
	items, err := s.stocks.FindAll(ctx, limit, offset)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list stock")
		return nil, fmt.Errorf("failed to list stock: %w", err)
	}
	dtos := make([]StockItemDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, *ToStockItemDTO(item))
	}
	return dtos, nil
}

// GetAvailability answers the advisory available-to-promise question
// for one SKU: physical available minus open soft commitments. The
// number is display-grade; by the time a caller acts on it the world
// may have moved, and the allocation engine re-validates inside its
// own transaction.
func (s *StockService) GetAvailability(ctx context.Context, sku string) (*AvailabilityDTO, error) {
	stock, err := s.stocks.FindBySKU(ctx, sku)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get availability", "sku", sku)
		return nil, fmt.Errorf("failed to get availability: %w", err)
	}
	if stock == nil {
		return nil, apperrors.ErrNotFoundWithID("stock item", sku)
	}

	soft, err := s.documents.SumOpenDemand(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("failed to sum open demand: %w", err)
	}

	physical := stock.PhysicalAvailable()
	return &AvailabilityDTO{
		SKU:                sku,
		PhysicalAvailable:  physical,
		SoftCommitted:      soft,
		AvailableToPromise: physical - soft,
	}, nil
}

// GetLedger lists the audit trail for one SKU
func (s *StockService) GetLedger(ctx context.Context, sku string, limit, offset int) ([]LedgerEntryDTO, error) {
	entries, err := s.ledger.FindBySKU(ctx, sku, limit, offset)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get ledger", "sku", sku)
		return nil, fmt.Errorf("failed to get ledger: %w", err)
	}
	return ToLedgerEntryDTOs(entries), nil
}
