package application

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/wms-platform/allocation-service/pkg/errors"
	"github.com/wms-platform/allocation-service/pkg/logging"

	"github.com/wms-platform/allocation-service/internal/domain"
)

// DocumentService handles demand document creation and approval. A
// document carries soft commitment from the moment it exists; nothing
// is reserved until the allocation engine runs.
type DocumentService struct {
	documents domain.DemandDocumentRepository
	logger    *logging.Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(documents domain.DemandDocumentRepository, logger *logging.Logger) *DocumentService {
	return &DocumentService{documents: documents, logger: logger}
}

// CreateDocument creates a new demand document in pending status
func (s *DocumentService) CreateDocument(ctx context.Context, cmd CreateDocumentCommand) (*DocumentDTO, error) {
	kind := domain.DemandKind(cmd.Kind)
	if !kind.IsValid() {
		return nil, apperrors.ErrValidation(fmt.Sprintf("unknown demand kind: %s", cmd.Kind))
	}

	lines := make([]domain.DemandLine, 0, len(cmd.Lines))
	for _, l := range cmd.Lines {
		lines = append(lines, domain.DemandLine{
			SKU:               l.SKU,
			ProductName:       l.ProductName,
			RequestedQuantity: l.RequestedQuantity,
			StorageUnitID:     l.StorageUnitID,
		})
	}

	doc, err := domain.NewDemandDocument(kind, domain.DemandSource(cmd.Source), lines, cmd.CreatedBy)
	if err != nil {
		return nil, apperrors.ErrValidation(err.Error())
	}
	doc.Priority = cmd.Priority
	doc.Destination = cmd.Destination

	if err := s.documents.Save(ctx, doc); err != nil {
		s.logger.WithError(err).Error("Failed to create document")
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	s.logger.Info("Created demand document", "documentId", doc.DocumentID,
		"kind", doc.Kind, "lines", len(doc.Lines))
	return ToDocumentDTO(doc), nil
}

// ApproveDocument marks a document ready for allocation
func (s *DocumentService) ApproveDocument(ctx context.Context, cmd ApproveDocumentCommand) (*DocumentDTO, error) {
	doc, err := s.documents.FindByDocumentID(ctx, cmd.DocumentID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load document", "documentId", cmd.DocumentID)
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	if doc == nil {
		return nil, apperrors.ErrNotFoundWithID("document", cmd.DocumentID)
	}

	if err := doc.Approve(cmd.Actor); err != nil {
		if errors.Is(err, domain.ErrAlreadyApproved) {
			// Approving twice is harmless
			return ToDocumentDTO(doc), nil
		}
		return nil, apperrors.ErrConflict(err.Error())
	}

	if err := s.documents.Save(ctx, doc); err != nil {
		if errors.Is(err, domain.ErrConcurrentConflict) {
			return nil, apperrors.ErrConcurrentConflict("approve document")
		}
		s.logger.WithError(err).Error("Failed to approve document", "documentId", cmd.DocumentID)
		return nil, fmt.Errorf("failed to approve document: %w", err)
	}

	s.logger.Info("Approved document", "documentId", cmd.DocumentID, "actor", cmd.Actor)
	return ToDocumentDTO(doc), nil
}

// GetDocument retrieves a document by ID
func (s *DocumentService) GetDocument(ctx context.Context, documentID string) (*DocumentDTO, error) {
	doc, err := s.documents.FindByDocumentID(ctx, documentID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get document", "documentId", documentID)
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	if doc == nil {
		return nil, apperrors.ErrNotFoundWithID("document", documentID)
	}
	return ToDocumentDTO(doc), nil
}

// ListDocumentsByStatus lists documents in one status
func (s *DocumentService) ListDocumentsByStatus(ctx context.Context, status string, limit, offset int) ([]DocumentDTO, error) {
	docs, err := s.documents.FindByStatus(ctx, domain.DemandStatus(status), limit, offset)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list documents", "status", status)
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return ToDocumentDTOs(docs), nil
}
