package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/allocation-service/internal/domain"
	apperrors "github.com/wms-platform/allocation-service/pkg/errors"
)

func TestCreateDocumentValidatesKind(t *testing.T) {
	e := newEnv()
	svc := e.documentService()

	tests := []struct {
		name    string
		cmd     CreateDocumentCommand
		wantErr bool
	}{
		{
			name: "item order",
			cmd: CreateDocumentCommand{
				Kind:   "item",
				Source: "order",
				Lines:  []DemandLineCommand{{SKU: "SKU-1", RequestedQuantity: 3}},
			},
		},
		{
			name: "storage unit transfer",
			cmd: CreateDocumentCommand{
				Kind:   "storage_unit",
				Source: "transfer",
				Lines:  []DemandLineCommand{{SKU: "SKU-1", RequestedQuantity: 24, StorageUnitID: "PAL-1"}},
			},
		},
		{
			name: "unknown kind",
			cmd: CreateDocumentCommand{
				Kind:   "carton",
				Source: "order",
				Lines:  []DemandLineCommand{{SKU: "SKU-1", RequestedQuantity: 3}},
			},
			wantErr: true,
		},
		{
			name: "item line naming a unit",
			cmd: CreateDocumentCommand{
				Kind:   "item",
				Source: "order",
				Lines:  []DemandLineCommand{{SKU: "SKU-1", RequestedQuantity: 3, StorageUnitID: "PAL-1"}},
			},
			wantErr: true,
		},
		{
			name: "unit line missing its unit",
			cmd: CreateDocumentCommand{
				Kind:   "storage_unit",
				Source: "transfer",
				Lines:  []DemandLineCommand{{SKU: "SKU-1", RequestedQuantity: 24}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dto, err := svc.CreateDocument(context.Background(), tt.cmd)
			if tt.wantErr {
				require.Error(t, err)
				appErr, ok := apperrors.AsAppError(err)
				require.True(t, ok)
				assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, string(domain.DemandStatusPending), dto.Status)
			assert.False(t, dto.Approved)
		})
	}
}

func TestApproveDocumentIsIdempotent(t *testing.T) {
	e := newEnv()
	svc := e.documentService()

	created, err := svc.CreateDocument(context.Background(), CreateDocumentCommand{
		Kind:   "item",
		Source: "order",
		Lines:  []DemandLineCommand{{SKU: "SKU-1", RequestedQuantity: 3}},
	})
	require.NoError(t, err)

	approved, err := svc.ApproveDocument(context.Background(), ApproveDocumentCommand{DocumentID: created.DocumentID, Actor: "supervisor"})
	require.NoError(t, err)
	assert.True(t, approved.Approved)

	again, err := svc.ApproveDocument(context.Background(), ApproveDocumentCommand{DocumentID: created.DocumentID, Actor: "supervisor"})
	require.NoError(t, err)
	assert.True(t, again.Approved)
}

func TestApproveCancelledDocumentRejected(t *testing.T) {
	e := newEnv()
	doc := e.seedDocument(t, "ORD-1", itemLine("SKU-1", 2))
	doc.Approved = false
	require.NoError(t, doc.Cancel("test"))

	svc := e.documentService()
	_, err := svc.ApproveDocument(context.Background(), ApproveDocumentCommand{DocumentID: "ORD-1", Actor: "supervisor"})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
}
