package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestItemLines() []DemandLine {
	return []DemandLine{
		{SKU: "SKU-001", ProductName: "Blue Widget", RequestedQuantity: 6},
		{SKU: "SKU-002", ProductName: "Red Widget", RequestedQuantity: 2},
	}
}

func createTestDocument(t *testing.T) *DemandDocument {
	t.Helper()
	doc, err := NewDemandDocument(DemandKindItem, DemandSourceOrder, createTestItemLines(), "tester")
	require.NoError(t, err)
	doc.ClearDomainEvents()
	return doc
}

func TestNewDemandDocument(t *testing.T) {
	tests := []struct {
		name        string
		kind        DemandKind
		lines       []DemandLine
		expectError error
	}{
		{
			name:  "Valid item document",
			kind:  DemandKindItem,
			lines: createTestItemLines(),
		},
		{
			name: "Valid storage-unit document",
			kind: DemandKindStorageUnit,
			lines: []DemandLine{
				{SKU: "SKU-001", RequestedQuantity: 10, StorageUnitID: "BOX-A"},
			},
		},
		{
			name:        "Unknown kind",
			kind:        DemandKind("pallet"),
			lines:       createTestItemLines(),
			expectError: ErrUnknownDemandKind,
		},
		{
			name:        "No lines",
			kind:        DemandKindItem,
			lines:       []DemandLine{},
			expectError: ErrEmptyDocument,
		},
		{
			name: "Zero quantity line",
			kind: DemandKindItem,
			lines: []DemandLine{
				{SKU: "SKU-001", RequestedQuantity: 0},
			},
			expectError: ErrInvalidQuantity,
		},
		{
			name: "Storage-unit line without unit",
			kind: DemandKindStorageUnit,
			lines: []DemandLine{
				{SKU: "SKU-001", RequestedQuantity: 10},
			},
			expectError: ErrMissingStorageUnit,
		},
		{
			name: "Storage unit named twice",
			kind: DemandKindStorageUnit,
			lines: []DemandLine{
				{SKU: "SKU-001", RequestedQuantity: 10, StorageUnitID: "BOX-A"},
				{SKU: "SKU-002", RequestedQuantity: 5, StorageUnitID: "BOX-A"},
			},
			expectError: ErrDuplicateStorageUnit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := NewDemandDocument(tt.kind, DemandSourceOrder, tt.lines, "tester")

			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				assert.Nil(t, doc)
			} else {
				require.NoError(t, err)
				require.NotNil(t, doc)
				assert.Equal(t, DemandStatusPending, doc.Status)
				assert.False(t, doc.Approved)
				assert.NotEmpty(t, doc.DocumentID)
			}
		})
	}
}

func TestDemandDocumentApprove(t *testing.T) {
	doc := createTestDocument(t)

	require.NoError(t, doc.Approve("manager"))
	assert.True(t, doc.Approved)
	assert.NotNil(t, doc.ApprovedAt)

	// Double approval is rejected, not silently ignored
	assert.ErrorIs(t, doc.Approve("manager"), ErrAlreadyApproved)
}

func TestDemandDocumentCanAllocate(t *testing.T) {
	doc := createTestDocument(t)

	// Unapproved documents are rejected
	assert.ErrorIs(t, doc.CanAllocate(), ErrNotApproved)

	require.NoError(t, doc.Approve("manager"))
	assert.NoError(t, doc.CanAllocate())

	require.NoError(t, doc.MarkAllocated(2))
	assert.ErrorIs(t, doc.CanAllocate(), ErrAlreadyAllocated)
}

func TestDemandDocumentLifecycle(t *testing.T) {
	doc := createTestDocument(t)
	require.NoError(t, doc.Approve("manager"))
	require.NoError(t, doc.MarkAllocated(2))
	assert.Equal(t, DemandStatusAllocated, doc.Status)

	require.NoError(t, doc.MarkPicked())
	assert.Equal(t, DemandStatusPicked, doc.Status)

	require.NoError(t, doc.MarkShipped())
	assert.Equal(t, DemandStatusShipped, doc.Status)

	// No transitions out of shipped
	assert.ErrorIs(t, doc.MarkPicked(), ErrInvalidDocumentStatus)
	assert.ErrorIs(t, doc.Cancel("late"), ErrInvalidDocumentStatus)
}

func TestDemandDocumentRevertAllocation(t *testing.T) {
	doc := createTestDocument(t)
	require.NoError(t, doc.Approve("manager"))
	require.NoError(t, doc.RecordHardAllocation("SKU-001", 6))
	require.NoError(t, doc.RecordHardAllocation("SKU-002", 2))
	require.NoError(t, doc.MarkAllocated(2))

	require.NoError(t, doc.RevertAllocation("customer cancelled"))

	assert.Equal(t, DemandStatusPending, doc.Status)
	assert.False(t, doc.Approved, "reverted document needs re-approval")
	for _, line := range doc.Lines {
		assert.Equal(t, 0, line.HardAllocatedQuantity)
	}

	// Revert only applies to allocated documents
	assert.ErrorIs(t, doc.RevertAllocation("again"), ErrInvalidDocumentStatus)
}

func TestDemandDocumentCancel(t *testing.T) {
	doc := createTestDocument(t)

	require.NoError(t, doc.Cancel("duplicate entry"))
	assert.Equal(t, DemandStatusCancelled, doc.Status)
	assert.Equal(t, "duplicate entry", doc.CancelReason)
}

func TestDemandDocumentCancelWhileWaved(t *testing.T) {
	doc := createTestDocument(t)
	require.NoError(t, doc.Approve("manager"))
	require.NoError(t, doc.AssignToWave("WV-1"))

	// Waved documents are owned by the wave flow
	assert.ErrorIs(t, doc.Cancel("no"), ErrDocumentInWave)
	assert.ErrorIs(t, doc.AssignToWave("WV-2"), ErrDocumentInWave)

	require.NoError(t, doc.UnassignFromWave("WV-1"))
	assert.NoError(t, doc.Cancel("ok now"))
}

func TestOpenSoftCommitment(t *testing.T) {
	doc := createTestDocument(t)
	assert.Equal(t, 6, doc.OpenSoftCommitment("SKU-001"))
	assert.Equal(t, 2, doc.OpenSoftCommitment("SKU-002"))
	assert.Equal(t, 0, doc.OpenSoftCommitment("SKU-999"))

	// Allocated demand is counted on the hard side, not as soft
	require.NoError(t, doc.Approve("manager"))
	require.NoError(t, doc.RecordHardAllocation("SKU-001", 6))
	require.NoError(t, doc.MarkAllocated(1))
	assert.Equal(t, 0, doc.OpenSoftCommitment("SKU-001"))
}

func TestProductSet(t *testing.T) {
	doc := createTestDocument(t)
	set := doc.ProductSet()
	assert.Len(t, set, 2)
	_, ok := set["SKU-001"]
	assert.True(t, ok)
}
