package application

// CreateDocumentCommand creates a demand document
type CreateDocumentCommand struct {
	Kind        string              `json:"kind" binding:"required"`
	Source      string              `json:"source" binding:"required"`
	Destination string              `json:"destination"`
	Priority    int                 `json:"priority"`
	Lines       []DemandLineCommand `json:"lines" binding:"required,min=1,dive"`
	CreatedBy   string              `json:"createdBy"`
}

// DemandLineCommand is one requested line inside CreateDocumentCommand
type DemandLineCommand struct {
	SKU               string `json:"sku" binding:"required"`
	ProductName       string `json:"productName"`
	RequestedQuantity int    `json:"requestedQuantity" binding:"required,gt=0"`
	StorageUnitID     string `json:"storageUnitId"`
}

// ApproveDocumentCommand approves a document for allocation
type ApproveDocumentCommand struct {
	DocumentID string `json:"documentId"`
	Actor      string `json:"actor"`
}

// CancelDocumentCommand cancels a document, rolling back hard
// commitments when it is already allocated
type CancelDocumentCommand struct {
	DocumentID string `json:"documentId"`
	Reason     string `json:"reason" binding:"required"`
}

// AllocateDocumentCommand runs the allocation engine for one document
type AllocateDocumentCommand struct {
	DocumentID string `json:"documentId"`
}

// ShipDocumentCommand ships a fully picked document
type ShipDocumentCommand struct {
	DocumentID string `json:"documentId"`
}

// ReceiveStockCommand adds physical stock to a storage unit
type ReceiveStockCommand struct {
	SKU           string `json:"sku" binding:"required"`
	ProductName   string `json:"productName"`
	Barcode       string `json:"barcode"`
	StorageUnitID string `json:"storageUnitId" binding:"required"`
	LocationID    string `json:"locationId" binding:"required"`
	Zone          string `json:"zone" binding:"required"`
	Quantity      int    `json:"quantity" binding:"required,gt=0"`
	ReferenceID   string `json:"referenceId"`
	Actor         string `json:"actor"`
}

// AdjustStockCommand corrects the physical quantity of a storage unit
type AdjustStockCommand struct {
	SKU           string `json:"sku"`
	StorageUnitID string `json:"storageUnitId" binding:"required"`
	NewQuantity   int    `json:"newQuantity" binding:"gte=0"`
	Reason        string `json:"reason" binding:"required"`
	Actor         string `json:"actor"`
}

// SuggestClustersCommand parameterizes wave cluster suggestion
type SuggestClustersCommand struct {
	MinSimilarity       float64 `json:"minSimilarity"`
	MaxOrdersPerCluster int     `json:"maxOrdersPerCluster"`
}

// CreateWaveCommand assembles a planning wave from document IDs
type CreateWaveCommand struct {
	DocumentIDs []string `json:"documentIds" binding:"required,min=1"`
	CreatedBy   string   `json:"createdBy"`
}

// ReleaseWaveCommand releases a planning wave
type ReleaseWaveCommand struct {
	WaveID string `json:"waveId"`
}

// CancelWaveCommand cancels a wave with a reason
type CancelWaveCommand struct {
	WaveID string `json:"waveId"`
	Reason string `json:"reason" binding:"required"`
}

// CompleteWaveCommand closes a released wave
type CompleteWaveCommand struct {
	WaveID string `json:"waveId"`
}

// AssignJobCommand hands a picking job to a picker
type AssignJobCommand struct {
	JobID    string `json:"jobId"`
	PickerID string `json:"pickerId" binding:"required"`
}

// RecordPickCommand marks one picking task picked
type RecordPickCommand struct {
	JobID    string `json:"jobId"`
	TaskID   string `json:"taskId" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
	PickerID string `json:"pickerId"`
}

// ReportExceptionCommand reports a short pick on one task
type ReportExceptionCommand struct {
	JobID      string `json:"jobId"`
	TaskID     string `json:"taskId" binding:"required"`
	Actual     int    `json:"actual" binding:"gte=0"`
	Reason     string `json:"reason" binding:"required"`
	ReportedBy string `json:"reportedBy"`
}
