package application

import "time"

// StockItemDTO is the external representation of one SKU's stock
type StockItemDTO struct {
	SKU                   string         `json:"sku"`
	ProductName           string         `json:"productName"`
	Barcode               string         `json:"barcode,omitempty"`
	TotalQuantity         int            `json:"totalQuantity"`
	HardCommittedQuantity int            `json:"hardCommittedQuantity"`
	PhysicalAvailable     int            `json:"physicalAvailable"`
	Lines                 []StockLineDTO `json:"lines"`
	UpdatedAt             time.Time      `json:"updatedAt"`
}

// StockLineDTO is one storage unit's share of a SKU
type StockLineDTO struct {
	StorageUnitID string    `json:"storageUnitId"`
	LocationID    string    `json:"locationId"`
	Zone          string    `json:"zone"`
	Quantity      int       `json:"quantity"`
	HardCommitted int       `json:"hardCommitted"`
	Available     int       `json:"available"`
	ReceivedAt    time.Time `json:"receivedAt"`
}

// AvailabilityDTO is the advisory ATP answer for one SKU. It is
// display-grade only; the allocation engine re-validates inside its
// own transaction.
type AvailabilityDTO struct {
	SKU                string `json:"sku"`
	PhysicalAvailable  int    `json:"physicalAvailable"`
	SoftCommitted      int    `json:"softCommitted"`
	AvailableToPromise int    `json:"availableToPromise"`
}

// DocumentDTO is the external representation of a demand document
type DocumentDTO struct {
	DocumentID  string            `json:"documentId"`
	Kind        string            `json:"kind"`
	Source      string            `json:"source"`
	Status      string            `json:"status"`
	Approved    bool              `json:"approved"`
	WaveID      string            `json:"waveId,omitempty"`
	Priority    int               `json:"priority"`
	Destination string            `json:"destination,omitempty"`
	Lines       []DocumentLineDTO `json:"lines"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// DocumentLineDTO is one line of a document
type DocumentLineDTO struct {
	SKU                   string `json:"sku"`
	ProductName           string `json:"productName"`
	RequestedQuantity     int    `json:"requestedQuantity"`
	HardAllocatedQuantity int    `json:"hardAllocatedQuantity"`
	StorageUnitID         string `json:"storageUnitId,omitempty"`
}

// ShortageItemDTO is one short SKU in an allocation result
type ShortageItemDTO struct {
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Needed    int    `json:"needed"`
	Available int    `json:"available"`
	Missing   int    `json:"missing"`
}

// AllocationResultDTO is the outcome of Allocate or ReleaseWave
type AllocationResultDTO struct {
	Success      bool              `json:"success"`
	DocumentID   string            `json:"documentId,omitempty"`
	WaveID       string            `json:"waveId,omitempty"`
	JobsCreated  int               `json:"jobsCreated"`
	TasksCreated int               `json:"tasksCreated"`
	Reason       string            `json:"reason,omitempty"`
	MissingItems []ShortageItemDTO `json:"missingItems,omitempty"`
}

// WaveDTO is the external representation of a wave
type WaveDTO struct {
	WaveID        string            `json:"waveId"`
	Status        string            `json:"status"`
	Size          string            `json:"size"`
	OrderCount    int               `json:"orderCount"`
	TotalLines    int               `json:"totalLines"`
	TotalQuantity int               `json:"totalQuantity"`
	Documents     []WaveDocumentDTO `json:"documents"`
	CreatedAt     time.Time         `json:"createdAt"`
	ReleasedAt    *time.Time        `json:"releasedAt,omitempty"`
}

// WaveDocumentDTO is one member document summary
type WaveDocumentDTO struct {
	DocumentID    string `json:"documentId"`
	LineCount     int    `json:"lineCount"`
	TotalQuantity int    `json:"totalQuantity"`
}

// ClusterDTO is one suggested wave cluster. Advisory only; nothing is
// committed until the cluster is turned into a wave.
type ClusterDTO struct {
	DocumentIDs   []string `json:"documentIds"`
	Similarity    float64  `json:"similarity"`
	TotalLines    int      `json:"totalLines"`
	TotalQuantity int      `json:"totalQuantity"`
	Size          string   `json:"size"`
}

// PickingJobDTO is the external representation of a picking job
type PickingJobDTO struct {
	JobID       string           `json:"jobId"`
	WaveID      string           `json:"waveId,omitempty"`
	Zone        string           `json:"zone"`
	Status      string           `json:"status"`
	PickerID    string           `json:"pickerId,omitempty"`
	Tasks       []PickingTaskDTO `json:"tasks"`
	CreatedAt   time.Time        `json:"createdAt"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
}

// PickingTaskDTO is one task inside a job
type PickingTaskDTO struct {
	TaskID         string `json:"taskId"`
	DocumentID     string `json:"documentId"`
	SKU            string `json:"sku"`
	ProductName    string `json:"productName"`
	StorageUnitID  string `json:"storageUnitId"`
	LocationID     string `json:"locationId"`
	Zone           string `json:"zone"`
	Quantity       int    `json:"quantity"`
	PickedQuantity int    `json:"pickedQuantity"`
	Status         string `json:"status"`
}

// LedgerEntryDTO is one audit record
type LedgerEntryDTO struct {
	EntryType       string    `json:"entryType"`
	SKU             string    `json:"sku"`
	StorageUnitID   string    `json:"storageUnitId"`
	Quantity        int       `json:"quantity"`
	CommittedBefore int       `json:"committedBefore"`
	CommittedAfter  int       `json:"committedAfter"`
	ReferenceID     string    `json:"referenceId,omitempty"`
	Actor           string    `json:"actor"`
	CreatedAt       time.Time `json:"createdAt"`
}
