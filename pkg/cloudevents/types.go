package cloudevents

import (
	"time"
)

// EventType constants for allocation domain events
const (
	// Stock events
	StockReceived  = "wms.stock.received"
	StockCommitted = "wms.stock.committed"
	StockReleased  = "wms.stock.released"
	StockAdjusted  = "wms.stock.adjusted"
	StockDeducted  = "wms.stock.deducted"

	// Demand document events
	DocumentCreated            = "wms.demand.created"
	DocumentApproved           = "wms.demand.approved"
	DocumentAllocated          = "wms.demand.allocated"
	AllocationShortage         = "wms.demand.shortage"
	DocumentAllocationReverted = "wms.demand.allocation-reverted"
	DocumentPicked             = "wms.demand.picked"
	DocumentShipped            = "wms.demand.shipped"
	DocumentCancelled          = "wms.demand.cancelled"

	// Wave events
	WaveCreated   = "wms.waves.created"
	WaveReleased  = "wms.waves.released"
	WaveCompleted = "wms.waves.completed"
	WaveCancelled = "wms.waves.cancelled"

	// Picking events
	PickingJobCreated   = "wms.picking.job-created"
	PickingJobAssigned  = "wms.picking.job-assigned"
	PickingJobCompleted = "wms.picking.job-completed"
	PickingJobCancelled = "wms.picking.job-cancelled"
	PickTaskPicked      = "wms.picking.task-picked"
	PickException       = "wms.picking.exception"

	// Inbound order events consumed from the order service
	OrderReceived  = "wms.order.received"
	OrderCancelled = "wms.order.cancelled"
)

// Source constants for event sources
const (
	SourceAllocation      = "/wms/allocation-service"
	SourceOrderManagement = "/wms/order-service"
)

// WMSCloudEvent represents a CloudEvents v1.0 compliant event for WMS
type WMSCloudEvent struct {
	SpecVersion     string                 `json:"specversion"`
	Type            string                 `json:"type"`
	Source          string                 `json:"source"`
	Subject         string                 `json:"subject,omitempty"`
	ID              string                 `json:"id"`
	Time            time.Time              `json:"time"`
	DataContentType string                 `json:"datacontenttype"`
	Data            interface{}            `json:"data"`
	Extensions      map[string]interface{} `json:"-"`

	// WMS-specific extensions
	CorrelationID string `json:"wmscorrelationid,omitempty"`
	WaveID        string `json:"wmswaveid,omitempty"`

	// W3C trace context extensions
	TraceParent string `json:"traceparent,omitempty"`
	TraceState  string `json:"tracestate,omitempty"`
}

// OrderReceivedData is the payload of an inbound OrderReceived event
type OrderReceivedData struct {
	OrderID    string      `json:"orderId"`
	CustomerID string      `json:"customerId"`
	OrderLines []OrderLine `json:"orderLines"`
	Priority   int         `json:"priority"`
}

// OrderLine is one requested line in an inbound order
type OrderLine struct {
	SKU         string `json:"sku"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
}

// AllocationShortageData is the payload of an AllocationShortage event
type AllocationShortageData struct {
	DocumentID string         `json:"documentId,omitempty"`
	WaveID     string         `json:"waveId,omitempty"`
	Items      []ShortageItem `json:"items"`
}

// ShortageItem is one short SKU in a shortage payload
type ShortageItem struct {
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Needed    int    `json:"needed"`
	Available int    `json:"available"`
	Missing   int    `json:"missing"`
}

// WaveReleasedData is the payload of a WaveReleased event
type WaveReleasedData struct {
	WaveID       string   `json:"waveId"`
	DocumentIDs  []string `json:"documentIds"`
	JobsCreated  int      `json:"jobsCreated"`
	TasksCreated int      `json:"tasksCreated"`
}
