package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wms-platform/allocation-service/internal/application"
	"github.com/wms-platform/allocation-service/internal/domain"
	"github.com/wms-platform/allocation-service/pkg/cloudevents"
	apperrors "github.com/wms-platform/allocation-service/pkg/errors"
	"github.com/wms-platform/allocation-service/pkg/kafka"
	"github.com/wms-platform/allocation-service/pkg/logging"
)

// OrderConsumer turns inbound order events from the order service into
// demand documents. Documents created this way still go through the
// normal approve/allocate lifecycle.
type OrderConsumer struct {
	consumer  *kafka.CircuitBreakerConsumer
	documents *application.DocumentService
	logger    *logging.Logger
}

func NewOrderConsumer(consumer *kafka.CircuitBreakerConsumer, documents *application.DocumentService, logger *logging.Logger) *OrderConsumer {
	c := &OrderConsumer{
		consumer:  consumer,
		documents: documents,
		logger:    logger,
	}
	consumer.Subscribe(kafka.Topics.OrdersInbound, cloudevents.OrderReceived, c.handleOrderReceived)
	return c
}

// Start blocks until ctx is cancelled.
func (c *OrderConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *OrderConsumer) Close() error {
	return c.consumer.Close()
}

func (c *OrderConsumer) handleOrderReceived(ctx context.Context, event *cloudevents.WMSCloudEvent) error {
	var data cloudevents.OrderReceivedData
	if err := decodeEventData(event, &data); err != nil {
		c.logger.WithContext(ctx).Error("Failed to decode order event",
			"eventId", event.ID,
			"error", err,
		)
		// Malformed payloads will never parse, do not retry
		return nil
	}

	cmd := application.CreateDocumentCommand{
		Kind:        string(domain.DemandKindItem),
		Source:      string(domain.DemandSourceOrder),
		Destination: data.CustomerID,
		Priority:    data.Priority,
		CreatedBy:   event.Source,
		Lines:       make([]application.DemandLineCommand, 0, len(data.OrderLines)),
	}
	for _, line := range data.OrderLines {
		cmd.Lines = append(cmd.Lines, application.DemandLineCommand{
			SKU:               line.SKU,
			ProductName:       line.ProductName,
			RequestedQuantity: line.Quantity,
		})
	}

	doc, err := c.documents.CreateDocument(ctx, cmd)
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok && appErr.Code == apperrors.CodeValidationError {
			c.logger.WithContext(ctx).Warn("Rejected inbound order",
				"orderId", data.OrderID,
				"reason", appErr.Message,
			)
			return nil
		}
		return fmt.Errorf("failed to create document for order %s: %w", data.OrderID, err)
	}

	c.logger.WithContext(ctx).Info("Created demand document from inbound order",
		"orderId", data.OrderID,
		"documentId", doc.DocumentID,
		"lines", len(doc.Lines),
	)
	return nil
}

// decodeEventData re-marshals the generic CloudEvent data payload into
// a typed structure.
func decodeEventData(event *cloudevents.WMSCloudEvent, out interface{}) error {
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal event data: %w", err)
	}
	return nil
}
