package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventFactory creates CloudEvents for allocation domain events
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new WMSCloudEvent with the given parameters
func (f *EventFactory) CreateEvent(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
) *WMSCloudEvent {
	event := &WMSCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
		Extensions:      make(map[string]interface{}),
	}

	return event
}

// CreateEventWithCorrelation creates an event with correlation tracking
func (f *EventFactory) CreateEventWithCorrelation(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
	correlationID string,
) *WMSCloudEvent {
	event := f.CreateEvent(ctx, eventType, subject, data)
	event.CorrelationID = correlationID
	return event
}

// CreateShortageEvent creates an AllocationShortage event
func (f *EventFactory) CreateShortageEvent(
	ctx context.Context,
	documentID string,
	waveID string,
	items []ShortageItem,
) *WMSCloudEvent {
	data := AllocationShortageData{
		DocumentID: documentID,
		WaveID:     waveID,
		Items:      items,
	}
	subject := "document/" + documentID
	if documentID == "" {
		subject = "wave/" + waveID
	}
	event := f.CreateEvent(ctx, AllocationShortage, subject, data)
	event.WaveID = waveID
	return event
}

// CreateWaveReleasedEvent creates a WaveReleased event
func (f *EventFactory) CreateWaveReleasedEvent(
	ctx context.Context,
	waveID string,
	documentIDs []string,
	jobsCreated int,
	tasksCreated int,
) *WMSCloudEvent {
	data := WaveReleasedData{
		WaveID:       waveID,
		DocumentIDs:  documentIDs,
		JobsCreated:  jobsCreated,
		TasksCreated: tasksCreated,
	}
	event := f.CreateEvent(ctx, WaveReleased, "wave/"+waveID, data)
	event.WaveID = waveID
	return event
}
