package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/allocation-service/internal/domain"
	"github.com/wms-platform/allocation-service/pkg/cloudevents"
	"github.com/wms-platform/allocation-service/pkg/kafka"
	wmsmongo "github.com/wms-platform/allocation-service/pkg/mongodb"
	"github.com/wms-platform/allocation-service/pkg/outbox"
	outboxMongo "github.com/wms-platform/allocation-service/pkg/outbox/mongodb"
)

type WaveRepository struct {
	collection   *mongo.Collection
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

func NewWaveRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *WaveRepository {
	collection := db.Collection("waves")
	outboxRepo := outboxMongo.NewOutboxRepository(db)

	repo := &WaveRepository{
		collection:   collection,
		outboxRepo:   outboxRepo,
		eventFactory: eventFactory,
	}
	repo.ensureIndexes(context.Background())

	return repo
}

func (r *WaveRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "waveId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "documents.documentId", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *WaveRepository) Save(ctx context.Context, wave *domain.Wave) error {
	wave.UpdatedAt = time.Now()
	expected := wave.Version
	wave.Version = expected + 1

	filter := bson.M{"waveId": wave.WaveID, "version": expected}
	update := bson.M{"$set": wave}
	opts := options.Update().SetUpsert(expected == 0)

	result, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		wave.Version = expected
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConcurrentConflict
		}
		return fmt.Errorf("failed to save wave: %w", err)
	}
	if result.MatchedCount == 0 && result.UpsertedCount == 0 {
		wave.Version = expected
		return domain.ErrConcurrentConflict
	}

	if err := r.saveEvents(ctx, wave); err != nil {
		return err
	}
	wave.ClearDomainEvents()
	return nil
}

func (r *WaveRepository) saveEvents(ctx context.Context, wave *domain.Wave) error {
	domainEvents := wave.GetDomainEvents()
	if len(domainEvents) == 0 {
		return nil
	}

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(domainEvents))
	for _, event := range domainEvents {
		cloudEvent := r.eventFactory.CreateEvent(ctx, event.EventType(), "wave/"+wave.WaveID, event)
		cloudEvent.WaveID = wave.WaveID
		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(wave.WaveID, "Wave", kafka.Topics.WavesEvents, cloudEvent)
		if err != nil {
			return fmt.Errorf("failed to create outbox event: %w", err)
		}
		outboxEvents = append(outboxEvents, outboxEvent)
	}
	if err := r.outboxRepo.SaveAll(ctx, outboxEvents); err != nil {
		return fmt.Errorf("failed to save outbox events: %w", err)
	}
	return nil
}

func (r *WaveRepository) FindByWaveID(ctx context.Context, waveID string) (*domain.Wave, error) {
	var wave domain.Wave
	err := r.collection.FindOne(ctx, bson.M{"waveId": waveID}).Decode(&wave)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find wave: %w", err)
	}
	return &wave, nil
}

func (r *WaveRepository) FindByStatus(ctx context.Context, status domain.WaveStatus, limit, offset int) ([]*domain.Wave, error) {
	page := wmsmongo.Pagination{Limit: limit, Offset: offset}.Normalize()
	opts := options.Find().
		SetSort(wmsmongo.SortDescending("createdAt")).
		SetLimit(int64(page.Limit)).
		SetSkip(int64(page.Offset))

	cursor, err := r.collection.Find(ctx, bson.M{"status": status}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find waves: %w", err)
	}
	defer cursor.Close(ctx)

	var waves []*domain.Wave
	if err := cursor.All(ctx, &waves); err != nil {
		return nil, err
	}
	return waves, nil
}
