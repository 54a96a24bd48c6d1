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

type StockRepository struct {
	collection   *mongo.Collection
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

func NewStockRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *StockRepository {
	collection := db.Collection("stock_items")
	outboxRepo := outboxMongo.NewOutboxRepository(db)

	repo := &StockRepository{
		collection:   collection,
		outboxRepo:   outboxRepo,
		eventFactory: eventFactory,
	}
	repo.ensureIndexes(context.Background())
	_ = outboxRepo.EnsureIndexes(context.Background())

	return repo
}

func (r *StockRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "sku", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "lines.storageUnitId", Value: 1}}},
		{Keys: bson.D{{Key: "lines.zone", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// Save persists the aggregate with an optimistic version check: the
// update matches only the version the aggregate was loaded at, so a
// concurrent writer surfaces as ErrConcurrentConflict instead of a
// lost update. Domain events go to the outbox in the same operation
// and are published to Kafka by the outbox publisher.
func (r *StockRepository) Save(ctx context.Context, item *domain.StockItem) error {
	item.UpdatedAt = time.Now()
	expected := item.Version
	item.Version = expected + 1

	filter := bson.M{"sku": item.SKU, "version": expected}
	update := bson.M{"$set": item}
	opts := options.Update().SetUpsert(expected == 0)

	result, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		item.Version = expected
		if mongo.IsDuplicateKeyError(err) {
			// Lost the insert race on the unique sku index
			return domain.ErrConcurrentConflict
		}
		return fmt.Errorf("failed to save stock item: %w", err)
	}
	if result.MatchedCount == 0 && result.UpsertedCount == 0 {
		item.Version = expected
		return domain.ErrConcurrentConflict
	}

	if err := r.saveEvents(ctx, item); err != nil {
		return err
	}
	item.ClearDomainEvents()
	return nil
}

func (r *StockRepository) saveEvents(ctx context.Context, item *domain.StockItem) error {
	domainEvents := item.GetDomainEvents()
	if len(domainEvents) == 0 {
		return nil
	}

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(domainEvents))
	for _, event := range domainEvents {
		cloudEvent := r.eventFactory.CreateEvent(ctx, event.EventType(), "stock/"+item.SKU, event)
		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(item.SKU, "StockItem", kafka.Topics.StockEvents, cloudEvent)
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

func (r *StockRepository) FindBySKU(ctx context.Context, sku string) (*domain.StockItem, error) {
	var item domain.StockItem
	err := r.collection.FindOne(ctx, bson.M{"sku": sku}).Decode(&item)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find stock item: %w", err)
	}
	return &item, nil
}

func (r *StockRepository) FindBySKUs(ctx context.Context, skus []string) ([]*domain.StockItem, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"sku": bson.M{"$in": skus}})
	if err != nil {
		return nil, fmt.Errorf("failed to find stock items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []*domain.StockItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *StockRepository) FindByStorageUnit(ctx context.Context, storageUnitID string) ([]*domain.StockItem, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"lines.storageUnitId": storageUnitID})
	if err != nil {
		return nil, fmt.Errorf("failed to find stock items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []*domain.StockItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *StockRepository) FindAll(ctx context.Context, limit, offset int) ([]*domain.StockItem, error) {
	page := wmsmongo.Pagination{Limit: limit, Offset: offset}.Normalize()
	opts := options.Find().
		SetSort(wmsmongo.SortAscending("sku")).
		SetLimit(int64(page.Limit)).
		SetSkip(int64(page.Offset))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []*domain.StockItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}
