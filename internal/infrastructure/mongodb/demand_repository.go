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

type DemandDocumentRepository struct {
	collection   *mongo.Collection
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

func NewDemandDocumentRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *DemandDocumentRepository {
	collection := db.Collection("demand_documents")
	outboxRepo := outboxMongo.NewOutboxRepository(db)

	repo := &DemandDocumentRepository{
		collection:   collection,
		outboxRepo:   outboxRepo,
		eventFactory: eventFactory,
	}
	repo.ensureIndexes(context.Background())

	return repo
}

func (r *DemandDocumentRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "documentId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "waveId", Value: 1}}},
		{Keys: bson.D{{Key: "lines.sku", Value: 1}, {Key: "status", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *DemandDocumentRepository) Save(ctx context.Context, doc *domain.DemandDocument) error {
	doc.UpdatedAt = time.Now()
	expected := doc.Version
	doc.Version = expected + 1

	filter := bson.M{"documentId": doc.DocumentID, "version": expected}
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(expected == 0)

	result, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		doc.Version = expected
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConcurrentConflict
		}
		return fmt.Errorf("failed to save demand document: %w", err)
	}
	if result.MatchedCount == 0 && result.UpsertedCount == 0 {
		doc.Version = expected
		return domain.ErrConcurrentConflict
	}

	if err := r.saveEvents(ctx, doc); err != nil {
		return err
	}
	doc.ClearDomainEvents()
	return nil
}

func (r *DemandDocumentRepository) saveEvents(ctx context.Context, doc *domain.DemandDocument) error {
	domainEvents := doc.GetDomainEvents()
	if len(domainEvents) == 0 {
		return nil
	}

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(domainEvents))
	for _, event := range domainEvents {
		cloudEvent := r.eventFactory.CreateEvent(ctx, event.EventType(), "document/"+doc.DocumentID, event)
		cloudEvent.WaveID = doc.WaveID
		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(doc.DocumentID, "DemandDocument", kafka.Topics.DemandEvents, cloudEvent)
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

func (r *DemandDocumentRepository) FindByDocumentID(ctx context.Context, documentID string) (*domain.DemandDocument, error) {
	var doc domain.DemandDocument
	err := r.collection.FindOne(ctx, bson.M{"documentId": documentID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find demand document: %w", err)
	}
	return &doc, nil
}

func (r *DemandDocumentRepository) FindByDocumentIDs(ctx context.Context, documentIDs []string) ([]*domain.DemandDocument, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"documentId": bson.M{"$in": documentIDs}})
	if err != nil {
		return nil, fmt.Errorf("failed to find demand documents: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []*domain.DemandDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *DemandDocumentRepository) FindByStatus(ctx context.Context, status domain.DemandStatus, limit, offset int) ([]*domain.DemandDocument, error) {
	page := wmsmongo.Pagination{Limit: limit, Offset: offset}.Normalize()
	opts := options.Find().
		SetSort(wmsmongo.SortDescending("createdAt")).
		SetLimit(int64(page.Limit)).
		SetSkip(int64(page.Offset))

	cursor, err := r.collection.Find(ctx, bson.M{"status": status}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find demand documents: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []*domain.DemandDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *DemandDocumentRepository) FindAllocatable(ctx context.Context) ([]*domain.DemandDocument, error) {
	filter := bson.M{
		"status":   domain.DemandStatusPending,
		"approved": true,
		"$or": []bson.M{
			{"waveId": bson.M{"$exists": false}},
			{"waveId": ""},
		},
	}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(wmsmongo.SortAscending("createdAt")))
	if err != nil {
		return nil, fmt.Errorf("failed to find allocatable documents: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []*domain.DemandDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// SumOpenDemand aggregates the not-yet-hard-allocated requested
// quantity for one SKU across pending documents.
func (r *DemandDocumentRepository) SumOpenDemand(ctx context.Context, sku string) (int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": domain.DemandStatusPending, "lines.sku": sku}}},
		{{Key: "$unwind", Value: "$lines"}},
		{{Key: "$match", Value: bson.M{"lines.sku": sku}}},
		{{Key: "$group", Value: bson.M{
			"_id": nil,
			"open": bson.M{"$sum": bson.M{
				"$subtract": []string{"$lines.requestedQuantity", "$lines.hardAllocatedQuantity"},
			}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to sum open demand: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Open int `bson:"open"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Open, nil
}
