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

type PickingJobRepository struct {
	collection   *mongo.Collection
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

func NewPickingJobRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *PickingJobRepository {
	collection := db.Collection("picking_jobs")
	outboxRepo := outboxMongo.NewOutboxRepository(db)

	repo := &PickingJobRepository{
		collection:   collection,
		outboxRepo:   outboxRepo,
		eventFactory: eventFactory,
	}
	repo.ensureIndexes(context.Background())

	return repo
}

func (r *PickingJobRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "jobId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "waveId", Value: 1}}},
		{Keys: bson.D{{Key: "tasks.documentId", Value: 1}}},
		{Keys: bson.D{{Key: "zone", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "pickerId", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *PickingJobRepository) Save(ctx context.Context, job *domain.PickingJob) error {
	job.UpdatedAt = time.Now()
	expected := job.Version
	job.Version = expected + 1

	filter := bson.M{"jobId": job.JobID, "version": expected}
	update := bson.M{"$set": job}
	opts := options.Update().SetUpsert(expected == 0)

	result, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		job.Version = expected
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConcurrentConflict
		}
		return fmt.Errorf("failed to save picking job: %w", err)
	}
	if result.MatchedCount == 0 && result.UpsertedCount == 0 {
		job.Version = expected
		return domain.ErrConcurrentConflict
	}

	if err := r.saveEvents(ctx, job); err != nil {
		return err
	}
	job.ClearDomainEvents()
	return nil
}

func (r *PickingJobRepository) saveEvents(ctx context.Context, job *domain.PickingJob) error {
	domainEvents := job.GetDomainEvents()
	if len(domainEvents) == 0 {
		return nil
	}

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(domainEvents))
	for _, event := range domainEvents {
		cloudEvent := r.eventFactory.CreateEvent(ctx, event.EventType(), "picking-job/"+job.JobID, event)
		cloudEvent.WaveID = job.WaveID
		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(job.JobID, "PickingJob", kafka.Topics.PickingEvents, cloudEvent)
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

func (r *PickingJobRepository) FindByJobID(ctx context.Context, jobID string) (*domain.PickingJob, error) {
	var job domain.PickingJob
	err := r.collection.FindOne(ctx, bson.M{"jobId": jobID}).Decode(&job)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find picking job: %w", err)
	}
	return &job, nil
}

func (r *PickingJobRepository) FindByWaveID(ctx context.Context, waveID string) ([]*domain.PickingJob, error) {
	return r.findMany(ctx, bson.M{"waveId": waveID})
}

func (r *PickingJobRepository) FindByDocumentID(ctx context.Context, documentID string) ([]*domain.PickingJob, error) {
	return r.findMany(ctx, bson.M{"tasks.documentId": documentID})
}

func (r *PickingJobRepository) FindByZone(ctx context.Context, zone string, status domain.JobStatus) ([]*domain.PickingJob, error) {
	filter := bson.M{"zone": zone}
	if status != "" {
		filter["status"] = status
	}
	return r.findMany(ctx, filter)
}

func (r *PickingJobRepository) FindByPickerID(ctx context.Context, pickerID string) ([]*domain.PickingJob, error) {
	return r.findMany(ctx, bson.M{"pickerId": pickerID})
}

func (r *PickingJobRepository) Delete(ctx context.Context, jobID string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"jobId": jobID}); err != nil {
		return fmt.Errorf("failed to delete picking job: %w", err)
	}
	return nil
}

func (r *PickingJobRepository) findMany(ctx context.Context, filter bson.M) ([]*domain.PickingJob, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(wmsmongo.SortAscending("createdAt")))
	if err != nil {
		return nil, fmt.Errorf("failed to find picking jobs: %w", err)
	}
	defer cursor.Close(ctx)

	var jobs []*domain.PickingJob
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}
