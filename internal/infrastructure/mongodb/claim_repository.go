package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/allocation-service/internal/domain"
)

// StorageUnitClaimRepository backs exclusive whole-unit reservations
// with a partial unique index: at most one active claim per storage
// unit, enforced by the database rather than application checks.
type StorageUnitClaimRepository struct {
	collection *mongo.Collection
}

func NewStorageUnitClaimRepository(db *mongo.Database) *StorageUnitClaimRepository {
	repo := &StorageUnitClaimRepository{
		collection: db.Collection("storage_unit_claims"),
	}
	repo.ensureIndexes(context.Background())

	return repo
}

func (r *StorageUnitClaimRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "storageUnitId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": domain.ClaimStatusActive}),
		},
		{Keys: bson.D{{Key: "claimId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "documentId", Value: 1}, {Key: "status", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *StorageUnitClaimRepository) Claim(ctx context.Context, claim *domain.StorageUnitClaim) error {
	_, err := r.collection.InsertOne(ctx, claim)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrStorageUnitClaimed
		}
		return fmt.Errorf("failed to claim storage unit: %w", err)
	}
	return nil
}

func (r *StorageUnitClaimRepository) FindActiveByStorageUnit(ctx context.Context, storageUnitID string) (*domain.StorageUnitClaim, error) {
	var claim domain.StorageUnitClaim
	err := r.collection.FindOne(ctx, bson.M{
		"storageUnitId": storageUnitID,
		"status":        domain.ClaimStatusActive,
	}).Decode(&claim)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find storage unit claim: %w", err)
	}
	return &claim, nil
}

func (r *StorageUnitClaimRepository) FindActiveByDocument(ctx context.Context, documentID string) ([]*domain.StorageUnitClaim, error) {
	cursor, err := r.collection.Find(ctx, bson.M{
		"documentId": documentID,
		"status":     domain.ClaimStatusActive,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find storage unit claims: %w", err)
	}
	defer cursor.Close(ctx)

	var claims []*domain.StorageUnitClaim
	if err := cursor.All(ctx, &claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (r *StorageUnitClaimRepository) Release(ctx context.Context, claimID string) error {
	now := time.Now()
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"claimId": claimID, "status": domain.ClaimStatusActive},
		bson.M{"$set": bson.M{"status": domain.ClaimStatusReleased, "releasedAt": now}},
	)
	if err != nil {
		return fmt.Errorf("failed to release storage unit claim: %w", err)
	}
	return nil
}
