package domain

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrStorageUnitClaimed = errors.New("storage unit is already claimed")
	ErrClaimNotFound      = errors.New("storage unit claim not found")
)

// ClaimStatus represents the status of a storage unit claim
type ClaimStatus string

const (
	ClaimStatusActive   ClaimStatus = "active"
	ClaimStatusReleased ClaimStatus = "released"
)

// StorageUnitClaim is the exclusive lock a whole-unit demand document
// holds on a storage unit. A unique index on (storageUnitId, active)
// makes the already-claimed check race-free: the second claimant's
// insert fails instead of both passing a read-then-write check.
type StorageUnitClaim struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	ClaimID       string             `bson:"claimId"`
	StorageUnitID string             `bson:"storageUnitId"`
	DocumentID    string             `bson:"documentId"`
	WaveID        string             `bson:"waveId,omitempty"`
	Status        ClaimStatus        `bson:"status"`
	CreatedAt     time.Time          `bson:"createdAt"`
	ReleasedAt    *time.Time         `bson:"releasedAt,omitempty"`
}

// NewStorageUnitClaim creates an active claim
func NewStorageUnitClaim(storageUnitID, documentID, waveID string) *StorageUnitClaim {
	return &StorageUnitClaim{
		ClaimID:       "CLM-" + storageUnitID + "-" + time.Now().Format("20060102150405"),
		StorageUnitID: storageUnitID,
		DocumentID:    documentID,
		WaveID:        waveID,
		Status:        ClaimStatusActive,
		CreatedAt:     time.Now(),
	}
}

// Release marks the claim released
func (c *StorageUnitClaim) Release() {
	now := time.Now()
	c.Status = ClaimStatusReleased
	c.ReleasedAt = &now
}
