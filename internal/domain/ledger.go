package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LedgerEntryType classifies an audit ledger entry
type LedgerEntryType string

const (
	LedgerEntryReceive LedgerEntryType = "receive"
	LedgerEntryCommit  LedgerEntryType = "commit"
	LedgerEntryRelease LedgerEntryType = "release"
	LedgerEntryAdjust  LedgerEntryType = "adjust"
	LedgerEntryDeduct  LedgerEntryType = "deduct"
)

// LedgerEntry is one immutable audit record. Every commit and release
// appends one in the same transaction that mutates the stock line, so
// reporting can reconstruct the commitment history without touching
// this engine's own logic.
type LedgerEntry struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	EntryType       LedgerEntryType    `bson:"entryType"`
	SKU             string             `bson:"sku"`
	StorageUnitID   string             `bson:"storageUnitId"`
	Quantity        int                `bson:"quantity"`
	CommittedBefore int                `bson:"committedBefore"`
	CommittedAfter  int                `bson:"committedAfter"`
	ReferenceID     string             `bson:"referenceId,omitempty"`
	Actor           string             `bson:"actor"`
	CreatedAt       time.Time          `bson:"createdAt"`
}

// NewLedgerEntry creates an audit record
func NewLedgerEntry(entryType LedgerEntryType, sku, storageUnitID string, quantity, before, after int, referenceID, actor string) *LedgerEntry {
	return &LedgerEntry{
		EntryType:       entryType,
		SKU:             sku,
		StorageUnitID:   storageUnitID,
		Quantity:        quantity,
		CommittedBefore: before,
		CommittedAfter:  after,
		ReferenceID:     referenceID,
		Actor:           actor,
		CreatedAt:       time.Now(),
	}
}
