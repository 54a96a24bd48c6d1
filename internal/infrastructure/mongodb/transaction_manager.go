package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// TransactionManager runs application operations inside one MongoDB
// transaction. Repositories called with the session context join the
// same transaction, so an allocation's stock, document, job, claim,
// ledger, and outbox writes commit or abort as a unit.
type TransactionManager struct {
	client *mongo.Client
}

// NewTransactionManager creates a new TransactionManager
func NewTransactionManager(client *mongo.Client) *TransactionManager {
	return &TransactionManager{client: client}
}

// WithinTransaction executes fn inside a transaction. The error fn
// returns aborts the transaction and is passed through unchanged so
// callers can inspect it with errors.Is.
func (m *TransactionManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}
