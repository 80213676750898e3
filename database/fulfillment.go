package database

import (
	"context"
	"database/sql"
	"fmt"

	"shopbot-svc/models"
)

const (
	existsQuery = `SELECT EXISTS(SELECT 1 FROM fulfillments WHERE payload_token = $1)`
	insertQuery = `INSERT INTO fulfillments (payload_token, buyer_id, amount, charge_id, delivered_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (payload_token) DO NOTHING`
)

// FulfillmentStore keeps delivered payload tokens in Postgres. The primary
// key on payload_token makes Insert an atomic check-and-set across replicas.
type FulfillmentStore struct {
	db *sql.DB
}

func NewFulfillmentStore(db *sql.DB) *FulfillmentStore {
	return &FulfillmentStore{db: db}
}

func (s *FulfillmentStore) Exists(ctx context.Context, token string) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, existsQuery, token).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to look up fulfillment: %w", err)
	}
	return exists, nil
}

func (s *FulfillmentStore) Insert(ctx context.Context, record models.FulfillmentRecord) (bool, error) {
	var chargeID sql.NullString
	if record.ChargeID != "" {
		chargeID = sql.NullString{String: record.ChargeID, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, insertQuery,
		record.PayloadToken, record.BuyerID, record.Amount, chargeID, record.DeliveredAt)
	if err != nil {
		return false, fmt.Errorf("failed to record fulfillment: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}
