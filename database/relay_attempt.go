package database

import (
	"context"
	"fmt"
	"time"

	"github.com/lightlink-network/withdrawal-relayer/database/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (db *Database) CreateRelayAttempt(ctx context.Context, attempt models.RelayAttempt) (string, error) {
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now()
	}

	result, err := db.collection(relayAttemptsCollection).InsertOne(ctx, attempt)
	if err != nil {
		return "", fmt.Errorf("failed to create relay attempt: %w", err)
	}

	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", nil
	}
	return id.Hex(), nil
}

// GetRelayAttempts returns relay attempts, newest first.
func (db *Database) GetRelayAttempts(ctx context.Context, filter models.Filter, page, pageSize int64) (*models.PaginatedResult, error) {
	var attempts []models.RelayAttempt
	return db.paginate(ctx, relayAttemptsCollection, filter, page, pageSize, &attempts)
}
