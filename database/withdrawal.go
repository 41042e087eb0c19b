package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lightlink-network/withdrawal-relayer/database/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GetWithdrawalByTxHash returns the registry record of an L2 transaction.
func (db *Database) GetWithdrawalByTxHash(ctx context.Context, txHash string) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal
	err := db.collection(withdrawalsCollection).FindOne(ctx, bson.D{{Key: "tx_hash", Value: txHash}}).Decode(&withdrawal)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("withdrawal %s: %w", txHash, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get withdrawal by tx hash: %w", err)
	}
	return &withdrawal, nil
}

// UpsertWithdrawal creates or replaces the record of w.TxHash.
func (db *Database) UpsertWithdrawal(ctx context.Context, w models.Withdrawal) error {
	now := time.Now()
	w.UpdatedAt = now
	// created_at is only written on insert
	w.CreatedAt = time.Time{}

	update := bson.D{
		{Key: "$set", Value: w},
		{Key: "$setOnInsert", Value: bson.D{{Key: "created_at", Value: now}}},
	}

	_, err := db.collection(withdrawalsCollection).UpdateOne(
		ctx,
		bson.D{{Key: "tx_hash", Value: w.TxHash}},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert withdrawal: %w", err)
	}
	return nil
}

// SetWithdrawalHash stores the computed withdrawal hash on a record.
func (db *Database) SetWithdrawalHash(ctx context.Context, txHash, withdrawalHash string) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "withdrawal_hash", Value: withdrawalHash},
		{Key: "updated_at", Value: time.Now()},
	}}}

	result, err := db.collection(withdrawalsCollection).UpdateOne(ctx, bson.D{{Key: "tx_hash", Value: txHash}}, update)
	if err != nil {
		return fmt.Errorf("failed to set withdrawal hash: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("withdrawal %s: %w", txHash, ErrNotFound)
	}
	return nil
}

func (db *Database) GetWithdrawals(ctx context.Context, filter models.Filter, page, pageSize int64) (*models.PaginatedResult, error) {
	var withdrawals []models.Withdrawal
	return db.paginate(ctx, withdrawalsCollection, filter, page, pageSize, &withdrawals)
}
