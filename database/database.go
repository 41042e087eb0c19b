package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lightlink-network/withdrawal-relayer/database/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("not found")

const (
	withdrawalsCollection   = "withdrawals"
	relayAttemptsCollection = "relay_attempts"
)

type Database struct {
	client       *mongo.Client
	databaseName string
	logger       *slog.Logger
}

type DatabaseOpts struct {
	URI          string
	DatabaseName string
	Logger       *slog.Logger
}

const (
	defaultTimeout  = 10 * time.Second
	maxPageSize     = 100
	defaultPageSize = 20
)

func NewDatabase(opts DatabaseOpts) (*Database, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetMaxPoolSize(100).
		SetMinPoolSize(10).
		SetMaxConnecting(10).
		SetServerSelectionTimeout(5 * time.Second).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return newDatabase(client, opts.DatabaseName, opts.Logger), nil
}

func newDatabase(client *mongo.Client, databaseName string, logger *slog.Logger) *Database {
	return &Database{
		client:       client,
		databaseName: databaseName,
		logger:       logger,
	}
}

func (db *Database) Close(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}

func (db *Database) collection(name string) *mongo.Collection {
	return db.client.Database(db.databaseName).Collection(name)
}

func (db *Database) CreateIndexes(ctx context.Context) error {
	_, err := db.collection(withdrawalsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tx_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "withdrawal_hash", Value: 1}}},
		{Keys: bson.D{{Key: "network", Value: 1}}},
		{Keys: bson.D{{Key: "from", Value: 1}}},
		{Keys: bson.D{{Key: "to", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create withdrawals indexes: %w", err)
	}

	_, err = db.collection(relayAttemptsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "withdrawal_hash", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "action", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create relay_attempts indexes: %w", err)
	}

	return nil
}

func buildFilter(f models.Filter) bson.M {
	filter := bson.M{}
	if f.Network != "" {
		filter["network"] = f.Network
	}
	if f.WithdrawalHash != "" {
		filter["withdrawal_hash"] = f.WithdrawalHash
	}
	if f.TxHash != "" {
		filter["tx_hash"] = f.TxHash
	}
	if f.Action != "" {
		filter["action"] = f.Action
	}
	if f.State != "" {
		filter["state"] = f.State
	}
	return filter
}

// normalizePage clamps page and pageSize to sane values.
func normalizePage(page, pageSize int64) (int64, int64) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func (db *Database) paginate(ctx context.Context, collection string, filter models.Filter, page, pageSize int64, items interface{}) (*models.PaginatedResult, error) {
	page, pageSize = normalizePage(page, pageSize)
	mongoFilter := buildFilter(filter)
	coll := db.collection(collection)

	totalCount, err := coll.CountDocuments(ctx, mongoFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to get total count: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip((page - 1) * pageSize).
		SetLimit(pageSize)

	cursor, err := coll.Find(ctx, mongoFilter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, items); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", collection, err)
	}

	return &models.PaginatedResult{
		Items:      items,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}
