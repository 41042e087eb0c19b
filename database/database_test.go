package database

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/lightlink-network/withdrawal-relayer/database/models"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestBuildFilter(t *testing.T) {
	require.Empty(t, buildFilter(models.Filter{}))

	filter := buildFilter(models.Filter{
		Network:        "op-mainnet",
		WithdrawalHash: "0x01",
		Action:         "prove",
	})
	require.Equal(t, bson.M{
		"network":         "op-mainnet",
		"withdrawal_hash": "0x01",
		"action":          "prove",
	}, filter)
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		page, size         int64
		wantPage, wantSize int64
	}{
		{0, 0, 1, defaultPageSize},
		{-3, 10, 1, 10},
		{2, 1000, 2, maxPageSize},
		{5, 50, 5, 50},
	}
	for _, tt := range tests {
		page, size := normalizePage(tt.page, tt.size)
		require.Equal(t, tt.wantPage, page)
		require.Equal(t, tt.wantSize, size)
	}
}

func TestGetWithdrawalByTxHash(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		db := newDatabase(mt.Client, "relayer", slog.Default())
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "relayer.withdrawals", mtest.FirstBatch, bson.D{
			{Key: "tx_hash", Value: "0xabc"},
			{Key: "network", Value: "op-mainnet"},
			{Key: "l1_token", Value: "eth"},
			{Key: "l2_token", Value: "eth"},
			{Key: "amount", Value: "1000"},
			{Key: "message_nonce", Value: "7"},
		}))

		w, err := db.GetWithdrawalByTxHash(context.Background(), "0xabc")
		require.NoError(mt, err)
		require.Equal(mt, "0xabc", w.TxHash)
		require.Equal(mt, "eth", w.L1Token)
		require.Equal(mt, "1000", w.Amount)
		require.Equal(mt, "7", w.MessageNonce)
	})

	mt.Run("not found", func(mt *mtest.T) {
		db := newDatabase(mt.Client, "relayer", slog.Default())
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "relayer.withdrawals", mtest.FirstBatch))

		_, err := db.GetWithdrawalByTxHash(context.Background(), "0xabc")
		require.True(mt, errors.Is(err, ErrNotFound))
	})
}

func TestCreateRelayAttempt(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("insert", func(mt *mtest.T) {
		db := newDatabase(mt.Client, "relayer", slog.Default())
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		id, err := db.CreateRelayAttempt(context.Background(), models.RelayAttempt{
			WithdrawalHash: "0x01",
			Action:         "prove",
			State:          "NOT_PROVEN",
		})
		require.NoError(mt, err)
		require.NotEmpty(mt, id)
	})
}
