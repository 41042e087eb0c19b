package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/lightlink-network/withdrawal-relayer/crossdomain"
	"github.com/lightlink-network/withdrawal-relayer/database"
	"github.com/lightlink-network/withdrawal-relayer/database/models"
	"github.com/lightlink-network/withdrawal-relayer/registry"
	"github.com/lightlink-network/withdrawal-relayer/relay"
	"github.com/lightlink-network/withdrawal-relayer/relayer"
)

var (
	ethWithdrawalHash = common.HexToHash("0x830ce8f535c2dcda4f340f41ed70ca57ce38e37b9a9be81ee46e05b937130f58")
	l2TxHash          = common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")
)

type fakeReader struct {
	provenAt  uint64
	now       uint64
	finalized bool
	err       error
}

func (f *fakeReader) ProvenWithdrawal(context.Context, common.Hash) (relay.ProvenRecord, error) {
	if f.err != nil {
		return relay.ProvenRecord{}, f.err
	}
	return relay.ProvenRecord{Timestamp: f.provenAt, L2OutputIndex: big.NewInt(1)}, nil
}

func (f *fakeReader) FinalizedWithdrawal(context.Context, common.Hash) (bool, error) {
	return f.finalized, nil
}

func (f *fakeReader) ChallengePeriodSeconds(context.Context) (uint64, error) { return 604800, nil }

func (f *fakeReader) L1Timestamp(context.Context) (uint64, error) { return f.now, nil }

type fakeStore struct {
	withdrawals map[string]*models.Withdrawal
	filter      models.Filter
}

func (s *fakeStore) GetWithdrawalByTxHash(_ context.Context, txHash string) (*models.Withdrawal, error) {
	w, ok := s.withdrawals[txHash]
	if !ok {
		return nil, database.ErrNotFound
	}
	return w, nil
}

func (s *fakeStore) SetWithdrawalHash(context.Context, string, string) error { return nil }

func (s *fakeStore) CreateRelayAttempt(context.Context, models.RelayAttempt) (string, error) {
	return "", nil
}

func (s *fakeStore) GetWithdrawals(_ context.Context, filter models.Filter, page, pageSize int64) (*models.PaginatedResult, error) {
	s.filter = filter
	items := make([]models.Withdrawal, 0, len(s.withdrawals))
	for _, w := range s.withdrawals {
		items = append(items, *w)
	}
	return &models.PaginatedResult{Items: items, TotalCount: int64(len(items)), Page: page, PageSize: pageSize}, nil
}

func (s *fakeStore) GetRelayAttempts(_ context.Context, filter models.Filter, page, pageSize int64) (*models.PaginatedResult, error) {
	s.filter = filter
	return &models.PaginatedResult{Items: []models.RelayAttempt{}, Page: page, PageSize: pageSize}, nil
}

func ethFields() crossdomain.IntentFields {
	return crossdomain.IntentFields{
		L1Token:      "eth",
		L2Token:      "eth",
		Amount:       "1000",
		From:         "0x00000000000000000000000000000000000000aa",
		To:           "0x00000000000000000000000000000000000000bb",
		MessageNonce: "7",
	}
}

func newTestServer(t *testing.T, reader *fakeReader, store *fakeStore) *Server {
	network, err := registry.Lookup("op-mainnet")
	require.NoError(t, err)

	opts := relayer.Opts{
		Driver:  relay.NewDriver(network.Config(), reader),
		Network: network.Name,
	}
	serverOpts := ServerOpts{Logger: slog.Default()}
	if store != nil {
		opts.Store = store
		serverOpts.Store = store
	}
	r, err := relayer.NewRelayer(opts)
	require.NoError(t, err)
	serverOpts.Relayer = r

	s, err := NewServer(serverOpts)
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var out map[string]interface{}
	if strings.HasPrefix(path, "/v1") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &fakeReader{}, nil)
	rec, out := do(t, s, http.MethodGet, "/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "online", out["health_status"])
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestWithdrawalGet(t *testing.T) {
	store := &fakeStore{withdrawals: map[string]*models.Withdrawal{
		l2TxHash.Hex(): {TxHash: l2TxHash.Hex(), Network: "op-mainnet", IntentFields: ethFields()},
	}}
	s := newTestServer(t, &fakeReader{provenAt: 1000, now: 2000}, store)

	rec, out := do(t, s, http.MethodGet, "/v1/withdrawals/"+l2TxHash.Hex(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, l2TxHash.Hex(), out["tx_hash"])
	require.Equal(t, ethWithdrawalHash.Hex(), out["withdrawal_hash"])
	require.Equal(t, "IN_CHALLENGE_PERIOD", out["state"])
	require.Equal(t, "wait", out["action"])
	require.EqualValues(t, 603800, out["seconds_remaining"])

	withdrawal := out["withdrawal"].(map[string]interface{})
	require.Equal(t, "1000", withdrawal["value"])
	require.Equal(t, "1307593", withdrawal["gas_limit"])
}

func TestWithdrawalGetErrors(t *testing.T) {
	store := &fakeStore{withdrawals: map[string]*models.Withdrawal{
		l2TxHash.Hex(): {TxHash: l2TxHash.Hex(), IntentFields: ethFields()},
	}}

	s := newTestServer(t, &fakeReader{}, store)
	rec, _ := do(t, s, http.MethodGet, "/v1/withdrawals/0x1234", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, s, http.MethodGet, "/v1/withdrawals/"+common.HexToHash("0x99").Hex(), "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	s = newTestServer(t, &fakeReader{err: errors.New("connection refused")}, store)
	rec, out := do(t, s, http.MethodGet, "/v1/withdrawals/"+l2TxHash.Hex(), "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, out["error"], "connection refused")

	s = newTestServer(t, &fakeReader{}, nil)
	rec, _ = do(t, s, http.MethodGet, "/v1/withdrawals/"+l2TxHash.Hex(), "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWithdrawalEvaluate(t *testing.T) {
	s := newTestServer(t, &fakeReader{}, nil)

	body, err := json.Marshal(ethFields())
	require.NoError(t, err)
	rec, out := do(t, s, http.MethodPost, "/v1/withdrawals/evaluate", string(body))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "prove", out["action"])
	require.Equal(t, "NOT_PROVEN", out["state"])
	require.Equal(t, ethWithdrawalHash.Hex(), out["withdrawal_hash"])

	reader := &fakeReader{provenAt: 100, now: 700000, finalized: true}
	s = newTestServer(t, reader, nil)
	rec, out = do(t, s, http.MethodPost, "/v1/withdrawals/evaluate", string(body))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "noop", out["action"])
	require.Equal(t, relay.ReasonAlreadyRelayed, out["reason"])
}

func TestWithdrawalEvaluateBadRequest(t *testing.T) {
	s := newTestServer(t, &fakeReader{}, nil)

	rec, _ := do(t, s, http.MethodPost, "/v1/withdrawals/evaluate", "{")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out := do(t, s, http.MethodPost, "/v1/withdrawals/evaluate", `{"message_nonce":"1"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, out["error"], "invalid withdrawal intent")

	fields := ethFields()
	fields.Amount = "-1"
	body, err := json.Marshal(fields)
	require.NoError(t, err)
	rec, _ = do(t, s, http.MethodPost, "/v1/withdrawals/evaluate", string(body))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListEndpoints(t *testing.T) {
	store := &fakeStore{withdrawals: map[string]*models.Withdrawal{
		l2TxHash.Hex(): {TxHash: l2TxHash.Hex(), Network: "op-mainnet", IntentFields: ethFields()},
	}}
	s := newTestServer(t, &fakeReader{}, store)

	rec, out := do(t, s, http.MethodGet, "/v1/withdrawals?network=op-mainnet&page=2&pageSize=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 1, out["total_count"])
	require.EqualValues(t, 2, out["page"])
	require.EqualValues(t, 5, out["page_size"])
	require.Equal(t, "op-mainnet", store.filter.Network)

	rec, _ = do(t, s, http.MethodGet, "/v1/relays?action=prove&state=NOT_PROVEN", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "prove", store.filter.Action)
	require.Equal(t, "NOT_PROVEN", store.filter.State)

	s = newTestServer(t, &fakeReader{}, nil)
	rec, _ = do(t, s, http.MethodGet, "/v1/relays", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t, &fakeReader{}, nil)
	rec, _ := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}
