package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-chi/chi/v5"

	"github.com/lightlink-network/withdrawal-relayer/crossdomain"
	"github.com/lightlink-network/withdrawal-relayer/database"
	"github.com/lightlink-network/withdrawal-relayer/database/models"
	"github.com/lightlink-network/withdrawal-relayer/relay"
	"github.com/lightlink-network/withdrawal-relayer/relayer"
)

var errNoStore = errors.New("withdrawal registry is not configured")

type WithdrawalTransaction struct {
	Nonce    string `json:"nonce"`
	Sender   string `json:"sender"`
	Target   string `json:"target"`
	Value    string `json:"value"`
	GasLimit string `json:"gas_limit"`
	Data     string `json:"data"`
}

type WithdrawalStatus struct {
	TxHash           string                 `json:"tx_hash,omitempty"`
	WithdrawalHash   string                 `json:"withdrawal_hash"`
	State            string                 `json:"state"`
	Action           string                 `json:"action"`
	Reason           string                 `json:"reason,omitempty"`
	SecondsRemaining uint64                 `json:"seconds_remaining"`
	Withdrawal       *WithdrawalTransaction `json:"withdrawal,omitempty"`
}

func newWithdrawalStatus(txHash string, action relay.Action) WithdrawalStatus {
	status := WithdrawalStatus{
		TxHash:           txHash,
		WithdrawalHash:   action.WithdrawalHash.Hex(),
		State:            action.State.String(),
		Action:           string(action.Kind),
		Reason:           action.Reason,
		SecondsRemaining: action.SecondsRemaining,
	}
	if w := action.Withdrawal; w != nil {
		status.Withdrawal = &WithdrawalTransaction{
			Nonce:    w.Nonce.String(),
			Sender:   w.Sender.Hex(),
			Target:   w.Target.Hex(),
			Value:    w.Value.String(),
			GasLimit: w.GasLimit.String(),
			Data:     hexutil.Encode(w.Data),
		}
	}
	return status
}

// errorStatus maps relay errors to HTTP status codes.
func errorStatus(err error) int {
	var (
		encodingErr *crossdomain.EncodingError
		intentErr   *crossdomain.InvalidIntentError
		readErr     *relay.ChainReadError
	)
	switch {
	case errors.As(err, &encodingErr), errors.As(err, &intentErr):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &readErr):
		return http.StatusBadGateway
	case errors.Is(err, relayer.ErrNoStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func parseTxHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid transaction hash %q", s)
	}
	return common.BytesToHash(b), nil
}

func (s *Server) handleWithdrawalGet(w http.ResponseWriter, r *http.Request) {
	txHash, err := parseTxHash(chi.URLParam(r, "txHash"))
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	record, intent, err := s.relayer.LoadIntent(r.Context(), txHash)
	if err != nil {
		ERROR(w, errorStatus(err), err)
		return
	}

	action, err := s.relayer.Evaluate(r.Context(), intent)
	if err != nil {
		s.log.Error("failed to evaluate withdrawal", "txHash", record.TxHash, "error", err)
		ERROR(w, errorStatus(err), err)
		return
	}

	JSON(w, http.StatusOK, newWithdrawalStatus(record.TxHash, action))
}

func (s *Server) handleWithdrawalEvaluate(w http.ResponseWriter, r *http.Request) {
	var fields crossdomain.IntentFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		ERROR(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	intent, err := fields.Parse(s.relayer.Driver().Config())
	if err != nil {
		ERROR(w, errorStatus(err), err)
		return
	}

	action, err := s.relayer.Evaluate(r.Context(), intent)
	if err != nil {
		ERROR(w, errorStatus(err), err)
		return
	}

	JSON(w, http.StatusOK, newWithdrawalStatus("", action))
}

func pagination(r *http.Request) (int64, int64) {
	page, err := strconv.ParseInt(r.URL.Query().Get("page"), 10, 64)
	if err != nil || page < 1 {
		page = 1
	}

	pageSize, err := strconv.ParseInt(r.URL.Query().Get("pageSize"), 10, 64)
	if err != nil || pageSize < 1 {
		pageSize = 10
	}
	return page, pageSize
}

func queryFilter(r *http.Request) models.Filter {
	q := r.URL.Query()
	return models.Filter{
		Network:        q.Get("network"),
		WithdrawalHash: q.Get("withdrawalHash"),
		TxHash:         q.Get("txHash"),
		Action:         q.Get("action"),
		State:          q.Get("state"),
	}
}

func (s *Server) handleWithdrawalsGet(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		ERROR(w, http.StatusServiceUnavailable, errNoStore)
		return
	}

	page, pageSize := pagination(r)
	result, err := s.store.GetWithdrawals(r.Context(), queryFilter(r), page, pageSize)
	if err != nil {
		ERROR(w, http.StatusInternalServerError, err)
		return
	}

	JSON(w, http.StatusOK, result)
}

func (s *Server) handleRelaysGet(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		ERROR(w, http.StatusServiceUnavailable, errNoStore)
		return
	}

	page, pageSize := pagination(r)
	result, err := s.store.GetRelayAttempts(r.Context(), queryFilter(r), page, pageSize)
	if err != nil {
		ERROR(w, http.StatusInternalServerError, err)
		return
	}

	JSON(w, http.StatusOK, result)
}
