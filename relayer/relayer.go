package relayer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/singleflight"

	"github.com/lightlink-network/withdrawal-relayer/crossdomain"
	"github.com/lightlink-network/withdrawal-relayer/database/models"
	"github.com/lightlink-network/withdrawal-relayer/metrics"
	"github.com/lightlink-network/withdrawal-relayer/notifier"
	"github.com/lightlink-network/withdrawal-relayer/optimism"
	"github.com/lightlink-network/withdrawal-relayer/relay"
)

const (
	DefaultConfirmTimeout = 5 * time.Minute
	DefaultPollInterval   = time.Minute
)

var (
	ErrNoSubmitter = errors.New("relayer has no transaction submitter")
	ErrNoStore     = errors.New("relayer has no withdrawal store")
)

// Store is the withdrawal registry and relay attempt log.
type Store interface {
	GetWithdrawalByTxHash(ctx context.Context, txHash string) (*models.Withdrawal, error)
	SetWithdrawalHash(ctx context.Context, txHash, withdrawalHash string) error
	CreateRelayAttempt(ctx context.Context, attempt models.RelayAttempt) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, e notifier.Event) error
}

// MessageSource returns the withdrawals registered by an L2 transaction.
type MessageSource interface {
	MessagesPassed(ctx context.Context, txHash common.Hash) ([]*optimism.MessagePassed, error)
}

// Relayer carries withdrawals through the relay steps decided by a
// relay.Driver, submitting at most one L1 transaction per step. Concurrent
// steps for the same withdrawal hash share a single execution.
type Relayer struct {
	driver         *relay.Driver
	submitter      Submitter
	store          Store
	publisher      Publisher
	messages       MessageSource
	network        string
	confirmTimeout time.Duration
	logger         *slog.Logger
	group          singleflight.Group
}

type Opts struct {
	Driver    *relay.Driver
	Submitter Submitter
	// optional
	Store          Store
	Publisher      Publisher
	Messages       MessageSource
	Network        string
	ConfirmTimeout time.Duration
	Logger         *slog.Logger
}

func NewRelayer(opts Opts) (*Relayer, error) {
	if opts.Driver == nil {
		return nil, errors.New("relay driver is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ConfirmTimeout == 0 {
		opts.ConfirmTimeout = DefaultConfirmTimeout
	}

	return &Relayer{
		driver:         opts.Driver,
		submitter:      opts.Submitter,
		store:          opts.Store,
		publisher:      opts.Publisher,
		messages:       opts.Messages,
		network:        opts.Network,
		confirmTimeout: opts.ConfirmTimeout,
		logger:         opts.Logger.With("network", opts.Network),
	}, nil
}

// Result is the outcome of one relay step. TxHash and Receipt are only set
// when a prove or finalize transaction was submitted.
type Result struct {
	Action  relay.Action
	TxHash  common.Hash
	Receipt *types.Receipt
}

func (r *Relayer) Driver() *relay.Driver {
	return r.driver
}

// Evaluate decides the next step without submitting anything.
func (r *Relayer) Evaluate(ctx context.Context, intent crossdomain.Intent) (relay.Action, error) {
	action, err := r.driver.Evaluate(ctx, intent)
	if err != nil {
		metrics.Errors.WithLabelValues(r.network, errorKind(err)).Inc()
		return relay.Action{}, err
	}
	metrics.Evaluations.WithLabelValues(r.network, action.State.String()).Inc()
	return action, nil
}

// Step evaluates the withdrawal and performs the decided action.
func (r *Relayer) Step(ctx context.Context, intent crossdomain.Intent) (Result, error) {
	return r.step(ctx, intent, "")
}

func (r *Relayer) step(ctx context.Context, intent crossdomain.Intent, l2TxHash string) (Result, error) {
	hash, err := r.driver.Hash(intent)
	if err != nil {
		metrics.Errors.WithLabelValues(r.network, errorKind(err)).Inc()
		return Result{}, err
	}

	v, err, shared := r.group.Do(hash.Hex(), func() (interface{}, error) {
		return r.execute(ctx, intent, l2TxHash)
	})
	if shared {
		r.logger.Debug("joined in-flight relay step", "withdrawalHash", hash.Hex())
	}
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (r *Relayer) execute(ctx context.Context, intent crossdomain.Intent, l2TxHash string) (Result, error) {
	action, err := r.Evaluate(ctx, intent)
	if err != nil {
		return Result{}, err
	}
	metrics.Actions.WithLabelValues(r.network, string(action.Kind)).Inc()
	r.logger.Info("evaluated withdrawal", "withdrawalHash", action.WithdrawalHash.Hex(), "state", action.State, "action", action.Kind)

	result := Result{Action: action}
	if action.Kind != relay.ActionProve && action.Kind != relay.ActionFinalize {
		r.record(ctx, result, l2TxHash, nil)
		return result, nil
	}
	if r.submitter == nil {
		return result, ErrNoSubmitter
	}

	var txHash common.Hash
	if action.Kind == relay.ActionProve {
		txHash, err = r.submitter.Prove(ctx, action.Withdrawal)
	} else {
		txHash, err = r.submitter.Finalize(ctx, action.Withdrawal)
	}
	if err != nil {
		err = fmt.Errorf("failed to submit %s transaction: %w", action.Kind, err)
		metrics.Transactions.WithLabelValues(r.network, string(action.Kind), "failed").Inc()
		metrics.Errors.WithLabelValues(r.network, "submit").Inc()
		r.record(ctx, result, l2TxHash, err)
		return result, err
	}
	result.TxHash = txHash

	start := time.Now()
	waitCtx, cancel := context.WithTimeout(ctx, r.confirmTimeout)
	receipt, err := r.submitter.WaitForConfirmation(waitCtx, txHash)
	cancel()
	result.Receipt = receipt
	if err != nil {
		status := "unconfirmed"
		if receipt != nil {
			status = "reverted"
		}
		err = fmt.Errorf("failed to confirm %s transaction %s: %w", action.Kind, txHash.Hex(), err)
		metrics.Transactions.WithLabelValues(r.network, string(action.Kind), status).Inc()
		metrics.Errors.WithLabelValues(r.network, "confirm").Inc()
		r.record(ctx, result, l2TxHash, err)
		return result, err
	}

	metrics.ConfirmationDuration.WithLabelValues(r.network, string(action.Kind)).Observe(time.Since(start).Seconds())
	metrics.Transactions.WithLabelValues(r.network, string(action.Kind), "confirmed").Inc()
	r.record(ctx, result, l2TxHash, nil)
	return result, nil
}

// record stores and publishes the step. Failures are logged, the step
// outcome stands on its own.
func (r *Relayer) record(ctx context.Context, result Result, l2TxHash string, stepErr error) {
	action := result.Action
	attempt := models.RelayAttempt{
		WithdrawalHash:   action.WithdrawalHash.Hex(),
		TxHash:           l2TxHash,
		Network:          r.network,
		Action:           string(action.Kind),
		State:            action.State.String(),
		SecondsRemaining: action.SecondsRemaining,
		CreatedAt:        time.Now().UTC(),
	}
	if result.TxHash != (common.Hash{}) {
		attempt.L1TxHash = result.TxHash.Hex()
	}
	if result.Receipt != nil {
		attempt.GasUsed = result.Receipt.GasUsed
		if result.Receipt.BlockNumber != nil {
			attempt.BlockNumber = result.Receipt.BlockNumber.Uint64()
		}
	}
	if stepErr != nil {
		attempt.Error = stepErr.Error()
	}

	if r.store != nil {
		if _, err := r.store.CreateRelayAttempt(ctx, attempt); err != nil {
			r.logger.Error("failed to record relay attempt", "withdrawalHash", attempt.WithdrawalHash, "error", err)
		}
	}

	if r.publisher != nil {
		event := notifier.Event{
			Network:          attempt.Network,
			WithdrawalHash:   attempt.WithdrawalHash,
			TxHash:           attempt.TxHash,
			Action:           attempt.Action,
			State:            attempt.State,
			L1TxHash:         attempt.L1TxHash,
			SecondsRemaining: attempt.SecondsRemaining,
			Error:            attempt.Error,
			Timestamp:        attempt.CreatedAt,
		}
		if err := r.publisher.Publish(ctx, event); err != nil {
			r.logger.Error("failed to publish relay event", "withdrawalHash", attempt.WithdrawalHash, "error", err)
		}
	}
}

// LoadIntent reads the registry record of an L2 transaction and parses its
// intent.
func (r *Relayer) LoadIntent(ctx context.Context, txHash common.Hash) (*models.Withdrawal, crossdomain.Intent, error) {
	if r.store == nil {
		return nil, nil, ErrNoStore
	}
	record, err := r.store.GetWithdrawalByTxHash(ctx, txHash.Hex())
	if err != nil {
		return nil, nil, err
	}
	intent, err := record.IntentFields.Parse(r.driver.Config())
	if err != nil {
		return record, nil, err
	}
	return record, intent, nil
}

// RelayByTxHash relays the withdrawal registered for an L2 transaction. When
// a message source is configured the computed hash of a version 1 message is
// checked against the MessagePassed events of the transaction first. Legacy
// transactions predate the L2ToL1MessagePasser and emit none.
func (r *Relayer) RelayByTxHash(ctx context.Context, txHash common.Hash) (Result, error) {
	record, intent, err := r.LoadIntent(ctx, txHash)
	if err != nil {
		return Result{}, err
	}

	_, w, hash, err := r.driver.Prepare(intent)
	if err != nil {
		return Result{}, err
	}
	if _, version := crossdomain.DecodeVersionedNonce(w.Nonce); r.messages != nil && version > 0 {
		if err := r.verifyMessagePassed(ctx, txHash, w); err != nil {
			metrics.Errors.WithLabelValues(r.network, errorKind(err)).Inc()
			return Result{}, err
		}
	}
	if record.WithdrawalHash != hash.Hex() {
		if err := r.store.SetWithdrawalHash(ctx, record.TxHash, hash.Hex()); err != nil {
			r.logger.Warn("failed to store withdrawal hash", "txHash", record.TxHash, "error", err)
		}
	}

	return r.step(ctx, intent, record.TxHash)
}

func (r *Relayer) verifyMessagePassed(ctx context.Context, txHash common.Hash, w *crossdomain.Withdrawal) error {
	passed, err := r.messages.MessagesPassed(ctx, txHash)
	if err != nil {
		return fmt.Errorf("failed to get withdrawals of %s: %w", txHash.Hex(), err)
	}

	var mismatch error
	for _, m := range passed {
		err := crossdomain.VerifyHash(w, m.WithdrawalHash)
		if err == nil {
			return nil
		}
		if mismatch == nil {
			mismatch = err
		}
	}
	if mismatch == nil {
		return fmt.Errorf("transaction %s: %w", txHash.Hex(), optimism.ErrNoMessagePassed)
	}
	return mismatch
}

// RelayUntilDone steps the withdrawal until it is relayed. While the
// withdrawal is in its challenge period it sleeps interval, or the remaining
// time when that is shorter.
func (r *Relayer) RelayUntilDone(ctx context.Context, intent crossdomain.Intent, interval time.Duration) (Result, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	for {
		result, err := r.Step(ctx, intent)
		if err != nil {
			return result, err
		}
		if result.Action.Kind == relay.ActionNoOp {
			return result, nil
		}
		if result.Action.Kind != relay.ActionWait {
			continue
		}

		wait := interval
		if remaining := time.Duration(result.Action.SecondsRemaining) * time.Second; remaining > 0 && remaining < wait {
			wait = remaining
		}
		r.logger.Info("waiting for challenge period", "withdrawalHash", result.Action.WithdrawalHash.Hex(),
			"secondsRemaining", result.Action.SecondsRemaining, "next", wait)

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(wait):
		}
	}
}

func errorKind(err error) string {
	var (
		readErr     *relay.ChainReadError
		encodingErr *crossdomain.EncodingError
		intentErr   *crossdomain.InvalidIntentError
		mismatchErr *crossdomain.HashMismatchError
	)
	switch {
	case errors.As(err, &readErr):
		return "chain_read"
	case errors.As(err, &encodingErr), errors.As(err, &intentErr):
		return "invalid_intent"
	case errors.As(err, &mismatchErr):
		return "hash_mismatch"
	default:
		return "other"
	}
}
