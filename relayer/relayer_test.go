package relayer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/lightlink-network/withdrawal-relayer/crossdomain"
	"github.com/lightlink-network/withdrawal-relayer/database"
	"github.com/lightlink-network/withdrawal-relayer/database/models"
	"github.com/lightlink-network/withdrawal-relayer/notifier"
	"github.com/lightlink-network/withdrawal-relayer/optimism"
	"github.com/lightlink-network/withdrawal-relayer/registry"
	"github.com/lightlink-network/withdrawal-relayer/relay"
)

var (
	addrA = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	addrB = common.HexToAddress("0x00000000000000000000000000000000000000bb")

	ethWithdrawalHash = common.HexToHash("0x830ce8f535c2dcda4f340f41ed70ca57ce38e37b9a9be81ee46e05b937130f58")
	l2TxHash          = common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")
)

// fakeChain is both the L1 reader and the submitter: submitted transactions
// take effect immediately.
type fakeChain struct {
	mu        sync.Mutex
	proven    map[common.Hash]uint64
	finalized map[common.Hash]bool
	now       uint64
	tick      uint64

	proveCalls    int
	finalizeCalls int
	proveErr      error
	confirmErr    error
	proveDelay    time.Duration
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		proven:    make(map[common.Hash]uint64),
		finalized: make(map[common.Hash]bool),
		now:       1000,
	}
}

func (f *fakeChain) ProvenWithdrawal(_ context.Context, hash common.Hash) (relay.ProvenRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return relay.ProvenRecord{Timestamp: f.proven[hash], L2OutputIndex: big.NewInt(0)}, nil
}

func (f *fakeChain) FinalizedWithdrawal(_ context.Context, hash common.Hash) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finalized[hash], nil
}

func (f *fakeChain) ChallengePeriodSeconds(context.Context) (uint64, error) {
	return 604800, nil
}

func (f *fakeChain) L1Timestamp(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now += f.tick
	return f.now, nil
}

func (f *fakeChain) Prove(_ context.Context, w *crossdomain.Withdrawal) (common.Hash, error) {
	if f.proveDelay > 0 {
		time.Sleep(f.proveDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.proveCalls++
	if f.proveErr != nil {
		return common.Hash{}, f.proveErr
	}
	hash, err := w.Hash()
	if err != nil {
		return common.Hash{}, err
	}
	f.proven[hash] = f.now
	return common.HexToHash("0xaa01"), nil
}

func (f *fakeChain) Finalize(_ context.Context, w *crossdomain.Withdrawal) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalizeCalls++
	hash, err := w.Hash()
	if err != nil {
		return common.Hash{}, err
	}
	f.finalized[hash] = true
	return common.HexToHash("0xaa02"), nil
}

func (f *fakeChain) WaitForConfirmation(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	receipt := &types.Receipt{TxHash: txHash, BlockNumber: big.NewInt(42), GasUsed: 21000, Status: types.ReceiptStatusSuccessful}
	if f.confirmErr != nil {
		receipt.Status = types.ReceiptStatusFailed
		return receipt, f.confirmErr
	}
	return receipt, nil
}

type fakeStore struct {
	mu          sync.Mutex
	withdrawals map[string]*models.Withdrawal
	attempts    []models.RelayAttempt
}

func (s *fakeStore) GetWithdrawalByTxHash(_ context.Context, txHash string) (*models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.withdrawals[txHash]
	if !ok {
		return nil, database.ErrNotFound
	}
	return w, nil
}

func (s *fakeStore) SetWithdrawalHash(_ context.Context, txHash, withdrawalHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.withdrawals[txHash].WithdrawalHash = withdrawalHash
	return nil
}

func (s *fakeStore) CreateRelayAttempt(_ context.Context, attempt models.RelayAttempt) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, attempt)
	return "id", nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []notifier.Event
}

func (p *fakePublisher) Publish(_ context.Context, e notifier.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type fakeMessages struct {
	passed []*optimism.MessagePassed
	err    error
}

func (m fakeMessages) MessagesPassed(context.Context, common.Hash) ([]*optimism.MessagePassed, error) {
	return m.passed, m.err
}

func mainnetConfig(t *testing.T) crossdomain.Config {
	n, err := registry.Lookup("op-mainnet")
	require.NoError(t, err)
	return n.Config()
}

func ethFields() crossdomain.IntentFields {
	return crossdomain.IntentFields{
		L1Token:      "eth",
		L2Token:      "eth",
		Amount:       "1000",
		From:         addrA.Hex(),
		To:           addrB.Hex(),
		MessageNonce: "7",
	}
}

// rawFields is a version 1 message, relayed after bedrock.
func rawFields() crossdomain.IntentFields {
	return crossdomain.IntentFields{
		Sender:       addrA.Hex(),
		Target:       addrB.Hex(),
		Message:      "0xdeadbeef",
		MessageNonce: crossdomain.EncodeVersionedNonce(big.NewInt(9), 1).String(),
	}
}

func rawWithdrawalHash(t *testing.T) common.Hash {
	cfg := mainnetConfig(t)
	intent, err := rawFields().Parse(cfg)
	require.NoError(t, err)
	msg, err := crossdomain.BuildMessage(cfg, intent)
	require.NoError(t, err)
	hash, err := crossdomain.HashMessage(cfg, msg)
	require.NoError(t, err)
	return hash
}

func ethIntent(t *testing.T) crossdomain.Intent {
	intent, err := ethFields().Parse(mainnetConfig(t))
	require.NoError(t, err)
	return intent
}

func newTestRelayer(t *testing.T, chain *fakeChain, opts Opts) *Relayer {
	opts.Driver = relay.NewDriver(mainnetConfig(t), chain)
	opts.Submitter = chain
	opts.Network = "op-mainnet"
	opts.Logger = slog.Default()
	r, err := NewRelayer(opts)
	require.NoError(t, err)
	return r
}

func TestNewRelayerRequiresDriver(t *testing.T) {
	_, err := NewRelayer(Opts{})
	require.Error(t, err)
}

func TestStepProve(t *testing.T) {
	chain := newFakeChain()
	store := &fakeStore{}
	publisher := &fakePublisher{}
	r := newTestRelayer(t, chain, Opts{Store: store, Publisher: publisher})

	result, err := r.Step(context.Background(), ethIntent(t))
	require.NoError(t, err)
	require.Equal(t, relay.ActionProve, result.Action.Kind)
	require.Equal(t, ethWithdrawalHash, result.Action.WithdrawalHash)
	require.Equal(t, common.HexToHash("0xaa01"), result.TxHash)
	require.NotNil(t, result.Receipt)

	require.Len(t, store.attempts, 1)
	attempt := store.attempts[0]
	require.Equal(t, ethWithdrawalHash.Hex(), attempt.WithdrawalHash)
	require.Equal(t, "prove", attempt.Action)
	require.Equal(t, "NOT_PROVEN", attempt.State)
	require.Equal(t, common.HexToHash("0xaa01").Hex(), attempt.L1TxHash)
	require.Equal(t, uint64(42), attempt.BlockNumber)
	require.Empty(t, attempt.Error)

	require.Len(t, publisher.events, 1)
	require.Equal(t, "op-mainnet", publisher.events[0].Network)
	require.Equal(t, "prove", publisher.events[0].Action)
}

func TestStepWaitThenFinalize(t *testing.T) {
	chain := newFakeChain()
	chain.proven[ethWithdrawalHash] = 1000
	chain.now = 2000
	r := newTestRelayer(t, chain, Opts{})

	result, err := r.Step(context.Background(), ethIntent(t))
	require.NoError(t, err)
	require.Equal(t, relay.ActionWait, result.Action.Kind)
	require.Equal(t, uint64(603800), result.Action.SecondsRemaining)
	require.Equal(t, common.Hash{}, result.TxHash)

	chain.now = 700000
	result, err = r.Step(context.Background(), ethIntent(t))
	require.NoError(t, err)
	require.Equal(t, relay.ActionFinalize, result.Action.Kind)
	require.Equal(t, common.HexToHash("0xaa02"), result.TxHash)

	result, err = r.Step(context.Background(), ethIntent(t))
	require.NoError(t, err)
	require.Equal(t, relay.ActionNoOp, result.Action.Kind)
	require.Equal(t, relay.ReasonAlreadyRelayed, result.Action.Reason)
	require.Equal(t, 1, chain.finalizeCalls)
}

func TestStepWithoutSubmitter(t *testing.T) {
	chain := newFakeChain()
	r, err := NewRelayer(Opts{Driver: relay.NewDriver(mainnetConfig(t), chain)})
	require.NoError(t, err)

	_, err = r.Step(context.Background(), ethIntent(t))
	require.ErrorIs(t, err, ErrNoSubmitter)
}

func TestStepSubmitError(t *testing.T) {
	chain := newFakeChain()
	chain.proveErr = errors.New("insufficient funds")
	store := &fakeStore{}
	r := newTestRelayer(t, chain, Opts{Store: store})

	_, err := r.Step(context.Background(), ethIntent(t))
	require.ErrorIs(t, err, chain.proveErr)
	require.Len(t, store.attempts, 1)
	require.Contains(t, store.attempts[0].Error, "insufficient funds")
	require.Empty(t, store.attempts[0].L1TxHash)
}

func TestStepReverted(t *testing.T) {
	chain := newFakeChain()
	chain.confirmErr = errors.New("transaction reverted")
	store := &fakeStore{}
	r := newTestRelayer(t, chain, Opts{Store: store})

	result, err := r.Step(context.Background(), ethIntent(t))
	require.ErrorIs(t, err, chain.confirmErr)
	require.Equal(t, common.HexToHash("0xaa01"), result.TxHash)
	require.Len(t, store.attempts, 1)
	require.NotEmpty(t, store.attempts[0].L1TxHash)
	require.NotEmpty(t, store.attempts[0].Error)
}

func TestStepInvalidIntent(t *testing.T) {
	chain := newFakeChain()
	r := newTestRelayer(t, chain, Opts{})

	_, err := r.Step(context.Background(), &crossdomain.RawMessage{Sender: addrA, Target: addrB})
	var encodingErr *crossdomain.EncodingError
	require.ErrorAs(t, err, &encodingErr)
	require.Zero(t, chain.proveCalls)
}

func TestStepConcurrentProvesOnce(t *testing.T) {
	chain := newFakeChain()
	chain.proveDelay = 50 * time.Millisecond
	r := newTestRelayer(t, chain, Opts{})
	intent := ethIntent(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Step(context.Background(), intent)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, 1, chain.proveCalls)
}

func TestRelayUntilDone(t *testing.T) {
	chain := newFakeChain()
	chain.tick = 300000
	r := newTestRelayer(t, chain, Opts{})

	result, err := r.RelayUntilDone(context.Background(), ethIntent(t), 10*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, relay.ActionNoOp, result.Action.Kind)
	require.Equal(t, 1, chain.proveCalls)
	require.Equal(t, 1, chain.finalizeCalls)
}

func TestRelayUntilDoneCancelled(t *testing.T) {
	chain := newFakeChain()
	chain.proven[ethWithdrawalHash] = 1000
	r := newTestRelayer(t, chain, Opts{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result, err := r.RelayUntilDone(ctx, ethIntent(t), time.Hour)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, relay.ActionWait, result.Action.Kind)
}

func TestRelayByTxHash(t *testing.T) {
	chain := newFakeChain()
	store := &fakeStore{withdrawals: map[string]*models.Withdrawal{
		l2TxHash.Hex(): {TxHash: l2TxHash.Hex(), Network: "op-mainnet", IntentFields: rawFields()},
	}}
	hash := rawWithdrawalHash(t)
	messages := fakeMessages{passed: []*optimism.MessagePassed{{WithdrawalHash: hash}}}
	r := newTestRelayer(t, chain, Opts{Store: store, Messages: messages})

	result, err := r.RelayByTxHash(context.Background(), l2TxHash)
	require.NoError(t, err)
	require.Equal(t, relay.ActionProve, result.Action.Kind)
	require.Equal(t, hash.Hex(), store.withdrawals[l2TxHash.Hex()].WithdrawalHash)
	require.Len(t, store.attempts, 1)
	require.Equal(t, l2TxHash.Hex(), store.attempts[0].TxHash)
}

func TestRelayByTxHashLegacySkipsMessagePassed(t *testing.T) {
	chain := newFakeChain()
	store := &fakeStore{withdrawals: map[string]*models.Withdrawal{
		l2TxHash.Hex(): {TxHash: l2TxHash.Hex(), Network: "op-mainnet", IntentFields: ethFields()},
	}}
	// pre-bedrock transactions have no MessagePassed event
	messages := fakeMessages{err: fmt.Errorf("transaction %s: %w", l2TxHash.Hex(), optimism.ErrNoMessagePassed)}
	r := newTestRelayer(t, chain, Opts{Store: store, Messages: messages})

	result, err := r.RelayByTxHash(context.Background(), l2TxHash)
	require.NoError(t, err)
	require.Equal(t, relay.ActionProve, result.Action.Kind)
	require.Equal(t, ethWithdrawalHash, result.Action.WithdrawalHash)
	require.Equal(t, ethWithdrawalHash.Hex(), store.withdrawals[l2TxHash.Hex()].WithdrawalHash)
	require.Equal(t, 1, chain.proveCalls)
}

func TestRelayByTxHashNoMessagePassed(t *testing.T) {
	chain := newFakeChain()
	store := &fakeStore{withdrawals: map[string]*models.Withdrawal{
		l2TxHash.Hex(): {TxHash: l2TxHash.Hex(), IntentFields: rawFields()},
	}}
	r := newTestRelayer(t, chain, Opts{Store: store, Messages: fakeMessages{}})

	_, err := r.RelayByTxHash(context.Background(), l2TxHash)
	require.ErrorIs(t, err, optimism.ErrNoMessagePassed)
	require.Zero(t, chain.proveCalls)
}

func TestRelayByTxHashMismatch(t *testing.T) {
	chain := newFakeChain()
	store := &fakeStore{withdrawals: map[string]*models.Withdrawal{
		l2TxHash.Hex(): {TxHash: l2TxHash.Hex(), IntentFields: rawFields()},
	}}
	other := common.HexToHash("0x1234")
	messages := fakeMessages{passed: []*optimism.MessagePassed{{WithdrawalHash: other}}}
	r := newTestRelayer(t, chain, Opts{Store: store, Messages: messages})

	_, err := r.RelayByTxHash(context.Background(), l2TxHash)
	var mismatch *crossdomain.HashMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, other, mismatch.Expected)
	require.Equal(t, rawWithdrawalHash(t), mismatch.Actual)
	require.Zero(t, chain.proveCalls)
}

func TestRelayByTxHashNotFound(t *testing.T) {
	store := &fakeStore{withdrawals: map[string]*models.Withdrawal{}}
	r := newTestRelayer(t, newFakeChain(), Opts{Store: store})

	_, err := r.RelayByTxHash(context.Background(), l2TxHash)
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestRelayByTxHashNoStore(t *testing.T) {
	r := newTestRelayer(t, newFakeChain(), Opts{})
	_, err := r.RelayByTxHash(context.Background(), l2TxHash)
	require.ErrorIs(t, err, ErrNoStore)
}

func TestErrorKind(t *testing.T) {
	require.Equal(t, "chain_read", errorKind(&relay.ChainReadError{Op: "proven withdrawal", Err: errors.New("x")}))
	require.Equal(t, "invalid_intent", errorKind(&crossdomain.InvalidIntentError{Reason: "x"}))
	require.Equal(t, "hash_mismatch", errorKind(&crossdomain.HashMismatchError{}))
	require.Equal(t, "other", errorKind(errors.New("x")))
}
