package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/lightlink-network/withdrawal-relayer/crossdomain"
	"github.com/lightlink-network/withdrawal-relayer/relay"
)

// WithdrawalTransaction is the Types.WithdrawalTransaction tuple.
type WithdrawalTransaction struct {
	Nonce    *big.Int
	Sender   common.Address
	Target   common.Address
	Value    *big.Int
	GasLimit *big.Int
	Data     []byte
}

// OutputRootProof is the Types.OutputRootProof tuple.
type OutputRootProof struct {
	Version                  [32]byte
	StateRoot                [32]byte
	MessagePasserStorageRoot [32]byte
	LatestBlockhash          [32]byte
}

func NewWithdrawalTransaction(w *crossdomain.Withdrawal) WithdrawalTransaction {
	return WithdrawalTransaction{
		Nonce:    w.Nonce,
		Sender:   w.Sender,
		Target:   w.Target,
		Value:    w.Value,
		GasLimit: w.GasLimit,
		Data:     w.Data,
	}
}

var _ relay.ChainReader = &Client{}

// ProvenWithdrawal reads the provenWithdrawals entry of a withdrawal hash.
func (c *Client) ProvenWithdrawal(ctx context.Context, withdrawalHash common.Hash) (relay.ProvenRecord, error) {
	out, err := c.call(ctx, c.portal, "provenWithdrawals", withdrawalHash)
	if err != nil {
		return relay.ProvenRecord{}, err
	}
	if len(out) != 3 {
		return relay.ProvenRecord{}, fmt.Errorf("unexpected provenWithdrawals result length %d", len(out))
	}

	outputRoot := *abi.ConvertType(out[0], new([32]byte)).(*[32]byte)
	timestamp := *abi.ConvertType(out[1], new(*big.Int)).(**big.Int)
	index := *abi.ConvertType(out[2], new(*big.Int)).(**big.Int)

	return relay.ProvenRecord{
		OutputRoot:    outputRoot,
		Timestamp:     timestamp.Uint64(),
		L2OutputIndex: index,
	}, nil
}

// FinalizedWithdrawal reports whether the portal finalized the withdrawal.
func (c *Client) FinalizedWithdrawal(ctx context.Context, withdrawalHash common.Hash) (bool, error) {
	out, err := c.call(ctx, c.portal, "finalizedWithdrawals", withdrawalHash)
	if err != nil {
		return false, err
	}
	if len(out) != 1 {
		return false, fmt.Errorf("unexpected finalizedWithdrawals result length %d", len(out))
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// ProveWithdrawalTransaction submits the withdrawal together with the
// output root and storage proof it is included under.
func (c *Client) ProveWithdrawalTransaction(ctx context.Context, w *crossdomain.Withdrawal, l2OutputIndex *big.Int, outputRootProof OutputRootProof, withdrawalProof [][]byte) (common.Hash, error) {
	tx, err := c.transact(ctx, "proveWithdrawalTransaction", NewWithdrawalTransaction(w), l2OutputIndex, outputRootProof, withdrawalProof)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to prove withdrawal: %w", err)
	}
	c.logger.Info("submitted prove transaction", "txHash", tx.Hash().Hex(), "l2OutputIndex", l2OutputIndex)
	return tx.Hash(), nil
}

// FinalizeWithdrawalTransaction submits the finalization of a proven
// withdrawal whose challenge period has passed.
func (c *Client) FinalizeWithdrawalTransaction(ctx context.Context, w *crossdomain.Withdrawal) (common.Hash, error) {
	tx, err := c.transact(ctx, "finalizeWithdrawalTransaction", NewWithdrawalTransaction(w))
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to finalize withdrawal: %w", err)
	}
	c.logger.Info("submitted finalize transaction", "txHash", tx.Hash().Hex())
	return tx.Hash(), nil
}

// transact is not retried, a failed send may still have been broadcast.
func (c *Client) transact(ctx context.Context, method string, args ...interface{}) (*types.Transaction, error) {
	if c.signer == nil {
		return nil, ErrNoSigner
	}
	opts := *c.signer
	opts.Context = ctx
	return c.portal.Transact(&opts, method, args...)
}
