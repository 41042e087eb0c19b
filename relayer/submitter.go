package relayer

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/lightlink-network/withdrawal-relayer/crossdomain"
	"github.com/lightlink-network/withdrawal-relayer/ethereum"
	"github.com/lightlink-network/withdrawal-relayer/optimism"
)

// Submitter sends the L1 transactions of a relay step.
type Submitter interface {
	Prove(ctx context.Context, w *crossdomain.Withdrawal) (common.Hash, error)
	Finalize(ctx context.Context, w *crossdomain.Withdrawal) (common.Hash, error)
	WaitForConfirmation(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

var _ Submitter = &ChainSubmitter{}

// ChainSubmitter proves against the latest L2 output proposal and finalizes
// through the OptimismPortal.
type ChainSubmitter struct {
	L1 *ethereum.Client
	L2 *optimism.Client
}

func (s *ChainSubmitter) Prove(ctx context.Context, w *crossdomain.Withdrawal) (common.Hash, error) {
	slot, err := w.StorageSlot()
	if err != nil {
		return common.Hash{}, err
	}

	index, err := s.L1.LatestOutputIndex(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get latest output index: %w", err)
	}
	output, err := s.L1.L2Output(ctx, index)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get l2 output %s: %w", index, err)
	}

	header, err := s.L2.HeaderByNumber(ctx, output.L2BlockNumber)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get l2 header %s: %w", output.L2BlockNumber, err)
	}
	proof, storageRoot, err := s.L2.WithdrawalProof(ctx, slot, header)
	if err != nil {
		return common.Hash{}, err
	}

	outputRootProof, err := BuildOutputRootProof(header, storageRoot, output.OutputRoot)
	if err != nil {
		return common.Hash{}, err
	}
	return s.L1.ProveWithdrawalTransaction(ctx, w, index, outputRootProof, proof)
}

func (s *ChainSubmitter) Finalize(ctx context.Context, w *crossdomain.Withdrawal) (common.Hash, error) {
	return s.L1.FinalizeWithdrawalTransaction(ctx, w)
}

func (s *ChainSubmitter) WaitForConfirmation(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return s.L1.WaitForConfirmation(ctx, txHash)
}

// BuildOutputRootProof assembles the version 0 output root proof of an L2
// block and checks it hashes to the proposed output root.
func BuildOutputRootProof(header *types.Header, messagePasserStorageRoot common.Hash, proposed common.Hash) (ethereum.OutputRootProof, error) {
	computed := optimism.OutputRoot(header, messagePasserStorageRoot)
	if computed != proposed {
		return ethereum.OutputRootProof{}, fmt.Errorf("output root mismatch at l2 block %s: proposed %s, computed %s",
			header.Number, proposed.Hex(), computed.Hex())
	}
	return ethereum.OutputRootProof{
		StateRoot:                header.Root,
		MessagePasserStorageRoot: messagePasserStorageRoot,
		LatestBlockhash:          header.Hash(),
	}, nil
}
