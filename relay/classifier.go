package relay

import (
	"context"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lightlink-network/withdrawal-relayer/types"
)

// ProvenRecord is the OptimismPortal provenWithdrawals entry of a withdrawal.
// A zero Timestamp means the withdrawal was never proven.
type ProvenRecord struct {
	OutputRoot    common.Hash
	Timestamp     uint64
	L2OutputIndex *big.Int
}

// ChainReader reads the L1 state the classifier decides on.
type ChainReader interface {
	ProvenWithdrawal(ctx context.Context, withdrawalHash common.Hash) (ProvenRecord, error)
	FinalizedWithdrawal(ctx context.Context, withdrawalHash common.Hash) (bool, error)
	ChallengePeriodSeconds(ctx context.Context) (uint64, error)
	L1Timestamp(ctx context.Context) (uint64, error)
}

// Classify determines the relay state from the portal records. A proven
// withdrawal stays in its challenge period while
// timestamp + challengePeriod > now, compared without overflowing.
func Classify(record ProvenRecord, finalized bool, challengePeriod, now uint64) types.RelayState {
	switch {
	case record.Timestamp == 0:
		return types.NotProven
	case finalized:
		return types.Relayed
	case now < record.Timestamp || now-record.Timestamp < challengePeriod:
		return types.InChallengePeriod
	default:
		return types.ReadyToFinalize
	}
}

// Classification is the outcome of a Classifier read.
type Classification struct {
	State           types.RelayState
	Proven          ProvenRecord
	ChallengePeriod uint64
	L1Timestamp     uint64
}

// SecondsRemaining is the time left in the challenge period, zero outside of it.
func (c Classification) SecondsRemaining() uint64 {
	if c.State != types.InChallengePeriod {
		return 0
	}
	if c.L1Timestamp < c.Proven.Timestamp {
		ahead := c.Proven.Timestamp - c.L1Timestamp
		if ahead > math.MaxUint64-c.ChallengePeriod {
			return math.MaxUint64
		}
		return c.ChallengePeriod + ahead
	}
	elapsed := c.L1Timestamp - c.Proven.Timestamp
	if elapsed >= c.ChallengePeriod {
		return 0
	}
	return c.ChallengePeriod - elapsed
}

// Classifier reads a withdrawal's records from L1 and classifies them.
type Classifier struct {
	reader ChainReader
}

func NewClassifier(reader ChainReader) *Classifier {
	return &Classifier{reader: reader}
}

// Classify reads the proven record of the withdrawal and, only when it was
// proven, the finalized flag, challenge period and current L1 timestamp.
func (c *Classifier) Classify(ctx context.Context, withdrawalHash common.Hash) (Classification, error) {
	proven, err := c.reader.ProvenWithdrawal(ctx, withdrawalHash)
	if err != nil {
		return Classification{}, &ChainReadError{Op: "proven withdrawal", Hash: withdrawalHash, Err: err}
	}
	if proven.Timestamp == 0 {
		return Classification{State: types.NotProven, Proven: proven}, nil
	}

	finalized, err := c.reader.FinalizedWithdrawal(ctx, withdrawalHash)
	if err != nil {
		return Classification{}, &ChainReadError{Op: "finalized withdrawal", Hash: withdrawalHash, Err: err}
	}
	period, err := c.reader.ChallengePeriodSeconds(ctx)
	if err != nil {
		return Classification{}, &ChainReadError{Op: "challenge period", Hash: withdrawalHash, Err: err}
	}
	now, err := c.reader.L1Timestamp(ctx)
	if err != nil {
		return Classification{}, &ChainReadError{Op: "l1 timestamp", Hash: withdrawalHash, Err: err}
	}

	return Classification{
		State:           Classify(proven, finalized, period, now),
		Proven:          proven,
		ChallengePeriod: period,
		L1Timestamp:     now,
	}, nil
}
