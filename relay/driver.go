package relay

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lightlink-network/withdrawal-relayer/crossdomain"
	"github.com/lightlink-network/withdrawal-relayer/types"
)

// Driver decides the next relay step of a withdrawal. It never submits
// transactions and holds no mutable state, so it is safe for concurrent use.
type Driver struct {
	cfg        crossdomain.Config
	classifier *Classifier
}

func NewDriver(cfg crossdomain.Config, reader ChainReader) *Driver {
	return &Driver{cfg: cfg, classifier: NewClassifier(reader)}
}

// Config returns the encoding constants the driver was created with.
func (d *Driver) Config() crossdomain.Config {
	return d.cfg
}

// Prepare builds the message and low level withdrawal of an intent.
func (d *Driver) Prepare(intent crossdomain.Intent) (*crossdomain.Message, *crossdomain.Withdrawal, common.Hash, error) {
	msg, err := crossdomain.BuildMessage(d.cfg, intent)
	if err != nil {
		return nil, nil, common.Hash{}, err
	}
	w, err := crossdomain.ToLowLevel(d.cfg, msg)
	if err != nil {
		return nil, nil, common.Hash{}, err
	}
	hash, err := w.Hash()
	if err != nil {
		return nil, nil, common.Hash{}, err
	}
	return msg, w, hash, nil
}

// Hash returns the withdrawal hash of an intent without reading the chain.
func (d *Driver) Hash(intent crossdomain.Intent) (common.Hash, error) {
	_, _, hash, err := d.Prepare(intent)
	return hash, err
}

// Evaluate runs a single decision cycle for the intent.
func (d *Driver) Evaluate(ctx context.Context, intent crossdomain.Intent) (Action, error) {
	msg, w, hash, err := d.Prepare(intent)
	if err != nil {
		return Action{}, err
	}

	c, err := d.classifier.Classify(ctx, hash)
	if err != nil {
		return Action{}, err
	}

	action := Action{
		State:          c.State,
		WithdrawalHash: hash,
		Message:        msg,
		Withdrawal:     w,
	}
	switch c.State {
	case types.NotProven:
		action.Kind = ActionProve
	case types.InChallengePeriod:
		action.Kind = ActionWait
		action.SecondsRemaining = c.SecondsRemaining()
	case types.ReadyToFinalize:
		action.Kind = ActionFinalize
	case types.Relayed:
		action.Kind = ActionNoOp
		action.Reason = ReasonAlreadyRelayed
	default:
		return Action{}, fmt.Errorf("unexpected relay state %q", c.State)
	}
	return action, nil
}
