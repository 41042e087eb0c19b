package relay

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lightlink-network/withdrawal-relayer/crossdomain"
	"github.com/lightlink-network/withdrawal-relayer/types"
)

type ActionKind string

const (
	ActionNoOp     ActionKind = "noop"
	ActionProve    ActionKind = "prove"
	ActionWait     ActionKind = "wait"
	ActionFinalize ActionKind = "finalize"
)

// ReasonAlreadyRelayed is the NoOp reason for finalized withdrawals.
const ReasonAlreadyRelayed = "withdrawal already finalized"

// Action is the single next step for a withdrawal. Message and Withdrawal are
// set for every kind so callers can submit or display them.
type Action struct {
	Kind             ActionKind
	State            types.RelayState
	Reason           string
	WithdrawalHash   common.Hash
	Message          *crossdomain.Message
	Withdrawal       *crossdomain.Withdrawal
	SecondsRemaining uint64
}

func (a Action) String() string {
	switch a.Kind {
	case ActionWait:
		return fmt.Sprintf("%s %s (%ds remaining)", a.Kind, a.WithdrawalHash.Hex(), a.SecondsRemaining)
	case ActionNoOp:
		return fmt.Sprintf("%s %s (%s)", a.Kind, a.WithdrawalHash.Hex(), a.Reason)
	default:
		return fmt.Sprintf("%s %s", a.Kind, a.WithdrawalHash.Hex())
	}
}
