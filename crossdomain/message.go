package crossdomain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type Direction uint8

const (
	L1ToL2 Direction = iota
	L2ToL1
)

func (d Direction) String() string {
	switch d {
	case L1ToL2:
		return "L1_TO_L2"
	case L2ToL1:
		return "L2_TO_L1"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// Message is a cross domain message as sent through the L2CrossDomainMessenger.
// The relay path only supports zero value, default gas messages so Value and
// MinGasLimit are always zero for messages built here.
type Message struct {
	Direction    Direction
	Sender       common.Address
	Target       common.Address
	MessageNonce *big.Int
	Value        *big.Int
	MinGasLimit  uint64
	Message      []byte
}

// BuildMessage derives the canonical L2 to L1 message for an intent. Bridge
// transfers are addressed from the L2StandardBridge to the L1StandardBridge
// with the finalization calldata as payload; raw messages are used verbatim.
func BuildMessage(cfg Config, intent Intent) (*Message, error) {
	msg := &Message{
		Direction:   L2ToL1,
		Value:       new(big.Int),
		MinGasLimit: 0,
	}

	switch in := intent.(type) {
	case *BridgeTransfer:
		if in == nil {
			return nil, &InvalidIntentError{Reason: "nil bridge transfer"}
		}
		data, err := EncodeWithdrawalCall(cfg, in.L1Token, in.L2Token, in.From, in.To, in.Amount, in.ExtraData)
		if err != nil {
			return nil, err
		}
		msg.Sender = cfg.L2StandardBridge
		msg.Target = cfg.L1StandardBridge
		msg.Message = data
	case *RawMessage:
		if in == nil {
			return nil, &InvalidIntentError{Reason: "nil raw message"}
		}
		msg.Sender = in.Sender
		msg.Target = in.Target
		msg.Message = common.CopyBytes(in.Message)
		if msg.Message == nil {
			msg.Message = []byte{}
		}
	default:
		return nil, &InvalidIntentError{Reason: fmt.Sprintf("unrecognized intent %T", intent)}
	}

	if err := checkUint256("message_nonce", intent.Nonce()); err != nil {
		return nil, err
	}
	msg.MessageNonce = new(big.Int).Set(intent.Nonce())
	return msg, nil
}
