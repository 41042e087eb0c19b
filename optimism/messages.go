package optimism

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/lightlink-network/withdrawal-relayer/crossdomain"
)

var (
	SentMessageEventABI     = "SentMessage(address,address,bytes,uint256,uint256)"
	SentMessageEventABIHash = crypto.Keccak256Hash([]byte(SentMessageEventABI))

	SentMessageExtension1ABI     = "SentMessageExtension1(address,uint256)"
	SentMessageExtension1ABIHash = crypto.Keccak256Hash([]byte(SentMessageExtension1ABI))

	MessagePassedEventABI     = "MessagePassed(uint256,address,address,uint256,uint256,bytes,bytes32)"
	MessagePassedEventABIHash = crypto.Keccak256Hash([]byte(MessagePassedEventABI))

	ErrNoMessagePassed = errors.New("unable to find MessagePassed event")
	ErrNoSentMessage   = errors.New("unable to find SentMessage event")
)

const eventsABIJSON = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "uint256", "name": "nonce", "type": "uint256"},
			{"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
			{"indexed": true, "internalType": "address", "name": "target", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "value", "type": "uint256"},
			{"indexed": false, "internalType": "uint256", "name": "gasLimit", "type": "uint256"},
			{"indexed": false, "internalType": "bytes", "name": "data", "type": "bytes"},
			{"indexed": false, "internalType": "bytes32", "name": "withdrawalHash", "type": "bytes32"}
		],
		"name": "MessagePassed",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "target", "type": "address"},
			{"indexed": false, "internalType": "address", "name": "sender", "type": "address"},
			{"indexed": false, "internalType": "bytes", "name": "message", "type": "bytes"},
			{"indexed": false, "internalType": "uint256", "name": "messageNonce", "type": "uint256"},
			{"indexed": false, "internalType": "uint256", "name": "gasLimit", "type": "uint256"}
		],
		"name": "SentMessage",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "value", "type": "uint256"}
		],
		"name": "SentMessageExtension1",
		"type": "event"
	}
]`

// MessagePassed is a withdrawal registered in the L2ToL1MessagePasser.
type MessagePassed struct {
	Nonce          *big.Int
	Sender         common.Address
	Target         common.Address
	Value          *big.Int
	GasLimit       *big.Int
	Data           []byte
	WithdrawalHash [32]byte
	BlockNumber    uint64
}

// Withdrawal returns the low level withdrawal the event was emitted for.
func (m *MessagePassed) Withdrawal() *crossdomain.Withdrawal {
	return &crossdomain.Withdrawal{
		Nonce:    m.Nonce,
		Sender:   m.Sender,
		Target:   m.Target,
		Value:    m.Value,
		GasLimit: m.GasLimit,
		Data:     m.Data,
	}
}

// SentMessage is a message sent through the L2CrossDomainMessenger.
type SentMessage struct {
	Target       common.Address
	Sender       common.Address
	Message      []byte
	MessageNonce *big.Int
	GasLimit     *big.Int
	Value        *big.Int
}

// Intent returns the message as a raw message intent. Raw intents carry no
// gas limit or value, so messages sent with either are rejected instead of
// hashing to a withdrawal that was never passed.
func (m *SentMessage) Intent() (*crossdomain.RawMessage, error) {
	if m.GasLimit != nil && m.GasLimit.Sign() != 0 {
		return nil, &crossdomain.InvalidIntentError{Reason: fmt.Sprintf("message %s has gas limit %s, raw intents relay with zero", m.MessageNonce, m.GasLimit)}
	}
	if m.Value != nil && m.Value.Sign() != 0 {
		return nil, &crossdomain.InvalidIntentError{Reason: fmt.Sprintf("message %s carries value %s, raw intents relay with zero", m.MessageNonce, m.Value)}
	}
	return &crossdomain.RawMessage{
		Sender:       m.Sender,
		Target:       m.Target,
		Message:      m.Message,
		MessageNonce: m.MessageNonce,
	}, nil
}

// ParseMessagesPassed returns the MessagePassed events emitted by passer in
// the receipt.
func ParseMessagesPassed(eventsABI abi.ABI, receipt *types.Receipt, passer common.Address) ([]*MessagePassed, error) {
	var events []*MessagePassed
	for _, log := range receipt.Logs {
		if log.Address != passer || len(log.Topics) != 4 || log.Topics[0] != MessagePassedEventABIHash {
			continue
		}

		ev := &MessagePassed{
			Nonce:       new(big.Int).SetBytes(log.Topics[1].Bytes()),
			Sender:      common.BytesToAddress(log.Topics[2].Bytes()),
			Target:      common.BytesToAddress(log.Topics[3].Bytes()),
			BlockNumber: log.BlockNumber,
		}
		if err := eventsABI.UnpackIntoInterface(ev, "MessagePassed", log.Data); err != nil {
			return nil, fmt.Errorf("failed to unpack MessagePassed: %w", err)
		}
		events = append(events, ev)
	}
	if len(events) == 0 {
		return nil, ErrNoMessagePassed
	}
	return events, nil
}

// ParseSentMessages returns the SentMessage events emitted by messenger in
// the receipt, with the value of the matching SentMessageExtension1 event.
func ParseSentMessages(eventsABI abi.ABI, receipt *types.Receipt, messenger common.Address) ([]*SentMessage, error) {
	var messages []*SentMessage
	for _, log := range receipt.Logs {
		if log.Address != messenger || len(log.Topics) == 0 {
			continue
		}

		switch log.Topics[0] {
		case SentMessageEventABIHash:
			if len(log.Topics) != 2 {
				continue
			}
			msg := &SentMessage{
				Target: common.BytesToAddress(log.Topics[1].Bytes()),
				Value:  new(big.Int),
			}
			if err := eventsABI.UnpackIntoInterface(msg, "SentMessage", log.Data); err != nil {
				return nil, fmt.Errorf("failed to unpack SentMessage: %w", err)
			}
			messages = append(messages, msg)
		case SentMessageExtension1ABIHash:
			// the extension directly follows the message it belongs to
			if len(messages) == 0 {
				continue
			}
			var ext struct{ Value *big.Int }
			if err := eventsABI.UnpackIntoInterface(&ext, "SentMessageExtension1", log.Data); err != nil {
				return nil, fmt.Errorf("failed to unpack SentMessageExtension1: %w", err)
			}
			messages[len(messages)-1].Value = ext.Value
		}
	}
	if len(messages) == 0 {
		return nil, ErrNoSentMessage
	}
	return messages, nil
}

// MessagesPassed fetches the receipt of an L2 transaction and returns the
// withdrawals it initiated.
func (c *Client) MessagesPassed(ctx context.Context, txHash common.Hash) ([]*MessagePassed, error) {
	receipt, err := c.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction receipt on l2: %w", err)
	}
	return ParseMessagesPassed(c.eventsABI, receipt, c.Opts.L2ToL1MessagePasserAddress)
}

// SentMessages fetches the receipt of an L2 transaction and returns the
// cross domain messages it sent.
func (c *Client) SentMessages(ctx context.Context, txHash common.Hash) ([]*SentMessage, error) {
	receipt, err := c.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction receipt on l2: %w", err)
	}
	return ParseSentMessages(c.eventsABI, receipt, c.Opts.L2CrossDomainMessengerAddress)
}
