package crossdomain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// NativeTokenSentinel may be used in place of either token address to refer
// to the native currency of that chain.
const NativeTokenSentinel = "eth"

// Intent is a withdrawal to relay. It is implemented by BridgeTransfer and
// RawMessage only.
type Intent interface {
	Nonce() *big.Int
	isIntent()
}

// BridgeTransfer is an ETH or ERC20 withdrawal initiated through the
// L2StandardBridge.
type BridgeTransfer struct {
	L1Token      common.Address
	L2Token      common.Address
	From         common.Address
	To           common.Address
	Amount       *big.Int
	MessageNonce *big.Int
	ExtraData    []byte
}

func (b *BridgeTransfer) Nonce() *big.Int { return b.MessageNonce }
func (*BridgeTransfer) isIntent()         {}

// RawMessage is an arbitrary cross domain message whose sender, target and
// calldata are already known.
type RawMessage struct {
	Sender       common.Address
	Target       common.Address
	Message      []byte
	MessageNonce *big.Int
}

func (r *RawMessage) Nonce() *big.Int { return r.MessageNonce }
func (*RawMessage) isIntent()         {}

// IntentFields is the loosely typed form of an intent as it is stored in the
// withdrawal registry or received from the command line and the API. Exactly
// one of the two field groups may be set: the token pair for bridge
// transfers, or sender, target and message for raw messages.
type IntentFields struct {
	L1Token      string `json:"l1_token,omitempty" bson:"l1_token,omitempty"`
	L2Token      string `json:"l2_token,omitempty" bson:"l2_token,omitempty"`
	Amount       string `json:"amount,omitempty" bson:"amount,omitempty"`
	From         string `json:"from,omitempty" bson:"from,omitempty"`
	To           string `json:"to,omitempty" bson:"to,omitempty"`
	ExtraData    string `json:"extra_data,omitempty" bson:"extra_data,omitempty"`
	Sender       string `json:"sender,omitempty" bson:"sender,omitempty"`
	Target       string `json:"target,omitempty" bson:"target,omitempty"`
	Message      string `json:"message,omitempty" bson:"message,omitempty"`
	MessageNonce string `json:"message_nonce" bson:"message_nonce"`
}

func (f IntentFields) hasBridgeFields() bool {
	return f.L1Token != "" || f.L2Token != ""
}

func (f IntentFields) hasRawFields() bool {
	return f.Sender != "" || f.Target != "" || f.Message != ""
}

// Parse validates the fields and returns the typed intent. The native token
// sentinel resolves to cfg.L1NativeToken or cfg.L2NativeToken depending on
// the side it is used for.
func (f IntentFields) Parse(cfg Config) (Intent, error) {
	bridge, raw := f.hasBridgeFields(), f.hasRawFields()
	switch {
	case bridge && raw:
		return nil, &InvalidIntentError{Reason: "token fields and raw message fields are mutually exclusive"}
	case !bridge && !raw:
		return nil, &InvalidIntentError{Reason: "either l1_token and l2_token or sender, target and message are required"}
	}

	nonce, err := parseUint256("message_nonce", f.MessageNonce)
	if err != nil {
		return nil, err
	}

	if raw {
		if f.Sender == "" || f.Target == "" || f.Message == "" {
			return nil, &InvalidIntentError{Reason: "sender, target and message must all be set for a raw message"}
		}
		sender, err := parseAddress("sender", f.Sender)
		if err != nil {
			return nil, err
		}
		target, err := parseAddress("target", f.Target)
		if err != nil {
			return nil, err
		}
		message, err := parseBytes("message", f.Message)
		if err != nil {
			return nil, err
		}
		return &RawMessage{Sender: sender, Target: target, Message: message, MessageNonce: nonce}, nil
	}

	if f.L1Token == "" || f.L2Token == "" {
		return nil, &InvalidIntentError{Reason: "l1_token and l2_token must both be set for a bridge transfer"}
	}
	l1Token, err := parseToken("l1_token", f.L1Token, cfg.L1NativeToken)
	if err != nil {
		return nil, err
	}
	l2Token, err := parseToken("l2_token", f.L2Token, cfg.L2NativeToken)
	if err != nil {
		return nil, err
	}
	from, err := parseAddress("from", f.From)
	if err != nil {
		return nil, err
	}
	to, err := parseAddress("to", f.To)
	if err != nil {
		return nil, err
	}
	amount, err := parseUint256("amount", f.Amount)
	if err != nil {
		return nil, err
	}
	extraData, err := parseBytes("extra_data", f.ExtraData)
	if err != nil {
		return nil, err
	}

	return &BridgeTransfer{
		L1Token:      l1Token,
		L2Token:      l2Token,
		From:         from,
		To:           to,
		Amount:       amount,
		MessageNonce: nonce,
		ExtraData:    extraData,
	}, nil
}

func parseToken(field, s string, native common.Address) (common.Address, error) {
	if strings.EqualFold(s, NativeTokenSentinel) {
		return native, nil
	}
	return parseAddress(field, s)
}

func parseAddress(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, &EncodingError{Field: field, Err: fmt.Errorf("invalid address %q", s)}
	}
	return common.HexToAddress(s), nil
}

// parseUint256 accepts decimal or 0x prefixed hex.
func parseUint256(field, s string) (*big.Int, error) {
	if s == "" {
		return nil, &EncodingError{Field: field, Err: fmt.Errorf("value is missing")}
	}
	var (
		v  *big.Int
		ok bool
	)
	if hex, found := strings.CutPrefix(strings.ToLower(s), "0x"); found {
		v, ok = new(big.Int).SetString(hex, 16)
	} else {
		v, ok = new(big.Int).SetString(s, 10)
	}
	if !ok {
		return nil, &EncodingError{Field: field, Err: fmt.Errorf("invalid integer %q", s)}
	}
	if err := checkUint256(field, v); err != nil {
		return nil, err
	}
	return v, nil
}

func parseBytes(field, s string) ([]byte, error) {
	if s == "" {
		return []byte{}, nil
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, &EncodingError{Field: field, Err: err}
	}
	return b, nil
}
