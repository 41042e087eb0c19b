package crossdomain

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var ErrUnsupportedNonceVersion = errors.New("unsupported message nonce version")

// EncodingError is returned when an address, amount, nonce or byte string
// cannot be ABI encoded.
type EncodingError struct {
	Field string
	Err   error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("failed to encode %s: %v", e.Field, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// InvalidIntentError is returned when an intent matches neither the bridge
// transfer shape nor the raw message shape.
type InvalidIntentError struct {
	Reason string
}

func (e *InvalidIntentError) Error() string {
	return "invalid withdrawal intent: " + e.Reason
}

// HashMismatchError is returned when a computed withdrawal hash differs from
// a hash known to be correct, such as the one emitted by the
// L2ToL1MessagePasser.
type HashMismatchError struct {
	Expected common.Hash
	Actual   common.Hash
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("withdrawal hash mismatch: expected %s, computed %s", e.Expected.Hex(), e.Actual.Hex())
}
