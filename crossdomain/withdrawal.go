package crossdomain

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/lmittmann/w3"
)

// RelayMessage is the bedrock L1CrossDomainMessenger relay entry point. Every
// withdrawal, migrated legacy ones included, calls it.
var RelayMessage = w3.MustNewFunc("relayMessage(uint256 _nonce, address _sender, address _target, uint256 _value, uint256 _minGasLimit, bytes _message)", "")

// Gas accounting constants of the CrossDomainMessenger.
const (
	RelayConstantOverhead            uint64 = 200_000
	RelayPerByteDataCost             uint64 = 16
	MinGasDynamicOverheadNumerator   uint64 = 64
	MinGasDynamicOverheadDenominator uint64 = 63
	RelayCallOverhead                uint64 = 40_000
	RelayReservedGas                 uint64 = 40_000
	RelayGasCheckBuffer              uint64 = 5_000

	maxMigratedGasLimit uint64 = 25_000_000
	goerliL2ChainID            = 420
)

// Standard ABI types copied from golang ABI tests
var (
	Uint256Type, _ = abi.NewType("uint256", "", nil)
	BytesType, _   = abi.NewType("bytes", "", nil)
	AddressType, _ = abi.NewType("address", "", nil)
	Bytes32Type, _ = abi.NewType("bytes32", "", nil)

	withdrawalArgs = abi.Arguments{
		{Name: "nonce", Type: Uint256Type},
		{Name: "sender", Type: AddressType},
		{Name: "target", Type: AddressType},
		{Name: "value", Type: Uint256Type},
		{Name: "gasLimit", Type: Uint256Type},
		{Name: "data", Type: BytesType},
	}

	storageSlotArgs = abi.Arguments{
		{Name: "hash", Type: Bytes32Type},
		{Name: "slot", Type: Uint256Type},
	}

	finalizeETHWithdrawalArgs = abi.Arguments{
		{Name: "_from", Type: AddressType},
		{Name: "_to", Type: AddressType},
		{Name: "_amount", Type: Uint256Type},
		{Name: "_extraData", Type: BytesType},
	}
)

var nonceMask = new(big.Int).Sub(new(big.Int).Lsh(common.Big1, 240), common.Big1)

// Withdrawal is the low level withdrawal transaction passed to the
// OptimismPortal. Its hash is the key of the portal's proven and finalized
// withdrawal mappings.
type Withdrawal struct {
	Nonce    *big.Int
	Sender   common.Address
	Target   common.Address
	Value    *big.Int
	GasLimit *big.Int
	Data     []byte
}

// EncodeVersionedNonce packs a message version into the upper two bytes of
// a nonce.
func EncodeVersionedNonce(nonce *big.Int, version uint16) *big.Int {
	v := new(big.Int).Lsh(new(big.Int).SetUint64(uint64(version)), 240)
	return v.Or(v, new(big.Int).And(nonce, nonceMask))
}

// DecodeVersionedNonce splits a versioned nonce into the nonce and its
// version.
func DecodeVersionedNonce(versioned *big.Int) (*big.Int, uint16) {
	version := new(big.Int).Rsh(versioned, 240)
	return new(big.Int).And(versioned, nonceMask), uint16(version.Uint64())
}

// MigratedWithdrawalGasLimit computes the gas limit that the bedrock
// migration assigned to legacy withdrawals with the given relay calldata.
func MigratedWithdrawalGasLimit(data []byte, l2ChainID *big.Int) uint64 {
	dataCost := uint64(len(data)) * RelayPerByteDataCost

	var overhead uint64
	if l2ChainID != nil && l2ChainID.Cmp(big.NewInt(goerliL2ChainID)) == 0 {
		overhead = 200_000
	} else {
		// Migrated withdrawals were simulated with a 1 million gas budget.
		dynamicOverhead := MinGasDynamicOverheadNumerator * 1_000_000 / MinGasDynamicOverheadDenominator
		overhead = RelayConstantOverhead + dynamicOverhead + RelayCallOverhead + RelayReservedGas + RelayGasCheckBuffer
	}

	gasLimit := dataCost + overhead
	if gasLimit > maxMigratedGasLimit {
		gasLimit = maxMigratedGasLimit
	}
	return gasLimit
}

// BaseGas is the gas limit the L2CrossDomainMessenger forwards to the
// L2ToL1MessagePasser for a message with the given payload and minimum gas
// limit.
func BaseGas(message []byte, minGasLimit uint64) uint64 {
	return RelayConstantOverhead +
		uint64(len(message))*RelayPerByteDataCost +
		minGasLimit*MinGasDynamicOverheadNumerator/MinGasDynamicOverheadDenominator +
		RelayCallOverhead +
		RelayReservedGas +
		RelayGasCheckBuffer
}

// ToLowLevel converts an L2 to L1 message into the withdrawal transaction
// that was registered in the L2ToL1MessagePasser for it. Legacy (version 0)
// messages are wrapped the way the bedrock migration wrapped them: the
// bedrock relayMessage with a zero minimum gas limit and a computed gas limit.
func ToLowLevel(cfg Config, msg *Message) (*Withdrawal, error) {
	if msg == nil {
		return nil, &EncodingError{Field: "message", Err: errors.New("message is missing")}
	}
	if msg.Direction != L2ToL1 {
		return nil, &EncodingError{Field: "direction", Err: fmt.Errorf("cannot convert %s message to a withdrawal", msg.Direction)}
	}
	if err := checkUint256("message_nonce", msg.MessageNonce); err != nil {
		return nil, err
	}
	value := msg.Value
	if value == nil {
		value = new(big.Int)
	}
	if err := checkUint256("value", value); err != nil {
		return nil, err
	}
	payload := msg.Message
	if payload == nil {
		payload = []byte{}
	}

	var (
		data     []byte
		gasLimit uint64
		err      error
	)
	_, version := DecodeVersionedNonce(msg.MessageNonce)
	switch version {
	case 0:
		if v, ok := legacyETHValue(cfg, msg); ok {
			value = v
		}
		data, err = RelayMessage.EncodeArgs(msg.MessageNonce, msg.Sender, msg.Target, value, new(big.Int), payload)
		if err != nil {
			return nil, &EncodingError{Field: "relay message", Err: err}
		}
		gasLimit = MigratedWithdrawalGasLimit(data, cfg.L2ChainID)
	case 1:
		data, err = RelayMessage.EncodeArgs(msg.MessageNonce, msg.Sender, msg.Target, value, new(big.Int).SetUint64(msg.MinGasLimit), payload)
		if err != nil {
			return nil, &EncodingError{Field: "relay message", Err: err}
		}
		gasLimit = BaseGas(payload, msg.MinGasLimit)
	default:
		return nil, &EncodingError{Field: "message_nonce", Err: fmt.Errorf("%w: %d", ErrUnsupportedNonceVersion, version)}
	}

	return &Withdrawal{
		Nonce:    new(big.Int).Set(msg.MessageNonce),
		Sender:   cfg.L2CrossDomainMessenger,
		Target:   cfg.L1CrossDomainMessenger,
		Value:    new(big.Int).Set(value),
		GasLimit: new(big.Int).SetUint64(gasLimit),
		Data:     data,
	}, nil
}

// legacyETHValue returns the amount of a legacy ETH withdrawal. Those carried
// no message value before bedrock, the ETH is released by the portal.
func legacyETHValue(cfg Config, msg *Message) (*big.Int, bool) {
	if msg.Sender != cfg.L2StandardBridge || msg.Target != cfg.L1StandardBridge {
		return nil, false
	}
	selector := FinalizeETHWithdrawal.Selector
	if !bytes.HasPrefix(msg.Message, selector[:]) {
		return nil, false
	}
	args, err := finalizeETHWithdrawalArgs.Unpack(msg.Message[len(selector):])
	if err != nil || len(args) != len(finalizeETHWithdrawalArgs) {
		return nil, false
	}
	amount, ok := args[2].(*big.Int)
	return amount, ok
}

// Hash computes keccak256(abi.encode(nonce, sender, target, value, gasLimit, data)),
// the hash the OptimismPortal keys withdrawals by.
func (w *Withdrawal) Hash() (common.Hash, error) {
	enc, err := withdrawalArgs.Pack(w.Nonce, w.Sender, w.Target, w.Value, w.GasLimit, w.Data)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack for withdrawal hash: %w", err)
	}
	return crypto.Keccak256Hash(enc), nil
}

// StorageSlot determines the storage slot of the L2ToL1MessagePasser
// sentMessages mapping that records this withdrawal.
func (w *Withdrawal) StorageSlot() (common.Hash, error) {
	hash, err := w.Hash()
	if err != nil {
		return common.Hash{}, err
	}
	return StorageSlotOfWithdrawalHash(hash), nil
}

// StorageSlotOfWithdrawalHash returns keccak256(hash ++ p) where p is the 32
// byte encoding of slot 0, the position of the sentMessages mapping.
func StorageSlotOfWithdrawalHash(hash common.Hash) common.Hash {
	enc, _ := storageSlotArgs.Pack(hash, common.Big0)
	return crypto.Keccak256Hash(enc)
}

// HashMessage converts msg to its low level withdrawal and hashes it.
func HashMessage(cfg Config, msg *Message) (common.Hash, error) {
	w, err := ToLowLevel(cfg, msg)
	if err != nil {
		return common.Hash{}, err
	}
	return w.Hash()
}

// VerifyHash checks the withdrawal against a known hash.
func VerifyHash(w *Withdrawal, expected common.Hash) error {
	actual, err := w.Hash()
	if err != nil {
		return err
	}
	if actual != expected {
		return &HashMismatchError{Expected: expected, Actual: actual}
	}
	return nil
}
