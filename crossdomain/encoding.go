package crossdomain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/lmittmann/w3"
)

// L1StandardBridge finalization entry points.
var (
	FinalizeETHWithdrawal   = w3.MustNewFunc("finalizeETHWithdrawal(address _from, address _to, uint256 _amount, bytes _extraData)", "")
	FinalizeERC20Withdrawal = w3.MustNewFunc("finalizeERC20Withdrawal(address _l1Token, address _l2Token, address _from, address _to, uint256 _amount, bytes _extraData)", "")
)

// EncodeWithdrawalCall returns the L1StandardBridge calldata that releases
// the funds of a bridge withdrawal. The ETH entry point is used when both
// tokens are the configured native sentinels, otherwise the ERC20 one.
func EncodeWithdrawalCall(cfg Config, l1Token, l2Token, from, to common.Address, amount *big.Int, extraData []byte) ([]byte, error) {
	if err := checkUint256("amount", amount); err != nil {
		return nil, err
	}
	if extraData == nil {
		extraData = []byte{}
	}

	var (
		data []byte
		err  error
	)
	if cfg.IsNativeTransfer(l1Token, l2Token) {
		data, err = FinalizeETHWithdrawal.EncodeArgs(from, to, amount, extraData)
	} else {
		data, err = FinalizeERC20Withdrawal.EncodeArgs(l1Token, l2Token, from, to, amount, extraData)
	}
	if err != nil {
		return nil, &EncodingError{Field: "withdrawal call", Err: err}
	}
	return data, nil
}

// checkUint256 rejects values that do not fit an unsigned 256 bit word.
func checkUint256(field string, v *big.Int) error {
	if v == nil {
		return &EncodingError{Field: field, Err: errors.New("value is missing")}
	}
	if v.Sign() < 0 {
		return &EncodingError{Field: field, Err: fmt.Errorf("negative value %s", v)}
	}
	if _, overflow := uint256.FromBig(v); overflow {
		return &EncodingError{Field: field, Err: fmt.Errorf("value %s exceeds 256 bits", v)}
	}
	return nil
}
