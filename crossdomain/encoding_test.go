package crossdomain

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"
)

var (
	addrA = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	addrB = common.HexToAddress("0x00000000000000000000000000000000000000bb")

	testConfig = Config{
		L1StandardBridge:       common.HexToAddress("0x99C9fc46f92E8a1c0deC1b1747d010903E884bE1"),
		L2StandardBridge:       L2StandardBridgeAddr,
		L1CrossDomainMessenger: common.HexToAddress("0x25ace71c97B33Cc4729CF772ae268934F7BC5F62"),
		L2CrossDomainMessenger: L2CrossDomainMessengerAddr,
		L1NativeToken:          common.Address{},
		L2NativeToken:          L2NativeTokenAddr,
		L2ChainID:              big.NewInt(10),
	}
)

func TestEncodeWithdrawalCallETH(t *testing.T) {
	data, err := EncodeWithdrawalCall(testConfig, common.Address{}, L2NativeTokenAddr, addrA, addrB, big.NewInt(1000), nil)
	require.NoError(t, err)

	expected := hexutil.MustDecode("0x1532ec34" +
		"00000000000000000000000000000000000000000000000000000000000000aa" +
		"00000000000000000000000000000000000000000000000000000000000000bb" +
		"00000000000000000000000000000000000000000000000000000000000003e8" +
		"0000000000000000000000000000000000000000000000000000000000000080" +
		"0000000000000000000000000000000000000000000000000000000000000000")
	require.Equal(t, expected, data)
}

func TestEncodeWithdrawalCallERC20(t *testing.T) {
	l1Token := common.HexToAddress("0x1111111111111111111111111111111111111111")
	l2Token := common.HexToAddress("0x2222222222222222222222222222222222222222")

	data, err := EncodeWithdrawalCall(testConfig, l1Token, l2Token, addrA, addrB, big.NewInt(5), []byte{0xca, 0xfe})
	require.NoError(t, err)

	expected := hexutil.MustDecode("0xa9f9e675" +
		"0000000000000000000000001111111111111111111111111111111111111111" +
		"0000000000000000000000002222222222222222222222222222222222222222" +
		"00000000000000000000000000000000000000000000000000000000000000aa" +
		"00000000000000000000000000000000000000000000000000000000000000bb" +
		"0000000000000000000000000000000000000000000000000000000000000005" +
		"00000000000000000000000000000000000000000000000000000000000000c0" +
		"0000000000000000000000000000000000000000000000000000000000000002" +
		"cafe000000000000000000000000000000000000000000000000000000000000")
	require.Equal(t, expected, data)
}

func TestEncodeWithdrawalCallBranch(t *testing.T) {
	other := common.HexToAddress("0x3333333333333333333333333333333333333333")

	tests := []struct {
		name     string
		l1, l2   common.Address
		selector [4]byte
	}{
		{"native pair", common.Address{}, L2NativeTokenAddr, FinalizeETHWithdrawal.Selector},
		{"native l1 only", common.Address{}, other, FinalizeERC20Withdrawal.Selector},
		{"native l2 only", other, L2NativeTokenAddr, FinalizeERC20Withdrawal.Selector},
		{"swapped sentinels", L2NativeTokenAddr, common.Address{}, FinalizeERC20Withdrawal.Selector},
		{"tokens", other, other, FinalizeERC20Withdrawal.Selector},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeWithdrawalCall(testConfig, tt.l1, tt.l2, addrA, addrB, big.NewInt(1), nil)
			require.NoError(t, err)
			require.Equal(t, tt.selector[:], data[:4])
		})
	}
}

func TestEncodeWithdrawalCallInvalidAmount(t *testing.T) {
	l1Token := common.HexToAddress("0x1111111111111111111111111111111111111111")
	l2Token := common.HexToAddress("0x2222222222222222222222222222222222222222")
	tooBig := new(big.Int).Lsh(big.NewInt(1), 256)

	for name, amount := range map[string]*big.Int{
		"negative": big.NewInt(-1),
		"overflow": tooBig,
		"missing":  nil,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := EncodeWithdrawalCall(testConfig, l1Token, l2Token, addrA, addrB, amount, nil)
			var encErr *EncodingError
			require.True(t, errors.As(err, &encErr))
			require.Equal(t, "amount", encErr.Field)
		})
	}
}

func TestEncodeWithdrawalCallMaxAmount(t *testing.T) {
	maxUint256 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	_, err := EncodeWithdrawalCall(testConfig, common.Address{}, L2NativeTokenAddr, addrA, addrB, maxUint256, nil)
	require.NoError(t, err)
}
