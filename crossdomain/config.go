package crossdomain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Well known L2 predeploy addresses.
var (
	L2CrossDomainMessengerAddr = common.HexToAddress("0x4200000000000000000000000000000000000007")
	L2StandardBridgeAddr       = common.HexToAddress("0x4200000000000000000000000000000000000010")
	L2ToL1MessagePasserAddr    = common.HexToAddress("0x4200000000000000000000000000000000000016")
	L2NativeTokenAddr          = common.HexToAddress("0x4200000000000000000000000000000000000006")
)

// Config holds the contract addresses and chain constants that the message
// and withdrawal encodings depend on. It is usually obtained from a
// registry.Network.
type Config struct {
	L1StandardBridge       common.Address
	L2StandardBridge       common.Address
	L1CrossDomainMessenger common.Address
	L2CrossDomainMessenger common.Address

	// Native currency sentinels. A bridge transfer is an ETH withdrawal
	// when both tokens equal these.
	L1NativeToken common.Address
	L2NativeToken common.Address

	L2ChainID *big.Int
}

// IsNativeTransfer reports whether the token pair selects the ETH withdrawal
// encoding.
func (c Config) IsNativeTransfer(l1Token, l2Token common.Address) bool {
	return l1Token == c.L1NativeToken && l2Token == c.L2NativeToken
}
