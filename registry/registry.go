package registry

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lightlink-network/withdrawal-relayer/crossdomain"
)

var ErrUnknownNetwork = errors.New("unknown network")

// L1Contracts are the L1 deployments of an OP stack chain.
type L1Contracts struct {
	StandardBridge       common.Address `toml:"standard_bridge"`
	CrossDomainMessenger common.Address `toml:"cross_domain_messenger"`
	OptimismPortal       common.Address `toml:"optimism_portal"`
	L2OutputOracle       common.Address `toml:"l2_output_oracle"`
}

// L2Contracts are the L2 predeploys an OP stack chain relays through.
type L2Contracts struct {
	StandardBridge       common.Address `toml:"standard_bridge"`
	CrossDomainMessenger common.Address `toml:"cross_domain_messenger"`
	ToL1MessagePasser    common.Address `toml:"to_l1_message_passer"`
}

// Network describes an L1/L2 pair.
type Network struct {
	Name      string      `toml:"name"`
	L1ChainID uint64      `toml:"l1_chain_id"`
	L2ChainID uint64      `toml:"l2_chain_id"`
	L1        L1Contracts `toml:"l1"`
	L2        L2Contracts `toml:"l2"`

	// Native currency sentinels, the zero address on L1.
	L1NativeToken common.Address `toml:"l1_native_token"`
	L2NativeToken common.Address `toml:"l2_native_token"`
}

var defaultL2 = L2Contracts{
	StandardBridge:       crossdomain.L2StandardBridgeAddr,
	CrossDomainMessenger: crossdomain.L2CrossDomainMessengerAddr,
	ToL1MessagePasser:    crossdomain.L2ToL1MessagePasserAddr,
}

var (
	mu       sync.RWMutex
	networks = map[string]Network{
		"op-mainnet": {
			Name:      "op-mainnet",
			L1ChainID: 1,
			L2ChainID: 10,
			L1: L1Contracts{
				StandardBridge:       common.HexToAddress("0x99C9fc46f92E8a1c0deC1b1747d010903E884bE1"),
				CrossDomainMessenger: common.HexToAddress("0x25ace71c97B33Cc4729CF772ae268934F7BC5F62"),
				OptimismPortal:       common.HexToAddress("0xbEb5Fc579115071764c7423A4f12eDde41f106Ed"),
				L2OutputOracle:       common.HexToAddress("0xdfe97868233d1aa22e815a266982f2cf17685a27"),
			},
			L2:            defaultL2,
			L2NativeToken: crossdomain.L2NativeTokenAddr,
		},
		"op-goerli": {
			Name:      "op-goerli",
			L1ChainID: 5,
			L2ChainID: 420,
			L1: L1Contracts{
				StandardBridge:       common.HexToAddress("0x636Af16bf2f682dD3109e60102b8E1A089FedAa8"),
				CrossDomainMessenger: common.HexToAddress("0x5086d1eEF304eb5284A0f6720f79403b4e9bE294"),
				OptimismPortal:       common.HexToAddress("0x5b47E1A08Ea6d985D6649300584e6722Ec4B1383"),
				L2OutputOracle:       common.HexToAddress("0xE6Dfba0953616Bacab0c9A8ecb3a9BBa77FC15c0"),
			},
			L2:            defaultL2,
			L2NativeToken: crossdomain.L2NativeTokenAddr,
		},
	}
)

// Lookup returns the network registered under name.
func Lookup(name string) (Network, error) {
	mu.RLock()
	defer mu.RUnlock()

	n, ok := networks[strings.ToLower(name)]
	if !ok {
		return Network{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}
	return n, nil
}

// Names lists the registered networks in alphabetical order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(networks))
	for name := range networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type file struct {
	Networks []Network `toml:"network"`
}

// LoadFile registers the [[network]] tables of a TOML file. An entry with
// the name of an existing network replaces it. L2 predeploys and the L2
// native token default to the standard addresses when omitted.
func LoadFile(path string) ([]Network, error) {
	var f file
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("failed to decode network file: %w", err)
	}

	loaded := make([]Network, 0, len(f.Networks))
	for _, n := range f.Networks {
		n.Name = strings.ToLower(strings.TrimSpace(n.Name))
		if n.L2.StandardBridge == (common.Address{}) {
			n.L2.StandardBridge = defaultL2.StandardBridge
		}
		if n.L2.CrossDomainMessenger == (common.Address{}) {
			n.L2.CrossDomainMessenger = defaultL2.CrossDomainMessenger
		}
		if n.L2.ToL1MessagePasser == (common.Address{}) {
			n.L2.ToL1MessagePasser = defaultL2.ToL1MessagePasser
		}
		if n.L2NativeToken == (common.Address{}) {
			n.L2NativeToken = crossdomain.L2NativeTokenAddr
		}
		if err := n.Validate(); err != nil {
			return nil, fmt.Errorf("failed to load network %q: %w", n.Name, err)
		}
		loaded = append(loaded, n)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, n := range loaded {
		networks[n.Name] = n
	}
	return loaded, nil
}

// Validate checks that every contract the relayer talks to is set.
func (n Network) Validate() error {
	if n.Name == "" {
		return errors.New("network name is required")
	}
	if n.L2ChainID == 0 {
		return errors.New("l2_chain_id is required")
	}
	required := []struct {
		field string
		addr  common.Address
	}{
		{"l1.standard_bridge", n.L1.StandardBridge},
		{"l1.cross_domain_messenger", n.L1.CrossDomainMessenger},
		{"l1.optimism_portal", n.L1.OptimismPortal},
		{"l1.l2_output_oracle", n.L1.L2OutputOracle},
		{"l2.standard_bridge", n.L2.StandardBridge},
		{"l2.cross_domain_messenger", n.L2.CrossDomainMessenger},
		{"l2.to_l1_message_passer", n.L2.ToL1MessagePasser},
		{"l2_native_token", n.L2NativeToken},
	}
	for _, r := range required {
		if r.addr == (common.Address{}) {
			return fmt.Errorf("%s is required", r.field)
		}
	}
	return nil
}

// Config returns the encoding constants of the network.
func (n Network) Config() crossdomain.Config {
	return crossdomain.Config{
		L1StandardBridge:       n.L1.StandardBridge,
		L2StandardBridge:       n.L2.StandardBridge,
		L1CrossDomainMessenger: n.L1.CrossDomainMessenger,
		L2CrossDomainMessenger: n.L2.CrossDomainMessenger,
		L1NativeToken:          n.L1NativeToken,
		L2NativeToken:          n.L2NativeToken,
		L2ChainID:              new(big.Int).SetUint64(n.L2ChainID),
	}
}
