package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// L2Output is an output proposal stored in the L2OutputOracle.
type L2Output struct {
	OutputRoot    [32]byte
	Timestamp     *big.Int
	L2BlockNumber *big.Int
}

func (c *Client) uint256Call(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	out, err := c.call(ctx, c.l2OutputOracle, method, args...)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected %s result length %d", method, len(out))
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// ChallengePeriodSeconds reads FINALIZATION_PERIOD_SECONDS.
func (c *Client) ChallengePeriodSeconds(ctx context.Context) (uint64, error) {
	period, err := c.uint256Call(ctx, "FINALIZATION_PERIOD_SECONDS")
	if err != nil {
		return 0, err
	}
	return period.Uint64(), nil
}

func (c *Client) LatestOutputIndex(ctx context.Context) (*big.Int, error) {
	return c.uint256Call(ctx, "latestOutputIndex")
}

func (c *Client) L2Output(ctx context.Context, index *big.Int) (L2Output, error) {
	out, err := c.call(ctx, c.l2OutputOracle, "getL2Output", index)
	if err != nil {
		return L2Output{}, err
	}
	if len(out) != 1 {
		return L2Output{}, fmt.Errorf("unexpected getL2Output result length %d", len(out))
	}
	return *abi.ConvertType(out[0], new(L2Output)).(*L2Output), nil
}
