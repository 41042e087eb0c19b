package ethereum

import (
	"context"
	"errors"
	"fmt"
	"time"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/lightlink-network/withdrawal-relayer/utils"
)

// L1Timestamp returns the timestamp of the latest L1 block.
func (c *Client) L1Timestamp(ctx context.Context) (uint64, error) {
	header, err := utils.Retry(ctx, c.retryOpts(), "get latest header", func() (*types.Header, error) {
		ctx, cancel := context.WithTimeout(ctx, c.Opts.Timeout)
		defer cancel()
		return c.client.HeaderByNumber(ctx, nil)
	})
	if err != nil {
		return 0, err
	}
	return header.Time, nil
}

// WaitForConfirmation polls for the receipt of txHash until it is mined or
// ctx is done. A reverted transaction is returned with an error.
func (c *Client) WaitForConfirmation(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(c.Opts.ReceiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.client.TransactionReceipt(ctx, txHash)
		switch {
		case err == nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, fmt.Errorf("transaction %s reverted in block %d", txHash.Hex(), receipt.BlockNumber)
			}
			c.logger.Info("transaction confirmed", "txHash", txHash.Hex(), "block", receipt.BlockNumber, "gasUsed", receipt.GasUsed)
			return receipt, nil
		case errors.Is(err, geth.NotFound):
			c.logger.Debug("waiting for transaction", "txHash", txHash.Hex())
		default:
			c.logger.Warn("failed to get transaction receipt", "txHash", txHash.Hex(), "error", err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to wait for transaction %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
