package utils

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type codeReader interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// IsContract reports whether code is deployed at addr.
func IsContract(client codeReader, addr common.Address) (bool, error) {
	code, err := client.CodeAt(context.Background(), addr, nil)
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}

// RetryOpts configures Retry.
type RetryOpts struct {
	MaxRetries int
	Delay      time.Duration
	Logger     *slog.Logger
}

// Retry calls fn until it succeeds, MaxRetries attempts were made or ctx is
// done. The last error is returned.
func Retry[T any](ctx context.Context, opts RetryOpts, op string, fn func() (T, error)) (T, error) {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	var zero T
	for attempt := 1; ; attempt++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		if attempt >= opts.MaxRetries {
			return zero, fmt.Errorf("failed to %s after %d attempts: %w", op, attempt, err)
		}

		opts.Logger.Warn("retrying", "op", op, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("failed to %s: %w", op, ctx.Err())
		case <-time.After(opts.Delay):
		}
	}
}
