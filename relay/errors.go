package relay

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ChainReadError is returned when the ChainReader fails. The relay engine
// never retries, the reader is expected to have done so already.
type ChainReadError struct {
	Op   string
	Hash common.Hash
	Err  error
}

func (e *ChainReadError) Error() string {
	return fmt.Sprintf("failed to read %s for withdrawal %s: %v", e.Op, e.Hash.Hex(), e.Err)
}

func (e *ChainReadError) Unwrap() error {
	return e.Err
}
