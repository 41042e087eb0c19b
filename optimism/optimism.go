package optimism

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/lightlink-network/withdrawal-relayer/utils"
)

type Client struct {
	client      *ethclient.Client
	proofClient *gethclient.Client
	chainId     *big.Int
	eventsABI   abi.ABI
	logger      *slog.Logger
	Opts        *ClientOpts
}

type ClientOpts struct {
	Endpoint                      string
	L2CrossDomainMessengerAddress common.Address
	L2ToL1MessagePasserAddress    common.Address
	Logger                        *slog.Logger
	Timeout                       time.Duration
	MaxRetries                    int
	RetryDelay                    time.Duration
}

// NewClient connects to the L2 node. The connection is shared between the
// eth namespace client and the proof client.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 5
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = 2 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	rpcClient, err := rpc.DialContext(ctx, opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to L2: %w", err)
	}
	client := ethclient.NewClient(rpcClient)

	eventsABI, err := abi.JSON(strings.NewReader(eventsABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse events abi: %w", err)
	}

	chainId, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chainId: %w", err)
	}

	opts.Logger.Info("Connected to L2", "chainId", chainId)

	if ok, _ := utils.IsContract(client, opts.L2ToL1MessagePasserAddress); !ok {
		opts.Logger.Warn("contract not found for L2ToL1MessagePasser at given Address", "address", opts.L2ToL1MessagePasserAddress.Hex(), "endpoint", opts.Endpoint)
	}

	return &Client{
		client:      client,
		proofClient: gethclient.New(rpcClient),
		chainId:     chainId,
		eventsABI:   eventsABI,
		logger:      opts.Logger,
		Opts:        &opts,
	}, nil
}

func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainId)
}

func (c *Client) Close() {
	c.client.Close()
}

func (c *Client) retryOpts() utils.RetryOpts {
	return utils.RetryOpts{MaxRetries: c.Opts.MaxRetries, Delay: c.Opts.RetryDelay, Logger: c.logger}
}

func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return utils.Retry(ctx, c.retryOpts(), "get l2 header", func() (*types.Header, error) {
		ctx, cancel := context.WithTimeout(ctx, c.Opts.Timeout)
		defer cancel()
		return c.client.HeaderByNumber(ctx, number)
	})
}

func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return utils.Retry(ctx, c.retryOpts(), "get l2 receipt", func() (*types.Receipt, error) {
		ctx, cancel := context.WithTimeout(ctx, c.Opts.Timeout)
		defer cancel()
		return c.client.TransactionReceipt(ctx, txHash)
	})
}

// GetProof returns the eth_getProof result of the given storage slots.
func (c *Client) GetProof(ctx context.Context, account common.Address, keys []string, blockNumber *big.Int) (*gethclient.AccountResult, error) {
	return utils.Retry(ctx, c.retryOpts(), "get proof", func() (*gethclient.AccountResult, error) {
		ctx, cancel := context.WithTimeout(ctx, c.Opts.Timeout)
		defer cancel()
		return c.proofClient.GetProof(ctx, account, keys, blockNumber)
	})
}
