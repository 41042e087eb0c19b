package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/lightlink-network/withdrawal-relayer/utils"
)

var ErrNoSigner = errors.New("no private key configured")

type Client struct {
	client         *ethclient.Client
	chainId        *big.Int
	portal         *bind.BoundContract
	l2OutputOracle *bind.BoundContract
	signer         *bind.TransactOpts
	logger         *slog.Logger
	Opts           *ClientOpts
}

type ClientOpts struct {
	Endpoint              string
	OptimismPortalAddress common.Address
	L2OutputOracleAddress common.Address
	PrivateKey            *ecdsa.PrivateKey
	Logger                *slog.Logger
	Timeout               time.Duration
	MaxRetries            int
	RetryDelay            time.Duration
	ReceiptPollInterval   time.Duration
}

// NewClient connects to the L1 node and binds the OptimismPortal and
// L2OutputOracle. Without a private key the client is read only.
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
	if opts.ReceiptPollInterval == 0 {
		opts.ReceiptPollInterval = 4 * time.Second
	}

	client, err := ethclient.Dial(opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum: %w", err)
	}

	portalABI, err := abi.JSON(strings.NewReader(optimismPortalABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OptimismPortal abi: %w", err)
	}
	oracleABI, err := abi.JSON(strings.NewReader(l2OutputOracleABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse L2OutputOracle abi: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()
	chainId, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chainId: %w", err)
	}

	opts.Logger.Info("Connected to Ethereum", "chainId", chainId)

	// Warn user if the contracts are not found at the given addresses.
	if ok, _ := utils.IsContract(client, opts.OptimismPortalAddress); !ok {
		opts.Logger.Warn("contract not found for OptimismPortal at given Address", "address", opts.OptimismPortalAddress.Hex(), "endpoint", opts.Endpoint)
	}
	if ok, _ := utils.IsContract(client, opts.L2OutputOracleAddress); !ok {
		opts.Logger.Warn("contract not found for L2OutputOracle at given Address", "address", opts.L2OutputOracleAddress.Hex(), "endpoint", opts.Endpoint)
	}

	var signer *bind.TransactOpts
	if opts.PrivateKey != nil {
		signer, err = bind.NewKeyedTransactorWithChainID(opts.PrivateKey, chainId)
		if err != nil {
			return nil, fmt.Errorf("failed to create transactor: %w", err)
		}
		opts.Logger.Info("Loaded signer", "address", crypto.PubkeyToAddress(opts.PrivateKey.PublicKey).Hex())
	}

	return &Client{
		client:         client,
		chainId:        chainId,
		portal:         bind.NewBoundContract(opts.OptimismPortalAddress, portalABI, client, client, client),
		l2OutputOracle: bind.NewBoundContract(opts.L2OutputOracleAddress, oracleABI, client, client, client),
		signer:         signer,
		logger:         opts.Logger,
		Opts:           &opts,
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

func (c *Client) callOpts(ctx context.Context) (*bind.CallOpts, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, c.Opts.Timeout)
	return &bind.CallOpts{Context: ctx}, cancel
}

// call performs a retried contract read.
func (c *Client) call(ctx context.Context, contract *bind.BoundContract, method string, args ...interface{}) ([]interface{}, error) {
	return utils.Retry(ctx, c.retryOpts(), "call "+method, func() ([]interface{}, error) {
		opts, cancel := c.callOpts(ctx)
		defer cancel()

		var out []interface{}
		if err := contract.Call(opts, &out, method, args...); err != nil {
			return nil, err
		}
		return out, nil
	})
}
