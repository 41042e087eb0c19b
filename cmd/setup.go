package main

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v2"

	"github.com/lightlink-network/withdrawal-relayer/database"
	"github.com/lightlink-network/withdrawal-relayer/ethereum"
	"github.com/lightlink-network/withdrawal-relayer/notifier"
	"github.com/lightlink-network/withdrawal-relayer/optimism"
	"github.com/lightlink-network/withdrawal-relayer/registry"
	"github.com/lightlink-network/withdrawal-relayer/relay"
	"github.com/lightlink-network/withdrawal-relayer/relayer"
)

// before configures logging and registers extra networks for every command.
func before(c *cli.Context) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.String(LogLevelFlag.Name))); err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level: level,
		}),
	))

	slog.Debug("Starting withdrawal-relayer ("+Version+")",
		"Go Version", runtime.Version(),
		"Operating System", runtime.GOOS,
		"Architecture", runtime.GOARCH)

	if path := c.Path(NetworksFileFlag.Name); path != "" {
		loaded, err := registry.LoadFile(path)
		if err != nil {
			return err
		}
		slog.Debug("loaded networks", "file", path, "count", len(loaded))
	}
	return nil
}

func loadNetwork(c *cli.Context) (registry.Network, error) {
	n, err := registry.Lookup(c.String(NetworkFlag.Name))
	if err != nil {
		return registry.Network{}, fmt.Errorf("%w (known networks: %s)", err, strings.Join(registry.Names(), ", "))
	}
	return n, nil
}

func parsePrivateKey(s string) (*ecdsa.PrivateKey, error) {
	if s == "" {
		return nil, nil
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return key, nil
}

// deps are the clients a command runs with. Only the L1 client is always
// present.
type deps struct {
	network  registry.Network
	l1       *ethereum.Client
	l2       *optimism.Client
	db       *database.Database
	notifier *notifier.Notifier
	relayer  *relayer.Relayer
	logger   *slog.Logger
}

type setupOpts struct {
	requireSigner   bool
	requireDatabase bool
	requireL2       bool
}

func setup(c *cli.Context, opts setupOpts) (*deps, error) {
	network, err := loadNetwork(c)
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("network", network.Name)
	d := &deps{network: network, logger: logger}

	key, err := parsePrivateKey(c.String(PrivateKeyFlag.Name))
	if err != nil {
		return nil, err
	}
	if opts.requireSigner && key == nil {
		return nil, fmt.Errorf("--%s is required", PrivateKeyFlag.Name)
	}
	if err := requireFlags(c, L1RPCFlag.Name); err != nil {
		return nil, err
	}

	d.l1, err = ethereum.NewClient(ethereum.ClientOpts{
		Endpoint:              c.String(L1RPCFlag.Name),
		OptimismPortalAddress: network.L1.OptimismPortal,
		L2OutputOracleAddress: network.L1.L2OutputOracle,
		PrivateKey:            key,
		Logger:                logger.With("component", "ethereum"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ethereum client: %w", err)
	}

	if id := d.l1.ChainID().Uint64(); network.L1ChainID != 0 && id != network.L1ChainID {
		d.Close()
		return nil, fmt.Errorf("l1 endpoint serves chain %d, %s expects %d", id, network.Name, network.L1ChainID)
	}

	if endpoint := c.String(L2RPCFlag.Name); endpoint != "" {
		d.l2, err = optimism.NewClient(optimism.ClientOpts{
			Endpoint:                      endpoint,
			L2CrossDomainMessengerAddress: network.L2.CrossDomainMessenger,
			L2ToL1MessagePasserAddress:    network.L2.ToL1MessagePasser,
			Logger:                        logger.With("component", "optimism"),
		})
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("failed to create optimism client: %w", err)
		}
		if id := d.l2.ChainID().Uint64(); id != network.L2ChainID {
			d.Close()
			return nil, fmt.Errorf("l2 endpoint serves chain %d, %s expects %d", id, network.Name, network.L2ChainID)
		}
	} else if opts.requireL2 || key != nil {
		d.Close()
		return nil, fmt.Errorf("--%s is required", L2RPCFlag.Name)
	}

	if uri := c.String(DatabaseURIFlag.Name); uri != "" {
		d.db, err = database.NewDatabase(database.DatabaseOpts{
			URI:          uri,
			DatabaseName: c.String(DatabaseNameFlag.Name),
			Logger:       logger.With("component", "database"),
		})
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
		if err := d.db.CreateIndexes(c.Context); err != nil {
			d.Close()
			return nil, fmt.Errorf("failed to create database indexes: %w", err)
		}
	} else if opts.requireDatabase {
		d.Close()
		return nil, fmt.Errorf("--%s is required", DatabaseURIFlag.Name)
	}

	if url := c.String(NATSURLFlag.Name); url != "" {
		d.notifier, err = notifier.NewNotifier(notifier.NotifierOpts{
			URL:    url,
			Logger: logger.With("component", "notifier"),
		})
		if err != nil {
			d.Close()
			return nil, err
		}
	}

	relayerOpts := relayer.Opts{
		Driver:         relay.NewDriver(network.Config(), d.l1),
		Network:        network.Name,
		ConfirmTimeout: c.Duration(ConfirmTimeoutFlag.Name),
		Logger:         logger.With("component", "relayer"),
	}
	if key != nil {
		relayerOpts.Submitter = &relayer.ChainSubmitter{L1: d.l1, L2: d.l2}
	}
	if d.l2 != nil {
		relayerOpts.Messages = d.l2
	}
	if d.db != nil {
		relayerOpts.Store = d.db
	}
	if d.notifier != nil {
		relayerOpts.Publisher = d.notifier
	}
	d.relayer, err = relayer.NewRelayer(relayerOpts)
	if err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *deps) Close() {
	if d.notifier != nil {
		if err := d.notifier.Close(); err != nil {
			d.logger.Warn("failed to close notifier", "error", err)
		}
	}
	if d.db != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.db.Close(ctx); err != nil {
			d.logger.Warn("failed to close database", "error", err)
		}
	}
	if d.l2 != nil {
		d.l2.Close()
	}
	if d.l1 != nil {
		d.l1.Close()
	}
}
