package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/lightlink-network/withdrawal-relayer/api"
	"github.com/lightlink-network/withdrawal-relayer/crossdomain"
	"github.com/lightlink-network/withdrawal-relayer/database/models"
	"github.com/lightlink-network/withdrawal-relayer/optimism"
	"github.com/lightlink-network/withdrawal-relayer/registry"
	"github.com/lightlink-network/withdrawal-relayer/relay"
	"github.com/lightlink-network/withdrawal-relayer/relayer"
)

var commands = []*cli.Command{
	{
		Name:   "exec",
		Usage:  "Prove or finalize a bridge withdrawal described by flags",
		Flags:  flags(chainFlags, databaseFlags, intentFlags, []cli.Flag{UntilRelayedFlag, PollIntervalFlag}),
		Action: execAction,
	},
	{
		Name:   "relay",
		Usage:  "Relay the withdrawals of an L2 transaction, from the registry or its SentMessage events",
		Flags:  flags(chainFlags, databaseFlags, []cli.Flag{TxFlag, UntilRelayedFlag, PollIntervalFlag}),
		Action: relayAction,
	},
	{
		Name:   "hash",
		Usage:  "Print the message, withdrawal transaction, hash and storage slot of a withdrawal",
		Flags:  intentFlags,
		Action: hashAction,
	},
	{
		Name:   "register",
		Usage:  "Store a withdrawal in the registry under its L2 transaction hash",
		Flags:  flags(databaseFlags, intentFlags, []cli.Flag{TxFlag, L1RPCFlag, L2RPCFlag}),
		Action: registerAction,
	},
	{
		Name:   "serve",
		Usage:  "Serve the withdrawal status API",
		Flags:  flags(chainFlags, databaseFlags, []cli.Flag{PortFlag}),
		Action: serveAction,
	},
	{
		Name:  "networks",
		Usage: "List known networks",
		Action: func(c *cli.Context) error {
			for _, name := range registry.Names() {
				fmt.Println(name)
			}
			return nil
		},
	},
}

func printResult(result relayer.Result) {
	fmt.Println(result.Action.String())
	if result.TxHash != (common.Hash{}) {
		fmt.Printf("  l1 transaction: %s\n", result.TxHash.Hex())
	}
	if result.Receipt != nil {
		fmt.Printf("  block: %s gas used: %d\n", result.Receipt.BlockNumber, result.Receipt.GasUsed)
	}
}

func step(ctx context.Context, r *relayer.Relayer, intent crossdomain.Intent, c *cli.Context) (relayer.Result, error) {
	if c.Bool(UntilRelayedFlag.Name) {
		return r.RelayUntilDone(ctx, intent, c.Duration(PollIntervalFlag.Name))
	}
	return r.Step(ctx, intent)
}

func execAction(c *cli.Context) error {
	d, err := setup(c, setupOpts{requireSigner: true, requireL2: true})
	if err != nil {
		return err
	}
	defer d.Close()

	intent, err := intentFields(c).Parse(d.network.Config())
	if err != nil {
		return err
	}

	result, err := step(c.Context, d.relayer, intent, c)
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}

func relayAction(c *cli.Context) error {
	if err := requireFlags(c, TxFlag.Name); err != nil {
		return err
	}
	txHash := common.HexToHash(c.String(TxFlag.Name))

	d, err := setup(c, setupOpts{requireSigner: true, requireL2: true})
	if err != nil {
		return err
	}
	defer d.Close()

	if d.db != nil {
		result, err := d.relayer.RelayByTxHash(c.Context, txHash)
		if err != nil {
			return err
		}
		if c.Bool(UntilRelayedFlag.Name) && result.Action.Kind != relay.ActionNoOp {
			_, intent, err := d.relayer.LoadIntent(c.Context, txHash)
			if err != nil {
				return err
			}
			result, err = d.relayer.RelayUntilDone(c.Context, intent, c.Duration(PollIntervalFlag.Name))
			if err != nil {
				return err
			}
		}
		printResult(result)
		return nil
	}

	// Without a registry the intents come from the transaction's events.
	sent, err := d.l2.SentMessages(c.Context, txHash)
	if err != nil {
		return err
	}
	for _, m := range sent {
		intent, err := m.Intent()
		if err != nil {
			return err
		}
		result, err := step(c.Context, d.relayer, intent, c)
		if err != nil {
			return err
		}
		printResult(result)
	}
	return nil
}

func hashAction(c *cli.Context) error {
	network, err := loadNetwork(c)
	if err != nil {
		return err
	}
	cfg := network.Config()

	intent, err := intentFields(c).Parse(cfg)
	if err != nil {
		return err
	}
	msg, err := crossdomain.BuildMessage(cfg, intent)
	if err != nil {
		return err
	}
	w, err := crossdomain.ToLowLevel(cfg, msg)
	if err != nil {
		return err
	}
	hash, err := w.Hash()
	if err != nil {
		return err
	}

	nonce, version := crossdomain.DecodeVersionedNonce(msg.MessageNonce)
	fmt.Printf("message:\n  sender: %s\n  target: %s\n  nonce: %s (version %d)\n  data: %s\n",
		msg.Sender.Hex(), msg.Target.Hex(), nonce, version, hexutil.Encode(msg.Message))
	fmt.Printf("withdrawal:\n  nonce: %s\n  sender: %s\n  target: %s\n  value: %s\n  gasLimit: %s\n  data: %s\n",
		w.Nonce, w.Sender.Hex(), w.Target.Hex(), w.Value, w.GasLimit, hexutil.Encode(w.Data))
	fmt.Printf("hash: %s\nstorage slot: %s\n", hash.Hex(), crossdomain.StorageSlotOfWithdrawalHash(hash).Hex())
	return nil
}

// sentMessageFields derives the intent of an L2 transaction that sent
// exactly one cross domain message.
func sentMessageFields(ctx context.Context, l2 *optimism.Client, txHash common.Hash) (crossdomain.IntentFields, error) {
	sent, err := l2.SentMessages(ctx, txHash)
	if err != nil {
		return crossdomain.IntentFields{}, err
	}
	if len(sent) != 1 {
		return crossdomain.IntentFields{}, fmt.Errorf("transaction %s sent %d messages, pass the intent flags", txHash.Hex(), len(sent))
	}
	intent, err := sent[0].Intent()
	if err != nil {
		return crossdomain.IntentFields{}, err
	}
	return crossdomain.IntentFields{
		Sender:       intent.Sender.Hex(),
		Target:       intent.Target.Hex(),
		Message:      hexutil.Encode(intent.Message),
		MessageNonce: intent.MessageNonce.String(),
	}, nil
}

func registerAction(c *cli.Context) error {
	if err := requireFlags(c, TxFlag.Name); err != nil {
		return err
	}
	txHash := common.HexToHash(c.String(TxFlag.Name))

	fields := intentFields(c)
	if fields == (crossdomain.IntentFields{}) {
		if c.String(L2RPCFlag.Name) == "" {
			return errors.New("pass the intent flags or --l2-rpc to read them from the transaction")
		}
		d, err := setup(c, setupOpts{requireDatabase: true, requireL2: true})
		if err != nil {
			return err
		}
		defer d.Close()
		if fields, err = sentMessageFields(c.Context, d.l2, txHash); err != nil {
			return err
		}
		return register(c, d, txHash, fields)
	}

	d, err := setup(c, setupOpts{requireDatabase: true})
	if err != nil {
		return err
	}
	defer d.Close()
	return register(c, d, txHash, fields)
}

func register(c *cli.Context, d *deps, txHash common.Hash, fields crossdomain.IntentFields) error {
	intent, err := fields.Parse(d.network.Config())
	if err != nil {
		return err
	}
	hash, err := d.relayer.Driver().Hash(intent)
	if err != nil {
		return err
	}

	err = d.db.UpsertWithdrawal(c.Context, models.Withdrawal{
		TxHash:         txHash.Hex(),
		Network:        d.network.Name,
		IntentFields:   fields,
		WithdrawalHash: hash.Hex(),
	})
	if err != nil {
		return err
	}
	d.logger.Info("registered withdrawal", "txHash", txHash.Hex(), "withdrawalHash", hash.Hex())
	return nil
}

func serveAction(c *cli.Context) error {
	d, err := setup(c, setupOpts{})
	if err != nil {
		return err
	}
	defer d.Close()

	opts := api.ServerOpts{
		Logger:  d.logger.With("component", "api-server"),
		Port:    strings.TrimPrefix(c.String(PortFlag.Name), ":"),
		Relayer: d.relayer,
	}
	if d.db != nil {
		opts.Store = d.db
	}
	server, err := api.NewServer(opts)
	if err != nil {
		return fmt.Errorf("failed to create api server: %w", err)
	}

	if err := server.Run(c.Context); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

