package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/lightlink-network/withdrawal-relayer/crossdomain"
)

const EnvVarPrefix = "RELAYER"

func prefixEnvVar(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	NetworkFlag = &cli.StringFlag{
		Name:    "network",
		Usage:   "Name of the L1/L2 network pair",
		Value:   "op-mainnet",
		EnvVars: prefixEnvVar("NETWORK"),
	}
	NetworksFileFlag = &cli.PathFlag{
		Name:    "networks-file",
		Usage:   "TOML file with additional [[network]] definitions",
		EnvVars: prefixEnvVar("NETWORKS_FILE"),
	}
	LogLevelFlag = &cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level (debug, info, warn, error)",
		Value:   "info",
		EnvVars: prefixEnvVar("LOG_LEVEL"),
	}
	L1RPCFlag = &cli.StringFlag{
		Name:    "l1-rpc",
		Usage:   "RPC endpoint of the L1 node",
		EnvVars: prefixEnvVar("L1_RPC"),
	}
	L2RPCFlag = &cli.StringFlag{
		Name:    "l2-rpc",
		Usage:   "RPC endpoint of the L2 node",
		EnvVars: prefixEnvVar("L2_RPC"),
	}
	PrivateKeyFlag = &cli.StringFlag{
		Name:    "private-key",
		Usage:   "Hex private key of the L1 account that submits prove and finalize transactions",
		EnvVars: prefixEnvVar("PRIVATE_KEY"),
	}
	DatabaseURIFlag = &cli.StringFlag{
		Name:    "database-uri",
		Usage:   "MongoDB URI of the withdrawal registry",
		EnvVars: prefixEnvVar("DATABASE_URI"),
	}
	DatabaseNameFlag = &cli.StringFlag{
		Name:    "database-name",
		Usage:   "MongoDB database name",
		Value:   "withdrawal-relayer",
		EnvVars: prefixEnvVar("DATABASE_NAME"),
	}
	NATSURLFlag = &cli.StringFlag{
		Name:    "nats-url",
		Usage:   "NATS server to publish relay events to",
		EnvVars: prefixEnvVar("NATS_URL"),
	}
	ConfirmTimeoutFlag = &cli.DurationFlag{
		Name:    "confirm-timeout",
		Usage:   "How long to wait for a relay transaction to be mined",
		Value:   5 * time.Minute,
		EnvVars: prefixEnvVar("CONFIRM_TIMEOUT"),
	}
	UntilRelayedFlag = &cli.BoolFlag{
		Name:    "until-relayed",
		Usage:   "Keep stepping the withdrawal until it is finalized",
		EnvVars: prefixEnvVar("UNTIL_RELAYED"),
	}
	PollIntervalFlag = &cli.DurationFlag{
		Name:    "poll-interval",
		Usage:   "Interval between checks while the withdrawal is in its challenge period",
		Value:   time.Minute,
		EnvVars: prefixEnvVar("POLL_INTERVAL"),
	}
	TxFlag = &cli.StringFlag{
		Name:  "tx",
		Usage: "Hash of the L2 transaction that initiated the withdrawal",
	}
	PortFlag = &cli.StringFlag{
		Name:    "port",
		Usage:   "API server port",
		Value:   "8080",
		EnvVars: prefixEnvVar("API_PORT"),
	}

	L1TokenFlag   = &cli.StringFlag{Name: "l1-token", Usage: "L1 token address, or \"eth\""}
	L2TokenFlag   = &cli.StringFlag{Name: "l2-token", Usage: "L2 token address, or \"eth\""}
	AmountFlag    = &cli.StringFlag{Name: "amount", Usage: "Amount withdrawn, in base units"}
	FromFlag      = &cli.StringFlag{Name: "from", Usage: "L2 account that initiated the withdrawal"}
	ToFlag        = &cli.StringFlag{Name: "to", Usage: "L1 recipient"}
	ExtraDataFlag = &cli.StringFlag{Name: "extra-data", Usage: "Hex extra data passed to the bridge"}
	SenderFlag    = &cli.StringFlag{Name: "sender", Usage: "Sender of a raw cross domain message"}
	TargetFlag    = &cli.StringFlag{Name: "target", Usage: "Target of a raw cross domain message"}
	MessageFlag   = &cli.StringFlag{Name: "message", Usage: "Hex calldata of a raw cross domain message"}
	NonceFlag     = &cli.StringFlag{Name: "nonce", Usage: "Versioned message nonce, decimal or hex"}
)

var globalFlags = []cli.Flag{NetworkFlag, NetworksFileFlag, LogLevelFlag}

var chainFlags = []cli.Flag{L1RPCFlag, L2RPCFlag, PrivateKeyFlag, ConfirmTimeoutFlag, NATSURLFlag}

var databaseFlags = []cli.Flag{DatabaseURIFlag, DatabaseNameFlag}

var intentFlags = []cli.Flag{
	L1TokenFlag, L2TokenFlag, AmountFlag, FromFlag, ToFlag, ExtraDataFlag,
	SenderFlag, TargetFlag, MessageFlag, NonceFlag,
}

func flags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func intentFields(c *cli.Context) crossdomain.IntentFields {
	return crossdomain.IntentFields{
		L1Token:      c.String(L1TokenFlag.Name),
		L2Token:      c.String(L2TokenFlag.Name),
		Amount:       c.String(AmountFlag.Name),
		From:         c.String(FromFlag.Name),
		To:           c.String(ToFlag.Name),
		ExtraData:    c.String(ExtraDataFlag.Name),
		Sender:       c.String(SenderFlag.Name),
		Target:       c.String(TargetFlag.Name),
		Message:      c.String(MessageFlag.Name),
		MessageNonce: c.String(NonceFlag.Name),
	}
}

func requireFlags(c *cli.Context, names ...string) error {
	for _, name := range names {
		if c.String(name) == "" {
			return fmt.Errorf("--%s is required", name)
		}
	}
	return nil
}
