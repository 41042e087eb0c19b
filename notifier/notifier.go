package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/lightlink-network/withdrawal-relayer/metrics"
)

const DefaultSubjectPrefix = "relayer"

// Event is published for every relay step.
type Event struct {
	Network          string    `json:"network"`
	WithdrawalHash   string    `json:"withdrawal_hash"`
	TxHash           string    `json:"tx_hash,omitempty"`
	Action           string    `json:"action"`
	State            string    `json:"state"`
	L1TxHash         string    `json:"l1_tx_hash,omitempty"`
	SecondsRemaining uint64    `json:"seconds_remaining,omitempty"`
	Error            string    `json:"error,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// Subject returns <prefix>.<network>.<action>.
func Subject(prefix string, e Event) string {
	network := strings.ReplaceAll(e.Network, ".", "_")
	if network == "" {
		network = "unknown"
	}
	return fmt.Sprintf("%s.%s.%s", prefix, network, e.Action)
}

type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

type Notifier struct {
	conn   conn
	prefix string
	logger *slog.Logger
}

type NotifierOpts struct {
	URL           string
	SubjectPrefix string
	Timeout       time.Duration
	Logger        *slog.Logger
}

func NewNotifier(opts NotifierOpts) (*Notifier, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	logger := opts.Logger

	nc, err := nats.Connect(opts.URL,
		nats.Name("withdrawal-relayer"),
		nats.Timeout(opts.Timeout),
		nats.ReconnectWait(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", "error", err)
			metrics.NATSConnectionStatus.Set(0)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
			metrics.NATSConnectionStatus.Set(1)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	metrics.NATSConnectionStatus.Set(1)
	logger.Info("Connected to NATS", "url", nc.ConnectedUrl())

	return newNotifier(nc, opts.SubjectPrefix, logger), nil
}

func newNotifier(c conn, prefix string, logger *slog.Logger) *Notifier {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Notifier{conn: c, prefix: prefix, logger: logger}
}

// Publish sends the event and waits for the server to acknowledge the flush.
func (n *Notifier) Publish(ctx context.Context, e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := Subject(n.prefix, e)
	if err := n.conn.Publish(subject, data); err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to publish event: %w", err)
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to flush event: %w", err)
	}

	metrics.Notifications.WithLabelValues("published").Inc()
	n.logger.Debug("published relay event", "subject", subject, "withdrawalHash", e.WithdrawalHash)
	return nil
}

func (n *Notifier) Close() error {
	return n.conn.Drain()
}
