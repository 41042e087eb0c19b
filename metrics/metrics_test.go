package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestActionsCounter(t *testing.T) {
	before := testutil.ToFloat64(Actions.WithLabelValues("devnet", "prove"))
	Actions.WithLabelValues("devnet", "prove").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(Actions.WithLabelValues("devnet", "prove")))
}

func TestNATSConnectionStatus(t *testing.T) {
	NATSConnectionStatus.Set(1)
	require.Equal(t, float64(1), testutil.ToFloat64(NATSConnectionStatus))
	NATSConnectionStatus.Set(0)
	require.Equal(t, float64(0), testutil.ToFloat64(NATSConnectionStatus))
}
