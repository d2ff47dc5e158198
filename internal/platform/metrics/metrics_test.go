package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestCollectorsAreRegistered(t *testing.T) {
	EscrowHolds.WithLabelValues("placed").Inc()
	IdempotencyResults.WithLabelValues("miss").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["ledger_escrow_holds_total"])
	assert.True(t, names["ledger_idempotency_results_total"])
}

func TestCounterIncrements(t *testing.T) {
	c := EscrowHolds.WithLabelValues("insufficient")
	before := counterValue(t, c)
	c.Inc()
	assert.Equal(t, before+1, counterValue(t, c))
}
