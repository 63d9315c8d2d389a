package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Enqueued("check_item", "appended")
	m.Enqueued("check_item", "appended")
	m.Enqueued("check_item", "replaced")
	m.Confirmed("add_to_pantry", PathDrain)
	m.Failed("uncheck_item")
	m.DeadLettered("uncheck_item")
	m.DrainDone(20 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.enqueued.WithLabelValues("check_item", "appended")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.enqueued.WithLabelValues("check_item", "replaced")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.confirmed.WithLabelValues("add_to_pantry", PathDrain)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failed.WithLabelValues("uncheck_item")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deadLettered.WithLabelValues("uncheck_item")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.drains))
}

func TestMetrics_Gauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SetPending(4)
	m.SetOnline(true)

	expected := `
# HELP kitchen_sync_pending_actions Actions waiting in the queue
# TYPE kitchen_sync_pending_actions gauge
kitchen_sync_pending_actions 4
# HELP kitchen_sync_online 1 when the backend is considered reachable
# TYPE kitchen_sync_online gauge
kitchen_sync_online 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"kitchen_sync_pending_actions", "kitchen_sync_online"))

	m.SetOnline(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.online))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Enqueued("check_item", "appended")
		m.Confirmed("check_item", PathDirect)
		m.Failed("check_item")
		m.DeadLettered("check_item")
		m.DrainDone(time.Second)
		m.SetPending(1)
		m.SetOnline(true)
	})
}
