package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersAndObserves(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	require.NotNil(t, m)

	m.ObserveToolExecution("read_file", "success", 10*time.Millisecond)
	m.ObserveLoopDetection("exact_repeat")
	m.ObserveBridgeCall("filesystem", "success")
	m.ObserveCompression("compressed")
	m.ObserveTaskIterations(7)
	m.ObserveSubAgentRun("GOAL")

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveToolExecution("x", "success", time.Second)
	m.ObserveLoopDetection("x")
	m.ObserveBridgeCall("x", "x")
	m.ObserveCompression("x")
	m.ObserveTaskIterations(1)
	m.ObserveSubAgentRun("x")
}
