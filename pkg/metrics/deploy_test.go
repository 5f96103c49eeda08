package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeployMetricsDisabled(t *testing.T) {
	// Registry not initialized yet: constructors return nil.
	assert.False(t, IsEnabled())
	assert.Nil(t, NewDeployMetrics())
	assert.Nil(t, NewServer(9090))
}

func TestDeployMetrics(t *testing.T) {
	InitRegistry()
	require.True(t, IsEnabled())
	require.NotNil(t, GetRegistry())

	// Idempotent
	InitRegistry()

	m := NewDeployMetrics()
	require.NotNil(t, m)

	m.ObserveDeploy("success", 2*time.Second)
	m.ObserveDeploy("success", 3*time.Second)
	m.ObserveDeploy("failure", time.Second)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.deploys.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.deploys.WithLabelValues("failure")))

	m.SetActive(true)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.active))
	m.SetActive(false)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.active))
}
