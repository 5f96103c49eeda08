package telemetry

import (
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitProfilingDisabled(t *testing.T) {
	shutdown, err := InitProfiling(ProfilingConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.NoError(t, shutdown())
	assert.False(t, IsProfilingEnabled())
}

func TestInitProfilingRejectsUnknownType(t *testing.T) {
	_, err := InitProfiling(ProfilingConfig{
		Enabled:      true,
		ServiceName:  "slipway",
		Endpoint:     "http://localhost:4040",
		ProfileTypes: []string{"cpu", "bogus"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestDefaultProfileTypes(t *testing.T) {
	assert.Equal(t, []string{"cpu", "inuse_space", "goroutines"}, defaultProfileTypes)

	for _, name := range defaultProfileTypes {
		_, err := parseProfileType(name)
		assert.NoError(t, err, name)
	}
}

func TestParseProfileType(t *testing.T) {
	pt, err := parseProfileType("mutex_duration")
	require.NoError(t, err)
	assert.Equal(t, pyroscope.ProfileMutexDuration, pt)

	_, err = parseProfileType("heap")
	assert.Error(t, err)
}
