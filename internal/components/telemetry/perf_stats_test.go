package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSamplePerfStats(t *testing.T) {
	stats, err := SamplePerfStats(context.Background())
	require.NoError(t, err)
	require.Positive(t, stats.Goroutines)
	require.GreaterOrEqual(t, stats.HostMemoryPercent, 0.0)
	require.LessOrEqual(t, stats.HostMemoryPercent, 100.0)
}
