package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetMetrics(t *testing.T) {
	m := GetMetrics()
	require.NotNil(t, m)
	require.Same(t, m, GetMetrics())

	require.NotNil(t, m.BuildsTotal)
	require.NotNil(t, m.BuildErrorsTotal)
	require.NotNil(t, m.BuildDuration)
	require.NotNil(t, m.OutputBytes)
	require.NotNil(t, m.ReloadBroadcastsTotal)
	require.NotNil(t, m.ReloadClients)
	require.NotNil(t, m.RequestsTotal)

	// recording against the default global provider must not panic
	ctx := context.Background()
	m.BuildsTotal.Add(ctx, 1)
	m.BuildDuration.Record(ctx, 12.5)
	m.ReloadClients.Add(ctx, -1)
}

func TestTracer(t *testing.T) {
	_, span := Tracer().Start(context.Background(), "test")
	defer span.End()
	require.NotNil(t, span)
}
