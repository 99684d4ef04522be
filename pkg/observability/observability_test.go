package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/blogsphere/config"
)

func TestDisabledIsNoop(t *testing.T) {
	flush, err := InitSentry(config.SentryConfig{})
	require.NoError(t, err)
	flush()

	shutdown, err := InitTracing(context.Background(), config.TracingConfig{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestTracingEnabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), config.TracingConfig{
		Enabled:      true,
		OTLPEndpoint: "127.0.0.1:4318",
		ServiceName:  "blogsphere-test",
		Insecure:     true,
	})
	require.NoError(t, err)
	assert.NotNil(t, shutdown)
	// nothing was recorded, so shutdown has nothing to export
	_ = shutdown(context.Background())
}
