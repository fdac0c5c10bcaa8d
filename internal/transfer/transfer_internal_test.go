package transfer

import (
	"context"
	"io"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedisam/spscring/internal/ringbuffer"
)

func TestRunRecordsMetrics(t *testing.T) {
	const variant = "metrics-test"

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	b, err := ringbuffer.NewBlocking[int](4)
	require.NoError(t, err)

	_, err = New(logger, clockwork.NewRealClock()).Run(context.Background(), b, Options{
		Variant: variant,
		Items:   25,
	})
	require.NoError(t, err)

	assert.Equal(t, float64(25), testutil.ToFloat64(producedItems.WithLabelValues(variant)))
	assert.Equal(t, float64(25), testutil.ToFloat64(consumedItems.WithLabelValues(variant)))
	assert.Equal(t, float64(0), testutil.ToFloat64(failedRuns.WithLabelValues(variant)))
	assert.LessOrEqual(t, testutil.ToFloat64(occupancy.WithLabelValues(variant)), float64(4))
}

func TestRunRecordsFailure(t *testing.T) {
	const variant = "metrics-failure-test"

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	b, err := ringbuffer.NewBlocking[int](1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New(logger, clockwork.NewRealClock()).Run(ctx, b, Options{
		Variant: variant,
		Items:   3,
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, float64(1), testutil.ToFloat64(failedRuns.WithLabelValues(variant)))
}
