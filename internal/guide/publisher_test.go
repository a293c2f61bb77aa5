package guide

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestPublisher_DocumentRendersOnDemand(t *testing.T) {
	exporter, catalog, durations := setupExporter(t)
	catalog.add("Only", testItem("a"))
	publisher := NewPublisher(exporter, durations, 0)

	assert.Nil(t, publisher.Cached())

	doc, err := publisher.Document(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(doc.Content), "<tv")
	assert.False(t, doc.GeneratedAt.IsZero())
	assert.Equal(t, 2*time.Hour, doc.WindowEnd.Sub(doc.WindowStart))
	assert.Equal(t, 1, doc.Stats.Channels)
	assert.Equal(t, 1, durations.prewarms)

	again, err := publisher.Document(context.Background())
	require.NoError(t, err)
	assert.Same(t, doc, again, "cached document is reused")
	assert.Equal(t, 1, durations.prewarms)
}

func TestPublisher_RefreshReplacesDocument(t *testing.T) {
	exporter, catalog, durations := setupExporter(t)
	catalog.add("One", testItem("a"))
	publisher := NewPublisher(exporter, durations, 0)
	ctx := context.Background()

	first, err := publisher.Refresh(ctx)
	require.NoError(t, err)

	catalog.add("Two", testItem("b"))
	second, err := publisher.Refresh(ctx)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, 2, second.Stats.Channels)
	assert.Same(t, second, publisher.Cached())
}

func TestPublisher_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	exporter, catalog, durations := setupExporter(t)
	catalog.add("Loop", testItem("a"))
	publisher := NewPublisher(exporter, durations, 10*time.Millisecond)

	publisher.Start(context.Background())
	require.Eventually(t, func() bool {
		durations.mu.Lock()
		defer durations.mu.Unlock()
		return durations.prewarms >= 2
	}, time.Second, 5*time.Millisecond)
	publisher.Stop()

	assert.NotNil(t, publisher.Cached())
}
