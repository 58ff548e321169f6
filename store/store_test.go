package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_MetricsTTL(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	s.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, s.StoreMetrics(ctx, "quality_metrics:REPORT", map[string]any{"overall_score": 0.8}, 24*time.Hour))

	doc, err := s.GetMetrics(ctx, "quality_metrics:REPORT")
	require.NoError(t, err)
	assert.Equal(t, 0.8, doc["overall_score"])

	// Advance past the expiry: the entry is gone.
	now = now.Add(25 * time.Hour)
	doc, err = s.GetMetrics(ctx, "quality_metrics:REPORT")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestMemoryStore_ListsPreserveOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.AddToList(ctx, "history", map[string]any{"seq": i}))
	}

	list, err := s.GetList(ctx, "history")
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, doc := range list {
		assert.Equal(t, i, doc["seq"])
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.StoreMetrics(ctx, "k", map[string]any{"v": "original"}, 0))

	doc, err := s.GetMetrics(ctx, "k")
	require.NoError(t, err)
	doc["v"] = "mutated"

	doc2, err := s.GetMetrics(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "original", doc2["v"])
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.StoreMetrics(ctx, "quality_metrics:TRIAGE", map[string]any{"overall_score": 0.6, "quality_level": "ACCEPTABLE"}, time.Hour))

	doc, err := s.GetMetrics(ctx, "quality_metrics:TRIAGE")
	require.NoError(t, err)
	assert.Equal(t, 0.6, doc["overall_score"])
	assert.Equal(t, "ACCEPTABLE", doc["quality_level"])

	// Upsert replaces the previous document.
	require.NoError(t, s.StoreMetrics(ctx, "quality_metrics:TRIAGE", map[string]any{"overall_score": 0.9}, time.Hour))
	doc, err = s.GetMetrics(ctx, "quality_metrics:TRIAGE")
	require.NoError(t, err)
	assert.Equal(t, 0.9, doc["overall_score"])
}

func TestSQLiteStore_ExpiredMetricsIgnored(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	now := time.Now()
	s.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, s.StoreMetrics(ctx, "k", map[string]any{"v": 1.0}, time.Minute))

	now = now.Add(2 * time.Minute)
	doc, err := s.GetMetrics(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestSQLiteStore_Lists(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.AddToList(ctx, "runs", map[string]any{"run": "a"}))
	require.NoError(t, s.AddToList(ctx, "runs", map[string]any{"run": "b"}))

	list, err := s.GetList(ctx, "runs")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0]["run"])
	assert.Equal(t, "b", list[1]["run"])
}
