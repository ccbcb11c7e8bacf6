package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *time.Time) {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestGetHonoursMaxStale(t *testing.T) {
	c, now := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "ftb:95", []byte(`{"id":95}`)))

	body, ok, err := c.Get(ctx, "ftb:95", 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"id":95}`, string(body))

	*now = now.Add(11 * time.Minute)
	_, ok, err = c.Get(ctx, "ftb:95", 10*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "entry past max-stale should miss")

	_, ok, err = c.Get(ctx, "ftb:95", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "a longer window still hits")
}

func TestPutReplaces(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "k", []byte("one")))
	require.NoError(t, c.Put(ctx, "k", []byte("two")))

	body, ok, err := c.Get(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "two", string(body))

	_, ok, err = c.Get(ctx, "missing", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPrune(t *testing.T) {
	c, now := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "old", []byte("x")))
	*now = now.Add(2 * time.Hour)
	require.NoError(t, c.Put(ctx, "new", []byte("y")))

	n, err := c.Prune(ctx, time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, ok, _ := c.Get(ctx, "old", 24*time.Hour)
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "new", 24*time.Hour)
	assert.True(t, ok)
}
