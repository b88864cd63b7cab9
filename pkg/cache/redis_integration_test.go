//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/testhelpers"
)

func TestRedisStore_Integration(t *testing.T) {
	rdb := testhelpers.GetTestRedis(t)
	store := NewRedisStore(rdb)
	ctx := context.Background()

	_, found, err := store.Get(ctx, "catalog:it:missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "catalog:it:a", []byte(`"x"`), time.Minute))
	require.NoError(t, store.Set(ctx, "catalog:it:b", []byte(`"y"`), time.Minute))
	require.NoError(t, store.Set(ctx, "catalog:other:a", []byte(`"z"`), time.Minute))

	data, found, err := store.Get(ctx, "catalog:it:a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte(`"x"`), data)

	require.NoError(t, store.DeletePrefix(ctx, "catalog:it:"))
	_, found, _ = store.Get(ctx, "catalog:it:b")
	assert.False(t, found)
	_, found, _ = store.Get(ctx, "catalog:other:a")
	assert.True(t, found)
}

func TestCache_WithRedisStore_Integration(t *testing.T) {
	rdb := testhelpers.GetTestRedis(t)
	c := New(NewRedisStore(rdb), time.Minute, zap.NewNop())
	ctx := context.Background()
	key := Key{Datasource: "redis-it", Kind: "databases"}

	calls := 0
	load := func(ctx context.Context) ([]string, error) {
		calls++
		return []string{"SALES", "HR"}, nil
	}

	first, err := GetOrLoad(ctx, c, key, load)
	require.NoError(t, err)
	second, err := GetOrLoad(ctx, c, key, load)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}
