package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/pbis-api/pkg/errors"
)

func TestMemoryCacheRepositoryExpiresEntries(t *testing.T) {
	now := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	repo := NewMemoryCacheRepository(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "pbis:roster", []string{"S1"}, 10*time.Second))

	var got []string
	require.NoError(t, repo.Get(ctx, "pbis:roster", &got))
	assert.Equal(t, []string{"S1"}, got)
	stored, ok := repo.FetchedAt("pbis:roster")
	require.True(t, ok)
	assert.Equal(t, now, stored)

	now = now.Add(10 * time.Second)
	err := repo.Get(ctx, "pbis:roster", &got)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
	_, ok = repo.FetchedAt("pbis:roster")
	assert.False(t, ok)
}

func TestMemoryCacheRepositoryDeleteByPattern(t *testing.T) {
	repo := NewMemoryCacheRepository(nil)
	ctx := context.Background()
	for _, key := range []string{"pbis:cico:2025-03", "pbis:cico:2025-04", "pbis:roster"} {
		require.NoError(t, repo.Set(ctx, key, 1, time.Minute))
	}

	require.NoError(t, repo.DeleteByPattern(ctx, "pbis:cico:*"))

	var v int
	assert.Error(t, repo.Get(ctx, "pbis:cico:2025-03", &v))
	assert.Error(t, repo.Get(ctx, "pbis:cico:2025-04", &v))
	assert.NoError(t, repo.Get(ctx, "pbis:roster", &v))
	assert.Error(t, repo.DeleteByPattern(ctx, "pbis:["))
}

func TestMemoryCacheRepositoryReturnsCopies(t *testing.T) {
	repo := NewMemoryCacheRepository(nil)
	ctx := context.Background()
	require.NoError(t, repo.Set(ctx, "k", map[string]int{"a": 1}, time.Minute))

	var first map[string]int
	require.NoError(t, repo.Get(ctx, "k", &first))
	first["a"] = 99

	var second map[string]int
	require.NoError(t, repo.Get(ctx, "k", &second))
	assert.Equal(t, 1, second["a"])
}
