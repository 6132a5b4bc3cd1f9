package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pledgekit/patronage/common/patron"
)

func newRedisCells(t *testing.T) *RedisCells {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCells(client, "patrons", nopLogger{})
}

func TestRedisCellsReadMissing(t *testing.T) {
	cells := newRedisCells(t)

	data, ok, err := cells.ReadCell(context.Background(), "A1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestRedisCellsWriteReadClear(t *testing.T) {
	cells := newRedisCells(t)
	ctx := context.Background()
	payload := []byte(`{"schema":"username","patrons":{}}`)

	require.NoError(t, cells.WriteCell(ctx, "A1", payload))

	data, ok, err := cells.ReadCell(ctx, "A1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, payload, data)

	require.NoError(t, cells.ClearCell(ctx, "A1"))

	_, ok, err = cells.ReadCell(ctx, "A1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCellsIsolatedAddresses(t *testing.T) {
	cells := newRedisCells(t)
	ctx := context.Background()

	require.NoError(t, cells.WriteCell(ctx, "A1", []byte("live")))
	require.NoError(t, cells.WriteCell(ctx, "B1", []byte("backup")))

	data, ok, err := cells.ReadCell(ctx, "B1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("backup"), data)
}

func TestRedisCellsBackedStore(t *testing.T) {
	cells := newRedisCells(t)
	s := New(cells, "A1", "B1", nopLogger{})
	ctx := context.Background()

	m, err := s.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, m)

	m["alice"] = patron.Record{UserID: "123", FullName: "Alice A"}
	require.NoError(t, s.Save(ctx, m))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}
