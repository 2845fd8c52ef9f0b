package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBoltStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBoltStoreRoundTrip(t *testing.T) {
	store := newTestBoltStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "cluster1-emsEvents", []byte(`[{"index":"1"}]`)))
	require.NoError(t, store.Put(ctx, "cluster1-systemStatus", []byte(`{"systemHealth":0}`)))

	data, err := store.Get(ctx, "cluster1-emsEvents")
	require.NoError(t, err)
	assert.Equal(t, `[{"index":"1"}]`, string(data))

	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cluster1-emsEvents", "cluster1-systemStatus"}, keys)

	require.NoError(t, store.Delete(ctx, "cluster1-emsEvents"))
	_, err = store.Get(ctx, "cluster1-emsEvents")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBoltStoreMissingKey(t *testing.T) {
	store := newTestBoltStore(t)

	_, err := store.Get(context.Background(), "never-written")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "never-written")
}

func TestBoltStoreOverwrite(t *testing.T) {
	store := newTestBoltStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "key", []byte("old")))
	require.NoError(t, store.Put(ctx, "key", []byte("new")))

	data, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestBoltStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewBoltStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "key", []byte("kept")))
	require.NoError(t, store.Close())

	reopened, err := NewBoltStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	data, err := reopened.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "kept", string(data))
}
