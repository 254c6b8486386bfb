// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package testsuite

import (
	"testing"

	"github.com/stretchr/testify/require"

	"storj.io/metastore/internal/testcontext"
	"storj.io/metastore/storage"
)

// RunTests runs common storage.KeyValueStore tests
func RunTests(t *testing.T, store storage.KeyValueStore) {
	t.Run("CRUD", func(t *testing.T) { testCRUD(t, store) })
	t.Run("Constraints", func(t *testing.T) { testConstraints(t, store) })
	t.Run("Batch", func(t *testing.T) { testBatch(t, store) })
}

func testCRUD(t *testing.T, store storage.KeyValueStore) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	key := storage.Key("test-key")

	_, err := store.Get(ctx, key)
	require.True(t, storage.ErrKeyNotFound.Has(err))

	require.NoError(t, store.Put(ctx, key, storage.Value("alpha")))

	value, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, storage.Value("alpha"), value)

	require.NoError(t, store.Put(ctx, key, storage.Value("beta")))

	value, err = store.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, storage.Value("beta"), value)

	require.NoError(t, store.Delete(ctx, key))

	_, err = store.Get(ctx, key)
	require.True(t, storage.ErrKeyNotFound.Has(err))
}

func testConstraints(t *testing.T, store storage.KeyValueStore) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	t.Run("Put Empty", func(t *testing.T) {
		var key storage.Key
		err := store.Put(ctx, key, storage.Value("xyz"))
		require.True(t, storage.ErrEmptyKey.Has(err))
	})

	t.Run("Get Empty", func(t *testing.T) {
		var key storage.Key
		_, err := store.Get(ctx, key)
		require.True(t, storage.ErrEmptyKey.Has(err))
	})

	t.Run("Batch Empty Key", func(t *testing.T) {
		batch := storage.NewBatch()
		batch.Put(nil, storage.Value("xyz"))
		err := store.CommitBatch(ctx, batch)
		require.Error(t, err)
	})
}

func testBatch(t *testing.T, store storage.KeyValueStore) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	a := storage.Key("batch-a")
	b := storage.Key("batch-b")
	c := storage.Key("batch-c")

	require.NoError(t, store.Put(ctx, c, storage.Value("doomed")))

	batch := storage.NewBatch()
	batch.Put(a, storage.Value("1"))
	batch.Put(b, storage.Value("2"))
	batch.Delete(c)

	// nothing lands before the commit
	_, err := store.Get(ctx, a)
	require.True(t, storage.ErrKeyNotFound.Has(err))

	require.NoError(t, store.CommitBatch(ctx, batch))

	value, err := store.Get(ctx, a)
	require.NoError(t, err)
	require.Equal(t, storage.Value("1"), value)

	value, err = store.Get(ctx, b)
	require.NoError(t, err)
	require.Equal(t, storage.Value("2"), value)

	_, err = store.Get(ctx, c)
	require.True(t, storage.ErrKeyNotFound.Has(err))

	t.Run("Staging Order", func(t *testing.T) {
		key := storage.Key("batch-order")
		batch := storage.NewBatch()
		batch.Put(key, storage.Value("first"))
		batch.Put(key, storage.Value("second"))
		batch.Delete(key)
		batch.Put(key, storage.Value("last"))
		require.NoError(t, store.CommitBatch(ctx, batch))

		value, err := store.Get(ctx, key)
		require.NoError(t, err)
		require.Equal(t, storage.Value("last"), value)

		require.NoError(t, store.Delete(ctx, key))
	})

	t.Run("Empty Batch", func(t *testing.T) {
		require.NoError(t, store.CommitBatch(ctx, storage.NewBatch()))
	})

	require.NoError(t, store.Delete(ctx, a))
	require.NoError(t, store.Delete(ctx, b))
}
