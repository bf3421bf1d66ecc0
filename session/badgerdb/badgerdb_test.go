// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package badgerdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hushcomm/hush/session"
	"github.com/hushcomm/hush/session/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t testing.TB) session.Store {
		store, err := New(t.TempDir())
		require.NoError(t, err)
		t.Cleanup(func() {
			require.NoError(t, store.Close())
		})
		return store
	})
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	rec := storagetest.NewRecord(t, "thread-reopen", session.StatusActive)
	require.NoError(t, store.Insert(ctx, rec))
	_, err = store.BumpMessageCount(ctx, "thread-reopen")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = New(dir)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.GetActive(ctx, "thread-reopen")
	require.NoError(t, err)
	require.Equal(t, rec.ID, got.ID)
	require.Equal(t, rec.PublicKey, got.PublicKey)
	require.True(t, rec.CreatedAt.Equal(got.CreatedAt))

	count, err := store.MessageCount(ctx, "thread-reopen")
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)
}
