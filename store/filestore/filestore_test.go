package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notekeeper/models"
	"notekeeper/store"
)

func ptr[T any](v T) *T { return &v }

func TestAccountStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := OpenAccountStore(dir)
	require.NoError(t, err)

	t.Run("first run writes an empty snapshot", func(t *testing.T) {
		raw, err := os.ReadFile(filepath.Join(dir, accountsFile))
		require.NoError(t, err)
		assert.JSONEq(t, `[]`, string(raw))
	})

	acc := models.Account{ID: "u1", Email: "a@x.com", PasswordHash: "h", CreatedAt: time.Now().UTC()}

	t.Run("insert and find", func(t *testing.T) {
		require.NoError(t, s.Insert(ctx, acc))

		got, err := s.FindByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, acc.ID, got.ID)
	})

	t.Run("email is case sensitive", func(t *testing.T) {
		_, err := s.FindByEmail(ctx, "A@x.com")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicate email", func(t *testing.T) {
		err := s.Insert(ctx, models.Account{ID: "u2", Email: "a@x.com"})
		assert.ErrorIs(t, err, store.ErrDuplicateKey)

		all, err := s.LoadAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("survives reopen", func(t *testing.T) {
		reopened, err := OpenAccountStore(dir)
		require.NoError(t, err)

		got, err := reopened.FindByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, "h", got.PasswordHash)
		assert.True(t, acc.CreatedAt.Equal(got.CreatedAt))
	})
}

func TestOpen_CorruptFileIsNotOverwritten(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, notesFile)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := OpenNoteStore(dir)
	require.Error(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(raw))
}

func TestOpenAccountStore_CorruptFileIsNotOverwritten(t *testing.T) {
	tests := map[string]string{
		"malformed json":  "[{\"id\":",
		"duplicate email": `[{"id":"1","email":"a@x.com"},{"id":"2","email":"a@x.com"}]`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, accountsFile)
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			_, err := OpenAccountStore(dir)
			require.Error(t, err)

			raw, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, content, string(raw))
		})
	}
}

func TestNoteStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := OpenNoteStore(dir)
	require.NoError(t, err)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, owner := range []string{"alice", "bob", "alice"} {
		require.NoError(t, s.Insert(ctx, models.Note{
			ID:        fmt.Sprintf("n%d", i),
			Title:     fmt.Sprintf("title %d", i),
			Category:  models.DefaultCategory,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			OwnerID:   owner,
		}))
	}

	t.Run("find by owner keeps insertion order", func(t *testing.T) {
		got, err := s.FindByOwner(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "n0", got[0].ID)
		assert.Equal(t, "n2", got[1].ID)
	})

	t.Run("unknown owner yields empty slice", func(t *testing.T) {
		got, err := s.FindByOwner(ctx, "carol")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("duplicate id", func(t *testing.T) {
		err := s.Insert(ctx, models.Note{ID: "n0", OwnerID: "bob"})
		assert.ErrorIs(t, err, store.ErrDuplicateKey)
	})

	t.Run("partial update", func(t *testing.T) {
		updated, err := s.Update(ctx, "n0", models.NotePatch{IsPinned: ptr(true)})
		require.NoError(t, err)
		assert.True(t, updated.IsPinned)
		assert.Equal(t, "title 0", updated.Title)
		assert.Equal(t, "alice", updated.OwnerID)

		_, err = s.Update(ctx, "missing", models.NotePatch{Title: ptr("x")})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, s.Remove(ctx, "n1"))
		_, err := s.FindByID(ctx, "n1")
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.ErrorIs(t, s.Remove(ctx, "n1"), store.ErrNotFound)
	})

	t.Run("survives reopen", func(t *testing.T) {
		reopened, err := OpenNoteStore(dir)
		require.NoError(t, err)

		n0, err := reopened.FindByID(ctx, "n0")
		require.NoError(t, err)
		assert.True(t, n0.IsPinned)

		all, err := reopened.FindByOwner(ctx, "bob")
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("no temp files left behind", func(t *testing.T) {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.Equal(t, notesFile, e.Name())
		}
	})
}

func TestNoteStore_ConcurrentInsertsAreNotLost(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := OpenNoteStore(dir)
	require.NoError(t, err)

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Insert(ctx, models.Note{ID: fmt.Sprintf("c%d", i), Title: "t", OwnerID: "alice"}))
		}(i)
	}
	wg.Wait()

	reopened, err := OpenNoteStore(dir)
	require.NoError(t, err)
	got, err := reopened.FindByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, got, writers)
}

func TestSave_FailureKeepsMemoryConsistent(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	ctx := context.Background()
	dir := t.TempDir()

	s, err := OpenNoteStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	err = s.Insert(ctx, models.Note{ID: "x", Title: "t", OwnerID: "alice"})
	require.Error(t, err)

	_, err = s.FindByID(ctx, "x")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
