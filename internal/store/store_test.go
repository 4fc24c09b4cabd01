package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LISSConsulting/LISSTech.Spellbook/internal/bestiary"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/config"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/dynamis"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/spellbook"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/tome"
)

func backends(t *testing.T) map[string]Blob {
	t.Helper()
	file, err := NewFileBlob(filepath.Join(t.TempDir(), "file"))
	require.NoError(t, err)
	db, err := NewSQLiteBlob(filepath.Join(t.TempDir(), "sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return map[string]Blob{"file": file, "sqlite": db}
}

func TestBlob(t *testing.T) {
	ctx := context.Background()
	for name, blob := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := blob.Get(ctx, "redux")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, blob.Put(ctx, "redux", []byte(`{"a":1}`)))
			got, err := blob.Get(ctx, "redux")
			require.NoError(t, err)
			assert.Equal(t, `{"a":1}`, string(got))

			require.NoError(t, blob.Put(ctx, "redux", []byte(`{"a":2}`)))
			got, err = blob.Get(ctx, "redux")
			require.NoError(t, err)
			assert.Equal(t, `{"a":2}`, string(got), "put overwrites")

			require.NoError(t, blob.Delete(ctx, "redux"))
			_, err = blob.Get(ctx, "redux")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, blob.Delete(ctx, "redux"), "deleting a missing key")
		})
	}
}

func TestFileBlobRejectsPathKeys(t *testing.T) {
	blob, err := NewFileBlob(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "..", "a/b", `a\b`} {
		err := blob.Put(context.Background(), key, []byte("x"))
		assert.Error(t, err, "key %q", key)
	}
}

func TestFileBlobLayout(t *testing.T) {
	dir := t.TempDir()
	blob, err := NewFileBlob(dir)
	require.NoError(t, err)
	require.NoError(t, blob.Put(context.Background(), "redux", []byte("{}")))

	data, err := os.ReadFile(filepath.Join(dir, "redux.json"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func sampleState() State {
	at := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	return State{
		Version: "1.2.0",
		Spellbook: spellbook.State{
			You:   "Alice",
			Party: spellbook.Roster{"Alice": {ID: "10FF0001", Job: 24}},
			Resting: []spellbook.TrackedAbility{
				{ID: "1D6B", Name: "Benediction", Icon: "https://xivapi.com/i/002000/002627.png", StartedAt: at, Duration: 180 * time.Second, Resolved: true, Seq: 0},
				{ID: "40", StartedAt: at.Add(time.Second), Duration: 60 * time.Second, Seq: 1},
			},
		},
		Tome: map[string]tome.Action{
			"1D6B": {ID: "1D6B", Name: "Benediction", Recast: 180 * time.Second},
		},
		Bestiary: map[string]bestiary.Entry{
			"Striking Dummy": {ID: "40001234", BNpcID: "541", SeenAt: at},
		},
		Dynamis: dynamis.State{ZoneID: 132, ZoneName: "New Gridania", EnteredAt: at},
	}
}

func TestPersister(t *testing.T) {
	ctx := context.Background()
	for name, blob := range backends(t) {
		t.Run(name, func(t *testing.T) {
			p := NewPersister(blob, "redux")

			_, found, err := p.Load(ctx)
			require.NoError(t, err)
			assert.False(t, found)

			want := sampleState()
			require.NoError(t, p.Save(ctx, want))

			got, found, err := p.Load(ctx)
			require.NoError(t, err)
			require.True(t, found)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("state mismatch (-want +got):\n%s", diff)
			}

			require.NoError(t, p.Reset(ctx))
			_, found, err = p.Load(ctx)
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestPersisterCorruptBlob(t *testing.T) {
	blob, err := NewFileBlob(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, blob.Put(context.Background(), "redux", []byte("not json")))

	_, _, err = NewPersister(blob, "redux").Load(context.Background())
	assert.ErrorContains(t, err, "parse state")
}

func TestOpen(t *testing.T) {
	cfg := config.Defaults()
	cfg.Dir = t.TempDir()

	blob, err := Open(&cfg)
	require.NoError(t, err)
	assert.IsType(t, &FileBlob{}, blob)
	require.NoError(t, blob.Close())

	cfg.Storage.Backend = config.BackendSQLite
	blob, err = Open(&cfg)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteBlob{}, blob)
	require.NoError(t, blob.Close())
	assert.FileExists(t, filepath.Join(cfg.StateDir(), SQLiteFileName))

	cfg.Storage.Backend = "redis"
	_, err = Open(&cfg)
	assert.Error(t, err)
}

func TestLock(t *testing.T) {
	dir := t.TempDir()

	unlock, err := Lock(dir)
	require.NoError(t, err)

	_, err = Lock(dir)
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, unlock())

	unlock, err = Lock(dir)
	require.NoError(t, err)
	require.NoError(t, unlock())
}
