package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiscribe/scribe/internal/graph"
)

func TestPersisterWritesThrough(t *testing.T) {
	ctx := context.Background()
	s := openTestStorage(t)
	p := NewPersister(s, "")
	store := graph.NewStore()
	store.OnChange(p.Listener())

	root, _ := store.CreateTheme("Launch Plan", graph.DefaultCenter)
	store.AddNode(root.ID)

	got, err := s.LoadDocument(ctx, DefaultDocumentName)
	require.NoError(t, err)
	assert.Equal(t, store.Snapshot(), got)
}

func TestPersisterDeletesOnReset(t *testing.T) {
	ctx := context.Background()
	s := openTestStorage(t)
	p := NewPersister(s, "m")
	store := graph.NewStore()
	store.OnChange(p.Listener())
	store.CreateTheme("T", graph.DefaultCenter)

	store.Reset()

	_, err := s.LoadDocument(ctx, "m")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPersisterSkipsEmptyDocument(t *testing.T) {
	ctx := context.Background()
	s := openTestStorage(t)
	p := NewPersister(s, "m")
	store := graph.NewStore()
	store.OnChange(p.Listener())

	store.Replace(graph.Document{})

	_, err := s.LoadDocument(ctx, "m")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPersisterLoad(t *testing.T) {
	ctx := context.Background()
	s := openTestStorage(t)
	p := NewPersister(s, "m")

	assert.True(t, p.Load(ctx).IsEmpty())

	require.NoError(t, s.SaveDocument(ctx, "m", sampleDocument()))
	assert.Equal(t, sampleDocument(), p.Load(ctx))

	_, err := s.db.ExecContext(ctx, `UPDATE documents SET body = '[' WHERE name = 'm'`)
	require.NoError(t, err)
	assert.True(t, p.Load(ctx).IsEmpty())
}

func TestPersisterReportsFailures(t *testing.T) {
	s := openTestStorage(t)
	p := NewPersister(s, "m")
	var failures int
	p.OnError = func(error) { failures++ }
	require.NoError(t, s.Close())

	store := graph.NewStore()
	store.OnChange(p.Listener())
	store.CreateTheme("T", graph.DefaultCenter)

	assert.Equal(t, 1, failures)
}
