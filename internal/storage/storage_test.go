package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiscribe/scribe/internal/graph"
)

func openTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "scribe.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleDocument() graph.Document {
	return graph.Document{
		Nodes: []graph.Node{
			{ID: "root", Title: "Launch Plan", X: 400, Y: 300, IsTheme: true},
			{ID: "a", ParentID: graph.ParentRef("root"), Title: "Budget", X: 600, Y: 280, Note: "Q3"},
		},
		Edges: []graph.Edge{{Source: "root", Target: "a"}},
		Theme: "Launch Plan",
	}
}

func TestMigrationsApplied(t *testing.T) {
	s := openTestStorage(t)

	v, err := s.AppliedVersion(context.Background())

	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, v)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "scribe.db")

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveDocument(ctx, DefaultDocumentName, sampleDocument()))
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	defer s.Close()

	doc, err := s.LoadDocument(ctx, DefaultDocumentName)
	require.NoError(t, err)
	assert.Equal(t, sampleDocument(), doc)
}

func TestDocumentRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStorage(t)
	want := sampleDocument()

	require.NoError(t, s.SaveDocument(ctx, "m", want))
	got, err := s.LoadDocument(ctx, "m")

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveDocumentOverwrites(t *testing.T) {
	ctx := context.Background()
	s := openTestStorage(t)
	require.NoError(t, s.SaveDocument(ctx, "m", sampleDocument()))

	next := sampleDocument()
	next.Nodes = next.Nodes[:1]
	next.Edges = []graph.Edge{}
	require.NoError(t, s.SaveDocument(ctx, "m", next))

	got, err := s.LoadDocument(ctx, "m")
	require.NoError(t, err)
	assert.Len(t, got.Nodes, 1)

	infos, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "m", infos[0].Name)
	assert.Equal(t, 1, infos[0].NodeCount)
	assert.Equal(t, 0, infos[0].EdgeCount)
}

func TestLoadMissingDocument(t *testing.T) {
	s := openTestStorage(t)

	_, err := s.LoadDocument(context.Background(), "nope")

	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLoadCorruptDocument(t *testing.T) {
	ctx := context.Background()
	s := openTestStorage(t)
	_, err := s.db.ExecContext(ctx, `INSERT INTO documents (name, body) VALUES (?, ?)`, "bad", "{not json")
	require.NoError(t, err)

	_, err = s.LoadDocument(ctx, "bad")

	assert.True(t, errors.Is(err, ErrCorruptDocument))
}

func TestDeleteDocument(t *testing.T) {
	ctx := context.Background()
	s := openTestStorage(t)
	require.NoError(t, s.SaveDocument(ctx, "m", sampleDocument()))

	require.NoError(t, s.DeleteDocument(ctx, "m"))
	require.NoError(t, s.DeleteDocument(ctx, "m"))

	_, err := s.LoadDocument(ctx, "m")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	s := openTestStorage(t)

	_, err := s.GetSetting(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SetSetting(ctx, "k", "v1"))
	require.NoError(t, s.SetSetting(ctx, "k", "v2"))
	v, err := s.GetSetting(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)

	require.NoError(t, s.DeleteSetting(ctx, "k"))
	_, err = s.GetSetting(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}
