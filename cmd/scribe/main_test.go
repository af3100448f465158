package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiscribe/scribe/internal/graph"
	"github.com/aiscribe/scribe/internal/mapfile"
)

func runScribe(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeMapFile(t *testing.T, dir string) string {
	t.Helper()
	doc := graph.Document{
		Theme: "Launch Plan",
		Nodes: []graph.Node{
			{ID: "root", Title: "Launch Plan", X: 400, Y: 300, IsTheme: true},
			{ID: "a", ParentID: graph.ParentRef("root"), Title: "Marketing", X: 600, Y: 250},
		},
		Edges: []graph.Edge{graph.NewEdge("root", "a")},
	}
	data, err := mapfile.Export(doc)
	require.NoError(t, err)
	path := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestImportExportReset(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "scribe.db")
	in := writeMapFile(t, dir)

	out, err := runScribe(t, "", "--db-path", db, "import", in)
	require.NoError(t, err)
	assert.Contains(t, out, `imported "Launch Plan": 2 nodes, 1 edges`)

	exportDir := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(exportDir, 0o755))
	out, err = runScribe(t, "", "--db-path", db, "export", exportDir)
	require.NoError(t, err)

	path := strings.TrimSpace(out)
	assert.Regexp(t, `mindmap-\d+\.json$`, path)
	doc, err := mapfile.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Launch Plan", doc.Theme)
	assert.Len(t, doc.Nodes, 2)
	assert.Len(t, doc.Edges, 1)

	out, err = runScribe(t, "", "--db-path", db, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ai-scribe-map *")

	_, err = runScribe(t, "", "--db-path", db, "reset")
	require.NoError(t, err)

	out, err = runScribe(t, "", "--db-path", db, "export", exportDir)
	require.NoError(t, err)
	doc, err = mapfile.ReadFile(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.True(t, doc.IsEmpty())
}

func TestImportRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("[1,2]"), 0o644))

	_, err := runScribe(t, "", "--db-path", filepath.Join(dir, "scribe.db"), "import", bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, mapfile.ErrInvalidDocument)
}

func TestKeyCommands(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "scribe.db")

	_, err := runScribe(t, "   \n", "--db-path", db, "key", "set", "--stdin")
	require.Error(t, err)

	out, err := runScribe(t, "sk-test\n", "--db-path", db, "key", "set", "--stdin")
	require.NoError(t, err)
	assert.Contains(t, out, "API key saved")

	out, err = runScribe(t, "", "--db-path", db, "key", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "configured: true")
	assert.Contains(t, out, "source: settings")

	_, err = runScribe(t, "", "--db-path", db, "key", "clear")
	require.NoError(t, err)
	out, err = runScribe(t, "", "--db-path", db, "key", "status")
	require.NoError(t, err)
	assert.NotContains(t, out, "source: settings")
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "scribe.yaml")
	yaml := "db_path: from-file.db\nlog_level: warn\nai:\n  provider: ollama\n  model: llama3\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o644))

	f := &rootFlags{}
	root := buildRootCmd(f)
	sub, _, err := root.Find([]string{"reset"})
	require.NoError(t, err)
	require.NoError(t, sub.ParseFlags([]string{"--config", cfgPath, "--ai-provider", "OpenAI"}))

	cfg, err := f.resolve(sub)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, "llama3", cfg.AI.Model)
	assert.Equal(t, "from-file.db", cfg.DBPath)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestMissingConfigFileFails(t *testing.T) {
	_, err := runScribe(t, "", "--config", filepath.Join(t.TempDir(), "nope.yaml"), "reset")
	assert.Error(t, err)
}
