package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aiscribe/scribe/internal/canvas"
	"github.com/aiscribe/scribe/internal/graph"
)

func TestRenderCanvasDrawsNodesAndEdges(t *testing.T) {
	f := newFixture(t)
	root, _ := f.ctrl.StartMap("Plan")
	f.store.AddNode(root.ID)
	f.store.SetSelection(root.ID)

	out := renderCanvas(f.ctrl.Frame(), 80, 21)

	assert.Contains(t, out, "Plan")
	assert.Contains(t, out, graph.DefaultNodeTitle)
	assert.Contains(t, out, "╔")
	assert.Contains(t, out, "┌")
	assert.Contains(t, out, "·")
	assert.Contains(t, out, "+")
	assert.Contains(t, out, "×")
	assert.Len(t, strings.Split(out, "\n"), 21)
}

func TestRenderCanvasTruncatesLongTitles(t *testing.T) {
	doc := graph.Document{Theme: "x", Nodes: []graph.Node{
		{ID: "n1", Title: strings.Repeat("long ", 10), X: 400, Y: 300},
	}}
	frame := canvas.Project(doc, "", canvas.DefaultView(), canvas.ModeIdle, nil)

	out := renderCanvas(frame, 80, 21)
	assert.Contains(t, out, "…")
	assert.NotContains(t, out, strings.Repeat("long ", 10))
}

func TestRenderCanvasShowsDraftWhileEditing(t *testing.T) {
	f := newFixture(t)
	root, _ := f.ctrl.StartMap("Plan")
	f.ctrl.BeginEdit(root.ID)
	f.ctrl.SetDraft("Draft")

	out := renderCanvas(f.ctrl.Frame(), 80, 21)
	assert.Contains(t, out, "Draft▏")
}

func TestRenderCanvasEmptyArea(t *testing.T) {
	assert.Equal(t, "", renderCanvas(canvas.Frame{}, 0, 10))
}

func TestCellCenterRoundTrip(t *testing.T) {
	x, y := cellCenter(40, 15)
	assert.Equal(t, 405.0, x)
	assert.Equal(t, 310.0, y)

	col, row := toCell(x, y)
	assert.Equal(t, 40, col)
	assert.Equal(t, 15, row)
}
