package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/aiscribe/scribe/internal/canvas"
)

// A terminal cell stands for a cellWidth×cellHeight patch of canvas screen
// space, so a default 130×50 node is 13 cells wide.
const (
	cellWidth  = 10.0
	cellHeight = 20.0
)

type cellKind uint8

const (
	kindEmpty cellKind = iota
	kindEdge
	kindNode
	kindTheme
	kindSelected
	kindAffix
)

var cellStyles = map[cellKind]lipgloss.Style{
	kindEmpty:    lipgloss.NewStyle(),
	kindEdge:     lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	kindNode:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
	kindTheme:    lipgloss.NewStyle().Foreground(lipgloss.Color("141")).Bold(true),
	kindSelected: lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
	kindAffix:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
}

type border struct {
	topLeft, topRight, bottomLeft, bottomRight rune
	horizontal, vertical                       rune
}

var (
	plainBorder    = border{'┌', '┐', '└', '┘', '─', '│'}
	selectedBorder = border{'╔', '╗', '╚', '╝', '═', '║'}
)

type grid struct {
	w, h  int
	runes [][]rune
	kinds [][]cellKind
}

func newGrid(w, h int) *grid {
	g := &grid{w: w, h: h, runes: make([][]rune, h), kinds: make([][]cellKind, h)}
	for r := range g.runes {
		g.runes[r] = []rune(strings.Repeat(" ", w))
		g.kinds[r] = make([]cellKind, w)
	}
	return g
}

func (g *grid) set(col, row int, ch rune, k cellKind) {
	if col < 0 || row < 0 || col >= g.w || row >= g.h {
		return
	}
	g.runes[row][col] = ch
	g.kinds[row][col] = k
}

func (g *grid) String() string {
	var b strings.Builder
	for r := 0; r < g.h; r++ {
		start := 0
		for c := 1; c <= g.w; c++ {
			if c < g.w && g.kinds[r][c] == g.kinds[r][start] {
				continue
			}
			b.WriteString(cellStyles[g.kinds[r][start]].Render(string(g.runes[r][start:c])))
			start = c
		}
		if r < g.h-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// toCell maps a canvas screen point to a cell.
func toCell(x, y float64) (int, int) {
	return int(math.Floor(x / cellWidth)), int(math.Floor(y / cellHeight))
}

// cellCenter is the canvas screen point a cell's pointer events report.
func cellCenter(col, row int) (float64, float64) {
	return float64(col)*cellWidth + cellWidth/2, float64(row)*cellHeight + cellHeight/2
}

// renderCanvas draws a frame into a w×h block of cells.
func renderCanvas(f canvas.Frame, w, h int) string {
	if w <= 0 || h <= 0 {
		return ""
	}
	g := newGrid(w, h)

	for _, e := range f.Edges {
		drawEdge(g, e)
	}
	for _, n := range f.Nodes {
		drawNode(g, n)
	}
	return g.String()
}

func drawEdge(g *grid, e canvas.EdgeShape) {
	p0, p3 := e.Points[0], e.Points[3]
	span := math.Abs(p3.X-p0.X)/cellWidth + math.Abs(p3.Y-p0.Y)/cellHeight
	steps := int(span*2) + 8
	for i := 0; i <= steps; i++ {
		p := e.At(float64(i) / float64(steps))
		col, row := toCell(p.X, p.Y)
		if col >= 0 && row >= 0 && col < g.w && row < g.h && g.kinds[row][col] == kindEmpty {
			g.set(col, row, '·', kindEdge)
		}
	}
}

func drawNode(g *grid, n canvas.NodeShape) {
	left := int(math.Round(n.Box.X / cellWidth))
	top := int(math.Round(n.Box.Y / cellHeight))
	right := int(math.Round((n.Box.X+n.Box.W)/cellWidth)) - 1
	bottom := int(math.Round((n.Box.Y+n.Box.H)/cellHeight)) - 1
	if right < left+3 {
		right = left + 3
	}
	if bottom < top+2 {
		bottom = top + 2
	}

	kind := kindNode
	b := plainBorder
	switch {
	case n.Selected:
		kind = kindSelected
		b = selectedBorder
	case n.Theme:
		kind = kindTheme
	}

	for row := top; row <= bottom; row++ {
		for col := left; col <= right; col++ {
			ch := ' '
			switch {
			case row == top && col == left:
				ch = b.topLeft
			case row == top && col == right:
				ch = b.topRight
			case row == bottom && col == left:
				ch = b.bottomLeft
			case row == bottom && col == right:
				ch = b.bottomRight
			case row == top || row == bottom:
				ch = b.horizontal
			case col == left || col == right:
				ch = b.vertical
			}
			g.set(col, row, ch, kind)
		}
	}

	label := n.Title
	if n.Editing {
		label = n.Draft + "▏"
	}
	inner := right - left - 1
	text := []rune(label)
	if len(text) > inner {
		text = append(text[:inner-1], '…')
	}
	mid := top + (bottom-top)/2
	start := left + 1 + (inner-len(text))/2
	for i, ch := range text {
		g.set(start+i, mid, ch, kind)
	}

	if n.AddAffix != nil {
		col, row := toCell(n.AddAffix.CX, n.AddAffix.CY)
		g.set(col, row, '+', kindAffix)
	}
	if n.DelAffix != nil {
		col, row := toCell(n.DelAffix.CX, n.DelAffix.CY)
		g.set(col, row, '×', kindAffix)
	}
}
