package canvas

import (
	"fmt"
	"math"

	"github.com/aiscribe/scribe/internal/graph"
)

// Node geometry in logical units. A node is a NodeWidth×NodeHeight box
// centred on its position; the selected node shows two circular affixes
// below it.
const (
	NodeWidth         = 130.0
	NodeHeight        = 50.0
	AffixRadius       = 12.0
	AffixOffsetX      = 18.0
	AffixOffsetY      = 35.0
	EdgeControlOffset = 80.0
	EdgeStrokeWidth   = 1.5
)

// ---------------------------------------------------------------------------
// Hit testing
// ---------------------------------------------------------------------------

// TargetKind names what a pointer landed on.
type TargetKind string

const (
	TargetCanvas   TargetKind = "canvas"
	TargetNode     TargetKind = "node"
	TargetAddChild TargetKind = "add"
	TargetDelete   TargetKind = "delete"
)

// Target is the result of a hit test.
type Target struct {
	Kind   TargetKind `json:"kind"`
	NodeID string     `json:"nodeId,omitempty"`
}

// HitTest resolves a screen point to the topmost thing under it. The
// selected node's affixes sit above every node body; among bodies, later
// nodes are drawn over earlier ones.
func (c *Controller) HitTest(sx, sy float64) Target {
	view := c.View()
	doc := c.store.Snapshot()
	return hitTest(doc, c.store.Selection(), view.ToLogical(sx, sy))
}

func hitTest(doc graph.Document, selected string, p graph.Position) Target {
	if sel, ok := doc.FindNode(selected); ok {
		ay := sel.Y + AffixOffsetY
		if math.Hypot(p.X-(sel.X-AffixOffsetX), p.Y-ay) <= AffixRadius {
			return Target{Kind: TargetAddChild, NodeID: sel.ID}
		}
		if math.Hypot(p.X-(sel.X+AffixOffsetX), p.Y-ay) <= AffixRadius {
			return Target{Kind: TargetDelete, NodeID: sel.ID}
		}
	}
	for i := len(doc.Nodes) - 1; i >= 0; i-- {
		n := doc.Nodes[i]
		if math.Abs(p.X-n.X) <= NodeWidth/2 && math.Abs(p.Y-n.Y) <= NodeHeight/2 {
			return Target{Kind: TargetNode, NodeID: n.ID}
		}
	}
	return Target{Kind: TargetCanvas}
}

// ---------------------------------------------------------------------------
// Frame projection
// ---------------------------------------------------------------------------

// Rect is a screen-space rectangle given by its top-left corner.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Point is a screen-space point.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Circle is a screen-space circle.
type Circle struct {
	CX float64 `json:"cx"`
	CY float64 `json:"cy"`
	R  float64 `json:"r"`
}

// NodeShape is one node as drawn.
type NodeShape struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Box      Rect    `json:"box"`
	Selected bool    `json:"selected,omitempty"`
	Theme    bool    `json:"theme,omitempty"`
	Editing  bool    `json:"editing,omitempty"`
	Draft    string  `json:"draft,omitempty"`
	AddAffix *Circle `json:"addAffix,omitempty"`
	DelAffix *Circle `json:"deleteAffix,omitempty"`
}

// EdgeShape is one edge as drawn: a cubic Bézier leaving the source
// horizontally and entering the target horizontally. Points holds the start,
// both control points and the end.
type EdgeShape struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Path   string   `json:"path"`
	Points [4]Point `json:"points"`
	Stroke float64  `json:"stroke"`
}

// At evaluates the curve at t in [0,1].
func (e EdgeShape) At(t float64) Point {
	u := 1 - t
	a, b, c, d := u*u*u, 3*u*u*t, 3*u*t*t, t*t*t
	p := e.Points
	return Point{
		X: a*p[0].X + b*p[1].X + c*p[2].X + d*p[3].X,
		Y: a*p[0].Y + b*p[1].Y + c*p[2].Y + d*p[3].Y,
	}
}

// Frame is everything a host needs to draw the canvas.
type Frame struct {
	View      View        `json:"view"`
	Mode      Mode        `json:"mode"`
	Theme     string      `json:"theme"`
	Selection string      `json:"selection,omitempty"`
	Nodes     []NodeShape `json:"nodes"`
	Edges     []EdgeShape `json:"edges"`
}

// Frame projects the current map and view into screen space. Edges whose
// source or target is missing are skipped.
func (c *Controller) Frame() Frame {
	c.mu.Lock()
	view, mode := c.view, c.mode
	var edit *EditState
	if c.edit != nil {
		e := *c.edit
		edit = &e
	}
	c.mu.Unlock()

	return Project(c.store.Snapshot(), c.store.Selection(), view, mode, edit)
}

// Project is the pure projection behind Controller.Frame.
func Project(doc graph.Document, selected string, view View, mode Mode, edit *EditState) Frame {
	f := Frame{
		View:      view,
		Mode:      mode,
		Theme:     doc.Theme,
		Selection: selected,
		Nodes:     make([]NodeShape, 0, len(doc.Nodes)),
		Edges:     make([]EdgeShape, 0, len(doc.Edges)),
	}

	byID := make(map[string]graph.Node, len(doc.Nodes))
	for _, n := range doc.Nodes {
		byID[n.ID] = n
	}

	for _, e := range doc.Edges {
		s, ok1 := byID[e.Source]
		t, ok2 := byID[e.Target]
		if !ok1 || !ok2 {
			continue
		}
		pts := edgePoints(view, s.Position(), t.Position())
		f.Edges = append(f.Edges, EdgeShape{
			Source: e.Source,
			Target: e.Target,
			Path:   edgePath(pts),
			Points: pts,
			Stroke: EdgeStrokeWidth,
		})
	}

	for _, n := range doc.Nodes {
		x, y := view.ToScreen(graph.Position{X: n.X - NodeWidth/2, Y: n.Y - NodeHeight/2})
		shape := NodeShape{
			ID:       n.ID,
			Title:    n.Title,
			Box:      Rect{X: x, Y: y, W: NodeWidth * view.Zoom, H: NodeHeight * view.Zoom},
			Selected: n.ID == selected,
			Theme:    n.IsTheme,
		}
		if edit != nil && edit.NodeID == n.ID {
			shape.Editing = true
			shape.Draft = edit.Draft
		}
		if shape.Selected {
			shape.AddAffix = affix(view, n.X-AffixOffsetX, n.Y+AffixOffsetY)
			shape.DelAffix = affix(view, n.X+AffixOffsetX, n.Y+AffixOffsetY)
		}
		f.Nodes = append(f.Nodes, shape)
	}
	return f
}

func affix(view View, x, y float64) *Circle {
	cx, cy := view.ToScreen(graph.Position{X: x, Y: y})
	return &Circle{CX: cx, CY: cy, R: AffixRadius * view.Zoom}
}

// edgePoints returns s, s+(80,0), t-(80,0) and t in screen space.
func edgePoints(view View, s, t graph.Position) [4]Point {
	var pts [4]Point
	for i, p := range []graph.Position{
		s,
		{X: s.X + EdgeControlOffset, Y: s.Y},
		{X: t.X - EdgeControlOffset, Y: t.Y},
		t,
	} {
		pts[i].X, pts[i].Y = view.ToScreen(p)
	}
	return pts
}

// edgePath renders the SVG path data for a cubic curve.
func edgePath(p [4]Point) string {
	return fmt.Sprintf("M %s %s C %s %s, %s %s, %s %s",
		num(p[0].X), num(p[0].Y), num(p[1].X), num(p[1].Y),
		num(p[2].X), num(p[2].Y), num(p[3].X), num(p[3].Y))
}

func num(f float64) string {
	return fmt.Sprintf("%g", math.Round(f*100)/100)
}
