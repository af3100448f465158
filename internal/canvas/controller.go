// Package canvas implements the whiteboard interaction model: the
// idle/panning/dragging pointer state machine, the pan and zoom view
// transform, inline title editing and the projection of the map into
// screen-space shapes. It is host-agnostic; the HTTP API and the terminal
// UI both drive the same Controller.
package canvas

import (
	"math"
	"strings"
	"sync"

	"github.com/aiscribe/scribe/internal/graph"
)

// View limits and steps.
const (
	MinZoom          = 0.2
	MaxZoom          = 3.0
	ZoomStep         = 0.1
	WheelSensitivity = 0.001
)

// Mode is the pointer interaction state.
type Mode string

const (
	ModeIdle     Mode = "idle"
	ModePanning  Mode = "panning"
	ModeDragging Mode = "dragging"
)

// ---------------------------------------------------------------------------
// View transform
// ---------------------------------------------------------------------------

// View maps logical coordinates to the screen: screen = logical*Zoom + Pan.
type View struct {
	PanX float64 `json:"panX"`
	PanY float64 `json:"panY"`
	Zoom float64 `json:"zoom"`
}

// DefaultView is the identity transform.
func DefaultView() View {
	return View{Zoom: 1}
}

// ToScreen projects a logical point.
func (v View) ToScreen(p graph.Position) (float64, float64) {
	return p.X*v.Zoom + v.PanX, p.Y*v.Zoom + v.PanY
}

// ToLogical inverts ToScreen.
func (v View) ToLogical(sx, sy float64) graph.Position {
	return graph.Position{X: (sx - v.PanX) / v.Zoom, Y: (sy - v.PanY) / v.Zoom}
}

func clampZoom(z float64) float64 {
	return math.Min(math.Max(z, MinZoom), MaxZoom)
}

// ---------------------------------------------------------------------------
// Store contract
// ---------------------------------------------------------------------------

// Store is the subset of *graph.Store the controller drives.
type Store interface {
	Snapshot() graph.Document
	Node(id string) (graph.Node, bool)
	Selection() string
	SetSelection(id string) bool
	ClearSelection()
	AddNode(parentID string) graph.Node
	DeleteNode(id string) bool
	MoveNode(id string, dx, dy float64) bool
	RenameNode(id, title string) bool
	CreateTheme(title string, center graph.Position) (graph.Node, bool)
}

// ---------------------------------------------------------------------------
// Controller
// ---------------------------------------------------------------------------

// EditState is an in-progress title edit.
type EditState struct {
	NodeID string `json:"nodeId"`
	Draft  string `json:"draft"`
}

// Controller turns pointer and keyboard input into store mutations and view
// changes. Its own lock is never held while it calls into the store, so
// store change listeners may call back into the controller.
type Controller struct {
	store  Store
	center graph.Position

	mu     sync.Mutex
	mode   Mode
	dragID string
	view   View
	edit   *EditState
}

// New returns an idle controller with the default view. center is where a
// new theme node is placed.
func New(store Store, center graph.Position) *Controller {
	return &Controller{
		store:  store,
		center: center,
		mode:   ModeIdle,
		view:   DefaultView(),
	}
}

// Mode returns the current pointer state.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// View returns the current view transform.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Editing returns the in-progress edit, if any.
func (c *Controller) Editing() (EditState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.edit == nil {
		return EditState{}, false
	}
	return *c.edit, true
}

// ============================== MAP START =================================

// StartMap replaces the map with a theme node titled title and resets the
// view. Blank titles are rejected.
func (c *Controller) StartMap(title string) (graph.Node, bool) {
	n, ok := c.store.CreateTheme(title, c.center)
	if !ok {
		return graph.Node{}, false
	}
	c.mu.Lock()
	c.view = DefaultView()
	c.mode = ModeIdle
	c.dragID = ""
	c.edit = nil
	c.mu.Unlock()
	return n, true
}

// =============================== POINTER ==================================

// PointerDown starts an interaction on target. The canvas background starts
// a pan and clears the selection; a node starts a drag and selects it; the
// add and delete affixes act on their node without starting a drag. An edit
// in progress is committed first.
func (c *Controller) PointerDown(t Target) {
	c.ConfirmEdit()

	switch t.Kind {
	case TargetCanvas:
		c.store.ClearSelection()
		c.setMode(ModePanning, "")
	case TargetNode:
		if _, ok := c.store.Node(t.NodeID); !ok {
			return
		}
		c.store.SetSelection(t.NodeID)
		c.setMode(ModeDragging, t.NodeID)
	case TargetAddChild:
		if c.affixOwner(t) {
			c.store.AddNode(t.NodeID)
		}
	case TargetDelete:
		if c.affixOwner(t) {
			c.store.DeleteNode(t.NodeID)
		}
	}
}

// affixOwner reports whether t belongs to the selected node. Affixes are
// only drawn on the selection, so any other node id is ignored.
func (c *Controller) affixOwner(t Target) bool {
	return t.NodeID != "" && t.NodeID == c.store.Selection()
}

// PointerMove applies a pointer displacement in screen pixels. While
// panning the view pans by (dx, dy); while dragging the node moves by
// (dx, dy)/zoom so it tracks the pointer at any zoom.
func (c *Controller) PointerMove(dx, dy float64) {
	c.mu.Lock()
	mode, dragID, zoom := c.mode, c.dragID, c.view.Zoom
	if mode == ModePanning {
		c.view.PanX += dx
		c.view.PanY += dy
	}
	c.mu.Unlock()

	if mode == ModeDragging {
		if !c.store.MoveNode(dragID, dx/zoom, dy/zoom) {
			// Node vanished mid-drag.
			c.setMode(ModeIdle, "")
		}
	}
}

// PointerUp ends any pan or drag.
func (c *Controller) PointerUp() {
	c.setMode(ModeIdle, "")
}

// PointerLeave behaves like PointerUp.
func (c *Controller) PointerLeave() {
	c.setMode(ModeIdle, "")
}

func (c *Controller) setMode(m Mode, dragID string) {
	c.mu.Lock()
	c.mode = m
	c.dragID = dragID
	c.mu.Unlock()
}

// ================================= ZOOM ===================================

// Wheel zooms by -deltaY*0.001, clamped to [MinZoom, MaxZoom]. The pan is
// left unchanged, so the zoom is anchored at the logical origin rather than
// at the pointer.
func (c *Controller) Wheel(deltaY float64) {
	c.mu.Lock()
	c.view.Zoom = clampZoom(c.view.Zoom - deltaY*WheelSensitivity)
	c.mu.Unlock()
}

// ZoomIn steps the zoom up by ZoomStep.
func (c *Controller) ZoomIn() {
	c.mu.Lock()
	c.view.Zoom = clampZoom(c.view.Zoom + ZoomStep)
	c.mu.Unlock()
}

// ZoomOut steps the zoom down by ZoomStep.
func (c *Controller) ZoomOut() {
	c.mu.Lock()
	c.view.Zoom = clampZoom(c.view.Zoom - ZoomStep)
	c.mu.Unlock()
}

// ResetView restores zero pan and unit zoom.
func (c *Controller) ResetView() {
	c.mu.Lock()
	c.view = DefaultView()
	c.mu.Unlock()
}

// ================================= EDIT ===================================

// DoubleClick opens the title editor for a node.
func (c *Controller) DoubleClick(nodeID string) bool {
	return c.BeginEdit(nodeID)
}

// BeginEdit opens the title editor for id, seeded with its current title.
func (c *Controller) BeginEdit(id string) bool {
	n, ok := c.store.Node(id)
	if !ok {
		return false
	}
	c.mu.Lock()
	c.edit = &EditState{NodeID: id, Draft: n.Title}
	c.mode = ModeIdle
	c.dragID = ""
	c.mu.Unlock()
	return true
}

// SetDraft replaces the draft text of the open editor.
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	if c.edit != nil {
		c.edit.Draft = text
	}
	c.mu.Unlock()
}

// ConfirmEdit closes the editor and renames the node to the trimmed draft.
// A blank draft leaves the title unchanged. It reports whether a rename was
// applied.
func (c *Controller) ConfirmEdit() bool {
	c.mu.Lock()
	edit := c.edit
	c.edit = nil
	c.mu.Unlock()
	if edit == nil {
		return false
	}
	return c.store.RenameNode(edit.NodeID, strings.TrimSpace(edit.Draft))
}

// CancelEdit closes the editor without renaming.
func (c *Controller) CancelEdit() {
	c.mu.Lock()
	c.edit = nil
	c.mu.Unlock()
}

// ========================== KEYBOARD SHORTCUTS ============================

// AddChildOfSelection adds a child under the selected node, or a
// free-standing node when nothing is selected.
func (c *Controller) AddChildOfSelection() graph.Node {
	return c.store.AddNode(c.store.Selection())
}

// DeleteSelection deletes the selected node.
func (c *Controller) DeleteSelection() bool {
	sel := c.store.Selection()
	if sel == "" {
		return false
	}
	return c.store.DeleteNode(sel)
}

// NudgeSelection moves the selected node by a screen-space offset.
func (c *Controller) NudgeSelection(dx, dy float64) bool {
	sel := c.store.Selection()
	if sel == "" {
		return false
	}
	zoom := c.View().Zoom
	return c.store.MoveNode(sel, dx/zoom, dy/zoom)
}

// Pan shifts the view by a screen-space offset.
func (c *Controller) Pan(dx, dy float64) {
	c.mu.Lock()
	c.view.PanX += dx
	c.view.PanY += dy
	c.mu.Unlock()
}
