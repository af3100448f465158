package graph

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Geometry
// ---------------------------------------------------------------------------

// Position is a point on the logical plane. Logical units are independent of
// screen pixels; the canvas view transform maps them to the screen.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ---------------------------------------------------------------------------
// Node
// ---------------------------------------------------------------------------

// DefaultNodeTitle is the title given to nodes created from the canvas.
const DefaultNodeTitle = "New node"

// Node is a single idea on the map. ParentID is nil for the theme node and
// for nodes created without a parent; a non-nil ParentID that no longer
// resolves marks the node as orphaned.
type Node struct {
	ID       string  `json:"id"`
	ParentID *string `json:"parentId"`
	Title    string  `json:"title"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Note     string  `json:"note,omitempty"`
	IsTheme  bool    `json:"isTheme,omitempty"`
}

// Parent returns the parent identifier, or "" when the node has none.
func (n Node) Parent() string {
	if n.ParentID == nil {
		return ""
	}
	return *n.ParentID
}

// HasParent reports whether the node carries a parent reference.
func (n Node) HasParent() bool {
	return n.ParentID != nil && *n.ParentID != ""
}

// Position returns the node's location on the logical plane.
func (n Node) Position() Position {
	return Position{X: n.X, Y: n.Y}
}

// ParentRef turns an identifier into the nullable form stored on a Node.
// The empty string maps to nil.
func ParentRef(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

// ---------------------------------------------------------------------------
// Identifiers
// ---------------------------------------------------------------------------

// ThemeID returns the identifier of a theme node created at t.
func ThemeID(t time.Time) string {
	return fmt.Sprintf("root-%d", t.UnixMilli())
}

// NewNodeID returns a fresh identifier for a node created on the canvas.
func NewNodeID() string {
	return "node-" + uuid.New().String()
}

// NewSuggestionID returns a fresh identifier for an AI-suggested node that
// arrived without one.
func NewSuggestionID() string {
	return "ai-node-" + uuid.New().String()
}
