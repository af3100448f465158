package graph

import (
	"encoding/json"
	"strings"
)

// ---------------------------------------------------------------------------
// Document
// ---------------------------------------------------------------------------

// Document is the full persisted unit of a map. The same shape is used for
// the stored entry and for exported files.
type Document struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
	Theme string `json:"theme"`
}

// IsEmpty reports whether the document has neither nodes nor a theme.
func (d Document) IsEmpty() bool {
	return len(d.Nodes) == 0 && d.Theme == ""
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := Document{
		Nodes: make([]Node, len(d.Nodes)),
		Edges: make([]Edge, len(d.Edges)),
		Theme: d.Theme,
	}
	for i, n := range d.Nodes {
		if n.ParentID != nil {
			n.ParentID = ParentRef(*n.ParentID)
		}
		out.Nodes[i] = n
	}
	copy(out.Edges, d.Edges)
	return out
}

// Normalize replaces nil slices with empty ones so that the JSON encoding
// always carries arrays.
func (d *Document) Normalize() {
	if d.Nodes == nil {
		d.Nodes = []Node{}
	}
	if d.Edges == nil {
		d.Edges = []Edge{}
	}
}

// ThemeNode returns the first node flagged as theme.
func (d Document) ThemeNode() (Node, bool) {
	for _, n := range d.Nodes {
		if n.IsTheme {
			return n, true
		}
	}
	return Node{}, false
}

// FindNode returns the node with the given id.
func (d Document) FindNode(id string) (Node, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Orphans returns nodes whose parent reference does not resolve.
func (d Document) Orphans() []Node {
	ids := make(map[string]struct{}, len(d.Nodes))
	for _, n := range d.Nodes {
		ids[n.ID] = struct{}{}
	}
	var out []Node
	for _, n := range d.Nodes {
		if !n.HasParent() {
			continue
		}
		if _, ok := ids[n.Parent()]; !ok {
			out = append(out, n)
		}
	}
	return out
}

// MarshalJSON implements json.Marshaler so that empty collections encode as
// [] rather than null.
func (d Document) MarshalJSON() ([]byte, error) {
	type alias Document
	d.Normalize()
	return json.Marshal(alias(d))
}

// Outline renders the nodes as "ID: x, Parent: y, Title: z" lines, the form
// used as model context.
func (d Document) Outline() string {
	var b strings.Builder
	for i, n := range d.Nodes {
		if i > 0 {
			b.WriteByte('\n')
		}
		parent := "null"
		if n.ParentID != nil {
			parent = *n.ParentID
		}
		b.WriteString("ID: ")
		b.WriteString(n.ID)
		b.WriteString(", Parent: ")
		b.WriteString(parent)
		b.WriteString(", Title: ")
		b.WriteString(n.Title)
	}
	return b.String()
}
