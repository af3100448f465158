package graph

// ---------------------------------------------------------------------------
// Edge
// ---------------------------------------------------------------------------

// Edge is a directed parent→child connection drawn between two nodes.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Touches reports whether the edge references id as source or target.
func (e Edge) Touches(id string) bool {
	return e.Source == id || e.Target == id
}

// NewEdge creates a parent→child edge.
func NewEdge(parentID, childID string) Edge {
	return Edge{Source: parentID, Target: childID}
}
