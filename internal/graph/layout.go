package graph

// Layout spacing in logical units.
const (
	LayoutColumnWidth = 240.0
	LayoutRowHeight   = 120.0
)

// ComputeLayout arranges the tree hanging off the theme node and returns the
// new position of every node it reached. The child i of n siblings at depth
// d is placed at
//
//	x = theme.x + (d+1)*240
//	y = theme.y + (i - (n-1)/2)*120 + offset
//
// where offset is the parent's vertical displacement from the theme. Nodes
// not reachable from the theme (orphans, free-standing nodes) are absent
// from the result and keep their positions. The theme node itself is never
// moved, so applying the result twice yields the same positions.
func ComputeLayout(doc Document) map[string]Position {
	theme, ok := doc.ThemeNode()
	if !ok {
		return map[string]Position{}
	}

	children := make(map[string][]string, len(doc.Nodes))
	for _, n := range doc.Nodes {
		if n.HasParent() {
			children[n.Parent()] = append(children[n.Parent()], n.ID)
		}
	}

	out := make(map[string]Position, len(doc.Nodes))
	visited := map[string]bool{theme.ID: true}

	var arrange func(parentID string, depth int, offset float64)
	arrange = func(parentID string, depth int, offset float64) {
		kids := children[parentID]
		n := float64(len(kids))
		for i, id := range kids {
			if visited[id] {
				continue
			}
			visited[id] = true
			p := Position{
				X: theme.X + float64(depth+1)*LayoutColumnWidth,
				Y: theme.Y + (float64(i)-(n-1)/2)*LayoutRowHeight + offset,
			}
			out[id] = p
			arrange(id, depth+1, p.Y-theme.Y)
		}
	}
	arrange(theme.ID, 0, 0)

	return out
}
