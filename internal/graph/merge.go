package graph

import "strings"

// FallbackAnchor is used to place suggested nodes when neither their parent
// nor a theme node can be found.
var FallbackAnchor = Position{X: 400, Y: 400}

// Suggestion is a node proposed by the model. ParentID, X and Y are
// optional; an empty ID is replaced with a generated one.
type Suggestion struct {
	ID       string
	ParentID *string
	Title    string
	Note     string
	X        *float64
	Y        *float64
}

// MergeSuggestions appends suggested nodes and edges to the map and returns
// the nodes that were added.
//
// A suggestion without a parent is attached to the theme node. A suggestion
// without coordinates is placed at (parent.x+200, parent.y+i*80-120), where i
// is its index in the batch and parent is resolved by its parent id, then the
// theme node, then FallbackAnchor. When edges is non-empty it is appended
// verbatim; otherwise one parent→child edge is synthesised per added node
// whose parent is known. Existing nodes and edges are never touched.
//
// A suggested id that is already in use is replaced with a fresh one, and
// references to it from the same batch (parent ids and edges) follow the
// new id.
func (s *Store) MergeSuggestions(suggestions []Suggestion, edges []Edge) []Node {
	added, _ := s.merge(nil, suggestions, edges)
	return added
}

// MergeSuggestionsAt is MergeSuggestions guarded by the document epoch: the
// merge happens only while the store is still at epoch. It reports false
// when the document was replaced in the meantime.
func (s *Store) MergeSuggestionsAt(epoch uint64, suggestions []Suggestion, edges []Edge) ([]Node, bool) {
	return s.merge(&epoch, suggestions, edges)
}

func (s *Store) merge(epoch *uint64, suggestions []Suggestion, edges []Edge) ([]Node, bool) {
	var added []Node
	current := true
	s.update(ChangeMerged, func() (string, bool) {
		if epoch != nil && *epoch != s.epoch {
			current = false
			return "", false
		}
		if len(suggestions) == 0 && len(edges) == 0 {
			return "", false
		}
		var theme Node
		tp, hasTheme := s.themeNodeLocked()
		if hasTheme {
			theme = *tp
		}

		ids, remap := s.assignIDsLocked(suggestions)
		for i, sg := range suggestions {
			n := Node{
				ID:       ids[i],
				ParentID: remapRef(sg.ParentID, remap),
				Title:    sg.Title,
				Note:     sg.Note,
			}
			if !n.HasParent() && hasTheme {
				n.ParentID = ParentRef(theme.ID)
			}

			anchor := FallbackAnchor
			if p, ok := s.nodeLocked(n.Parent()); ok {
				anchor = p.Position()
			} else if hasTheme {
				anchor = theme.Position()
			}
			n.X = anchor.X + 200
			n.Y = anchor.Y + float64(i)*80 - 120
			if sg.X != nil {
				n.X = *sg.X
			}
			if sg.Y != nil {
				n.Y = *sg.Y
			}

			s.nodes = append(s.nodes, n)
			s.byID[n.ID] = len(s.nodes) - 1
			added = append(added, n)
		}

		if len(edges) > 0 {
			for _, e := range edges {
				s.edges = append(s.edges, NewEdge(remapID(e.Source, remap), remapID(e.Target, remap)))
			}
		} else {
			for _, n := range added {
				if _, ok := s.byID[n.Parent()]; ok {
					s.edges = append(s.edges, NewEdge(n.Parent(), n.ID))
				}
			}
		}
		return "", true
	})
	return added, current
}

// assignIDsLocked picks the final id of every suggestion. Blank ids and ids
// already taken by the map or by an earlier suggestion get a fresh one;
// remap records the first replacement of each taken id.
// Caller MUST hold s.mu write lock.
func (s *Store) assignIDsLocked(suggestions []Suggestion) ([]string, map[string]string) {
	ids := make([]string, len(suggestions))
	remap := make(map[string]string)
	used := make(map[string]bool, len(suggestions))
	for i, sg := range suggestions {
		id := strings.TrimSpace(sg.ID)
		_, taken := s.byID[id]
		switch {
		case id == "":
			ids[i] = NewSuggestionID()
		case taken || used[id]:
			ids[i] = NewSuggestionID()
			if _, seen := remap[id]; !seen {
				remap[id] = ids[i]
			}
		default:
			ids[i] = id
		}
		used[ids[i]] = true
	}
	return ids, remap
}

func remapID(id string, remap map[string]string) string {
	if to, ok := remap[id]; ok {
		return to
	}
	return id
}

func remapRef(ref *string, remap map[string]string) *string {
	if ref == nil {
		return nil
	}
	return ParentRef(remapID(*ref, remap))
}
