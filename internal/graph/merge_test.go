package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeAttachesToTheme(t *testing.T) {
	s := NewStore()
	s.Replace(Document{
		Nodes: []Node{{ID: "root", Title: "T", X: 400, Y: 300, IsTheme: true}},
		Edges: []Edge{},
		Theme: "T",
	})

	added := s.MergeSuggestions([]Suggestion{{ID: "a", Title: "X"}}, nil)

	require.Len(t, added, 1)
	assert.Equal(t, "root", added[0].Parent())
	assert.Equal(t, Position{X: 600, Y: 180}, added[0].Position())
	assert.Equal(t, []Edge{{Source: "root", Target: "a"}}, s.Snapshot().Edges)
}

func TestMergePlacesByIndex(t *testing.T) {
	s := NewStore()
	s.Replace(Document{Nodes: []Node{
		{ID: "root", X: 0, Y: 0, IsTheme: true},
		{ID: "p", ParentID: ParentRef("root"), X: 100, Y: 50},
	}})

	added := s.MergeSuggestions([]Suggestion{
		{ID: "a", ParentID: ParentRef("p"), Title: "A"},
		{ID: "b", ParentID: ParentRef("p"), Title: "B"},
		{ID: "c", ParentID: ParentRef("unknown"), Title: "C"},
	}, nil)

	require.Len(t, added, 3)
	assert.Equal(t, Position{X: 300, Y: -70}, added[0].Position())
	assert.Equal(t, Position{X: 300, Y: 10}, added[1].Position())
	// Unknown parent falls back to the theme anchor.
	assert.Equal(t, Position{X: 200, Y: 40}, added[2].Position())
	// No edge for a parent that does not resolve.
	assert.Equal(t, []Edge{{Source: "p", Target: "a"}, {Source: "p", Target: "b"}}, s.Snapshot().Edges)
}

func TestMergeWithoutThemeUsesFallbackAnchor(t *testing.T) {
	s := NewStore()

	added := s.MergeSuggestions([]Suggestion{{Title: "X"}}, nil)

	require.Len(t, added, 1)
	assert.True(t, strings.HasPrefix(added[0].ID, "ai-node-"))
	assert.Nil(t, added[0].ParentID)
	assert.Equal(t, Position{X: 600, Y: 280}, added[0].Position())
	assert.Empty(t, s.Snapshot().Edges)
}

func TestMergeUsesExplicitEdgesVerbatim(t *testing.T) {
	s := NewStore()
	s.Replace(Document{Nodes: []Node{{ID: "root", IsTheme: true}}})
	explicit := []Edge{{Source: "a", Target: "b"}}

	s.MergeSuggestions([]Suggestion{{ID: "a", Title: "A"}, {ID: "b", Title: "B"}}, explicit)

	assert.Equal(t, explicit, s.Snapshot().Edges)
}

func TestMergeKeepsExplicitCoordinates(t *testing.T) {
	s := NewStore()
	x, y := 11.0, 22.0

	added := s.MergeSuggestions([]Suggestion{{ID: "a", Title: "A", X: &x, Y: &y}}, nil)

	assert.Equal(t, Position{X: 11, Y: 22}, added[0].Position())
}

func TestMergeAppendsOnly(t *testing.T) {
	s := newTestStore(t)
	root, _ := s.CreateTheme("T", DefaultCenter)
	s.AddNode(root.ID)
	before := s.Snapshot()

	s.MergeSuggestions([]Suggestion{{ID: root.ID, Title: "clash"}}, nil)

	after := s.Snapshot()
	require.Len(t, after.Nodes, len(before.Nodes)+1)
	assert.Equal(t, before.Nodes, after.Nodes[:len(before.Nodes)])
	assert.Equal(t, before.Edges, after.Edges[:len(before.Edges)])
	assert.NotEqual(t, root.ID, after.Nodes[len(after.Nodes)-1].ID)
}

func TestMergeEmptyIsNoop(t *testing.T) {
	s := NewStore()
	var notified bool
	s.OnChange(func(Change) { notified = true })

	assert.Empty(t, s.MergeSuggestions(nil, nil))
	assert.False(t, notified)
}

func TestMergeRemapsTakenIDsWithinBatch(t *testing.T) {
	s := NewStore()
	s.Replace(Document{
		Nodes: []Node{
			{ID: "root", Title: "T", X: 400, Y: 300, IsTheme: true},
			{ID: "n1", ParentID: ParentRef("root"), Title: "Existing", X: 600, Y: 300},
		},
		Edges: []Edge{{Source: "root", Target: "n1"}},
		Theme: "T",
	})

	added := s.MergeSuggestions([]Suggestion{
		{ID: "n1", ParentID: ParentRef("root"), Title: "Fresh"},
		{ID: "n2", ParentID: ParentRef("n1"), Title: "Child"},
	}, []Edge{{Source: "root", Target: "n1"}, {Source: "n1", Target: "n2"}})

	require.Len(t, added, 2)
	fresh := added[0].ID
	assert.True(t, strings.HasPrefix(fresh, "ai-node-"))
	assert.Equal(t, "root", added[0].Parent())
	assert.Equal(t, fresh, added[1].Parent())
	assert.Equal(t, []Edge{
		{Source: "root", Target: "n1"},
		{Source: "root", Target: fresh},
		{Source: fresh, Target: "n2"},
	}, s.Snapshot().Edges)
}

func TestMergeRemapsSynthesisedEdges(t *testing.T) {
	s := NewStore()
	s.Replace(Document{Nodes: []Node{
		{ID: "root", IsTheme: true},
		{ID: "n1", ParentID: ParentRef("root")},
	}, Theme: "T"})

	added := s.MergeSuggestions([]Suggestion{
		{ID: "n1", Title: "Fresh"},
		{ID: "n2", ParentID: ParentRef("n1"), Title: "Child"},
	}, nil)

	require.Len(t, added, 2)
	assert.Equal(t, []Edge{
		{Source: "root", Target: added[0].ID},
		{Source: added[0].ID, Target: "n2"},
	}, s.Snapshot().Edges)
}

func TestMergeDuplicateIDsInBatch(t *testing.T) {
	s := NewStore()
	s.Replace(Document{Nodes: []Node{{ID: "root", IsTheme: true}}, Theme: "T"})

	added := s.MergeSuggestions([]Suggestion{{ID: "a", Title: "A"}, {ID: "a", Title: "B"}}, nil)

	require.Len(t, added, 2)
	assert.Equal(t, "a", added[0].ID)
	assert.NotEqual(t, "a", added[1].ID)
	assert.Len(t, s.Snapshot().Nodes, 3)
}

func TestMergeSuggestionsAtRejectsReplacedDocument(t *testing.T) {
	s := newTestStore(t)
	s.CreateTheme("T", DefaultCenter)
	epoch := s.Epoch()
	var notified int
	s.OnChange(func(Change) { notified++ })

	s.Reset()
	added, ok := s.MergeSuggestionsAt(epoch, []Suggestion{{ID: "a", Title: "A"}}, nil)

	assert.False(t, ok)
	assert.Empty(t, added)
	assert.True(t, s.Snapshot().IsEmpty())
	assert.Equal(t, 1, notified)

	added, ok = s.MergeSuggestionsAt(s.Epoch(), []Suggestion{{ID: "a", Title: "A"}}, nil)
	assert.True(t, ok)
	assert.Len(t, added, 1)
}
