package graph

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	clock := time.UnixMilli(1700000000000)
	return NewStore(
		WithClock(func() time.Time { return clock }),
		WithRand(func() float64 { return 0.5 }),
	)
}

func edgeSet(doc Document) map[Edge]int {
	out := make(map[Edge]int, len(doc.Edges))
	for _, e := range doc.Edges {
		out[e]++
	}
	return out
}

func TestCreateTheme(t *testing.T) {
	s := newTestStore(t)

	n, ok := s.CreateTheme("  Launch Plan ", Position{X: 500, Y: 350})
	require.True(t, ok)

	doc := s.Snapshot()
	require.Len(t, doc.Nodes, 1)
	assert.Empty(t, doc.Edges)
	assert.Equal(t, "Launch Plan", doc.Theme)
	assert.Equal(t, "root-1700000000000", n.ID)
	assert.True(t, doc.Nodes[0].IsTheme)
	assert.Nil(t, doc.Nodes[0].ParentID)
	assert.Equal(t, Position{X: 500, Y: 350}, doc.Nodes[0].Position())
	assert.Equal(t, n.ID, s.Selection())
	assert.Equal(t, uint64(1), s.Epoch())
}

func TestCreateThemeRejectsBlankTitle(t *testing.T) {
	s := newTestStore(t)
	s.CreateTheme("Existing", DefaultCenter)
	before := s.Snapshot()

	_, ok := s.CreateTheme("   ", DefaultCenter)

	assert.False(t, ok)
	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, uint64(1), s.Epoch())
}

func TestCreateThemeReplacesExistingMap(t *testing.T) {
	s := newTestStore(t)
	root, _ := s.CreateTheme("First", DefaultCenter)
	s.AddNode(root.ID)
	s.AddNode(root.ID)

	s.CreateTheme("Second", DefaultCenter)

	doc := s.Snapshot()
	require.Len(t, doc.Nodes, 1)
	assert.Empty(t, doc.Edges)
	assert.Equal(t, "Second", doc.Theme)
}

func TestAddNodeUnderParent(t *testing.T) {
	s := newTestStore(t)
	root, _ := s.CreateTheme("Launch Plan", DefaultCenter)

	child := s.AddNode(root.ID)

	assert.Equal(t, DefaultNodeTitle, child.Title)
	assert.Equal(t, root.ID, child.Parent())
	assert.Equal(t, root.X+200, child.X)
	// rand() == 0.5 → zero jitter.
	assert.Equal(t, root.Y, child.Y)
	assert.Equal(t, child.ID, s.Selection())
	assert.Equal(t, map[Edge]int{{Source: root.ID, Target: child.ID}: 1}, edgeSet(s.Snapshot()))
}

func TestAddNodeJitterRange(t *testing.T) {
	for _, r := range []float64{0, 0.25, 0.999} {
		s := NewStore(WithRand(func() float64 { return r }))
		root, _ := s.CreateTheme("T", Position{X: 0, Y: 0})
		child := s.AddNode(root.ID)
		assert.GreaterOrEqual(t, child.Y, -50.0)
		assert.Less(t, child.Y, 50.0)
	}
}

func TestAddNodeWithoutParent(t *testing.T) {
	s := newTestStore(t)

	for _, parent := range []string{"", "missing"} {
		n := s.AddNode(parent)
		assert.Nil(t, n.ParentID)
		assert.Equal(t, Position{X: 200, Y: 200}, n.Position())
	}
	assert.Empty(t, s.Snapshot().Edges)
}

func TestDeleteNodeRemovesTouchingEdges(t *testing.T) {
	s := newTestStore(t)
	root, _ := s.CreateTheme("T", DefaultCenter)
	a := s.AddNode(root.ID)
	b := s.AddNode(a.ID)
	c := s.AddNode(root.ID)

	require.True(t, s.DeleteNode(a.ID))

	doc := s.Snapshot()
	_, found := doc.FindNode(a.ID)
	assert.False(t, found)
	assert.Equal(t, map[Edge]int{{Source: root.ID, Target: c.ID}: 1}, edgeSet(doc))

	orphan, ok := doc.FindNode(b.ID)
	require.True(t, ok)
	assert.Equal(t, a.ID, orphan.Parent())
	assert.Len(t, doc.Orphans(), 1)
}

func TestDeleteNodeIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	root, _ := s.CreateTheme("T", DefaultCenter)
	a := s.AddNode(root.ID)

	require.True(t, s.DeleteNode(a.ID))
	once := s.Snapshot()
	assert.False(t, s.DeleteNode(a.ID))
	assert.Equal(t, once, s.Snapshot())
}

func TestDeleteSelectedNodeClearsSelection(t *testing.T) {
	s := newTestStore(t)
	root, _ := s.CreateTheme("T", DefaultCenter)
	a := s.AddNode(root.ID)
	require.Equal(t, a.ID, s.Selection())

	s.DeleteNode(a.ID)

	assert.Empty(t, s.Selection())
}

func TestEdgesTrackNodesInLockstep(t *testing.T) {
	s := newTestStore(t)
	root, _ := s.CreateTheme("T", DefaultCenter)

	ids := []string{root.ID}
	for i := 0; i < 20; i++ {
		parent := ids[i%len(ids)]
		ids = append(ids, s.AddNode(parent).ID)
		if i%3 == 2 {
			s.DeleteNode(ids[len(ids)/2])
		}
	}

	doc := s.Snapshot()
	for _, e := range doc.Edges {
		_, srcOK := doc.FindNode(e.Source)
		_, dstOK := doc.FindNode(e.Target)
		assert.True(t, srcOK, "dangling source %s", e.Source)
		assert.True(t, dstOK, "dangling target %s", e.Target)
	}
}

func TestRenameNode(t *testing.T) {
	s := newTestStore(t)
	root, _ := s.CreateTheme("T", DefaultCenter)
	a := s.AddNode(root.ID)

	assert.True(t, s.RenameNode(a.ID, "  Budget  "))
	assert.False(t, s.RenameNode(a.ID, "   "))
	assert.False(t, s.RenameNode("missing", "x"))

	n, _ := s.Node(a.ID)
	assert.Equal(t, "Budget", n.Title)
}

func TestRenameThemeNodeUpdatesTheme(t *testing.T) {
	s := newTestStore(t)
	root, _ := s.CreateTheme("T", DefaultCenter)

	s.RenameNode(root.ID, "Renamed")

	assert.Equal(t, "Renamed", s.Theme())
}

func TestMoveNode(t *testing.T) {
	s := newTestStore(t)
	root, _ := s.CreateTheme("T", Position{X: 10, Y: 20})

	assert.True(t, s.MoveNode(root.ID, 5, -5))
	assert.False(t, s.MoveNode("missing", 1, 1))

	n, _ := s.Node(root.ID)
	assert.Equal(t, Position{X: 15, Y: 15}, n.Position())
}

func TestSelection(t *testing.T) {
	s := newTestStore(t)
	root, _ := s.CreateTheme("T", DefaultCenter)
	s.ClearSelection()
	assert.Empty(t, s.Selection())

	assert.False(t, s.SetSelection("missing"))
	assert.True(t, s.SetSelection(root.ID))
	assert.Equal(t, root.ID, s.Selection())
}

func TestResetAndReplace(t *testing.T) {
	s := newTestStore(t)
	root, _ := s.CreateTheme("T", DefaultCenter)
	s.AddNode(root.ID)
	saved := s.Snapshot()

	s.Reset()
	assert.True(t, s.Snapshot().IsEmpty())
	assert.Empty(t, s.Selection())

	s.Replace(saved)
	assert.Equal(t, saved, s.Snapshot())
	assert.Empty(t, s.Selection())
	assert.Equal(t, uint64(3), s.Epoch())
}

func TestSnapshotIsIsolated(t *testing.T) {
	s := newTestStore(t)
	root, _ := s.CreateTheme("T", DefaultCenter)
	s.AddNode(root.ID)

	doc := s.Snapshot()
	doc.Nodes[0].Title = "mutated"
	*doc.Nodes[1].ParentID = "mutated"

	fresh := s.Snapshot()
	assert.Equal(t, "T", fresh.Nodes[0].Title)
	assert.Equal(t, root.ID, fresh.Nodes[1].Parent())
}

func TestChangeListeners(t *testing.T) {
	s := newTestStore(t)
	var kinds []ChangeKind
	s.OnChange(func(c Change) { kinds = append(kinds, c.Kind) })

	root, _ := s.CreateTheme("T", DefaultCenter)
	a := s.AddNode(root.ID)
	s.RenameNode(a.ID, "   ") // rejected, no notification
	s.DeleteNode(a.ID)
	s.DeleteNode(a.ID) // no-op, no notification

	assert.Equal(t, []ChangeKind{ChangeThemeCreated, ChangeNodeAdded, ChangeNodeDeleted}, kinds)
}

func TestListenerMayReadStore(t *testing.T) {
	s := newTestStore(t)
	var seen int
	s.OnChange(func(Change) { seen = s.Stats().TotalNodes })

	s.CreateTheme("T", DefaultCenter)

	assert.Equal(t, 1, seen)
}

func TestListenersSeeChangesInApplyOrder(t *testing.T) {
	for round := 0; round < 5; round++ {
		s := newTestStore(t)
		var (
			mu   sync.Mutex
			last Document
			seen []int
		)
		s.OnChange(func(c Change) {
			// Stand-in for a slow storage write.
			time.Sleep(time.Duration(rand.Intn(200)) * time.Microsecond)
			mu.Lock()
			last = c.Document
			seen = append(seen, len(c.Document.Nodes))
			mu.Unlock()
		})
		s.CreateTheme("T", DefaultCenter)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.AddNode("")
			}()
		}
		wg.Wait()

		mu.Lock()
		assert.Equal(t, s.Snapshot(), last, "round %d", round)
		assert.IsIncreasing(t, seen, "round %d", round)
		mu.Unlock()
	}
}

func TestLaunchPlanScenario(t *testing.T) {
	s := newTestStore(t)
	root, _ := s.CreateTheme("Launch Plan", DefaultCenter)

	a := s.AddNode(root.ID)
	b := s.AddNode(root.ID)
	require.True(t, s.DeleteNode(a.ID))

	doc := s.Snapshot()
	assert.Len(t, doc.Nodes, 2)
	assert.Equal(t, map[Edge]int{{Source: root.ID, Target: b.ID}: 1}, edgeSet(doc))
}
