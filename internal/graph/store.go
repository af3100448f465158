package graph

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// DefaultCenter is where a new theme node is placed when the host has no
// viewport to centre on.
var DefaultCenter = Position{X: 400, Y: 300}

// ---------------------------------------------------------------------------
// Change notification
// ---------------------------------------------------------------------------

// ChangeKind names the mutation that produced a Change.
type ChangeKind string

const (
	ChangeThemeCreated ChangeKind = "theme_created"
	ChangeNodeAdded    ChangeKind = "node_added"
	ChangeNodeDeleted  ChangeKind = "node_deleted"
	ChangeNodeRenamed  ChangeKind = "node_renamed"
	ChangeNodeMoved    ChangeKind = "node_moved"
	ChangeSelection    ChangeKind = "selection"
	ChangeMerged       ChangeKind = "merged"
	ChangeLayout       ChangeKind = "layout"
	ChangeReplaced     ChangeKind = "replaced"
	ChangeReset        ChangeKind = "reset"
)

// Change describes one applied mutation together with the document as it
// stood immediately afterwards.
type Change struct {
	Kind      ChangeKind `json:"kind"`
	NodeID    string     `json:"nodeId,omitempty"`
	Document  Document   `json:"document"`
	Selection string     `json:"selection,omitempty"`
	Epoch     uint64     `json:"epoch"`
}

// ChangeListener is invoked synchronously after every applied mutation, in
// registration order, without the store lock held. Changes are delivered in
// the order the mutations were applied. A listener may read the store but
// must not mutate it.
type ChangeListener func(Change)

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats summarises the contents of the store.
type Stats struct {
	TotalNodes int    `json:"total_nodes"`
	TotalEdges int    `json:"total_edges"`
	Orphans    int    `json:"orphans"`
	Theme      string `json:"theme"`
	Epoch      uint64 `json:"epoch"`
}

// ---------------------------------------------------------------------------
// Store
// ---------------------------------------------------------------------------

// Store is the authoritative in-memory mind-map: the ordered node and edge
// sequences, the theme text and the current selection. Node order is
// insertion order and is significant for layout and rendering.
//
// All public methods are goroutine-safe.
type Store struct {
	// notifyMu serialises mutate-then-notify so listeners observe changes
	// in apply order. It is always taken before mu.
	notifyMu sync.Mutex

	mu        sync.RWMutex
	nodes     []Node
	edges     []Edge
	theme     string
	byID      map[string]int // id → index into nodes
	selected  string
	epoch     uint64
	listeners []ChangeListener

	now  func() time.Time
	rand func() float64 // [0,1)
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for theme identifiers.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithRand overrides the random source used to jitter new nodes.
func WithRand(r func() float64) Option {
	return func(s *Store) { s.rand = r }
}

// NewStore returns an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		nodes: []Node{},
		edges: []Edge{},
		byID:  make(map[string]int),
		now:   time.Now,
		rand:  rand.Float64,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers a listener for applied mutations.
func (s *Store) OnChange(l ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// update runs fn under the write lock and, when fn reports a change,
// notifies listeners with a snapshot taken before the lock is released.
// The next mutation cannot start until every listener has returned.
func (s *Store) update(kind ChangeKind, fn func() (nodeID string, changed bool)) bool {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	nodeID, changed := fn()
	var ch Change
	if changed {
		ch = Change{
			Kind:      kind,
			NodeID:    nodeID,
			Document:  s.snapshotLocked(),
			Selection: s.selected,
			Epoch:     s.epoch,
		}
	}
	listeners := s.listeners
	s.mu.Unlock()

	if changed {
		for _, l := range listeners {
			l(ch)
		}
	}
	return changed
}

// reindexLocked rebuilds byID after nodes were removed or replaced.
// Caller MUST hold s.mu write lock.
func (s *Store) reindexLocked() {
	s.byID = make(map[string]int, len(s.nodes))
	for i, n := range s.nodes {
		if _, dup := s.byID[n.ID]; !dup {
			s.byID[n.ID] = i
		}
	}
}

func (s *Store) snapshotLocked() Document {
	return Document{Nodes: s.nodes, Edges: s.edges, Theme: s.theme}.Clone()
}

func (s *Store) nodeLocked(id string) (*Node, bool) {
	i, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return &s.nodes[i], true
}

func (s *Store) themeNodeLocked() (*Node, bool) {
	for i := range s.nodes {
		if s.nodes[i].IsTheme {
			return &s.nodes[i], true
		}
	}
	return nil, false
}

// ============================ LIFECYCLE ==================================

// CreateTheme replaces the whole map with a single theme node titled title
// and placed at center, and selects it. An empty (after trimming) title is
// rejected and leaves the store untouched.
func (s *Store) CreateTheme(title string, center Position) (Node, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Node{}, false
	}
	var created Node
	s.update(ChangeThemeCreated, func() (string, bool) {
		created = Node{
			ID:      ThemeID(s.now()),
			Title:   title,
			X:       center.X,
			Y:       center.Y,
			IsTheme: true,
		}
		s.nodes = []Node{created}
		s.edges = []Edge{}
		s.theme = title
		s.selected = created.ID
		s.epoch++
		s.reindexLocked()
		return created.ID, true
	})
	return created, true
}

// Replace swaps the whole document for doc, as on import or initial load.
// Selection is cleared.
func (s *Store) Replace(doc Document) {
	doc = doc.Clone()
	s.update(ChangeReplaced, func() (string, bool) {
		s.nodes = doc.Nodes
		s.edges = doc.Edges
		s.theme = doc.Theme
		s.selected = ""
		s.epoch++
		s.reindexLocked()
		return "", true
	})
}

// Reset empties the map.
func (s *Store) Reset() {
	s.update(ChangeReset, func() (string, bool) {
		s.nodes = []Node{}
		s.edges = []Edge{}
		s.theme = ""
		s.selected = ""
		s.epoch++
		s.reindexLocked()
		return "", true
	})
}

// ============================ MUTATIONS ==================================

// AddNode creates a "New node" child of parentID, or a free-standing node
// when parentID is empty or does not resolve. A child is placed 200 units
// right of its parent with a vertical jitter in [-50,50); a free-standing
// node goes to (200,200). Exactly one edge is added for a resolved parent.
// The new node becomes the selection.
func (s *Store) AddNode(parentID string) Node {
	var created Node
	s.update(ChangeNodeAdded, func() (string, bool) {
		created = Node{
			ID:    NewNodeID(),
			Title: DefaultNodeTitle,
			X:     200,
			Y:     200,
		}
		parent, ok := s.nodeLocked(parentID)
		if ok {
			created.ParentID = ParentRef(parent.ID)
			created.X = parent.X + 200
			created.Y = parent.Y + s.rand()*100 - 50
		}
		s.nodes = append(s.nodes, created)
		s.byID[created.ID] = len(s.nodes) - 1
		if ok {
			s.edges = append(s.edges, NewEdge(parent.ID, created.ID))
		}
		s.selected = created.ID
		return created.ID, true
	})
	return created
}

// DeleteNode removes the node and every edge touching it. Children are left
// in place as orphans. Unknown ids are a no-op.
func (s *Store) DeleteNode(id string) bool {
	return s.update(ChangeNodeDeleted, func() (string, bool) {
		if _, ok := s.byID[id]; !ok {
			return id, false
		}
		kept := s.nodes[:0]
		for _, n := range s.nodes {
			if n.ID != id {
				kept = append(kept, n)
			}
		}
		s.nodes = kept
		s.purgeEdgesLocked(id)
		s.reindexLocked()
		if s.selected == id {
			s.selected = ""
		}
		return id, true
	})
}

// purgeEdgesLocked drops any edge whose source or target is id.
// Caller MUST hold s.mu write lock.
func (s *Store) purgeEdgesLocked(id string) {
	filtered := make([]Edge, 0, len(s.edges))
	for _, e := range s.edges {
		if !e.Touches(id) {
			filtered = append(filtered, e)
		}
	}
	s.edges = filtered
}

// RenameNode sets the node's title to the trimmed title. Blank titles and
// unknown ids are ignored.
func (s *Store) RenameNode(id, title string) bool {
	title = strings.TrimSpace(title)
	if title == "" {
		return false
	}
	return s.update(ChangeNodeRenamed, func() (string, bool) {
		n, ok := s.nodeLocked(id)
		if !ok {
			return id, false
		}
		n.Title = title
		if n.IsTheme {
			s.theme = title
		}
		return id, true
	})
}

// MoveNode translates a node by (dx, dy) logical units.
func (s *Store) MoveNode(id string, dx, dy float64) bool {
	return s.update(ChangeNodeMoved, func() (string, bool) {
		n, ok := s.nodeLocked(id)
		if !ok {
			return id, false
		}
		n.X += dx
		n.Y += dy
		return id, true
	})
}

// SetSelection selects the node with the given id.
func (s *Store) SetSelection(id string) bool {
	return s.update(ChangeSelection, func() (string, bool) {
		if _, ok := s.byID[id]; !ok || s.selected == id {
			return id, false
		}
		s.selected = id
		return id, true
	})
}

// ClearSelection deselects whatever node is selected.
func (s *Store) ClearSelection() {
	s.update(ChangeSelection, func() (string, bool) {
		if s.selected == "" {
			return "", false
		}
		s.selected = ""
		return "", true
	})
}

// AutoLayout repositions every node reachable from the theme node using
// ComputeLayout. The positions are applied in a single batch. It is a no-op
// when there is no theme node.
func (s *Store) AutoLayout() bool {
	return s.update(ChangeLayout, func() (string, bool) {
		if _, ok := s.themeNodeLocked(); !ok {
			return "", false
		}
		positions := ComputeLayout(Document{Nodes: s.nodes, Edges: s.edges, Theme: s.theme})
		for i := range s.nodes {
			if p, ok := positions[s.nodes[i].ID]; ok {
				s.nodes[i].X = p.X
				s.nodes[i].Y = p.Y
			}
		}
		return "", true
	})
}

// ============================== QUERIES ==================================

// Snapshot returns a deep copy of the current document.
func (s *Store) Snapshot() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Node returns a copy of the node with the given id.
func (s *Store) Node(id string) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodeLocked(id)
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Selection returns the selected node id, or "".
func (s *Store) Selection() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Theme returns the current theme text.
func (s *Store) Theme() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

// Epoch returns the document generation. It advances whenever the document
// is replaced wholesale (new theme, reset, import).
func (s *Store) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// Stats returns summary counts.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := Document{Nodes: s.nodes, Edges: s.edges}
	return Stats{
		TotalNodes: len(s.nodes),
		TotalEdges: len(s.edges),
		Orphans:    len(doc.Orphans()),
		Theme:      s.theme,
		Epoch:      s.epoch,
	}
}
