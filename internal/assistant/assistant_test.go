package assistant

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiscribe/scribe/internal/ai"
	"github.com/aiscribe/scribe/internal/graph"
)

type fakeInvoker struct {
	mu     sync.Mutex
	result *ai.Result
	err    error
	last   ai.Request
	before func()
	block  chan struct{}
}

func (f *fakeInvoker) Invoke(ctx context.Context, req ai.Request) (*ai.Result, error) {
	f.mu.Lock()
	f.last = req
	before, block := f.before, f.block
	f.mu.Unlock()

	if before != nil {
		before()
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.result, f.err
}

type recordingObserver struct {
	outcomes []string
}

func (r *recordingObserver) ObserveAI(action, outcome string, _ time.Duration) {
	r.outcomes = append(r.outcomes, action+":"+outcome)
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingBroadcaster) Broadcast(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev.Name)
	r.mu.Unlock()
}

func rootMap() *graph.Store {
	s := graph.NewStore()
	s.Replace(graph.Document{
		Nodes: []graph.Node{{ID: "root", Title: "Launch", X: 400, Y: 300, IsTheme: true}},
		Edges: []graph.Edge{},
		Theme: "Launch",
	})
	return s
}

func TestRunExpandMerges(t *testing.T) {
	s := rootMap()
	inv := &fakeInvoker{result: &ai.Result{NewNodes: []ai.SuggestedNode{{ID: "a", Title: "X"}}}}
	obs := &recordingObserver{}
	bc := &recordingBroadcaster{}
	a := New(s, inv, Options{Observer: obs, Broadcaster: bc})

	out, err := a.Run(context.Background(), ai.ActionExpand, "")
	require.NoError(t, err)

	require.Len(t, out.Added, 1)
	assert.False(t, out.Stale)
	doc := s.Snapshot()
	require.Len(t, doc.Nodes, 2)
	added := doc.Nodes[1]
	assert.Equal(t, "a", added.ID)
	assert.Equal(t, "root", added.Parent())
	assert.Equal(t, graph.Position{X: 600, Y: 180}, added.Position())
	assert.Equal(t, []graph.Edge{{Source: "root", Target: "a"}}, doc.Edges)

	st := a.State()
	assert.False(t, st.Loading)
	assert.Equal(t, ExpandNotice, st.Notice)
	assert.Equal(t, []string{"a"}, st.Added)
	assert.Empty(t, st.Error)
	assert.Equal(t, []string{"expand:ok"}, obs.outcomes)
	assert.Equal(t, []string{EventStarted, EventCompleted}, bc.events)
}

func TestRunSummaryLeavesGraphUnchanged(t *testing.T) {
	s := rootMap()
	s.AddNode("root")
	before := s.Snapshot()

	inv := &fakeInvoker{result: &ai.Result{SummaryCards: []ai.SummaryCard{
		{Title: "A", Summary: "a"}, {Title: "B", Summary: "b"}, {Title: "C", Summary: "c"},
	}}}
	a := New(s, inv, Options{})

	out, err := a.Run(context.Background(), ai.ActionSummary, "")
	require.NoError(t, err)

	assert.Empty(t, out.Added)
	assert.Equal(t, before, s.Snapshot())
	st := a.State()
	require.NotNil(t, st.Result)
	assert.Len(t, st.Result.SummaryCards, 3)
	assert.Contains(t, st.Markdown, "## A")
}

func TestRunExpandWithoutNodesDoesNotMerge(t *testing.T) {
	s := rootMap()
	a := New(s, &fakeInvoker{result: &ai.Result{MissingPoints: []string{"x"}}}, Options{})

	_, err := a.Run(context.Background(), ai.ActionExpand, "")
	require.NoError(t, err)
	assert.Len(t, s.Snapshot().Nodes, 1)
	assert.Empty(t, a.State().Notice)
}

func TestRunOrganizeShowsNotice(t *testing.T) {
	s := rootMap()
	inv := &fakeInvoker{result: &ai.Result{NewNodes: []ai.SuggestedNode{{ID: "g", Title: "Group"}}}}
	a := New(s, inv, Options{})

	out, err := a.Run(context.Background(), ai.ActionOrganize, "")
	require.NoError(t, err)

	assert.Empty(t, out.Added)
	assert.Len(t, s.Snapshot().Nodes, 1)
	assert.Equal(t, OrganizeNotice, a.State().Notice)
}

func TestRunUsesSelectionAsFocus(t *testing.T) {
	s := rootMap()
	child := s.AddNode("root")
	inv := &fakeInvoker{result: &ai.Result{}}
	a := New(s, inv, Options{})

	_, err := a.Run(context.Background(), ai.ActionExpand, "")
	require.NoError(t, err)
	assert.Equal(t, child.ID, inv.last.FocusNodeID)
	assert.Equal(t, "Launch", inv.last.Theme)
	assert.Len(t, inv.last.Nodes, 2)

	_, err = a.Run(context.Background(), ai.ActionExpand, "root")
	require.NoError(t, err)
	assert.Equal(t, "root", inv.last.FocusNodeID)
}

func TestRunRejectsEmptyMap(t *testing.T) {
	a := New(graph.NewStore(), &fakeInvoker{result: &ai.Result{}}, Options{})

	_, err := a.Run(context.Background(), ai.ActionSummary, "")
	assert.ErrorIs(t, err, ErrNoMap)
	assert.False(t, a.Busy())
}

func TestRunFailureKeepsPreviousResult(t *testing.T) {
	s := rootMap()
	inv := &fakeInvoker{result: &ai.Result{MissingPoints: []string{"risk"}}}
	obs := &recordingObserver{}
	bc := &recordingBroadcaster{}
	a := New(s, inv, Options{Observer: obs, Broadcaster: bc})

	_, err := a.Run(context.Background(), ai.ActionMissing, "")
	require.NoError(t, err)

	inv.result = nil
	inv.err = &ai.Error{Kind: ai.KindTransport, Op: "fake", Err: errors.New("boom")}
	_, err = a.Run(context.Background(), ai.ActionMissing, "")
	require.Error(t, err)

	st := a.State()
	assert.False(t, st.Loading)
	assert.Equal(t, FailureMessage, st.Error)
	require.NotNil(t, st.Result)
	assert.Equal(t, []string{"risk"}, st.Result.MissingPoints)
	assert.Equal(t, []string{"missing:ok", "missing:error"}, obs.outcomes)
	assert.Equal(t, EventFailed, bc.events[len(bc.events)-1])

	a.DismissError()
	assert.Empty(t, a.State().Error)
}

func TestRunMissingCredential(t *testing.T) {
	s := rootMap()
	inv := &fakeInvoker{err: &ai.Error{Kind: ai.KindMissingCredential, Op: "openai", Err: errors.New("no key")}}
	obs := &recordingObserver{}
	a := New(s, inv, Options{Observer: obs})

	_, err := a.Run(context.Background(), ai.ActionExpand, "")
	require.Error(t, err)
	assert.True(t, ai.IsMissingCredential(err))

	st := a.State()
	assert.True(t, st.NeedsCredential)
	assert.Empty(t, st.Error)
	assert.Equal(t, []string{"expand:missing_credential"}, obs.outcomes)
}

func TestRunStaleExpandIsNotMerged(t *testing.T) {
	s := rootMap()
	inv := &fakeInvoker{
		result: &ai.Result{NewNodes: []ai.SuggestedNode{{ID: "a", Title: "X"}}},
		before: func() { s.CreateTheme("Other", graph.DefaultCenter) },
	}
	a := New(s, inv, Options{})

	out, err := a.Run(context.Background(), ai.ActionExpand, "")
	require.NoError(t, err)

	assert.True(t, out.Stale)
	assert.Empty(t, out.Added)
	doc := s.Snapshot()
	assert.Len(t, doc.Nodes, 1)
	assert.Equal(t, "Other", doc.Theme)
	assert.True(t, a.State().Stale)
	assert.Equal(t, StaleNotice, a.State().Notice)
}

// resettingStore resets the map just before the merge reaches the store.
type resettingStore struct {
	*graph.Store
}

func (r resettingStore) MergeSuggestionsAt(epoch uint64, sg []graph.Suggestion, edges []graph.Edge) ([]graph.Node, bool) {
	r.Store.Reset()
	return r.Store.MergeSuggestionsAt(epoch, sg, edges)
}

func TestRunStaleWhenResetRacesMerge(t *testing.T) {
	s := rootMap()
	inv := &fakeInvoker{result: &ai.Result{NewNodes: []ai.SuggestedNode{{ID: "a", Title: "X"}}}}
	a := New(resettingStore{s}, inv, Options{})

	out, err := a.Run(context.Background(), ai.ActionExpand, "")
	require.NoError(t, err)

	assert.True(t, out.Stale)
	assert.True(t, s.Snapshot().IsEmpty())
	assert.Equal(t, StaleNotice, a.State().Notice)
}

func TestRunIsSingleFlight(t *testing.T) {
	s := rootMap()
	started := make(chan struct{})
	inv := &fakeInvoker{
		result: &ai.Result{},
		block:  make(chan struct{}),
		before: func() { close(started) },
	}
	a := New(s, inv, Options{})

	done := make(chan error, 1)
	go func() {
		_, err := a.Run(context.Background(), ai.ActionSummary, "")
		done <- err
	}()

	<-started
	assert.True(t, a.Busy())
	assert.True(t, a.State().Loading)

	_, err := a.Run(context.Background(), ai.ActionSummary, "")
	assert.ErrorIs(t, err, ErrBusy)

	close(inv.block)
	require.NoError(t, <-done)
	assert.False(t, a.Busy())
	assert.False(t, a.State().Loading)
}

func TestRunTimeout(t *testing.T) {
	s := rootMap()
	inv := &fakeInvoker{block: make(chan struct{})}
	a := New(s, inv, Options{Timeout: 10 * time.Millisecond})

	_, err := a.Run(context.Background(), ai.ActionSummary, "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, FailureMessage, a.State().Error)
}
