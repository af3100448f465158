// Package assistant runs the AI actions against the current map. It admits
// one call at a time, tracks the loading and error state shown next to the
// canvas and merges expand results into the graph store.
package assistant

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aiscribe/scribe/internal/ai"
	"github.com/aiscribe/scribe/internal/graph"
)

// User-facing messages.
const (
	FailureMessage = "AI generation failed."
	OrganizeNotice = "Showing a reorganization proposal (not applied automatically)."
	ExpandNotice   = "Nodes added."
	StaleNotice    = "The map changed while the AI was working; suggestions were not added."
)

var (
	// ErrBusy is returned when an AI call is already in flight.
	ErrBusy = errors.New("assistant: an AI call is already in progress")
	// ErrNoMap is returned when there is no theme or no nodes to work on.
	ErrNoMap = errors.New("assistant: no map to work on")
)

// ---------------------------------------------------------------------------
// Collaborators
// ---------------------------------------------------------------------------

// Invoker performs one AI call. *ai.Transport satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, req ai.Request) (*ai.Result, error)
}

// Store is the part of *graph.Store the assistant reads and merges into.
type Store interface {
	Snapshot() graph.Document
	Selection() string
	Epoch() uint64
	MergeSuggestionsAt(epoch uint64, suggestions []graph.Suggestion, edges []graph.Edge) ([]graph.Node, bool)
}

// Observer records call outcomes. *metrics.Collector satisfies it.
type Observer interface {
	ObserveAI(action, outcome string, d time.Duration)
}

// Broadcaster pushes assistant events to connected clients. It keeps this
// package independent of the HTTP layer.
type Broadcaster interface {
	Broadcast(event Event)
}

// Event is one assistant lifecycle notification.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// Event names.
const (
	EventStarted   = "ai:started"
	EventCompleted = "ai:completed"
	EventFailed    = "ai:failed"
)

// Outcome labels used for metrics.
const (
	OutcomeOK                = "ok"
	OutcomeStale             = "stale"
	OutcomeMissingCredential = "missing_credential"
	OutcomeError             = "error"
)

// ---------------------------------------------------------------------------
// State
// ---------------------------------------------------------------------------

// State is the assistant panel as a host renders it.
type State struct {
	Loading         bool       `json:"loading"`
	Action          ai.Action  `json:"action,omitempty"`
	Result          *ai.Result `json:"result,omitempty"`
	Markdown        string     `json:"markdown,omitempty"`
	Error           string     `json:"error,omitempty"`
	Notice          string     `json:"notice,omitempty"`
	NeedsCredential bool       `json:"needsCredential,omitempty"`
	Stale           bool       `json:"stale,omitempty"`
	Added           []string   `json:"added,omitempty"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Outcome is what a successful Run produced.
type Outcome struct {
	Action ai.Action    `json:"action"`
	Result *ai.Result   `json:"result"`
	Added  []graph.Node `json:"added,omitempty"`
	Stale  bool         `json:"stale,omitempty"`
}

// ---------------------------------------------------------------------------
// Assistant
// ---------------------------------------------------------------------------

// Options configures an Assistant. Zero values disable the optional parts.
type Options struct {
	Timeout     time.Duration
	Observer    Observer
	Broadcaster Broadcaster
	Now         func() time.Time
}

// Assistant coordinates AI actions for one map.
type Assistant struct {
	store   Store
	invoker Invoker
	opts    Options

	busy atomic.Bool

	mu    sync.RWMutex
	state State
}

// New creates an Assistant.
func New(store Store, invoker Invoker, opts Options) *Assistant {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Assistant{store: store, invoker: invoker, opts: opts}
}

// State returns a copy of the panel state.
func (a *Assistant) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	st := a.state
	st.Added = append([]string(nil), a.state.Added...)
	return st
}

// Busy reports whether a call is in flight.
func (a *Assistant) Busy() bool {
	return a.busy.Load()
}

// DismissError clears the error message and the credential prompt.
func (a *Assistant) DismissError() {
	a.mu.Lock()
	a.state.Error = ""
	a.state.NeedsCredential = false
	a.state.UpdatedAt = a.opts.Now()
	a.mu.Unlock()
}

// Run performs action against the current map. focusID names the node an
// expand should grow; when empty the current selection is used.
//
// Only expand changes the map. Its suggestions are merged unless the map
// was replaced while the call was in flight, in which case the outcome is
// flagged stale and nothing is merged. Other actions only update the
// panel state.
func (a *Assistant) Run(ctx context.Context, action ai.Action, focusID string) (*Outcome, error) {
	if !a.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer a.busy.Store(false)

	doc := a.store.Snapshot()
	if doc.Theme == "" || len(doc.Nodes) == 0 {
		return nil, ErrNoMap
	}
	if focusID == "" {
		focusID = a.store.Selection()
	}
	epoch := a.store.Epoch()

	a.mu.Lock()
	a.state.Loading = true
	a.state.Action = action
	a.state.Error = ""
	a.state.Notice = ""
	a.state.NeedsCredential = false
	a.state.UpdatedAt = a.opts.Now()
	a.mu.Unlock()
	a.emit(EventStarted, map[string]any{"action": action})

	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	start := a.opts.Now()
	res, err := a.invoker.Invoke(ctx, ai.Request{
		Action:      action,
		Theme:       doc.Theme,
		Nodes:       doc.Nodes,
		Edges:       doc.Edges,
		FocusNodeID: focusID,
	})
	elapsed := a.opts.Now().Sub(start)

	if err != nil {
		a.fail(action, err, elapsed)
		return nil, err
	}

	out := &Outcome{Action: action, Result: res}
	notice := ""
	switch {
	case action.MergesIntoGraph() && len(res.NewNodes) > 0:
		added, current := a.store.MergeSuggestionsAt(epoch, res.Suggestions(), res.Edges())
		if current {
			out.Added = added
			notice = ExpandNotice
		} else {
			out.Stale = true
			notice = StaleNotice
		}
	case action == ai.ActionOrganize && len(res.NewNodes) > 0:
		notice = OrganizeNotice
	}

	added := make([]string, 0, len(out.Added))
	for _, n := range out.Added {
		added = append(added, n.ID)
	}

	a.mu.Lock()
	a.state = State{
		Action:    action,
		Result:    res,
		Markdown:  res.Markdown(),
		Notice:    notice,
		Stale:     out.Stale,
		Added:     added,
		UpdatedAt: a.opts.Now(),
	}
	a.mu.Unlock()

	outcome := OutcomeOK
	if out.Stale {
		outcome = OutcomeStale
	}
	a.observe(action, outcome, elapsed)
	slog.Info("ai action completed",
		"action", action,
		"added", len(added),
		"stale", out.Stale,
		"duration", elapsed,
	)
	a.emit(EventCompleted, map[string]any{"action": action, "added": added, "stale": out.Stale})
	return out, nil
}

// fail records a failed call. A missing credential asks the host for the
// setup flow instead of showing the generic failure banner. The previous
// result stays on display.
func (a *Assistant) fail(action ai.Action, err error, elapsed time.Duration) {
	missing := ai.IsMissingCredential(err)

	a.mu.Lock()
	a.state.Loading = false
	if missing {
		a.state.NeedsCredential = true
	} else {
		a.state.Error = FailureMessage
	}
	a.state.UpdatedAt = a.opts.Now()
	a.mu.Unlock()

	outcome := OutcomeError
	if missing {
		outcome = OutcomeMissingCredential
	}
	a.observe(action, outcome, elapsed)
	slog.Error("ai action failed", "action", action, "kind", ai.KindOf(err), "error", err)
	a.emit(EventFailed, map[string]any{
		"action":          action,
		"message":         FailureMessage,
		"needsCredential": missing,
	})
}

func (a *Assistant) observe(action ai.Action, outcome string, d time.Duration) {
	if a.opts.Observer != nil {
		a.opts.Observer.ObserveAI(string(action), outcome, d)
	}
}

func (a *Assistant) emit(name string, data any) {
	if a.opts.Broadcaster != nil {
		a.opts.Broadcaster.Broadcast(Event{Name: name, Data: data})
	}
}
