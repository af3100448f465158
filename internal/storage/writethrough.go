package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aiscribe/scribe/internal/graph"
)

// ---------------------------------------------------------------------------
// Persister
// ---------------------------------------------------------------------------

// Persister saves the map document after every store mutation. Saves are
// synchronous and failures are logged, never surfaced to the caller.
type Persister struct {
	storage *Storage
	name    string
	timeout time.Duration

	// OnError, when set, is called after every failed write.
	OnError func(error)
}

// NewPersister returns a Persister writing to the named document.
func NewPersister(s *Storage, name string) *Persister {
	if name == "" {
		name = DefaultDocumentName
	}
	return &Persister{storage: s, name: name, timeout: 5 * time.Second}
}

// Name returns the document entry the persister writes.
func (p *Persister) Name() string { return p.name }

// Load reads the stored document. A missing entry yields an empty document.
// A corrupt entry is logged and also yields an empty document.
func (p *Persister) Load(ctx context.Context) graph.Document {
	doc, err := p.storage.LoadDocument(ctx, p.name)
	switch {
	case err == nil:
		slog.Info("map loaded", "name", p.name, "nodes", len(doc.Nodes), "edges", len(doc.Edges))
		return doc
	case errors.Is(err, ErrNotFound):
		slog.Info("no stored map, starting empty", "name", p.name)
	default:
		slog.Error("stored map unreadable, starting empty", "name", p.name, "error", err)
	}
	empty := graph.Document{}
	empty.Normalize()
	return empty
}

// Listener returns the graph.ChangeListener that performs write-through.
// Selection changes are not persisted. A reset deletes the entry; otherwise
// a document with neither nodes nor theme is not written.
func (p *Persister) Listener() graph.ChangeListener {
	return func(ch graph.Change) {
		if ch.Kind == graph.ChangeSelection {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		var err error
		switch {
		case ch.Kind == graph.ChangeReset:
			err = p.storage.DeleteDocument(ctx, p.name)
		case ch.Document.IsEmpty():
			return
		default:
			err = p.storage.SaveDocument(ctx, p.name, ch.Document)
		}
		if err != nil {
			slog.Error("write-through failed", "name", p.name, "change", ch.Kind, "error", err)
			if p.OnError != nil {
				p.OnError(err)
			}
		}
	}
}
