package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aiscribe/scribe/internal/graph"
	"github.com/aiscribe/scribe/internal/mapfile"
)

// mapResponse is the body of GET /api/map.
type mapResponse struct {
	Document  graph.Document `json:"document"`
	Selection string         `json:"selection,omitempty"`
	Epoch     uint64         `json:"epoch"`
	Stats     graph.Stats    `json:"stats"`
}

// appliedResponse reports whether a mutation changed the map. Rejected
// input (a blank title, an unknown id) is not an error.
type appliedResponse struct {
	Applied bool        `json:"applied"`
	Node    *graph.Node `json:"node,omitempty"`
}

// ---------------------------------------------------------------------------
// GET /api/map
// ---------------------------------------------------------------------------

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, mapResponse{
		Document:  s.store.Snapshot(),
		Selection: s.store.Selection(),
		Epoch:     s.store.Epoch(),
		Stats:     s.store.Stats(),
	})
}

// ---------------------------------------------------------------------------
// POST /api/map/theme: start a new map
// ---------------------------------------------------------------------------

type titleRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleStartMap(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON",
			"invalid request body: "+err.Error())
		return
	}

	n, ok := s.canvas.StartMap(req.Title)
	resp := appliedResponse{Applied: ok}
	if ok {
		resp.Node = &n
	}
	writeJSON(w, http.StatusOK, resp)
}

// ---------------------------------------------------------------------------
// POST /api/map/reset and POST /api/map/layout
// ---------------------------------------------------------------------------

func (s *Server) handleResetMap(w http.ResponseWriter, r *http.Request) {
	s.store.Reset()
	s.canvas.ResetView()
	writeJSON(w, http.StatusOK, appliedResponse{Applied: true})
}

func (s *Server) handleAutoLayout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, appliedResponse{Applied: s.store.AutoLayout()})
}

// ---------------------------------------------------------------------------
// Node endpoints
// ---------------------------------------------------------------------------

type addNodeRequest struct {
	ParentID string `json:"parentId"`
}

// handleAddNode handles POST /api/nodes. Without a parentId (or with one
// that does not resolve) the node is created free-standing.
func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	var req addNodeRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON",
			"invalid request body: "+err.Error())
		return
	}
	n := s.store.AddNode(req.ParentID)
	writeJSON(w, http.StatusCreated, appliedResponse{Applied: true, Node: &n})
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, appliedResponse{Applied: s.store.DeleteNode(r.PathValue("id"))})
}

func (s *Server) handleRenameNode(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON",
			"invalid request body: "+err.Error())
		return
	}
	id := r.PathValue("id")
	resp := appliedResponse{Applied: s.store.RenameNode(id, req.Title)}
	if n, ok := s.store.Node(id); ok && resp.Applied {
		resp.Node = &n
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSelectNode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, appliedResponse{Applied: s.store.SetSelection(r.PathValue("id"))})
}

// ---------------------------------------------------------------------------
// GET /api/export and POST /api/import
// ---------------------------------------------------------------------------

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	body, err := mapfile.Export(s.store.Snapshot())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "EXPORT_FAILED", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		`attachment; filename="`+mapfile.Filename(s.now())+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// handleImport replaces the map with the uploaded document. An invalid
// document leaves the map untouched.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	doc, err := mapfile.Import(r.Body)
	if err != nil {
		if errors.Is(err, mapfile.ErrInvalidDocument) {
			writeError(w, http.StatusBadRequest, "INVALID_DOCUMENT", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "IMPORT_FAILED", err.Error())
		return
	}
	s.store.Replace(doc)
	s.canvas.ResetView()
	writeJSON(w, http.StatusOK, mapResponse{
		Document: s.store.Snapshot(),
		Epoch:    s.store.Epoch(),
		Stats:    s.store.Stats(),
	})
}
