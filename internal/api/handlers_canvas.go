package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/aiscribe/scribe/internal/canvas"
)

// ---------------------------------------------------------------------------
// GET /api/canvas/frame and POST /api/canvas/events
// ---------------------------------------------------------------------------

type canvasEventResponse struct {
	Applied bool         `json:"applied"`
	Frame   canvas.Frame `json:"frame"`
}

func (s *Server) handleCanvasFrame(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.canvas.Frame())
}

func (s *Server) handleCanvasEvent(w http.ResponseWriter, r *http.Request) {
	var ev canvas.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON",
			"invalid request body: "+err.Error())
		return
	}

	err := s.canvas.Dispatch(ev)
	if errors.Is(err, canvas.ErrUnknownEvent) {
		writeError(w, http.StatusBadRequest, "UNKNOWN_EVENT", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, canvasEventResponse{Applied: err == nil, Frame: s.canvas.Frame()})
}

// ---------------------------------------------------------------------------
// GET /api/canvas/ws: pointer events in, frames out
// ---------------------------------------------------------------------------

const (
	wsWriteWait    = 10 * time.Second
	wsMaxEventSize = 64 * 1024
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 32 * 1024,
	CheckOrigin:     checkSameOrigin,
}

// checkSameOrigin admits clients without an Origin header and browser pages
// served from exactly the host the request was sent to.
func checkSameOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// handleCanvasWS streams frames to a remote canvas. Every event the client
// sends is dispatched to the controller and answered with a fresh frame;
// map changes made elsewhere (another client, an AI merge) push a frame
// too.
func (s *Server) handleCanvasWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		slog.Warn("canvas websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	clientID := "ws-" + uuid.New().String()
	updates := s.sse.Subscribe(clientID)
	defer s.sse.Unsubscribe(clientID)

	dirty := make(chan struct{}, 1)
	readErr := make(chan error, 1)
	go func() {
		readErr <- s.pumpCanvasEvents(ctx, conn, dirty)
	}()

	if err := writeFrame(conn, s.canvas.Frame()); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-readErr:
			if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("canvas websocket closed", "client", clientID, "error", err)
			}
			return
		case evt, ok := <-updates:
			if !ok {
				return
			}
			if evt.Event != EventMapChanged {
				continue
			}
		case <-dirty:
		}
		if err := writeFrame(conn, s.canvas.Frame()); err != nil {
			return
		}
	}
}

// pumpCanvasEvents reads client events until the connection fails. It never
// writes; the handler loop is the connection's only writer.
func (s *Server) pumpCanvasEvents(ctx context.Context, conn *websocket.Conn, dirty chan<- struct{}) error {
	conn.SetReadLimit(wsMaxEventSize)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var ev canvas.Event
		if err := conn.ReadJSON(&ev); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				continue
			}
			return err
		}
		if err := s.canvas.Dispatch(ev); err != nil {
			slog.Debug("canvas event rejected", "type", ev.Type, "error", err)
		}
		select {
		case dirty <- struct{}{}:
		default:
		}
	}
}

func writeFrame(conn *websocket.Conn, f canvas.Frame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(f)
}
