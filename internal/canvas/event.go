package canvas

import (
	"errors"
	"fmt"
)

// ErrUnknownEvent is returned by Dispatch for an unrecognised event type.
var ErrUnknownEvent = errors.New("canvas: unknown event")

// EventType names an input event delivered by a remote host.
type EventType string

const (
	EventPointerDown  EventType = "pointerdown"
	EventPointerMove  EventType = "pointermove"
	EventPointerUp    EventType = "pointerup"
	EventPointerLeave EventType = "pointerleave"
	EventWheel        EventType = "wheel"
	EventDoubleClick  EventType = "dblclick"
	EventZoomIn       EventType = "zoomin"
	EventZoomOut      EventType = "zoomout"
	EventResetView    EventType = "resetview"
	EventEditDraft    EventType = "edit:draft"
	EventEditConfirm  EventType = "edit:confirm"
	EventEditCancel   EventType = "edit:cancel"
	EventStartMap     EventType = "startmap"
)

// Event is the wire form of an input event. Pointer positions (X, Y) are
// screen coordinates; when Target is set it overrides hit testing.
type Event struct {
	Type   EventType `json:"type"`
	X      float64   `json:"x,omitempty"`
	Y      float64   `json:"y,omitempty"`
	DX     float64   `json:"dx,omitempty"`
	DY     float64   `json:"dy,omitempty"`
	DeltaY float64   `json:"deltaY,omitempty"`
	Target *Target   `json:"target,omitempty"`
	Text   string    `json:"text,omitempty"`
}

// Dispatch applies ev to the controller.
func (c *Controller) Dispatch(ev Event) error {
	switch ev.Type {
	case EventPointerDown:
		c.PointerDown(c.resolve(ev))
	case EventPointerMove:
		c.PointerMove(ev.DX, ev.DY)
	case EventPointerUp:
		c.PointerUp()
	case EventPointerLeave:
		c.PointerLeave()
	case EventWheel:
		c.Wheel(ev.DeltaY)
	case EventDoubleClick:
		if t := c.resolve(ev); t.Kind == TargetNode {
			c.DoubleClick(t.NodeID)
		}
	case EventZoomIn:
		c.ZoomIn()
	case EventZoomOut:
		c.ZoomOut()
	case EventResetView:
		c.ResetView()
	case EventEditDraft:
		c.SetDraft(ev.Text)
	case EventEditConfirm:
		c.ConfirmEdit()
	case EventEditCancel:
		c.CancelEdit()
	case EventStartMap:
		if _, ok := c.StartMap(ev.Text); !ok {
			return fmt.Errorf("canvas: startmap: blank title")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
	return nil
}

func (c *Controller) resolve(ev Event) Target {
	if ev.Target != nil {
		return *ev.Target
	}
	return c.HitTest(ev.X, ev.Y)
}
