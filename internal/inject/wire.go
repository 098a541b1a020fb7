package inject

import (
	"encoding/json"
	"fmt"
)

// wireEvent is the JSON shape an Event takes on a peer session's data
// channel: a tag field discriminating the four EventKind variants, with
// the fields unused by that kind simply omitted.
type wireEvent struct {
	Kind string `json:"kind"`

	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`

	Button  string `json:"button,omitempty"`
	Pressed bool   `json:"pressed,omitempty"`

	DeltaX int `json:"dx,omitempty"`
	DeltaY int `json:"dy,omitempty"`

	Key string `json:"key,omitempty"`
}

var kindToWire = map[EventKind]string{
	MouseMove:  "mouse_move",
	MouseClick: "mouse_click",
	MouseWheel: "mouse_wheel",
	KeyEvent:   "key",
}

var wireToKind = map[string]EventKind{
	"mouse_move":  MouseMove,
	"mouse_click": MouseClick,
	"mouse_wheel": MouseWheel,
	"key":         KeyEvent,
}

// EncodeEvent renders ev as the JSON payload sent over a data channel.
func EncodeEvent(ev Event) ([]byte, error) {
	tag, ok := kindToWire[ev.Kind]
	if !ok {
		return nil, fmt.Errorf("inject: unknown event kind %d", ev.Kind)
	}
	w := wireEvent{
		Kind: tag, X: ev.NormX, Y: ev.NormY,
		Button: string(ev.Button), Pressed: ev.Pressed,
		DeltaX: ev.DeltaX, DeltaY: ev.DeltaY, Key: ev.Key,
	}
	return json.Marshal(w)
}

// DecodeEvent parses a data-channel payload into an Event.
func DecodeEvent(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return Event{}, fmt.Errorf("inject: decode event: %w", err)
	}
	kind, ok := wireToKind[w.Kind]
	if !ok {
		return Event{}, fmt.Errorf("inject: unknown wire kind %q", w.Kind)
	}
	return Event{
		Kind: kind, NormX: w.X, NormY: w.Y,
		Button: MouseButton(w.Button), Pressed: w.Pressed,
		DeltaX: w.DeltaX, DeltaY: w.DeltaY, Key: w.Key,
	}, nil
}
