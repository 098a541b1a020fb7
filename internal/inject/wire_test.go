package inject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeMouseMoveRoundtrip(t *testing.T) {
	ev := Event{Kind: MouseMove, NormX: 0.25, NormY: 0.75}
	data, err := EncodeEvent(ev)
	require.NoError(t, err)

	decoded, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, ev, decoded)
}

func TestEncodeDecodeKeyEventRoundtrip(t *testing.T) {
	ev := Event{Kind: KeyEvent, Key: "Enter", Pressed: true}
	data, err := EncodeEvent(ev)
	require.NoError(t, err)

	decoded, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, ev, decoded)
}

func TestDecodeEventRejectsUnknownKind(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"kind":"teleport"}`))
	assert.Error(t, err)
}

func TestEncodeEventRejectsUnknownKind(t *testing.T) {
	_, err := EncodeEvent(Event{Kind: EventKind(99)})
	assert.Error(t, err)
}
