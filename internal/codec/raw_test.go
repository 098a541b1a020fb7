package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sscontrol/agent/internal/media"
)

func TestRawFrameHeaderMatchesWireFormat(t *testing.T) {
	frame, err := media.NewFrame(4, 2, 0, make([]byte, 4*2*4), 1234)
	require.NoError(t, err)

	enc := newRawEncoder(Config{Width: 4, Height: 2})
	pkt, err := enc.Encode(frame)
	require.NoError(t, err)
	require.Len(t, pkt.Payload, 56)

	expectedHeader := []byte{
		0xFF, 0xFF, 0xFF, 0xFF,
		0x00, 0x00, 0x00, 0x04,
		0x00, 0x00, 0x00, 0x02,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x04, 0xD2,
		0x00, 0x00, 0x00, 0x20,
	}
	assert.Equal(t, expectedHeader, pkt.Payload[:24])
}

func TestRawEncoderKeyFrameEvery30th(t *testing.T) {
	frame, err := media.NewFrame(2, 2, 0, make([]byte, 2*2*4), 0)
	require.NoError(t, err)

	enc := newRawEncoder(Config{Width: 2, Height: 2})
	var keyFrames int
	for i := 0; i < 60; i++ {
		pkt, err := enc.Encode(frame)
		require.NoError(t, err)
		if pkt.KeyFrame {
			keyFrames++
		}
	}
	// seq 1 (first packet), 30, and 60 are all key frames.
	assert.Equal(t, 3, keyFrames)
}

func TestRawEncoderFirstPacketIsKeyFrame(t *testing.T) {
	frame, err := media.NewFrame(2, 2, 0, make([]byte, 2*2*4), 0)
	require.NoError(t, err)

	enc := newRawEncoder(Config{Width: 2, Height: 2})
	pkt, err := enc.Encode(frame)
	require.NoError(t, err)
	assert.True(t, pkt.KeyFrame, "the first packet from a fresh encoder must be a key packet")
}

func TestDecodeRawFrameRoundTrip(t *testing.T) {
	frame, err := media.NewFrame(4, 2, 0, make([]byte, 4*2*4), 1234)
	require.NoError(t, err)
	frame.Pix[0] = 0xAB

	enc := newRawEncoder(Config{Width: 4, Height: 2})
	pkt, err := enc.Encode(frame)
	require.NoError(t, err)

	w, h, ts, payload, ok := DecodeRawFrame(pkt.Payload)
	require.True(t, ok)
	assert.Equal(t, 4, w)
	assert.Equal(t, 2, h)
	assert.EqualValues(t, 1234, ts)
	assert.Equal(t, byte(0xAB), payload[0])
}

func TestRequestKeyFrameForcesNextPacket(t *testing.T) {
	frame, err := media.NewFrame(2, 2, 0, make([]byte, 2*2*4), 0)
	require.NoError(t, err)

	enc := newRawEncoder(Config{Width: 2, Height: 2})

	// Advance past the initial forced key frame so neither the next packet
	// nor the one after it falls on the periodic key-frame boundary.
	for i := 0; i < 27; i++ {
		_, err := enc.Encode(frame)
		require.NoError(t, err)
	}

	pkt, err := enc.Encode(frame)
	require.NoError(t, err)
	assert.False(t, pkt.KeyFrame)

	enc.RequestKeyFrame()
	pkt, err = enc.Encode(frame)
	require.NoError(t, err)
	assert.True(t, pkt.KeyFrame)
}
