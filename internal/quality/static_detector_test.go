package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sscontrol/agent/internal/media"
)

func identicalFrame(t *testing.T) *media.Frame {
	t.Helper()
	pix := make([]byte, 64*64*4)
	for i := range pix {
		pix[i] = 0x42
	}
	frame, err := media.NewFrame(64, 64, 0, pix, 0)
	require.NoError(t, err)
	return frame
}

// TestStaticKeepAliveSequence reproduces the 31-identical-frames-at-30fps
// scenario: frames 1-5 drive the Dynamic->Static transition, frames 6-29
// are skippable, and frame 30 forces a key frame.
func TestStaticKeepAliveSequence(t *testing.T) {
	det := NewStaticDetector(DefaultStaticDetectorConfig())
	frame := identicalFrame(t)

	for i := 1; i <= 5; i++ {
		res := det.Observe(frame)
		assert.Falsef(t, res.Static, "frame %d should still be transitioning", i)
	}

	for i := 6; i <= 29; i++ {
		res := det.Observe(frame)
		assert.Truef(t, res.Static, "frame %d should be latched static", i)
		assert.Truef(t, res.Skip, "frame %d should be skippable", i)
		assert.Falsef(t, res.ForceKeyFrame, "frame %d should not force a key frame", i)
	}

	res := det.Observe(frame) // frame 30
	assert.True(t, res.Static)
	assert.False(t, res.Skip)
	assert.True(t, res.ForceKeyFrame)
}

func TestStaticDetectorRevertsOnMotion(t *testing.T) {
	det := NewStaticDetector(DefaultStaticDetectorConfig())
	still := identicalFrame(t)
	for i := 0; i < 6; i++ {
		det.Observe(still)
	}

	movingPix := make([]byte, 64*64*4)
	for i := range movingPix {
		movingPix[i] = 0xFF
	}
	moving, err := media.NewFrame(64, 64, 0, movingPix, 0)
	require.NoError(t, err)

	res := det.Observe(moving)
	assert.True(t, res.Static, "single differing frame shouldn't unlatch yet")
	res = det.Observe(moving)
	assert.False(t, res.Static, "two consecutive differing frames should unlatch")
}

func TestStaticDetectorFirstFrameNeverStatic(t *testing.T) {
	det := NewStaticDetector(DefaultStaticDetectorConfig())
	res := det.Observe(identicalFrame(t))
	assert.False(t, res.Static)
	assert.False(t, res.PossiblyStatic)
}
