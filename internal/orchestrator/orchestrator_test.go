package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sscontrol/agent/internal/capture"
	"github.com/sscontrol/agent/internal/codec"
	"github.com/sscontrol/agent/internal/media"
	"github.com/sscontrol/agent/internal/peer"
	"github.com/sscontrol/agent/internal/quality"
)

type fakeSource struct {
	width, height int
	frames        []*media.Frame
	captureCalls  int
}

func (f *fakeSource) Start() error { return nil }
func (f *fakeSource) Stop() error  { return nil }
func (f *fakeSource) Width() int   { return f.width }
func (f *fakeSource) Height() int  { return f.height }

func (f *fakeSource) Capture() (*media.Frame, error) {
	f.captureCalls++
	if len(f.frames) == 0 {
		return nil, capture.ErrWaitTimeout
	}
	frame := f.frames[0]
	f.frames = f.frames[1:]
	return frame, nil
}

func solidFrame(t *testing.T, w, h int, fill byte, ts int64) *media.Frame {
	t.Helper()
	pix := make([]byte, w*h*4)
	for i := range pix {
		pix[i] = fill
	}
	frame, err := media.NewFrame(w, h, 0, pix, ts)
	require.NoError(t, err)
	return frame
}

func newTestOrchestrator(t *testing.T, source capture.Source) *Orchestrator {
	t.Helper()
	return &Orchestrator{
		cfg:        Config{FPS: 30, Codec: codec.CodecRaw, BitrateKbps: 2000},
		source:     source,
		viewers:    make(map[string]*viewer),
		enc:        mustRawEncoder(t, source),
		detector:   quality.NewStaticDetector(quality.StaticDetectorConfig{}),
		abr:        quality.NewABR(quality.ABRConfig{}, 2000),
		netSampler: func() (float64, error) { return 5.0, nil },
	}
}

func mustRawEncoder(t *testing.T, source capture.Source) codec.Encoder {
	t.Helper()
	enc, err := codec.New(codec.Config{Codec: codec.CodecRaw, Width: source.Width(), Height: source.Height(), FPS: 30})
	require.NoError(t, err)
	return enc
}

func newTestSession(t *testing.T, id string) *peer.Session {
	t.Helper()
	sess, err := peer.NewSession(id, peer.Config{Codec: codec.CodecVP8})
	require.NoError(t, err)
	t.Cleanup(func() { sess.Close() })
	return sess
}

func TestTickSkipsCaptureWhenNoViewers(t *testing.T) {
	source := &fakeSource{width: 64, height: 64}
	o := newTestOrchestrator(t, source)

	o.tick(time.Now())
	assert.Zero(t, source.captureCalls)
}

func TestTickContinuesOnWaitTimeout(t *testing.T) {
	source := &fakeSource{width: 64, height: 64}
	o := newTestOrchestrator(t, source)
	o.AddViewer("v1", newTestSession(t, "v1"), codec.CodecRaw)

	o.tick(time.Now())
	assert.Equal(t, 1, source.captureCalls)
}

func TestTickEncodesAndWritesToViewer(t *testing.T) {
	source := &fakeSource{width: 64, height: 64, frames: []*media.Frame{solidFrame(t, 64, 64, 0x10, 1)}}
	o := newTestOrchestrator(t, source)
	o.AddViewer("v1", newTestSession(t, "v1"), codec.CodecRaw)

	o.tick(time.Now())
	assert.Equal(t, 1, o.statsEncodeN)
}

func TestStaticSceneSkipsWriteUntilKeepAlive(t *testing.T) {
	frames := make([]*media.Frame, 0, 10)
	for i := 0; i < 10; i++ {
		frames = append(frames, solidFrame(t, 64, 64, 0x20, int64(i)))
	}
	source := &fakeSource{width: 64, height: 64, frames: frames}
	o := newTestOrchestrator(t, source)
	o.AddViewer("v1", newTestSession(t, "v1"), codec.CodecRaw)

	for i := 0; i < 10; i++ {
		o.tick(time.Now())
	}
	assert.Greater(t, o.statsSkipped, 0)
}

func TestOnEncodeFailureDemotesAfterThreeConsecutiveFailures(t *testing.T) {
	source := &fakeSource{width: 64, height: 64}
	o := newTestOrchestrator(t, source)
	o.cfg.Codec = codec.CodecVP8

	o.onEncodeFailure(assertErr)
	assert.Equal(t, codec.CodecVP8, o.cfg.Codec)
	o.onEncodeFailure(assertErr)
	assert.Equal(t, codec.CodecVP8, o.cfg.Codec)
	o.onEncodeFailure(assertErr)
	assert.Equal(t, codec.CodecRaw, o.cfg.Codec)
}

func TestAddAndRemoveViewer(t *testing.T) {
	source := &fakeSource{width: 64, height: 64}
	o := newTestOrchestrator(t, source)
	o.AddViewer("v1", newTestSession(t, "v1"), codec.CodecRaw)
	assert.Equal(t, 1, o.ViewerCount())

	o.RemoveViewer("v1")
	assert.Zero(t, o.ViewerCount())
}

var assertErr = assertErrT{}

type assertErrT struct{}

func (assertErrT) Error() string { return "synthetic encode failure" }
