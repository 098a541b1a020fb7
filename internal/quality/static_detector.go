package quality

import "github.com/sscontrol/agent/internal/media"

// StaticDetectorConfig parameterizes the pixel-sampling comparator and the
// state machine's transition thresholds.
type StaticDetectorConfig struct {
	SampleStride          int // compare every K-th pixel on every K-th row
	DiffThreshold         int // per-pixel RGBA channel-sum delta considered "different"
	StaticFraction        float64
	StaticFrameThreshold  int // consecutive static frames needed to latch Static
	DynamicFrameThreshold int // consecutive non-static frames needed to drop back to Dynamic
	KeepAliveEvery        int // force a key frame every Nth tick while static
}

// DefaultStaticDetectorConfig returns spec defaults: stride 16, diff
// threshold 40, static fraction 1%, static/dynamic thresholds 5/2,
// keep-alive every 30 frames.
func DefaultStaticDetectorConfig() StaticDetectorConfig {
	return StaticDetectorConfig{
		SampleStride:          16,
		DiffThreshold:         40,
		StaticFraction:        0.01,
		StaticFrameThreshold:  5,
		DynamicFrameThreshold: 2,
		KeepAliveEvery:        30,
	}
}

// StaticDetector compares successive frames by sampling a pixel grid rather
// than diffing every byte. It tracks a run of consecutive static
// observations: once the run reaches StaticFrameThreshold the scene latches
// Static (PossiblyStatic is reported once the run reaches 2, before the
// latch); DynamicFrameThreshold consecutive non-static frames unlatches it.
// While latched, frames that differ are compared against the last frame of
// the static scene, so each frame of a new scene counts as non-static.
type StaticDetector struct {
	cfg StaticDetectorConfig

	prev *media.Frame

	latched    bool
	staticRun  int
	dynamicRun int

	tickCount int
}

// NewStaticDetector constructs a detector with the given config; zero
// fields fall back to DefaultStaticDetectorConfig.
func NewStaticDetector(cfg StaticDetectorConfig) *StaticDetector {
	def := DefaultStaticDetectorConfig()
	if cfg.SampleStride == 0 {
		cfg.SampleStride = def.SampleStride
	}
	if cfg.DiffThreshold == 0 {
		cfg.DiffThreshold = def.DiffThreshold
	}
	if cfg.StaticFraction == 0 {
		cfg.StaticFraction = def.StaticFraction
	}
	if cfg.StaticFrameThreshold == 0 {
		cfg.StaticFrameThreshold = def.StaticFrameThreshold
	}
	if cfg.DynamicFrameThreshold == 0 {
		cfg.DynamicFrameThreshold = def.DynamicFrameThreshold
	}
	if cfg.KeepAliveEvery == 0 {
		cfg.KeepAliveEvery = def.KeepAliveEvery
	}
	return &StaticDetector{cfg: cfg}
}

// Result is the per-frame verdict: whether the scene is currently latched
// static, whether the orchestrator may skip encoding this frame, and
// whether this tick demands a forced key frame (the static-scene
// keep-alive).
type Result struct {
	Static         bool
	PossiblyStatic bool
	Skip           bool
	ForceKeyFrame  bool
}

// Observe folds in one frame and returns whether the orchestrator may skip
// encoding it.
func (d *StaticDetector) Observe(frame *media.Frame) Result {
	d.tickCount++

	same := d.isStaticAgainstPrev(frame)

	if !d.latched {
		if same {
			d.staticRun++
			if d.staticRun >= d.cfg.StaticFrameThreshold {
				d.latched = true
				d.dynamicRun = 0
			}
		} else {
			d.staticRun = 0
		}
	} else {
		if same {
			d.dynamicRun = 0
		} else {
			d.dynamicRun++
			if d.dynamicRun >= d.cfg.DynamicFrameThreshold {
				d.latched = false
				d.staticRun = 0
				d.dynamicRun = 0
			}
		}
	}

	if !d.latched || same {
		d.prev = frame
	}

	if !d.latched {
		return Result{PossiblyStatic: d.staticRun >= 2}
	}

	keepAlive := d.tickCount%d.cfg.KeepAliveEvery == 0
	return Result{Static: true, Skip: !keepAlive, ForceKeyFrame: keepAlive}
}

// isStaticAgainstPrev compares frame to the previously observed frame by
// sampling every SampleStride-th pixel on every SampleStride-th row.
func (d *StaticDetector) isStaticAgainstPrev(frame *media.Frame) bool {
	if d.prev == nil || d.prev.Width != frame.Width || d.prev.Height != frame.Height {
		return false
	}

	stride := d.cfg.SampleStride
	var sampled, different int
	for y := 0; y < frame.Height; y += stride {
		for x := 0; x < frame.Width; x += stride {
			r1, g1, b1, a1 := frame.At(x, y)
			r2, g2, b2, a2 := d.prev.At(x, y)
			sampled++
			delta := absInt(int(r1)-int(r2)) + absInt(int(g1)-int(g2)) +
				absInt(int(b1)-int(b2)) + absInt(int(a1)-int(a2))
			if delta > d.cfg.DiffThreshold {
				different++
			}
		}
	}
	if sampled == 0 {
		return true
	}
	return float64(different)/float64(sampled) < d.cfg.StaticFraction
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
