// Package orchestrator implements the Pipeline Orchestrator: the top-level
// tick loop that binds frame capture through the static-scene detector and
// the encoder into every live peer session, adapting bitrate from observed
// network state and emitting periodic operator-facing stats.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gopsutilnet "github.com/shirou/gopsutil/v3/net"

	"github.com/sscontrol/agent/internal/capture"
	"github.com/sscontrol/agent/internal/codec"
	"github.com/sscontrol/agent/internal/logging"
	"github.com/sscontrol/agent/internal/media"
	"github.com/sscontrol/agent/internal/peer"
	"github.com/sscontrol/agent/internal/quality"
)

var log = logging.L("orchestrator")

// ErrConnectionLost tags a session write failure that should close that
// one session without affecting any other live session or the tick loop.
var ErrConnectionLost = errors.New("orchestrator: connection lost")

// encoderFailureLimit is how many consecutive encode errors demote the
// shared encoder to raw passthrough.
const encoderFailureLimit = 3

// statsInterval is how often an operator-facing stats line is emitted.
const statsInterval = 5 * time.Second

// Config parameterizes the Orchestrator.
type Config struct {
	FPS         int
	Codec       codec.Codec
	BitrateKbps int
}

// viewer is one live outbound session and the codec it was negotiated at.
type viewer struct {
	session *peer.Session
	codec   codec.Codec
}

// Orchestrator drives one capture source through one shared encoder,
// fanning encoded packets out to every registered viewer session.
type Orchestrator struct {
	cfg    Config
	source capture.Source

	mu       sync.Mutex
	viewers  map[string]*viewer
	enc      codec.Encoder
	encFails int

	detector *quality.StaticDetector
	abr      *quality.ABR

	tickCount      uint64
	lastStatsAt    time.Time
	statsStatic    int
	statsSkipped   int
	statsEncodedMs time.Duration
	statsEncodeN   int

	netSampler netSampler
}

// netSampler abstracts host network counters so tests can substitute a
// fake without touching the real interfaces.
type netSampler func() (bandwidthMbps float64, err error)

// New builds an Orchestrator over source, starting the shared encoder at
// cfg.Codec/cfg.BitrateKbps.
func New(cfg Config, source capture.Source) (*Orchestrator, error) {
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	if cfg.BitrateKbps <= 0 {
		cfg.BitrateKbps = 2000
	}

	enc, err := codec.New(codec.Config{
		Codec: cfg.Codec, Width: source.Width(), Height: source.Height(),
		BitrateKbps: cfg.BitrateKbps, FPS: cfg.FPS,
	})
	if err != nil {
		return nil, fmt.Errorf("orchestrator: build encoder: %w", err)
	}

	return &Orchestrator{
		cfg:        cfg,
		source:     source,
		viewers:    make(map[string]*viewer),
		enc:        enc,
		detector:   quality.NewStaticDetector(quality.StaticDetectorConfig{}),
		abr:        quality.NewABR(quality.ABRConfig{}, cfg.BitrateKbps),
		netSampler: defaultNetSampler,
	}, nil
}

// AddViewer registers a live session to receive encoded samples.
func (o *Orchestrator) AddViewer(id string, sess *peer.Session, negotiated codec.Codec) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.viewers[id] = &viewer{session: sess, codec: negotiated}
}

// RemoveViewer deregisters a session, e.g. on peer_left or connection loss.
func (o *Orchestrator) RemoveViewer(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.viewers, id)
}

// ViewerCount reports the number of currently registered sessions.
func (o *Orchestrator) ViewerCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.viewers)
}

// Run drives the tick loop until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.source.Start(); err != nil {
		return fmt.Errorf("orchestrator: start capture: %w", err)
	}
	defer o.source.Stop()

	period := time.Second / time.Duration(o.cfg.FPS)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	o.lastStatsAt = time.Now()

	for {
		select {
		case <-ctx.Done():
			o.closeAllViewers()
			return ctx.Err()
		case tickStart := <-ticker.C:
			o.tick(tickStart)
		}
	}
}

// tick performs exactly one pass of the steps spec.md §4.8 lists in order.
func (o *Orchestrator) tick(now time.Time) {
	o.tickCount++

	viewers := o.liveViewers()
	if len(viewers) == 0 {
		return
	}

	o.reconcileEncoderCodec(viewers)

	frame, err := o.source.Capture()
	if err != nil {
		if errors.Is(err, capture.ErrWaitTimeout) {
			return
		}
		log.Warn("capture error", "error", err)
		return
	}

	result := o.detector.Observe(frame)
	if result.Static {
		o.statsStatic++
		if !result.ForceKeyFrame {
			o.statsSkipped++
			o.maybeEmitStats(now)
			return
		}
		o.enc.RequestKeyFrame()
	}

	encodeStart := time.Now()
	packet, err := o.enc.Encode(frame)
	if err != nil {
		o.onEncodeFailure(err)
		o.maybeEmitStats(now)
		return
	}
	o.encFails = 0
	o.statsEncodedMs += time.Since(encodeStart)
	o.statsEncodeN++

	if packet == nil {
		o.maybeEmitStats(now)
		return
	}

	frameDuration := time.Second / time.Duration(o.cfg.FPS)
	o.writeToViewers(viewers, packet, frameDuration)

	if bwMbps, err := o.netSampler(); err == nil {
		target := o.abr.Update(media.NetworkState{BandwidthMbps: bwMbps, SampledAt: now})
		if err := o.enc.SetBitrate(target); err != nil {
			log.Warn("set bitrate failed", "error", err)
		}
	}

	o.maybeEmitStats(now)
}

func (o *Orchestrator) liveViewers() []*viewer {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*viewer, 0, len(o.viewers))
	for _, v := range o.viewers {
		out = append(out, v)
	}
	return out
}

// reconcileEncoderCodec swaps the shared encoder when a registered
// viewer's negotiated codec no longer matches it.
func (o *Orchestrator) reconcileEncoderCodec(viewers []*viewer) {
	o.mu.Lock()
	current := o.cfg.Codec
	o.mu.Unlock()

	for _, v := range viewers {
		if v.codec != current {
			o.switchEncoder(v.codec)
			return
		}
	}
}

func (o *Orchestrator) switchEncoder(target codec.Codec) {
	newEnc, err := codec.New(codec.Config{
		Codec: target, Width: o.source.Width(), Height: o.source.Height(),
		BitrateKbps: o.abr.TargetKbps(), FPS: o.cfg.FPS,
	})
	if err != nil {
		log.Warn("switch encoder failed, keeping current", "target", target, "error", err)
		return
	}
	newEnc.RequestKeyFrame()

	old := o.enc
	o.enc = newEnc
	o.cfg.Codec = target
	o.encFails = 0
	old.Close()
	log.Info("encoder switched", "codec", target)
}

func (o *Orchestrator) onEncodeFailure(err error) {
	o.encFails++
	log.Warn("encode error", "error", err, "consecutive", o.encFails)
	if o.encFails >= encoderFailureLimit && o.cfg.Codec != codec.CodecRaw {
		log.Warn("demoting encoder to raw passthrough after repeated failures")
		o.switchEncoder(codec.CodecRaw)
	}
}

func (o *Orchestrator) writeToViewers(viewers []*viewer, packet *media.EncodedPacket, frameDuration time.Duration) {
	for _, v := range viewers {
		if err := v.session.WriteSample(packet.Payload, frameDuration); err != nil {
			log.Warn("session write failed, closing", "session", v.session.ID, "error", fmt.Errorf("%w: %v", ErrConnectionLost, err))
			v.session.Close()
			o.RemoveViewer(v.session.ID)
		}
	}
}

func (o *Orchestrator) closeAllViewers() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, v := range o.viewers {
		v.session.Close()
		delete(o.viewers, id)
	}
}

func (o *Orchestrator) maybeEmitStats(now time.Time) {
	if now.Sub(o.lastStatsAt) < statsInterval {
		return
	}

	meanEncodeMs := 0.0
	if o.statsEncodeN > 0 {
		meanEncodeMs = float64(o.statsEncodedMs.Milliseconds()) / float64(o.statsEncodeN)
	}
	bwMbps, _ := o.netSampler()

	log.Info("stats",
		"fps_target", o.cfg.FPS,
		"viewers", o.ViewerCount(),
		"mean_encode_ms", meanEncodeMs,
		"bandwidth_mbps", bwMbps,
		"static_ticks", o.statsStatic,
		"skipped_ticks", o.statsSkipped,
	)

	o.lastStatsAt = now
	o.statsStatic, o.statsSkipped, o.statsEncodeN = 0, 0, 0
	o.statsEncodedMs = 0
}

// defaultNetSampler estimates available bandwidth from the delta of host
// network byte counters between calls.
var lastNetSample struct {
	mu    sync.Mutex
	bytes uint64
	at    time.Time
}

func defaultNetSampler() (float64, error) {
	counters, err := gopsutilnet.IOCounters(false)
	if err != nil || len(counters) == 0 {
		return 0, err
	}
	total := counters[0].BytesSent + counters[0].BytesRecv

	lastNetSample.mu.Lock()
	defer lastNetSample.mu.Unlock()

	now := time.Now()
	defer func() {
		lastNetSample.bytes = total
		lastNetSample.at = now
	}()

	if lastNetSample.at.IsZero() {
		return 0, nil
	}
	elapsed := now.Sub(lastNetSample.at).Seconds()
	if elapsed <= 0 || total < lastNetSample.bytes {
		return 0, nil
	}
	bytesPerSec := float64(total-lastNetSample.bytes) / elapsed
	return bytesPerSec * 8 / 1_000_000, nil
}
