//go:build vpx

package codec

import (
	"fmt"
	"sync"

	"github.com/Azunyan1111/libvpx-go/vpx"
	"github.com/sscontrol/agent/internal/media"
)

// vp8Encoder wraps libvpx's VP8 encoder. It is only built under the vpx
// tag; without it, New() falls back to raw passthrough for CodecVP8.
type vp8Encoder struct {
	mu       sync.Mutex
	cfg      Config
	ctx      *vpx.CodecCtx
	img      *vpx.Image
	iface    *vpx.CodecIface
	seq      uint64
	forceKey bool
}

func newVP8Encoder(cfg Config) (Encoder, error) {
	iface := vpx.EncoderIfaceVP8()
	ctx := vpx.NewCodecCtx()

	vpxCfg := vpx.NewCodecEncCfg()
	if err := vpx.CodecEncConfigDefault(iface, vpxCfg, 0); err != nil {
		return nil, fmt.Errorf("%w: vp8 default config: %v", ErrNotAvailable, err)
	}
	vpxCfg.SetW(uint32(cfg.Width))
	vpxCfg.SetH(uint32(cfg.Height))
	vpxCfg.SetRcTargetBitrate(uint32(cfg.BitrateKbps))
	vpxCfg.SetGWSendkeyInterval(uint32(cfg.GOPLength))
	vpxCfg.SetGTimebase(1, uint32(cfg.FPS))
	vpxCfg.SetRcEndUsage(vpx.RcEndUsageCBR)
	vpxCfg.SetGLagInFrames(0) // low latency: no look-ahead
	vpxCfg.SetKfMaxDist(uint32(cfg.GOPLength))

	if err := vpx.CodecEncInit(ctx, iface, vpxCfg, 0); err != nil {
		return nil, fmt.Errorf("%w: vp8 init: %v", ErrNotAvailable, err)
	}

	img := vpx.NewImage(vpx.ImageFormatI420, uint32(cfg.Width), uint32(cfg.Height), 1)

	return &vp8Encoder{cfg: cfg, ctx: ctx, img: img, iface: iface}, nil
}

func (e *vp8Encoder) Encode(frame *media.Frame) (*media.EncodedPacket, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	y, u, v := RGBAToI420(frame.Pix, frame.Width, frame.Height, frame.Stride)
	e.img.FillI420(y, u, v, frame.Width, frame.Height)

	flags := vpx.CodecFlags(0)
	if e.forceKey {
		flags |= vpx.EncFrameFlagForceKf
		e.forceKey = false
	}

	if err := vpx.CodecEncode(e.ctx, e.img, int64(e.seq), 1, flags, vpx.DlRealtime); err != nil {
		return nil, fmt.Errorf("codec: vp8 encode: %w", err)
	}

	var iter vpx.CodecIter
	pkt := vpx.CodecGetCXData(e.ctx, &iter)
	if pkt == nil {
		e.seq++
		return nil, nil // buffered; no output this call
	}

	e.seq++
	return &media.EncodedPacket{
		Payload:           pkt.Data(),
		KeyFrame:          pkt.IsKeyFrame(),
		SourceTimestampMS: frame.TimestampMS,
		PresentationSeq:   e.seq,
	}, nil
}

func (e *vp8Encoder) RequestKeyFrame() {
	e.mu.Lock()
	e.forceKey = true
	e.mu.Unlock()
}

func (e *vp8Encoder) Flush() (*media.EncodedPacket, error) { return nil, nil }

func (e *vp8Encoder) SetBitrate(kbps int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.BitrateKbps = kbps
	cfg := vpx.NewCodecEncCfg()
	if err := vpx.CodecEncConfigDefault(e.iface, cfg, 0); err != nil {
		return err
	}
	cfg.SetW(uint32(e.cfg.Width))
	cfg.SetH(uint32(e.cfg.Height))
	cfg.SetRcTargetBitrate(uint32(kbps))
	return vpx.CodecEncConfigSet(e.ctx, cfg)
}

func (e *vp8Encoder) Width() int      { return e.cfg.Width }
func (e *vp8Encoder) Height() int     { return e.cfg.Height }
func (e *vp8Encoder) Name() string    { return "vp8-software" }
func (e *vp8Encoder) IsHardware() bool { return false }

func (e *vp8Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return vpx.CodecDestroy(e.ctx)
}
