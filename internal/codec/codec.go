// Package codec implements the Encoder Set: a uniform contract over a raw
// passthrough, a VP8 software encoder, and per-vendor H.264 hardware
// backends.
package codec

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sscontrol/agent/internal/media"
)

// Codec names the bitstream an Encoder produces.
type Codec string

const (
	CodecRaw  Codec = "raw"
	CodecVP8  Codec = "vp8"
	CodecH264 Codec = "h264"
)

// DefaultGOPLength is the default keyframe interval; the low-latency
// preset this package targets disables B-frames and look-ahead.
const DefaultGOPLength = 30

var (
	ErrInvalidDimensions = errors.New("codec: invalid dimensions")
	ErrInvalidBitrate    = errors.New("codec: invalid bitrate")
	ErrNotAvailable      = errors.New("codec: backend not available on this host")
)

// Config parameterizes Encoder construction.
type Config struct {
	Codec          Codec
	Width, Height  int
	BitrateKbps    int
	FPS            int
	GOPLength      int
	PreferHardware bool
}

// DefaultConfig returns sane low-latency defaults.
func DefaultConfig() Config {
	return Config{
		Codec:       CodecRaw,
		BitrateKbps: 2000,
		FPS:         30,
		GOPLength:   DefaultGOPLength,
	}
}

// Encoder is the uniform contract C3 exposes to the orchestrator. Encode is
// synchronous but may buffer: a nil packet with a nil error means "no
// output yet", and callers must keep feeding frames. PresentationSeq on
// EncodedPacket stays monotonic across buffered (nil) returns.
type Encoder interface {
	Encode(frame *media.Frame) (*media.EncodedPacket, error)
	RequestKeyFrame()
	Flush() (*media.EncodedPacket, error)
	SetBitrate(kbps int) error
	Width() int
	Height() int
	Name() string
	IsHardware() bool
	Close() error
}

// hardwareFactory constructs a hardware-backed Encoder, or returns
// ErrNotAvailable when the vendor device/driver it targets is absent.
// Factories register themselves from platform/build-tag-gated files and
// must never panic on an absent device.
type hardwareFactory func(cfg Config) (Encoder, error)

var (
	hwFactoriesMu sync.Mutex
	hwFactories   []hardwareFactory
)

func registerHardwareFactory(f hardwareFactory) {
	hwFactoriesMu.Lock()
	defer hwFactoriesMu.Unlock()
	hwFactories = append(hwFactories, f)
}

// New selects a backend for cfg.Codec. It returns an error for
// non-positive dimensions or an unknown codec. CodecVP8 uses the libvpx
// encoder when it constructs and raw passthrough otherwise. CodecH264 uses
// the first registered hardware factory that constructs when
// cfg.PreferHardware is set; otherwise, or when none does, it uses raw
// passthrough (there is no software H.264 fallback here).
func New(cfg Config) (Encoder, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, cfg.Width, cfg.Height)
	}
	if cfg.GOPLength <= 0 {
		cfg.GOPLength = DefaultGOPLength
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}

	switch cfg.Codec {
	case CodecRaw, "":
		return newRawEncoder(cfg), nil
	case CodecVP8:
		enc, err := newVP8Encoder(cfg)
		if err == nil {
			return enc, nil
		}
		return newRawEncoder(cfg), nil
	case CodecH264:
		if cfg.PreferHardware {
			hwFactoriesMu.Lock()
			factories := append([]hardwareFactory(nil), hwFactories...)
			hwFactoriesMu.Unlock()
			for _, f := range factories {
				enc, err := f(cfg)
				if err == nil {
					return enc, nil
				}
			}
		}
		return newRawEncoder(cfg), nil
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", cfg.Codec)
	}
}
