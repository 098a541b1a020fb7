package codec

import (
	"encoding/binary"

	"github.com/sscontrol/agent/internal/media"
)

const rawMagic = 0xFFFFFFFF
const rawHeaderSize = 24

// rawEncoder wraps each frame's RGBA pixels with the fixed 24-byte header
// and marks every 30th packet as a key frame. It never buffers: every
// Encode call returns exactly one packet.
type rawEncoder struct {
	cfg      Config
	seq      uint64
	forceKey bool
}

func newRawEncoder(cfg Config) *rawEncoder {
	return &rawEncoder{cfg: cfg}
}

func (r *rawEncoder) Encode(frame *media.Frame) (*media.EncodedPacket, error) {
	payload := encodeRawFrame(frame)
	r.seq++
	key := r.seq%30 == 0 || r.seq == 1 || r.forceKey
	r.forceKey = false
	return &media.EncodedPacket{
		Payload:           payload,
		KeyFrame:          key,
		SourceTimestampMS: frame.TimestampMS,
		PresentationSeq:   r.seq,
	}, nil
}

// encodeRawFrame builds the wire format: magic | width_be32 | height_be32 |
// timestamp_be64 | payload_size_be32 | pixels.
func encodeRawFrame(frame *media.Frame) []byte {
	payloadSize := frame.Width * frame.Height * 4
	out := make([]byte, rawHeaderSize+payloadSize)

	binary.BigEndian.PutUint32(out[0:4], rawMagic)
	binary.BigEndian.PutUint32(out[4:8], uint32(frame.Width))
	binary.BigEndian.PutUint32(out[8:12], uint32(frame.Height))
	binary.BigEndian.PutUint64(out[12:20], uint64(frame.TimestampMS))
	binary.BigEndian.PutUint32(out[20:24], uint32(payloadSize))

	dst := out[rawHeaderSize:]
	if frame.Stride == frame.Width*4 {
		copy(dst, frame.Pix)
	} else {
		for y := 0; y < frame.Height; y++ {
			srcStart := y * frame.Stride
			dstStart := y * frame.Width * 4
			copy(dst[dstStart:dstStart+frame.Width*4], frame.Pix[srcStart:srcStart+frame.Width*4])
		}
	}
	return out
}

// DecodeRawFrame reverses encodeRawFrame, returning the header fields and a
// view of the pixel payload. It is exported for signaling/peer code paths
// that receive the raw wire format directly.
func DecodeRawFrame(b []byte) (width, height int, timestampMS int64, payload []byte, ok bool) {
	if len(b) < rawHeaderSize {
		return 0, 0, 0, nil, false
	}
	if binary.BigEndian.Uint32(b[0:4]) != rawMagic {
		return 0, 0, 0, nil, false
	}
	w := int(binary.BigEndian.Uint32(b[4:8]))
	h := int(binary.BigEndian.Uint32(b[8:12]))
	ts := int64(binary.BigEndian.Uint64(b[12:20]))
	size := int(binary.BigEndian.Uint32(b[20:24]))
	if len(b) != rawHeaderSize+size {
		return 0, 0, 0, nil, false
	}
	return w, h, ts, b[rawHeaderSize:], true
}

func (r *rawEncoder) RequestKeyFrame() { r.forceKey = true }

func (r *rawEncoder) Flush() (*media.EncodedPacket, error) { return nil, nil }

func (r *rawEncoder) SetBitrate(kbps int) error { return nil } // raw passthrough ignores bitrate hints

func (r *rawEncoder) Width() int  { return r.cfg.Width }
func (r *rawEncoder) Height() int { return r.cfg.Height }
func (r *rawEncoder) Name() string { return "raw" }
func (r *rawEncoder) IsHardware() bool { return false }
func (r *rawEncoder) Close() error     { return nil }
