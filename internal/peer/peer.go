// Package peer implements the Peer Session: a pion/webrtc v4 peer
// connection wrapping exactly one video track, an optional data channel,
// and the codec negotiation, NAT-1:1, and ICE candidate filtering rules
// the agent needs for pure-P2P operation.
package peer

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"

	"github.com/sscontrol/agent/internal/codec"
	"github.com/sscontrol/agent/internal/logging"
)

var log = logging.L("peer")

// ErrCodecMismatch is returned when a remote offer/answer negotiates a
// mime type different from the session's bound codec.
var ErrCodecMismatch = errors.New("peer: codec mismatch between session and remote description")

// ICEGatherTimeout bounds how long StartSession waits for local ICE
// gathering to finish before giving up on answering an offer.
const ICEGatherTimeout = 10 * time.Second

// mimeTypeForCodec maps the internal codec selection to the WebRTC mime
// type and fmtp line a session negotiates.
func mimeTypeForCodec(c codec.Codec) (mime, fmtp string) {
	switch c {
	case codec.CodecH264:
		return webrtc.MimeTypeH264, "level-asymmetry-allowed=1;packetization-mode=1;profile-level-id=42e01f"
	default:
		return webrtc.MimeTypeVP8, ""
	}
}

// Config parameterizes a PeerSession.
type Config struct {
	Codec        codec.Codec
	EnableIPv6   bool
	LocalIPv4    string // detected LAN IPv4 used for the NAT-1:1 override; empty disables it
	DataChannel  bool
}

// Session is one viewer connection: signaling identity, one sendonly
// video track, an optional bidirectional data channel, and the bound codec.
// Locally gathered candidates are not queued here; each one is handed to
// the OnICECandidate callback as pion reports it.
type Session struct {
	ID    string
	cfg   Config
	pc    *webrtc.PeerConnection
	video *webrtc.TrackLocalStaticSample

	mu           sync.Mutex
	dataChannel  *webrtc.DataChannel
	seq          uint64
	mimeType     string

	onICECandidate  func(candidate string, sdpMid string, sdpMLineIndex int)
	onDataMessage   func(data []byte)
	onStateChange   func(webrtc.PeerConnectionState)
}

// NewSession builds a PeerSession bound to cfg.Codec, with an empty ICE
// server list (pure P2P) and a NAT-1:1 host-candidate override when
// cfg.LocalIPv4 is a usable (non-link-local) address.
func NewSession(id string, cfg Config) (*Session, error) {
	settingEngine := webrtc.SettingEngine{}
	settingEngine.SetNetworkTypes([]webrtc.NetworkType{webrtc.NetworkTypeUDP4})
	if cfg.EnableIPv6 {
		settingEngine.SetNetworkTypes([]webrtc.NetworkType{webrtc.NetworkTypeUDP4, webrtc.NetworkTypeUDP6})
	}

	if cfg.LocalIPv4 != "" && !isLinkLocal(cfg.LocalIPv4) {
		settingEngine.SetNAT1To1IPs([]string{cfg.LocalIPv4}, webrtc.ICECandidateTypeHost)
	}

	mediaEngine := &webrtc.MediaEngine{}
	mime, fmtp := mimeTypeForCodec(cfg.Codec)
	if err := mediaEngine.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:    mime,
			ClockRate:   90000,
			SDPFmtpLine: fmtp,
			RTCPFeedback: []webrtc.RTCPFeedback{
				{Type: "nack"}, {Type: "nack", Parameter: "pli"}, {Type: "goog-remb"},
			},
		},
		PayloadType: 96,
	}, webrtc.RTPCodecTypeVideo); err != nil {
		return nil, fmt.Errorf("peer: register codec: %w", err)
	}

	api := webrtc.NewAPI(webrtc.WithMediaEngine(mediaEngine), webrtc.WithSettingEngine(settingEngine))

	pc, err := api.NewPeerConnection(webrtc.Configuration{ICEServers: nil})
	if err != nil {
		return nil, fmt.Errorf("peer: new peer connection: %w", err)
	}

	videoTrack, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: mime, ClockRate: 90000, SDPFmtpLine: fmtp},
		"video", "sscontrol",
	)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("peer: new video track: %w", err)
	}

	if _, err := pc.AddTransceiverFromTrack(videoTrack, webrtc.RTPTransceiverInit{Direction: webrtc.RTPTransceiverDirectionSendonly}); err != nil {
		pc.Close()
		return nil, fmt.Errorf("peer: add video transceiver: %w", err)
	}

	s := &Session{ID: id, cfg: cfg, pc: pc, video: videoTrack, mimeType: mime}

	if cfg.DataChannel {
		dc, err := pc.CreateDataChannel("input", nil)
		if err != nil {
			log.Warn("data channel creation failed", "session", id, "error", err)
		} else {
			s.bindDataChannel(dc)
		}
	}

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() == "input" {
			s.bindDataChannel(dc)
		}
	})

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil || s.onICECandidate == nil {
			return
		}
		if isLinkLocal(c.Address) {
			return
		}
		init := c.ToJSON()
		mid := ""
		if init.SDPMid != nil {
			mid = *init.SDPMid
		}
		idx := 0
		if init.SDPMLineIndex != nil {
			idx = int(*init.SDPMLineIndex)
		}
		s.onICECandidate(init.Candidate, mid, idx)
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		if s.onStateChange != nil {
			s.onStateChange(state)
		}
	})

	return s, nil
}

func (s *Session) bindDataChannel(dc *webrtc.DataChannel) {
	s.mu.Lock()
	s.dataChannel = dc
	s.mu.Unlock()
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if s.onDataMessage != nil {
			s.onDataMessage(msg.Data)
		}
	})
}

// OnICECandidate registers a callback invoked for each locally gathered,
// non-link-local candidate.
func (s *Session) OnICECandidate(fn func(candidate, sdpMid string, sdpMLineIndex int)) {
	s.onICECandidate = fn
}

// OnDataMessage registers a callback for inbound data-channel messages
// (input events, control messages).
func (s *Session) OnDataMessage(fn func(data []byte)) { s.onDataMessage = fn }

// OnStateChange registers a callback for peer connection state changes.
func (s *Session) OnStateChange(fn func(webrtc.PeerConnectionState)) { s.onStateChange = fn }

// HandleOffer applies a remote offer, creates and sets a local answer, and
// returns the answer SDP once local ICE gathering completes. The remote
// mime type must match the session's bound codec.
func (s *Session) HandleOffer(sdp string) (answer string, err error) {
	if err := negotiatedMimeMatches(sdp, s.mimeType); err != nil {
		return "", err
	}

	if err := s.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}); err != nil {
		return "", fmt.Errorf("peer: set remote description: %w", err)
	}

	ans, err := s.pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("peer: create answer: %w", err)
	}
	if err := s.pc.SetLocalDescription(ans); err != nil {
		return "", fmt.Errorf("peer: set local description: %w", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(s.pc)
	select {
	case <-gatherComplete:
	case <-time.After(ICEGatherTimeout):
		return "", fmt.Errorf("peer: ICE gathering timed out after %s", ICEGatherTimeout)
	}

	ld := s.pc.LocalDescription()
	if ld == nil {
		return "", fmt.Errorf("peer: local description not available")
	}
	return ld.SDP, nil
}

// negotiatedMimeMatches is a best-effort check: pion validates the SDP
// thoroughly during SetRemoteDescription, but a cheap substring scan here
// surfaces a codec mismatch as ErrCodecMismatch instead of an opaque pion
// negotiation failure.
func negotiatedMimeMatches(sdp, mime string) error {
	name := mime[len("video/"):]
	if !containsFold(sdp, name) {
		return fmt.Errorf("%w: remote offer does not advertise %s", ErrCodecMismatch, name)
	}
	return nil
}

func containsFold(haystack, needle string) bool {
	hl, nl := len(haystack), len(needle)
	if nl == 0 || nl > hl {
		return false
	}
	for i := 0; i+nl <= hl; i++ {
		match := true
		for j := 0; j < nl; j++ {
			a, b := haystack[i+j], needle[j]
			if 'a' <= a && a <= 'z' {
				a -= 'a' - 'A'
			}
			if 'a' <= b && b <= 'z' {
				b -= 'a' - 'A'
			}
			if a != b {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// AddICECandidate adds a remote-gathered ICE candidate.
func (s *Session) AddICECandidate(candidate, sdpMid string, sdpMLineIndex int) error {
	mid := sdpMid
	idx := uint16(sdpMLineIndex)
	return s.pc.AddICECandidate(webrtc.ICECandidateInit{
		Candidate:     candidate,
		SDPMid:        &mid,
		SDPMLineIndex: &idx,
	})
}

// WriteSample writes one encoded frame to the video track as an RTP-level
// sample, timestamp advancing by frameDuration scaled to the track's 90kHz
// clock by pion internally.
func (s *Session) WriteSample(payload []byte, frameDuration time.Duration) error {
	return s.video.WriteSample(media.Sample{Data: payload, Duration: frameDuration})
}

// SendData writes a message on the session's data channel, if one is open.
func (s *Session) SendData(data []byte) error {
	s.mu.Lock()
	dc := s.dataChannel
	s.mu.Unlock()
	if dc == nil {
		return fmt.Errorf("peer: no data channel open")
	}
	return dc.Send(data)
}

// Close tears down the peer connection, which in turn closes ICE, DTLS,
// tracks, and data channels.
func (s *Session) Close() error { return s.pc.Close() }

// isLinkLocal reports whether addr (a bare IP or an ICE candidate address
// string) falls in 169.254.0.0/16.
func isLinkLocal(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	return ip.To4() != nil && ip.To4()[0] == 169 && ip.To4()[1] == 254
}
