// Package signaling implements the signaling fabric: an embedded host
// WebSocket+HTTP rendezvous server, and remote WebSocket/REST clients that
// speak the same wire grammar to an external rendezvous service. It routes
// Offer/Answer/ICE between PeerSessions without understanding their
// contents.
package signaling

import "github.com/sscontrol/agent/internal/logging"

var log = logging.L("signaling")

// Kind discriminates SignalEnvelope.Type.
type Kind string

const (
	KindJoin        Kind = "join"
	KindPeers       Kind = "peers"
	KindNewPeer     Kind = "new_peer"
	KindPeerLeft    Kind = "peer_left"
	KindOffer       Kind = "offer"
	KindAnswer      Kind = "answer"
	KindIce         Kind = "ice"
	KindAuth        Kind = "auth"
	KindAuthSuccess Kind = "auth_success"
	KindError       Kind = "error"
)

// HostPeerID is the sentinel peer_id representing the local capture
// process. Messages addressed to it are delivered into an in-process event
// channel rather than routed to another connection.
const HostPeerID = "host"

// PeerInfo is one entry in a Peers envelope's membership list.
type PeerInfo struct {
	ID string `json:"id"`
}

// SignalEnvelope is the wire-level message: a discriminated union keyed by
// Type, with a fixed tuple of optional fields per kind. Unused fields for a
// given kind are omitted from JSON.
type SignalEnvelope struct {
	Type Kind `json:"type"`

	// join
	RoomID string `json:"room_id,omitempty"`

	// peers
	Peers []PeerInfo `json:"peers,omitempty"`

	// new_peer / peer_left
	PeerID string `json:"peer_id,omitempty"`

	// offer / answer / ice routing
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
	SDP  string `json:"sdp,omitempty"`

	// ice
	Candidate     string `json:"candidate,omitempty"`
	SDPMid        string `json:"sdp_mid,omitempty"`
	SDPMLineIndex int    `json:"sdp_mline_index,omitempty"`

	// auth
	DeviceID  string `json:"device_id,omitempty"`
	APIKey    string `json:"api_key,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Nonce     string `json:"nonce,omitempty"`
	Token     string `json:"token,omitempty"`

	// auth_success / error
	Message string `json:"message,omitempty"`
}
