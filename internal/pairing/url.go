package pairing

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// urlScheme is the custom scheme a controller app registers a handler for,
// so scanning a pairing QR code (or tapping a pairing link) launches
// straight into the connect flow.
const urlScheme = "sscontrol"

// protocolVersion is embedded in every pairing URL so a future incompatible
// change can be rejected cleanly instead of silently misparsed.
const protocolVersion = 1

var (
	ErrBadScheme        = errors.New("pairing: url is not an sscontrol://pair link")
	ErrMissingField      = errors.New("pairing: url is missing a required field")
	ErrBadSignature      = errors.New("pairing: url signature does not verify against its own fingerprint")
	ErrFingerprintLength = errors.New("pairing: fingerprint is not 32 bytes")
)

// URLData is the payload embedded in a pairing URL: enough for a
// controller to locate and authenticate the host without the signaling
// fabric already being known.
type URLData struct {
	DeviceID       string
	ConnectionCode string
	Fingerprint    [32]byte // ed25519 public key
	Timestamp      int64
	Version        int
}

// Identity is a host's long-lived ed25519 keypair used to sign pairing
// URLs. The fingerprint is the public half, published in the URL itself so
// a controller can verify the signature without a prior trust exchange
// (it only protects against tampering of this one URL, not a full PKI).
type Identity struct {
	deviceID string
	priv     ed25519.PrivateKey
	pub      ed25519.PublicKey
}

// NewIdentity generates a fresh ed25519 keypair for deviceID.
func NewIdentity(deviceID string) (*Identity, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("pairing: generate identity: %w", err)
	}
	return &Identity{deviceID: deviceID, priv: priv, pub: pub}, nil
}

// IdentityFromSeed rebuilds an Identity from a persisted 32-byte seed.
func IdentityFromSeed(deviceID string, seed []byte) (*Identity, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("pairing: seed must be %d bytes", ed25519.SeedSize)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &Identity{deviceID: deviceID, priv: priv, pub: pub}, nil
}

// Seed returns the identity's private seed for persistence.
func (id *Identity) Seed() []byte { return id.priv.Seed() }

// Fingerprint returns the identity's public key.
func (id *Identity) Fingerprint() [32]byte {
	var fp [32]byte
	copy(fp[:], id.pub)
	return fp
}

// BuildURL signs code under this identity and renders the full
// sscontrol://pair URL a controller can scan or open.
func (id *Identity) BuildURL(code ConnectionCode) string {
	data := URLData{
		DeviceID:       id.deviceID,
		ConnectionCode: code.Encode(),
		Fingerprint:    id.Fingerprint(),
		Timestamp:      time.Now().Unix(),
		Version:        protocolVersion,
	}
	sig := ed25519.Sign(id.priv, signingMessage(data))
	return encodeURL(data, sig)
}

func signingMessage(data URLData) []byte {
	return []byte(fmt.Sprintf("%s|%s|%s|%d|%d",
		data.DeviceID, data.ConnectionCode, hex.EncodeToString(data.Fingerprint[:]), data.Timestamp, data.Version))
}

func encodeURL(data URLData, signature []byte) string {
	v := url.Values{}
	v.Set("device_id", data.DeviceID)
	v.Set("code", data.ConnectionCode)
	v.Set("fp", hex.EncodeToString(data.Fingerprint[:]))
	v.Set("ts", strconv.FormatInt(data.Timestamp, 10))
	v.Set("v", strconv.Itoa(data.Version))
	v.Set("sig", hex.EncodeToString(signature))
	return urlScheme + "://pair?" + v.Encode()
}

// ParseURL parses a pairing URL into its data fields and raw signature,
// without verifying the signature (use VerifyURL for that).
func ParseURL(raw string) (URLData, []byte, error) {
	const prefix = urlScheme + "://pair?"
	if len(raw) < len(prefix) || raw[:len(prefix)] != prefix {
		return URLData{}, nil, ErrBadScheme
	}

	values, err := url.ParseQuery(raw[len(prefix):])
	if err != nil {
		return URLData{}, nil, fmt.Errorf("pairing: parse query: %w", err)
	}

	deviceID := values.Get("device_id")
	code := values.Get("code")
	fpHex := values.Get("fp")
	tsStr := values.Get("ts")
	vStr := values.Get("v")
	sigHex := values.Get("sig")

	if deviceID == "" || code == "" || fpHex == "" || sigHex == "" {
		return URLData{}, nil, ErrMissingField
	}

	fpBytes, err := hex.DecodeString(fpHex)
	if err != nil || len(fpBytes) != 32 {
		return URLData{}, nil, ErrFingerprintLength
	}
	var fp [32]byte
	copy(fp[:], fpBytes)

	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return URLData{}, nil, fmt.Errorf("pairing: decode signature: %w", err)
	}

	ts, _ := strconv.ParseInt(tsStr, 10, 64)
	version, _ := strconv.Atoi(vStr)
	if version == 0 {
		version = protocolVersion
	}

	return URLData{
		DeviceID:       deviceID,
		ConnectionCode: code,
		Fingerprint:    fp,
		Timestamp:      ts,
		Version:        version,
	}, sig, nil
}

// VerifyURL parses raw and checks its signature against the fingerprint
// embedded in the URL itself. This only rules out in-flight tampering of
// the URL; it does not establish that the fingerprint belongs to a
// trusted device on its own.
func VerifyURL(raw string) (URLData, error) {
	data, sig, err := ParseURL(raw)
	if err != nil {
		return URLData{}, err
	}
	if !ed25519.Verify(data.Fingerprint[:], signingMessage(data), sig) {
		return URLData{}, ErrBadSignature
	}
	return data, nil
}
