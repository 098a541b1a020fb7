package signaling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticatorAcceptsValidToken(t *testing.T) {
	auth := NewAuthenticator("secret")
	now := time.Now()
	auth.nowFn = func() time.Time { return now }

	ts := now.Unix()
	env := SignalEnvelope{
		Type:      KindAuth,
		DeviceID:  "dev",
		Timestamp: ts,
		Nonce:     "N",
		Token:     Token("secret", "dev", ts, "N"),
	}
	require.NoError(t, auth.Verify(env))
}

func TestAuthenticatorRejectsReplay(t *testing.T) {
	auth := NewAuthenticator("secret")
	now := time.Now()
	auth.nowFn = func() time.Time { return now }

	ts := now.Unix()
	env := SignalEnvelope{
		Type:      KindAuth,
		DeviceID:  "dev",
		Timestamp: ts,
		Nonce:     "N",
		Token:     Token("secret", "dev", ts, "N"),
	}
	require.NoError(t, auth.Verify(env))

	err := auth.Verify(env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonce")
}

func TestAuthenticatorRejectsTamperedToken(t *testing.T) {
	auth := NewAuthenticator("secret")
	now := time.Now()
	auth.nowFn = func() time.Time { return now }

	ts := now.Unix()
	good := Token("secret", "dev", ts, "N")
	bad := []byte(good)
	bad[0] ^= 0xFF

	env := SignalEnvelope{Type: KindAuth, DeviceID: "dev", Timestamp: ts, Nonce: "N", Token: string(bad)}
	require.Error(t, auth.Verify(env))
}

func TestAuthenticatorDisabledWithoutAPIKey(t *testing.T) {
	auth := NewAuthenticator("")
	assert.False(t, auth.Required())
	assert.NoError(t, auth.Verify(SignalEnvelope{}))
}
