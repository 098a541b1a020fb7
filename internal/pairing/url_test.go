package pairing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildURLFormat(t *testing.T) {
	id, err := NewIdentity("test-device")
	require.NoError(t, err)
	code, err := Generate()
	require.NoError(t, err)

	raw := id.BuildURL(code)
	assert.True(t, strings.HasPrefix(raw, "sscontrol://pair?"))
	assert.Contains(t, raw, "device_id=test-device")
	assert.Contains(t, raw, "code=")
}

func TestParseURLRoundtrip(t *testing.T) {
	id, err := NewIdentity("test-device")
	require.NoError(t, err)
	code, err := Generate()
	require.NoError(t, err)

	raw := id.BuildURL(code)
	data, _, err := ParseURL(raw)
	require.NoError(t, err)

	assert.Equal(t, "test-device", data.DeviceID)
	assert.Equal(t, code.Encode(), data.ConnectionCode)
	assert.Equal(t, id.Fingerprint(), data.Fingerprint)
}

func TestVerifyURLAcceptsValidSignature(t *testing.T) {
	id, err := NewIdentity("test-device")
	require.NoError(t, err)
	code, err := Generate()
	require.NoError(t, err)

	raw := id.BuildURL(code)
	data, err := VerifyURL(raw)
	require.NoError(t, err)
	assert.Equal(t, "test-device", data.DeviceID)
}

func TestVerifyURLRejectsTamperedField(t *testing.T) {
	id, err := NewIdentity("test-device")
	require.NoError(t, err)
	code, err := Generate()
	require.NoError(t, err)

	raw := id.BuildURL(code)
	tampered := strings.Replace(raw, "device_id=test-device", "device_id=evil-device", 1)

	_, err = VerifyURL(tampered)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyURLRejectsBadScheme(t *testing.T) {
	_, err := VerifyURL("https://example.com/pair")
	assert.ErrorIs(t, err, ErrBadScheme)
}

func TestIdentityFromSeedRoundtrip(t *testing.T) {
	id, err := NewIdentity("test-device")
	require.NoError(t, err)

	restored, err := IdentityFromSeed("test-device", id.Seed())
	require.NoError(t, err)
	assert.Equal(t, id.Fingerprint(), restored.Fingerprint())
}
