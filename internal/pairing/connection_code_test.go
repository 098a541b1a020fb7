package pairing

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndEncodeFormat(t *testing.T) {
	code, err := Generate()
	require.NoError(t, err)

	encoded := code.Encode()
	assert.Len(t, encoded, 19) // 16 chars + 3 hyphens
	assert.Equal(t, 3, strings.Count(encoded, "-"))
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	original, err := Generate()
	require.NoError(t, err)

	decoded, err := Decode(original.Encode())
	require.NoError(t, err)

	assert.Equal(t, original.SessionID, decoded.SessionID)
	assert.Equal(t, original.Timestamp, decoded.Timestamp)
	assert.Equal(t, original.PIN, decoded.PIN)
}

func TestDecodeToleratesWhitespace(t *testing.T) {
	code, err := Generate()
	require.NoError(t, err)

	withSpaces := strings.ReplaceAll(code.Encode(), "-", " - ")
	decoded, err := Decode(withSpaces)
	require.NoError(t, err)
	assert.Equal(t, code.SessionID, decoded.SessionID)
}

func TestValidity(t *testing.T) {
	code, err := GenerateWithTTL(60 * time.Second)
	require.NoError(t, err)
	assert.True(t, code.IsValid())
	assert.LessOrEqual(t, code.RemainingSecs(), int64(60))
}

func TestVerifyPIN(t *testing.T) {
	code, err := Generate()
	require.NoError(t, err)
	assert.True(t, code.VerifyPIN(code.PIN))
	assert.False(t, code.VerifyPIN((code.PIN+1)%10000))
}

func TestDecodeRejectsTamperedChecksum(t *testing.T) {
	code, err := Generate()
	require.NoError(t, err)

	bytes := code.toBytes()
	bytes[0] ^= 0xFF
	_, err = fromBytes(bytes)
	assert.ErrorIs(t, err, ErrInvalidChecksum)
}

func TestSessionIDHex(t *testing.T) {
	code := ConnectionCode{SessionID: 0x123456}
	assert.Equal(t, "123456", code.SessionIDHex())
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	_, err := Decode("TOO-SHORT")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}
