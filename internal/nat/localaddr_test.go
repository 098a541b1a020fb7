package nat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalIPv4DoesNotError(t *testing.T) {
	ip, err := LocalIPv4()
	require.NoError(t, err)
	if ip != "" {
		assert.NotContains(t, ip, "127.0.0.1")
	}
}

func TestLocalIPv4AddrsDoesNotError(t *testing.T) {
	addrs, err := LocalIPv4Addrs()
	require.NoError(t, err)
	for _, a := range addrs {
		assert.NotEqual(t, "127.0.0.1", a)
	}
}
