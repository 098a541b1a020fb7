package peer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsLinkLocal(t *testing.T) {
	assert.True(t, isLinkLocal("169.254.1.5"))
	assert.False(t, isLinkLocal("192.168.1.5"))
	assert.False(t, isLinkLocal("not-an-ip"))
}

func TestNegotiatedMimeMatches(t *testing.T) {
	sdp := "v=0\r\nm=video 9 UDP/TLS/RTP/SAVPF 96\r\na=rtpmap:96 VP8/90000\r\n"
	assert.NoError(t, negotiatedMimeMatches(sdp, "video/VP8"))

	err := negotiatedMimeMatches(sdp, "video/H264")
	assert.ErrorIs(t, err, ErrCodecMismatch)
}

func TestContainsFoldCaseInsensitive(t *testing.T) {
	assert.True(t, containsFold("a=rtpmap:96 vp8/90000", "VP8"))
	assert.False(t, containsFold("a=rtpmap:96 h264/90000", "VP8"))
}
