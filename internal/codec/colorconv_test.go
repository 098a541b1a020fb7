package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRGBAToNV12WhiteFrame(t *testing.T) {
	width, height := 4, 2
	pix := make([]byte, width*height*4)
	for i := range pix {
		pix[i] = 255
	}
	nv12 := RGBAToNV12(pix, width, height, width*4)
	assert.Len(t, nv12, width*height+width*height/2)
	for _, y := range nv12[:width*height] {
		assert.Equal(t, byte(255), y)
	}
}

func TestRGBAToNV12BlackFrame(t *testing.T) {
	width, height := 2, 2
	pix := make([]byte, width*height*4)
	for i := 3; i < len(pix); i += 4 {
		pix[i] = 255 // alpha only, RGB stays 0
	}
	nv12 := RGBAToNV12(pix, width, height, width*4)
	for _, y := range nv12[:width*height] {
		assert.Equal(t, byte(0), y)
	}
	uv := nv12[width*height:]
	assert.Equal(t, byte(128), uv[0])
	assert.Equal(t, byte(128), uv[1])
}

func TestRGBAToI420PlaneSizes(t *testing.T) {
	width, height := 5, 3
	pix := make([]byte, width*height*4)
	y, u, v := RGBAToI420(pix, width, height, width*4)
	assert.Len(t, y, width*height)
	cw, ch := (width+1)/2, (height+1)/2
	assert.Len(t, u, cw*ch)
	assert.Len(t, v, cw*ch)
}
