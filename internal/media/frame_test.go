package media

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFrameDefaultsStride(t *testing.T) {
	pix := make([]byte, 4*2*4)
	f, err := NewFrame(4, 2, 0, pix, 1000)
	require.NoError(t, err)
	assert.Equal(t, 16, f.Stride)
}

func TestNewFrameRejectsBadDimensions(t *testing.T) {
	_, err := NewFrame(0, 2, 0, nil, 0)
	assert.ErrorIs(t, err, ErrInvalidFrame)

	_, err = NewFrame(4, 2, 0, nil, 0)
	assert.ErrorIs(t, err, ErrInvalidFrame)
}

func TestNewFrameRejectsShortStride(t *testing.T) {
	_, err := NewFrame(4, 2, 8, make([]byte, 16), 0)
	assert.True(t, errors.Is(err, ErrInvalidFrame))
}

func TestFrameAtHonorsStride(t *testing.T) {
	width, height, stride := 2, 2, 12
	pix := make([]byte, stride*height)
	pix[stride+4] = 0x11
	pix[stride+5] = 0x22
	pix[stride+6] = 0x33
	pix[stride+7] = 0x44

	f, err := NewFrame(width, height, stride, pix, 0)
	require.NoError(t, err)

	r, g, b, a := f.At(1, 1)
	assert.Equal(t, byte(0x11), r)
	assert.Equal(t, byte(0x22), g)
	assert.Equal(t, byte(0x33), b)
	assert.Equal(t, byte(0x44), a)
}
