package inject

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupKeyLettersAndDigits(t *testing.T) {
	spec, ok := lookupKey("A")
	assert.True(t, ok)
	assert.Equal(t, "a", spec.xdotool)

	spec, ok = lookupKey("7")
	assert.True(t, ok)
	assert.Equal(t, uint16('7'), spec.vk)
}

func TestLookupKeyFunctionKeys(t *testing.T) {
	spec, ok := lookupKey("f1")
	assert.True(t, ok)
	assert.Equal(t, "F1", spec.xdotool)
	assert.Equal(t, uint16(0x70), spec.vk)

	spec, ok = lookupKey("F13")
	assert.True(t, ok)
	assert.Equal(t, uint16(0x7C), spec.vk)
}

func TestLookupKeyModifiersAndRightVariants(t *testing.T) {
	_, ok := lookupKey("control")
	assert.True(t, ok)
	_, ok = lookupKey("control_right")
	assert.True(t, ok)
	_, ok = lookupKey("meta_right")
	assert.True(t, ok)
}

func TestLookupKeyUnknown(t *testing.T) {
	_, ok := lookupKey("not_a_real_key")
	assert.False(t, ok)
}

func TestClampToBounds(t *testing.T) {
	x, y := clampToBounds(0.5, 0.5, 1920, 1080)
	assert.Equal(t, 960, x)
	assert.Equal(t, 540, y)

	x, y = clampToBounds(-1, 2, 1920, 1080)
	assert.Equal(t, 0, x)
	assert.Equal(t, 1079, y)
}
