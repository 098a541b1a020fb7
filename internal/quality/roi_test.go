package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sscontrol/agent/internal/media"
)

func TestDefaultROIConfigClampsSize(t *testing.T) {
	cfg := DefaultROIConfig(300, 300)
	assert.Equal(t, minROISize, cfg.ROISize)

	cfg = DefaultROIConfig(6000, 6000)
	assert.Equal(t, maxROISize, cfg.ROISize)

	cfg = DefaultROIConfig(1920, 1080)
	assert.Equal(t, 360, cfg.ROISize) // min(1920,1080)/3 = 360
	assert.Equal(t, 64, cfg.TransitionWidth)
}

func TestDefaultROIConfigWidensTransitionOn2K(t *testing.T) {
	cfg := DefaultROIConfig(2560, 1440)
	assert.Equal(t, 128, cfg.TransitionWidth)
}

func TestROIAnalyzerWithoutCursorIsAllBackground(t *testing.T) {
	analyzer := NewROIAnalyzer(ROIConfig{}, 640, 480)
	pix := make([]byte, 640*480*4)
	frame, err := media.NewFrame(640, 480, 0, pix, 0)
	require.NoError(t, err)

	report := analyzer.Analyze(frame)
	assert.Equal(t, 1.0, report.BackgroundFraction)
	assert.Equal(t, 0.0, report.ROIFraction)
}

func TestROIAnalyzerReportsROIFraction(t *testing.T) {
	analyzer := NewROIAnalyzer(ROIConfig{ROISize: 100, TransitionWidth: 20, SampleStride: 1}, 640, 480)
	analyzer.SetCursor(320, 240)

	pix := make([]byte, 640*480*4)
	frame, err := media.NewFrame(640, 480, 0, pix, 0)
	require.NoError(t, err)

	report := analyzer.Analyze(frame)
	assert.Greater(t, report.ROIFraction, 0.0)
	assert.Greater(t, report.TransitionFraction, 0.0)
	sum := report.ROIFraction + report.TransitionFraction + report.BackgroundFraction
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestRegionAtClassifiesCenterAsROI(t *testing.T) {
	analyzer := NewROIAnalyzer(ROIConfig{ROISize: 100, TransitionWidth: 20}, 640, 480)
	analyzer.SetCursor(320, 240)
	assert.Equal(t, RegionROI, analyzer.RegionAt(320, 240))
	assert.Equal(t, RegionBackground, analyzer.RegionAt(0, 0))
}
