package quality

import "github.com/sscontrol/agent/internal/media"

// ROIConfig parameterizes the cursor-centered region-of-interest analyzer.
type ROIConfig struct {
	// ROISize is the side length of the square ROI region centered on the
	// cursor. Zero means NewROIAnalyzer derives it from frame dimensions:
	// clamp(min(width,height)/3, 256, 1024).
	ROISize int
	// TransitionWidth is the width of the band surrounding the ROI square
	// that blends into the background. Zero means 64, or 128 once the
	// frame is at least 2560px wide or tall (a "2K" screen).
	TransitionWidth int
	SampleStride    int
}

const (
	minROISize  = 256
	maxROISize  = 1024
	transition2K = 2560
)

// DefaultROIConfig picks ROISize and TransitionWidth from frame dimensions
// per spec: roi_size = clamp(min(w,h)/3, 256, 1024), transition_width = 64
// (128 on screens at least 2560px on a side).
func DefaultROIConfig(width, height int) ROIConfig {
	size := width
	if height < size {
		size = height
	}
	size /= 3
	if size < minROISize {
		size = minROISize
	}
	if size > maxROISize {
		size = maxROISize
	}
	transition := 64
	if width >= transition2K || height >= transition2K {
		transition = 128
	}
	return ROIConfig{ROISize: size, TransitionWidth: transition, SampleStride: 8}
}

// Region names the three concentric zones the analyzer reports on.
type Region int

const (
	RegionROI Region = iota
	RegionTransition
	RegionBackground
)

// ROIReport is the per-frame fraction of sampled pixels that fell into each
// region, given the last known cursor position.
type ROIReport struct {
	ROIFraction        float64
	TransitionFraction float64
	BackgroundFraction float64
}

// ROIAnalyzer tracks the latest cursor position (reported by the input
// layer to the sender, or synthesized from injected events when relaying)
// and classifies sampled frame pixels into ROI/transition/background bands
// around it. It is advisory by default: callers that drive a codec with
// per-macroblock QP map support can use the region boundaries it exposes to
// build one; callers without that support just log the report.
type ROIAnalyzer struct {
	cfg ROIConfig

	haveCursor bool
	cursorX    int
	cursorY    int
}

// NewROIAnalyzer constructs an analyzer. Zero fields in cfg are filled from
// DefaultROIConfig(width, height).
func NewROIAnalyzer(cfg ROIConfig, width, height int) *ROIAnalyzer {
	def := DefaultROIConfig(width, height)
	if cfg.ROISize == 0 {
		cfg.ROISize = def.ROISize
	}
	if cfg.TransitionWidth == 0 {
		cfg.TransitionWidth = def.TransitionWidth
	}
	if cfg.SampleStride == 0 {
		cfg.SampleStride = def.SampleStride
	}
	return &ROIAnalyzer{cfg: cfg}
}

// SetCursor updates the tracked cursor position in frame pixel coordinates.
func (a *ROIAnalyzer) SetCursor(x, y int) {
	a.haveCursor = true
	a.cursorX = x
	a.cursorY = y
}

// Bounds returns the ROI square and the outer transition-band boundary, in
// pixel coordinates, centered on the last known cursor position. ok is
// false if no cursor position has been reported yet.
func (a *ROIAnalyzer) Bounds() (roiMinX, roiMinY, roiMaxX, roiMaxY, bandMinX, bandMinY, bandMaxX, bandMaxY int, ok bool) {
	if !a.haveCursor {
		return 0, 0, 0, 0, 0, 0, 0, 0, false
	}
	half := a.cfg.ROISize / 2
	roiMinX, roiMinY = a.cursorX-half, a.cursorY-half
	roiMaxX, roiMaxY = a.cursorX+half, a.cursorY+half
	bandMinX, bandMinY = roiMinX-a.cfg.TransitionWidth, roiMinY-a.cfg.TransitionWidth
	bandMaxX, bandMaxY = roiMaxX+a.cfg.TransitionWidth, roiMaxY+a.cfg.TransitionWidth
	return roiMinX, roiMinY, roiMaxX, roiMaxY, bandMinX, bandMinY, bandMaxX, bandMaxY, true
}

// Analyze samples frame on a SampleStride grid and reports the fraction of
// samples landing in each of the three regions. If no cursor position is
// known yet, the whole frame counts as background.
func (a *ROIAnalyzer) Analyze(frame *media.Frame) ROIReport {
	roiMinX, roiMinY, roiMaxX, roiMaxY, bandMinX, bandMinY, bandMaxX, bandMaxY, ok := a.Bounds()

	var total, roi, transition int
	stride := a.cfg.SampleStride
	for y := 0; y < frame.Height; y += stride {
		for x := 0; x < frame.Width; x += stride {
			total++
			if !ok {
				continue
			}
			switch {
			case x >= roiMinX && x < roiMaxX && y >= roiMinY && y < roiMaxY:
				roi++
			case x >= bandMinX && x < bandMaxX && y >= bandMinY && y < bandMaxY:
				transition++
			}
		}
	}
	if total == 0 {
		return ROIReport{BackgroundFraction: 1}
	}
	roiFrac := float64(roi) / float64(total)
	transFrac := float64(transition) / float64(total)
	return ROIReport{
		ROIFraction:        roiFrac,
		TransitionFraction: transFrac,
		BackgroundFraction: 1 - roiFrac - transFrac,
	}
}

// RegionAt classifies a single pixel coordinate without re-running
// Analyze's full sampling pass. No encoder backend calls it; none of them
// applies per-region quality.
func (a *ROIAnalyzer) RegionAt(x, y int) Region {
	roiMinX, roiMinY, roiMaxX, roiMaxY, bandMinX, bandMinY, bandMaxX, bandMaxY, ok := a.Bounds()
	if !ok {
		return RegionBackground
	}
	if x >= roiMinX && x < roiMaxX && y >= roiMinY && y < roiMaxY {
		return RegionROI
	}
	if x >= bandMinX && x < bandMaxX && y >= bandMinY && y < bandMaxY {
		return RegionTransition
	}
	return RegionBackground
}
