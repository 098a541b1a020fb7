// Package quality implements the Quality Controller: a rule-based
// adaptive bitrate controller, a static-scene detector, and a
// cursor-centered region-of-interest analyzer.
package quality

import (
	"math"

	"github.com/sscontrol/agent/internal/media"
)

const historyCapacity = 10

// ABRConfig parameterizes the rule thresholds. Zero-value fields are
// replaced by DefaultABRConfig's defaults in NewABR.
type ABRConfig struct {
	HiLatencyMs  float64
	HiLossFrac   float64
	LoBandwidthMbps float64
	HiBandwidthMbps float64
	Step         float64
	MinKbps      int
	MaxKbps      int
}

// DefaultABRConfig returns spec defaults: 100ms/5%/1Mbps/10Mbps/step
// 0.1/500-8000 kbps.
func DefaultABRConfig() ABRConfig {
	return ABRConfig{
		HiLatencyMs:     100,
		HiLossFrac:      0.05,
		LoBandwidthMbps: 1,
		HiBandwidthMbps: 10,
		Step:            0.1,
		MinKbps:         500,
		MaxKbps:         8000,
	}
}

// ABR is the rule-based adaptive bitrate controller. It keeps a bounded
// ring of recent NetworkState samples and recomputes the bitrate target on
// every Update by applying a fixed ordered rule set.
type ABR struct {
	cfg     ABRConfig
	history []media.NetworkState
	target  int
}

// NewABR constructs an ABR seeded at initialKbps, clamped to [min, max].
func NewABR(cfg ABRConfig, initialKbps int) *ABR {
	cfg = applyABRDefaults(cfg)
	if initialKbps < cfg.MinKbps {
		initialKbps = cfg.MinKbps
	}
	if initialKbps > cfg.MaxKbps {
		initialKbps = cfg.MaxKbps
	}
	return &ABR{cfg: cfg, target: initialKbps}
}

func applyABRDefaults(cfg ABRConfig) ABRConfig {
	def := DefaultABRConfig()
	if cfg.HiLatencyMs == 0 {
		cfg.HiLatencyMs = def.HiLatencyMs
	}
	if cfg.HiLossFrac == 0 {
		cfg.HiLossFrac = def.HiLossFrac
	}
	if cfg.LoBandwidthMbps == 0 {
		cfg.LoBandwidthMbps = def.LoBandwidthMbps
	}
	if cfg.HiBandwidthMbps == 0 {
		cfg.HiBandwidthMbps = def.HiBandwidthMbps
	}
	if cfg.Step == 0 {
		cfg.Step = def.Step
	}
	if cfg.MinKbps == 0 {
		cfg.MinKbps = def.MinKbps
	}
	if cfg.MaxKbps == 0 {
		cfg.MaxKbps = def.MaxKbps
	}
	return cfg
}

// Update folds in one NetworkState sample and recomputes the target.
// Rules apply in a fixed order, each multiplying or clamping the current
// target; the result is always clamped to [min, max].
func (a *ABR) Update(state media.NetworkState) int {
	a.history = append(a.history, state)
	if len(a.history) > historyCapacity {
		a.history = a.history[len(a.history)-historyCapacity:]
	}

	target := float64(a.target)
	latencyMs := float64(state.RTT.Milliseconds())
	lossFrac := state.PacketLoss
	bwMbps := state.BandwidthMbps
	step := a.cfg.Step

	switch {
	case latencyMs > a.cfg.HiLatencyMs:
		target *= 1 - step
	case latencyMs < a.cfg.HiLatencyMs*0.5:
		target *= 1 + step*0.5
	}

	if lossFrac > a.cfg.HiLossFrac {
		target *= 1 - step*2
	}

	if bwMbps < a.cfg.LoBandwidthMbps {
		clamp := bwMbps * 1000 * 0.8
		if target > clamp {
			target = clamp
		}
	} else if bwMbps > a.cfg.HiBandwidthMbps {
		target *= 1 + step
	}

	if a.bandwidthCV() > 0.3 {
		target *= 0.8
	}

	a.target = clampKbps(int(target), a.cfg.MinKbps, a.cfg.MaxKbps)
	return a.target
}

// bandwidthCV returns the coefficient of variation (stddev/mean) of the
// bandwidth samples currently in history.
func (a *ABR) bandwidthCV() float64 {
	if len(a.history) < 2 {
		return 0
	}
	var sum float64
	for _, s := range a.history {
		sum += s.BandwidthMbps
	}
	mean := sum / float64(len(a.history))
	if mean == 0 {
		return 0
	}
	var variance float64
	for _, s := range a.history {
		d := s.BandwidthMbps - mean
		variance += d * d
	}
	variance /= float64(len(a.history))
	return math.Sqrt(variance) / mean
}

func clampKbps(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// TargetKbps reports the current bitrate target.
func (a *ABR) TargetKbps() int { return a.target }
