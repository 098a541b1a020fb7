package quality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sscontrol/agent/internal/media"
)

func TestABRReductionUnderLoss(t *testing.T) {
	abr := NewABR(DefaultABRConfig(), 2000)
	target := abr.Update(media.NetworkState{
		BandwidthMbps: 10,
		RTT:           50 * time.Millisecond,
		PacketLoss:    0.10,
		Jitter:        10 * time.Millisecond,
		SampledAt:     time.Now(),
	})
	assert.Less(t, target, 2000)
	assert.GreaterOrEqual(t, target, DefaultABRConfig().MinKbps)
}

func TestABRAlwaysWithinBounds(t *testing.T) {
	cfg := DefaultABRConfig()
	abr := NewABR(cfg, 2000)

	samples := []media.NetworkState{
		{BandwidthMbps: 0.1, RTT: 500 * time.Millisecond, PacketLoss: 0.5},
		{BandwidthMbps: 100, RTT: 1 * time.Millisecond, PacketLoss: 0},
		{BandwidthMbps: 5, RTT: 40 * time.Millisecond, PacketLoss: 0.01},
		{BandwidthMbps: 0.5, RTT: 300 * time.Millisecond, PacketLoss: 0.9},
	}
	for _, s := range samples {
		target := abr.Update(s)
		assert.GreaterOrEqual(t, target, cfg.MinKbps)
		assert.LessOrEqual(t, target, cfg.MaxKbps)
	}
}

func TestABRLowBandwidthClampsTo80Percent(t *testing.T) {
	abr := NewABR(DefaultABRConfig(), 6000)
	target := abr.Update(media.NetworkState{BandwidthMbps: 0.8, RTT: 10 * time.Millisecond, PacketLoss: 0})
	assert.LessOrEqual(t, target, int(0.8*1000*0.8))
}

func TestABRHighBandwidthIncreasesTarget(t *testing.T) {
	abr := NewABR(DefaultABRConfig(), 1000)
	target := abr.Update(media.NetworkState{BandwidthMbps: 20, RTT: 10 * time.Millisecond, PacketLoss: 0})
	assert.Greater(t, target, 1000)
}
