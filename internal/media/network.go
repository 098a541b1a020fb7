package media

import "time"

// NetworkState is a single sample of observed path quality, produced
// periodically (from RTCP receiver reports or equivalent) and consumed by
// the adaptive bitrate controller.
type NetworkState struct {
	BandwidthMbps float64
	RTT           time.Duration
	PacketLoss    float64 // 0..1
	Jitter        time.Duration
	SampledAt     time.Time
}
