package nat

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func udpAddr(t *testing.T, s string) *net.UDPAddr {
	t.Helper()
	addr, err := net.ResolveUDPAddr("udp4", s)
	require.NoError(t, err)
	return addr
}

func TestAddObservation(t *testing.T) {
	p := NewPredictivePunching()
	p.AddObservation(12345, udpAddr(t, "1.2.3.4:80"))
	assert.Equal(t, 1, p.HistoryLen())
}

func TestAddObservationEvictsOldest(t *testing.T) {
	p := NewPredictivePunching()
	for i := 0; i < maxPortHistory+3; i++ {
		p.AddObservation(uint16(20000+i), udpAddr(t, "1.2.3.4:80"))
	}
	assert.Equal(t, maxPortHistory, p.HistoryLen())
}

func TestClearHistory(t *testing.T) {
	p := NewPredictivePunching()
	p.AddObservation(12345, udpAddr(t, "1.2.3.4:80"))
	p.ClearHistory()
	assert.Equal(t, 0, p.HistoryLen())
}

func TestPredictNextPortsEmptyHistory(t *testing.T) {
	p := NewPredictivePunching()
	pred := p.PredictNextPorts(5000, udpAddr(t, "1.2.3.4:80"), Behavior{}, 5)
	assert.Equal(t, []uint16{5000}, pred.PredictedPorts)
	assert.Zero(t, pred.Confidence)
}

func TestPredictNextPortsFixedPatternReturnsObservedPortWithFullConfidence(t *testing.T) {
	p := NewPredictivePunching()
	p.AddObservation(33445, udpAddr(t, "1.2.3.4:80"))

	behavior := Behavior{
		Type:                  NatFullCone,
		ExternalPort:          33445,
		PortAllocationPattern: PortAllocationPattern{Kind: PatternFixed},
	}
	pred := p.PredictNextPorts(5000, udpAddr(t, "1.2.3.6:80"), behavior, 5)
	assert.Equal(t, []uint16{33445}, pred.PredictedPorts)
	assert.Equal(t, 1.0, pred.Confidence)
}

func TestPredictNextPortsSequentialIncrement(t *testing.T) {
	p := NewPredictivePunching()
	p.AddObservation(20000, udpAddr(t, "1.2.3.4:80"))
	p.AddObservation(20001, udpAddr(t, "1.2.3.5:80"))

	behavior := Behavior{
		Type:                  NatSymmetric,
		ExternalIP:            "5.6.7.8",
		ExternalPort:          20002,
		PortAllocationPattern: PortAllocationPattern{Kind: PatternSequentialIncrement, Step: 1},
	}

	pred := p.PredictNextPorts(30000, udpAddr(t, "1.2.3.6:80"), behavior, 5)
	assert.NotEmpty(t, pred.PredictedPorts)
	assert.Greater(t, pred.Confidence, 0.0)
	assert.Equal(t, []uint16{20001, 20002, 20003, 20004, 20005}, pred.PredictedPorts)
}

func TestPredictNextPortsHashBasedIsDeterministic(t *testing.T) {
	p := NewPredictivePunching()
	p.AddObservation(40000, udpAddr(t, "1.2.3.4:80"))

	behavior := Behavior{PortAllocationPattern: PortAllocationPattern{Kind: PatternHashBased}}
	target := udpAddr(t, "9.9.9.9:443")

	first := p.PredictNextPorts(5000, target, behavior, 4)
	second := p.PredictNextPorts(5000, target, behavior, 4)
	assert.Equal(t, first.PredictedPorts, second.PredictedPorts)
	assert.Len(t, first.PredictedPorts, 4)
	for _, port := range first.PredictedPorts {
		assert.GreaterOrEqual(t, port, uint16(1024))
	}
}

func TestPredictNextPortsRandomRangeStaysWithinWindow(t *testing.T) {
	p := NewPredictivePunching()
	p.AddObservation(30000, udpAddr(t, "1.2.3.4:80"))

	behavior := Behavior{ExternalPort: 30000, PortAllocationPattern: PortAllocationPattern{Kind: PatternRandom}}
	pred := p.PredictNextPorts(5000, udpAddr(t, "1.2.3.4:80"), behavior, 6)

	for _, port := range pred.PredictedPorts {
		assert.GreaterOrEqual(t, port, uint16(25000))
		assert.LessOrEqual(t, port, uint16(35000))
	}
}
