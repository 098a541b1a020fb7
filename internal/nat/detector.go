// Package nat implements NAT Assist: local address enumeration, offline
// NAT-type classification (no STUN server involved), and predictive port
// punching for symmetric NATs.
package nat

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sscontrol/agent/internal/logging"
)

var log = logging.L("nat")

// NatType classifies the mapping behavior a device's NAT exhibits.
type NatType int

const (
	NatOpen NatType = iota
	NatFullCone
	NatRestrictedCone
	NatPortRestrictedCone
	NatSymmetric
	NatBlocked
)

func (t NatType) String() string {
	switch t {
	case NatOpen:
		return "open"
	case NatFullCone:
		return "full-cone"
	case NatRestrictedCone:
		return "restricted-cone"
	case NatPortRestrictedCone:
		return "port-restricted-cone"
	case NatSymmetric:
		return "symmetric"
	case NatBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// PortAllocationPatternKind distinguishes how a NAT picks the external port
// for a new mapping.
type PortAllocationPatternKind int

const (
	PatternFixed PortAllocationPatternKind = iota
	PatternSequentialIncrement
	PatternRandom
	PatternHashBased
)

// PortAllocationPattern is the classified allocation behavior. Step is only
// meaningful when Kind is PatternSequentialIncrement.
type PortAllocationPattern struct {
	Kind PortAllocationPatternKind
	Step uint16
}

// TraversalDifficulty estimates how hard it will be to establish a direct
// path through this NAT.
type TraversalDifficulty int

const (
	DifficultyEasy TraversalDifficulty = iota
	DifficultyMedium
	DifficultyHard
	DifficultyImpossible
)

func (d TraversalDifficulty) String() string {
	switch d {
	case DifficultyEasy:
		return "easy"
	case DifficultyMedium:
		return "medium"
	case DifficultyHard:
		return "hard"
	case DifficultyImpossible:
		return "impossible"
	default:
		return "unknown"
	}
}

// Behavior is the outcome of a NAT classification pass.
type Behavior struct {
	Type                  NatType
	ExternalIP            string
	ExternalPort          uint16
	PortAllocationPattern PortAllocationPattern
	Hairpinning           bool
}

// Detector classifies the local NAT by probing a handful of public
// endpoints over UDP and comparing the external ports each probe reports.
// It never contacts a dedicated STUN service — the probe targets only need
// to echo back fast enough that the OS doesn't tear the mapping down, and
// the detector infers behavior from the mapping itself.
type Detector struct {
	probeEndpoints []string
	probeTimeout   time.Duration
}

// DefaultProbeEndpoints targets well-known public resolver addresses on
// ports 80 and 443, which outbound firewalls rarely block, so probes are
// unlikely to be dropped by an intermediate firewall.
var DefaultProbeEndpoints = []string{
	"1.1.1.1:80",
	"8.8.8.8:80",
	"1.0.0.1:443",
}

// NewDetector builds a Detector against the given probe endpoints. An empty
// slice falls back to DefaultProbeEndpoints.
func NewDetector(probeEndpoints []string) *Detector {
	if len(probeEndpoints) == 0 {
		probeEndpoints = DefaultProbeEndpoints
	}
	return &Detector{probeEndpoints: probeEndpoints, probeTimeout: 2 * time.Second}
}

// Detect classifies the NAT in front of this host. It binds one local UDP
// socket and reuses it for every probe, since classification depends on
// observing how a single mapping's external port evolves across targets.
func (d *Detector) Detect(ctx context.Context) (Behavior, error) {
	log.Info("starting NAT classification")

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return Behavior{}, fmt.Errorf("nat: bind probe socket: %w", err)
	}
	defer conn.Close()

	localAddr, _ := conn.LocalAddr().(*net.UDPAddr)

	firstIP, firstPort, err := d.probe(ctx, conn, d.probeEndpoints[0])
	if err != nil {
		return Behavior{}, err
	}
	if firstIP == "" {
		log.Warn("no response from first probe endpoint, assuming blocked")
		return Behavior{Type: NatBlocked, PortAllocationPattern: PortAllocationPattern{Kind: PatternFixed}}, nil
	}

	if localAddr != nil && localAddr.IP.String() == firstIP {
		log.Info("no NAT detected, public IP")
		return Behavior{
			Type:                  NatOpen,
			ExternalIP:            firstIP,
			ExternalPort:          firstPort,
			PortAllocationPattern: PortAllocationPattern{Kind: PatternFixed},
		}, nil
	}

	ports := []uint16{firstPort}
	for _, endpoint := range d.probeEndpoints[1:] {
		_, port, err := d.probe(ctx, conn, endpoint)
		if err != nil {
			return Behavior{}, err
		}
		if port != 0 {
			ports = append(ports, port)
		}
	}

	pattern := analyzePortAllocation(ports)
	natType := classifyFromPattern(pattern, ports)

	log.Info("NAT classification complete", "type", natType, "external_ip", firstIP, "external_port", firstPort, "pattern", pattern.Kind)

	return Behavior{
		Type:                  natType,
		ExternalIP:            firstIP,
		ExternalPort:          firstPort,
		PortAllocationPattern: pattern,
	}, nil
}

// probe sends a single datagram to target and returns the IP/port the
// response arrived from, or ("", 0, nil) on timeout.
func (d *Detector) probe(ctx context.Context, conn *net.UDPConn, target string) (ip string, port uint16, err error) {
	addr, err := net.ResolveUDPAddr("udp4", target)
	if err != nil {
		return "", 0, fmt.Errorf("nat: resolve probe target %s: %w", target, err)
	}
	if _, err := conn.WriteToUDP([]byte("NAT_PROBE"), addr); err != nil {
		return "", 0, fmt.Errorf("nat: send probe to %s: %w", target, err)
	}

	deadline := time.Now().Add(d.probeTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	conn.SetReadDeadline(deadline)

	buf := make([]byte, 1024)
	n, from, err := conn.ReadFromUDP(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return "", 0, nil
		}
		return "", 0, fmt.Errorf("nat: probe recv from %s: %w", target, err)
	}
	_ = n
	return from.IP.String(), uint16(from.Port), nil
}

// analyzePortAllocation classifies the allocation pattern a sequence of
// observed external ports exhibits.
func analyzePortAllocation(ports []uint16) PortAllocationPattern {
	if len(ports) < 2 {
		return PortAllocationPattern{Kind: PatternFixed}
	}

	allSame := true
	for _, p := range ports {
		if p != ports[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return PortAllocationPattern{Kind: PatternFixed}
	}

	increments := make([]int32, len(ports)-1)
	for i := 1; i < len(ports); i++ {
		increments[i-1] = int32(ports[i]) - int32(ports[i-1])
	}

	sameIncrement := true
	for _, inc := range increments {
		if inc != increments[0] {
			sameIncrement = false
			break
		}
	}
	if sameIncrement && increments[0] > 0 {
		return PortAllocationPattern{Kind: PatternSequentialIncrement, Step: uint16(increments[0])}
	}

	if variance(increments) > 100.0 {
		return PortAllocationPattern{Kind: PatternRandom}
	}
	return PortAllocationPattern{Kind: PatternHashBased}
}

func variance(values []int32) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := float64(v) - mean
		sq += d * d
	}
	return sq / float64(len(values))
}

func classifyFromPattern(pattern PortAllocationPattern, ports []uint16) NatType {
	switch pattern.Kind {
	case PatternFixed:
		return NatFullCone
	case PatternSequentialIncrement:
		consistent := true
		for i := 1; i < len(ports); i++ {
			if ports[i] != ports[i-1]+1 {
				consistent = false
				break
			}
		}
		if consistent {
			return NatPortRestrictedCone
		}
		return NatSymmetric
	default:
		return NatSymmetric
	}
}

// AssessDifficulty scores how hard traversal through behavior is expected
// to be, which governs whether predictive punching is worth attempting.
func AssessDifficulty(behavior Behavior) TraversalDifficulty {
	switch behavior.Type {
	case NatOpen, NatFullCone:
		return DifficultyEasy
	case NatRestrictedCone, NatPortRestrictedCone:
		return DifficultyMedium
	case NatSymmetric:
		if behavior.PortAllocationPattern.Kind == PatternSequentialIncrement && behavior.PortAllocationPattern.Step <= 10 {
			return DifficultyMedium
		}
		return DifficultyHard
	case NatBlocked:
		return DifficultyImpossible
	default:
		return DifficultyHard
	}
}
