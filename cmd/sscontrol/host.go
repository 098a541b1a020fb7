package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pion/webrtc/v4"
	"github.com/spf13/cobra"

	"github.com/sscontrol/agent/internal/capture"
	"github.com/sscontrol/agent/internal/codec"
	"github.com/sscontrol/agent/internal/config"
	"github.com/sscontrol/agent/internal/inject"
	"github.com/sscontrol/agent/internal/logging"
	"github.com/sscontrol/agent/internal/nat"
	"github.com/sscontrol/agent/internal/orchestrator"
	"github.com/sscontrol/agent/internal/pairing"
	"github.com/sscontrol/agent/internal/peer"
	"github.com/sscontrol/agent/internal/signaling"
)

var (
	hostPort   int
	hostTunnel bool
	hostNoPin  bool
)

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Capture this display and serve it to WebRTC viewers",
	Run: func(cmd *cobra.Command, args []string) {
		runHost()
	},
}

func init() {
	hostCmd.Flags().IntVar(&hostPort, "port", 0, "override server.listen_addr's port")
	hostCmd.Flags().BoolVar(&hostTunnel, "tunnel", false, "print a pairing URL instead of requiring a pre-shared connection code")
	hostCmd.Flags().BoolVar(&hostNoPin, "no-pin", false, "do not print the PIN line after the connection code (testing only)")
}

// viewerConn is the host-side bookkeeping for one in-flight or live WebRTC
// viewer: its peer session and, once negotiated, its input injector.
type viewerConn struct {
	session  *peer.Session
	injector inject.Injector
}

// hostState bundles everything handleSignalingEvents/handleOffer need,
// avoiding a long parameter list threaded through every call.
type hostState struct {
	cfg     *config.Config
	server  *signaling.Server
	orch    *orchestrator.Orchestrator
	source  capture.Source
	localIP string

	mu      sync.Mutex
	viewers map[string]*viewerConn
}

func runHost() {
	cfg := loadConfig()
	initLogging(cfg)

	if hostPort != 0 {
		cfg.Server.ListenAddr = fmt.Sprintf("0.0.0.0:%d", hostPort)
	}

	source, err := capture.New(capture.Config{DisplayIndex: cfg.Capture.DisplayIndex})
	if err != nil {
		log.Error("capture init failed", "error", err)
		os.Exit(1)
	}

	orch, err := orchestrator.New(orchestrator.Config{
		FPS:         cfg.Capture.FPS,
		Codec:       codec.Codec(cfg.WebRTC.Codec),
		BitrateKbps: cfg.WebRTC.BitrateKbps,
	}, source)
	if err != nil {
		log.Error("orchestrator init failed", "error", err)
		os.Exit(1)
	}

	localIP, err := nat.LocalIPv4()
	if err != nil {
		log.Warn("could not determine local IPv4, NAT-1:1 override disabled", "error", err)
	}

	server := signaling.NewServer(cfg.Server.ListenAddr, cfg.Security.APIKey)
	if err := server.Start(); err != nil {
		log.Error("signaling server failed to start", "error", err)
		os.Exit(1)
	}

	printConnectionInfo(cfg, localIP)

	hs := &hostState{
		cfg: cfg, server: server, orch: orch, source: source, localIP: localIP,
		viewers: make(map[string]*viewerConn),
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down")
		cancel()
	}()

	go hs.handleSignalingEvents(ctx)

	if err := orch.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("orchestrator stopped unexpectedly", "error", err)
	}

	server.Stop()
	hs.mu.Lock()
	for _, v := range hs.viewers {
		if v.injector != nil {
			v.injector.Close()
		}
	}
	hs.mu.Unlock()
	logging.StopShipper()
}

func printConnectionInfo(cfg *config.Config, localIP string) {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "sscontrol-host"
	}

	if hostTunnel {
		id, err := pairing.NewIdentity(hostname)
		if err != nil {
			log.Warn("failed to build pairing identity", "error", err)
			return
		}
		code, err := pairing.Generate()
		if err != nil {
			log.Warn("failed to generate connection code", "error", err)
			return
		}
		fmt.Printf("Pairing URL: %s\n", id.BuildURL(code))
		return
	}

	code, err := pairing.Generate()
	if err != nil {
		log.Warn("failed to generate connection code", "error", err)
		return
	}
	fmt.Printf("Connection code: %s\n", code.Encode())
	if !hostNoPin {
		fmt.Printf("PIN: %04d\n", code.PIN)
	}
	if localIP != "" {
		fmt.Printf("Local address: %s\n", localIP)
	}
	fmt.Printf("Listening on %s\n", cfg.Server.ListenAddr)
}

// handleSignalingEvents drains messages the embedded signaling fabric
// addresses to the host (offers from new viewers, trickled ICE
// candidates) and wires each negotiated session into the orchestrator and
// input injector.
func (hs *hostState) handleSignalingEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-hs.server.HostEvents():
			switch ev.Env.Type {
			case signaling.KindOffer:
				hs.handleOffer(ev)
			case signaling.KindIce:
				hs.mu.Lock()
				v, ok := hs.viewers[ev.From]
				hs.mu.Unlock()
				if ok {
					if err := v.session.AddICECandidate(ev.Env.Candidate, ev.Env.SDPMid, ev.Env.SDPMLineIndex); err != nil {
						log.Warn("add ICE candidate failed", "peer", ev.From, "error", err)
					}
				}
			}
		}
	}
}

func (hs *hostState) handleOffer(ev signaling.HostEvent) {
	negotiated := codec.Codec(hs.cfg.WebRTC.Codec)
	plog := logging.WithPeer(log, ev.From, string(negotiated))

	sess, err := peer.NewSession(ev.From, peer.Config{
		Codec:       negotiated,
		EnableIPv6:  hs.cfg.WebRTC.EnableIPv6,
		LocalIPv4:   hs.localIP,
		DataChannel: hs.cfg.WebRTC.DataChannel,
	})
	if err != nil {
		plog.Warn("new peer session failed", "error", err)
		return
	}

	sess.OnICECandidate(func(candidate, sdpMid string, sdpMLineIndex int) {
		hs.server.SendToPeer(ev.From, signaling.SignalEnvelope{
			Type: signaling.KindIce, From: signaling.HostPeerID, To: ev.From,
			Candidate: candidate, SDPMid: sdpMid, SDPMLineIndex: sdpMLineIndex,
		})
	})

	vc := &viewerConn{session: sess}
	if hs.cfg.WebRTC.DataChannel {
		injector, injErr := inject.New(hs.source.Width(), hs.source.Height())
		if injErr != nil {
			plog.Warn("input injector unavailable for this viewer", "error", injErr)
		} else {
			vc.injector = injector
			sess.OnDataMessage(func(data []byte) {
				event, decErr := inject.DecodeEvent(data)
				if decErr != nil {
					plog.Warn("bad input event", "error", decErr)
					return
				}
				if handleErr := injector.Handle(event); handleErr != nil {
					plog.Warn("input injection failed", "error", handleErr)
				}
			})
		}
	}

	answer, err := sess.HandleOffer(ev.Env.SDP)
	if err != nil {
		plog.Warn("handle offer failed", "error", err)
		sess.Close()
		return
	}

	hs.mu.Lock()
	hs.viewers[ev.From] = vc
	hs.mu.Unlock()

	hs.orch.AddViewer(ev.From, sess, negotiated)

	sess.OnStateChange(func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateClosed, webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateDisconnected:
			hs.mu.Lock()
			delete(hs.viewers, ev.From)
			hs.mu.Unlock()
			hs.orch.RemoveViewer(ev.From)
			if vc.injector != nil {
				vc.injector.Close()
			}
		}
	})

	hs.server.SendToPeer(ev.From, signaling.SignalEnvelope{
		Type: signaling.KindAnswer, From: signaling.HostPeerID, To: ev.From, SDP: answer,
	})
}
