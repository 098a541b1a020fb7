package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/sscontrol/agent/internal/signaling"
)

var (
	connectIP   string
	connectPort int
	connectURL  string
)

// connectCmd is a signaling-reachability smoke test, not a full viewer
// client: it joins the host's room over the signaling fabric and reports
// whether the host answers, without rendering any captured video.
var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Check reachability of a host's signaling fabric",
	Run: func(cmd *cobra.Command, args []string) {
		runConnect()
	},
}

func init() {
	connectCmd.Flags().StringVar(&connectIP, "ip", "", "host IPv4/hostname to connect to")
	connectCmd.Flags().IntVar(&connectPort, "port", 0, "host signaling port")
	connectCmd.Flags().StringVar(&connectURL, "url", "", "full wss:// signaling URL (overrides --ip/--port)")
}

func runConnect() {
	cfg := loadConfig()
	initLogging(cfg)

	wsURL, err := resolveConnectURL()
	if err != nil {
		fmt.Fprintf(os.Stderr, "sscontrol: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Connecting to %s...\n", wsURL)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sscontrol: dial failed: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	if cfg.Security.APIKey != "" {
		if err := authenticate(conn, cfg.Security.APIKey); err != nil {
			fmt.Fprintf(os.Stderr, "sscontrol: auth failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Authenticated.")
	}

	if err := conn.WriteJSON(signaling.SignalEnvelope{Type: signaling.KindJoin, RoomID: cfg.Server.RoomID}); err != nil {
		fmt.Fprintf(os.Stderr, "sscontrol: join failed: %v\n", err)
		os.Exit(1)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var env signaling.SignalEnvelope
	if err := conn.ReadJSON(&env); err != nil {
		fmt.Fprintf(os.Stderr, "sscontrol: no response from host: %v\n", err)
		os.Exit(1)
	}

	if env.Type != signaling.KindPeers {
		fmt.Fprintf(os.Stderr, "sscontrol: unexpected response: %s\n", env.Type)
		os.Exit(1)
	}

	hostPresent := false
	for _, p := range env.Peers {
		if p.ID == signaling.HostPeerID {
			hostPresent = true
		}
	}
	if !hostPresent {
		fmt.Println("Joined room, but no host is present.")
		os.Exit(1)
	}
	fmt.Println("Host is reachable and present in the room.")
}

func resolveConnectURL() (string, error) {
	if connectURL != "" {
		return connectURL, nil
	}
	if connectIP == "" || connectPort == 0 {
		return "", fmt.Errorf("either --url or both --ip and --port are required")
	}
	u := url.URL{Scheme: "ws", Host: fmt.Sprintf("%s:%d", connectIP, connectPort)}
	return u.String(), nil
}

func authenticate(conn *websocket.Conn, apiKey string) error {
	nonce, err := randomNonce()
	if err != nil {
		return err
	}
	ts := time.Now().Unix()
	token := signaling.Token(apiKey, "sscontrol-cli", ts, nonce)

	if err := conn.WriteJSON(signaling.SignalEnvelope{
		Type: signaling.KindAuth, DeviceID: "sscontrol-cli", APIKey: apiKey,
		Timestamp: ts, Nonce: nonce, Token: token,
	}); err != nil {
		return err
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var resp signaling.SignalEnvelope
	if err := conn.ReadJSON(&resp); err != nil {
		return err
	}
	if resp.Type != signaling.KindAuthSuccess {
		return fmt.Errorf("%s", resp.Message)
	}
	return nil
}

func randomNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
