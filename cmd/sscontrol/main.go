// Command sscontrol is the headless remote-desktop agent: it captures one
// display, encodes it, and serves it to WebRTC viewers either through an
// embedded signaling fabric or a remote rendezvous, with NAT traversal
// assist and pairing-code/URL support for first-contact setup.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sscontrol/agent/internal/config"
	"github.com/sscontrol/agent/internal/logging"
)

var (
	version = "0.1.0"
	cfgFile string
)

var log = logging.L("main")

var rootCmd = &cobra.Command{
	Use:   "sscontrol",
	Short: "sscontrol remote-desktop agent",
	Long:  `sscontrol - a headless WebRTC remote-desktop agent for Windows, macOS, and Linux`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sscontrol v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/sscontrol/sscontrol.toml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(hostCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(sysinfoCmd)
	rootCmd.AddCommand(listEncodersCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(benchmarkCmd)
	rootCmd.AddCommand(serviceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads and validates cfgFile, printing a human-readable error
// and exiting non-zero on any fatal problem (missing key, invalid TOML,
// unknown encoder name), per the agent's configuration error policy.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sscontrol: configuration error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// initLogging wires structured logging from cfg.Logging. Call once after
// config.Load().
func initLogging(cfg *config.Config) {
	var output io.Writer = os.Stdout
	fallback := false

	if cfg.Logging.File != "" {
		rw, err := logging.NewRotatingWriter(cfg.Logging.File, cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file %s: %v (logging to stdout)\n", cfg.Logging.File, err)
			fallback = true
		} else {
			output = logging.TeeWriter(os.Stdout, rw)
		}
	}

	logging.Init(cfg.Logging.Format, cfg.Logging.Level, output)
	log = logging.L("main")

	if fallback {
		log.Warn("log file fallback active, logging to stdout only", "requestedFile", cfg.Logging.File)
	}

	if cfg.Logging.ShipEndpoint != "" {
		deviceID, err := os.Hostname()
		if err != nil || deviceID == "" {
			deviceID = "sscontrol-host"
		}
		logging.InitShipper(logging.ShipperConfig{
			ServerURL: cfg.Logging.ShipEndpoint,
			DeviceID:  deviceID,
			AuthToken: cfg.Security.APIKey,
			Version:   version,
			MinLevel:  cfg.Logging.Level,
		})
		log.Info("log shipping enabled", "endpoint", cfg.Logging.ShipEndpoint)
	}
}
