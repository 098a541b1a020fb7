package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sscontrol/agent/internal/codec"
	"github.com/sscontrol/agent/internal/nat"
)

var (
	doctorNATOnly     bool
	doctorQualityOnly bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose NAT traversal and encoder availability",
	Run: func(cmd *cobra.Command, args []string) {
		runDoctor()
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorNATOnly, "nat", false, "only run the NAT classification check")
	doctorCmd.Flags().BoolVar(&doctorQualityOnly, "quality", false, "only run the encoder availability check")
}

func runDoctor() {
	runNAT := !doctorQualityOnly
	runQuality := !doctorNATOnly

	if runNAT {
		doctorNAT()
	}
	if runQuality {
		doctorQuality()
	}
}

func doctorNAT() {
	fmt.Println("NAT traversal:")

	addrs, err := nat.LocalIPv4Addrs()
	if err != nil {
		fmt.Printf("  local addresses: error: %v\n", err)
	} else if len(addrs) == 0 {
		fmt.Println("  local addresses: none found")
	} else {
		fmt.Printf("  local addresses: %v\n", addrs)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	behavior, err := nat.NewDetector(nil).Detect(ctx)
	if err != nil {
		fmt.Printf("  classification: failed: %v\n", err)
		return
	}

	difficulty := nat.AssessDifficulty(behavior)
	fmt.Printf("  type: %s\n", behavior.Type)
	fmt.Printf("  external address: %s:%d\n", behavior.ExternalIP, behavior.ExternalPort)
	fmt.Printf("  port allocation: %v\n", behavior.PortAllocationPattern.Kind)
	fmt.Printf("  traversal difficulty: %s\n", difficulty)
	if difficulty == nat.DifficultyImpossible {
		fmt.Println("  warning: direct P2P connections are unlikely to succeed behind this NAT")
	}
}

func doctorQuality() {
	fmt.Println("Encoder availability:")
	for _, c := range []codec.Codec{codec.CodecRaw, codec.CodecVP8, codec.CodecH264} {
		enc, err := codec.New(codec.Config{Codec: c, Width: 1280, Height: 720, BitrateKbps: 2000, FPS: 30})
		if err != nil {
			fmt.Printf("  %-6s unavailable: %v\n", c, err)
			continue
		}
		hw := ""
		if enc.IsHardware() {
			hw = " (hardware)"
		}
		if codec.Codec(enc.Name()) != c && c != codec.CodecRaw {
			fmt.Printf("  %-6s falls back to %s%s\n", c, enc.Name(), hw)
		} else {
			fmt.Printf("  %-6s available: %s%s\n", c, enc.Name(), hw)
		}
		enc.Close()
	}
}
