package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sscontrol/agent/internal/codec"
)

var listEncodersCmd = &cobra.Command{
	Use:   "list-encoders",
	Short: "List encoder backends this host can construct",
	Run: func(cmd *cobra.Command, args []string) {
		for _, c := range []codec.Codec{codec.CodecRaw, codec.CodecVP8, codec.CodecH264} {
			enc, err := codec.New(codec.Config{Codec: c, Width: 1280, Height: 720, BitrateKbps: 2000, FPS: 30})
			if err != nil {
				fmt.Printf("%-6s  unavailable: %v\n", c, err)
				continue
			}
			hw := "software"
			if enc.IsHardware() {
				hw = "hardware"
			}
			fmt.Printf("%-6s  %s (%s)\n", c, enc.Name(), hw)
			enc.Close()
		}
	},
}
