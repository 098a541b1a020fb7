package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sscontrol/agent/internal/capture"
	"github.com/sscontrol/agent/internal/codec"
)

var (
	benchDuration int
	benchWidth    int
	benchHeight   int
)

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Measure sustained capture+encode throughput on this host",
	Run: func(cmd *cobra.Command, args []string) {
		runBenchmark()
	},
}

func init() {
	benchmarkCmd.Flags().IntVar(&benchDuration, "duration", 10, "benchmark duration in seconds")
	benchmarkCmd.Flags().IntVar(&benchWidth, "width", 1920, "capture width hint (ignored by sources that report their own)")
	benchmarkCmd.Flags().IntVar(&benchHeight, "height", 1080, "capture height hint (ignored by sources that report their own)")
}

func runBenchmark() {
	cfg := loadConfig()
	initLogging(cfg)

	source, err := capture.New(capture.Config{DisplayIndex: cfg.Capture.DisplayIndex})
	if err != nil {
		fmt.Printf("capture init failed: %v\n", err)
		return
	}
	if err := source.Start(); err != nil {
		fmt.Printf("capture start failed: %v\n", err)
		return
	}
	defer source.Stop()

	enc, err := codec.New(codec.Config{
		Codec: codec.Codec(cfg.WebRTC.Codec), Width: source.Width(), Height: source.Height(),
		BitrateKbps: cfg.WebRTC.BitrateKbps, FPS: cfg.Capture.FPS,
	})
	if err != nil {
		fmt.Printf("encoder init failed: %v\n", err)
		return
	}
	defer enc.Close()

	fmt.Printf("Benchmarking %dx%d capture + %s encode for %ds...\n", source.Width(), source.Height(), enc.Name(), benchDuration)

	var frames, encoded int
	var totalEncodeTime, totalBytes int64
	deadline := time.Now().Add(time.Duration(benchDuration) * time.Second)

	for time.Now().Before(deadline) {
		frame, err := source.Capture()
		if err != nil {
			continue
		}
		frames++

		start := time.Now()
		packet, err := enc.Encode(frame)
		if err != nil {
			continue
		}
		totalEncodeTime += time.Since(start).Microseconds()
		if packet != nil {
			encoded++
			totalBytes += int64(len(packet.Payload))
		}
	}

	elapsed := time.Duration(benchDuration) * time.Second
	fmt.Printf("Captured frames:   %d (%.1f fps)\n", frames, float64(frames)/elapsed.Seconds())
	fmt.Printf("Encoded packets:   %d\n", encoded)
	if encoded > 0 {
		fmt.Printf("Mean encode time:  %.2f ms\n", float64(totalEncodeTime)/float64(encoded)/1000)
		fmt.Printf("Mean bitrate:      %.0f kbps\n", float64(totalBytes*8)/1000/elapsed.Seconds())
	}
}
