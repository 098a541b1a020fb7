package main

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/cobra"

	"github.com/sscontrol/agent/internal/nat"
)

var sysinfoCmd = &cobra.Command{
	Use:   "sysinfo",
	Short: "Print host, CPU, memory, and network information",
	Run: func(cmd *cobra.Command, args []string) {
		runSysinfo()
	},
}

func runSysinfo() {
	fmt.Printf("OS:           %s/%s\n", runtime.GOOS, runtime.GOARCH)

	if info, err := host.Info(); err == nil {
		fmt.Printf("Hostname:     %s\n", info.Hostname)
		fmt.Printf("Platform:     %s %s\n", info.Platform, info.PlatformVersion)
		fmt.Printf("Uptime:       %ds\n", info.Uptime)
	}

	if counts, err := cpu.Counts(true); err == nil {
		fmt.Printf("CPU cores:    %d\n", counts)
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		fmt.Printf("CPU load:     %.1f%%\n", percents[0])
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		fmt.Printf("Memory:       %.1f GiB total, %.1f%% used\n",
			float64(vm.Total)/(1<<30), vm.UsedPercent)
	}

	addrs, err := nat.LocalIPv4Addrs()
	if err != nil {
		fmt.Printf("Local IPv4s:  error: %v\n", err)
	} else {
		fmt.Printf("Local IPv4s:  %v\n", addrs)
	}
}
