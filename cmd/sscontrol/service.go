package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage sscontrol as an OS service",
}

var serviceInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install sscontrol as an OS service",
	Run:   func(cmd *cobra.Command, args []string) { serviceNotImplemented() },
}
var serviceUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the sscontrol OS service",
	Run:   func(cmd *cobra.Command, args []string) { serviceNotImplemented() },
}
var serviceStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the sscontrol OS service",
	Run:   func(cmd *cobra.Command, args []string) { serviceNotImplemented() },
}
var serviceStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the sscontrol OS service",
	Run:   func(cmd *cobra.Command, args []string) { serviceNotImplemented() },
}
var serviceStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the sscontrol OS service's status",
	Run:   func(cmd *cobra.Command, args []string) { serviceNotImplemented() },
}

func init() {
	serviceCmd.AddCommand(serviceInstallCmd, serviceUninstallCmd, serviceStartCmd, serviceStopCmd, serviceStatusCmd)
}

// serviceNotImplemented reports that service management is out of scope:
// the agent is installed and supervised by whatever service manager the
// deployment already uses (systemd, launchd, Windows SCM), not by itself.
func serviceNotImplemented() {
	fmt.Fprintf(os.Stderr, "sscontrol: service management is not implemented on %s; use your platform's service manager\n", runtime.GOOS)
	os.Exit(1)
}
