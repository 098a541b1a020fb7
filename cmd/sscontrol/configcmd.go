package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sscontrol/agent/internal/config"
)

var configShowPath bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration path and effective settings",
	Run: func(cmd *cobra.Command, args []string) {
		runConfigCmd()
	},
}

func init() {
	configCmd.Flags().BoolVar(&configShowPath, "path", false, "print only the --config file path (or a note that the default directories are searched)")
}

func runConfigCmd() {
	if configShowPath {
		if cfgFile != "" {
			fmt.Println(cfgFile)
		} else {
			fmt.Println("(no --config given; searching default config directories)")
		}
		return
	}

	cfg := loadConfig()

	tmp, err := os.CreateTemp("", "sscontrol-config-*.toml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "sscontrol: %v\n", err)
		os.Exit(1)
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	if err := config.SaveTo(cfg, tmp.Name()); err != nil {
		fmt.Fprintf(os.Stderr, "sscontrol: render config: %v\n", err)
		os.Exit(1)
	}

	data, err := os.ReadFile(tmp.Name())
	if err != nil {
		fmt.Fprintf(os.Stderr, "sscontrol: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(string(data))
}
