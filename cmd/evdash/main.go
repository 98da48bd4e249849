package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"codeberg.org/mutker/evdash/internal/config"
	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = ""

func getVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	runE := func(cmd *cobra.Command, _ []string) error {
		return run(cmd, cfgPath)
	}

	root := &cobra.Command{
		Use:   "evdash",
		Short: "Simulated electric vehicle dashboard",
		Long: `evdash simulates the telemetry of a small electric vehicle and renders it
as a text dashboard. Press Enter to start or stop the vehicle.`,
		Example: `  evdash
  evdash run --auto-start --ticks 20 --seed 7
  evdash config init`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         runE,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (default searches evdash.toml)")
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the dashboard (default)",
			Args:  cobra.NoArgs,
			RunE:  runE,
		},
		newConfigCmd(),
		newVersionCmd(),
	)

	return root
}

func newConfigCmd() *cobra.Command {
	var force bool

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration as TOML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultPath()
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cfgCmd.AddCommand(initCmd)

	return cfgCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "evdash %s %s/%s\n", getVersion(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
