package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	configDir string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "trajopt",
	Short: "Interplanetary maneuver plan optimizer",
	Long: `Searches launch velocity and two impulsive burns bringing a spacecraft close to a target planet,
by a genetic algorithm over point mass gravity simulations.

The configuration is read from conf.toml in --config, in $TRAJOPT_CONFIG or in the working directory.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "directory of conf.toml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "", "log level (debug, info, warn, error), overrides log.level")
	rootCmd.AddCommand(optimizeCmd, simulateCmd, ephemerisCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "[error] %s\n", err)
		os.Exit(1)
	}
}
