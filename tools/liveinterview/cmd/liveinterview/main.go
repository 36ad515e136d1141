package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/candorlabs/liveinterview/runtime/logger"
	"github.com/candorlabs/liveinterview/runtime/version"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "liveinterview",
		Short:         "Live interview streaming client",
		Version:       version.Get(),
		SilenceUsage:  true,
		SilenceErrors: false,
		Long: `liveinterview streams microphone audio and camera stills to an interview
backend, plays the interviewer's audio and prints the live transcript.

Settings come from the YAML file given by --config, overridden by
LIVEINTERVIEW_* environment variables and then by flags. A .env file in the
working directory is loaded first when present.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				fmt.Fprintf(os.Stderr, "Warning: could not load .env: %v\n", err)
			}
			if cmd.Flags().Changed("verbose") {
				verbose, _ := cmd.Flags().GetBool("verbose")
				logger.SetVerbose(verbose)
			}
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "Configuration file path")
	root.PersistentFlags().String("store", "", "Resumption store: file, redis or memory")
	root.PersistentFlags().String("redis-addr", "", "Redis address for the redis resumption store")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	root.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	root.SetVersionTemplate(version.Info("liveinterview") + "\n")
	root.AddCommand(newRunCmd(), newHandleCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Error already printed by cobra
		os.Exit(1)
	}
}
