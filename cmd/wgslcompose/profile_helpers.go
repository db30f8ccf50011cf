package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"wgslcompose/internal/prof"
)

var profSession *prof.Session

// startProfiling starts the profilers named by the persistent flags.
func startProfiling(cmd *cobra.Command, _ []string) error {
	flags := cmd.Root().PersistentFlags()
	var cfg prof.Config
	var err error
	if cfg.CPU, err = flags.GetString("cpu-profile"); err != nil {
		return fmt.Errorf("failed to get cpu-profile flag: %w", err)
	}
	if cfg.Mem, err = flags.GetString("mem-profile"); err != nil {
		return fmt.Errorf("failed to get mem-profile flag: %w", err)
	}
	if cfg.Trace, err = flags.GetString("runtime-trace"); err != nil {
		return fmt.Errorf("failed to get runtime-trace flag: %w", err)
	}
	if !cfg.Enabled() {
		return nil
	}
	profSession, err = prof.Start(cfg)
	return err
}

// stopProfiling runs after the command and also on the error path in main.
func stopProfiling() {
	if err := profSession.Stop(); err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "profile: %v\n", err)
	}
}
