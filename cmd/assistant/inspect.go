package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <thread>",
	Short: "Print a thread's last checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.close()

		return printState(cmd.Context(), cmd.OutOrStdout(), a, args[0])
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func printState(ctx context.Context, out io.Writer, a *app, threadID string) error {
	cp, ok, err := a.engine.Checkpoint(ctx, threadID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("thread %s has no checkpoint", threadID)
	}
	return writeJSON(out, cp)
}
