package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/threadgraph/assistant"
	"github.com/dshills/threadgraph/graph/model"
)

// graphCmd prints the workflow as a Mermaid flowchart. With --thread the
// node that thread last completed is highlighted.
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the workflow as a Mermaid diagram",
	RunE: func(cmd *cobra.Command, args []string) error {
		threadID, _ := cmd.Flags().GetString("thread")

		if threadID == "" {
			def, err := assistant.NewWorkflow(model.Offline{}, assistant.Options{})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), def.Mermaid(""))
			return nil
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.close()

		cp, _, err := a.engine.Checkpoint(cmd.Context(), threadID)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), a.engine.Definition().Mermaid(cp.Node))
		return nil
	},
}

func init() {
	graphCmd.Flags().String("thread", "", "Highlight the last node completed by this thread")
	rootCmd.AddCommand(graphCmd)
}
