package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dshills/threadgraph/assistant"
)

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Run a single conversation turn",
	Long: `Sends one message on a thread and prints the reply. Without --thread a new
thread is started and its id is printed to stderr. With --resume and no
message, a turn that stopped before finishing is continued.`,
	Example: `  assistant ask "Tell me about Tesla"
  assistant ask --thread 6f1c... "What about the stock?"
  assistant ask --thread 6f1c... --resume`,
	RunE: func(cmd *cobra.Command, args []string) error {
		threadID, _ := cmd.Flags().GetString("thread")
		resume, _ := cmd.Flags().GetBool("resume")
		message := strings.Join(args, " ")

		if resume && threadID == "" {
			return fmt.Errorf("--resume needs --thread")
		}
		if !resume && strings.TrimSpace(message) == "" {
			return fmt.Errorf("a message is required")
		}
		if threadID == "" {
			threadID = uuid.NewString()
			fmt.Fprintf(cmd.ErrOrStderr(), "thread: %s\n", threadID)
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

		session := assistant.NewSession(a.engine, threadID)
		var reply string
		if resume {
			reply, _, err = session.Resume(cmd.Context())
		} else {
			reply, _, err = session.Ask(cmd.Context(), message)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		return nil
	},
}

func init() {
	askCmd.Flags().String("thread", "", "Thread id of an existing conversation")
	askCmd.Flags().Bool("resume", false, "Continue an interrupted turn instead of sending a message")
	rootCmd.AddCommand(askCmd)
}
