package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dshills/threadgraph/assistant"
)

const chatHelp = `Commands:
  /new     start a new conversation
  /state   print the thread's checkpointed state
  /resume  continue a turn that failed
  /quit    exit`

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long:  "Reads messages from stdin and prints the assistant's replies.\n\n" + chatHelp,
	RunE: func(cmd *cobra.Command, args []string) error {
		threadID, _ := cmd.Flags().GetString("thread")
		if threadID == "" {
			threadID = uuid.NewString()
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

		return runChat(cmd, a, threadID)
	},
}

func init() {
	chatCmd.Flags().String("thread", "", "Thread id to continue (default: a new thread)")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, a *app, threadID string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	in := bufio.NewScanner(cmd.InOrStdin())
	session := assistant.NewSession(a.engine, threadID)

	fmt.Fprintf(out, "Ask about a company (e.g. \"Tell me about Apple\"). Thread %s. /help for commands.\n", threadID)
	for {
		fmt.Fprint(out, "> ")
		if !in.Scan() {
			fmt.Fprintln(out)
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(out, chatHelp)
			continue
		case "/new":
			session = assistant.NewSession(a.engine, uuid.NewString())
			fmt.Fprintf(out, "New thread %s\n", session.ThreadID())
			continue
		case "/state":
			if err := printState(ctx, out, a, session.ThreadID()); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
			continue
		case "/resume":
			reply, _, err := session.Resume(ctx)
			printReply(ctx, out, session, reply, err)
			continue
		}

		reply, _, err := session.Ask(ctx, line)
		printReply(ctx, out, session, reply, err)
	}
}

// printReply prints the reply, or the error with a hint that matches what
// the thread can still do.
func printReply(ctx context.Context, out io.Writer, session *assistant.Session, reply string, err error) {
	if err == nil {
		fmt.Fprintln(out, reply)
		return
	}
	if interrupted, ierr := session.Interrupted(ctx); ierr == nil && interrupted {
		fmt.Fprintf(out, "error: %v (use /resume to retry)\n", err)
		return
	}
	fmt.Fprintf(out, "error: %v\n", err)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
