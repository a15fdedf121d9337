package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/samson/internal/processor"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant on the terminal",
	Long: `Start an interactive session on stdin/stdout. Each line is one turn;
an empty line or "exit" ends the session.`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// Keep stdout for the conversation.
	setupLogging(cfg.LogLevel, os.Stderr)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cfg, processor.Deps{})
	if err != nil {
		return err
	}
	defer a.close()

	id := a.registry.Create().ID
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "How can I help with your calendar?")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.EqualFold(line, "exit") {
			break
		}
		reply, err := a.registry.Turn(ctx, id, line)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, reply.Response)
	}
	return scanner.Err()
}
