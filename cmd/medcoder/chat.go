package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/medcoderd/internal/app"
)

func newChatCmd() *cobra.Command {
	var skipIndex bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive coding session in the terminal",
		Long: `chat starts an interactive session: each line you type is answered
with matching billing codes. Conversation history carries across turns.
Type /quit to exit.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx := cmd.Context()

			application, err := app.New(ctx, cfg, logger, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			defer application.Close()

			if !skipIndex {
				if _, err := application.Indexer.Reindex(ctx); err != nil {
					return fmt.Errorf("indexing corpus: %w", err)
				}
			}

			return chatLoop(ctx, application, cmd)
		},
	}

	cmd.Flags().BoolVar(&skipIndex, "skip-index", false, "answer from the existing index without reindexing")
	return cmd
}

func chatLoop(ctx context.Context, application *app.App, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Fprint(out, "Enter in patient description.\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		question := strings.TrimSpace(scanner.Text())
		switch {
		case question == "":
			continue
		case question == "/quit":
			return nil
		}

		result, err := application.Manager.Ask(ctx, "", question)
		if err != nil {
			// A failed turn should not end the session.
			fmt.Fprintf(out, "error: %v\n\n", err)
			continue
		}
		fmt.Fprintf(out, "%s\n\n", result.Answer)
	}
}
