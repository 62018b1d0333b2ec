// Package main provides an interactive preview runner for a single flow:
// it loads the flow from persistence, executes it with mocked
// integrations, and reads answers to question nodes from stdin.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/chatforge/chatforge/pkg/cmd"
	"github.com/chatforge/chatforge/pkg/log"
)

func main() {
	logger := log.WithModule("preview")

	command := &cli.Command{
		Name:                  "chatforge-preview",
		Usage:                 "Run a conversational flow in preview mode",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "flow-id",
				Usage:    "ID of the flow to preview",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "no-delay",
				Usage: "Disable the message pacing delay",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			store := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				err := store.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			return runPreview(ctx, store, previewOptions{
				flowID:  command.String("flow-id"),
				noDelay: command.Bool("no-delay"),
				input:   os.Stdin,
				output:  os.Stdout,
			})
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		logger.Error("Preview failed", "error", err)
		os.Exit(1)
	}
}
