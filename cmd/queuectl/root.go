package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/notifyhub/jobqueue/internal/client"
)

type outputFormat string

const (
	outputAuto  outputFormat = "auto"
	outputTable outputFormat = "table"
	outputJSON  outputFormat = "json"
)

// commandContext carries the persistent flags to every subcommand.
type commandContext struct {
	server        string
	timeout       time.Duration
	output        string
	correlationID string
}

func (c *commandContext) client() *client.Client {
	id := c.correlationID
	if id == "" {
		id = "queuectl-" + uuid.NewString()
	}
	return client.New(c.server, c.timeout).WithCorrelationID(id)
}

// format resolves "auto" to a table on a terminal and JSON otherwise.
func (c *commandContext) format(cmd *cobra.Command) (outputFormat, error) {
	switch f := outputFormat(c.output); f {
	case outputTable, outputJSON:
		return f, nil
	case outputAuto, "":
		if out, ok := cmd.OutOrStdout().(*os.File); ok && isatty.IsTerminal(out.Fd()) {
			return outputTable, nil
		}
		return outputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q: must be auto, table or json", c.output)
	}
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "queuectl",
		Short:         "Inspect and control a job queue server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	defaultServer := os.Getenv("QUEUECTL_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.server, "server", "s", defaultServer, "Server base URL (env QUEUECTL_SERVER)")
	rootCmd.PersistentFlags().DurationVar(&ctx.timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVarP(&ctx.output, "output", "o", string(outputAuto), "Output format: auto, table or json")
	rootCmd.PersistentFlags().StringVar(&ctx.correlationID, "correlation-id", "", "Correlation id sent with every request")

	rootCmd.AddCommand(newSubmitCommand(ctx))
	rootCmd.AddCommand(newGetCommand(ctx))
	rootCmd.AddCommand(newCancelCommand(ctx))
	rootCmd.AddCommand(newPauseCommand(ctx))
	rootCmd.AddCommand(newResumeCommand(ctx))
	rootCmd.AddCommand(newClearCommand(ctx))
	rootCmd.AddCommand(newStatsCommand(ctx))
	rootCmd.AddCommand(newOutcomesCommand(ctx))

	return rootCmd
}
