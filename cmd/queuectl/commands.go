package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/notifyhub/jobqueue/internal/client"
	"github.com/notifyhub/jobqueue/internal/domain"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		req       domain.SubmitTaskRequest
		payload   string
		batchFile string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a task, or a batch of tasks from a JSON file",
		Example: `  queuectl submit --topic invoices --payload '{"invoice":42}' --priority 5
  queuectl submit --batch tasks.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ctx.format(cmd)
			if err != nil {
				return err
			}
			c := ctx.client()

			if batchFile != "" {
				reqs, err := readBatch(cmd.InOrStdin(), batchFile)
				if err != nil {
					return err
				}
				res, err := c.SubmitBatch(cmd.Context(), reqs)
				if err != nil {
					return err
				}
				if format == outputJSON {
					return writeJSON(cmd.OutOrStdout(), res)
				}
				rows := make([][]string, 0, len(res.Accepted)+len(res.Rejected))
				for _, t := range res.Accepted {
					rows = append(rows, []string{t.ID, t.Data.Topic, strconv.Itoa(t.Priority), "accepted"})
				}
				for _, r := range res.Rejected {
					rows = append(rows, []string{r.ID, "", "", "rejected: " + r.Error})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Topic", "Priority", "Result"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			}

			if req.Topic == "" {
				return errors.New("--topic is required unless --batch is given")
			}
			if payload != "" {
				raw, err := readPayload(cmd.InOrStdin(), payload)
				if err != nil {
					return err
				}
				req.Payload = raw
			}
			task, err := c.Submit(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeTasks(cmd.OutOrStdout(), format, task)
		},
	}

	cmd.Flags().StringVar(&req.ID, "id", "", "Task id (generated when omitted)")
	cmd.Flags().StringVarP(&req.Topic, "topic", "t", "", "Task topic")
	cmd.Flags().IntVarP(&req.Priority, "priority", "p", 0, "Priority; higher runs sooner")
	cmd.Flags().StringVar(&payload, "payload", "", "JSON payload, @file to read a file, or - for stdin")
	cmd.Flags().StringVar(&batchFile, "batch", "", `JSON file with {"tasks":[...]} or an array of tasks; - for stdin`)
	return cmd
}

func newGetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ctx.format(cmd)
			if err != nil {
				return err
			}
			task, err := ctx.client().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeTasks(cmd.OutOrStdout(), format, task)
		},
	}
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "cancel ID...",
		Aliases: []string{"rm"},
		Short:   "Remove tasks from the queue",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := ctx.client()
			var errs []error
			for _, id := range args {
				if err := c.Cancel(cmd.Context(), id); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", id, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cancelled %s\n", id)
			}
			return errors.Join(errs...)
		},
	}
}

func newPauseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Stop admitting new work; running tasks finish",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, ctx, func(c *client.Client) (*domain.QueueStats, error) {
				return c.Pause(cmd.Context())
			})
		},
	}
}

func newResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume admitting work",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, ctx, func(c *client.Client) (*domain.QueueStats, error) {
				return c.Resume(cmd.Context())
			})
		},
	}
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show queue stats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, ctx, func(c *client.Client) (*domain.QueueStats, error) {
				return c.Stats(cmd.Context())
			})
		},
	}
}

func newClearCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop every pending task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("clear drops every pending task; pass --yes to confirm")
			}
			n, err := ctx.client().ClearPending(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d pending task(s)\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm dropping pending tasks")
	return cmd
}

func newOutcomesCommand(ctx *commandContext) *cobra.Command {
	var (
		q     client.OutcomeQuery
		since time.Duration
	)

	cmd := &cobra.Command{
		Use:   "outcomes",
		Short: "List finished tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ctx.format(cmd)
			if err != nil {
				return err
			}
			if since > 0 {
				q.From = time.Now().Add(-since)
			}
			page, err := ctx.client().Outcomes(cmd.Context(), q)
			if err != nil {
				return err
			}
			if format == outputJSON {
				return writeJSON(cmd.OutOrStdout(), page)
			}
			if len(page.Data) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No outcomes")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"Task", "Topic", "Status", "Attempts", "Duration", "Finished", "Error"},
				buildOutcomeRows(page.Data),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
			))
			fmt.Fprintf(cmd.OutOrStdout(), "Page %d, %d of %d outcome(s)\n", page.Page, len(page.Data), page.Total)
			return nil
		},
	}

	cmd.Flags().StringVar(&q.Status, "status", "", "Filter by status: completed or failed")
	cmd.Flags().StringVar(&q.Topic, "topic", "", "Filter by topic")
	cmd.Flags().DurationVar(&since, "since", 0, "Only outcomes finished within this duration")
	cmd.Flags().IntVar(&q.Page, "page", 1, "Page number")
	cmd.Flags().IntVar(&q.Limit, "limit", domain.DefaultListLimit, "Outcomes per page")
	return cmd
}

func runStats(cmd *cobra.Command, ctx *commandContext, fetch func(*client.Client) (*domain.QueueStats, error)) error {
	format, err := ctx.format(cmd)
	if err != nil {
		return err
	}
	s, err := fetch(ctx.client())
	if err != nil {
		return err
	}
	if format == outputJSON {
		return writeJSON(cmd.OutOrStdout(), s)
	}
	fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Metric", "Value"}, buildStatsRows(s),
		[]columnAlignment{alignLeft, alignRight}))
	return nil
}

// readSource returns the bytes named by arg: "-" is stdin, "@path" or a
// plain path is a file.
func readSource(stdin io.Reader, arg string) ([]byte, error) {
	switch {
	case arg == "-":
		return io.ReadAll(stdin)
	case len(arg) > 1 && arg[0] == '@':
		return os.ReadFile(arg[1:])
	default:
		return os.ReadFile(arg)
	}
}

func readPayload(stdin io.Reader, arg string) (json.RawMessage, error) {
	raw := []byte(arg)
	if arg == "-" || arg[0] == '@' {
		var err error
		if raw, err = readSource(stdin, arg); err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
	}
	if !json.Valid(raw) {
		return nil, errors.New("payload is not valid JSON")
	}
	return json.RawMessage(raw), nil
}

func readBatch(stdin io.Reader, arg string) ([]domain.SubmitTaskRequest, error) {
	raw, err := readSource(stdin, arg)
	if err != nil {
		return nil, fmt.Errorf("read batch: %w", err)
	}
	var wrapped domain.SubmitBatchRequest
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Tasks != nil {
		return wrapped.Tasks, nil
	}
	var list []domain.SubmitTaskRequest
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("parse batch: %w", err)
	}
	return list, nil
}
