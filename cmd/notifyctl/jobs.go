package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/schedkit/pkg/admin"
	"github.com/dmitrymomot/schedkit/pkg/queue"
)

func newFailedCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "failed",
		Short: "List permanently failed jobs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			envs, err := c.ListFailed(ctx, limit)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), envs)
			}
			return printJobs(cmd.OutOrStdout(), envs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", admin.DefaultListLimit, "maximum number of jobs")
	return cmd
}

func newGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <job-id>",
		Short: "Show a single job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job id %q: %w", args[0], err)
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			env, err := c.Get(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), env)
		},
	}
}

func newReplayCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <job-id>...",
		Short: "Enqueue fresh copies of permanently failed jobs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uuid.UUID, 0, len(args))
			for _, arg := range args {
				id, err := uuid.Parse(arg)
				if err != nil {
					return fmt.Errorf("invalid job id %q: %w", arg, err)
				}
				ids = append(ids, id)
			}

			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			out := cmd.OutOrStdout()
			for _, id := range ids {
				env, err := c.Replay(ctx, id)
				if err != nil {
					return fmt.Errorf("replay %s: %w", id, err)
				}
				fmt.Fprintf(out, "replayed %s as %s\n", id, env.ID)
			}
			return nil
		},
	}
}

func newEnqueueCmd(opts *rootOptions) *cobra.Command {
	var req admin.SubmitRequest
	var payload string
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Schedule a notification",
		Example: `  notifyctl enqueue --type welcome --target ada@example.com --payload '{"name":"ada"}'
  notifyctl enqueue --type org_invite --target bob@example.com --payload @invite.json --delay 15m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := readPayload(cmd.InOrStdin(), payload)
			if err != nil {
				return err
			}
			req.Payload = raw
			if delay > 0 {
				req.Delay = delay.String()
			}

			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			id, err := c.Submit(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar((*string)(&req.Type), "type", "", "notification type")
	f.StringVar(&req.Target, "target", "", "recipient address")
	f.StringVar(&payload, "payload", "{}", "payload JSON, @file to read a file, - for stdin")
	f.IntVar(&req.MaxAttempts, "max-attempts", 0, "attempt budget (server default when 0)")
	f.DurationVar(&delay, "delay", 0, "delay before the job becomes claimable")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show worker counters since the daemon started",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			s, err := c.Stats(ctx)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), s)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "started=%d completed=%d retried=%d failed=%d\n",
				s.Started, s.Completed, s.Retried, s.Failed)
			return nil
		},
	}
}

// readPayload resolves the --payload flag: inline JSON, @path or - for stdin.
func readPayload(stdin io.Reader, v string) ([]byte, error) {
	switch {
	case v == "-":
		return io.ReadAll(stdin)
	case strings.HasPrefix(v, "@"):
		return os.ReadFile(strings.TrimPrefix(v, "@"))
	}
	return []byte(v), nil
}

func printJobs(w io.Writer, envs []*queue.Envelope) error {
	if len(envs) == 0 {
		_, err := fmt.Fprintln(w, "no failed jobs")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tTARGET\tATTEMPTS\tFAILED AT\tLAST ERROR")
	for _, env := range envs {
		failedAt := "-"
		if env.FailedAt != nil {
			failedAt = env.FailedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			env.ID, env.Type, env.Target, env.AttemptCount, env.MaxAttempts, failedAt, truncate(env.LastError, 60))
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
