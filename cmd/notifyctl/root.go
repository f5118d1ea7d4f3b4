package main

import (
	"cmp"
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/schedkit/pkg/admin"
)

const defaultAddr = "http://localhost:8090"

type rootOptions struct {
	addr    string
	timeout time.Duration
	asJSON  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "notifyctl",
		Short:         "Operate the notification queue",
		Long:          "notifyctl talks to the notifyd admin API to list failed jobs, replay them and schedule notifications.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.addr, "addr", cmp.Or(os.Getenv("NOTIFYCTL_ADDR"), defaultAddr), "admin API base URL (env NOTIFYCTL_ADDR)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print raw JSON")

	root.AddCommand(
		newFailedCmd(opts),
		newGetCmd(opts),
		newReplayCmd(opts),
		newEnqueueCmd(opts),
		newStatsCmd(opts),
	)
	return root
}

func (o *rootOptions) client() (*admin.Client, error) {
	return admin.NewClient(o.addr)
}

func (o *rootOptions) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.timeout)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
