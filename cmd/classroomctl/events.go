package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	natsclient "github.com/capitalize-ai/classroom/internal/nats"
)

func newEventsCmd(a *app) *cobra.Command {
	var opts struct {
		User  string
		Limit int
	}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print a user's most recent activity events from the NATS stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Limit <= 0 {
				return errors.New("--limit must be at least 1")
			}
			if a.cfg.NATSURL == "" {
				return errors.New("NATS_URL is not set")
			}
			ctx := cmd.Context()

			nc, err := natsclient.Connect(ctx, natsclient.Config{
				URL:      a.cfg.NATSURL,
				CAFile:   a.cfg.NATSCAFile,
				CertFile: a.cfg.NATSCertFile,
				KeyFile:  a.cfg.NATSKeyFile,
				Token:    a.cfg.NATSToken,
				Name:     "classroomctl",
			}, a.log)
			if err != nil {
				return err
			}
			defer nc.Close()

			entries, err := natsclient.NewPublisher(nc).RecentActivity(ctx, opts.User, opts.Limit)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for i := range entries {
				if err := enc.Encode(&entries[i]); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.User, "user", "", "user id")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "number of most recent events to print")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
