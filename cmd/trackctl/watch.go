package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ecommerce-omar/tracking-api/internal/broker/messages"
)

func watchCmd(env *ctlEnv) *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow status-change notifications until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			consumer := env.f.newConsumer(env.cfg, env.statusTopic(), group, env.logger)
			defer func() { _ = consumer.Close() }()

			out := cmd.OutOrStdout()
			err := consumer.ConsumeStatusChanged(cmd.Context(), func(m messages.StatusChanged) error {
				printStatusChanged(out, m)
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&group, "group", "trackctl-watch", "kafka consumer group")
	return cmd
}

func printStatusChanged(out io.Writer, m messages.StatusChanged) {
	line := fmt.Sprintf("%s  %s  %s -> %s",
		m.ChangedAt.UTC().Format(time.RFC3339),
		color.New(color.FgCyan).Sprint(m.TrackingCode),
		m.PreviousStatus,
		statusText(m.Status),
	)
	if m.LatestEvent != nil {
		line += "  " + m.LatestEvent.Description
		if m.LatestEvent.Location != "" {
			line += " @ " + m.LatestEvent.Location
		}
	}
	fmt.Fprintln(out, line)
}
