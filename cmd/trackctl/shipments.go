package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ecommerce-omar/tracking-api/internal/models"
)

func addCmd(env *ctlEnv) *cobra.Command {
	var channel string
	cmd := &cobra.Command{
		Use:   "add [tracking-code...]",
		Short: "Register shipments for tracking",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, closeFn, err := env.shipmentService()
			if err != nil {
				return err
			}
			defer closeFn()

			items := make([]models.ShipmentCreateInput, 0, len(args))
			for _, code := range args {
				items = append(items, models.ShipmentCreateInput{
					TrackingCode: code,
					Channel:      models.DeliveryChannel(channel),
				})
			}
			out, err := svc.Register(cmd.Context(), items)
			if err != nil {
				return errors.Wrap(err, "register shipments")
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCODE\tSTATUS\tCHANNEL")
			fmt.Fprintln(w, "--\t----\t------\t-------")
			for _, sh := range out {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", sh.ID, sh.TrackingCode, sh.Status, sh.Channel)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&channel, "channel", string(models.ChannelDelivery), "delivery channel: delivery | pickup-in-point")
	return cmd
}

func showCmd(env *ctlEnv) *cobra.Command {
	var (
		refresh bool
		history int
	)
	cmd := &cobra.Command{
		Use:   "show [tracking-code]",
		Short: "Show a shipment with its events and status history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, store, closeFn, err := env.shipmentService()
			if err != nil {
				return err
			}
			defer closeFn()

			code := models.NormalizeTrackingCode(args[0])
			get := svc.Get
			if refresh {
				get = svc.Refresh
			}
			sh, err := get(cmd.Context(), code)
			if err != nil {
				return errors.Wrapf(err, "shipment %s", code)
			}

			out := cmd.OutOrStdout()
			printShipment(out, sh)

			if history > 0 {
				changes, err := store.ListStatusChanges(cmd.Context(), sh.ID, history, 0)
				if err != nil {
					return errors.Wrap(err, "status history")
				}
				fmt.Fprintln(out)
				if len(changes) == 0 {
					fmt.Fprintln(out, "No status changes recorded.")
					return nil
				}
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "CHANGED AT\tFROM\tTO")
				for _, c := range changes {
					fmt.Fprintf(w, "%s\t%s\t%s\n", c.ChangedAt.UTC().Format(time.RFC3339), c.PreviousStatus, statusText(c.Status))
				}
				return w.Flush()
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the read cache")
	cmd.Flags().IntVar(&history, "history", 10, "number of status changes to list (0 to hide)")
	return cmd
}

func printShipment(out io.Writer, sh *models.Shipment) {
	fmt.Fprintf(out, "Shipment: %s (id %d)\n", sh.TrackingCode, sh.ID)
	fmt.Fprintf(out, "Status: %s\n", statusText(sh.Status))
	fmt.Fprintf(out, "Channel: %s\n", sh.Channel)
	if sh.ExpectedDelivery != nil {
		fmt.Fprintf(out, "Expected delivery: %s\n", sh.ExpectedDelivery.UTC().Format("2006-01-02"))
	}
	fmt.Fprintf(out, "Updated: %s\n", sh.UpdatedAt.UTC().Format(time.RFC3339))

	if len(sh.Events) == 0 {
		fmt.Fprintln(out, "\nNo events.")
		return
	}
	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OCCURRED AT\tLOCATION\tDESCRIPTION")
	for _, ev := range sh.Events {
		at := "-"
		if !ev.OccurredAt.IsZero() {
			at = ev.OccurredAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", at, ev.Location, ev.Description)
	}
	_ = w.Flush()
}

func statusText(s models.Status) string {
	switch {
	case s == models.StatusLookupError:
		return redText(string(s))
	case s.Terminal():
		return color.New(color.FgGreen).Sprint(string(s))
	default:
		return color.New(color.FgYellow).Sprint(string(s))
	}
}

func redText(s string) string {
	return color.New(color.FgRed).Sprint(s)
}
