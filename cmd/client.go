package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"netmon-dashboard/internal/aggregate"
	"netmon-dashboard/internal/backend"
	"netmon-dashboard/internal/monitoring"
	"netmon-dashboard/internal/reports"
	"netmon-dashboard/pkg/config"
	"netmon-dashboard/pkg/models"
)

var errNotLoggedIn = errors.New("not logged in, run `netmon login` first")

// withOrchestrator runs fn against a fully wired orchestrator and closes it
// afterwards
func withOrchestrator(cmd *cobra.Command, cfg *config.Config, fn func(ctx context.Context, o *monitoring.Orchestrator) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	o, err := buildOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}
	runErr := fn(ctx, o)
	if err := o.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return displayError(runErr)
}

// displayError turns backend failures into their banner text
func displayError(err error) error {
	var ve *backend.ValidationError
	var ae *backend.APIError
	if errors.As(err, &ve) || errors.As(err, &ae) || backend.IsUnauthorized(err) {
		return errors.New(backend.Message(err))
	}
	return err
}

func requireLogin(o *monitoring.Orchestrator) error {
	if !o.GetStore().Authenticated() {
		return errNotLoggedIn
	}
	return nil
}

func newLoginCmd(cfg *config.Config) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOrchestrator(cmd, cfg, func(ctx context.Context, o *monitoring.Orchestrator) error {
				user, err := o.Login(ctx, username, password)
				if err != nil {
					return err
				}
				if user != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", user.Username, user.Role)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Logged in")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	return cmd
}

func newLogoutCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the persisted session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOrchestrator(cmd, cfg, func(ctx context.Context, o *monitoring.Orchestrator) error {
				if err := o.Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
}

func newStatusCmd(cfg *config.Config) *cobra.Command {
	var level string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Refresh devices and alerts and print the dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOrchestrator(cmd, cfg, func(ctx context.Context, o *monitoring.Orchestrator) error {
				if err := requireLogin(o); err != nil {
					return err
				}
				if _, err := o.RunRefresh(ctx); err != nil {
					return err
				}
				if _, err := o.GetAlertManager().Sync(ctx); err != nil {
					return err
				}
				items, err := o.GetAlertManager().List(level, 0)
				if err != nil {
					return err
				}
				printStatus(cmd.OutOrStdout(), o.Dashboard(), o.GetDeviceManager().List(), items)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&level, "level", "all", "alert filter: all, critical, warning or info")
	return cmd
}

func printStatus(out io.Writer, d monitoring.Dashboard, devices []models.Device, items []monitoring.AlertItem) {
	fmt.Fprintf(out, "System health: %s\n", d.Alerts.Health)
	fmt.Fprintf(out, "Devices: %d total, %d up, %d down, %d warning\n",
		d.Stats.Total, d.Stats.UpCount, d.Stats.DownCount, d.Stats.WarningCount)
	fmt.Fprintf(out, "Availability: %.1f%%  Avg latency: %s  Avg packet loss: %s\n\n",
		d.Stats.Availability, d.AvgLatency, d.AvgPacketLoss)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tIP\tTYPE\tSTATUS\tLATENCY\tLOSS")
	for _, dev := range devices {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", dev.ID, dev.Name, dev.IP, dev.DeviceType, dev.Status,
			aggregate.FormatLatency(dev.LatencyMs), aggregate.FormatPacketLoss(dev.PacketLossPercent))
	}
	w.Flush()

	fmt.Fprintf(out, "\nAlerts: %d critical, %d warning, %d info\n",
		d.Alerts.Counts.Critical, d.Alerts.Counts.Warning, d.Alerts.Counts.Info)
	w = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, a := range items {
		if a.IsResolved {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.Level, a.DeviceName, a.Message, a.Age)
	}
	w.Flush()
}

func newScanCmd(cfg *config.Config) *cobra.Command {
	var timeout int
	var save bool
	cmd := &cobra.Command{
		Use:   "scan <subnet>",
		Short: "Scan a subnet for live hosts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOrchestrator(cmd, cfg, func(ctx context.Context, o *monitoring.Orchestrator) error {
				if err := requireLogin(o); err != nil {
					return err
				}
				dm := o.GetDeviceManager()
				res, err := dm.Scan(ctx, args[0], timeout)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Subnet %s: %d of %d hosts responded\n", res.Subnet, res.DiscoveredCount, res.TotalHosts)
				w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, d := range res.Devices {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.IPAddress, d.Status, aggregate.FormatLatency(d.LatencyMs), d.DeviceType)
				}
				w.Flush()

				if !save {
					return nil
				}
				for _, d := range res.Devices {
					saved, err := dm.SaveScanned(ctx, d.IPAddress)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Saved %s as %s\n", saved.IP, saved.Name)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&timeout, "timeout", 0, "per-host timeout in seconds")
	cmd.Flags().BoolVar(&save, "save", false, "add every discovered host as a device")
	return cmd
}

func newResolveCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <alert-id>",
		Short: "Resolve an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOrchestrator(cmd, cfg, func(ctx context.Context, o *monitoring.Orchestrator) error {
				if err := requireLogin(o); err != nil {
					return err
				}
				summary, err := o.GetAlertManager().Resolve(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Alert %s resolved, system health is %s\n", args[0], summary.Health)
				return nil
			})
		},
	}
}

func newReportCmd(cfg *config.Config) *cobra.Command {
	var period, format string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export a report to object storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := reports.ParsePeriod(period)
			if err != nil {
				return err
			}
			var f reports.Format
			if format != "" {
				if f, err = reports.ParseFormat(format); err != nil {
					return err
				}
			}
			return withOrchestrator(cmd, cfg, func(ctx context.Context, o *monitoring.Orchestrator) error {
				if err := requireLogin(o); err != nil {
					return err
				}
				if _, err := o.GetDeviceManager().Fetch(ctx); err != nil {
					return err
				}
				if _, err := o.GetAlertManager().Sync(ctx); err != nil {
					return err
				}
				name, err := o.RunReportExport(ctx, p, f)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Report stored as %s\n", name)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", string(reports.Daily), "daily, weekly or monthly")
	cmd.Flags().StringVar(&format, "format", "", "json or csv (defaults to REPORT_FORMAT)")
	return cmd
}
