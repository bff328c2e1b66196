package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/identity-trust/internal/monitoring"
)

var statusCmd = &cobra.Command{
	Use:         "status",
	Annotations: map[string]string{modeAnnotation: "store"},
	Short:       "Summarize recent assessments and evaluate alert thresholds",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		lookback, _ := cmd.Flags().GetInt("lookback")
		format, _ := cmd.Flags().GetString("format")
		send, _ := cmd.Flags().GetBool("send-alerts")

		if err := validateFormat(format, formatTable, formatJSON, formatYAML); err != nil {
			return eris.Wrap(err, "status")
		}
		if lookback <= 0 {
			lookback = cfg.Monitoring.LookbackWindowHours
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snap, err := monitoring.NewCollector(st, cfg.Monitoring).Collect(ctx, lookback)
		if err != nil {
			return err
		}

		alerter := monitoring.NewAlerter(cfg.Monitoring)
		alerts := alerter.Evaluate(snap)
		if send && len(alerts) > 0 {
			alerter.SendAlerts(ctx, alerts)
		}

		if format == formatTable {
			formatSnapshot(cmd.OutOrStdout(), snap, alerts)
			return nil
		}
		return writeEncoded(cmd.OutOrStdout(), format, statusReport{Snapshot: snap, Alerts: alerts})
	},
}

// statusReport is the encoded form of the status command's output.
type statusReport struct {
	Snapshot *monitoring.Snapshot `json:"snapshot" yaml:"snapshot"`
	Alerts   []monitoring.Alert   `json:"alerts" yaml:"alerts"`
}

func init() {
	statusCmd.Flags().Int("lookback", 0, "window in hours (default from config)")
	statusCmd.Flags().String("format", formatTable, "output format: table, json or yaml")
	statusCmd.Flags().Bool("send-alerts", false, "deliver triggered alerts to the configured webhook")
	rootCmd.AddCommand(statusCmd)
}
