package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/identity-trust/internal/store"
)

var assessmentsCmd = &cobra.Command{
	Use:         "assessments",
	Annotations: map[string]string{modeAnnotation: "store"},
	Aliases:     []string{"audit"},
	Short:       "Inspect saved assessments",
	Long:        "Commands for listing and viewing the assessment audit trail.",
}

// -- assessments list --

var assessmentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved assessments, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		format, _ := cmd.Flags().GetString("format")
		if err := validateFormat(format, formatTable, formatCSV, formatJSON, formatYAML); err != nil {
			return eris.Wrap(err, "assessments list")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		query, _ := cmd.Flags().GetString("query")
		recordID, _ := cmd.Flags().GetString("record")
		since, _ := cmd.Flags().GetDuration("since")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		filter := store.AssessmentFilter{
			Query:    query,
			RecordID: recordID,
			Limit:    limit,
			Offset:   offset,
		}
		if since > 0 {
			filter.Since = time.Now().Add(-since)
		}

		as, err := st.ListAssessments(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "assessments list")
		}

		if len(as) == 0 && format == formatTable {
			fmt.Fprintln(cmd.ErrOrStderr(), "No assessments found.")
			return nil
		}
		return writeAssessments(cmd.OutOrStdout(), format, as)
	},
}

// -- assessments show --

var assessmentsShowCmd = &cobra.Command{
	Use:   "show <assessment-id>",
	Short: "Show one assessment with its full breakdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, _ := cmd.Flags().GetString("format")
		if err := validateFormat(format, formatTable, formatJSON, formatYAML); err != nil {
			return eris.Wrap(err, "assessments show")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		a, err := st.GetAssessment(ctx, args[0])
		if errors.Is(err, store.ErrNotFound) {
			return eris.Errorf("assessments show: no assessment with id %s", args[0])
		}
		if err != nil {
			return eris.Wrap(err, "assessments show")
		}

		if format == formatTable {
			formatAssessmentDetail(cmd.OutOrStdout(), *a)
			return nil
		}
		return writeEncoded(cmd.OutOrStdout(), format, a)
	},
}

func init() {
	assessmentsListCmd.Flags().String("query", "", "filter by the query that produced the assessment")
	assessmentsListCmd.Flags().String("record", "", "filter by record id")
	assessmentsListCmd.Flags().Duration("since", 0, "only assessments newer than this (e.g. 24h, 168h)")
	assessmentsListCmd.Flags().Int("limit", 50, "max number of assessments to display")
	assessmentsListCmd.Flags().Int("offset", 0, "skip this many assessments")
	assessmentsListCmd.Flags().String("format", formatTable, "output format: table, csv, json or yaml")

	assessmentsShowCmd.Flags().String("format", formatTable, "output format: table, json or yaml")

	assessmentsCmd.AddCommand(assessmentsListCmd)
	assessmentsCmd.AddCommand(assessmentsShowCmd)
	rootCmd.AddCommand(assessmentsCmd)
}
