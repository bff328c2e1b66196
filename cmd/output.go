package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/identity-trust/internal/model"
	"github.com/sells-group/identity-trust/internal/monitoring"
)

// Output formats accepted by --format.
const (
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func validateFormat(format string, allowed ...string) error {
	for _, f := range allowed {
		if format == f {
			return nil
		}
	}
	return eris.Errorf("--format must be one of %s (got %q)", strings.Join(allowed, ", "), format)
}

// openOutput returns stdout, or the named file when path is set. The
// returned close func is always safe to call.
func openOutput(stdout io.Writer, path string) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "create output file %s", path)
	}
	return f, f.Close, nil
}

// writeEncoded writes v as indented JSON or YAML.
func writeEncoded(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return enc.Close()
	default:
		return eris.Errorf("unsupported format %q", format)
	}
}

// writeAssessments renders a list of assessments in the requested format.
func writeAssessments(w io.Writer, format string, as []model.Assessment) error {
	switch format {
	case formatTable:
		formatAssessmentTable(w, as)
		return nil
	case formatCSV:
		return writeAssessmentCSV(w, as)
	default:
		return writeEncoded(w, format, as)
	}
}

func formatAssessmentTable(out io.Writer, as []model.Assessment) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tRECORD\tNAME\tTS_RAW\tCS\tDIS_1\tDIS_2\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t------\t----\t------\t--\t-----\t-----\t-------")

	for _, a := range as {
		created := ""
		if !a.CreatedAt.IsZero() {
			created = a.CreatedAt.Format("2006-01-02 15:04")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%.1f\t%.1f\t%.1f\t%s\n",
			truncateID(a.ID),
			a.RecordID,
			truncate(a.Name, 30),
			a.TSRaw,
			a.CS,
			a.DISOption1,
			a.DISOption2,
			created,
		)
	}
	_ = w.Flush()
}

func writeAssessmentCSV(out io.Writer, as []model.Assessment) error {
	cw := csv.NewWriter(out)

	header := []string{"id", "record_id", "name", "query", "ts_raw", "cs", "dis_option1", "dis_option2", "created_at"}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "write CSV header")
	}
	for _, a := range as {
		created := ""
		if !a.CreatedAt.IsZero() {
			created = a.CreatedAt.Format("2006-01-02T15:04:05Z07:00")
		}
		row := []string{
			a.ID,
			a.RecordID,
			a.Name,
			a.Query,
			fmt.Sprintf("%.4f", a.TSRaw),
			fmt.Sprintf("%.4f", a.CS),
			fmt.Sprintf("%.4f", a.DISOption1),
			fmt.Sprintf("%.4f", a.DISOption2),
			created,
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "write CSV row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "flush CSV")
}

// formatAssessmentDetail prints one assessment with its stage breakdown.
func formatAssessmentDetail(out io.Writer, a model.Assessment) {
	b := a.Breakdown
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if a.ID != "" {
		_, _ = fmt.Fprintf(w, "ID:\t%s\n", a.ID)
	}
	_, _ = fmt.Fprintf(w, "Record:\t%s\n", a.RecordID)
	if a.Name != "" {
		_, _ = fmt.Fprintf(w, "Name:\t%s\n", a.Name)
	}
	_, _ = fmt.Fprintf(w, "Raw trust (TS_raw):\t%.2f\n", a.TSRaw)
	_, _ = fmt.Fprintf(w, "Confidence (CS):\t%.2f\n", a.CS)
	_, _ = fmt.Fprintf(w, "DIS option 1:\t%.2f\n", a.DISOption1)
	_, _ = fmt.Fprintf(w, "DIS option 2:\t%.2f\n", a.DISOption2)
	_ = w.Flush()

	stages := []struct {
		name string
		res  model.StageResult
	}{
		{"Data quality", b.DataQuality},
		{"Source trust", b.SourceTrust},
		{"Raw trust", b.RawTrust},
		{"Confidence", b.Confidence},
	}
	for _, s := range stages {
		_, _ = fmt.Fprintf(out, "\n%s: %.2f\n", s.name, s.res.Total)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, e := range s.res.Breakdown {
			_, _ = fmt.Fprintf(w, "  %s\tweight %.3f\tscore %.2f\tweighted %.2f\n", e.Name, e.Weight, e.Score, e.WeightedScore)
		}
		_ = w.Flush()
	}

	_, _ = fmt.Fprintf(out, "\nReputation: %.2f (%d feedback entries)\n", b.Reputation.Total, len(b.Reputation.Terms))
}

// formatSnapshot prints a monitoring snapshot and any alerts it raised.
func formatSnapshot(out io.Writer, snap *monitoring.Snapshot, alerts []monitoring.Alert) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Window:\tlast %dh\n", snap.LookbackHours)
	_, _ = fmt.Fprintf(w, "Assessments:\t%d (of %d stored)\n", snap.Assessments, snap.StoredTotal)
	_, _ = fmt.Fprintf(w, "Low trust:\t%d (%.1f%%)\n", snap.LowTrust, snap.LowTrustRate*100)
	_, _ = fmt.Fprintf(w, "Low confidence:\t%d (%.1f%%)\n", snap.LowConfidence, snap.LowConfidenceRate*100)
	_, _ = fmt.Fprintf(w, "Verified records:\t%.1f%%\n", snap.VerifiedRate*100)
	_ = w.Flush()

	if snap.Assessments > 0 {
		_, _ = fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "SCORE\tMEAN\tMEDIAN\tP10\tP90\tMIN\tMAX")
		for _, row := range []struct {
			name string
			s    monitoring.ScoreSummary
		}{
			{"ts_raw", snap.TSRaw},
			{"cs", snap.CS},
			{"dis_option1", snap.DISOption1},
			{"dis_option2", snap.DISOption2},
		} {
			_, _ = fmt.Fprintf(w, "%s\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\n",
				row.name, row.s.Mean, row.s.Median, row.s.P10, row.s.P90, row.s.Min, row.s.Max)
		}
		_ = w.Flush()
	}

	if len(alerts) > 0 {
		_, _ = fmt.Fprintln(out, "\nAlerts:")
		for _, a := range alerts {
			_, _ = fmt.Fprintf(out, "  [%s] %s\n", a.Severity, a.Message)
		}
	}
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
