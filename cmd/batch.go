package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/identity-trust/internal/model"
	"github.com/sells-group/identity-trust/internal/monitoring"
	"github.com/sells-group/identity-trust/internal/resilience"
	"github.com/sells-group/identity-trust/internal/store"
)

// saveChunkSize bounds how many assessments go into one store transaction.
const saveChunkSize = 500

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Score a file of person records concurrently",
	Long: `Score every record in a JSON, JSONL, CSV or XLSX source and write one
row per assessment. A distribution summary is printed to stderr.

Examples:
  trust-cli batch --file people.jsonl --format csv --output scores.csv
  trust-cli batch --file https://example.com/export.json --concurrency 16 --save`,
	RunE: runBatch,
}

func init() {
	f := batchCmd.Flags()
	f.String("file", "-", `record source: path, "-" for stdin, or http(s)/ftp URL`)
	f.String("input-format", "", "input format: json, jsonl, csv or xlsx (default: from extension)")
	f.Int("limit", 0, "max number of records to score (0 = all)")
	f.Int("concurrency", 0, "records scored in parallel (default from config)")
	f.String("format", formatTable, "output format: table, csv, json or yaml")
	f.String("output", "", "output file path (default: stdout)")
	f.Bool("save", false, "save assessments to the store")

	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, _ := cmd.Flags().GetString("file")
	inFmt, _ := cmd.Flags().GetString("input-format")
	limit, _ := cmd.Flags().GetInt("limit")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")
	save, _ := cmd.Flags().GetBool("save")

	if err := validateFormat(format, formatTable, formatCSV, formatJSON, formatYAML); err != nil {
		return eris.Wrap(err, "batch")
	}
	if concurrency <= 0 {
		concurrency = cfg.Batch.MaxConcurrentRecords
	}

	env, err := initPipeline(ctx, save)
	if err != nil {
		return err
	}
	defer env.Close()

	recs, err := readRecords(ctx, cmd.InOrStdin(), src, inFmt)
	if err != nil {
		return eris.Wrap(err, "batch")
	}
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}

	log := zap.L().With(zap.String("command", "batch"))
	log.Info("scoring batch",
		zap.String("source", src),
		zap.Int("records", len(recs)),
		zap.Int("concurrency", concurrency),
	)

	start := time.Now()
	as, err := env.Pipeline.AssessBatch(ctx, recs, concurrency)
	if err != nil {
		return err
	}
	log.Info("batch scored", zap.Int("assessments", len(as)), zap.Duration("elapsed", time.Since(start)))

	if save {
		retry := resilience.FromStoreConfig(cfg.Store.RetryMaxAttempts, cfg.Store.RetryBackoffMs)
		retry.OnRetry = resilience.RetryLogger("batch", "save assessments")
		if err := saveChunked(ctx, env.Store, retry, as); err != nil {
			return err
		}
		log.Info("assessments saved", zap.Int("count", len(as)))
	}

	w, closeOut, err := openOutput(cmd.OutOrStdout(), outputPath)
	if err != nil {
		return eris.Wrap(err, "batch")
	}
	if err := writeAssessments(w, format, as); err != nil {
		_ = closeOut()
		return eris.Wrap(err, "batch: write results")
	}
	if err := closeOut(); err != nil {
		return eris.Wrap(err, "batch: close output")
	}

	printBatchSummary(cmd.ErrOrStderr(), as)
	return nil
}

// saveChunked writes assessments in bounded transactions, retrying each
// chunk on transient store errors.
func saveChunked(ctx context.Context, st store.Store, retry resilience.RetryConfig, as []model.Assessment) error {
	for start := 0; start < len(as); start += saveChunkSize {
		end := min(start+saveChunkSize, len(as))
		chunk := as[start:end]
		if err := resilience.Do(ctx, retry, func(ctx context.Context) error {
			return st.SaveAssessments(ctx, chunk)
		}); err != nil {
			return eris.Wrapf(err, "batch: save assessments %d-%d", start, end)
		}
	}
	return nil
}

func printBatchSummary(w io.Writer, as []model.Assessment) {
	if len(as) == 0 {
		_, _ = fmt.Fprintln(w, "No records scored.")
		return
	}
	snap := &monitoring.Snapshot{}
	monitoring.Fill(snap, as, cfg.Monitoring)

	_, _ = fmt.Fprintf(w, "\n--- Summary ---\n")
	_, _ = fmt.Fprintf(w, "Records scored:  %d\n", snap.Assessments)
	_, _ = fmt.Fprintf(w, "DIS option 1:    mean %.1f, median %.1f, range %.1f-%.1f\n",
		snap.DISOption1.Mean, snap.DISOption1.Median, snap.DISOption1.Min, snap.DISOption1.Max)
	_, _ = fmt.Fprintf(w, "DIS option 2:    mean %.1f, median %.1f, range %.1f-%.1f\n",
		snap.DISOption2.Mean, snap.DISOption2.Median, snap.DISOption2.Min, snap.DISOption2.Max)
	_, _ = fmt.Fprintf(w, "Confidence:      mean %.1f\n", snap.CS.Mean)
	_, _ = fmt.Fprintf(w, "Low trust:       %d (%.1f%%)\n", snap.LowTrust, snap.LowTrustRate*100)
	_, _ = fmt.Fprintf(w, "Low confidence:  %d (%.1f%%)\n", snap.LowConfidence, snap.LowConfidenceRate*100)
}
