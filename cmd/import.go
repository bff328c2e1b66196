package main

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/identity-trust/internal/model"
	"github.com/sells-group/identity-trust/internal/resilience"
	"github.com/sells-group/identity-trust/internal/store"
)

var importCmd = &cobra.Command{
	Use:         "import",
	Annotations: map[string]string{modeAnnotation: "store"},
	Short:       "Import person records into the people table",
	Long: `Load person records from a file, stdin or URL into the store so the API
and "score --query" can resolve them by name, email, phone or id. Records
with an existing id are replaced; records without one get a new id.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		src, _ := cmd.Flags().GetString("file")
		inFmt, _ := cmd.Flags().GetString("input-format")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		recs, err := readRecords(ctx, cmd.InOrStdin(), src, inFmt)
		if err != nil {
			return eris.Wrap(err, "import")
		}

		retry := resilience.FromStoreConfig(cfg.Store.RetryMaxAttempts, cfg.Store.RetryBackoffMs)
		retry.OnRetry = resilience.RetryLogger("import", "upsert people")

		n, err := importPeople(ctx, st, retry, recs)
		if err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.Int("records", len(recs)),
			zap.Int("upserted", n),
			zap.String("source", src),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records\n", n)
		return nil
	},
}

func init() {
	importCmd.Flags().String("file", "", `record source: path, "-" for stdin, or http(s)/ftp URL (required)`)
	importCmd.Flags().String("input-format", "", "input format: json, jsonl, csv or xlsx (default: from extension)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}

// importPeople upserts recs in bounded chunks and returns the number written.
func importPeople(ctx context.Context, st store.Store, retry resilience.RetryConfig, recs []model.Record) (int, error) {
	var total int
	for start := 0; start < len(recs); start += saveChunkSize {
		end := min(start+saveChunkSize, len(recs))
		n, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (int, error) {
			return st.UpsertPeople(ctx, recs[start:end])
		})
		if err != nil {
			return total, eris.Wrapf(err, "import: upsert records %d-%d", start, end)
		}
		total += n
	}
	return total, nil
}
