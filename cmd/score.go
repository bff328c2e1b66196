package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/identity-trust/internal/fetcher"
	"github.com/sells-group/identity-trust/internal/model"
	"github.com/sells-group/identity-trust/internal/scorer"
	"github.com/sells-group/identity-trust/internal/store"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score person records and print the trust breakdown",
	Long: `Score one or more person records and print the raw trust score, the
confidence score and both Digital Identity Score compositions.

Records come from --file (a path, "-" for stdin, or an http(s)/ftp URL) or
from the people table via --query.

Examples:
  # Score a JSON record from stdin
  echo '{"id":"p-1","email":"jane@acme.io","is_valid":true}' | trust-cli score

  # Score every row of a CSV export and print JSON
  trust-cli score --file people.csv --format json

  # Look up imported people by name and save the assessments
  trust-cli score --query "jane roe" --save`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("file", "-", `record source: path, "-" for stdin, or http(s)/ftp URL`)
	f.String("input-format", "", "input format: json, jsonl, csv or xlsx (default: from extension)")
	f.String("query", "", "score people from the store matching this text instead of --file")
	f.Int("limit", 10, "maximum records to resolve for --query")
	f.String("format", formatTable, "output format: table, json or yaml")
	f.Bool("save", false, "save assessments to the store")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	src, _ := cmd.Flags().GetString("file")
	inFmt, _ := cmd.Flags().GetString("input-format")
	query, _ := cmd.Flags().GetString("query")
	limit, _ := cmd.Flags().GetInt("limit")
	format, _ := cmd.Flags().GetString("format")
	save, _ := cmd.Flags().GetBool("save")

	if err := validateFormat(format, formatTable, formatJSON, formatYAML); err != nil {
		return eris.Wrap(err, "score")
	}

	env, err := initPipeline(ctx, save || query != "")
	if err != nil {
		return err
	}
	defer env.Close()

	var recs []model.Record
	if query != "" {
		recs, err = env.Store.SearchPeople(ctx, store.PeopleFilter{Query: query, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "score: search people")
		}
	} else {
		recs, err = readRecords(ctx, cmd.InOrStdin(), src, inFmt)
		if err != nil {
			return eris.Wrap(err, "score")
		}
	}
	if len(recs) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No records to score.")
		return nil
	}

	as := assessAll(env.Pipeline, recs, query)

	if save {
		if err := env.Store.SaveAssessments(ctx, as); err != nil {
			return eris.Wrap(err, "score: save")
		}
		zap.L().Info("assessments saved", zap.Int("count", len(as)))
	}

	return printScored(cmd.OutOrStdout(), format, as)
}

// readRecords resolves a --file source. stdin is the command's input so
// tests can inject it.
func readRecords(ctx context.Context, stdin io.Reader, src, inFmt string) ([]model.Record, error) {
	format, err := fetcher.ParseFormat(inFmt)
	if err != nil {
		return nil, err
	}
	opener := fetcher.NewOpener(cfg.Fetch)
	opener.Stdin = stdin
	return opener.ReadRecords(ctx, src, format)
}

func assessAll(p *scorer.Pipeline, recs []model.Record, query string) []model.Assessment {
	as := make([]model.Assessment, len(recs))
	for i, rec := range recs {
		as[i] = p.Assess(rec)
		as[i].Query = query
	}
	return as
}

func printScored(w io.Writer, format string, as []model.Assessment) error {
	if format != formatTable {
		if len(as) == 1 {
			return writeEncoded(w, format, as[0])
		}
		return writeEncoded(w, format, as)
	}
	for i, a := range as {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		formatAssessmentDetail(w, a)
	}
	return nil
}
