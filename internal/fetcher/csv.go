package fetcher

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/identity-trust/internal/model"
)

// csvDelimiters are the separators seen in CRM and spreadsheet exports, in
// tie-break order.
var csvDelimiters = []rune{',', ';', '\t', '|'}

// StreamCSVRecords decodes a header-led CSV export into records, one per
// data row. A zero delim is sniffed from the header line. Rows may be
// ragged; cells past the header are dropped and rows with no values are
// skipped. Both channels are closed when the input is exhausted.
func StreamCSVRecords(ctx context.Context, r io.Reader, delim rune) (<-chan model.Record, <-chan error) {
	return streamRecords(ctx, func(ctx context.Context, emit emitFunc) error {
		br := bufio.NewReader(r)
		first, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return eris.Wrap(err, "csv: read header")
		}
		if delim == 0 {
			delim = sniffDelimiter(first)
		}

		cr := csv.NewReader(io.MultiReader(strings.NewReader(first), br))
		cr.Comma = delim
		cr.FieldsPerRecord = -1
		cr.LazyQuotes = true

		var keys []string
		for n := 1; ; n++ {
			if err := ctx.Err(); err != nil {
				return eris.Wrap(err, "csv: context cancelled")
			}

			row, err := cr.Read()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return eris.Wrapf(err, "csv: record %d", n)
			}

			if keys == nil {
				keys = headerKeys(row)
				continue
			}
			if rec := rowRecord(keys, row); len(rec) > 0 {
				if err := emit(rec); err != nil {
					return eris.Wrap(err, "csv")
				}
			}
		}
	})
}

// sniffDelimiter picks the candidate separator occurring most often outside
// quotes in line, defaulting to a comma.
func sniffDelimiter(line string) rune {
	counts := make(map[rune]int, len(csvDelimiters))
	quoted := false
	for _, c := range line {
		if c == '"' {
			quoted = !quoted
			continue
		}
		if !quoted {
			counts[c]++
		}
	}

	best := ','
	for _, d := range csvDelimiters {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}
