package fetcher

import (
	"context"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/identity-trust/internal/model"
)

// maxXLSXBytes bounds how much of a workbook is read into memory.
const maxXLSXBytes = 64 << 20

// DecodeRecords decodes every record in r according to format.
func DecodeRecords(ctx context.Context, r io.Reader, format Format) ([]model.Record, error) {
	switch format {
	case FormatJSON, "":
		return drain(StreamJSONRecords(ctx, r))
	case FormatJSONL:
		return drain(StreamJSONLRecords(ctx, r))
	case FormatCSV:
		return drain(StreamCSVRecords(ctx, r, 0))
	case FormatXLSX:
		data, err := io.ReadAll(io.LimitReader(r, maxXLSXBytes))
		if err != nil {
			return nil, eris.Wrap(err, "xlsx: read")
		}
		return ReadXLSXRecords(data, "")
	default:
		return nil, eris.Errorf("fetcher: unknown format %q", format)
	}
}

// headerKeys normalizes a header row into record keys. A leading byte
// order mark is dropped.
func headerKeys(header []string) []string {
	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return keys
}

// rowRecord maps one tabular row onto keys. Blank cells and cells under a
// blank or missing header are omitted.
func rowRecord(keys, row []string) model.Record {
	rec := make(model.Record, len(row))
	for i, cell := range row {
		if i >= len(keys) || keys[i] == "" {
			continue
		}
		if v := strings.TrimSpace(cell); v != "" {
			rec[keys[i]] = v
		}
	}
	return rec
}

// drain collects a decoder's output, returning the first error.
func drain[T any](outCh <-chan T, errCh <-chan error) ([]T, error) {
	var out []T
	for v := range outCh {
		out = append(out, v)
	}
	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
