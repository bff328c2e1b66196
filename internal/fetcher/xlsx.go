package fetcher

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/identity-trust/internal/model"
)

// ReadXLSXRecords decodes one worksheet of an in-memory workbook into
// records. sheet names the worksheet; empty selects the first one holding
// any data. The first non-blank row is the header.
func ReadXLSXRecords(data []byte, sheet string) ([]model.Record, error) {
	wb, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open workbook")
	}

	ws, err := pickSheet(wb, sheet)
	if err != nil || ws == nil {
		return nil, err
	}

	var (
		keys []string
		out  []model.Record
	)
	for _, row := range ws.Rows {
		cells := cellStrings(row)
		if blankRow(cells) {
			continue
		}
		if keys == nil {
			keys = headerKeys(cells)
			continue
		}
		if rec := rowRecord(keys, cells); len(rec) > 0 {
			out = append(out, rec)
		}
	}
	return out, nil
}

// pickSheet returns nil without error when no worksheet holds data.
func pickSheet(wb *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		ws, ok := wb.Sheet[name]
		if !ok {
			return nil, eris.Errorf("xlsx: no sheet named %q", name)
		}
		return ws, nil
	}
	for _, ws := range wb.Sheets {
		for _, row := range ws.Rows {
			if !blankRow(cellStrings(row)) {
				return ws, nil
			}
		}
	}
	return nil, nil
}

func cellStrings(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	out := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		out[i] = c.String()
	}
	return out
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
