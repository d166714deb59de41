package google

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"ressarcimento/internal/core"
)

// recordsToRows renders the header and one row per record.
// Amounts are written as numbers so the sheet can sum them.
func recordsToRows(records []core.Record) [][]interface{} {
	rows := make([][]interface{}, 0, len(records)+1)
	header := make([]interface{}, len(core.Columns))
	for i, c := range core.Columns {
		header[i] = c
	}
	rows = append(rows, header)
	for _, r := range records {
		rows = append(rows, []interface{}{
			r.Date.String(),
			r.ClubID,
			r.ClubName,
			r.Amount.InexactFloat64(),
			r.Responsible,
		})
	}
	return rows
}

// rowsToRecords converts a values matrix (as returned by Sheets API) into records.
// The first row is skipped when it does not start with a date. Blank rows are ignored.
func rowsToRecords(values [][]interface{}) ([]core.Record, error) {
	out := []core.Record{}
	for i, raw := range values {
		row := toStrings(raw)
		if isBlank(row) {
			continue
		}
		date, err := core.ParseDate(safeGet(row, 0))
		if err != nil {
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("row %d: date %q: %w", i+1, safeGet(row, 0), err)
		}
		amount, err := parseCellAmount(safeGetRaw(raw, 3))
		if err != nil {
			return nil, fmt.Errorf("row %d: amount %v: %w", i+1, safeGetRaw(raw, 3), err)
		}
		out = append(out, core.Record{
			Date:        date,
			ClubID:      safeGet(row, 1),
			ClubName:    safeGet(row, 2),
			Amount:      amount,
			Responsible: safeGet(row, 4),
		})
	}
	return out, nil
}

// parseCellAmount accepts numbers (UNFORMATTED_VALUE) and typed text like "R$ 1.234,56".
func parseCellAmount(v interface{}) (decimal.Decimal, error) {
	switch n := v.(type) {
	case float64:
		if n < 0 {
			return decimal.Zero, core.ErrInvalidAmount
		}
		return decimal.NewFromFloat(n).Round(2), nil
	case nil:
		return decimal.Zero, core.ErrInvalidAmount
	default:
		return core.ParseAmount(fmt.Sprint(n))
	}
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func isBlank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

func safeGetRaw(arr []interface{}, idx int) interface{} {
	if idx < 0 || idx >= len(arr) {
		return nil
	}
	return arr[idx]
}
