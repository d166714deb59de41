package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"ressarcimento/internal/core"
)

var (
	ErrNoSheet   = errors.New("workbook has no sheets")
	ErrBadHeader = errors.New("unexpected header row")
)

// RowError reports the first row that could not be imported.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// ReadRecords parses the first sheet of an uploaded workbook. The first row
// must be the DATA, ID CLUBE, NOME CLUBE, VALOR, RESPONSÁVEL header. Blank rows
// and a trailing TOTAL row are skipped; any other bad row aborts the import.
func ReadRecords(r io.Reader) ([]core.Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return []core.Record{}, nil
	}
	if !core.HeaderMatches(rows[0]) {
		return nil, fmt.Errorf("%w: %v", ErrBadHeader, rows[0])
	}

	out := []core.Record{}
	for i, row := range rows[1:] {
		n := i + 2
		if blank(row) {
			continue
		}
		if core.NormalizeHeader(cell(row, 0)) == "TOTAL" {
			continue
		}
		rec, err := parseRow(row, numericCell(f, sheets[0], 4, n))
		if err != nil {
			return nil, &RowError{Row: n, Err: err}
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseRow(row []string, numericAmount bool) (core.Record, error) {
	date, err := parseDateCell(cell(row, 0))
	if err != nil {
		return core.Record{}, err
	}
	amount, err := parseAmountCell(cell(row, 3), numericAmount)
	if err != nil {
		return core.Record{}, fmt.Errorf("amount %q: %w", cell(row, 3), err)
	}
	rec := core.Record{
		Date:        date,
		ClubID:      normalizeID(cell(row, 1)),
		ClubName:    cell(row, 2),
		Amount:      amount,
		Responsible: cell(row, 4),
	}
	if err := rec.Validate(); err != nil {
		return core.Record{}, err
	}
	return rec, nil
}

// numericCell reports whether the cell at col, row holds a number rather than text.
func numericCell(f *excelize.File, sheet string, col, row int) bool {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return false
	}
	typ, err := f.GetCellType(sheet, name)
	if err != nil {
		return false
	}
	return typ == excelize.CellTypeNumber || typ == excelize.CellTypeUnset
}

// parseAmountCell reads a raw number cell with "." as the decimal point and
// leaves typed text such as "R$ 1.234,56" to core.ParseAmount.
func parseAmountCell(v string, numeric bool) (decimal.Decimal, error) {
	if !numeric {
		return core.ParseAmount(v)
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		return decimal.Zero, core.ErrInvalidAmount
	}
	return d.Round(2), nil
}

// parseDateCell accepts a date serial number (raw date cells) or day-first text.
func parseDateCell(v string) (core.Date, error) {
	if d, err := core.ParseDate(v); err == nil {
		return d, nil
	}
	serial, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return core.Date{}, fmt.Errorf("date %q: %w", v, core.ErrInvalidDate)
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return core.Date{}, fmt.Errorf("date %q: %w", v, core.ErrInvalidDate)
	}
	return core.DateOf(t), nil
}

// normalizeID drops the ".0" a numeric club id cell gains when read raw.
func normalizeID(v string) string {
	if strings.HasSuffix(v, ".0") {
		if _, err := strconv.Atoi(strings.TrimSuffix(v, ".0")); err == nil {
			return strings.TrimSuffix(v, ".0")
		}
	}
	return v
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
