// Package spreadsheet writes the weekly export workbook and reads uploaded
// workbooks back into records.
package spreadsheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"ressarcimento/internal/core"
)

// SheetName is the single sheet of every exported workbook.
const SheetName = "Ressarcimentos"

// ContentType is the MIME type of an xlsx workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DefaultPrefix is used by Filename when the prefix is empty.
const DefaultPrefix = "ressarcimento_clubes"

var exportHeader = []string{"DATA", "ID CLUBE", "NOME CLUBE", "VALOR", "RESPONSÁVEL"}

var columnWidths = map[string]float64{
	"A": 12,
	"B": 10,
	"C": 32,
	"D": 14,
	"E": 24,
}

// Filename is <prefix>_<start dd-mm> a <end dd-mm>.xlsx.
func Filename(prefix string, w core.Window) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf("%s_%s a %s.xlsx", prefix, w.Start.Format("02-01"), w.End.Format("02-01"))
}

// WriteWeekly writes the summary's records as a one-sheet workbook with a
// styled header, fixed widths, date cells and currency formatted amounts,
// followed by a total row.
func WriteWeekly(w io.Writer, s core.WeeklySummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	st, err := newStyles(f)
	if err != nil {
		return err
	}

	for i, h := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := f.SetCellStyle(SheetName, "A1", "E1", st.header); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	for col, width := range columnWidths {
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return fmt.Errorf("column width %s: %w", col, err)
		}
	}

	row := 2
	for _, r := range s.Records {
		values := []interface{}{
			r.Date.Time,
			r.ClubID,
			r.ClubName,
			r.Amount.InexactFloat64(),
			r.Responsible,
		}
		if err := writeRow(f, row, values); err != nil {
			return err
		}
		row++
	}
	last := row - 1

	if last >= 2 {
		if err := f.SetCellStyle(SheetName, "A2", fmt.Sprintf("A%d", last), st.date); err != nil {
			return fmt.Errorf("style dates: %w", err)
		}
		if err := f.SetCellStyle(SheetName, "D2", fmt.Sprintf("D%d", last), st.currency); err != nil {
			return fmt.Errorf("style amounts: %w", err)
		}
	}

	if err := writeRow(f, row, []interface{}{"TOTAL", nil, nil, s.Total.InexactFloat64(), nil}); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("E%d", row), st.totalLabel); err != nil {
		return fmt.Errorf("style total: %w", err)
	}
	if err := f.SetCellStyle(SheetName, fmt.Sprintf("D%d", row), fmt.Sprintf("D%d", row), st.total); err != nil {
		return fmt.Errorf("style total: %w", err)
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, row int, values []interface{}) error {
	for i, v := range values {
		if v == nil {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		if err := f.SetCellValue(SheetName, cell, v); err != nil {
			return fmt.Errorf("write %s: %w", cell, err)
		}
	}
	return nil
}

type styles struct {
	header, date, currency, totalLabel, total int
}

func newStyles(f *excelize.File) (styles, error) {
	var st styles
	var err error

	dateFmt := "dd/mm/yyyy"
	currencyFmt := `"R$" #,##0.00`
	border := []excelize.Border{
		{Type: "bottom", Color: "#1F4E78", Style: 1},
	}

	if st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1F4E78"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	}); err != nil {
		return st, fmt.Errorf("header style: %w", err)
	}
	if st.date, err = f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt}); err != nil {
		return st, fmt.Errorf("date style: %w", err)
	}
	if st.currency, err = f.NewStyle(&excelize.Style{CustomNumFmt: &currencyFmt}); err != nil {
		return st, fmt.Errorf("currency style: %w", err)
	}
	if st.totalLabel, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return st, fmt.Errorf("total style: %w", err)
	}
	if st.total, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, CustomNumFmt: &currencyFmt}); err != nil {
		return st, fmt.Errorf("total style: %w", err)
	}
	return st, nil
}
