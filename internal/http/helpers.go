package http

import (
	"strings"
	"time"

	"ressarcimento/internal/core"
	"ressarcimento/internal/ledger"
	"ressarcimento/internal/spreadsheet"
)

// sanitizeInput removes control characters except tab, newline and carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

type recordView struct {
	Index       int
	Date        string
	ClubID      string
	ClubName    string
	Amount      string
	Responsible string
}

type clubView struct {
	Name   string
	Amount string
}

type weekView struct {
	Date          string
	Start         string
	End           string
	Prev          string
	Next          string
	Records       []recordView
	ByClub        []clubView
	Total         string
	Count         int
	DistinctClubs int
	Empty         bool
	Filename      string
}

type loadView struct {
	Failed bool
	Status string
	Reason string
}

type pageData struct {
	Today   string
	Load    loadView
	Records []recordView
	Week    weekView
}

func newRecordView(i int, r core.Record) recordView {
	return recordView{
		Index:       i,
		Date:        r.Date.String(),
		ClubID:      r.ClubID,
		ClubName:    r.ClubName,
		Amount:      core.FormatReais(r.Amount),
		Responsible: r.Responsible,
	}
}

func newRecordViews(records []core.Record) []recordView {
	out := make([]recordView, len(records))
	for i, r := range records {
		out[i] = newRecordView(i, r)
	}
	return out
}

func newWeekView(day time.Time, s core.WeeklySummary, exportPrefix string) weekView {
	v := weekView{
		Date:          core.DateOf(day).ISO(),
		Start:         s.Window.Start.String(),
		End:           s.Window.End.String(),
		Prev:          s.Window.Start.AddDays(-7).ISO(),
		Next:          s.Window.Start.AddDays(7).ISO(),
		Records:       newRecordViews(s.Records),
		Total:         core.FormatReais(s.Total),
		Count:         s.Count,
		DistinctClubs: s.DistinctClubs,
		Empty:         s.Empty(),
	}
	for _, c := range s.ByClub {
		v.ByClub = append(v.ByClub, clubView{Name: c.Name, Amount: core.FormatReais(c.Amount)})
	}
	if !v.Empty {
		v.Filename = spreadsheet.Filename(exportPrefix, s.Window)
	}
	return v
}

func newLoadView(res ledger.LoadResult) loadView {
	v := loadView{Failed: res.Failed(), Status: res.Status.String()}
	if res.Err != nil {
		v.Reason = res.Err.Error()
	}
	return v
}
