package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Window is the inclusive 7-day range used for the weekly summary.
type Window struct {
	Start Date
	End   Date
}

// Contains reports whether d lies in [Start, End], both endpoints included.
func (w Window) Contains(d Date) bool {
	return !d.Before(w.Start.Time) && !d.After(w.End.Time)
}

// WeekWindow returns the week containing today that begins on startDay.
func WeekWindow(today time.Time, startDay time.Weekday) Window {
	day := DateOf(today)
	offset := (int(day.Weekday()) - int(startDay) + 7) % 7
	start := day.AddDays(-offset)
	return Window{Start: start, End: start.AddDays(6)}
}

// ClubAmount is an amount aggregated by club name.
type ClubAmount struct {
	Name   string
	Amount decimal.Decimal
}

// WeeklySummary is the filtered week plus its aggregates.
type WeeklySummary struct {
	Window        Window
	Records       []Record
	Total         decimal.Decimal
	Count         int
	DistinctClubs int
	ByClub        []ClubAmount
}

// Empty reports whether no record fell in the window.
func (s WeeklySummary) Empty() bool {
	return s.Count == 0
}

// FilterWeek keeps the records dated inside w, preserving their order.
func FilterWeek(records []Record, w Window) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if w.Contains(r.Date) {
			out = append(out, r)
		}
	}
	return out
}

// Summarize filters records to w and aggregates them.
func Summarize(records []Record, w Window) WeeklySummary {
	week := FilterWeek(records, w)
	s := WeeklySummary{Window: w, Records: week, Total: decimal.Zero, Count: len(week)}

	idx := map[string]int{}
	for _, r := range week {
		s.Total = s.Total.Add(r.Amount)
		i, seen := idx[r.ClubName]
		if !seen {
			i = len(s.ByClub)
			idx[r.ClubName] = i
			s.ByClub = append(s.ByClub, ClubAmount{Name: r.ClubName, Amount: decimal.Zero})
		}
		s.ByClub[i].Amount = s.ByClub[i].Amount.Add(r.Amount)
	}
	s.DistinctClubs = len(s.ByClub)
	return s
}

// ParseWeekStart maps "monday"/"sunday" (also "seg"/"dom") to a weekday.
func ParseWeekStart(s string) (time.Weekday, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monday", "segunda", "seg", "":
		return time.Monday, true
	case "sunday", "domingo", "dom":
		return time.Sunday, true
	}
	return time.Monday, false
}
