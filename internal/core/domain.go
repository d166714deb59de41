package core

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// StorageDateLayout is the fixed textual date format used by flat-file persistence.
const StorageDateLayout = "02/01/2006"

type (
	// Date is a calendar date normalized to UTC midnight.
	Date struct {
		time.Time
	}

	// Record is one club reimbursement entry.
	Record struct {
		Date        Date
		ClubID      string
		ClubName    string
		Amount      decimal.Decimal
		Responsible string
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day, keeping the wall-clock date of t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate accepts ISO (2006-01-02, as sent by <input type=date>) and day-first
// d/m/yyyy or d-m-yyyy with one or two digit day and month.
func ParseDate(s string) (Date, error) {
	for _, layout := range []string{"2006-01-02", StorageDateLayout, "2/1/2006", "2-1-2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, ErrInvalidDate
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// String renders the date in the storage layout.
func (d Date) String() string {
	return d.Time.Format(StorageDateLayout)
}

// ISO renders the date as yyyy-mm-dd.
func (d Date) ISO() string {
	return d.Time.Format("2006-01-02")
}

// Validate enforces the only record invariants: a real date and a non-negative amount.
func (r Record) Validate() error {
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if r.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}
