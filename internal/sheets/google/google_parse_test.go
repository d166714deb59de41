package google

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"ressarcimento/internal/core"
)

func TestRowsToRecords(t *testing.T) {
	values := [][]interface{}{
		{"DATA", "ID CLUBE", "NOME CLUBE", "VALOR", "RESPONSAVEL"},
		{"03/06/2024", "10", "Club A", 150.0, "Alice"},
		{},
		{"", "", ""},
		{"2024-06-04", 11.0, "Club B", "R$ 1.234,56"},
	}
	got, err := rowsToRecords(values)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].ClubID != "10" || !got[0].Amount.Equal(decimal.NewFromInt(150)) || got[0].Responsible != "Alice" {
		t.Fatalf("unexpected first record: %+v", got[0])
	}
	if got[1].ClubID != "11" || got[1].Responsible != "" || !got[1].Amount.Equal(decimal.RequireFromString("1234.56")) {
		t.Fatalf("unexpected second record: %+v", got[1])
	}
}

func TestRowsToRecordsRejectsBadRows(t *testing.T) {
	cases := map[string][][]interface{}{
		"bad date":        {{"DATA"}, {"yesterday", "1", "A", 1.0, "X"}},
		"negative amount": {{"03/06/2024", "1", "A", -1.0, "X"}},
		"missing amount":  {{"03/06/2024", "1", "A"}},
	}
	for name, values := range cases {
		if _, err := rowsToRecords(values); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	_, err := rowsToRecords([][]interface{}{{"03/06/2024", "1", "A", "abc", "X"}})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestRecordsToRowsRoundTrip(t *testing.T) {
	records := []core.Record{
		{Date: core.NewDate(2024, 6, 3), ClubID: "010", ClubName: "Club A", Amount: decimal.RequireFromString("150.25"), Responsible: "Alice"},
	}
	rows := recordsToRows(records)
	if len(rows) != 2 || rows[0][0] != "DATA" {
		t.Fatalf("missing header: %v", rows)
	}
	if rows[1][0] != "03/06/2024" || rows[1][3] != 150.25 {
		t.Fatalf("unexpected row: %v", rows[1])
	}
	back, err := rowsToRecords(rows)
	if err != nil || len(back) != 1 || back[0].ClubID != "010" || !back[0].Amount.Equal(records[0].Amount) {
		t.Fatalf("round trip: %+v err=%v", back, err)
	}
}
