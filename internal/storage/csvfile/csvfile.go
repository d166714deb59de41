// Package csvfile persists the record sequence as a delimited flat file
// with a fixed five-column header.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"ressarcimento/internal/core"
	"ressarcimento/internal/ledger"
	"ressarcimento/internal/log"
)

// Header is the first row of every file written by Store.
var Header = core.Columns

var ErrBadHeader = errors.New("unexpected csv header")

var _ ledger.Repository = (*Store)(nil)

// Store reads and overwrites a single CSV file.
type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the file. A missing file yields an empty sequence.
func (s *Store) Load(ctx context.Context) ([]core.Record, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		logger().DebugContext(ctx, "Data file not found, starting empty", "path", s.path)
		return []core.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	records, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return records, nil
}

// Save writes records to a temporary file next to the target and renames it into place.
func (s *Store) Save(ctx context.Context, records []core.Record) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, records); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	logger().DebugContext(ctx, "Data file written", "path", s.path, log.FieldCount, len(records))
	return nil
}

// Encode writes the header and one row per record.
func Encode(w io.Writer, records []core.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Date.String(),
			r.ClubID,
			r.ClubName,
			r.Amount.StringFixed(2),
			r.Responsible,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Decode parses what Encode writes. An empty input is an empty sequence.
func Decode(r io.Reader) ([]core.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []core.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if !core.HeaderMatches(head) {
		return nil, fmt.Errorf("%w: %v", ErrBadHeader, head)
	}

	out := []core.Record{}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		date, err := core.ParseDate(strings.TrimSpace(row[0]))
		if err != nil {
			return nil, fmt.Errorf("line %d: date %q: %w", line, row[0], err)
		}
		amount, err := core.ParseAmount(row[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: amount %q: %w", line, row[3], err)
		}
		out = append(out, core.Record{
			Date:        date,
			ClubID:      row[1],
			ClubName:    row[2],
			Amount:      amount,
			Responsible: row[4],
		})
	}
}

func logger() *slog.Logger {
	return slog.Default().With(log.FieldComponent, log.ComponentStorage)
}
