package backend

import (
	"context"

	"ressarcimento/internal/ledger"
	"ressarcimento/internal/sheets/google"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the record store, the optional change publisher
// and a cleanup function for both.
type BackendResult struct {
	Repository ledger.Repository
	Publisher  ledger.ChangePublisher
	Cleanup    CleanupFunc
}

// Close runs Cleanup when there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// CSV specific
	DataFile string

	// SQLite specific
	SQLiteDBPath string

	// Change notifications, optional for file backed stores
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets specific
	Sheets google.Settings
}

// BackendType represents the type of backend
type BackendType string

const (
	CSVBackend    BackendType = "csv"
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case CSVBackend, SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Publishes reports whether the backend announces changes over AMQP.
// Sheets is the mirror target itself and memory has nothing to mirror.
func (bt BackendType) Publishes() bool {
	return bt == CSVBackend || bt == SQLiteBackend
}
