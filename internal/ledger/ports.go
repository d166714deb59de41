package ledger

import (
	"context"

	"ressarcimento/internal/core"
)

// Ports for outbound adapters.
type (
	// Repository persists the full ordered record sequence.
	//
	// Load returns an empty slice and a nil error when nothing was stored yet.
	// Save overwrites whatever was stored with records.
	Repository interface {
		Load(ctx context.Context) ([]core.Record, error)
		Save(ctx context.Context, records []core.Record) error
	}

	// ChangePublisher announces a persisted mutation to other processes.
	ChangePublisher interface {
		PublishLedgerChanged(ctx context.Context, operation string, count int) error
	}

	// Observer receives the outcome of loads and mutations, e.g. for metrics.
	Observer interface {
		ObserveMutation(operation string, count int, err error)
		SetRecords(count int)
	}
)

// Operation names carried by change notifications.
const (
	OpAppend = "append"
	OpDelete = "delete"
	OpClear  = "clear"
	OpImport = "import"
)
