// Package sheets mirrors recurring records into a spreadsheet so users can
// browse them outside the application.
package sheets

import (
	"context"

	"spendwise/internal/core"
)

// MirroredRow is a record as it currently appears in the mirror.
type MirroredRow struct {
	ID        string
	UserID    string
	Name      string
	Amount    float64
	Currency  string
	Frequency core.Frequency
	StartDate string
	EndDate   string
	Active    bool
	Version   int64
}

// Ports for outbound adapters.
type (
	// RecordMirror writes records into the tab for their kind. UpsertRecord
	// ignores a record older than the mirrored row with the same ID.
	RecordMirror interface {
		UpsertRecord(ctx context.Context, r core.RecurringRecord) error
		DeleteRecord(ctx context.Context, kind core.RecordKind, id string) error
	}

	MirrorLister interface {
		ListMirrored(ctx context.Context, kind core.RecordKind) ([]MirroredRow, error)
	}

	Mirror interface {
		RecordMirror
		MirrorLister
	}
)
