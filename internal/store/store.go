// Package store persists financial records to one of two interchangeable
// warehouse backends: a relational SQLite table and a MongoDB document
// collection. Both produce the same flat row shape on read, so callers
// above this layer never see which backend served them.
package store

import (
	"context"
	"errors"

	"github.com/fincore/warehouse/internal/models"
)

// ErrUnavailable is returned when a backend cannot be reached on any of its
// candidate endpoints. Callers degrade rather than fail the process.
var ErrUnavailable = errors.New("store: backend unavailable")

// Store is the backend-neutral warehouse interface.
type Store interface {
	// Name identifies the backend ("sqlite" or "mongo").
	Name() string
	// Write upserts the given records and returns how many were written.
	Write(ctx context.Context, records []models.FinancialRecord) (int, error)
	// ReadAll returns every stored record in the flat row shape.
	ReadAll(ctx context.Context) ([]models.FinancialRecord, error)
	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)
	// Close releases the backend connection.
	Close(ctx context.Context) error
}

// DocumentWriter is implemented by backends that persist the full nested
// filing document instead of the flat row. The ingestion pipeline upgrades
// to it when filing metadata is available.
type DocumentWriter interface {
	WriteDocuments(ctx context.Context, docs []models.FilingDocument) (int, error)
}
