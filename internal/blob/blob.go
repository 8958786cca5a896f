// Package blob stores the live records collection as one JSON document.
//
// The collection is always read and written whole. Backends differ only in
// where the document lives; none of them expose a revision token, so
// concurrent writers race and the last write wins.
package blob

import (
	"context"

	"github.com/birthapp/birthapp-go/internal/model"
)

// Store holds the records document.
type Store interface {
	// Get returns the stored collection. found is false when the document does
	// not exist yet; read failures are returned as errors, never as absence.
	Get(ctx context.Context) (records []model.Record, found bool, err error)
	// Set replaces the stored collection.
	Set(ctx context.Context, records []model.Record) error
	// Kind names the backend for diagnostics.
	Kind() string
}

func clone(records []model.Record) []model.Record {
	out := make([]model.Record, len(records))
	copy(out, records)
	return out
}
