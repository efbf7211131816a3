// Package store abstracts the shared record store the deduplication engine
// reads from and patches. The engine never owns the store: it only needs a
// filtered paginated read, a single-record read, and a field-level patch.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/seawatch/seawatch/internal/database"
)

// ErrNotFound is returned when a record id does not exist in the store
var ErrNotFound = errors.New("record not found")

// Store is the minimal record-store surface the engine depends on
type Store interface {
	// ListUnprocessed returns records with merge status unset and a date on
	// or after since, newest first. limit/offset page through the result.
	ListUnprocessed(ctx context.Context, since time.Time, limit, offset int) ([]database.RawRecord, error)

	// Get fetches a single record by id
	Get(ctx context.Context, id string) (*database.RawRecord, error)

	// Patch applies a partial field update to a record by id. Keys are the
	// snake_case field names shared by the database columns and the JSON API.
	Patch(ctx context.Context, id string, fields map[string]interface{}) error
}
