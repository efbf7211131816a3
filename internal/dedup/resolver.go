package dedup

import (
	"context"
	"errors"
	"fmt"

	"github.com/seawatch/seawatch/internal/database"
	"github.com/seawatch/seawatch/internal/store"
)

// ErrChainTooDeep is returned when a merge chain does not terminate within
// the hop bound. Source data integrity is not guaranteed, so the bound is a
// hard guard against corrupt or cyclic pointers.
var ErrChainTooDeep = errors.New("merge chain exceeds depth bound")

// maxChainDepth bounds merge-chain resolution
const maxChainDepth = 5

// Resolver follows merged_into pointers to the current authoritative root
type Resolver struct {
	store    store.Store
	maxDepth int
}

// NewResolver creates a resolver with the standard depth bound
func NewResolver(st store.Store) *Resolver {
	return &Resolver{store: st, maxDepth: maxChainDepth}
}

// Resolve fetches the record for id and walks its merge chain. It fails
// closed: any fetch error aborts resolution, and a chain longer than the
// depth bound returns ErrChainTooDeep.
func (r *Resolver) Resolve(ctx context.Context, id string) (*database.RawRecord, error) {
	current := id
	for hop := 0; hop <= r.maxDepth; hop++ {
		record, err := r.store.Get(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: fetch %s: %w", id, current, err)
		}
		if record.MergeStatus != database.MergeStatusMergedInto {
			return record, nil
		}
		if record.MergedInto == "" {
			return nil, fmt.Errorf("resolve %s: record %s is merged_into with no pointer", id, current)
		}
		current = record.MergedInto
	}
	return nil, fmt.Errorf("resolve %s: %w", id, ErrChainTooDeep)
}
