package harvest

import (
	"context"

	"github.com/tphakala/marcharvest/internal/datastore/repository"
	"github.com/tphakala/marcharvest/internal/errors"
)

// BatchResult counts what Apply did with a batch.
type BatchResult struct {
	Created int
	Updated int
	Touched int
}

// Reconciler applies batches of candidates to the record store.
type Reconciler struct {
	records repository.RecordRepository
}

// NewReconciler creates a Reconciler writing through records.
func NewReconciler(records repository.RecordRepository) *Reconciler {
	return &Reconciler{records: records}
}

// Apply classifies each candidate against its stored row and writes the
// classes in the order create, update, touch.
//
// A stored row with a different hash, or a tombstoned row, is updated. With
// reset on, unchanged rows are touched so that they survive tombstoning.
// Duplicate ids within a batch collapse to the last occurrence.
func (r *Reconciler) Apply(ctx context.Context, run RunContext, reset bool, batch []repository.Candidate) (BatchResult, error) {
	var result BatchResult
	if len(batch) == 0 {
		return result, nil
	}

	// Last occurrence wins, first occurrence keeps the position.
	order := make([]string, 0, len(batch))
	latest := make(map[string]repository.Candidate, len(batch))
	for _, c := range batch {
		if _, seen := latest[c.ID]; !seen {
			order = append(order, c.ID)
		}
		latest[c.ID] = c
	}

	existing, err := r.records.Lookup(ctx, order)
	if err != nil {
		return result, storeError(err, "lookup", run)
	}

	var creates, updates []repository.Candidate
	var touches []string
	for _, id := range order {
		c := latest[id]
		row, ok := existing[id]
		switch {
		case !ok:
			creates = append(creates, c)
		case row.Hash != c.Hash || row.Deleted:
			updates = append(updates, c)
		case reset:
			touches = append(touches, id)
		}
	}

	if err := r.records.CreateMany(ctx, creates); err != nil {
		return result, storeError(err, "create", run)
	}

	var sessionID *int64
	if reset {
		sessionID = &run.SessionID
	}
	if err := r.records.UpdateMany(ctx, updates, sessionID); err != nil {
		return result, storeError(err, "update", run)
	}

	if err := r.records.TouchMany(ctx, touches, run.SessionID); err != nil {
		return result, storeError(err, "touch", run)
	}

	result.Created = len(creates)
	result.Updated = len(updates)
	result.Touched = len(touches)
	return result, nil
}

func storeError(err error, op string, run RunContext) error {
	return errors.New(err).
		Component("harvest").
		Category(errors.CategoryDatabase).
		Context("operation", op).
		Context("session_id", run.SessionID).
		Context("run_id", run.RunID).
		Build()
}
