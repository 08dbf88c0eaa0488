package harvest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/marcharvest/internal/datastore/entities"
	"github.com/tphakala/marcharvest/internal/datastore/repository"
)

func candidateFor(t *testing.T, id, title string, run RunContext) repository.Candidate {
	t.Helper()
	c, err := candidate(bib(id, title), &entities.Source{Code: "main"}, run)
	require.NoError(t, err)
	return c
}

func TestPercent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		current, total, want int
	}{
		{0, 0, 0},
		{5, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{41, 41, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percent(tt.current, tt.total), "%d/%d", tt.current, tt.total)
	}
}

func TestRecordsPerSecond(t *testing.T) {
	t.Parallel()

	assert.Zero(t, recordsPerSecond(10, 0))
	assert.InDelta(t, 40.0, recordsPerSecond(20, 500*time.Millisecond), 1e-9)
}

func TestNewRunContext(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	a, b := NewRunContext(now), NewRunContext(now)
	assert.Equal(t, now.Unix(), a.SessionID)
	assert.True(t, now.Equal(a.Now))
	assert.Len(t, a.RunID, 36)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestReconcilerClassifies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	records := repository.NewRecordRepository(f.db)
	rc := NewReconciler(records)

	first := NewRunContext(f.clock.Now())
	res, err := rc.Apply(ctx, first, false, []repository.Candidate{
		candidateFor(t, "a", "A", first),
		candidateFor(t, "b", "B", first),
		candidateFor(t, "c", "C", first),
	})
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Created: 3}, res)

	second := NewRunContext(f.clock.Now())
	res, err = rc.Apply(ctx, second, true, []repository.Candidate{
		candidateFor(t, "a", "A", second),         // unchanged, touched
		candidateFor(t, "b", "B changed", second), // updated
		candidateFor(t, "d", "D", second),         // created
	})
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Created: 1, Updated: 1, Touched: 1}, res)

	a := f.record("a")
	assert.Equal(t, second.SessionID, a.SessionID, "touch stamps the session")
	assert.True(t, first.Now.Equal(a.UpdatedAt), "touch keeps updated_at")

	b := f.record("b")
	assert.Equal(t, second.SessionID, b.SessionID)
	assert.True(t, second.Now.Equal(b.UpdatedAt))

	c := f.record("c")
	assert.Equal(t, first.SessionID, c.SessionID, "absent records are left alone")
}

func TestReconcilerWithoutResetKeepsSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	rc := NewReconciler(repository.NewRecordRepository(f.db))

	first := NewRunContext(f.clock.Now())
	_, err := rc.Apply(ctx, first, false, []repository.Candidate{
		candidateFor(t, "a", "A", first),
		candidateFor(t, "b", "B", first),
	})
	require.NoError(t, err)

	second := NewRunContext(f.clock.Now())
	res, err := rc.Apply(ctx, second, false, []repository.Candidate{
		candidateFor(t, "a", "A", second),
		candidateFor(t, "b", "B2", second),
	})
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Updated: 1}, res)
	assert.Equal(t, first.SessionID, f.record("a").SessionID)
	assert.Equal(t, first.SessionID, f.record("b").SessionID)
}

func TestReconcilerCollapsesDuplicateIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	records := repository.NewRecordRepository(f.db)
	rc := NewReconciler(records)

	run := NewRunContext(f.clock.Now())
	last := candidateFor(t, "dup", "Second version", run)
	res, err := rc.Apply(ctx, run, false, []repository.Candidate{
		candidateFor(t, "dup", "First version", run),
		candidateFor(t, "other", "Other", run),
		last,
	})
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Created: 2}, res)

	stored := f.record("dup")
	assert.Equal(t, last.Hash, stored.Hash, "last occurrence wins")

	content, err := records.GetContent(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, last.Content, content)
}

func TestReconcilerEmptyBatch(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	res, err := NewReconciler(repository.NewRecordRepository(f.db)).
		Apply(context.Background(), NewRunContext(f.clock.Now()), true, nil)
	require.NoError(t, err)
	assert.Zero(t, res)
}
