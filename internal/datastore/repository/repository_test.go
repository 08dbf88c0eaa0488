package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tphakala/marcharvest/internal/datastore"
	"github.com/tphakala/marcharvest/internal/datastore/entities"
)

// setupTestDB creates an initialized SQLite record store in a temp dir.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	mgr, err := datastore.NewSQLiteManager(datastore.Config{
		Path: filepath.Join(t.TempDir(), "records.db"),
	})
	require.NoError(t, err)
	require.NoError(t, mgr.Initialize())
	t.Cleanup(func() { _ = mgr.Close() })

	return mgr.DB()
}

func candidate(id, hash string, session int64, at time.Time) Candidate {
	return Candidate{
		ID:        id,
		Hash:      hash,
		Source:    "main",
		Schema:    "junimarc",
		SessionID: session,
		CreatedAt: at,
		UpdatedAt: at,
		Content:   []byte(`{"id":"` + id + `","hash":"` + hash + `"}`),
	}
}

func id32(n int) string {
	return fmt.Sprintf("%032x", n)
}

func TestRecordRepository_CreateAndLookup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewRecordRepository(setupTestDB(t))
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.CreateMany(ctx, []Candidate{
		candidate(id32(1), id32(101), 100, at),
		candidate(id32(2), id32(102), 100, at),
	}))

	found, err := repo.Lookup(ctx, []string{id32(1), id32(2), id32(3)})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, id32(101), found[id32(1)].Hash)
	assert.Equal(t, int64(100), found[id32(2)].SessionID)
	assert.True(t, at.Equal(found[id32(1)].CreatedAt))
	assert.False(t, found[id32(1)].Deleted)

	content, err := repo.GetContent(ctx, id32(2))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+id32(2)+`","hash":"`+id32(102)+`"}`, string(content))
}

func TestRecordRepository_LookupChunks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewRecordRepository(setupTestDB(t))
	at := time.Now().UTC()

	const total = lookupChunkSize + 25
	cands := make([]Candidate, 0, total)
	ids := make([]string, 0, total)
	for i := range total {
		cands = append(cands, candidate(id32(i), id32(i), 1, at))
		ids = append(ids, id32(i))
	}
	require.NoError(t, repo.CreateMany(ctx, cands))

	found, err := repo.Lookup(ctx, ids)
	require.NoError(t, err)
	assert.Len(t, found, total)

	empty, err := repo.Lookup(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRecordRepository_CreateDuplicate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewRecordRepository(setupTestDB(t))
	at := time.Now().UTC()

	require.NoError(t, repo.CreateMany(ctx, []Candidate{candidate(id32(1), id32(1), 1, at)}))

	err := repo.CreateMany(ctx, []Candidate{candidate(id32(1), id32(2), 2, at)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestRecordRepository_UpdateMany(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewRecordRepository(db)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := created.Add(24 * time.Hour)

	require.NoError(t, repo.CreateMany(ctx, []Candidate{
		candidate(id32(1), id32(11), 100, created),
		candidate(id32(2), id32(12), 100, created),
	}))
	require.NoError(t, db.Table(tableRecords).Where("id = ?", id32(2)).Update("deleted", true).Error)

	// Without a session id the stored session is kept
	require.NoError(t, repo.UpdateMany(ctx, []Candidate{candidate(id32(1), id32(21), 200, later)}, nil))
	rec, err := repo.Get(ctx, id32(1))
	require.NoError(t, err)
	assert.Equal(t, id32(21), rec.Hash)
	assert.Equal(t, int64(100), rec.SessionID)
	assert.True(t, later.Equal(rec.UpdatedAt))
	assert.True(t, created.Equal(rec.CreatedAt))

	session := int64(300)
	require.NoError(t, repo.UpdateMany(ctx, []Candidate{candidate(id32(2), id32(22), 300, later)}, &session))
	rec, err = repo.Get(ctx, id32(2))
	require.NoError(t, err)
	assert.False(t, rec.Deleted)
	assert.Equal(t, int64(300), rec.SessionID)

	content, err := repo.GetContent(ctx, id32(2))
	require.NoError(t, err)
	assert.Contains(t, string(content), id32(22))
}

func TestRecordRepository_TouchMany(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewRecordRepository(setupTestDB(t))
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.CreateMany(ctx, []Candidate{
		candidate(id32(1), id32(1), 100, at),
		candidate(id32(2), id32(2), 100, at),
	}))

	require.NoError(t, repo.TouchMany(ctx, nil, 999))
	require.NoError(t, repo.TouchMany(ctx, []string{id32(1)}, 200))

	found, err := repo.Lookup(ctx, []string{id32(1), id32(2)})
	require.NoError(t, err)
	assert.Equal(t, int64(200), found[id32(1)].SessionID)
	assert.Equal(t, int64(100), found[id32(2)].SessionID)
	assert.True(t, at.Equal(found[id32(1)].UpdatedAt), "touch must not move updated_at")
}

func TestRecordRepository_TombstoneAbsent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewRecordRepository(setupTestDB(t))
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := at.Add(time.Hour)

	other := candidate(id32(9), id32(9), 100, at)
	other.Source = "other"
	require.NoError(t, repo.CreateMany(ctx, []Candidate{
		candidate(id32(1), id32(1), 100, at),
		candidate(id32(2), id32(2), 200, at),
		other,
	}))

	n, err := repo.TombstoneAbsent(ctx, "main", 200, ts)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	gone, err := repo.Get(ctx, id32(1))
	require.NoError(t, err)
	assert.True(t, gone.Deleted)
	assert.True(t, ts.Equal(gone.UpdatedAt))

	kept, err := repo.Get(ctx, id32(9))
	require.NoError(t, err)
	assert.False(t, kept.Deleted, "other sources are never tombstoned")

	// Already deleted rows are not counted again
	n, err = repo.TombstoneAbsent(ctx, "main", 200, ts)
	require.NoError(t, err)
	assert.Zero(t, n)

	live, err := repo.CountBySource(ctx, "main", false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), live)
	all, err := repo.CountBySource(ctx, "main", true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), all)
}

func TestRecordRepository_NotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewRecordRepository(setupTestDB(t))

	_, err := repo.Get(ctx, id32(1))
	require.ErrorIs(t, err, ErrRecordNotFound)
	_, err = repo.GetContent(ctx, id32(1))
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestRecordRepository_TransactionRollback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)
	at := time.Now().UTC()

	err := db.Transaction(func(tx *gorm.DB) error {
		repo := NewRecordRepository(tx)
		if err := repo.CreateMany(ctx, []Candidate{candidate(id32(1), id32(1), 1, at)}); err != nil {
			return err
		}
		return repo.CreateMany(ctx, []Candidate{candidate(id32(1), id32(1), 1, at)})
	})
	require.ErrorIs(t, err, ErrDuplicateKey)

	count, err := NewRecordRepository(db).CountBySource(ctx, "main", true)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRecordContentCascade(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewRecordRepository(db)

	require.NoError(t, repo.CreateMany(ctx, []Candidate{candidate(id32(1), id32(1), 1, time.Now().UTC())}))
	require.NoError(t, db.Exec("DELETE FROM records WHERE id = ?", id32(1)).Error)

	var count int64
	require.NoError(t, db.Table(tableRecordContents).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSourceRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewSourceRepository(setupTestDB(t))

	primary := &entities.Source{Code: "main", Name: "Main catalog", Active: true}
	created, err := repo.Save(ctx, primary)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotZero(t, primary.ID)

	idle := &entities.Source{Code: "idle", Name: "Idle", Active: false}
	_, err = repo.Save(ctx, idle)
	require.NoError(t, err)

	update := &entities.Source{Code: "main", Name: "Renamed", Reset: true, Active: true}
	created, err = repo.Save(ctx, update)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, primary.ID, update.ID)

	got, err := repo.GetByCode(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.True(t, got.Reset)

	active, err := repo.GetActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "main", active[0].Code)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = repo.GetByCode(ctx, "missing")
	require.ErrorIs(t, err, ErrSourceNotFound)

	_, err = repo.Save(ctx, &entities.Source{})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestSourceRepository_Files(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewSourceRepository(setupTestDB(t))

	src := &entities.Source{Code: "main", Name: "Main", Active: true}
	_, err := repo.Save(ctx, src)
	require.NoError(t, err)

	first := &entities.SourceRecordsFile{SourceID: src.ID, FileURI: "/data/b.iso", Encoding: "cp1251"}
	added, err := repo.AddFile(ctx, first)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, entities.DefaultFileFormat, first.Format)

	second := &entities.SourceRecordsFile{SourceID: src.ID, FileURI: "/data/a.iso"}
	_, err = repo.AddFile(ctx, second)
	require.NoError(t, err)

	again := &entities.SourceRecordsFile{SourceID: src.ID, FileURI: "/data/b.iso"}
	added, err = repo.AddFile(ctx, again)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, first.ID, again.ID)

	files, err := repo.Files(ctx, src.ID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, first.ID, files[0].ID, "files are ordered by id")
	assert.Equal(t, "cp1251", files[0].Encoding)

	got, err := repo.GetFile(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "/data/a.iso", got.FileURI)
	assert.Equal(t, entities.DefaultFileSchema, got.Schema)

	_, err = repo.GetFile(ctx, 9999)
	require.ErrorIs(t, err, ErrFileNotFound)
}

func TestStatusRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)
	sources := NewSourceRepository(db)
	statuses := NewStatusRepository(db)

	src := &entities.Source{Code: "main", Name: "Main", Active: true}
	_, err := sources.Save(ctx, src)
	require.NoError(t, err)

	_, err = statuses.Latest(ctx, src.ID)
	require.ErrorIs(t, err, ErrStatusNotFound)

	last, err := statuses.LastSessionID(ctx, src.ID)
	require.NoError(t, err)
	assert.Zero(t, last)

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := range 3 {
		st := &entities.HarvestingStatus{
			SourceID:  src.ID,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			Created:   i,
			SessionID: base.Unix() + int64(i),
		}
		require.NoError(t, statuses.Append(ctx, st))
	}

	latest, err := statuses.Latest(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Created)

	last, err = statuses.LastSessionID(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, base.Unix()+2, last)

	list, err := statuses.ListBySource(ctx, src.ID, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 1, list[1].Created)

	require.ErrorIs(t, statuses.Append(ctx, latest), ErrInvalidInput)

	long := &entities.HarvestingStatus{SourceID: src.ID, Message: string(make([]byte, entities.MaxStatusMessage+10))}
	require.NoError(t, statuses.Append(ctx, long))
	assert.Len(t, long.Message, entities.MaxStatusMessage)
}

func TestIsDuplicateKeyError(t *testing.T) {
	t.Parallel()

	assert.False(t, isDuplicateKeyError(nil))
	assert.True(t, isDuplicateKeyError(gorm.ErrDuplicatedKey))
	assert.True(t, isDuplicateKeyError(fmt.Errorf("wrapped: %w", gorm.ErrDuplicatedKey)))
	assert.False(t, isDuplicateKeyError(gorm.ErrRecordNotFound))
	assert.ErrorIs(t, translateWriteError(gorm.ErrDuplicatedKey), ErrDuplicateKey)
}
