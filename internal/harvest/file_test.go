package harvest

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/marcharvest/internal/datastore/entities"
	"github.com/tphakala/marcharvest/internal/datastore/repository"
	"github.com/tphakala/marcharvest/internal/errors"
	"github.com/tphakala/marcharvest/internal/fetch"
	"github.com/tphakala/marcharvest/internal/marc"
	"github.com/tphakala/marcharvest/internal/observability/metrics"
)

func (f *fixture) fileHarvester(m HarvestMetrics) *FileHarvester {
	return NewFileHarvester(repository.NewRecordRepository(f.db), fetch.New(fetch.Config{}), m, Config{})
}

func TestFileHarvesterBatchBoundary(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	path := f.writeDump("boundary.iso", bibs(2*DefaultBatchSize+1, "rec")...)
	src := f.addSource("main", false)
	file := f.addFile(src, &entities.SourceRecordsFile{FileURI: path})
	m := newTestMetrics()

	stats, err := f.fileHarvester(m).Harvest(context.Background(), NewRunContext(f.clock.Now()), src, file)
	require.NoError(t, err)

	assert.Equal(t, 41, stats.Processed)
	assert.Equal(t, 41, stats.TotalRecords)
	assert.Equal(t, 41, stats.Created, "the final partial batch is counted")
	assert.Equal(t, 3, stats.Batches)
	assert.Equal(t, 3, m.batches)
	assert.Equal(t, 41, m.records[metrics.OutcomeCreated])
	assert.False(t, stats.Failed())
	assert.NoError(t, stats.Err)
	assert.Equal(t, int64(41), f.countRecords())
}

func TestFileHarvesterSkipsMalformedRecords(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	path := f.writeDump("mixed.iso", bib("good-1", "One"), bib("good-2", "Two"))

	// Splice a broken record between the good ones.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	w, err := marc.NewWriter(io.Discard)
	require.NoError(t, err)
	first, err := w.Encode(bib("good-1", "One"))
	require.NoError(t, err)
	broken := append([]byte("this is not an iso2709 record"), marc.RecordTerminator)
	spliced := append(append(append([]byte{}, data[:len(first)]...), broken...), data[len(first):]...)
	require.NoError(t, os.WriteFile(path, spliced, 0o600))

	src := f.addSource("main", false)
	file := f.addFile(src, &entities.SourceRecordsFile{FileURI: path})
	m := newTestMetrics()

	stats, err := f.fileHarvester(m).Harvest(context.Background(), NewRunContext(f.clock.Now()), src, file)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Processed, "malformed records count as processed")
	assert.Equal(t, 2, stats.Created)
	assert.Equal(t, 1, stats.ParseErrors)
	assert.True(t, stats.Failed())
	assert.Contains(t, stats.Message, "1 malformed records skipped")
	assert.True(t, errors.IsCategory(stats.Err, errors.CategoryFileParsing))
	assert.Equal(t, 1, m.records[metrics.OutcomeParseError])
}

func TestFileHarvesterSkipsOverlongOriginalID(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	widest := strings.Repeat("я", entities.MaxOriginalIDLength)
	tooLong := strings.Repeat("x", entities.MaxOriginalIDLength+1)
	path := f.writeDump("long.iso", bib("short", "A"), bib(tooLong, "B"), bib(widest, "C"))
	src := f.addSource("main", false)
	file := f.addFile(src, &entities.SourceRecordsFile{FileURI: path})

	stats, err := f.fileHarvester(nil).Harvest(context.Background(), NewRunContext(f.clock.Now()), src, file)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 2, stats.Created, "the limit counts characters, not bytes")
	assert.Equal(t, 1, stats.ParseErrors)
	assert.True(t, errors.IsCategory(stats.Err, errors.CategoryFileParsing))
	assert.Equal(t, widest, f.record(widest).OriginalID)
	assert.Equal(t, int64(2), f.countRecords())
}

func TestFileHarvesterFileErrors(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	src := f.addSource("main", false)
	good := f.writeDump("good.iso", bib("1", "A"))

	tests := []struct {
		name         string
		file         *entities.SourceRecordsFile
		wantStatus   fetch.Status
		wantMsg      string
		wantCategory errors.ErrorCategory
	}{
		{
			name:         "missing file",
			file:         &entities.SourceRecordsFile{FileURI: filepath.Join(f.dir, "missing.iso")},
			wantStatus:   fetch.StatusNotExists,
			wantMsg:      "not exists",
			wantCategory: errors.CategoryFileIO,
		},
		{
			name:         "directory",
			file:         &entities.SourceRecordsFile{FileURI: f.dir},
			wantStatus:   fetch.StatusNotFile,
			wantMsg:      "not file",
			wantCategory: errors.CategoryFileIO,
		},
		{
			name:         "unknown format",
			file:         &entities.SourceRecordsFile{FileURI: good, Format: "marcxml"},
			wantStatus:   fetch.StatusOK,
			wantMsg:      "No handler for format marcxml",
			wantCategory: errors.CategoryValidation,
		},
		{
			name:         "unknown schema",
			file:         &entities.SourceRecordsFile{FileURI: good, Schema: "unimarc"},
			wantStatus:   fetch.StatusOK,
			wantMsg:      "No handler for schema unimarc",
			wantCategory: errors.CategoryValidation,
		},
		{
			name:         "unknown encoding",
			file:         &entities.SourceRecordsFile{FileURI: good, Encoding: "no-such-charset"},
			wantStatus:   fetch.StatusOK,
			wantMsg:      "no-such-charset",
			wantCategory: errors.CategoryValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.file.ApplyDefaults()
			m := newTestMetrics()
			stats, err := f.fileHarvester(m).Harvest(context.Background(), NewRunContext(f.clock.Now()), src, tt.file)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, stats.Status)
			assert.Contains(t, stats.Message, tt.wantMsg)
			assert.True(t, errors.IsCategory(stats.Err, tt.wantCategory))
			assert.True(t, stats.Failed())
			assert.Zero(t, stats.Processed)
			assert.Equal(t, 1, m.errors[metrics.OpFileHarvest+"/"+tt.wantStatus.String()])
		})
	}
	assert.Zero(t, f.countRecords())
}

func TestFileHarvesterUnreachableRemote(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	src := f.addSource("main", false)
	file := &entities.SourceRecordsFile{FileURI: "sftp://user:pw@127.0.0.1:1/dump.iso"}
	file.ApplyDefaults()

	stats, err := f.fileHarvester(nil).Harvest(context.Background(), NewRunContext(f.clock.Now()), src, file)
	require.NoError(t, err)
	assert.Equal(t, fetch.StatusUnreachable, stats.Status)
	assert.NotContains(t, stats.Message, ":pw@")
	assert.True(t, errors.IsCategory(stats.Err, errors.CategoryFileIO))
}

func TestFileHarvesterDecodesEncoding(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	path := filepath.Join(f.dir, "cp1251.iso")
	out, err := os.Create(path)
	require.NoError(t, err)
	w, err := marc.NewWriter(out, marc.WithEncoding("windows-1251"))
	require.NoError(t, err)
	require.NoError(t, w.Write(bib("ru-1", "Преступление и наказание")))
	require.NoError(t, w.Flush())
	require.NoError(t, out.Close())

	src := f.addSource("main", false)
	file := f.addFile(src, &entities.SourceRecordsFile{FileURI: path, Encoding: "windows-1251"})

	stats, err := f.fileHarvester(nil).Harvest(context.Background(), NewRunContext(f.clock.Now()), src, file)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Created)

	content, err := repository.NewRecordRepository(f.db).GetContent(context.Background(), f.record("ru-1").ID)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Преступление и наказание")
}

func TestFileHarvesterStoresCandidateFields(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	path := f.writeDump("one.iso", bib("RU/1", "Title"), bib("", "No identifier"))
	src := f.addSource("lib", false)
	file := f.addFile(src, &entities.SourceRecordsFile{FileURI: path})
	run := NewRunContext(f.clock.Now())

	_, err := f.fileHarvester(nil).Harvest(context.Background(), run, src, file)
	require.NoError(t, err)

	rec := f.record("RU/1")
	assert.Equal(t, "lib", rec.Source)
	assert.Equal(t, DumpSchema, rec.Schema)
	assert.Equal(t, run.SessionID, rec.SessionID)
	assert.True(t, run.Now.Equal(rec.CreatedAt))
	assert.True(t, run.Now.Equal(rec.UpdatedAt))

	anon := f.record("")
	assert.Equal(t, anon.Hash, anon.ID, "records without 001 are keyed by their hash")
}
