package harvest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/marcharvest/internal/datastore/entities"
	"github.com/tphakala/marcharvest/internal/fetch"
	"github.com/tphakala/marcharvest/internal/marc"
	"github.com/tphakala/marcharvest/internal/observability/metrics"
)

func recordsFile(uri string) *entities.SourceRecordsFile {
	file := &entities.SourceRecordsFile{FileURI: uri}
	file.ApplyDefaults()
	return file
}

func newTestInspector(m metrics.Recorder) *Inspector {
	return NewInspector(fetch.New(fetch.Config{}), m)
}

func TestCountResult(t *testing.T) {
	t.Parallel()

	ok := CountResult{Status: fetch.StatusOK, Total: 12}
	assert.Equal(t, 12, ok.Value())
	assert.Equal(t, "12", ok.String())
	raw, err := json.Marshal(ok)
	require.NoError(t, err)
	assert.JSONEq(t, `{"result": 12}`, string(raw))

	missing := CountResult{Status: fetch.StatusNotExists}
	assert.Equal(t, "not exists", missing.Value())
	raw, err = json.Marshal(missing)
	require.NoError(t, err)
	assert.JSONEq(t, `{"result": "not exists"}`, string(raw))
}

func TestCalculateRecordsCount(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	path := f.writeDump("a.iso", bibs(7, "a")...)
	m := newTestMetrics()
	in := newTestInspector(m)

	res, err := in.CalculateRecordsCount(context.Background(), recordsFile(path))
	require.NoError(t, err)
	assert.Equal(t, CountResult{Status: fetch.StatusOK, Total: 7}, res)

	res, err = in.CalculateRecordsCount(context.Background(), recordsFile(path))
	require.NoError(t, err)
	assert.Equal(t, 7, res.Total)
	assert.Equal(t, 1, m.operations[metrics.OpCount+"/cache_hit"])
	assert.Equal(t, 1, m.operations[metrics.OpCount+"/"+metrics.ResultSuccess])
}

func TestCalculateRecordsCountInvalidatesOnChange(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	path := f.writeDump("a.iso", bibs(2, "a")...)
	in := newTestInspector(nil)

	res, err := in.CalculateRecordsCount(context.Background(), recordsFile(path))
	require.NoError(t, err)
	require.Equal(t, 2, res.Total)

	f.writeDump("a.iso", bibs(5, "a")...)
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))

	res, err = in.CalculateRecordsCount(context.Background(), recordsFile(path))
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
}

func TestCalculateRecordsCountUnreadable(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	in := newTestInspector(nil)

	res, err := in.CalculateRecordsCount(context.Background(), recordsFile(filepath.Join(f.dir, "missing.iso")))
	require.NoError(t, err)
	assert.Equal(t, "not exists", res.String())

	res, err = in.CalculateRecordsCount(context.Background(), recordsFile(f.dir))
	require.NoError(t, err)
	assert.Equal(t, fetch.StatusNotFile, res.Status)

	res, err = in.CalculateRecordsCount(context.Background(), recordsFile("ftp://127.0.0.1:1/dump.iso"))
	require.NoError(t, err)
	assert.Equal(t, fetch.StatusUnreachable, res.Status)

	file := recordsFile(filepath.Join(f.dir, "missing.iso"))
	file.Format = "marcxml"
	_, err = in.CalculateRecordsCount(context.Background(), file)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRecordContent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	path := f.writeDump("a.iso", bib("first", "Alpha"), bib("second", "Beta & Gamma"), bib("third", "Delta"))
	w, err := marc.NewWriter(&strings.Builder{})
	require.NoError(t, err)
	first, err := w.Encode(bib("first", "Alpha"))
	require.NoError(t, err)
	in := newTestInspector(nil)
	ctx := context.Background()

	t.Run("defaults to index and html", func(t *testing.T) {
		out, err := in.RecordContent(ctx, recordsFile(path), "", 1, "")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, `<div class="record">`))
		assert.Contains(t, out, "Beta &amp; Gamma")
	})

	t.Run("text view", func(t *testing.T) {
		out, err := in.RecordContent(ctx, recordsFile(path), PositionIndex, 2, ViewText)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "<plaintext>LDR "))
		assert.True(t, strings.HasSuffix(out, "</plaintext>"))
		assert.Contains(t, out, "001 third")
	})

	t.Run("offset", func(t *testing.T) {
		out, err := in.RecordContent(ctx, recordsFile(path), PositionOffset, int64(len(first)), ViewText)
		require.NoError(t, err)
		assert.Contains(t, out, "001 second")
	})

	t.Run("offset inside a record", func(t *testing.T) {
		out, err := in.RecordContent(ctx, recordsFile(path), PositionOffset, 3, ViewText)
		require.NoError(t, err)
		assert.Equal(t, RecordUnavailable, out)
	})

	t.Run("beyond the end", func(t *testing.T) {
		out, err := in.RecordContent(ctx, recordsFile(path), PositionIndex, 3, ViewHTML)
		require.NoError(t, err)
		assert.Equal(t, RecordUnavailable, out)
	})

	t.Run("invalid arguments", func(t *testing.T) {
		_, err := in.RecordContent(ctx, recordsFile(path), "page", 0, ViewHTML)
		require.ErrorIs(t, err, ErrInvalidArgument)
		_, err = in.RecordContent(ctx, recordsFile(path), PositionIndex, 0, "pdf")
		require.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("unknown format", func(t *testing.T) {
		file := recordsFile(path)
		file.Format = "marcxml"
		out, err := in.RecordContent(ctx, file, PositionIndex, 0, ViewHTML)
		require.NoError(t, err)
		assert.Equal(t, "No handler for format marcxml", out)
	})

	t.Run("missing file", func(t *testing.T) {
		out, err := in.RecordContent(ctx, recordsFile(filepath.Join(f.dir, "missing.iso")), PositionIndex, 0, ViewHTML)
		require.NoError(t, err)
		assert.Equal(t, "not exists", out)
	})
}

func TestRecordContentMalformedRecord(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	path := filepath.Join(f.dir, "broken.iso")
	require.NoError(t, os.WriteFile(path, []byte("not a record\x1d"), 0o600))

	out, err := newTestInspector(nil).RecordContent(context.Background(), recordsFile(path), PositionIndex, 0, ViewHTML)
	require.NoError(t, err)
	assert.Equal(t, RecordUnavailable, out)
}
