package entities

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGzipBytesValueCompresses(t *testing.T) {
	t.Parallel()

	payload := GzipBytes(strings.Repeat(`{"tag":"200","subfields":[["a","Title"]]}`, 50))

	v, err := payload.Value()
	require.NoError(t, err)
	stored, ok := v.([]byte)
	require.True(t, ok)
	assert.Less(t, len(stored), len(payload))

	zr, err := gzip.NewReader(bytes.NewReader(stored))
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, []byte(payload), plain)
}

func TestGzipBytesScan(t *testing.T) {
	t.Parallel()

	v, err := GzipBytes("record dump").Value()
	require.NoError(t, err)

	var fromBytes GzipBytes
	require.NoError(t, fromBytes.Scan(v))
	assert.Equal(t, "record dump", string(fromBytes))

	var fromString GzipBytes
	require.NoError(t, fromString.Scan(string(v.([]byte))))
	assert.Equal(t, "record dump", string(fromString))

	var fromNil GzipBytes = GzipBytes("stale")
	require.NoError(t, fromNil.Scan(nil))
	assert.Nil(t, fromNil)
}

func TestGzipBytesScanRejectsGarbage(t *testing.T) {
	t.Parallel()

	var g GzipBytes
	require.Error(t, g.Scan([]byte("not gzip")))
	require.Error(t, g.Scan(42))
}

func TestSourceRecordsFileApplyDefaults(t *testing.T) {
	t.Parallel()

	f := SourceRecordsFile{FileURI: "/data/dump.iso", Encoding: "cp1251"}
	f.ApplyDefaults()
	assert.Equal(t, DefaultFileFormat, f.Format)
	assert.Equal(t, DefaultFileSchema, f.Schema)
	assert.Equal(t, "cp1251", f.Encoding)
}
