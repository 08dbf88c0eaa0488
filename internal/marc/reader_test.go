package marc

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord(id, title string) *Record {
	rec := NewRecord()
	rec.AddField(
		NewControlField("001", id),
		NewControlField("005", "20240101120000.0"),
		NewDataField("200", "1 ", NewSubfield("a", title), NewSubfield("f", "Author")),
		NewDataField("010", "", NewSubfield("a", "978-5-00-000000-0")),
	)
	return rec
}

func encodeRecords(t *testing.T, opts []Option, recs ...*Record) []byte {
	t.Helper()

	var buf bytes.Buffer
	w, err := NewWriter(&buf, opts...)
	require.NoError(t, err)
	for _, rec := range recs {
		require.NoError(t, w.Write(rec))
	}
	require.NoError(t, w.Flush())
	return buf.Bytes()
}

func readAll(t *testing.T, data []byte, opts ...Option) []*Record {
	t.Helper()

	r, err := NewISO2709Reader(bytes.NewReader(data), opts...)
	require.NoError(t, err)
	var out []*Record
	for rec, err := range r.Records() {
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

func TestWriterReaderRoundTrip(t *testing.T) {
	t.Parallel()

	in := []*Record{sampleRecord("RU/1", "First"), sampleRecord("RU/2", "Second")}
	data := encodeRecords(t, nil, in...)

	out := readAll(t, data)
	require.Len(t, out, 2)
	for i, rec := range out {
		assert.Empty(t, rec.Errors())
		assert.Equal(t, in[i].Items, rec.Items)
		assert.Equal(t, "22", rec.Leader[10:12])
		assert.Equal(t, "4500", rec.Leader[20:24])
	}
	assert.Equal(t, "First", out[0].Fields("200")[0].Subfield("a").Data)
	assert.Equal(t, "  ", out[1].Fields("010")[0].Indicators)
}

func TestWriterLeaderLengths(t *testing.T) {
	t.Parallel()

	w, err := NewWriter(&bytes.Buffer{})
	require.NoError(t, err)
	raw, err := w.Encode(sampleRecord("1", "Title"))
	require.NoError(t, err)

	assert.Equal(t, byte(RecordTerminator), raw[len(raw)-1])
	assert.Equal(t, len(raw), mustAtoi(t, string(raw[0:5])))
	base := mustAtoi(t, string(raw[12:17]))
	assert.Equal(t, LeaderLength+4*DirectoryEntryLength+1, base)
	assert.Equal(t, byte(FieldTerminator), raw[base-1])
}

func TestWriterRejectsInvalidTag(t *testing.T) {
	t.Parallel()

	rec := NewRecord()
	rec.AddField(NewControlField("1", "x"))
	w, err := NewWriter(&bytes.Buffer{})
	require.NoError(t, err)
	assert.Error(t, w.Write(rec))
}

func TestReaderEmbeddedFields(t *testing.T) {
	t.Parallel()

	rec := NewRecord()
	rec.AddField(
		NewControlField("001", "parent"),
		NewDataField("461", " 0",
			NewEmbeddedSubfield("1", NewControlField("001", "series-1")),
			NewEmbeddedSubfield("1", NewDataField("200", "1 ",
				NewSubfield("a", "Series title"),
				NewSubfield("v", "3"),
			)),
		),
	)
	opts := []Option{WithExtendedSubfieldCode(SchemaRUSMARC.ExtendedSubfieldCode())}
	out := readAll(t, encodeRecords(t, opts, rec), opts...)
	require.Len(t, out, 1)

	link := out[0].Fields("461")[0]
	require.Len(t, link.Subfields, 2)
	assert.Equal(t, "001", link.Subfields[0].Field.Tag)
	assert.Equal(t, "series-1", link.Subfields[0].Field.Data)

	title := link.Subfields[1].Field
	require.NotNil(t, title)
	assert.Equal(t, "200", title.Tag)
	assert.Equal(t, "1 ", title.Indicators)
	assert.Equal(t, "Series title", title.Subfield("a").Data)
	assert.Equal(t, "3", title.Subfield("v").Data)
}

func TestReaderWithoutExtendedCodeKeepsFlatSubfields(t *testing.T) {
	t.Parallel()

	rec := NewRecord()
	rec.AddField(NewDataField("461", " 0", NewEmbeddedSubfield("1", NewControlField("001", "x"))))
	data := encodeRecords(t, []Option{WithExtendedSubfieldCode('1')}, rec)

	out := readAll(t, data)
	require.Len(t, out, 1)
	sf := out[0].Fields("461")[0].Subfields[0]
	assert.Nil(t, sf.Field)
	assert.Equal(t, "001x", sf.Data)
}

func TestReaderDecodesLegacyEncoding(t *testing.T) {
	t.Parallel()

	in := sampleRecord("1", "Война и мир")
	opts := []Option{WithEncoding("cp1251")}
	data := encodeRecords(t, opts, in)
	assert.NotContains(t, string(data), "Война", "dump is not utf-8")

	out := readAll(t, data, opts...)
	require.Len(t, out, 1)
	assert.Equal(t, "Война и мир", out[0].Fields("200")[0].Subfield("a").Data)
}

func TestWithEncodingUnknown(t *testing.T) {
	t.Parallel()

	_, err := NewISO2709Reader(bytes.NewReader(nil), WithEncoding("no-such-charset"))
	assert.Error(t, err)
}

func TestReaderIndexAndOffset(t *testing.T) {
	t.Parallel()

	first := encodeRecords(t, nil, sampleRecord("1", "A"))
	data := append(append([]byte{}, first...), '\r', '\n')
	data = append(data, encodeRecords(t, nil, sampleRecord("2", "B"))...)

	r, err := NewISO2709Reader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, -1, r.Index())

	var offsets []int64
	var indexes []int
	for _, err := range r.Records() {
		require.NoError(t, err)
		offsets = append(offsets, r.Offset())
		indexes = append(indexes, r.Index())
	}
	assert.Equal(t, []int{0, 1}, indexes)
	assert.Equal(t, []int64{0, int64(len(first) + 2)}, offsets)
}

func TestReaderResyncsAfterMalformedRecord(t *testing.T) {
	t.Parallel()

	good := encodeRecords(t, nil, sampleRecord("1", "A"))
	bad := []byte("garbage that is not a record at all")
	bad = append(bad, RecordTerminator)
	data := append(append(append([]byte{}, good...), bad...), good...)

	out := readAll(t, data)
	require.Len(t, out, 3)
	assert.Empty(t, out[0].Errors())
	assert.NotEmpty(t, out[1].Errors())
	assert.Empty(t, out[2].Errors())
}

func TestReaderDetectsBrokenStructure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mangle func([]byte) []byte
	}{
		{"short record", func([]byte) []byte { return []byte("0001\x1d") }},
		{"length mismatch", func(b []byte) []byte { copy(b[0:5], "00010"); return b }},
		{"bad base address", func(b []byte) []byte { copy(b[12:17], "abcde"); return b }},
		{"field out of bounds", func(b []byte) []byte { copy(b[LeaderLength+3:LeaderLength+7], "9999"); return b }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			data := tt.mangle(encodeRecords(t, nil, sampleRecord("1", "A")))
			out := readAll(t, data)
			require.Len(t, out, 1)
			assert.NotEmpty(t, out[0].Errors())
		})
	}
}

func TestReaderUnterminatedTail(t *testing.T) {
	t.Parallel()

	data := encodeRecords(t, nil, sampleRecord("1", "A"))
	data = append(data, []byte("00099nam")...)

	out := readAll(t, data)
	require.Len(t, out, 2)
	assert.Empty(t, out[0].Errors())
	require.NotEmpty(t, out[1].Errors())
}

func TestReaderIgnoresTrailingNewline(t *testing.T) {
	t.Parallel()

	data := append(encodeRecords(t, nil, sampleRecord("1", "A")), '\n')
	assert.Len(t, readAll(t, data), 1)
}

func TestReaderStopsEarly(t *testing.T) {
	t.Parallel()

	data := encodeRecords(t, nil, sampleRecord("1", "A"), sampleRecord("2", "B"), sampleRecord("3", "C"))
	r, err := NewISO2709Reader(bytes.NewReader(data))
	require.NoError(t, err)

	for range r.Records() {
		if r.Index() == 1 {
			break
		}
	}
	assert.Equal(t, 1, r.Index())
}

func TestTotalRecords(t *testing.T) {
	t.Parallel()

	data := encodeRecords(t, nil, sampleRecord("1", "A"), sampleRecord("2", "B"), sampleRecord("3", "C"))
	src := bytes.NewReader(data)
	r, err := NewISO2709Reader(src)
	require.NoError(t, err)

	_, err = src.Seek(5, io.SeekStart)
	require.NoError(t, err)
	total, err := r.TotalRecords()
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	pos, err := src.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(5), pos, "position is restored")

	empty, err := NewISO2709Reader(strings.NewReader(""))
	require.NoError(t, err)
	total, err = empty.TotalRecords()
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestFormatAndSchema(t *testing.T) {
	t.Parallel()

	f, err := ParseFormat("ISO2709")
	require.NoError(t, err)
	assert.Equal(t, FormatISO2709, f)
	assert.Equal(t, "iso2709", f.String())

	_, err = ParseFormat("marcxml")
	require.ErrorIs(t, err, ErrUnknownFormat)

	s, err := ParseSchema(" RUSMARC ")
	require.NoError(t, err)
	assert.Equal(t, SchemaRUSMARC, s)
	assert.Equal(t, byte('1'), s.ExtendedSubfieldCode())

	_, err = ParseSchema("usmarc")
	require.ErrorIs(t, err, ErrUnknownSchema)

	r, err := f.NewReader(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.NotNil(t, r)
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	require.NoError(t, err)
	return n
}
