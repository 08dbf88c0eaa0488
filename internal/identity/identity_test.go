package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/marcharvest/internal/marc"
)

func record(fields ...*marc.Field) *marc.Record {
	rec := marc.NewRecord()
	rec.AddField(fields...)
	return rec
}

func TestDerive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		rec        *marc.Record
		dump       string
		wantID     string
		wantOrigID string
	}{
		{
			name:       "original id",
			rec:        record(marc.NewControlField("001", "RU/NLR/1")),
			dump:       "dump",
			wantID:     md5Hex([]byte("RU/NLR/1")),
			wantOrigID: "RU/NLR/1",
		},
		{
			name:       "first non-empty 001 wins",
			rec:        record(marc.NewControlField("001", ""), marc.NewControlField("001", "b"), marc.NewControlField("001", "c")),
			dump:       "dump",
			wantID:     md5Hex([]byte("b")),
			wantOrigID: "b",
		},
		{
			name:   "no 001 falls back to hash",
			rec:    record(marc.NewDataField("200", "1 ", marc.NewSubfield("a", "Title"))),
			dump:   "dump",
			wantID: md5Hex([]byte("dump")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Derive(tt.rec, []byte(tt.dump))
			assert.Equal(t, tt.wantID, got.ID)
			assert.Equal(t, tt.wantOrigID, got.OriginalID)
			assert.Equal(t, md5Hex([]byte(tt.dump)), got.Hash)
			assert.Len(t, got.ID, 32)
		})
	}
}

func TestDeriveKnownDigest(t *testing.T) {
	t.Parallel()

	got := Derive(record(), []byte(""))
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", got.Hash)
	assert.Equal(t, got.Hash, got.ID)
}

func TestDeriveIsStableAcrossContentChanges(t *testing.T) {
	t.Parallel()

	v1 := record(marc.NewControlField("001", "42"), marc.NewDataField("200", "1 ", marc.NewSubfield("a", "Old")))
	v2 := record(marc.NewControlField("001", "42"), marc.NewDataField("200", "1 ", marc.NewSubfield("a", "New")))

	d1, err := v1.Dump()
	require.NoError(t, err)
	d2, err := v2.Dump()
	require.NoError(t, err)

	a, b := Derive(v1, d1), Derive(v2, d2)
	assert.Equal(t, a.ID, b.ID)
	assert.NotEqual(t, a.Hash, b.Hash)
}
