package entities

import (
	"bytes"
	"compress/gzip"
	"database/sql/driver"
	"fmt"
	"io"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// GzipLevel is the compression level used for record contents.
const GzipLevel = 7

// GzipBytes is a byte payload stored gzip-compressed and returned decompressed.
type GzipBytes []byte

// Value compresses the payload for storage.
func (g GzipBytes) Value() (driver.Value, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, GzipLevel)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(g); err != nil {
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

// Scan decompresses a stored payload.
func (g *GzipBytes) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*g = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for GzipBytes", src)
	}

	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("gzip header: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return fmt.Errorf("gzip read: %w", err)
	}
	*g = data
	return nil
}

// GormDataType returns the generic GORM data type.
func (GzipBytes) GormDataType() string {
	return "bytes"
}

// GormDBDataType picks a column type large enough for whole records.
func (GzipBytes) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "mysql" {
		return "LONGBLOB"
	}
	return "BLOB"
}
