package marc

import (
	"fmt"
	"io"
	"strings"

	"github.com/tphakala/marcharvest/internal/errors"
)

var (
	// ErrUnknownFormat is returned by ParseFormat for unsupported formats.
	ErrUnknownFormat = errors.NewStd("unknown record format")
	// ErrUnknownSchema is returned by ParseSchema for unsupported schemas.
	ErrUnknownSchema = errors.NewStd("unknown record schema")
)

// Format is a dump file format.
type Format int

const (
	FormatISO2709 Format = iota + 1
)

// ParseFormat resolves a format name, case-insensitively.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "iso2709":
		return FormatISO2709, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
}

func (f Format) String() string {
	switch f {
	case FormatISO2709:
		return "iso2709"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// NewReader creates a reader for the format over src.
func (f Format) NewReader(src io.ReadSeeker, opts ...Option) (Reader, error) {
	switch f {
	case FormatISO2709:
		r, err := NewISO2709Reader(src, opts...)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, f)
	}
}

// Schema is the field semantics of a dump.
type Schema int

const (
	SchemaRUSMARC Schema = iota + 1
)

// ParseSchema resolves a schema name, case-insensitively.
func ParseSchema(name string) (Schema, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "rusmarc":
		return SchemaRUSMARC, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownSchema, name)
	}
}

func (s Schema) String() string {
	switch s {
	case SchemaRUSMARC:
		return "rusmarc"
	default:
		return fmt.Sprintf("Schema(%d)", int(s))
	}
}

// ExtendedSubfieldCode returns the subfield code that embeds fields, or 0.
func (s Schema) ExtendedSubfieldCode() byte {
	if s == SchemaRUSMARC {
		return '1'
	}
	return 0
}
