// Package marc reads, writes and renders ISO2709 bibliographic records.
//
// Records are streamed from a dump file one at a time:
//
//	reader, err := marc.FormatISO2709.NewReader(f, marc.WithEncoding("cp1251"),
//	    marc.WithExtendedSubfieldCode(marc.SchemaRUSMARC.ExtendedSubfieldCode()))
//	for rec, err := range reader.Records() {
//	    if err != nil {
//	        return err // I/O failure, the stream is over
//	    }
//	    if len(rec.Errors()) > 0 {
//	        continue // malformed record, the stream goes on
//	    }
//	    dump, _ := rec.Dump()
//	}
//
// RUSMARC embeds whole fields inside linking fields through an extended
// subfield code ('1'). Such subfields carry an embedded Field instead of data.
package marc

import (
	"encoding/json"
	"fmt"
)

// Structural bytes of ISO2709.
const (
	SubfieldDelimiter = 0x1F
	FieldTerminator   = 0x1E
	RecordTerminator  = 0x1D

	LeaderLength         = 24
	DirectoryEntryLength = 12
)

// Subfield is one coded element of a data field. With the extended subfield
// code it holds an embedded field and no data.
type Subfield struct {
	Code  string `json:"code"`
	Data  string `json:"data,omitempty"`
	Field *Field `json:"field,omitempty"`
}

// Field is a control field (tags 001-009) or a data field.
type Field struct {
	Tag        string      `json:"tag"`
	Data       string      `json:"data,omitempty"`       // control fields only
	Indicators string      `json:"indicators,omitempty"` // two characters, data fields only
	Subfields  []*Subfield `json:"subfields,omitempty"`
}

// NewControlField creates a control field.
func NewControlField(tag, data string) *Field {
	return &Field{Tag: tag, Data: data}
}

// NewDataField creates a data field. Missing indicators are padded with blanks.
func NewDataField(tag, indicators string, subfields ...*Subfield) *Field {
	return &Field{Tag: tag, Indicators: normalizeIndicators(indicators), Subfields: subfields}
}

// NewSubfield creates a data subfield.
func NewSubfield(code, data string) *Subfield {
	return &Subfield{Code: code, Data: data}
}

// NewEmbeddedSubfield creates a subfield carrying an embedded field.
func NewEmbeddedSubfield(code string, f *Field) *Subfield {
	return &Subfield{Code: code, Field: f}
}

// IsControl reports whether the field is a control field.
func (f *Field) IsControl() bool {
	return isControlTag(f.Tag)
}

// Subfield returns the first subfield with code, or nil.
func (f *Field) Subfield(code string) *Subfield {
	for _, sf := range f.Subfields {
		if sf.Code == code {
			return sf
		}
	}
	return nil
}

func isControlTag(tag string) bool {
	return len(tag) == 3 && tag[0] == '0' && tag[1] == '0'
}

func normalizeIndicators(ind string) string {
	switch len(ind) {
	case 0:
		return "  "
	case 1:
		return ind + " "
	case 2:
		return ind
	default:
		return ind[:2]
	}
}

// Fielder gives access to fields by tag.
type Fielder interface {
	Fields(tag string) []*Field
}

// Record is one bibliographic record: a leader and fields in declaration order.
type Record struct {
	Leader string   `json:"leader"`
	Items  []*Field `json:"fields"`

	errs []error
}

// NewRecord creates an empty record with a blank bibliographic leader.
func NewRecord() *Record {
	return &Record{Leader: "     nam0 22        450 "}
}

// AddField appends fields in order.
func (r *Record) AddField(fields ...*Field) {
	r.Items = append(r.Items, fields...)
}

// Fields returns the fields with tag in declaration order. An empty tag returns all fields.
func (r *Record) Fields(tag string) []*Field {
	if tag == "" {
		return r.Items
	}
	var out []*Field
	for _, f := range r.Items {
		if f.Tag == tag {
			out = append(out, f)
		}
	}
	return out
}

// ControlFields returns the control fields in declaration order.
func (r *Record) ControlFields() []*Field {
	var out []*Field
	for _, f := range r.Items {
		if f.IsControl() {
			out = append(out, f)
		}
	}
	return out
}

// DataFields returns the data fields in declaration order.
func (r *Record) DataFields() []*Field {
	var out []*Field
	for _, f := range r.Items {
		if !f.IsControl() {
			out = append(out, f)
		}
	}
	return out
}

// Errors returns the problems found while decoding the record.
func (r *Record) Errors() []error {
	return r.errs
}

func (r *Record) addError(format string, args ...any) {
	r.errs = append(r.errs, fmt.Errorf(format, args...))
}

// Dump returns the canonical JSON serialization of the record: the leader and
// the fields in declaration order. Equal records always dump to equal bytes.
func (r *Record) Dump() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("dump record: %w", err)
	}
	return data, nil
}
