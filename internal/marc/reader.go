package marc

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"

	"golang.org/x/text/encoding"
)

// Reader streams records from a dump.
type Reader interface {
	// TotalRecords estimates the number of records in the dump.
	TotalRecords() (int, error)
	// Records yields records in file order. It is single-pass and lazy.
	// A non-nil error ends the stream; malformed records are yielded with
	// Errors() set instead.
	Records() iter.Seq2[*Record, error]
	// Index returns the 0-based index of the last yielded record.
	Index() int
	// Offset returns the byte offset where the last yielded record starts.
	Offset() int64
}

// Option configures a reader or writer.
type Option func(*options) error

type options struct {
	enc     encoding.Encoding
	extCode byte
}

// WithEncoding sets the text encoding of the dump by label.
func WithEncoding(label string) Option {
	return func(o *options) error {
		enc, err := LookupEncoding(label)
		if err != nil {
			return err
		}
		o.enc = enc
		return nil
	}
}

// WithExtendedSubfieldCode sets the subfield code that embeds fields. 0 disables embedding.
func WithExtendedSubfieldCode(code byte) Option {
	return func(o *options) error {
		o.extCode = code
		return nil
	}
}

func buildOptions(opts []Option) (options, error) {
	var o options
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return o, err
		}
	}
	return o, nil
}

const readBufferSize = 64 * 1024

// ISO2709Reader decodes ISO2709 records.
type ISO2709Reader struct {
	src     io.ReadSeeker
	codec   codec
	extCode byte
	index   int
	offset  int64
}

// NewISO2709Reader creates a reader over src.
func NewISO2709Reader(src io.ReadSeeker, opts ...Option) (*ISO2709Reader, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return &ISO2709Reader{
		src:     src,
		codec:   newCodec(o.enc),
		extCode: o.extCode,
		index:   -1,
		offset:  -1,
	}, nil
}

// TotalRecords counts record terminators. The read position is restored.
func (r *ISO2709Reader) TotalRecords() (int, error) {
	pos, err := r.src.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	defer func() { _, _ = r.src.Seek(pos, io.SeekStart) }()

	if _, err := r.src.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	total := 0
	buf := make([]byte, readBufferSize)
	for {
		n, err := r.src.Read(buf)
		total += bytes.Count(buf[:n], []byte{RecordTerminator})
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// Index returns the 0-based index of the last yielded record, -1 before the first.
func (r *ISO2709Reader) Index() int {
	return r.index
}

// Offset returns the start offset of the last yielded record, -1 before the first.
func (r *ISO2709Reader) Offset() int64 {
	return r.offset
}

// Records yields records from the start of the source.
func (r *ISO2709Reader) Records() iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		if _, err := r.src.Seek(0, io.SeekStart); err != nil {
			yield(nil, fmt.Errorf("rewind: %w", err))
			return
		}
		r.index, r.offset = -1, -1

		br := bufio.NewReaderSize(r.src, readBufferSize)
		var pos int64
		for {
			raw, err := br.ReadBytes(RecordTerminator)
			start := pos
			pos += int64(len(raw))

			// Line breaks between records are tolerated
			trimmed := bytes.TrimLeft(raw, "\r\n")
			start += int64(len(raw) - len(trimmed))

			if errors.Is(err, io.EOF) {
				if len(bytes.TrimSpace(trimmed)) == 0 {
					return
				}
				r.index++
				r.offset = start
				rec := r.decode(trimmed)
				rec.addError("record is not terminated")
				yield(rec, nil)
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("read record at offset %d: %w", start, err))
				return
			}

			r.index++
			r.offset = start
			if !yield(r.decode(trimmed), nil) {
				return
			}
		}
	}
}

// decode parses one raw record including its terminator.
func (r *ISO2709Reader) decode(raw []byte) *Record {
	rec := &Record{}

	if len(raw) < LeaderLength {
		rec.Leader = string(raw)
		rec.addError("record of %d bytes is shorter than the leader", len(raw))
		return rec
	}
	leader := raw[:LeaderLength]
	rec.Leader = string(leader)

	recordLength, err := strconv.Atoi(string(leader[0:5]))
	if err != nil {
		rec.addError("invalid record length %q in leader", leader[0:5])
	} else if recordLength != len(raw) {
		rec.addError("leader record length %d does not match actual %d", recordLength, len(raw))
	}

	baseAddress, err := strconv.Atoi(string(leader[12:17]))
	if err != nil || baseAddress <= LeaderLength || baseAddress > len(raw) {
		rec.addError("invalid base address %q in leader", leader[12:17])
		return rec
	}

	lengthOfLength, err1 := strconv.Atoi(string(leader[20:21]))
	lengthOfStart, err2 := strconv.Atoi(string(leader[21:22]))
	if err1 != nil || err2 != nil || lengthOfLength == 0 || lengthOfStart == 0 {
		// Fall back to the usual 4500 entry map
		lengthOfLength, lengthOfStart = 4, 5
	}
	entryLength := 3 + lengthOfLength + lengthOfStart

	directory := raw[LeaderLength : baseAddress-1]
	if raw[baseAddress-1] != FieldTerminator {
		rec.addError("directory is not terminated")
	}
	if len(directory)%entryLength != 0 {
		rec.addError("directory length %d is not a multiple of %d", len(directory), entryLength)
	}

	data := raw[baseAddress:]
	for i := 0; i+entryLength <= len(directory); i += entryLength {
		entry := directory[i : i+entryLength]
		tag := string(entry[:3])
		length, errL := strconv.Atoi(string(entry[3 : 3+lengthOfLength]))
		start, errS := strconv.Atoi(string(entry[3+lengthOfLength:]))
		if errL != nil || errS != nil {
			rec.addError("invalid directory entry %q", entry)
			continue
		}
		if start < 0 || length <= 0 || start+length > len(data) {
			rec.addError("field %s at %d+%d is out of bounds", tag, start, length)
			continue
		}

		body := data[start : start+length]
		if body[len(body)-1] != FieldTerminator {
			rec.addError("field %s is not terminated", tag)
		} else {
			body = body[:len(body)-1]
		}

		field, err := r.decodeField(tag, body)
		if err != nil {
			rec.addError("field %s: %v", tag, err)
			continue
		}
		rec.Items = append(rec.Items, field)
	}

	return rec
}

// decodeField parses the body of a field without its terminator.
func (r *ISO2709Reader) decodeField(tag string, body []byte) (*Field, error) {
	text, err := r.codec.decode(body)
	if err != nil {
		return nil, err
	}

	if isControlTag(tag) {
		return NewControlField(tag, text), nil
	}

	parts := splitSubfields(text)
	field := &Field{Tag: tag, Indicators: normalizeIndicators(parts[0])}
	r.appendSubfields(field, parts[1:])
	return field, nil
}

// appendSubfields adds raw "code+data" parts to field, grouping the parts that
// follow an extended subfield into its embedded field.
func (r *ISO2709Reader) appendSubfields(field *Field, parts []string) {
	var embedded *Field
	for _, part := range parts {
		if part == "" {
			continue
		}
		code, value := part[:1], part[1:]

		if r.extCode != 0 && code[0] == r.extCode {
			embedded = parseEmbeddedField(value)
			field.Subfields = append(field.Subfields, NewEmbeddedSubfield(code, embedded))
			continue
		}
		if embedded != nil && !embedded.IsControl() {
			embedded.Subfields = append(embedded.Subfields, NewSubfield(code, value))
			continue
		}
		field.Subfields = append(field.Subfields, NewSubfield(code, value))
	}
}

// parseEmbeddedField parses "tag + data" or "tag + indicators" of an extended subfield.
func parseEmbeddedField(value string) *Field {
	if len(value) < 3 {
		return &Field{Tag: value}
	}
	tag, rest := value[:3], value[3:]
	if isControlTag(tag) {
		return NewControlField(tag, rest)
	}
	ind := rest
	if len(ind) > 2 {
		ind = ind[:2]
	}
	return NewDataField(tag, ind)
}

// splitSubfields splits field text on the subfield delimiter. The first part
// holds the indicators.
func splitSubfields(text string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == SubfieldDelimiter {
			parts = append(parts, text[start:i])
			start = i + 1
		}
	}
	return append(parts, text[start:])
}

var _ Reader = (*ISO2709Reader)(nil)
