package marc

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// Writer encodes records as ISO2709.
type Writer struct {
	w       *bufio.Writer
	codec   codec
	extCode byte
}

// NewWriter creates a writer over w. Call Flush when done.
func NewWriter(w io.Writer, opts ...Option) (*Writer, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Writer{w: bufio.NewWriter(w), codec: newCodec(o.enc), extCode: o.extCode}, nil
}

// Write encodes one record. The leader's length, base address and entry map
// are recomputed.
func (w *Writer) Write(rec *Record) error {
	raw, err := w.Encode(rec)
	if err != nil {
		return err
	}
	_, err = w.w.Write(raw)
	return err
}

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// Encode returns the ISO2709 bytes of rec.
func (w *Writer) Encode(rec *Record) ([]byte, error) {
	var directory, data bytes.Buffer

	for _, f := range rec.Items {
		if len(f.Tag) != 3 {
			return nil, fmt.Errorf("invalid tag %q", f.Tag)
		}
		body, err := w.encodeField(f)
		if err != nil {
			return nil, fmt.Errorf("encode field %s: %w", f.Tag, err)
		}
		body = append(body, FieldTerminator)
		if len(body) > 9999 || data.Len() > 99999 {
			return nil, fmt.Errorf("field %s does not fit the directory", f.Tag)
		}
		fmt.Fprintf(&directory, "%s%04d%05d", f.Tag, len(body), data.Len())
		data.Write(body)
	}
	directory.WriteByte(FieldTerminator)
	data.WriteByte(RecordTerminator)

	baseAddress := LeaderLength + directory.Len()
	total := baseAddress + data.Len()
	if total > 99999 {
		return nil, fmt.Errorf("record of %d bytes is too long", total)
	}

	leader := []byte(rec.Leader)
	if len(leader) < LeaderLength {
		leader = append(leader, bytes.Repeat([]byte{' '}, LeaderLength-len(leader))...)
	}
	leader = leader[:LeaderLength]
	copy(leader[0:5], fmt.Sprintf("%05d", total))
	copy(leader[10:12], "22")
	copy(leader[12:17], fmt.Sprintf("%05d", baseAddress))
	copy(leader[20:24], "4500")

	out := make([]byte, 0, total)
	out = append(out, leader...)
	out = append(out, directory.Bytes()...)
	out = append(out, data.Bytes()...)
	return out, nil
}

func (w *Writer) encodeField(f *Field) ([]byte, error) {
	if f.IsControl() {
		return w.codec.encode(f.Data)
	}

	var sb bytes.Buffer
	sb.WriteString(normalizeIndicators(f.Indicators))
	w.writeSubfields(&sb, f.Subfields)
	return w.codec.encode(sb.String())
}

func (w *Writer) writeSubfields(sb *bytes.Buffer, subfields []*Subfield) {
	for _, sf := range subfields {
		sb.WriteByte(SubfieldDelimiter)
		sb.WriteString(sf.Code)
		if sf.Field == nil {
			sb.WriteString(sf.Data)
			continue
		}
		sb.WriteString(sf.Field.Tag)
		if sf.Field.IsControl() {
			sb.WriteString(sf.Field.Data)
			continue
		}
		sb.WriteString(normalizeIndicators(sf.Field.Indicators))
		w.writeSubfields(sb, sf.Field.Subfields)
	}
}
