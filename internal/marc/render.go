package marc

import (
	"html"
	"strings"
)

// HTML renders the record as an HTML fragment.
func (r *Record) HTML() string {
	var sb strings.Builder
	sb.WriteString(`<div class="record">`)
	sb.WriteString(`<div class="leader">`)
	sb.WriteString(html.EscapeString(r.Leader))
	sb.WriteString(`</div>`)
	for _, f := range r.Items {
		writeFieldHTML(&sb, f)
	}
	sb.WriteString(`</div>`)
	return sb.String()
}

func writeFieldHTML(sb *strings.Builder, f *Field) {
	sb.WriteString(`<div class="field"><span class="tag">`)
	sb.WriteString(html.EscapeString(f.Tag))
	sb.WriteString(`</span>`)
	if f.IsControl() {
		sb.WriteString(` <span class="data">`)
		sb.WriteString(html.EscapeString(f.Data))
		sb.WriteString(`</span></div>`)
		return
	}
	sb.WriteString(` <span class="indicators">`)
	sb.WriteString(html.EscapeString(displayIndicators(f.Indicators)))
	sb.WriteString(`</span>`)
	for _, sf := range f.Subfields {
		sb.WriteString(` <span class="subfield"><b>$`)
		sb.WriteString(html.EscapeString(sf.Code))
		sb.WriteString(`</b>`)
		if sf.Field != nil {
			writeFieldHTML(sb, sf.Field)
		} else {
			sb.WriteString(html.EscapeString(sf.Data))
		}
		sb.WriteString(`</span>`)
	}
	sb.WriteString(`</div>`)
}

// String renders the record as plain text, one field per line.
func (r *Record) String() string {
	var sb strings.Builder
	sb.WriteString("LDR ")
	sb.WriteString(r.Leader)
	for _, f := range r.Items {
		sb.WriteByte('\n')
		sb.WriteString(f.String())
	}
	return sb.String()
}

// String renders the field as "tag indicators $a..." with blank indicators shown as '#'.
func (f *Field) String() string {
	if f.IsControl() {
		return f.Tag + " " + f.Data
	}
	var sb strings.Builder
	sb.WriteString(f.Tag)
	sb.WriteByte(' ')
	sb.WriteString(displayIndicators(f.Indicators))
	sb.WriteByte(' ')
	for _, sf := range f.Subfields {
		sb.WriteByte('$')
		sb.WriteString(sf.Code)
		if sf.Field != nil {
			sb.WriteString(sf.Field.String())
			continue
		}
		sb.WriteString(sf.Data)
	}
	return sb.String()
}

func displayIndicators(ind string) string {
	return strings.ReplaceAll(normalizeIndicators(ind), " ", "#")
}
