package marc

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// LookupEncoding resolves a WHATWG encoding label such as utf-8, cp1251 or koi8-r.
// An empty label means utf-8.
func LookupEncoding(label string) (encoding.Encoding, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	return enc, nil
}

// codec converts between the file encoding and UTF-8.
type codec struct {
	enc  encoding.Encoding
	utf8 bool
}

func newCodec(enc encoding.Encoding) codec {
	return codec{enc: enc, utf8: enc == nil || enc == unicode.UTF8}
}

func (c codec) decode(b []byte) (string, error) {
	if c.utf8 {
		return string(b), nil
	}
	out, _, err := transform.Bytes(c.enc.NewDecoder(), b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (c codec) encode(s string) ([]byte, error) {
	if c.utf8 {
		return []byte(s), nil
	}
	out, _, err := transform.Bytes(c.enc.NewEncoder(), []byte(s))
	if err != nil {
		return nil, err
	}
	return out, nil
}
