package fetcher

import (
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DecodeReader wraps r so that it yields UTF-8 text. Statistics Canada
// extracts ship as UTF-8 with a byte-order mark or as Windows-1252; for
// UTF-8 input the leading BOM is dropped.
func DecodeReader(r io.Reader, enc string) (io.Reader, error) {
	var dec *encoding.Decoder
	switch strings.ToLower(strings.TrimSpace(enc)) {
	case "", "utf-8", "utf8":
		dec = unicode.UTF8BOM.NewDecoder()
	case "latin1", "iso-8859-1":
		dec = charmap.ISO8859_1.NewDecoder()
	case "windows-1252", "cp1252":
		dec = charmap.Windows1252.NewDecoder()
	default:
		return nil, eris.Errorf("decode: unsupported encoding %q", enc)
	}
	return transform.NewReader(r, dec), nil
}
