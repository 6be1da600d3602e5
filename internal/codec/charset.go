package codec

import (
	"bytes"
	"io"
	"mime"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// DecodeBody converts a response body to UTF-8 text.
// Bodies declared as ISO-8859-1 or windows-1252, and undeclared bodies that
// are not valid UTF-8, are transcoded; everything else is returned as is.
func DecodeBody(body []byte, contentType string) string {
	dec := decoderFor(contentType)
	if dec == nil {
		if utf8.Valid(body) {
			return string(body)
		}
		dec = charmap.ISO8859_1.NewDecoder()
	}

	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(body), dec))
	if err != nil {
		return string(body)
	}
	return string(out)
}

func decoderFor(contentType string) *encoding.Decoder {
	if contentType == "" {
		return nil
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil
	}
	switch strings.ToLower(params["charset"]) {
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder()
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder()
	default:
		return nil
	}
}
