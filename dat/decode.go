package dat

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DecodeBytes converts raw fixture bytes to text. A UTF-8 or UTF-16
// byte-order mark selects the corresponding decoding (the mark itself is
// stripped). Without a mark, valid UTF-8 is used as-is; anything else
// falls back to Latin-1, which maps every byte 1:1 to a codepoint.
// Some fixture corpora deliberately contain bytes that are not valid
// UTF-8, so decoding never fails.
func DecodeBytes(raw []byte) string {
	switch {
	case bytes.HasPrefix(raw, bomUTF8):
		out, _ := unicode.UTF8BOM.NewDecoder().Bytes(raw)
		return string(out)
	case bytes.HasPrefix(raw, bomUTF16LE), bytes.HasPrefix(raw, bomUTF16BE):
		out, _ := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().Bytes(raw)
		return string(out)
	case utf8.Valid(raw):
		return string(raw)
	}
	out, _ := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	return string(out)
}
