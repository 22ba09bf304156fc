// Package tabular splits delimited bank exports into rows and fields.
//
// It does not infer headers and never fails: malformed quoting is absorbed
// to the end of the line.
package tabular

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// DefaultDelimiter is the field separator used by most French bank exports.
const DefaultDelimiter = ';'

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode splits text into rows of trimmed fields. Blank lines are dropped.
func Decode(text string, delim rune) [][]string {
	if delim == 0 {
		delim = DefaultDelimiter
	}

	var rows [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, splitLine(line, delim))
	}
	return rows
}

// DecodeBytes strips a UTF-8 BOM, transcodes Windows-1252 input that is not
// valid UTF-8, and decodes the result.
func DecodeBytes(data []byte, delim rune) [][]string {
	return Decode(ToUTF8(data), delim)
}

// ToUTF8 returns data as UTF-8 text. Exports that are not valid UTF-8 are
// assumed to be Windows-1252, the encoding most bank portals still emit.
func ToUTF8(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(decoded)
}

func splitLine(line string, delim rune) []string {
	var (
		fields   []string
		field    strings.Builder
		inQuotes bool
	)
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				field.WriteRune('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case r == delim && !inQuotes:
			fields = append(fields, strings.TrimSpace(field.String()))
			field.Reset()
		default:
			field.WriteRune(r)
		}
	}
	return append(fields, strings.TrimSpace(field.String()))
}

// Field returns row[i] or "" when the row is too short.
func Field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
