package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"fjacquet/stmt-ingest/internal/models"
	"fjacquet/stmt-ingest/internal/parsererror"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const snippetLength = 40

// decodeUpload turns the uploaded bytes into text. UTF-16 uploads must carry
// a byte order mark; everything else must be valid UTF-8. A leading UTF-8 BOM
// is dropped.
func decodeUpload(data []byte) (string, error) {
	var decoded []byte
	var err error

	if hasUTF16BOM(data) {
		decoded, _, err = transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		if err != nil {
			return "", invalidEncoding(data, err)
		}
	} else {
		if !utf8.Valid(data) {
			return "", invalidEncoding(data, errors.New("byte stream is not valid UTF-8"))
		}
		decoded, _, err = transform.Bytes(unicode.UTF8BOM.NewDecoder(), data)
		if err != nil {
			return "", invalidEncoding(data, err)
		}
	}

	if bytes.IndexByte(decoded, 0) >= 0 {
		return "", invalidEncoding(data, errors.New("upload contains NUL bytes"))
	}
	return string(decoded), nil
}

func hasUTF16BOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xFE, 0xFF}) || bytes.HasPrefix(data, []byte{0xFF, 0xFE})
}

func invalidEncoding(data []byte, err error) error {
	return &parsererror.InvalidFormatError{
		ExpectedFormat:       "UTF-8 or UTF-16 (with BOM) delimited text",
		ActualContentSnippet: snippet(string(bytes.ToValidUTF8(data, []byte("?")))),
		Msg:                  "undecodable byte stream",
		Err:                  err,
	}
}

// readTable parses delimited text with standard quoting rules. Blank rows are
// dropped; lines holds the 1-based file line of each kept row.
func readTable(text string, delimiter rune) (models.RawTable, []int, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delimiter
	r.FieldsPerRecord = -1

	var table models.RawTable
	var lines []int
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			msg := "malformed delimited text"
			if errors.As(err, &pe) {
				msg = "malformed delimited text near line " + strconv.Itoa(pe.StartLine)
			}
			return nil, nil, &parsererror.InvalidFormatError{
				ExpectedFormat:       "comma-separated values",
				ActualContentSnippet: snippet(text),
				Msg:                  msg,
				Err:                  err,
			}
		}
		row := models.RawRow(record)
		if row.IsBlank() {
			continue
		}
		line, _ := r.FieldPos(0)
		table = append(table, row)
		lines = append(lines, line)
	}
	return table, lines, nil
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= snippetLength {
		return s
	}
	cut := snippetLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
