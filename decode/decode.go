// Package decode reads dropped data files into frames. Supported formats are
// CSV and delimited TXT (delimiter sniffed from the header line) and JSON in
// records orientation. Expected failure classes — missing file, empty file,
// malformed content, unsupported extension — are reported as ok=false and
// logged; Decode never panics on bad input.
package decode

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nexabank/bankfeed/frame"
	"github.com/nexabank/bankfeed/logger"
)

// Decode reads the file at path into a frame. The boolean is false for every
// expected failure class; the frame is nil in that case.
func Decode(path string) (bool, *frame.Frame) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warnw("Cannot read file", "path", path, "error", err)
		return false, nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		logger.Warnw("File is empty", "path", path)
		return false, nil
	}

	var fr *frame.Frame
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case "json":
		fr, err = decodeJSON(data)
	case "csv", "txt":
		fr, err = decodeDelimited(data)
	default:
		logger.Warnw("Unsupported file extension", "path", path, "extension", ext)
		return false, nil
	}
	if err != nil {
		logger.Warnw("Cannot decode file", "path", path, "error", err)
		return false, nil
	}
	return true, fr
}

// decodeDelimited parses CSV/TXT content. The first record is the header.
func decodeDelimited(data []byte) (*frame.Frame, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errEmpty
	}

	header := records[0]
	rows := records[1:]

	// Column-wise type inference: a column is int64 only if every cell parses
	// as an integer, float64 only if every cell parses as a number, otherwise
	// it stays text.
	kinds := make([]frame.Kind, len(header))
	for c := range header {
		kinds[c] = inferColumnKind(rows, c)
	}

	fr, err := frame.New(header)
	if err != nil {
		return nil, err
	}
	for _, rec := range rows {
		values := make([]any, len(header))
		for c, cell := range rec {
			values[c] = coerce(cell, kinds[c])
		}
		if err := fr.AppendRow(values); err != nil {
			return nil, err
		}
	}
	return fr, nil
}

var errEmpty = &emptyError{}

type emptyError struct{}

func (*emptyError) Error() string { return "no records" }

// sniffDelimiter picks the candidate delimiter occurring most often in the
// header line. Falls back to comma.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	best, bestCount := ',', 0
	for _, cand := range []rune{',', ';', '\t', '|'} {
		if n := bytes.Count(line, []byte(string(cand))); n > bestCount {
			best, bestCount = cand, n
		}
	}
	return best
}

func inferColumnKind(rows [][]string, col int) frame.Kind {
	if len(rows) == 0 {
		return frame.KindString
	}
	kind := frame.KindInt
	for _, rec := range rows {
		if col >= len(rec) {
			return frame.KindString
		}
		cell := rec[col]
		if _, err := strconv.ParseInt(cell, 10, 64); err == nil {
			continue
		}
		if _, err := strconv.ParseFloat(cell, 64); err == nil {
			kind = frame.KindFloat
			continue
		}
		return frame.KindString
	}
	return kind
}

func coerce(cell string, kind frame.Kind) any {
	switch kind {
	case frame.KindInt:
		v, _ := strconv.ParseInt(cell, 10, 64)
		return v
	case frame.KindFloat:
		v, _ := strconv.ParseFloat(cell, 64)
		return v
	default:
		return cell
	}
}

// decodeJSON parses a records-oriented JSON array: [{col: value, ...}, ...].
// Column order follows the key order of the first record.
func decodeJSON(data []byte) (*frame.Frame, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errEmpty
	}

	cols, err := firstObjectKeys(data)
	if err != nil {
		return nil, err
	}

	fr, err := frame.New(cols)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		values := make([]any, len(cols))
		for i, col := range cols {
			values[i] = jsonValue(rec[col])
		}
		if err := fr.AppendRow(values); err != nil {
			return nil, err
		}
	}
	promoteNumericColumns(fr)
	return fr, nil
}

// firstObjectKeys walks the token stream of the first object to recover key
// order, which map decoding discards.
func firstObjectKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil { // [
		return nil, err
	}
	if _, err := dec.Token(); err != nil { // {
		return nil, err
	}

	var keys []string
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case json.Delim:
			if t == '}' {
				return keys, nil
			}
		case string:
			keys = append(keys, t)
			if err := skipValue(dec); err != nil {
				return nil, err
			}
		}
	}
}

// skipValue consumes one value token, including nested containers.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); ok {
		switch d {
		case '{', '[':
			// Consume until the matching close delimiter.
			open := 1
			for open > 0 {
				t, err := dec.Token()
				if err != nil {
					return err
				}
				if dd, ok := t.(json.Delim); ok {
					switch dd {
					case '{', '[':
						open++
					case '}', ']':
						open--
					}
				}
			}
		}
	}
	return nil
}

func jsonValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(t.String(), 10, 64); err == nil {
			return i
		}
		f, _ := strconv.ParseFloat(t.String(), 64)
		return f
	case string:
		return t
	case bool:
		return t
	case nil:
		return ""
	default:
		raw, _ := json.Marshal(t)
		return string(raw)
	}
}

// promoteNumericColumns widens mixed int/float columns to float64 so a column
// has one scalar kind, the way a tabular parser would.
func promoteNumericColumns(fr *frame.Frame) {
	for _, col := range fr.Columns() {
		if fr.Kind(col) != frame.KindFloat {
			continue
		}
		values, err := fr.Column(col)
		if err != nil {
			continue
		}
		for r, v := range values {
			if i, ok := v.(int64); ok {
				fr.SetValue(r, col, float64(i))
			}
		}
	}
}
