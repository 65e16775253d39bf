package export

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/nexabank/bankfeed/frame"
)

// MarshalCSV renders a frame as CSV with a header row, in column order.
func MarshalCSV(fr *frame.Frame) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	cols := fr.Columns()
	if err := w.Write(cols); err != nil {
		return nil, err
	}

	record := make([]string, len(cols))
	for r := 0; r < fr.Len(); r++ {
		for c, col := range cols {
			v, _ := fr.Value(r, col)
			record[c] = formatValue(v)
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return ""
	}
}
