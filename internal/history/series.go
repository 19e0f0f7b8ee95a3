package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rileyhilliard/whm/internal/errors"
)

// TimeLayout is how the recorder stores timestamps (sqlite CURRENT_TIMESTAMP).
const TimeLayout = "2006-01-02 15:04:05"

// Row is one sample. Values are in field order; a missing reading is NaN.
type Row struct {
	Time   time.Time
	Values []float64
}

// Series is the recorded history of one metric group at one scope.
//
// Columns, when known, names the values of each row as the table the rows
// were read from lays them out. Fields is the order after WithFields.
type Series struct {
	Scope   Scope
	Columns []string
	Fields  []string
	Rows    []Row
}

// Empty reports whether there is nothing to plot.
func (s Series) Empty() bool {
	return len(s.Rows) == 0
}

// WithFields labels the values of s with fields.
//
// When Columns is known the rows are projected onto fields by name: a field
// the table lacks reads as NaN and a column fields does not name is dropped.
// Otherwise every row must carry exactly one value per field, in order.
func (s Series) WithFields(fields []string) (Series, error) {
	width := len(fields)
	if s.Columns != nil {
		width = len(s.Columns)
	}
	for i, row := range s.Rows {
		if len(row.Values) != width {
			return Series{}, errors.New(errors.ErrData,
				fmt.Sprintf("history row %d has %d values for %d fields", i, len(row.Values), width),
				"The table layout changed; try again after the next recording")
		}
	}

	out := s
	out.Fields = append([]string(nil), fields...)
	if s.Columns == nil {
		return out, nil
	}

	index := make(map[string]int, len(s.Columns))
	for i, c := range s.Columns {
		index[c] = i
	}
	out.Rows = make([]Row, len(s.Rows))
	for i, row := range s.Rows {
		values := make([]float64, len(fields))
		for j, f := range fields {
			values[j] = math.NaN()
			if k, ok := index[f]; ok {
				values[j] = row.Values[k]
			}
		}
		out.Rows[i] = Row{Time: row.Time, Values: values}
	}
	return out, nil
}

// Column returns the values of one field, or nil when it is unknown.
func (s Series) Column(field string) []float64 {
	idx := -1
	for i, f := range s.Fields {
		if f == field {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	col := make([]float64, len(s.Rows))
	for i, row := range s.Rows {
		col[i] = row.Values[idx]
	}
	return col
}

// Times returns the sample timestamps.
func (s Series) Times() []time.Time {
	times := make([]time.Time, len(s.Rows))
	for i, row := range s.Rows {
		times[i] = row.Time
	}
	return times
}

// DecodeRows parses the wire form [[time, v0, v1, ...], ...].
func DecodeRows(data json.RawMessage) ([]Row, error) {
	var raw [][]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrData, "Malformed history rows", "")
	}

	rows := make([]Row, 0, len(raw))
	for i, cells := range raw {
		if len(cells) == 0 {
			return nil, errors.New(errors.ErrData, fmt.Sprintf("history row %d is empty", i), "")
		}
		ts, err := parseTime(cells[0])
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrData, fmt.Sprintf("history row %d has a bad timestamp", i), "")
		}
		values := make([]float64, len(cells)-1)
		for j, cell := range cells[1:] {
			values[j], err = parseValue(cell)
			if err != nil {
				return nil, errors.WrapWithCode(err, errors.ErrData, fmt.Sprintf("history row %d column %d", i, j+1), "")
			}
		}
		rows = append(rows, Row{Time: ts, Values: values})
	}
	return rows, nil
}

// parseTime accepts "2006-01-02 15:04:05" (UTC), RFC 3339 and unix seconds.
func parseTime(cell json.RawMessage) (time.Time, error) {
	var s string
	if err := json.Unmarshal(cell, &s); err != nil {
		var secs float64
		if err := json.Unmarshal(cell, &secs); err != nil {
			return time.Time{}, fmt.Errorf("unexpected timestamp %s", string(cell))
		}
		return time.Unix(int64(secs), 0).UTC(), nil
	}
	if t, err := time.ParseInLocation(TimeLayout, s, time.UTC); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func parseValue(cell json.RawMessage) (float64, error) {
	if bytes.Equal(bytes.TrimSpace(cell), []byte("null")) {
		return math.NaN(), nil
	}
	var n float64
	if err := json.Unmarshal(cell, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(cell, &s); err != nil {
		return 0, fmt.Errorf("unexpected value %s", string(cell))
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// EncodeRows is the inverse of DecodeRows. NaN is written as null.
func EncodeRows(rows []Row) (json.RawMessage, error) {
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, 0, len(row.Values)+1)
		cells = append(cells, row.Time.UTC().Format(TimeLayout))
		for _, v := range row.Values {
			if math.IsNaN(v) {
				cells = append(cells, nil)
			} else {
				cells = append(cells, v)
			}
		}
		out[i] = cells
	}
	return json.Marshal(out)
}
