package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Field is a single named reading inside a metric group.
type Field struct {
	Name  string
	Value float64
}

// Values is an ordered set of named readings. Order is significant: it is
// the order in which the backend reported the fields.
type Values []Field

// Names returns the field names in order.
func (v Values) Names() []string {
	names := make([]string, len(v))
	for i, f := range v {
		names[i] = f.Name
	}
	return names
}

// Get returns the value for name.
func (v Values) Get(name string) (float64, bool) {
	for _, f := range v {
		if f.Name == name {
			return f.Value, true
		}
	}
	return 0, false
}

// Pick returns the values for the requested names, in the requested order.
// Names not present are skipped.
func (v Values) Pick(names []string) Values {
	out := make(Values, 0, len(names))
	for _, name := range names {
		if val, ok := v.Get(name); ok {
			out = append(out, Field{Name: name, Value: val})
		}
	}
	return out
}

// Numbers returns just the values, in order.
func (v Values) Numbers() []float64 {
	nums := make([]float64, len(v))
	for i, f := range v {
		nums[i] = f.Value
	}
	return nums
}

// UnmarshalJSON decodes a JSON object, keeping key order. Values may be JSON
// numbers or numeric strings.
func (v *Values) UnmarshalJSON(data []byte) error {
	out := Values{}
	err := decodeObject(data, func(key string, raw json.RawMessage) error {
		val, err := parseNumber(raw)
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		out = append(out, Field{Name: key, Value: val})
		return nil
	})
	if err != nil {
		return err
	}
	*v = out
	return nil
}

// MarshalJSON encodes the values as a JSON object in field order.
func (v Values) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range v {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatFloat(f.Value, 'f', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// parseNumber accepts 12, 12.5, "12", " 12.5 " and "12.5%".
func parseNumber(raw json.RawMessage) (float64, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.Float64()
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("expected number, got %s", string(raw))
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	return strconv.ParseFloat(s, 64)
}

// decodeObject walks the keys of a JSON object in document order.
// A JSON null decodes as an empty object.
func decodeObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}

	_, err = dec.Token()
	return err
}

// encodeObject writes keys and already-encoded values as a JSON object.
func encodeObject(keys []string, values []json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(values[i])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
