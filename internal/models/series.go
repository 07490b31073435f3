package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Series is a date -> cumulative count mapping that remembers key order.
// Upstream providers emit dates chronologically and the charts rely on that
// order, so a plain Go map is not enough.
type Series struct {
	Dates  []string
	Values []int64
}

// Len returns the number of entries
func (s Series) Len() int { return len(s.Dates) }

// Last returns the value of the final entry, or false when the series is empty
func (s Series) Last() (int64, bool) {
	if len(s.Values) == 0 {
		return 0, false
	}
	return s.Values[len(s.Values)-1], true
}

// UnmarshalJSON decodes a JSON object keeping its key order.
// null values count as 0 and fractional values are truncated.
func (s *Series) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("series: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("series: expected object, got %v", tok)
	}

	var out Series
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("series key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("series: unexpected key token %v", tok)
		}

		var raw interface{}
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("series value for %q: %w", key, err)
		}
		val, err := countOf(raw)
		if err != nil {
			return fmt.Errorf("series value for %q: %w", key, err)
		}

		// duplicate keys keep their first position and the last value
		if i, dup := index[key]; dup {
			out.Values[i] = val
			continue
		}
		index[key] = len(out.Dates)
		out.Dates = append(out.Dates, key)
		out.Values = append(out.Values, val)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("series: %w", err)
	}
	*s = out
	return nil
}

// MarshalJSON writes the series back as an object in key order.
func (s Series) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range s.Dates {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(d)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatInt(s.Values[i], 10))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func countOf(raw interface{}) (int64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("not a finite number: %s", v)
		}
		return int64(f), nil
	default:
		return 0, fmt.Errorf("not a number: %T", raw)
	}
}
