package form

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Record is an untyped entity as exchanged with the backend. Records are
// treated as immutable values: With returns a modified copy.
type Record map[string]any

// With returns a copy of r in which name is set to value.
func (r Record) With(name string, value any) Record {
	out := make(Record, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	out[name] = value
	return out
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the display form of the named value.
func (r Record) String(name string) string {
	return Display(r[name])
}

// Int returns the named value as an integer when it holds one.
func (r Record) Int(name string) (int64, bool) {
	return ParseInt(r[name])
}

// Display formats a record value for inputs and table cells.
func Display(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// ParseInt converts a form or wire value to an integer. Empty strings and
// nil are not integers.
func ParseInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case float64:
		return int64(x), x == float64(int64(x))
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, true
		}
		f, err := x.Float64()
		if err != nil || f != float64(int64(f)) {
			return 0, false
		}
		return int64(f), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		return n, err == nil
	}
	return 0, false
}

// ParseFloat converts a form or wire value to a float.
func ParseFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// IntOrNil is the transform used for optional foreign keys: an integer when
// the value parses, nil otherwise.
func IntOrNil(v any) any {
	if n, ok := ParseInt(v); ok {
		return n
	}
	return nil
}

// FloatOrNil is IntOrNil for decimal values.
func FloatOrNil(v any) any {
	if f, ok := ParseFloat(v); ok {
		return f
	}
	return nil
}

const dayLayout = "2006-01-02"

// Today is the default value of date fields that start on the current day.
func Today() string {
	return time.Now().Format(dayLayout)
}
