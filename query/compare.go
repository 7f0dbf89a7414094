package query

import (
	"encoding/json"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Type ranks used for cross-type ordering.
const (
	rankNull = iota
	rankBool
	rankNumber
	rankString
	rankArray
	rankMap
	rankOther
)

func rank(v any) int {
	switch v.(type) {
	case nil:
		return rankNull
	case bool:
		return rankBool
	case float64:
		return rankNumber
	case string:
		return rankString
	case []any:
		return rankArray
	case map[string]any:
		return rankMap
	}
	return rankOther
}

// normalize converts numeric kinds to float64 and slices to []any so values
// decoded from JSON and values supplied by callers compare alike. Anything
// else takes the shape of its JSON encoding, which is how stored documents
// see it.
func normalize(v any) any {
	switch x := v.(type) {
	case nil, bool, string, float64, map[string]any:
		return v
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = normalize(x[i])
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Slice, reflect.Array:
		list, _ := listValues(v)
		return normalize(list)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	return normalize(gjson.ParseBytes(raw).Value())
}

// compareTimes orders two RFC 3339 timestamps by instant. ok is false
// unless both strings parse.
func compareTimes(a, b string) (c int, ok bool) {
	ta, err := time.Parse(time.RFC3339Nano, a)
	if err != nil {
		return 0, false
	}
	tb, err := time.Parse(time.RFC3339Nano, b)
	if err != nil {
		return 0, false
	}
	return ta.Compare(tb), true
}

// compare orders two normalized values. Values of different types are
// ordered by type rank.
func compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch x := a.(type) {
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case float64:
		y := b.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		case math.IsNaN(x) && !math.IsNaN(y):
			return -1
		case !math.IsNaN(x) && math.IsNaN(y):
			return 1
		}
		return 0
	case string:
		y := b.(string)
		if c, ok := compareTimes(x, y); ok {
			return c
		}
		return strings.Compare(x, y)
	case []any:
		y := b.([]any)
		for i := 0; i < len(x) && i < len(y); i++ {
			if c := compare(x[i], y[i]); c != 0 {
				return c
			}
		}
		switch {
		case len(x) < len(y):
			return -1
		case len(x) > len(y):
			return 1
		}
		return 0
	}
	return 0
}

func equal(a, b any) bool {
	if rank(a) != rank(b) {
		return false
	}
	switch a.(type) {
	case map[string]any, nil:
		return reflect.DeepEqual(a, b)
	}
	if rank(a) == rankOther {
		return reflect.DeepEqual(a, b)
	}
	return compare(a, b) == 0
}

func containsValue(list []any, v any) bool {
	for _, item := range list {
		if equal(item, v) {
			return true
		}
	}
	return false
}
