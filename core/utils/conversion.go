package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ToString converts a scalar column value to its string form.
// nil becomes the empty string and floats are rendered without a trailing ".0",
// so a JSON number 1 and the string "1" produce the same key.
func ToString(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// IsBlank reports whether a value carries no usable content:
// nil, an empty or whitespace-only string, or a NaN float.
func IsBlank(val any) bool {
	switch v := val.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(v)
	case float32:
		return math.IsNaN(float64(v))
	default:
		return strings.TrimSpace(ToString(v)) == ""
	}
}
