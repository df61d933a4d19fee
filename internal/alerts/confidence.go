package alerts

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	minConfidence = 0
	maxConfidence = 100
)

// NormalizeConfidence coerces a confidence value to a display integer in [0, 100].
// Values that are not numbers or numeric strings count as 0; true counts as 1.
func NormalizeConfidence(v any) int {
	f := coerceFloat(v)
	if math.IsNaN(f) {
		f = 0
	}
	if f < minConfidence {
		f = minConfidence
	}
	if f > maxConfidence {
		f = maxConfidence
	}
	return int(math.Floor(f + 0.5))
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case nil:
		return 0
	case bool:
		if val {
			return 1
		}
		return 0
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int8:
		return float64(val)
	case int16:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case uint:
		return float64(val)
	case uint8:
		return float64(val)
	case uint16:
		return float64(val)
	case uint32:
		return float64(val)
	case uint64:
		return float64(val)
	case json.Number:
		return parseFloat(string(val))
	case string:
		return parseFloat(val)
	default:
		return 0
	}
}

// parseFloat reads a decimal number. The only infinity spelling accepted is
// "Infinity" with an optional sign; "inf", "+Inf" and "NaN" count as 0.
func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if strings.ContainsAny(s, "iInN") {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Overflow comes back as ±Inf, which still clamps.
		if errors.Is(err, strconv.ErrRange) {
			return f
		}
		return 0
	}
	return f
}
