package db

import (
	"fmt"
	"math/big"
	"strconv"
)

// ToFloat64 converts a scanned driver value to float64. SQLite hands back
// int64/float64/[]byte, DuckDB adds the narrower integer widths and
// *big.Int for HUGEINT sums.
func ToFloat64(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int16:
		return float64(val), nil
	case int8:
		return float64(val), nil
	case int:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	case uint32:
		return float64(val), nil
	case uint16:
		return float64(val), nil
	case uint8:
		return float64(val), nil
	case uint:
		return float64(val), nil
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	case *big.Int:
		if val == nil {
			return 0, fmt.Errorf("nil big integer")
		}
		f, _ := new(big.Float).SetInt(val).Float64()
		return f, nil
	case []byte:
		return parseNumeric(string(val))
	case string:
		return parseNumeric(val)
	case nil:
		return 0, fmt.Errorf("value is NULL")
	default:
		return 0, fmt.Errorf("value of type %T is not numeric", v)
	}
}

func parseNumeric(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("value %q is not numeric", s)
	}
	return f, nil
}
