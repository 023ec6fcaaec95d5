package accessory

import (
	"encoding/json"
	"fmt"
	"math"
	"unicode/utf8"
)

// DefaultMaxLen applies to string values without an explicit maxLen.
const DefaultMaxLen = 64

// formatRange is the representable range of each integer format.
var formatRange = map[Format][2]float64{
	FormatUInt8:  {0, math.MaxUint8},
	FormatUInt16: {0, math.MaxUint16},
	FormatUInt32: {0, math.MaxUint32},
	FormatUInt64: {0, math.MaxUint64},
	FormatInt:    {math.MinInt32, math.MaxInt32},
}

// Normalize converts v to the Go type stored for the characteristic's format
// and checks it against the characteristic's constraints.
func (c *Characteristic) Normalize(v any) (any, error) {
	if raw, ok := v.(json.RawMessage); ok {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, fmt.Errorf("value is not valid JSON: %w", err)
		}
		v = decoded
	}

	switch c.Format {
	case FormatBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		default:
			n, ok := number(v)
			if !ok || (n != 0 && n != 1) {
				return nil, fmt.Errorf("%v is not a bool", v)
			}
			return n == 1, nil
		}

	case FormatUInt8, FormatUInt16, FormatUInt32, FormatUInt64, FormatInt:
		n, ok := number(v)
		if !ok || n != math.Trunc(n) {
			return nil, fmt.Errorf("%v is not an integer", v)
		}
		r := formatRange[c.Format]
		// MaxUint64 is not representable as a float64 and rounds up to 2^64
		if n < r[0] || n > r[1] || (c.Format == FormatUInt64 && n >= 1<<64) {
			return nil, fmt.Errorf("%v out of range for %s", v, c.Format)
		}
		if err := c.checkBounds(n); err != nil {
			return nil, err
		}
		if c.Format == FormatInt {
			return int64(n), nil
		}
		return uint64(n), nil

	case FormatFloat:
		n, ok := number(v)
		if !ok {
			return nil, fmt.Errorf("%v is not a number", v)
		}
		if err := c.checkBounds(n); err != nil {
			return nil, err
		}
		return n, nil

	case FormatString, FormatTLV8, FormatData:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%v is not a string", v)
		}
		if c.Format == FormatString {
			maxLen := DefaultMaxLen
			if c.MaxLen != nil {
				maxLen = *c.MaxLen
			}
			if utf8.RuneCountInString(s) > maxLen {
				return nil, fmt.Errorf("string longer than %d", maxLen)
			}
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unknown format %q", c.Format)
	}
}

func (c *Characteristic) checkBounds(n float64) error {
	if c.MinValue != nil && n < *c.MinValue {
		return fmt.Errorf("%v below minimum %v", n, *c.MinValue)
	}
	if c.MaxValue != nil && n > *c.MaxValue {
		return fmt.Errorf("%v above maximum %v", n, *c.MaxValue)
	}
	return nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
