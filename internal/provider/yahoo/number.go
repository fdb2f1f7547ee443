package yahoo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Number is a numeric field Yahoo may send as a JSON number, a numeric
// string, an object carrying a "raw" value, or not at all.
type Number struct {
	value float64
	valid bool
}

// Ptr returns the value, or nil when the field was absent or unusable.
func (n Number) Ptr() *float64 {
	if !n.valid {
		return nil
	}
	v := n.value
	return &v
}

// Valid reports whether a usable value was decoded.
func (n Number) Valid() bool { return n.valid }

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decoding number string: %w", err)
		}
		s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			n.set(f)
		}
		// strings such as "N/A" are treated as absent
		return nil

	case '{':
		var obj struct {
			Raw Number `json:"raw"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return fmt.Errorf("decoding number object: %w", err)
		}
		*n = obj.Raw
		return nil

	default:
		f, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return fmt.Errorf("decoding number %q: %w", b, err)
		}
		n.set(f)
		return nil
	}
}

func (n *Number) set(f float64) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return
	}
	n.value, n.valid = f, true
}
