package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Measure is a numeric observation that may be missing.
// A missing Measure is distinct from a zero value and serializes as JSON null.
type Measure struct {
	Value float64
	Valid bool
}

// Some returns a valid Measure. NaN and infinities are treated as missing.
func Some(v float64) Measure {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Measure{}
	}
	return Measure{Value: v, Valid: true}
}

// Missing returns a missing Measure
func Missing() Measure {
	return Measure{}
}

// Float returns the value and whether it is present
func (m Measure) Float() (float64, bool) {
	return m.Value, m.Valid
}

// String renders the value, or an empty string when missing
func (m Measure) String() string {
	if !m.Valid {
		return ""
	}
	return strconv.FormatFloat(m.Value, 'f', -1, 64)
}

// MarshalJSON implements json.Marshaler
func (m Measure) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, m.Value, 'f', -1, 64), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Measure) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = Measure{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Some(v)
	return nil
}
