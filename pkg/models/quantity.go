package models

import "encoding/json"

// Quantity is a real number that may be "not computable". It marshals to null when
// invalid so the UI can tell an unknown value from a zero.
type Quantity struct {
	Value float64
	Valid bool
}

// Known wraps a computed value.
func Known(v float64) Quantity { return Quantity{Value: v, Valid: true} }

// Unknown is the not-computable value.
func Unknown() Quantity { return Quantity{} }

func (q Quantity) MarshalJSON() ([]byte, error) {
	if !q.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(q.Value)
}

func (q *Quantity) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*q = Quantity{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*q = Known(v)
	return nil
}

func (q Quantity) String() string {
	if !q.Valid {
		return "not computable"
	}
	b, _ := json.Marshal(q.Value)
	return string(b)
}
