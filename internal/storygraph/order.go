package storygraph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Order is a story's sequential position. Base is the workflow step; Sub is
// the 1-based refinement beneath that step, or zero for the step itself.
//
// JSON keeps the legacy decimal form: {3,0} is 3 and {3,10} is 3.10.
type Order struct {
	Base int
	Sub  int
}

// IsZero reports whether no order has been assigned.
func (o Order) IsZero() bool { return o.Base == 0 && o.Sub == 0 }

// IsRefinement reports whether o is nested beneath a base step.
func (o Order) IsRefinement() bool { return o.Sub > 0 }

// Less orders by base, then by sub.
func (o Order) Less(other Order) bool {
	if o.Base != other.Base {
		return o.Base < other.Base
	}
	return o.Sub < other.Sub
}

// String returns the decimal form.
func (o Order) String() string {
	if o.Sub == 0 {
		return strconv.Itoa(o.Base)
	}
	return fmt.Sprintf("%d.%d", o.Base, o.Sub)
}

// ParseOrder parses "3", "3.1" or "3.10". A fractional part of only zeros is
// treated as no refinement.
func ParseOrder(s string) (Order, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Order{}, nil
	}
	if strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Order{}, fmt.Errorf("invalid sequential order %q", s)
		}
		s = strconv.FormatFloat(f, 'f', -1, 64)
	}
	whole, frac, _ := strings.Cut(s, ".")
	base, err := strconv.Atoi(whole)
	if err != nil || base < 0 {
		return Order{}, fmt.Errorf("invalid sequential order %q", s)
	}
	o := Order{Base: base}
	if strings.Trim(frac, "0") == "" {
		return o, nil
	}
	sub, err := strconv.Atoi(frac)
	if err != nil || sub < 0 {
		return Order{}, fmt.Errorf("invalid sequential order %q", s)
	}
	o.Sub = sub
	return o, nil
}

// MarshalJSON writes the order as a bare JSON number.
func (o Order) MarshalJSON() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalJSON accepts a number, a numeric string, or null.
func (o *Order) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*o = Order{}
		return nil
	}
	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
	}
	parsed, err := ParseOrder(text)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
