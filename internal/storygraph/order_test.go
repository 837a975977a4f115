package storygraph

import (
	"encoding/json"
	"testing"
)

func TestParseOrder(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    Order
		wantErr bool
	}{
		{"3", Order{Base: 3}, false},
		{"3.1", Order{Base: 3, Sub: 1}, false},
		{"3.10", Order{Base: 3, Sub: 10}, false},
		{"2.0", Order{Base: 2}, false},
		{"1e0", Order{Base: 1}, false},
		{"", Order{}, false},
		{"x", Order{}, true},
		{"-1", Order{}, true},
		{"1.x", Order{}, true},
	} {
		got, err := ParseOrder(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseOrder(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseOrder(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestOrderJSON(t *testing.T) {
	type wrap struct {
		O Order `json:"o"`
	}
	for _, tc := range []struct {
		in   string
		want Order
		out  string
	}{
		{`{"o":4}`, Order{Base: 4}, `{"o":4}`},
		{`{"o":1.2}`, Order{Base: 1, Sub: 2}, `{"o":1.2}`},
		{`{"o":1.10}`, Order{Base: 1, Sub: 10}, `{"o":1.10}`},
		{`{"o":"5.3"}`, Order{Base: 5, Sub: 3}, `{"o":5.3}`},
		{`{"o":null}`, Order{}, `{"o":0}`},
	} {
		var w wrap
		if err := json.Unmarshal([]byte(tc.in), &w); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tc.in, err)
		}
		if w.O != tc.want {
			t.Errorf("Unmarshal(%s) = %+v, want %+v", tc.in, w.O, tc.want)
		}
		out, err := json.Marshal(w)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if string(out) != tc.out {
			t.Errorf("Marshal(%+v) = %s, want %s", w.O, out, tc.out)
		}
	}
}

func TestOrderLess(t *testing.T) {
	ordered := []Order{{1, 0}, {1, 1}, {1, 2}, {1, 10}, {2, 0}}
	for i := 1; i < len(ordered); i++ {
		if !ordered[i-1].Less(ordered[i]) {
			t.Errorf("%s should sort before %s", ordered[i-1], ordered[i])
		}
		if ordered[i].Less(ordered[i-1]) {
			t.Errorf("%s should not sort before %s", ordered[i], ordered[i-1])
		}
	}
}
