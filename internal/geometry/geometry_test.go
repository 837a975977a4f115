package geometry

import "testing"

func TestExtentWrap(t *testing.T) {
	var e Extent
	e.Add(Rect{X: 40, Y: 0, W: 50, H: 50})
	e.Add(Rect{X: 100, Y: 10, W: 50, H: 50})
	e.Add(Rect{X: 30, Y: 99, W: 20, H: 5})

	got := e.Wrap(270, 60, 10, 0, 70)
	want := Rect{X: 20, Y: 270, W: 140, H: 60}
	if got != want {
		t.Errorf("Wrap() = %+v, want %+v", got, want)
	}
}

func TestExtentWrap_Empty(t *testing.T) {
	var e Extent
	got := e.Wrap(130, 60, 10, 15, 70)
	want := Rect{X: 15, Y: 130, W: 70, H: 60}
	if got != want {
		t.Errorf("Wrap() = %+v, want %+v", got, want)
	}
}

func TestVerticalGap(t *testing.T) {
	for _, tc := range []struct {
		name string
		y    float64
		want float64
	}{
		{"Above", 80, 20},
		{"Inside", 150, 0},
		{"Below", 260, 60},
		{"OnEdge", 100, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := VerticalGap(tc.y, 100, 200); got != tc.want {
				t.Errorf("VerticalGap(%v) = %v, want %v", tc.y, got, tc.want)
			}
		})
	}
}

func TestWithin(t *testing.T) {
	if !Within(10, 35, 25) {
		t.Error("Within(10, 35, 25) = false, want true")
	}
	if Within(10, 35.5, 25) {
		t.Error("Within(10, 35.5, 25) = true, want false")
	}
}
