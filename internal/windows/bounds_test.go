package windows

import (
	"testing"

	"github.com/replit/desktop/internal/native"
)

func singleDisplay(wa native.Rect) []native.Display {
	return []native.Display{{Bounds: wa, WorkArea: wa, Primary: true}}
}

func TestIsInBounds(t *testing.T) {
	displays := singleDisplay(native.Rect{X: 0, Y: 0, Width: 1920, Height: 1040})

	tests := []struct {
		name string
		rect native.Rect
		want bool
	}{
		{"fully visible", native.Rect{X: 100, Y: 100, Width: 800, Height: 600}, true},
		{"corner on edge", native.Rect{X: 1120, Y: 440, Width: 800, Height: 600}, true},
		{"within leeway", native.Rect{X: 1200, Y: 500, Width: 800, Height: 600}, true},
		{"exactly at leeway", native.Rect{X: 1220, Y: 540, Width: 800, Height: 600}, true},
		{"past leeway right", native.Rect{X: 1221, Y: 100, Width: 800, Height: 600}, false},
		{"past leeway bottom", native.Rect{X: 100, Y: 541, Width: 800, Height: 600}, false},
		{"entirely off left", native.Rect{X: -2000, Y: 100, Width: 800, Height: 600}, false},
		{"entirely above", native.Rect{X: 100, Y: -2000, Width: 800, Height: 600}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsInBounds(tt.rect, displays); got != tt.want {
				t.Errorf("IsInBounds(%+v) = %v, want %v", tt.rect, got, tt.want)
			}
		})
	}
}

func TestIsInBounds_MultipleDisplays(t *testing.T) {
	displays := []native.Display{
		{WorkArea: native.Rect{X: 0, Y: 0, Width: 1920, Height: 1040}, Primary: true},
		{WorkArea: native.Rect{X: 1920, Y: 0, Width: 2560, Height: 1400}},
	}

	// Visible only on the secondary display.
	r := native.Rect{X: 2400, Y: 200, Width: 1000, Height: 900}
	if !IsInBounds(r, displays) {
		t.Errorf("IsInBounds(%+v) = false on secondary display", r)
	}

	// Off the right edge of the secondary display too.
	r = native.Rect{X: 4200, Y: 200, Width: 800, Height: 600}
	if IsInBounds(r, displays) {
		t.Errorf("IsInBounds(%+v) = true past all displays", r)
	}
}

func TestIsInBounds_NoDisplays(t *testing.T) {
	if IsInBounds(native.Rect{X: 0, Y: 0, Width: 800, Height: 600}, nil) {
		t.Error("IsInBounds() = true with no displays")
	}
}

func TestDisplayNearest(t *testing.T) {
	left := native.Display{WorkArea: native.Rect{X: 0, Y: 0, Width: 1920, Height: 1040}, Primary: true}
	right := native.Display{WorkArea: native.Rect{X: 1920, Y: 0, Width: 2560, Height: 1400}}
	displays := []native.Display{left, right}

	tests := []struct {
		name  string
		point native.Point
		want  native.Display
	}{
		{"inside left", native.Point{X: 500, Y: 500}, left},
		{"inside right", native.Point{X: 3000, Y: 500}, right},
		{"below right display", native.Point{X: 3000, Y: 2000}, right},
		{"far left of everything", native.Point{X: -500, Y: 500}, left},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := displayNearest(displays, tt.point)
			if got.WorkArea != tt.want.WorkArea {
				t.Errorf("displayNearest(%+v) = %+v, want %+v", tt.point, got.WorkArea, tt.want.WorkArea)
			}
		})
	}
}

func TestDisplayNearest_Empty(t *testing.T) {
	d := displayNearest(nil, native.Point{X: 10, Y: 10})
	if d.WorkArea.Width != 0 {
		t.Errorf("displayNearest(nil) = %+v, want zero display", d)
	}
}
