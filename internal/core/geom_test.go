package core

import "testing"

func TestRectContains(t *testing.T) {
	r := NewRect(10, 10, 20, 15)

	tests := []struct {
		name     string
		x, y     int
		expected bool
	}{
		{"inside", 15, 15, true},
		{"top-left corner", 10, 10, true},
		{"last cell", 29, 24, true},
		{"right edge is exclusive", 30, 15, false},
		{"bottom edge is exclusive", 15, 25, false},
		{"outside left", 5, 15, false},
		{"outside top", 15, 5, false},
		{"negative", -1, -1, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.Contains(tc.x, tc.y); got != tc.expected {
				t.Errorf("Contains(%d, %d) = %v, expected %v", tc.x, tc.y, got, tc.expected)
			}
		})
	}
}

func TestRectEdges(t *testing.T) {
	tests := []struct {
		r             Rect
		right, bottom int
		empty         bool
	}{
		{NewRect(5, 10, 20, 15), 25, 25, false},
		{NewRect(0, 0, 0, 4), 0, 4, true},
		{NewRect(3, 3, 4, -1), 7, 2, true},
		{Rect{}, 0, 0, true},
	}
	for _, tc := range tests {
		if got := tc.r.Right(); got != tc.right {
			t.Errorf("%+v Right() = %d, expected %d", tc.r, got, tc.right)
		}
		if got := tc.r.Bottom(); got != tc.bottom {
			t.Errorf("%+v Bottom() = %d, expected %d", tc.r, got, tc.bottom)
		}
		if got := tc.r.Empty(); got != tc.empty {
			t.Errorf("%+v Empty() = %v, expected %v", tc.r, got, tc.empty)
		}
	}
}

func TestClampF(t *testing.T) {
	tests := []struct {
		val, min, max, expected float64
	}{
		{0.5, 0, 1, 0.5},
		{-3, 0, 1, 0},
		{300, 0, 255, 255},
		{255, 0, 255, 255},
	}
	for _, tc := range tests {
		if got := ClampF(tc.val, tc.min, tc.max); got != tc.expected {
			t.Errorf("ClampF(%v, %v, %v) = %v, expected %v", tc.val, tc.min, tc.max, got, tc.expected)
		}
	}
}
