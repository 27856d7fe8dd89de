package geom

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestIntersect(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want Rect
	}{
		{
			name: "partial overlap",
			a:    NewRect(0, 0, 10, 10),
			b:    NewRect(5, 5, 15, 15),
			want: Rect{X0: 5, Y0: 5, X1: 10, Y1: 10},
		},
		{
			name: "disjoint",
			a:    NewRect(0, 0, 10, 10),
			b:    NewRect(20, 20, 30, 30),
			want: Rect{},
		},
		{
			name: "contained",
			a:    NewRect(0, 0, 10, 10),
			b:    NewRect(2, 2, 8, 8),
			want: Rect{X0: 2, Y0: 2, X1: 8, Y1: 8},
		},
		{
			name: "touching edges is empty",
			a:    NewRect(0, 0, 10, 10),
			b:    NewRect(10, 0, 20, 10),
			want: Rect{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Intersect(tt.b); got != tt.want {
				t.Errorf("Intersect() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestUnion(t *testing.T) {
	a := NewRect(0, 0, 10, 10)
	b := NewRect(20, 5, 30, 15)
	got := a.Union(b)
	want := Rect{X0: 0, Y0: 0, X1: 30, Y1: 15}
	if got != want {
		t.Errorf("Union() = %+v, want %+v", got, want)
	}

	// Empty is the identity element on both sides.
	if got := (Rect{}).Union(a); got != a {
		t.Errorf("empty.Union(a) = %+v, want %+v", got, a)
	}
	if got := a.Union(Rect{}); got != a {
		t.Errorf("a.Union(empty) = %+v, want %+v", got, a)
	}
}

func TestNewRectNormalizes(t *testing.T) {
	got := NewRect(10, 10, 0, 0)
	want := Rect{X0: 0, Y0: 0, X1: 10, Y1: 10}
	if got != want {
		t.Errorf("NewRect() = %+v, want %+v", got, want)
	}
}

func TestOverlapRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want float64
	}{
		{
			name: "smaller fully inside",
			a:    NewRect(0, 0, 100, 100),
			b:    NewRect(10, 10, 20, 20),
			want: 1.0,
		},
		{
			name: "half of smaller covered",
			a:    NewRect(0, 0, 100, 100),
			b:    NewRect(95, 0, 105, 10),
			want: 0.5,
		},
		{
			name: "disjoint",
			a:    NewRect(0, 0, 10, 10),
			b:    NewRect(50, 50, 60, 60),
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OverlapRatio(tt.a, tt.b); !almostEqual(got, tt.want) {
				t.Errorf("OverlapRatio() = %v, want %v", got, tt.want)
			}
		})
	}

	// Symmetric by definition.
	a := NewRect(0, 0, 100, 50)
	b := NewRect(50, 0, 120, 50)
	if !almostEqual(OverlapRatio(a, b), OverlapRatio(b, a)) {
		t.Error("OverlapRatio is not symmetric")
	}
}

func TestCoverageOf(t *testing.T) {
	a := NewRect(0, 0, 10, 10)
	b := NewRect(0, 0, 10, 6)
	if got := CoverageOf(a, b); !almostEqual(got, 0.6) {
		t.Errorf("CoverageOf() = %v, want 0.6", got)
	}
	if got := CoverageOf(b, a); !almostEqual(got, 1.0) {
		t.Errorf("CoverageOf(reversed) = %v, want 1.0", got)
	}
}

func TestPixelPointConversionRoundTrip(t *testing.T) {
	r := NewRect(30, 60, 300, 600)
	zoom := 3.0
	got := ToPixels(FromPixels(r, zoom), zoom)
	if !almostEqual(got.X0, r.X0) || !almostEqual(got.Y1, r.Y1) {
		t.Errorf("round trip = %+v, want %+v", got, r)
	}

	pts := FromPixels(NewRect(0, 0, 300, 300), zoom)
	if !almostEqual(pts.X1, 100) {
		t.Errorf("FromPixels X1 = %v, want 100", pts.X1)
	}
}

func TestUnionCoverage(t *testing.T) {
	base := NewRect(0, 0, 100, 100)

	t.Run("disjoint covers add up", func(t *testing.T) {
		covers := []Rect{
			NewRect(0, 0, 50, 50),
			NewRect(50, 50, 100, 100),
		}
		if got := UnionCoverage(base, covers); !almostEqual(got, 0.5) {
			t.Errorf("UnionCoverage() = %v, want 0.5", got)
		}
	})

	t.Run("overlapping covers are not double counted", func(t *testing.T) {
		covers := []Rect{
			NewRect(0, 0, 60, 100),
			NewRect(40, 0, 100, 100),
		}
		if got := UnionCoverage(base, covers); !almostEqual(got, 1.0) {
			t.Errorf("UnionCoverage() = %v, want 1.0", got)
		}
	})

	t.Run("covers clipped to base", func(t *testing.T) {
		covers := []Rect{NewRect(-100, -100, 50, 50)}
		if got := UnionCoverage(base, covers); !almostEqual(got, 0.25) {
			t.Errorf("UnionCoverage() = %v, want 0.25", got)
		}
	})

	t.Run("no covers", func(t *testing.T) {
		if got := UnionCoverage(base, nil); got != 0 {
			t.Errorf("UnionCoverage() = %v, want 0", got)
		}
	})
}
