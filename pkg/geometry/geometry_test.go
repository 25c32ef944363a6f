package geometry

import (
	"errors"
	"math/rand"
	"testing"
)

func TestParsePoints(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Polygon
	}{
		{"rectangle", "5,3 100,3 100,50 5,50", Polygon{{5, 3}, {100, 3}, {100, 50}, {5, 50}}},
		{"empty", "", Polygon{}},
		{"whitespace only", "  \n\t ", Polygon{}},
		{"skips malformed tokens", "1,2 foo 3,x 4,5 6 7,8,9 10,11", Polygon{{1, 2}, {4, 5}, {10, 11}}},
		{"all malformed", "a,b c", Polygon{}},
		{"negative", "-4,-2 3,7", Polygon{{-4, -2}, {3, 7}}},
		{"decimals truncate", "12.7,3.2", Polygon{{12, 3}}},
		{"extra spacing", "  1,1\n\n2,2  ", Polygon{{1, 1}, {2, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePoints(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d points, got %d (%v)", len(tt.want), len(got), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Point %d: expected %v, got %v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestPolygonString(t *testing.T) {
	p := ParsePoints("1,2 3,4")
	if p.String() != "1,2 3,4" {
		t.Errorf("Expected %q, got %q", "1,2 3,4", p.String())
	}
}

func TestBoundingBoxOf(t *testing.T) {
	box, err := BoundingBoxOf(Polygon{{10, 40}, {90, 10}, {50, 30}})
	if err != nil {
		t.Fatalf("BoundingBoxOf failed: %v", err)
	}
	want := BoundingBox{MinX: 10, MinY: 10, MaxX: 90, MaxY: 40}
	if box != want {
		t.Errorf("Expected %v, got %v", want, box)
	}
	if box.Width() != 80 || box.Height() != 30 {
		t.Errorf("Expected 80x30, got %dx%d", box.Width(), box.Height())
	}
}

func TestBoundingBoxOfSinglePoint(t *testing.T) {
	box, err := BoundingBoxOf(Polygon{{7, 9}})
	if err != nil {
		t.Fatalf("BoundingBoxOf failed: %v", err)
	}
	if !box.Empty() {
		t.Errorf("Expected a degenerate box, got %v", box)
	}
	if !box.Contains(Point{7, 9}) {
		t.Error("Degenerate box should still contain its point")
	}
}

func TestBoundingBoxOfEmpty(t *testing.T) {
	_, err := BoundingBoxOf(nil)
	if !errors.Is(err, ErrEmptyGeometry) {
		t.Errorf("Expected ErrEmptyGeometry, got %v", err)
	}
}

func TestBoundingBoxContainsEveryPoint(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		n := 1 + rng.Intn(12)
		pts := make(Polygon, n)
		for j := range pts {
			pts[j] = Point{X: rng.Intn(2000) - 500, Y: rng.Intn(2000) - 500}
		}
		box, err := BoundingBoxOf(pts)
		if err != nil {
			t.Fatalf("BoundingBoxOf failed: %v", err)
		}
		if box.MinX > box.MaxX || box.MinY > box.MaxY {
			t.Fatalf("Box %v is not ordered", box)
		}
		for _, p := range pts {
			if !box.Contains(p) {
				t.Fatalf("Box %v does not contain %v", box, p)
			}
		}
	}
}

func TestUnion(t *testing.T) {
	a := BoundingBox{MinX: 10, MinY: 10, MaxX: 20, MaxY: 20}
	b := BoundingBox{MinX: 5, MinY: 15, MaxX: 12, MaxY: 40}

	u, err := Union(a, b)
	if err != nil {
		t.Fatalf("Union failed: %v", err)
	}
	want := BoundingBox{MinX: 5, MinY: 10, MaxX: 20, MaxY: 40}
	if u != want {
		t.Errorf("Expected %v, got %v", want, u)
	}

	single, err := Union(a)
	if err != nil || single != a {
		t.Errorf("Union of one box should be the box itself, got %v (%v)", single, err)
	}

	if _, err := Union(); !errors.Is(err, ErrEmptyGeometry) {
		t.Errorf("Expected ErrEmptyGeometry, got %v", err)
	}
}

func TestUnionContainsInputs(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		boxes := make([]BoundingBox, 1+rng.Intn(8))
		for j := range boxes {
			x, y := rng.Intn(1000), rng.Intn(1000)
			boxes[j] = BoundingBox{MinX: x, MinY: y, MaxX: x + rng.Intn(300), MaxY: y + rng.Intn(300)}
		}
		u, err := Union(boxes...)
		if err != nil {
			t.Fatalf("Union failed: %v", err)
		}
		for _, b := range boxes {
			if !u.ContainsBox(b) {
				t.Fatalf("Union %v does not contain %v", u, b)
			}
		}
	}
}

func TestRectAndPoints(t *testing.T) {
	b := NewBoundingBox(30, 20)
	r := b.Rect()
	if r.Dx() != 30 || r.Dy() != 20 {
		t.Errorf("Expected 30x20 rect, got %v", r)
	}
	corners := b.Points()
	if len(corners) != 4 || corners[2] != (Point{30, 20}) {
		t.Errorf("Unexpected corners %v", corners)
	}
}
