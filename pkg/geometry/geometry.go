// Package geometry holds the integer point, polygon and bounding box types
// used to address regions of a page image.
package geometry

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"
)

// ErrEmptyGeometry is returned when a box is requested for zero points or zero boxes
var ErrEmptyGeometry = errors.New("geometry: empty geometry")

// Point is a pixel position on the page image
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Polygon is an ordered list of points as found in a Coords or Baseline element
type Polygon []Point

// String renders the polygon in the same "x1,y1 x2,y2" form it was parsed from
func (p Polygon) String() string {
	parts := make([]string, len(p))
	for i, pt := range p {
		parts[i] = strconv.Itoa(pt.X) + "," + strconv.Itoa(pt.Y)
	}
	return strings.Join(parts, " ")
}

// ParsePoints parses a points attribute such as "10,20 30,20 30,40".
// Tokens that are not two comma separated numbers are skipped.
func ParsePoints(s string) Polygon {
	fields := strings.Fields(s)
	points := make(Polygon, 0, len(fields))
	for _, tok := range fields {
		pt, ok := parsePoint(tok)
		if !ok {
			continue
		}
		points = append(points, pt)
	}
	return points
}

func parsePoint(tok string) (Point, bool) {
	xs, ys, found := strings.Cut(tok, ",")
	if !found {
		return Point{}, false
	}
	x, ok := parseCoord(xs)
	if !ok {
		return Point{}, false
	}
	y, ok := parseCoord(ys)
	if !ok {
		return Point{}, false
	}
	return Point{X: x, Y: y}, true
}

// parseCoord accepts integers and, since some exporters write them, decimals
// which are truncated toward zero.
func parseCoord(s string) (int, bool) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.Abs(f) > 1e9 {
		return 0, false
	}
	return int(f), true
}

// BoundingBox is an axis aligned rectangle with MinX <= MaxX and MinY <= MaxY
type BoundingBox struct {
	MinX int `json:"min_x"`
	MinY int `json:"min_y"`
	MaxX int `json:"max_x"`
	MaxY int `json:"max_y"`
}

// NewBoundingBox creates a box covering the whole of a width x height page
func NewBoundingBox(width, height int) BoundingBox {
	return BoundingBox{MinX: 0, MinY: 0, MaxX: width, MaxY: height}
}

// BoundingBoxOf returns the tight enclosure of the given points
func BoundingBoxOf(points []Point) (BoundingBox, error) {
	if len(points) == 0 {
		return BoundingBox{}, ErrEmptyGeometry
	}
	box := BoundingBox{MinX: points[0].X, MinY: points[0].Y, MaxX: points[0].X, MaxY: points[0].Y}
	for _, pt := range points[1:] {
		box.MinX = min(box.MinX, pt.X)
		box.MinY = min(box.MinY, pt.Y)
		box.MaxX = max(box.MaxX, pt.X)
		box.MaxY = max(box.MaxY, pt.Y)
	}
	return box, nil
}

// Union returns the tight enclosure of all the given boxes
func Union(boxes ...BoundingBox) (BoundingBox, error) {
	if len(boxes) == 0 {
		return BoundingBox{}, ErrEmptyGeometry
	}
	u := boxes[0]
	for _, b := range boxes[1:] {
		u.MinX = min(u.MinX, b.MinX)
		u.MinY = min(u.MinY, b.MinY)
		u.MaxX = max(u.MaxX, b.MaxX)
		u.MaxY = max(u.MaxY, b.MaxY)
	}
	return u, nil
}

// Width of the box in pixels
func (b BoundingBox) Width() int { return b.MaxX - b.MinX }

// Height of the box in pixels
func (b BoundingBox) Height() int { return b.MaxY - b.MinY }

// Empty reports whether the box has no area
func (b BoundingBox) Empty() bool { return b.Width() <= 0 || b.Height() <= 0 }

// Contains reports whether p lies inside the box, edges included
func (b BoundingBox) Contains(p Point) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// ContainsBox reports whether other lies entirely inside b
func (b BoundingBox) ContainsBox(other BoundingBox) bool {
	return other.MinX >= b.MinX && other.MaxX <= b.MaxX &&
		other.MinY >= b.MinY && other.MaxY <= b.MaxY
}

// Rect converts the box to an image rectangle
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.MinX, b.MinY, b.MaxX, b.MaxY)
}

// Points returns the four corners of the box, clockwise from the top left
func (b BoundingBox) Points() Polygon {
	return Polygon{
		{X: b.MinX, Y: b.MinY},
		{X: b.MaxX, Y: b.MinY},
		{X: b.MaxX, Y: b.MaxY},
		{X: b.MinX, Y: b.MaxY},
	}
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", b.MinX, b.MinY, b.MaxX, b.MaxY)
}

// Box is a convenience for BoundingBoxOf on a polygon
func (p Polygon) Box() (BoundingBox, error) {
	return BoundingBoxOf(p)
}
