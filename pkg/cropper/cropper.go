package cropper

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/vector"

	"github.com/menta2k/pagexml-dataset/pkg/geometry"
)

// Cropper cuts page regions out of a page image
type Cropper struct {
	config CropConfig
}

// CropConfig holds configuration for cropping
type CropConfig struct {
	// PolygonPadding is added on every side of a polygon crop
	PolygonPadding int
	// Background fills degenerate crops and the area outside polygon masks
	Background color.Color
}

// DefaultPolygonPadding matches the padding used for masked crops
const DefaultPolygonPadding = 5

// New creates a new Cropper with default configuration
func New() *Cropper {
	return &Cropper{
		config: CropConfig{
			PolygonPadding: DefaultPolygonPadding,
			Background:     color.White,
		},
	}
}

// NewWithConfig creates a new Cropper with custom configuration
func NewWithConfig(config CropConfig) *Cropper {
	if config.Background == nil {
		config.Background = color.White
	}
	if config.PolygonPadding < 0 {
		config.PolygonPadding = 0
	}
	return &Cropper{config: config}
}

// Crop returns a copy of the part of img covered by box.
// The box is clamped to the image first; when nothing is left a 1x1 image
// in the background colour is returned so callers always get a usable image.
func (c *Cropper) Crop(img image.Image, box geometry.BoundingBox) image.Image {
	rect := clampRect(img, box.Rect())
	if rect.Empty() {
		return c.fallback()
	}
	return imaging.Crop(img, rect)
}

// CropPolygon crops the padded bounding box of polygon and paints every
// pixel outside the polygon with the background colour.
// Polygons with fewer than three points fall back to a rectangular crop.
func (c *Cropper) CropPolygon(img image.Image, polygon geometry.Polygon) image.Image {
	box, err := geometry.BoundingBoxOf(polygon)
	if err != nil {
		return c.fallback()
	}
	if len(polygon) < 3 {
		return c.Crop(img, box)
	}

	pad := c.config.PolygonPadding
	padded := geometry.BoundingBox{
		MinX: box.MinX - pad,
		MinY: box.MinY - pad,
		MaxX: box.MaxX + pad,
		MaxY: box.MaxY + pad,
	}
	rect := clampRect(img, padded.Rect())
	if rect.Empty() {
		return c.fallback()
	}

	cropped := imaging.Crop(img, rect)
	w, h := rect.Dx(), rect.Dy()

	// Polygon coordinates relative to the crop origin
	origin := rect.Min.Sub(img.Bounds().Min)
	z := vector.NewRasterizer(w, h)
	z.MoveTo(float32(polygon[0].X-origin.X), float32(polygon[0].Y-origin.Y))
	for _, pt := range polygon[1:] {
		z.LineTo(float32(pt.X-origin.X), float32(pt.Y-origin.Y))
	}
	z.ClosePath()

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	out := imaging.New(w, h, c.config.Background)
	draw.DrawMask(out, out.Bounds(), cropped, image.Point{}, mask, image.Point{}, draw.Over)
	return out
}

func (c *Cropper) fallback() image.Image {
	return imaging.New(1, 1, c.config.Background)
}

// clampRect translates r into the image coordinate space and intersects it
// with the image bounds.
func clampRect(img image.Image, r image.Rectangle) image.Rectangle {
	bounds := img.Bounds()
	return r.Add(bounds.Min).Intersect(bounds)
}
