package cropper

import (
	"image"
	"image/color"
	"testing"

	"github.com/menta2k/pagexml-dataset/pkg/geometry"
)

// createTestImage creates a page with a dark block in the middle
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x > width/3 && x < 2*width/3 && y > height/3 && y < 2*height/3 {
				img.Set(x, y, color.RGBA{0, 0, 0, 255})
			} else {
				img.Set(x, y, color.RGBA{200, 180, 160, 255})
			}
		}
	}

	return img
}

func TestNew(t *testing.T) {
	c := New()
	if c == nil {
		t.Fatal("New() returned nil")
	}
	if c.config.PolygonPadding != DefaultPolygonPadding {
		t.Errorf("Expected padding %d, got %d", DefaultPolygonPadding, c.config.PolygonPadding)
	}
	if c.config.Background == nil {
		t.Error("Expected a default background colour")
	}
}

func TestNewWithConfig(t *testing.T) {
	c := NewWithConfig(CropConfig{PolygonPadding: -3})
	if c.config.PolygonPadding != 0 {
		t.Errorf("Expected negative padding to be clamped to 0, got %d", c.config.PolygonPadding)
	}
	if c.config.Background == nil {
		t.Error("Expected background to default when unset")
	}
}

func TestCrop(t *testing.T) {
	c := New()
	img := createTestImage(300, 200)

	out := c.Crop(img, geometry.BoundingBox{MinX: 10, MinY: 20, MaxX: 110, MaxY: 70})
	b := out.Bounds()
	if b.Dx() != 100 || b.Dy() != 50 {
		t.Errorf("Expected 100x50, got %dx%d", b.Dx(), b.Dy())
	}

	r1, g1, b1, _ := out.At(b.Min.X, b.Min.Y).RGBA()
	r2, g2, b2, _ := img.At(10, 20).RGBA()
	if r1 != r2 || g1 != g2 || b1 != b2 {
		t.Error("Cropped pixel should match the source pixel")
	}
}

func TestCropClampsToImage(t *testing.T) {
	c := New()
	img := createTestImage(100, 80)

	out := c.Crop(img, geometry.BoundingBox{MinX: -50, MinY: -10, MaxX: 60, MaxY: 500})
	b := out.Bounds()
	if b.Dx() != 60 || b.Dy() != 80 {
		t.Errorf("Expected clamped 60x80, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestCropNeverFails(t *testing.T) {
	c := New()
	img := createTestImage(100, 80)

	boxes := []geometry.BoundingBox{
		{},
		{MinX: 10, MinY: 10, MaxX: 10, MaxY: 40},
		{MinX: 200, MinY: 200, MaxX: 300, MaxY: 300},
		{MinX: -300, MinY: -300, MaxX: -200, MaxY: -200},
		{MinX: 50, MinY: 50, MaxX: 20, MaxY: 20},
	}

	for _, box := range boxes {
		out := c.Crop(img, box)
		if out == nil {
			t.Fatalf("Crop returned nil for %v", box)
		}
		b := out.Bounds()
		if b.Dx() < 1 || b.Dy() < 1 {
			t.Errorf("Crop of %v returned unusable %dx%d image", box, b.Dx(), b.Dy())
		}
	}
}

func TestCropDoesNotMutateSource(t *testing.T) {
	c := New()
	img := createTestImage(50, 50).(*image.RGBA)
	before := append([]uint8(nil), img.Pix...)

	_ = c.Crop(img, geometry.BoundingBox{MinX: 5, MinY: 5, MaxX: 45, MaxY: 45})
	_ = c.CropPolygon(img, geometry.ParsePoints("5,5 45,5 25,45"))

	for i := range before {
		if before[i] != img.Pix[i] {
			t.Fatal("Source image was modified by cropping")
		}
	}
}

func TestCropNonZeroOrigin(t *testing.T) {
	c := New()
	src := createTestImage(100, 100).(*image.RGBA)
	sub := src.SubImage(image.Rect(20, 20, 80, 80))

	out := c.Crop(sub, geometry.BoundingBox{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10})
	if out.Bounds().Dx() != 10 || out.Bounds().Dy() != 10 {
		t.Errorf("Expected 10x10, got %v", out.Bounds())
	}
}

func TestCropPolygon(t *testing.T) {
	c := New()
	img := createTestImage(200, 200)

	triangle := geometry.ParsePoints("50,50 150,50 50,150")
	out := c.CropPolygon(img, triangle)

	b := out.Bounds()
	want := 100 + 2*DefaultPolygonPadding
	if b.Dx() != want || b.Dy() != want {
		t.Fatalf("Expected %dx%d, got %dx%d", want, want, b.Dx(), b.Dy())
	}

	// Bottom right corner is outside the triangle and must be background
	r, g, bl, _ := out.At(b.Max.X-2, b.Max.Y-2).RGBA()
	if r != 0xffff || g != 0xffff || bl != 0xffff {
		t.Errorf("Expected white outside the polygon, got %d,%d,%d", r>>8, g>>8, bl>>8)
	}

	// Just inside the top left corner is inside the triangle
	ir, ig, ib, _ := out.At(DefaultPolygonPadding+3, DefaultPolygonPadding+3).RGBA()
	sr, sg, sb, _ := img.At(53, 53).RGBA()
	if ir>>8 != sr>>8 || ig>>8 != sg>>8 || ib>>8 != sb>>8 {
		t.Error("Pixel inside the polygon should match the source")
	}
}

func TestCropPolygonDegenerate(t *testing.T) {
	c := New()
	img := createTestImage(100, 100)

	if out := c.CropPolygon(img, nil); out.Bounds().Dx() != 1 || out.Bounds().Dy() != 1 {
		t.Errorf("Expected 1x1 fallback for an empty polygon, got %v", out.Bounds())
	}

	out := c.CropPolygon(img, geometry.ParsePoints("10,10 60,40"))
	if out.Bounds().Dx() != 50 || out.Bounds().Dy() != 30 {
		t.Errorf("Expected rectangular fallback 50x30, got %v", out.Bounds())
	}
}

func BenchmarkCrop(b *testing.B) {
	c := New()
	img := createTestImage(1920, 1080)
	box := geometry.BoundingBox{MinX: 100, MinY: 100, MaxX: 900, MaxY: 300}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Crop(img, box)
	}
}

func BenchmarkCropPolygon(b *testing.B) {
	c := New()
	img := createTestImage(1920, 1080)
	poly := geometry.ParsePoints("100,100 900,120 880,300 120,280")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.CropPolygon(img, poly)
	}
}
