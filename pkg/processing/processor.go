package processing

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/pagexml-dataset/pkg/geometry"
	"github.com/menta2k/pagexml-dataset/pkg/pagexml"
)

// Supported output formats
const (
	FormatJPEG = "jpg"
	FormatPNG  = "png"
	FormatWebP = "webp"
)

// EncodeOptions controls how record images are written
type EncodeOptions struct {
	Format   string
	Quality  int
	Lossless bool
}

// DefaultEncodeOptions writes JPEG at quality 95
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{Format: FormatJPEG, Quality: 95}
}

// NormalizeFormat maps a format name or file extension to one of the
// supported formats.
func NormalizeFormat(format string) (string, error) {
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "", "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	}
	return "", fmt.Errorf("unsupported image format: %s", format)
}

// Processor handles image processing operations
type Processor struct{}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{}
}

// DecodeImage decodes page image bytes, applying EXIF orientation.
// WebP files the registered decoder rejects are retried with libwebp.
func (p *Processor) DecodeImage(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err == nil {
		return img, nil
	}

	if img, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
		return img, nil
	}

	return nil, fmt.Errorf("failed to decode image (%d bytes): %w", len(data), err)
}

// LoadImage loads an image from a file path
func (p *Processor) LoadImage(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := p.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("%w for %s", err, path)
	}
	return img, nil
}

// Encode writes img to w in the requested format
func (p *Processor) Encode(w io.Writer, img image.Image, opts EncodeOptions) error {
	format, err := NormalizeFormat(opts.Format)
	if err != nil {
		return err
	}
	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = 95
	}

	switch format {
	case FormatWebP:
		return webp.Encode(w, img, &webp.Options{Lossless: opts.Lossless, Quality: float32(quality)})
	case FormatPNG:
		return imaging.Encode(w, img, imaging.PNG)
	default:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	}
}

// EncodeBytes is Encode into a new buffer
func (p *Processor) EncodeBytes(img image.Image, opts EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Encode(&buf, img, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveImage saves an image to a file with the specified format and quality
func (p *Processor) SaveImage(img image.Image, path string, opts EncodeOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := p.Encode(f, img, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// CreateDebugOverlay draws the region boxes and line boxes of a page over
// its image for visual checks of the annotation geometry.
func (p *Processor) CreateDebugOverlay(img image.Image, page *pagexml.Page) image.Image {
	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()

	green := color.NRGBA{0, 255, 0, 255}  // region
	gold := color.NRGBA{255, 204, 0, 255} // line
	red := color.NRGBA{255, 0, 0, 255}    // baseline
	stroke := int(math.Max(2, 0.002*float64(min(w, h))))

	for _, r := range page.Regions {
		if box, err := r.Box(); err == nil {
			drawBox(nrgba, box, green, stroke)
		}
		for _, l := range r.Lines {
			if box, err := l.Box(); err == nil {
				drawBox(nrgba, box, gold, max(1, stroke/2))
			}
			for i := 1; i < len(l.Baseline); i++ {
				drawLine(nrgba, l.Baseline[i-1], l.Baseline[i], red)
			}
		}
	}

	return nrgba
}

func drawBox(img *image.NRGBA, box geometry.BoundingBox, c color.NRGBA, stroke int) {
	x0, y0, x1, y1 := box.MinX, box.MinY, box.MaxX, box.MaxY
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	for s := 0; s < stroke; s++ {
		drawHLine(img, y0+s, x0, x1, c)
		drawHLine(img, y1-1-s, x0, x1, c)
		drawVLine(img, x0+s, y0, y1, c)
		drawVLine(img, x1-1-s, y0, y1, c)
	}
}

// drawLine steps along the longer axis of the segment
func drawLine(img *image.NRGBA, a, b geometry.Point, c color.NRGBA) {
	if a.Y == b.Y {
		drawHLine(img, a.Y, a.X, b.X+1, c)
		return
	}
	dx, dy := b.X-a.X, b.Y-a.Y
	steps := max(abs(dx), abs(dy))
	for i := 0; i <= steps; i++ {
		x := a.X + int(math.Round(float64(dx*i)/float64(steps)))
		y := a.Y + int(math.Round(float64(dy*i)/float64(steps)))
		drawHLine(img, y, x, x+1, c)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	x0 = max(x0, 0)
	x1 = min(x1, img.Bounds().Dx())
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	y0 = max(y0, 0)
	y1 = min(y1, img.Bounds().Dy())
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
