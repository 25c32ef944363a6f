// Package window groups the reading-ordered lines of a region into sliding
// multi-line windows.
package window

import (
	"errors"
	"fmt"
	"strings"

	"github.com/menta2k/pagexml-dataset/pkg/geometry"
	"github.com/menta2k/pagexml-dataset/pkg/pagexml"
)

// ErrInvalidWindowConfig is returned for a size below 1 or an overlap outside [0, size)
var ErrInvalidWindowConfig = errors.New("window: invalid window config")

// Config is the sliding window policy
type Config struct {
	Size    int `yaml:"size" json:"size"`
	Overlap int `yaml:"overlap" json:"overlap"`
}

// DefaultConfig returns single line windows without overlap
func DefaultConfig() Config {
	return Config{Size: 1, Overlap: 0}
}

// Validate checks the window policy
func (c Config) Validate() error {
	if c.Size < 1 {
		return fmt.Errorf("%w: size must be at least 1, got %d", ErrInvalidWindowConfig, c.Size)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidWindowConfig, c.Overlap)
	}
	if c.Overlap >= c.Size {
		return fmt.Errorf("%w: overlap %d must be less than size %d", ErrInvalidWindowConfig, c.Overlap, c.Size)
	}
	return nil
}

// Stride is the distance between the start indices of consecutive windows
func (c Config) Stride() int {
	return c.Size - c.Overlap
}

// Window is a run of consecutive lines of one region
type Window struct {
	Index int            // Position among the windows of the region
	Start int            // Index of the first member line in the region
	Lines []pagexml.Line // Members in reading order
}

// Size is the actual number of member lines, which can be less than the
// configured size for the last window of a region.
func (w Window) Size() int { return len(w.Lines) }

// Text joins the member line texts with newlines
func (w Window) Text() string {
	texts := make([]string, len(w.Lines))
	for i, l := range w.Lines {
		texts[i] = l.Text
	}
	return strings.Join(texts, "\n")
}

// LineIDs lists the member line ids in order
func (w Window) LineIDs() []string {
	ids := make([]string, len(w.Lines))
	for i, l := range w.Lines {
		ids[i] = l.ID
	}
	return ids
}

// LineReadingOrders lists the member reading orders in order
func (w Window) LineReadingOrders() []int {
	orders := make([]int, len(w.Lines))
	for i, l := range w.Lines {
		orders[i] = l.ReadingOrder
	}
	return orders
}

// Box returns the union of the member line boxes. Lines without points do
// not contribute; when no member has points ErrEmptyGeometry is returned.
func (w Window) Box() (geometry.BoundingBox, error) {
	boxes := make([]geometry.BoundingBox, 0, len(w.Lines))
	for _, l := range w.Lines {
		b, err := l.Box()
		if err != nil {
			continue
		}
		boxes = append(boxes, b)
	}
	return geometry.Union(boxes...)
}

// Generate slides a window of cfg.Size lines over lines, advancing by
// cfg.Size-cfg.Overlap until the start passes the last line.
// The final window keeps whatever lines remain.
func Generate(lines []pagexml.Line, cfg Config) ([]Window, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	windows := make([]Window, 0, Estimate(len(lines), cfg))
	for start := 0; start < len(lines); start += cfg.Stride() {
		end := min(start+cfg.Size, len(lines))
		windows = append(windows, Window{
			Index: len(windows),
			Start: start,
			Lines: lines[start:end],
		})
	}
	return windows, nil
}

// Estimate returns the number of windows Generate produces for lineCount
// lines without building them. It returns 0 for an invalid config.
func Estimate(lineCount int, cfg Config) int {
	if cfg.Validate() != nil || lineCount <= 0 {
		return 0
	}
	stride := cfg.Stride()
	return (lineCount + stride - 1) / stride
}
