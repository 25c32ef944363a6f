package pagexml

import (
	"strings"

	"github.com/menta2k/pagexml-dataset/pkg/geometry"
)

// DefaultRegionType is used when a TextRegion carries no type attribute
const DefaultRegionType = "paragraph"

// Page is one annotated page image.
// Corresponds to the PAGE element 'Page' plus the archive context it came from.
type Page struct {
	Filename      string   // Image file name used in output records
	Project       string   // Top level archive folder
	XMLPath       string   // Archive path of the annotation document
	ImageFilename string   // imageFilename attribute
	ImageWidth    int      // imageWidth attribute, 0 when absent
	ImageHeight   int      // imageHeight attribute, 0 when absent
	Annotation    string   // Full annotation document, UTF-8
	Regions       []Region // Text regions sorted by reading order
}

// Region is a text region of a page.
// Corresponds to the PAGE element 'TextRegion'.
type Region struct {
	ID           string           // id attribute
	Type         string           // type attribute, DefaultRegionType when absent
	ReadingOrder int              // Resolved once at parse time
	Coords       geometry.Polygon // Coords/@points
	Text         string           // Region level TextEquiv/Unicode
	Lines        []Line           // Lines sorted by reading order
}

// Line is a transcribed text line within a region.
// Corresponds to the PAGE element 'TextLine'.
type Line struct {
	ID           string
	RegionID     string
	ReadingOrder int
	Text         string
	Coords       geometry.Polygon
	Baseline     geometry.Polygon
}

// FullText returns the region transcription, or its lines joined by newline
// when the region has none of its own.
func (r Region) FullText() string {
	if r.Text != "" {
		return r.Text
	}
	texts := make([]string, 0, len(r.Lines))
	for _, l := range r.Lines {
		if l.Text != "" {
			texts = append(texts, l.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// LineCount returns the number of lines over all regions
func (p *Page) LineCount() int {
	n := 0
	for _, r := range p.Regions {
		n += len(r.Lines)
	}
	return n
}

// Box returns the bounding box of the region polygon
func (r Region) Box() (geometry.BoundingBox, error) {
	return geometry.BoundingBoxOf(r.Coords)
}

// Box returns the bounding box of the line polygon
func (l Line) Box() (geometry.BoundingBox, error) {
	return geometry.BoundingBoxOf(l.Coords)
}
