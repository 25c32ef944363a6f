package types

import (
	"fmt"
	"image"
	"strings"
)

// Mode selects the shape of the records produced for each page
type Mode string

const (
	ModeRawXML        Mode = "raw_xml"
	ModeText          Mode = "text"
	ModeRegion        Mode = "region"
	ModeLine          Mode = "line"
	ModeWindow        Mode = "window"
	ModePolygonRegion Mode = "polygon_region"
	ModePolygonLine   Mode = "polygon_line"
)

// Modes lists every supported mode in display order
var Modes = []Mode{
	ModeRawXML,
	ModeText,
	ModeRegion,
	ModeLine,
	ModeWindow,
	ModePolygonRegion,
	ModePolygonLine,
}

// ParseMode converts a mode name, case insensitively
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown export mode %q (valid: %s)", s, ModeNames())
}

// ModeNames returns the supported modes as a comma separated list
func ModeNames() string {
	names := make([]string, len(Modes))
	for i, m := range Modes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

// Record is one output row. Every record carries an image, a text column
// and the page it came from.
type Record interface {
	Mode() Mode
	Header() *Base
	Content() string
}

// Base holds the columns shared by every record
type Base struct {
	Image    image.Image `json:"-"`
	Filename string      `json:"filename"`
	Project  string      `json:"project"`
}

// Header returns the shared columns
func (b *Base) Header() *Base { return b }

// RawXMLRecord pairs a whole page image with its annotation document
type RawXMLRecord struct {
	Base
	XML string `json:"xml"`
}

func (r *RawXMLRecord) Mode() Mode      { return ModeRawXML }
func (r *RawXMLRecord) Content() string { return r.XML }

// TextRecord pairs a whole page image with its text in reading order
type TextRecord struct {
	Base
	Text string `json:"text"`
}

func (r *TextRecord) Mode() Mode      { return ModeText }
func (r *TextRecord) Content() string { return r.Text }

// RegionRecord is one text region crop
type RegionRecord struct {
	Base
	Text         string `json:"text"`
	RegionType   string `json:"region_type"`
	RegionID     string `json:"region_id"`
	ReadingOrder int    `json:"reading_order"`
}

func (r *RegionRecord) Mode() Mode      { return ModeRegion }
func (r *RegionRecord) Content() string { return r.Text }

// LineRecord is one text line crop
type LineRecord struct {
	Base
	Text               string `json:"text"`
	LineID             string `json:"line_id"`
	LineReadingOrder   int    `json:"line_reading_order"`
	RegionID           string `json:"region_id"`
	RegionReadingOrder int    `json:"region_reading_order"`
	RegionType         string `json:"region_type"`
}

func (r *LineRecord) Mode() Mode      { return ModeLine }
func (r *LineRecord) Content() string { return r.Text }

// WindowRecord is one crop covering consecutive lines of a region
type WindowRecord struct {
	Base
	Text               string   `json:"text"`
	WindowSize         int      `json:"window_size"`
	WindowIndex        int      `json:"window_index"`
	LineIDs            []string `json:"line_ids"`
	LineReadingOrders  []int    `json:"line_reading_orders"`
	RegionID           string   `json:"region_id"`
	RegionReadingOrder int      `json:"region_reading_order"`
	RegionType         string   `json:"region_type"`
}

func (r *WindowRecord) Mode() Mode      { return ModeWindow }
func (r *WindowRecord) Content() string { return r.Text }

// PolygonRegionRecord is a region crop masked to its polygon
type PolygonRegionRecord struct {
	Base
	Text         string `json:"text"`
	RegionType   string `json:"region_type"`
	RegionID     string `json:"region_id"`
	ReadingOrder int    `json:"reading_order"`
	Coords       string `json:"coords"`
}

func (r *PolygonRegionRecord) Mode() Mode      { return ModePolygonRegion }
func (r *PolygonRegionRecord) Content() string { return r.Text }

// PolygonLineRecord is a line crop masked to its polygon.
// Baseline is nil when the line has none.
type PolygonLineRecord struct {
	Base
	Text         string  `json:"text"`
	LineID       string  `json:"line_id"`
	RegionID     string  `json:"region_id"`
	ReadingOrder int     `json:"reading_order"`
	Coords       string  `json:"coords"`
	Baseline     *string `json:"baseline"`
}

func (r *PolygonLineRecord) Mode() Mode      { return ModePolygonLine }
func (r *PolygonLineRecord) Content() string { return r.Text }
