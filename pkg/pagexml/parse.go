// Package pagexml parses PAGE XML annotation documents into a
// Page -> Region -> Line tree.
package pagexml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/charmap"

	"github.com/menta2k/pagexml-dataset/pkg/geometry"
)

// ErrMalformedAnnotation is returned when a document is not well formed PAGE XML
var ErrMalformedAnnotation = errors.New("pagexml: malformed annotation")

var (
	customReadingOrder = regexp.MustCompile(`readingOrder\s*\{\s*index\s*:\s*(\d+)`)
	xmlDeclEncoding    = regexp.MustCompile(`^\s*<\?xml[^>]*?encoding\s*=\s*["']([A-Za-z0-9._:-]+)["']`)
	utf8BOM            = []byte{0xEF, 0xBB, 0xBF}
)

// Parse converts one annotation document into a Page.
// filename is the image name to report; when empty the imageFilename
// attribute is used.
func Parse(data []byte, project, filename string) (*Page, error) {
	text, input, err := decodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAnnotation, err)
	}

	p := &parser{refIndex: make(map[string]int)}
	if err := p.run(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAnnotation, err)
	}
	if !p.sawPage {
		return nil, fmt.Errorf("%w: no Page element", ErrMalformedAnnotation)
	}

	page := &Page{
		Filename:      filename,
		Project:       project,
		ImageFilename: p.imageFilename,
		ImageWidth:    p.imageWidth,
		ImageHeight:   p.imageHeight,
		Annotation:    string(text),
		Regions:       p.build(),
	}
	if page.Filename == "" {
		page.Filename = page.ImageFilename
	}
	return page, nil
}

// decodeDocument returns the document as UTF-8 text and the bytes the XML
// decoder should consume.
func decodeDocument(data []byte) (text []byte, input []byte, err error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	if label := declaredEncoding(data); label != "" && !isUTF8Label(label) {
		r, err := charset.NewReaderLabel(label, bytes.NewReader(data))
		if err != nil {
			return nil, nil, err
		}
		text, err := io.ReadAll(r)
		if err != nil {
			return nil, nil, err
		}
		return text, data, nil
	}

	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, nil, err
		}
		return decoded, decoded, nil
	}
	return data, data, nil
}

func declaredEncoding(data []byte) string {
	head := data
	if len(head) > 256 {
		head = head[:256]
	}
	m := xmlDeclEncoding.FindSubmatch(head)
	if m == nil {
		return ""
	}
	return string(m[1])
}

func isUTF8Label(label string) bool {
	switch strings.ToLower(label) {
	case "utf-8", "utf8":
		return true
	}
	return false
}

// readingOrderIndex extracts N from a custom attribute like
// "readingOrder {index:N;} structure {type:heading;}".
func readingOrderIndex(custom string) (int, bool) {
	m := customReadingOrder.FindStringSubmatch(custom)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// resolveOrder applies the reading order priority: explicit index, then the
// position among siblings, then the document wide counter.
func resolveOrder(explicit *int, sibling, counter int) int {
	if explicit != nil {
		return *explicit
	}
	if sibling >= 0 {
		return sibling
	}
	return counter
}

type lineBuilder struct {
	line     Line
	explicit *int
	sibling  int
	counter  int
}

type regionBuilder struct {
	region   Region
	explicit *int
	sibling  int
	counter  int
	lines    []*lineBuilder
}

type parser struct {
	sawPage       bool
	imageFilename string
	imageWidth    int
	imageHeight   int

	refIndex map[string]int
	regions  []*regionBuilder

	stack       []string
	openRegions []*regionBuilder
	openLine    *lineBuilder

	pageRegions int
	lineCounter int

	equivDone map[any]bool
	unicode   *strings.Builder
}

func (p *parser) parent() string {
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

func (p *parser) grandparent() string {
	if len(p.stack) < 2 {
		return ""
	}
	return p.stack[len(p.stack)-2]
}

func (p *parser) currentRegion() *regionBuilder {
	if len(p.openRegions) == 0 {
		return nil
	}
	return p.openRegions[len(p.openRegions)-1]
}

func (p *parser) run(input []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(input))
	dec.CharsetReader = charset.NewReaderLabel
	p.equivDone = make(map[any]bool)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			p.start(t)
			p.stack = append(p.stack, t.Name.Local)
		case xml.EndElement:
			if len(p.stack) > 0 {
				p.stack = p.stack[:len(p.stack)-1]
			}
			p.end(t)
		case xml.CharData:
			if p.unicode != nil {
				p.unicode.Write(t)
			}
		}
	}
}

func (p *parser) start(t xml.StartElement) {
	switch t.Name.Local {
	case "Page":
		if p.sawPage {
			return
		}
		p.sawPage = true
		p.imageFilename = attr(t, "imageFilename")
		p.imageWidth, _ = strconv.Atoi(attr(t, "imageWidth"))
		p.imageHeight, _ = strconv.Atoi(attr(t, "imageHeight"))

	case "RegionRefIndexed":
		if idx, err := strconv.Atoi(attr(t, "index")); err == nil {
			p.refIndex[attr(t, "regionRef")] = idx
		}

	case "TextRegion":
		rb := &regionBuilder{sibling: -1, counter: len(p.regions)}
		rb.region.ID = attr(t, "id")
		rb.region.Type = attr(t, "type")
		if rb.region.Type == "" {
			rb.region.Type = DefaultRegionType
		}
		if n, ok := readingOrderIndex(attr(t, "custom")); ok {
			rb.explicit = &n
		}
		if p.parent() == "Page" {
			rb.sibling = p.pageRegions
			p.pageRegions++
		}
		p.regions = append(p.regions, rb)
		p.openRegions = append(p.openRegions, rb)

	case "TextLine":
		rb := p.currentRegion()
		if rb == nil || p.parent() != "TextRegion" {
			return
		}
		lb := &lineBuilder{sibling: len(rb.lines), counter: p.lineCounter}
		p.lineCounter++
		lb.line.ID = attr(t, "id")
		lb.line.RegionID = rb.region.ID
		if n, ok := readingOrderIndex(attr(t, "custom")); ok {
			lb.explicit = &n
		}
		rb.lines = append(rb.lines, lb)
		p.openLine = lb

	case "Coords":
		pts := geometry.ParsePoints(attr(t, "points"))
		switch p.parent() {
		case "TextLine":
			if p.openLine != nil {
				p.openLine.line.Coords = pts
			}
		case "TextRegion":
			if rb := p.currentRegion(); rb != nil {
				rb.region.Coords = pts
			}
		}

	case "Baseline":
		if p.parent() == "TextLine" && p.openLine != nil {
			p.openLine.line.Baseline = geometry.ParsePoints(attr(t, "points"))
		}

	case "Unicode":
		if p.parent() != "TextEquiv" {
			return
		}
		switch p.grandparent() {
		case "TextLine", "TextRegion":
			p.unicode = &strings.Builder{}
		}
	}
}

func (p *parser) end(t xml.EndElement) {
	switch t.Name.Local {
	case "TextRegion":
		if len(p.openRegions) > 0 {
			p.openRegions = p.openRegions[:len(p.openRegions)-1]
		}
	case "TextLine":
		if p.parent() == "TextRegion" {
			p.openLine = nil
		}
	case "Unicode":
		if p.unicode == nil {
			return
		}
		text := p.unicode.String()
		p.unicode = nil
		p.setText(text)
	}
}

// setText stores the first TextEquiv of the innermost open line or region
func (p *parser) setText(text string) {
	// The stack now ends at TextEquiv; its parent owns the text
	switch p.grandparent() {
	case "TextLine":
		if lb := p.openLine; lb != nil && !p.equivDone[lb] {
			lb.line.Text = text
			p.equivDone[lb] = true
		}
	case "TextRegion":
		if rb := p.currentRegion(); rb != nil && !p.equivDone[rb] {
			rb.region.Text = text
			p.equivDone[rb] = true
		}
	}
}

// build resolves reading orders and returns the sorted region list
func (p *parser) build() []Region {
	regions := make([]Region, 0, len(p.regions))
	for _, rb := range p.regions {
		explicit := rb.explicit
		if idx, ok := p.refIndex[rb.region.ID]; ok && rb.region.ID != "" {
			explicit = &idx
		}
		rb.region.ReadingOrder = resolveOrder(explicit, rb.sibling, rb.counter)

		lines := make([]Line, 0, len(rb.lines))
		for _, lb := range rb.lines {
			lb.line.ReadingOrder = resolveOrder(lb.explicit, lb.sibling, lb.counter)
			lines = append(lines, lb.line)
		}
		sort.SliceStable(lines, func(i, j int) bool {
			return lines[i].ReadingOrder < lines[j].ReadingOrder
		})
		rb.region.Lines = lines
		regions = append(regions, rb.region)
	}
	sort.SliceStable(regions, func(i, j int) bool {
		return regions[i].ReadingOrder < regions[j].ReadingOrder
	})
	return regions
}

func attr(t xml.StartElement, name string) string {
	for _, a := range t.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
