// Package export turns a parsed page and its image into dataset records.
// Each mode is a separate Exporter; New selects one.
package export

import (
	"fmt"
	"image"

	"github.com/menta2k/pagexml-dataset/pkg/cropper"
	"github.com/menta2k/pagexml-dataset/pkg/geometry"
	"github.com/menta2k/pagexml-dataset/pkg/pagexml"
	"github.com/menta2k/pagexml-dataset/pkg/types"
	"github.com/menta2k/pagexml-dataset/pkg/window"
)

// Exporter produces the records of one page
type Exporter interface {
	Mode() types.Mode
	Export(page *pagexml.Page, img image.Image) ([]types.Record, error)
}

// Options configures the exporters
type Options struct {
	// Window is used by the window mode only
	Window window.Config
	// Cropper defaults to cropper.New()
	Cropper *cropper.Cropper
}

// New returns the exporter for mode. The window policy is validated up front
// so a bad configuration fails before any page is processed.
func New(mode types.Mode, opts Options) (Exporter, error) {
	c := opts.Cropper
	if c == nil {
		c = cropper.New()
	}

	switch mode {
	case types.ModeRawXML:
		return rawXMLExporter{}, nil
	case types.ModeText:
		return textExporter{}, nil
	case types.ModeRegion:
		return regionExporter{cropper: c}, nil
	case types.ModeLine:
		return lineExporter{cropper: c}, nil
	case types.ModeWindow:
		if err := opts.Window.Validate(); err != nil {
			return nil, err
		}
		return windowExporter{cropper: c, config: opts.Window}, nil
	case types.ModePolygonRegion:
		return polygonRegionExporter{cropper: c}, nil
	case types.ModePolygonLine:
		return polygonLineExporter{cropper: c}, nil
	}
	return nil, fmt.Errorf("unknown export mode %q", mode)
}

func header(page *pagexml.Page, img image.Image) types.Base {
	return types.Base{
		Image:    img,
		Filename: page.Filename,
		Project:  page.Project,
	}
}

// pageBox covers the whole image
func pageBox(img image.Image) geometry.BoundingBox {
	b := img.Bounds()
	return geometry.NewBoundingBox(b.Dx(), b.Dy())
}

// regionBox is the region polygon box, or the whole page when the region has no points
func regionBox(r pagexml.Region, img image.Image) geometry.BoundingBox {
	if box, err := r.Box(); err == nil {
		return box
	}
	return pageBox(img)
}

// lineBox is the line polygon box, falling back to its region
func lineBox(l pagexml.Line, r pagexml.Region, img image.Image) geometry.BoundingBox {
	if box, err := l.Box(); err == nil {
		return box
	}
	return regionBox(r, img)
}

// windowBox is the union of the member line boxes, falling back to the region
func windowBox(w window.Window, r pagexml.Region, img image.Image) geometry.BoundingBox {
	if box, err := w.Box(); err == nil {
		return box
	}
	return regionBox(r, img)
}

// cropShape masks to the first polygon with points. With none left the
// whole page is cropped.
func cropShape(c *cropper.Cropper, img image.Image, polygons ...geometry.Polygon) image.Image {
	for _, p := range polygons {
		if len(p) > 0 {
			return c.CropPolygon(img, p)
		}
	}
	return c.Crop(img, pageBox(img))
}
