package export

import (
	"image"
	"strings"

	"github.com/menta2k/pagexml-dataset/pkg/cropper"
	"github.com/menta2k/pagexml-dataset/pkg/pagexml"
	"github.com/menta2k/pagexml-dataset/pkg/types"
	"github.com/menta2k/pagexml-dataset/pkg/window"
)

type rawXMLExporter struct{}

func (rawXMLExporter) Mode() types.Mode { return types.ModeRawXML }

func (rawXMLExporter) Export(page *pagexml.Page, img image.Image) ([]types.Record, error) {
	return []types.Record{&types.RawXMLRecord{
		Base: header(page, img),
		XML:  page.Annotation,
	}}, nil
}

type textExporter struct{}

func (textExporter) Mode() types.Mode { return types.ModeText }

func (textExporter) Export(page *pagexml.Page, img image.Image) ([]types.Record, error) {
	texts := make([]string, 0, len(page.Regions))
	for _, r := range page.Regions {
		if t := r.FullText(); t != "" {
			texts = append(texts, t)
		}
	}
	return []types.Record{&types.TextRecord{
		Base: header(page, img),
		Text: strings.Join(texts, "\n"),
	}}, nil
}

type regionExporter struct {
	cropper *cropper.Cropper
}

func (regionExporter) Mode() types.Mode { return types.ModeRegion }

func (e regionExporter) Export(page *pagexml.Page, img image.Image) ([]types.Record, error) {
	records := make([]types.Record, 0, len(page.Regions))
	for _, r := range page.Regions {
		crop := e.cropper.Crop(img, regionBox(r, img))
		records = append(records, &types.RegionRecord{
			Base:         header(page, crop),
			Text:         r.FullText(),
			RegionType:   r.Type,
			RegionID:     r.ID,
			ReadingOrder: r.ReadingOrder,
		})
	}
	return records, nil
}

type lineExporter struct {
	cropper *cropper.Cropper
}

func (lineExporter) Mode() types.Mode { return types.ModeLine }

func (e lineExporter) Export(page *pagexml.Page, img image.Image) ([]types.Record, error) {
	records := make([]types.Record, 0, page.LineCount())
	for _, r := range page.Regions {
		for _, l := range r.Lines {
			crop := e.cropper.Crop(img, lineBox(l, r, img))
			records = append(records, &types.LineRecord{
				Base:               header(page, crop),
				Text:               l.Text,
				LineID:             l.ID,
				LineReadingOrder:   l.ReadingOrder,
				RegionID:           r.ID,
				RegionReadingOrder: r.ReadingOrder,
				RegionType:         r.Type,
			})
		}
	}
	return records, nil
}

type windowExporter struct {
	cropper *cropper.Cropper
	config  window.Config
}

func (windowExporter) Mode() types.Mode { return types.ModeWindow }

func (e windowExporter) Export(page *pagexml.Page, img image.Image) ([]types.Record, error) {
	var records []types.Record
	for _, r := range page.Regions {
		windows, err := window.Generate(r.Lines, e.config)
		if err != nil {
			return nil, err
		}
		for _, w := range windows {
			crop := e.cropper.Crop(img, windowBox(w, r, img))
			records = append(records, &types.WindowRecord{
				Base:               header(page, crop),
				Text:               w.Text(),
				WindowSize:         w.Size(),
				WindowIndex:        w.Index,
				LineIDs:            w.LineIDs(),
				LineReadingOrders:  w.LineReadingOrders(),
				RegionID:           r.ID,
				RegionReadingOrder: r.ReadingOrder,
				RegionType:         r.Type,
			})
		}
	}
	return records, nil
}

type polygonRegionExporter struct {
	cropper *cropper.Cropper
}

func (polygonRegionExporter) Mode() types.Mode { return types.ModePolygonRegion }

func (e polygonRegionExporter) Export(page *pagexml.Page, img image.Image) ([]types.Record, error) {
	records := make([]types.Record, 0, len(page.Regions))
	for _, r := range page.Regions {
		crop := cropShape(e.cropper, img, r.Coords)
		records = append(records, &types.PolygonRegionRecord{
			Base:         header(page, crop),
			Text:         r.FullText(),
			RegionType:   r.Type,
			RegionID:     r.ID,
			ReadingOrder: r.ReadingOrder,
			Coords:       r.Coords.String(),
		})
	}
	return records, nil
}

type polygonLineExporter struct {
	cropper *cropper.Cropper
}

func (polygonLineExporter) Mode() types.Mode { return types.ModePolygonLine }

func (e polygonLineExporter) Export(page *pagexml.Page, img image.Image) ([]types.Record, error) {
	records := make([]types.Record, 0, page.LineCount())
	for _, r := range page.Regions {
		for _, l := range r.Lines {
			rec := &types.PolygonLineRecord{
				Base:         header(page, cropShape(e.cropper, img, l.Coords, r.Coords)),
				Text:         l.Text,
				LineID:       l.ID,
				RegionID:     r.ID,
				ReadingOrder: l.ReadingOrder,
				Coords:       l.Coords.String(),
			}
			if len(l.Baseline) > 0 {
				baseline := l.Baseline.String()
				rec.Baseline = &baseline
			}
			records = append(records, rec)
		}
	}
	return records, nil
}
