// Package pagedataset converts PAGE XML layout exports into flat image/text
// datasets for machine learning.
//
// An export is a zip file or directory with one folder per project. Each
// project holds page images and a page/ folder with one PAGE XML document
// per image describing its text regions, text lines, coordinates and
// transcriptions.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		"github.com/menta2k/pagexml-dataset"
//		"github.com/menta2k/pagexml-dataset/pkg/archive"
//		"github.com/menta2k/pagexml-dataset/pkg/types"
//		"github.com/menta2k/pagexml-dataset/pkg/window"
//	)
//
//	func main() {
//		a, err := archive.Open("export.zip")
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer a.Close()
//
//		conv, err := pagedataset.New(pagedataset.Options{
//			Mode:   types.ModeWindow,
//			Window: window.Config{Size: 3, Overlap: 1},
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		records, report, err := conv.Convert(context.Background(), a)
//		if err != nil {
//			log.Fatal(err)
//		}
//		log.Printf("%d records from %d pages, %d skipped", len(records), report.Pages, report.Skipped())
//	}
//
// The package is built from these components:
//
//  1. Geometry (pkg/geometry): point parsing, bounding boxes and unions
//  2. Cropper (pkg/cropper): clamped rectangular and polygon masked crops
//  3. PAGE XML parser (pkg/pagexml): the Page -> Region -> Line tree
//  4. Windows (pkg/window): sliding multi-line windows over a region
//  5. Export modes (pkg/export): one record shape per mode
//  6. Statistics (pkg/stats): counts without decoding any image
//
// Pages whose annotation is malformed or whose image is missing are skipped
// and reported; the rest of the batch is still converted.
package pagedataset

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/pagexml-dataset/pkg/archive"
	"github.com/menta2k/pagexml-dataset/pkg/cropper"
	"github.com/menta2k/pagexml-dataset/pkg/export"
	"github.com/menta2k/pagexml-dataset/pkg/pagexml"
	"github.com/menta2k/pagexml-dataset/pkg/processing"
	"github.com/menta2k/pagexml-dataset/pkg/stats"
	"github.com/menta2k/pagexml-dataset/pkg/types"
	"github.com/menta2k/pagexml-dataset/pkg/window"
)

// Version of the converter
const Version = "1.0.0"

// Options configures a Converter
type Options struct {
	Mode   types.Mode
	Window window.Config
	// PolygonPadding is used by the polygon modes, nil selects the default
	PolygonPadding *int
	// Workers above 1 convert pages concurrently
	Workers int
	Logger  logrus.FieldLogger
}

// Converter turns the documents of an archive into records
type Converter struct {
	exporter  export.Exporter
	processor *processing.Processor
	workers   int
	log       logrus.FieldLogger
}

// New validates the options and creates a Converter
func New(opts Options) (*Converter, error) {
	cropConfig := cropper.CropConfig{PolygonPadding: cropper.DefaultPolygonPadding}
	if opts.PolygonPadding != nil {
		cropConfig.PolygonPadding = *opts.PolygonPadding
	}

	exp, err := export.New(opts.Mode, export.Options{
		Window:  opts.Window,
		Cropper: cropper.NewWithConfig(cropConfig),
	})
	if err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Converter{
		exporter:  exp,
		processor: processing.NewProcessor(),
		workers:   max(opts.Workers, 1),
		log:       log,
	}, nil
}

// Mode is the export mode of the converter
func (c *Converter) Mode() types.Mode { return c.exporter.Mode() }

// Convert parses every document of the archive, loads its image and exports
// the records, in document order.
func (c *Converter) Convert(ctx context.Context, a *archive.Archive) ([]types.Record, *Report, error) {
	docs := a.Documents()
	report := &Report{}
	c.reportUnannotated(a, report)

	results := make([][]types.Record, len(docs))
	warnings := make([]*Warning, len(docs))

	convert := func(i int) {
		records, w := c.convertDocument(a, docs[i])
		results[i], warnings[i] = records, w
	}

	if c.workers > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.workers)
		for i := range docs {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				convert(i)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, report, err
		}
	} else {
		for i := range docs {
			if err := ctx.Err(); err != nil {
				return nil, report, err
			}
			convert(i)
		}
	}

	var records []types.Record
	for i := range docs {
		if warnings[i] != nil {
			report.add(*warnings[i])
			c.logWarning(*warnings[i])
			continue
		}
		report.Pages++
		records = append(records, results[i]...)
	}
	report.Records = len(records)

	c.log.WithFields(logrus.Fields{
		"mode":    c.Mode(),
		"pages":   report.Pages,
		"skipped": report.Skipped(),
		"records": report.Records,
	}).Info("Conversion finished")
	return records, report, nil
}

// ConvertPage exports one parsed page with its encoded image
func (c *Converter) ConvertPage(page *pagexml.Page, imageData []byte) ([]types.Record, error) {
	img, err := c.processor.DecodeImage(imageData)
	if err != nil {
		return nil, err
	}
	return c.exporter.Export(page, img)
}

func (c *Converter) convertDocument(a *archive.Archive, doc archive.Document) ([]types.Record, *Warning) {
	warn := func(err error) *Warning {
		return &Warning{Project: doc.Project, Path: doc.Path, Err: err}
	}

	page, err := loadPage(a, doc)
	if err != nil {
		return nil, warn(err)
	}

	imagePath, err := a.FindImage(doc, page.ImageFilename)
	if err != nil {
		return nil, warn(err)
	}
	data, err := a.ReadFile(imagePath)
	if err != nil {
		return nil, warn(err)
	}

	records, err := c.ConvertPage(page, data)
	if err != nil {
		return nil, warn(fmt.Errorf("%s: %w", imagePath, err))
	}
	return records, nil
}

// LoadPages parses every document without touching images. Malformed
// documents are reported and left out.
func (c *Converter) LoadPages(a *archive.Archive) ([]*pagexml.Page, *Report) {
	report := &Report{}
	var pages []*pagexml.Page
	for _, doc := range a.Documents() {
		page, err := loadPage(a, doc)
		if err != nil {
			w := Warning{Project: doc.Project, Path: doc.Path, Err: err}
			report.add(w)
			c.logWarning(w)
			continue
		}
		pages = append(pages, page)
		report.Pages++
	}
	return pages, report
}

// Stats collects statistics over the archive. cfg enables the window estimate.
func (c *Converter) Stats(a *archive.Archive, cfg *window.Config) (stats.Stats, *Report) {
	pages, report := c.LoadPages(a)
	return stats.Collect(pages, cfg), report
}

func loadPage(a *archive.Archive, doc archive.Document) (*pagexml.Page, error) {
	data, err := a.ReadFile(doc.Path)
	if err != nil {
		return nil, err
	}
	page, err := pagexml.Parse(data, doc.Project, "")
	if err != nil {
		return nil, err
	}
	page.XMLPath = doc.Path
	return page, nil
}

func (c *Converter) reportUnannotated(a *archive.Archive, report *Report) {
	for _, name := range a.Unannotated() {
		c.log.WithField("image", name).Warn("Image has no annotation document, skipping")
		report.Unannotated = append(report.Unannotated, name)
	}
}

func (c *Converter) logWarning(w Warning) {
	c.log.WithFields(logrus.Fields{
		"project": w.Project,
		"file":    w.Path,
		"reason":  w.Err,
	}).Warn("Skipping page")
}
