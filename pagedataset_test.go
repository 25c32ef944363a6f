package pagedataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"
	"testing/fstest"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/menta2k/pagexml-dataset/pkg/archive"
	"github.com/menta2k/pagexml-dataset/pkg/types"
	"github.com/menta2k/pagexml-dataset/pkg/window"
)

// createTestImage creates an encoded PNG page
func createTestImage(t testing.TB, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{240, 235, 220, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// pageXML describes one region with the given number of lines
func pageXML(imageFile string, lines int) string {
	var body bytes.Buffer
	for i := 0; i < lines; i++ {
		y := 20 + i*20
		fmt.Fprintf(&body, `<TextLine id="l%d" custom="readingOrder {index:%d;}">
<Coords points="10,%d 90,%d 90,%d 10,%d"/>
<TextEquiv><Unicode>line %d</Unicode></TextEquiv>
</TextLine>`, i, i, y, y, y+15, y+15, i)
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<PcGts xmlns="http://schema.primaresearch.org/PAGE/gts/pagecontent/2013-07-15">
<Page imageFilename="%s" imageWidth="100" imageHeight="150">
<TextRegion id="r0" type="paragraph" custom="readingOrder {index:0;}">
<Coords points="5,10 95,10 95,140 5,140"/>
%s
</TextRegion>
</Page>
</PcGts>`, imageFile, body.String())
}

// createTestArchive builds a project of n pages with 3 lines each
func createTestArchive(t *testing.T, n int) fstest.MapFS {
	t.Helper()
	img := createTestImage(t, 100, 150)
	fsys := fstest.MapFS{}
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("%04d.png", i)
		fsys["proj/"+name] = &fstest.MapFile{Data: img}
		fsys[fmt.Sprintf("proj/page/%04d.xml", i)] = &fstest.MapFile{Data: []byte(pageXML(name, 3))}
	}
	return fsys
}

func newTestConverter(t *testing.T, opts Options) *Converter {
	t.Helper()
	logger, _ := test.NewNullLogger()
	opts.Logger = logger
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func openTestArchive(t *testing.T, fsys fstest.MapFS) *archive.Archive {
	t.Helper()
	a, err := archive.FromFS(fsys, "export")
	if err != nil {
		t.Fatalf("FromFS failed: %v", err)
	}
	return a
}

func TestNew(t *testing.T) {
	c := newTestConverter(t, Options{Mode: types.ModeLine})
	if c.Mode() != types.ModeLine {
		t.Errorf("Expected line mode, got %s", c.Mode())
	}
	if c.workers != 1 {
		t.Errorf("Expected 1 worker by default, got %d", c.workers)
	}
}

func TestNewInvalidConfig(t *testing.T) {
	_, err := New(Options{Mode: types.ModeWindow, Window: window.Config{Size: 1, Overlap: 1}})
	if !errors.Is(err, window.ErrInvalidWindowConfig) {
		t.Errorf("Expected ErrInvalidWindowConfig, got %v", err)
	}
	if _, err := New(Options{Mode: "bogus"}); err == nil {
		t.Error("Expected error for unknown mode")
	}
}

func TestConvert(t *testing.T) {
	c := newTestConverter(t, Options{Mode: types.ModeLine})
	a := openTestArchive(t, createTestArchive(t, 2))

	records, report, err := c.Convert(context.Background(), a)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if len(records) != 6 || report.Records != 6 {
		t.Fatalf("Expected 6 records, got %d", len(records))
	}
	if report.Pages != 2 || report.Skipped() != 0 {
		t.Errorf("Expected 2 pages and no skips, got %d/%d", report.Pages, report.Skipped())
	}

	first := records[0].(*types.LineRecord)
	if first.Filename != "0000.png" || first.Project != "proj" || first.Text != "line 0" {
		t.Errorf("Unexpected first record %+v", first)
	}
	if b := first.Image.Bounds(); b.Dx() != 80 || b.Dy() != 15 {
		t.Errorf("Expected 80x15 line crop, got %dx%d", b.Dx(), b.Dy())
	}
	last := records[5].(*types.LineRecord)
	if last.Filename != "0001.png" || last.LineID != "l2" {
		t.Errorf("Records out of page order: %+v", last)
	}
}

// One malformed page among ten is skipped and reported
func TestConvertSkipsMalformedPage(t *testing.T) {
	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			fsys := createTestArchive(t, 10)
			fsys["proj/page/0004.xml"] = &fstest.MapFile{Data: []byte(`<PcGts><Page imageFilename="0004.png"><TextRegion>`)}

			c := newTestConverter(t, Options{Mode: types.ModeText, Workers: workers})
			records, report, err := c.Convert(context.Background(), openTestArchive(t, fsys))
			if err != nil {
				t.Fatalf("Convert failed: %v", err)
			}
			if report.Pages != 9 || len(records) != 9 {
				t.Errorf("Expected 9 converted pages, got %d pages %d records", report.Pages, len(records))
			}
			if report.Skipped() != 1 {
				t.Fatalf("Expected 1 warning, got %d", report.Skipped())
			}
			w := report.Warnings[0]
			if !w.Malformed() || w.Path != "proj/page/0004.xml" {
				t.Errorf("Unexpected warning %v", w)
			}
			for i, r := range records {
				want := fmt.Sprintf("%04d.png", i)
				if i >= 4 {
					want = fmt.Sprintf("%04d.png", i+1)
				}
				if r.Header().Filename != want {
					t.Errorf("Record %d: expected %s, got %s", i, want, r.Header().Filename)
				}
			}
		})
	}
}

func TestConvertMissingImage(t *testing.T) {
	fsys := createTestArchive(t, 2)
	delete(fsys, "proj/0001.png")

	c := newTestConverter(t, Options{Mode: types.ModeRawXML})
	records, report, err := c.Convert(context.Background(), openTestArchive(t, fsys))
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if len(records) != 1 || report.Skipped() != 1 {
		t.Fatalf("Expected 1 record and 1 skip, got %d/%d", len(records), report.Skipped())
	}
	if !report.Warnings[0].MissingImage() {
		t.Errorf("Expected a missing image warning, got %v", report.Warnings[0])
	}
}

func TestConvertUnreadableImage(t *testing.T) {
	fsys := createTestArchive(t, 1)
	fsys["proj/0000.png"] = &fstest.MapFile{Data: []byte("not a png")}

	c := newTestConverter(t, Options{Mode: types.ModeText})
	_, report, err := c.Convert(context.Background(), openTestArchive(t, fsys))
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if report.Skipped() != 1 || report.Pages != 0 {
		t.Errorf("Expected the page to be skipped, got %+v", report)
	}
}

func TestConvertReportsUnannotated(t *testing.T) {
	fsys := createTestArchive(t, 1)
	fsys["proj/9999.png"] = &fstest.MapFile{Data: createTestImage(t, 10, 10)}

	c := newTestConverter(t, Options{Mode: types.ModeText})
	_, report, err := c.Convert(context.Background(), openTestArchive(t, fsys))
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if len(report.Unannotated) != 1 || report.Unannotated[0] != "proj/9999.png" {
		t.Errorf("Expected proj/9999.png to be reported, got %v", report.Unannotated)
	}
}

func TestConvertCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestConverter(t, Options{Mode: types.ModeText})
	if _, _, err := c.Convert(ctx, openTestArchive(t, createTestArchive(t, 3))); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestConvertWindows(t *testing.T) {
	c := newTestConverter(t, Options{Mode: types.ModeWindow, Window: window.Config{Size: 2, Overlap: 1}})
	records, _, err := c.Convert(context.Background(), openTestArchive(t, createTestArchive(t, 1)))
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	// 3 lines, stride 1: windows at 0, 1, 2
	if len(records) != 3 {
		t.Fatalf("Expected 3 windows, got %d", len(records))
	}
	if records[2].(*types.WindowRecord).WindowSize != 1 {
		t.Error("Expected a single line final window")
	}
}

func TestStats(t *testing.T) {
	fsys := createTestArchive(t, 4)
	fsys["proj/page/0002.xml"] = &fstest.MapFile{Data: []byte("garbage")}

	c := newTestConverter(t, Options{Mode: types.ModeText})
	cfg := window.Config{Size: 2, Overlap: 0}
	s, report := c.Stats(openTestArchive(t, fsys), &cfg)

	if s.Pages != 3 || s.Lines != 9 || s.Regions != 3 {
		t.Errorf("Unexpected stats %+v", s)
	}
	if s.EstimatedWindows == nil || *s.EstimatedWindows != 6 {
		t.Errorf("Expected 6 estimated windows, got %v", s.EstimatedWindows)
	}
	if report.Skipped() != 1 {
		t.Errorf("Expected 1 skipped page, got %d", report.Skipped())
	}
}

func BenchmarkConvertLines(b *testing.B) {
	img := createTestImage(b, 100, 150)
	fsys := fstest.MapFS{
		"proj/0000.png":      {Data: img},
		"proj/page/0000.xml": {Data: []byte(pageXML("0000.png", 6))},
	}
	a, err := archive.FromFS(fsys, "export")
	if err != nil {
		b.Fatal(err)
	}
	logger, _ := test.NewNullLogger()
	c, err := New(Options{Mode: types.ModeLine, Logger: logger})
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = c.Convert(context.Background(), a)
	}
}
