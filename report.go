package pagedataset

import (
	"errors"
	"fmt"

	"github.com/menta2k/pagexml-dataset/pkg/archive"
	"github.com/menta2k/pagexml-dataset/pkg/pagexml"
)

// Warning is a page that was skipped
type Warning struct {
	Project string
	Path    string
	Err     error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %v", w.Path, w.Err)
}

// Malformed reports whether the page was skipped for a broken annotation
func (w Warning) Malformed() bool { return errors.Is(w.Err, pagexml.ErrMalformedAnnotation) }

// MissingImage reports whether the page was skipped for a missing image
func (w Warning) MissingImage() bool { return errors.Is(w.Err, archive.ErrImageNotFound) }

// Report summarises a batch run
type Report struct {
	Pages    int
	Records  int
	Warnings []Warning
	// Unannotated are images without a matching annotation document
	Unannotated []string
}

// Skipped is the number of skipped pages
func (r *Report) Skipped() int { return len(r.Warnings) }

func (r *Report) add(w Warning) {
	r.Warnings = append(r.Warnings, w)
}
