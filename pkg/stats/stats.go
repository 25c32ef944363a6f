// Package stats summarises parsed pages without touching any image.
package stats

import (
	"fmt"
	"io"
	"sort"

	"github.com/menta2k/pagexml-dataset/pkg/pagexml"
	"github.com/menta2k/pagexml-dataset/pkg/window"
)

// Stats are the counts over a set of pages
type Stats struct {
	Pages    int      `json:"total_pages"`
	Projects []string `json:"projects"`
	Regions  int      `json:"total_regions"`
	Lines    int      `json:"total_lines"`

	// EstimatedWindows is set only when a window config was given
	EstimatedWindows *int           `json:"estimated_windows,omitempty"`
	Window           *window.Config `json:"window,omitempty"`
}

// Collect walks the pages. When cfg is non-nil the number of windows the
// window mode would produce is estimated per region.
func Collect(pages []*pagexml.Page, cfg *window.Config) Stats {
	var s Stats
	projects := make(map[string]struct{})
	windows := 0

	for _, p := range pages {
		s.Pages++
		projects[p.Project] = struct{}{}
		s.Regions += len(p.Regions)
		for _, r := range p.Regions {
			s.Lines += len(r.Lines)
			if cfg != nil {
				windows += window.Estimate(len(r.Lines), *cfg)
			}
		}
	}

	s.Projects = make([]string, 0, len(projects))
	for name := range projects {
		s.Projects = append(s.Projects, name)
	}
	sort.Strings(s.Projects)

	if cfg != nil {
		c := *cfg
		s.Window = &c
		s.EstimatedWindows = &windows
	}
	return s
}

// ProjectCount is the number of distinct projects
func (s Stats) ProjectCount() int { return len(s.Projects) }

// AvgRegionsPerPage is 0 when there are no pages
func (s Stats) AvgRegionsPerPage() float64 {
	if s.Pages == 0 {
		return 0
	}
	return float64(s.Regions) / float64(s.Pages)
}

// AvgLinesPerPage is 0 when there are no pages
func (s Stats) AvgLinesPerPage() float64 {
	if s.Pages == 0 {
		return 0
	}
	return float64(s.Lines) / float64(s.Pages)
}

// Print writes a human readable summary
func (s Stats) Print(w io.Writer) error {
	lines := []string{
		"Dataset statistics:",
		fmt.Sprintf("  Total pages: %d", s.Pages),
		fmt.Sprintf("  Total projects: %d", s.ProjectCount()),
		fmt.Sprintf("  Total regions: %d", s.Regions),
		fmt.Sprintf("  Total lines: %d", s.Lines),
		fmt.Sprintf("  Avg regions per page: %.2f", s.AvgRegionsPerPage()),
		fmt.Sprintf("  Avg lines per page: %.2f", s.AvgLinesPerPage()),
	}
	if s.EstimatedWindows != nil && s.Window != nil {
		lines = append(lines, fmt.Sprintf("  Estimated windows (size=%d, overlap=%d): %d",
			s.Window.Size, s.Window.Overlap, *s.EstimatedWindows))
	}
	if len(s.Projects) > 0 {
		lines = append(lines, "  Projects:")
		for _, p := range s.Projects {
			lines = append(lines, "    - "+p)
		}
	}

	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
