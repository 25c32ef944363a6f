// Package archive reads layout exports from a zip file or an unpacked
// directory. Each project is a top level folder holding page images and a
// page/ folder of annotation documents.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/menta2k/pagexml-dataset/internal/utils"
)

// ErrImageNotFound is returned when no archive entry matches an image filename
var ErrImageNotFound = errors.New("archive: image not found")

// Document is one annotation document in the archive
type Document struct {
	Project string
	Path    string
}

// Dir is the folder holding the document's page/ folder, "." at the root.
// Images of the document are looked up there first.
func (d Document) Dir() string {
	return path.Dir(path.Dir(d.Path))
}

// ownerDir is the folder an image belongs to, skipping an images/ folder
func ownerDir(name string) string {
	dir := path.Dir(name)
	if path.Base(dir) == "images" {
		dir = path.Dir(dir)
	}
	return dir
}

// join prefixes name with dir unless dir is the archive root
func join(dir, name string) string {
	if dir == "." || dir == "" {
		return name
	}
	return dir + "/" + name
}

// Archive is an opened export
type Archive struct {
	fsys   fs.FS
	closer io.Closer
	root   string

	files   []string
	byBase  map[string][]string
	exists  map[string]bool
	docDirs map[string]bool
}

// Open opens a zip file or a directory
func Open(p string) (*Archive, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	a := &Archive{root: strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))}
	if info.IsDir() {
		a.root = filepath.Base(filepath.Clean(p))
		a.fsys = os.DirFS(p)
	} else {
		zr, err := zip.OpenReader(p)
		if err != nil {
			return nil, fmt.Errorf("failed to open zip archive %s: %w", p, err)
		}
		a.fsys = zr
		a.closer = zr
	}

	if err := a.index(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// FromFS wraps an existing file system, rooted at the export. name is used
// as the project for documents at the root.
func FromFS(fsys fs.FS, name string) (*Archive, error) {
	a := &Archive{fsys: fsys, root: name}
	if err := a.index(); err != nil {
		return nil, err
	}
	return a, nil
}

// Close releases the underlying zip file
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

func (a *Archive) index() error {
	a.byBase = make(map[string][]string)
	a.exists = make(map[string]bool)
	a.docDirs = make(map[string]bool)

	err := fs.WalkDir(a.fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "__MACOSX" {
				return fs.SkipDir
			}
			return nil
		}
		if utils.IsMacOSMetadata(name) {
			return nil
		}
		a.files = append(a.files, name)
		a.exists[name] = true
		if utils.IsPageXML(name) {
			a.docDirs[Document{Path: name}.Dir()] = true
		}
		base := path.Base(name)
		a.byBase[base] = append(a.byBase[base], name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to list archive: %w", err)
	}
	sort.Strings(a.files)
	return nil
}

// projectOf returns the project of a document. Documents whose page folder
// sits at the root belong to the archive itself.
func (a *Archive) projectOf(name string) string {
	if strings.HasPrefix(name, "page/") {
		return a.root
	}
	return utils.ProjectOf(name)
}

// Documents lists the annotation documents in path order
func (a *Archive) Documents() []Document {
	var docs []Document
	for _, name := range a.files {
		if !utils.IsPageXML(name) {
			continue
		}
		docs = append(docs, Document{Project: a.projectOf(name), Path: name})
	}
	return docs
}

// Unannotated lists the images that have no annotation document with the
// same stem. Images in a folder that holds a page/ folder must match a
// document of that folder; other images match by project.
func (a *Archive) Unannotated() []string {
	byDir := make(map[string]bool)
	byProject := make(map[string]bool)
	for _, d := range a.Documents() {
		stem := utils.Stem(d.Path)
		byDir[join(d.Dir(), stem)] = true
		byProject[d.Project+"/"+stem] = true
	}

	var orphans []string
	for _, name := range a.files {
		if !utils.IsImageFile(name) {
			continue
		}
		stem := utils.Stem(name)
		dir := ownerDir(name)
		if a.docDirs[dir] {
			if !byDir[join(dir, stem)] {
				orphans = append(orphans, name)
			}
			continue
		}

		project := utils.ProjectOf(name)
		if project == "" || strings.HasPrefix(name, "images/") {
			project = a.root
		}
		if !byProject[project+"/"+stem] {
			orphans = append(orphans, name)
		}
	}
	return orphans
}

// ReadFile returns the content of an archive entry
func (a *Archive) ReadFile(name string) ([]byte, error) {
	data, err := fs.ReadFile(a.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// belongsTo reports whether an image may serve a document in dir. Images
// inside another document's folder never do.
func (a *Archive) belongsTo(name, dir string) bool {
	owner := ownerDir(name)
	return owner == dir || !a.docDirs[owner]
}

// FindImage locates the image a document refers to. It tries the document
// folder and its images/ folder, then the project folder, its images/ folder
// and the archive root, then any entry with the same file name, preferring
// one inside the document folder and then the project. Images in the folder
// of another document are never used.
func (a *Archive) FindImage(doc Document, filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("%w: %s names no image", ErrImageNotFound, doc.Path)
	}
	filename = path.Clean(filepath.ToSlash(filename))
	dir := doc.Dir()

	candidates := []string{
		join(dir, filename),
		join(dir, "images/"+filename),
		doc.Project + "/" + filename,
		doc.Project + "/images/" + filename,
		filename,
		"images/" + filename,
	}
	for _, c := range candidates {
		if a.exists[c] && a.belongsTo(c, dir) {
			return c, nil
		}
	}

	var matches []string
	for _, m := range a.byBase[path.Base(filename)] {
		if a.belongsTo(m, dir) {
			matches = append(matches, m)
		}
	}
	if dir != "." {
		for _, m := range matches {
			if strings.HasPrefix(m, dir+"/") {
				return m, nil
			}
		}
	}
	for _, m := range matches {
		if utils.ProjectOf(m) == doc.Project {
			return m, nil
		}
	}
	if len(matches) > 0 {
		return matches[0], nil
	}
	return "", fmt.Errorf("%w: %s for %s", ErrImageNotFound, filename, doc.Path)
}
