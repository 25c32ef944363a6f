package dataset

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/menta2k/pagexml-dataset/internal/utils"
	"github.com/menta2k/pagexml-dataset/pkg/processing"
	"github.com/menta2k/pagexml-dataset/pkg/types"
)

// MetadataFile is the per split index read by imagefolder loaders
const MetadataFile = "metadata.jsonl"

// LocalWriter writes a dataset in the imagefolder layout:
//
//	<dir>/README.md
//	<dir>/<split>/metadata.jsonl
//	<dir>/<split>/images/000000.jpg
type LocalWriter struct {
	dir       string
	processor *processing.Processor
	encode    processing.EncodeOptions
	log       logrus.FieldLogger
}

// NewLocalWriter creates a writer rooted at dir
func NewLocalWriter(dir string, encode processing.EncodeOptions, log logrus.FieldLogger) (*LocalWriter, error) {
	format, err := processing.NormalizeFormat(encode.Format)
	if err != nil {
		return nil, err
	}
	encode.Format = format
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LocalWriter{
		dir:       dir,
		processor: processing.NewProcessor(),
		encode:    encode,
		log:       log,
	}, nil
}

// Dir is the dataset root
func (w *LocalWriter) Dir() string { return w.dir }

// Write stores every split and the dataset card
func (w *LocalWriter) Write(ds Dataset) error {
	if err := utils.EnsureDir(w.dir); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, s := range ds.Splits {
		if err := w.WriteSplit(s); err != nil {
			return err
		}
	}
	return w.WriteCard(ds)
}

// WriteSplit stores the images of one split and its metadata index,
// replacing any previous content of the split folder.
func (w *LocalWriter) WriteSplit(s Split) error {
	splitDir := filepath.Join(w.dir, s.Name)
	imageDir := filepath.Join(splitDir, "images")
	// Images of an earlier run would otherwise be uploaded with this one
	if utils.DirExists(splitDir) {
		if err := os.RemoveAll(splitDir); err != nil {
			return fmt.Errorf("failed to clear split directory: %w", err)
		}
		w.log.WithField("dir", splitDir).Debug("Removed previous split")
	}
	if err := utils.EnsureDir(imageDir); err != nil {
		return fmt.Errorf("failed to create split directory: %w", err)
	}

	f, err := os.Create(filepath.Join(splitDir, MetadataFile))
	if err != nil {
		return fmt.Errorf("failed to create metadata file: %w", err)
	}
	defer f.Close()
	bw := bufio.NewWriter(f)

	for i, rec := range s.Records {
		rel := fmt.Sprintf("images/%06d.%s", i, w.encode.Format)
		if err := w.processor.SaveImage(rec.Header().Image, filepath.Join(splitDir, filepath.FromSlash(rel)), w.encode); err != nil {
			return fmt.Errorf("failed to write image for %s: %w", rec.Header().Filename, err)
		}

		line, err := metadataLine(rel, rec)
		if err != nil {
			return err
		}
		bw.Write(line)
		bw.WriteByte('\n')
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	w.log.WithFields(logrus.Fields{
		"split":   s.Name,
		"records": len(s.Records),
		"dir":     splitDir,
	}).Info("Split written")
	return nil
}

type cardFeature struct {
	Name  string `yaml:"name"`
	Dtype string `yaml:"dtype"`
}

type cardSplit struct {
	Name        string `yaml:"name"`
	NumExamples int    `yaml:"num_examples"`
}

type cardDataFile struct {
	Split string `yaml:"split"`
	Path  string `yaml:"path"`
}

type cardConfig struct {
	ConfigName string         `yaml:"config_name"`
	DataFiles  []cardDataFile `yaml:"data_files"`
}

type cardHeader struct {
	DatasetInfo struct {
		Features []cardFeature `yaml:"features"`
		Splits   []cardSplit   `yaml:"splits"`
	} `yaml:"dataset_info"`
	Configs []cardConfig `yaml:"configs"`
	Tags    []string     `yaml:"tags"`
}

// WriteCard writes README.md with a YAML header describing the columns
// and splits.
func (w *LocalWriter) WriteCard(ds Dataset) error {
	var h cardHeader
	for _, c := range types.Schema(ds.Mode) {
		h.DatasetInfo.Features = append(h.DatasetInfo.Features, cardFeature{Name: c.Name, Dtype: c.Dtype})
	}
	cfg := cardConfig{ConfigName: "default"}
	for _, s := range ds.Splits {
		h.DatasetInfo.Splits = append(h.DatasetInfo.Splits, cardSplit{Name: s.Name, NumExamples: len(s.Records)})
		cfg.DataFiles = append(cfg.DataFiles, cardDataFile{Split: s.Name, Path: s.Name + "/**"})
	}
	h.Configs = []cardConfig{cfg}
	h.Tags = []string{"page-xml", "document-layout", string(ds.Mode)}

	header, err := yaml.Marshal(&h)
	if err != nil {
		return fmt.Errorf("failed to marshal dataset card: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(header)
	buf.WriteString("---\n\n")
	fmt.Fprintf(&buf, "# PAGE XML dataset (%s)\n\n", ds.Mode)
	fmt.Fprintf(&buf, "%d records converted from PAGE XML layout annotations.\n", ds.Len())

	if err := os.WriteFile(filepath.Join(w.dir, "README.md"), buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write dataset card: %w", err)
	}
	return nil
}
