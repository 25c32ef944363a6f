package main

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/menta2k/pagexml-dataset"
	"github.com/menta2k/pagexml-dataset/internal/config"
	"github.com/menta2k/pagexml-dataset/internal/utils"
	"github.com/menta2k/pagexml-dataset/pkg/archive"
	"github.com/menta2k/pagexml-dataset/pkg/processing"
	"github.com/menta2k/pagexml-dataset/pkg/types"
)

var (
	overlayDir    string
	overlayFormat string
	overlayLimit  int
)

var overlayCmd = &cobra.Command{
	Use:   "overlay <archive>",
	Short: "Draw region boxes, line boxes and baselines onto each page image",
	Args:  cobra.ExactArgs(1),
	RunE:  runOverlay,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Write the effective configuration to the config file",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func init() {
	overlayCmd.Flags().StringVar(&overlayDir, "output-dir", "./overlays", "directory for overlay images")
	overlayCmd.Flags().StringVar(&overlayFormat, "image-format", "png", "overlay image format: jpg|png|webp")
	overlayCmd.Flags().IntVar(&overlayLimit, "limit", 0, "stop after this many pages, 0 for all")
}

func runOverlay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := setupLogging(cfg.Logging.Level); err != nil {
		return err
	}
	format, err := processing.NormalizeFormat(overlayFormat)
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(overlayDir); err != nil {
		return err
	}

	a, err := archive.Open(args[0])
	if err != nil {
		return err
	}
	defer a.Close()

	conv, err := pagedataset.New(pagedataset.Options{Mode: types.ModeRawXML, Logger: log})
	if err != nil {
		return err
	}
	pages, report := conv.LoadPages(a)

	processor := processing.NewProcessor()
	encode := processing.EncodeOptions{Format: format, Quality: cfg.Images.Quality}
	written := 0
	for _, page := range pages {
		if overlayLimit > 0 && written >= overlayLimit {
			break
		}
		entry := log.WithFields(logrus.Fields{"project": page.Project, "file": page.XMLPath})

		doc := archive.Document{Project: page.Project, Path: page.XMLPath}
		imagePath, err := a.FindImage(doc, page.ImageFilename)
		if err != nil {
			entry.WithError(err).Warn("Skipping page")
			continue
		}
		data, err := a.ReadFile(imagePath)
		if err != nil {
			entry.WithError(err).Warn("Skipping page")
			continue
		}
		img, err := processor.DecodeImage(data)
		if err != nil {
			entry.WithError(err).Warn("Skipping page")
			continue
		}

		name := utils.SanitizeFilename(page.Project + "_" + utils.Stem(page.ImageFilename))
		out := filepath.Join(overlayDir, name+"."+format)
		if err := processor.SaveImage(processor.CreateDebugOverlay(img, page), out, encode); err != nil {
			return err
		}
		entry.WithField("output", out).Debug("Overlay written")
		written++
	}

	fmt.Printf("Wrote %d overlays to %s (%d documents skipped)\n", written, overlayDir, report.Skipped())
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	path := opts.configPath
	if path == "" {
		path = config.GetConfigPath()
	}
	if err := cfg.SaveToFile(path); err != nil {
		return err
	}
	fmt.Printf("Configuration written to %s\n", path)
	return nil
}
