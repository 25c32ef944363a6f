package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/menta2k/pagexml-dataset"
	"github.com/menta2k/pagexml-dataset/internal/config"
	"github.com/menta2k/pagexml-dataset/internal/utils"
	"github.com/menta2k/pagexml-dataset/pkg/archive"
	"github.com/menta2k/pagexml-dataset/pkg/dataset"
	"github.com/menta2k/pagexml-dataset/pkg/processing"
	"github.com/menta2k/pagexml-dataset/pkg/types"
	"github.com/menta2k/pagexml-dataset/pkg/window"
)

var log = logrus.New()

type flags struct {
	configPath string
	mode       string
	windowSize int
	overlap    int
	localOnly  bool
	outputDir  string
	repoID     string
	private    bool
	token      string
	statsOnly  bool
	format     string
	quality    int
	workers    int
	splitTrain float64
	splitSeed  int64
	shuffle    bool
	pgDSN      string
	pgTable    string
	logLevel   string
}

var opts flags

var rootCmd = &cobra.Command{
	Use:   "pagexml-dataset <archive>",
	Short: "Convert PAGE XML layout exports into image/text datasets",
	Long: `Convert a PAGE XML export (zip file or directory) into a dataset.

Modes:
  raw_xml         page image with its annotation document
  text            page image with its text in reading order
  region          one crop per text region
  line            one crop per text line
  window          one crop per window of consecutive lines
  polygon_region  region crops masked to the region polygon
  polygon_line    line crops masked to the line polygon`,
	Args:          cobra.ExactArgs(1),
	RunE:          runConvert,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       pagedataset.Version,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "YAML config file (default "+config.GetConfigPath()+" when present)")
	f.StringVar(&opts.logLevel, "log-level", "info", "log level: debug|info|warn|error")

	f = rootCmd.Flags()
	f.StringVar(&opts.mode, "mode", "text", "export mode: "+types.ModeNames())
	f.IntVar(&opts.windowSize, "window-size", 1, "lines per window (window mode)")
	f.IntVar(&opts.overlap, "overlap", 0, "lines shared by consecutive windows, must be less than window-size")
	f.BoolVar(&opts.localOnly, "local-only", false, "write the dataset locally without uploading")
	f.StringVar(&opts.outputDir, "output-dir", "./dataset", "local dataset directory")
	f.StringVar(&opts.repoID, "repo-id", "", "dataset repository to upload to (owner/name)")
	f.BoolVar(&opts.private, "private", false, "create the dataset repository as private")
	f.StringVar(&opts.token, "token", "", "hub access token (default $HF_TOKEN or cached login)")
	f.BoolVar(&opts.statsOnly, "stats-only", false, "print statistics without building records")
	f.StringVar(&opts.format, "image-format", "jpg", "record image format: jpg|png|webp")
	f.IntVar(&opts.quality, "quality", 95, "JPEG/WebP quality (1-100)")
	f.IntVar(&opts.workers, "workers", 1, "pages converted in parallel")
	f.Float64Var(&opts.splitTrain, "split-train", 0, "train fraction for a train/test split, 0 disables")
	f.Int64Var(&opts.splitSeed, "split-seed", 42, "random seed for the split")
	f.BoolVar(&opts.shuffle, "split-shuffle", true, "shuffle records before splitting")
	f.StringVar(&opts.pgDSN, "postgres-dsn", "", "also store records in this Postgres database")
	f.StringVar(&opts.pgTable, "postgres-table", "pagexml_records", "Postgres table for records")

	rootCmd.AddCommand(overlayCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

// loadConfig reads the config file and applies the flags the user set
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	path := opts.configPath
	if path == "" && utils.FileExists(config.GetConfigPath()) {
		path = config.GetConfigPath()
	}
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		log.WithField("path", path).Debug("Config loaded")
	}

	changed := cmd.Flags().Changed
	if changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	if cmd.Flags().Lookup("mode") == nil {
		return cfg, nil
	}
	if changed("mode") {
		cfg.Export.Mode = opts.mode
	}
	if changed("workers") {
		cfg.Export.Workers = opts.workers
	}
	if changed("window-size") {
		cfg.Window.Size = opts.windowSize
	}
	if changed("overlap") {
		cfg.Window.Overlap = opts.overlap
	}
	if changed("local-only") {
		cfg.Output.LocalOnly = opts.localOnly
	}
	if changed("output-dir") {
		cfg.Output.Dir = opts.outputDir
	}
	if changed("repo-id") {
		cfg.Hub.RepoID = opts.repoID
	}
	if changed("private") {
		cfg.Hub.Private = opts.private
	}
	if changed("token") {
		cfg.Hub.Token = opts.token
	}
	if changed("image-format") {
		cfg.Images.Format = opts.format
	}
	if changed("quality") {
		cfg.Images.Quality = opts.quality
	}
	if changed("split-train") {
		cfg.Split.Train = opts.splitTrain
	}
	if changed("split-seed") {
		cfg.Split.Seed = opts.splitSeed
	}
	if changed("split-shuffle") {
		cfg.Split.Shuffle = opts.shuffle
	}
	if changed("postgres-dsn") {
		cfg.Postgres.DSN = opts.pgDSN
	}
	if changed("postgres-table") {
		cfg.Postgres.Table = opts.pgTable
	}
	return cfg, nil
}

func setupLogging(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if opts.statsOnly {
		// Nothing is written, so no output target is needed
		cfg.Output.LocalOnly = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := setupLogging(cfg.Logging.Level); err != nil {
		return err
	}

	mode, _ := types.ParseMode(cfg.Export.Mode)
	padding := cfg.Cropper.PolygonPadding
	conv, err := pagedataset.New(pagedataset.Options{
		Mode:           mode,
		Window:         cfg.Window,
		PolygonPadding: &padding,
		Workers:        cfg.Export.Workers,
		Logger:         log,
	})
	if err != nil {
		return err
	}

	a, err := archive.Open(args[0])
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.statsOnly {
		s, _ := conv.Stats(a, statsWindow(mode, cfg.Window))
		return s.Print(os.Stdout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(logrus.Fields{
		"archive": args[0],
		"mode":    mode,
		"workers": cfg.Export.Workers,
	}).Info("Converting")

	records, report, err := conv.Convert(ctx, a)
	if err != nil {
		return err
	}
	printReport(report)
	if len(records) == 0 {
		return fmt.Errorf("no records produced")
	}

	ds := dataset.SplitRecords(mode, records, cfg.Split.Train, cfg.Split.Seed, cfg.Split.Shuffle)
	encode := processing.EncodeOptions{
		Format:   cfg.Images.Format,
		Quality:  cfg.Images.Quality,
		Lossless: cfg.Images.Lossless,
	}

	writer, err := dataset.NewLocalWriter(cfg.Output.Dir, encode, log)
	if err != nil {
		return err
	}
	if err := writer.Write(ds); err != nil {
		return err
	}
	log.WithField("dir", writer.Dir()).Info("Dataset saved locally")

	if cfg.Postgres.DSN != "" {
		pg, err := dataset.OpenPostgres(ctx, cfg.Postgres.DSN, cfg.Postgres.Table, encode, log)
		if err != nil {
			return err
		}
		defer pg.Close()
		if _, err := pg.Write(ctx, ds); err != nil {
			return err
		}
	}

	if cfg.Output.LocalOnly || cfg.Hub.RepoID == "" {
		return nil
	}

	token, err := dataset.ResolveToken(cfg.Hub.Token)
	if err != nil {
		return err
	}
	hub := dataset.NewHubClient(cfg.Hub.Endpoint, token, log)
	if err := hub.Push(ctx, cfg.Hub.RepoID, writer.Dir(), cfg.Hub.Private); err != nil {
		return err
	}
	fmt.Printf("Dataset uploaded to %s/datasets/%s\n", cfg.Hub.Endpoint, cfg.Hub.RepoID)
	return nil
}

// statsWindow enables the window estimate in window mode only
func statsWindow(mode types.Mode, cfg window.Config) *window.Config {
	if mode != types.ModeWindow {
		return nil
	}
	return &cfg
}

func printReport(r *pagedataset.Report) {
	fmt.Printf("\nProcessing summary:\n")
	fmt.Printf("  Pages converted: %d\n", r.Pages)
	fmt.Printf("  Records: %d\n", r.Records)
	fmt.Printf("  Pages skipped: %d\n", r.Skipped())
	for i, w := range r.Warnings {
		if i == 5 {
			fmt.Printf("    ... and %d more\n", len(r.Warnings)-5)
			break
		}
		fmt.Printf("    %s\n", w)
	}
	if len(r.Unannotated) > 0 {
		fmt.Printf("  Images without annotation: %d\n", len(r.Unannotated))
	}
}
