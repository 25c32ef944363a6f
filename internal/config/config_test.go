package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c.Export.Mode != "text" {
		t.Errorf("Expected default mode text, got %s", c.Export.Mode)
	}
	if c.Window.Size != 1 || c.Window.Overlap != 0 {
		t.Errorf("Expected window 1/0, got %d/%d", c.Window.Size, c.Window.Overlap)
	}

	// A default config has no upload target
	if err := c.Validate(); err == nil {
		t.Error("Expected validation error without repo id or local only")
	}
	c.Output.LocalOnly = true
	if err := c.Validate(); err != nil {
		t.Errorf("Default local config should be valid: %v", err)
	}
}

func TestValidateIgnoresWindowOutsideWindowMode(t *testing.T) {
	c := Default()
	c.Output.LocalOnly = true
	c.Export.Mode = "line"
	c.Window.Size = 2
	c.Window.Overlap = 5
	if err := c.Validate(); err != nil {
		t.Errorf("Expected window settings to be ignored in line mode, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"bad mode", func(c *Config) { c.Export.Mode = "pages" }, "export.mode"},
		{"no workers", func(c *Config) { c.Export.Workers = 0 }, "export.workers"},
		{"overlap", func(c *Config) { c.Export.Mode = "window"; c.Window.Size = 2; c.Window.Overlap = 2 }, "overlap"},
		{"padding", func(c *Config) { c.Cropper.PolygonPadding = -1 }, "polygon_padding"},
		{"format", func(c *Config) { c.Images.Format = "gif" }, "images.format"},
		{"quality", func(c *Config) { c.Images.Quality = 101 }, "images.quality"},
		{"split", func(c *Config) { c.Split.Train = 1 }, "split.train"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"table", func(c *Config) { c.Postgres.DSN = "postgres://x"; c.Postgres.Table = "" }, "postgres.table"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			c.Output.LocalOnly = true
			tt.modify(c)
			err := c.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Expected error mentioning %q, got %v", tt.errMsg, err)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	c := Default()
	c.Export.Mode = "window"
	c.Window.Size = 3
	c.Window.Overlap = 1
	c.Hub.RepoID = "user/dataset"
	if err := c.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if loaded.Export.Mode != "window" || loaded.Window.Size != 3 || loaded.Window.Overlap != 1 {
		t.Errorf("Unexpected loaded config %+v", loaded)
	}
	if loaded.Hub.RepoID != "user/dataset" {
		t.Errorf("Expected repo id to survive, got %q", loaded.Hub.RepoID)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "export:\n  mode: line\nwindow:\n  size: 4\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if c.Export.Mode != "line" || c.Window.Size != 4 {
		t.Errorf("File values not applied: %+v", c)
	}
	if c.Images.Quality != 95 || c.Export.Workers != 1 {
		t.Errorf("Defaults lost: quality %d workers %d", c.Images.Quality, c.Export.Workers)
	}
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("export: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("Expected parse error")
	}
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected read error")
	}
}

func TestGetConfigPath(t *testing.T) {
	if !strings.HasSuffix(GetConfigPath(), "config.yaml") {
		t.Errorf("Unexpected config path %s", GetConfigPath())
	}
}
