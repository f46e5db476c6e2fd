// Package config loads service configuration from a YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/urbanmart/sales-dashboard/internal/dataset"
	"github.com/urbanmart/sales-dashboard/internal/domain"
)

// Config is the full service configuration.
type Config struct {
	// Listen is the HTTP listen address, e.g. ":8080".
	Listen string `yaml:"listen"`

	Dataset DatasetConfig `yaml:"dataset"`

	// HighValueThreshold is the default per-customer revenue floor for
	// high-value KPIs when a request does not override it.
	HighValueThreshold float64 `yaml:"high_value_threshold"`

	// Margins overrides the built-in category→margin table. Categories not
	// listed keep the unknown-margin sentinel.
	Margins map[string]float64 `yaml:"margins"`

	// ExportDir is where async export jobs write their output files.
	ExportDir string `yaml:"export_dir"`

	Narrative NarrativeConfig `yaml:"narrative"`
}

// DatasetConfig selects exactly one row source.
type DatasetConfig struct {
	// Path is a local CSV file path.
	Path string `yaml:"path"`

	// GCSURI is a gs:// URI of the CSV file.
	GCSURI string `yaml:"gcs_uri"`

	BigQuery BigQueryConfig `yaml:"bigquery"`
}

// BigQueryConfig identifies a BigQuery table holding the sales data.
type BigQueryConfig struct {
	Project string `yaml:"project"`
	Dataset string `yaml:"dataset"`
	Table   string `yaml:"table"`
}

func (b BigQueryConfig) set() bool {
	return b.Project != "" && b.Dataset != "" && b.Table != ""
}

// NarrativeConfig controls the insight narrative generator.
type NarrativeConfig struct {
	// UseGemini switches from templated text to the Gemini-backed generator.
	UseGemini bool `yaml:"use_gemini"`

	// Model is the Gemini model name; empty selects the default.
	Model string `yaml:"model"`
}

// Load reads the configuration file at path, applies defaults and environment
// overrides (URBANMART_LISTEN, URBANMART_DATASET, URBANMART_EXPORT_DIR). An
// empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Listen:             ":8080",
		HighValueThreshold: 1000,
		ExportDir:          "exports",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %q: %w", path, err)
		}
	}

	if v := os.Getenv("URBANMART_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("URBANMART_DATASET"); v != "" {
		cfg.Dataset.Path = v
	}
	if v := os.Getenv("URBANMART_EXPORT_DIR"); v != "" {
		cfg.ExportDir = v
	}

	return cfg, nil
}

// Source builds the configured row source. Precedence: BigQuery, then GCS,
// then local path.
func (c *Config) Source() (dataset.RowSource, error) {
	switch {
	case c.Dataset.BigQuery.set():
		return dataset.BigQuerySource{
			ProjectID: c.Dataset.BigQuery.Project,
			Dataset:   c.Dataset.BigQuery.Dataset,
			Table:     c.Dataset.BigQuery.Table,
		}, nil
	case c.Dataset.GCSURI != "":
		return dataset.GCSSource{URI: c.Dataset.GCSURI}, nil
	case c.Dataset.Path != "":
		return dataset.FileSource{Path: c.Dataset.Path}, nil
	default:
		return nil, fmt.Errorf("no dataset source configured")
	}
}

// MarginTable returns the effective category→margin table.
func (c *Config) MarginTable() map[string]domain.Margin {
	if len(c.Margins) == 0 {
		return domain.DefaultMargins
	}
	table := make(map[string]domain.Margin, len(c.Margins))
	for category, rate := range c.Margins {
		table[category] = domain.KnownMargin(rate)
	}
	return table
}
