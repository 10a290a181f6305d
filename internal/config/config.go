// Package config loads run configuration in three layers: built-in defaults,
// an optional YAML file, then environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator"
	"gopkg.in/yaml.v3"

	"github.com/gyorilab/trialsynth/internal/util"
	"github.com/gyorilab/trialsynth/pkg/logger"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds every user-mutable property of a registry processing run.
type Config struct {
	Registry string `yaml:"registry" validate:"required"`
	DataDir  string `yaml:"data_dir" validate:"required"`

	API struct {
		URL        string   `yaml:"url" validate:"required,url"`
		PageSize   int      `yaml:"page_size" validate:"min=1,max=1000"`
		Timeout    Duration `yaml:"timeout"`
		Retries    int      `yaml:"retries" validate:"min=1"`
		RetryDelay Duration `yaml:"retry_delay"`
		Fields     []string `yaml:"fields"`
	} `yaml:"api"`

	Grounding struct {
		ServiceURL    string   `yaml:"service_url" validate:"required,url"`
		Timeout       Duration `yaml:"timeout"`
		MeshTablePath string   `yaml:"mesh_table_path" validate:"required"`
		Workers       int      `yaml:"workers" validate:"min=1"`
	} `yaml:"grounding"`

	Samples struct {
		NumEntries int `yaml:"num_entries" validate:"min=1"`
	} `yaml:"samples"`

	Archive struct {
		Enabled bool   `yaml:"enabled"`
		Bucket  string `yaml:"bucket"`
		Prefix  string `yaml:"prefix"`
	} `yaml:"archive"`

	Debug bool `yaml:"debug"`
}

// Default returns the built-in configuration for the ClinicalTrials.gov
// registry.
func Default() *Config {
	cfg := &Config{
		Registry: "clinicaltrials",
		DataDir:  filepath.Join(homeDir(), ".data", "trialsynth", "clinicaltrials"),
	}
	cfg.API.URL = "https://clinicaltrials.gov/api/v2/studies"
	cfg.API.PageSize = 1000
	cfg.API.Timeout = Duration(300 * time.Second)
	cfg.API.Retries = 3
	cfg.API.RetryDelay = Duration(5 * time.Second)
	cfg.Grounding.ServiceURL = "http://localhost:8001"
	cfg.Grounding.Timeout = Duration(60 * time.Second)
	cfg.Grounding.MeshTablePath = filepath.Join(cfg.DataDir, "mesh.tsv.gz")
	cfg.Grounding.Workers = 4
	cfg.Samples.NumEntries = 10
	cfg.Archive.Prefix = "snapshots/clinicaltrials"
	return cfg
}

// Load builds the effective configuration: defaults, overlaid with the YAML
// file at path when one is given, overlaid with environment variables. The
// result is validated before it is returned.
func Load(path string, log *logger.Logger) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		log.Info("[config] loaded file", "path", path)
	}

	applyEnv(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides file and default values from the environment. util.LoadEnv
// is expected to have populated the process environment from .env already.
func applyEnv(cfg *Config) {
	cfg.Registry = util.GetEnvString("TRIALSYNTH_REGISTRY", cfg.Registry)
	cfg.DataDir = util.GetEnvString("TRIALSYNTH_DATA_DIR", cfg.DataDir)
	cfg.API.URL = util.GetEnvString("TRIALSYNTH_API_URL", cfg.API.URL)
	cfg.API.PageSize = util.GetEnvInt("TRIALSYNTH_API_PAGE_SIZE", cfg.API.PageSize)
	cfg.API.Retries = util.GetEnvInt("TRIALSYNTH_API_RETRIES", cfg.API.Retries)
	cfg.Grounding.ServiceURL = util.GetEnvString("TRIALSYNTH_GROUNDING_URL", cfg.Grounding.ServiceURL)
	cfg.Grounding.MeshTablePath = util.GetEnvString("TRIALSYNTH_MESH_TABLE", cfg.Grounding.MeshTablePath)
	cfg.Grounding.Workers = util.GetEnvInt("TRIALSYNTH_WORKERS", cfg.Grounding.Workers)
	cfg.Samples.NumEntries = util.GetEnvInt("TRIALSYNTH_NUM_SAMPLES", cfg.Samples.NumEntries)
	cfg.Archive.Enabled = util.GetEnvBool("TRIALSYNTH_ARCHIVE_ENABLED", cfg.Archive.Enabled)
	cfg.Archive.Bucket = util.GetEnvString("AWS_BUCKET", cfg.Archive.Bucket)
	cfg.Debug = util.GetEnvBool("TRIALSYNTH_DEBUG", cfg.Debug)
}

// Paths derived from the data directory.

func (c *Config) SampleDir() string        { return filepath.Join(c.DataDir, "samples") }
func (c *Config) RawSnapshotPath() string  { return filepath.Join(c.DataDir, "raw_studies.json.gz") }
func (c *Config) TrialsPath() string       { return filepath.Join(c.DataDir, "trials.tsv.gz") }
func (c *Config) TrialsSamplePath() string { return filepath.Join(c.SampleDir(), "trials.tsv") }
func (c *Config) BioEntitiesPath() string  { return filepath.Join(c.DataDir, "bioentities.tsv.gz") }
func (c *Config) BioEntitiesSamplePath() string {
	return filepath.Join(c.SampleDir(), "bioentities.tsv")
}
func (c *Config) EdgesPath() string       { return filepath.Join(c.DataDir, "edges.tsv.gz") }
func (c *Config) EdgesSamplePath() string { return filepath.Join(c.SampleDir(), "edges.tsv") }

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
