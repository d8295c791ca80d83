package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	// IGRoot is the implementation guide root. OutputDir and OpenAPIDir are
	// derived from it unless set explicitly.
	IGRoot string `yaml:"ig_root"`

	// OutputDir is the IG publisher output tree (rendered HTML + schemas).
	OutputDir string `yaml:"output_dir"`

	// OpenAPIDir is the source directory for pre-existing OpenAPI files.
	OpenAPIDir string `yaml:"openapi_dir"`

	// CanonicalBase is the canonical URL base recorded in synthesized specs.
	CanonicalBase string `yaml:"canonical_base"`

	// MinGrowth is the minimal byte growth expected after hub injection.
	// Smaller deltas are flagged as suspicious.
	MinGrowth int `yaml:"min_growth"`

	// ComponentReportDirs are probed, in order, for component QA reports
	// produced by earlier pipeline phases.
	ComponentReportDirs []string `yaml:"component_report_dirs"`
}

// ComponentReports are the conventional component QA report filenames from
// earlier pipeline phases, probed in each ComponentReportDirs entry.
var ComponentReports = []struct {
	File  string
	Label string
}{
	{"qa_preprocessing.json", "preprocessing"},
	{"qa_valueset_schemas.json", "ValueSet schema generation"},
	{"qa_logical_model_schemas.json", "Logical Model schema generation"},
	{"qa_jsonld_vocabularies.json", "JSON-LD vocabulary generation"},
}

// Default returns a configuration rooted at the current directory.
func Default() *Config {
	cfg := &Config{IGRoot: "."}
	cfg.ApplyDefaults()
	return cfg
}

// Load loads configuration from the specified file. A missing file is not an
// error; defaults are returned so the tool works with bare CLI arguments.
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists; values feed env expansion below.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Note: .env file couldn't be loaded: %v\n", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return Default(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults re-derives unset fields from IGRoot. Safe to call again
// after CLI overrides.
func (c *Config) ApplyDefaults() {
	if c.IGRoot == "" {
		c.IGRoot = "."
	}
	if c.OutputDir == "" {
		c.OutputDir = filepath.Join(c.IGRoot, "output")
	}
	if c.OpenAPIDir == "" {
		c.OpenAPIDir = filepath.Join(c.IGRoot, "input", "images", "openapi")
	}
	if c.CanonicalBase == "" {
		c.CanonicalBase = "http://smart.who.int/base"
	}
	if c.MinGrowth == 0 {
		c.MinGrowth = 100
	}
	if len(c.ComponentReportDirs) == 0 {
		c.ComponentReportDirs = []string{
			filepath.Join(c.IGRoot, "input", "temp"),
			os.TempDir(),
		}
	}
}

// SchemaDir is where generated JSON schemas (and synthesized wrappers) live.
func (c *Config) SchemaDir() string { return filepath.Join(c.OutputDir, "schemas") }

// VocabularyDir is the secondary location for JSON-LD vocabulary files.
func (c *Config) VocabularyDir() string { return filepath.Join(c.OutputDir, "vocabulary") }

// OutputOpenAPIDir is where the publisher copies pre-existing OpenAPI files.
func (c *Config) OutputOpenAPIDir() string {
	return filepath.Join(c.OutputDir, "images", "openapi")
}

// HubPage is the rendered landing page the hub fragment is injected into.
func (c *Config) HubPage() string { return filepath.Join(c.OutputDir, "dak-api.html") }

// QAPath is the canonical merged QA report location.
func (c *Config) QAPath() string { return filepath.Join(c.OutputDir, "qa.json") }

// QAFallbackPath is attempted when the canonical QA path is unwritable.
func (c *Config) QAFallbackPath() string {
	return filepath.Join(c.OutputDir, "dak-api-qa.json")
}
