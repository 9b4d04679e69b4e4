package loader

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// FlipVMode selects when texture coordinate V values are flipped during vertex buffer building.
type FlipVMode string

const (
	// FlipVAuto flips only assets written by the PlayCanvas exporter.
	FlipVAuto FlipVMode = "auto"

	// FlipVAlways flips every asset.
	FlipVAlways FlipVMode = "always"

	// FlipVNever leaves texture coordinates untouched.
	FlipVNever FlipVMode = "never"
)

// flipVGenerator is the asset.generator value FlipVAuto flips for.
const flipVGenerator = "PlayCanvas"

// resolve decides whether an asset with the given generator is flipped.
func (m FlipVMode) resolve(generator string) bool {
	switch m {
	case FlipVAlways:
		return true
	case FlipVNever:
		return false
	default:
		return generator == flipVGenerator
	}
}

// LoaderConfig is the file form of the loader options.
type LoaderConfig struct {
	// BaseURL is prepended to relative load URLs.
	BaseURL string `yaml:"baseURL"`

	// RootDir is the directory local URLs are resolved against.
	RootDir string `yaml:"rootDir"`

	// MaxFetchWorkers bounds the concurrent external buffer and image fetches.
	MaxFetchWorkers int `yaml:"maxFetchWorkers"`

	// WideIndices reports whether the rendering target accepts 32-bit indices.
	WideIndices bool `yaml:"wideIndices"`

	FlipV FlipVMode `yaml:"flipV"`

	// FetchTimeout is the HTTP request timeout, e.g. "30s".
	FetchTimeout time.Duration `yaml:"fetchTimeout"`

	// LogLevel is a logrus level name; empty keeps the configured logger's level.
	LogLevel string `yaml:"logLevel"`

	// Extensions lists built-in extension parsers to enable, e.g. EPIC_lightmap_textures.
	Extensions []string `yaml:"extensions"`

	// Profile enables per-load stage timing.
	Profile bool `yaml:"profile"`
}

// DefaultConfig returns the configuration used when no file is given.
//
// Returns:
//   - *LoaderConfig: the default configuration
func DefaultConfig() *LoaderConfig {
	return &LoaderConfig{
		RootDir:         ".",
		MaxFetchWorkers: 4,
		WideIndices:     true,
		FlipV:           FlipVAuto,
		FetchTimeout:    30 * time.Second,
	}
}

// LoadConfig reads and validates a YAML configuration file. Fields absent from the file keep
// their DefaultConfig values.
//
// Parameters:
//   - path: the configuration file path
//
// Returns:
//   - *LoaderConfig: the parsed configuration
//   - error: error if the file cannot be read or holds invalid values
func LoadConfig(path string) (*LoaderConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes and validates YAML configuration bytes on top of DefaultConfig.
//
// Parameters:
//   - data: the YAML document
//
// Returns:
//   - *LoaderConfig: the parsed configuration
//   - error: error if the document is malformed or holds invalid values
func ParseConfig(data []byte) (*LoaderConfig, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and names.
//
// Returns:
//   - error: the first invalid field found
func (c *LoaderConfig) Validate() error {
	if c.MaxFetchWorkers <= 0 {
		return fmt.Errorf("maxFetchWorkers must be positive, got %d", c.MaxFetchWorkers)
	}
	switch c.FlipV {
	case FlipVAuto, FlipVAlways, FlipVNever:
	default:
		return fmt.Errorf("flipV must be auto, always or never, got %q", c.FlipV)
	}
	if c.FetchTimeout < 0 {
		return fmt.Errorf("fetchTimeout must not be negative, got %s", c.FetchTimeout)
	}
	if c.LogLevel != "" {
		if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
			return err
		}
	}
	for _, name := range c.Extensions {
		if _, ok := builtinExtensionParsers[name]; !ok {
			return fmt.Errorf("unknown extension parser %q", name)
		}
	}
	return nil
}

// ExtensionParserFactory creates a fresh ExtensionParser. Parsers keep per-load state, so the
// loader asks for a new instance for every load.
type ExtensionParserFactory func() ExtensionParser

// builtinExtensionParsers are the parsers a configuration file can enable by name.
var builtinExtensionParsers = map[string]ExtensionParserFactory{
	extLightmapTextures: NewLightmapExtensionParser,
}
