package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mgpai22/cuetrack/internal/export"
	"github.com/mgpai22/cuetrack/internal/track"
	"github.com/mgpai22/cuetrack/internal/ttml"
)

const DefaultPath = "cuetrack.yaml"

// overrides the database key of the file
const DatabaseEnv = "CUETRACK_DATABASE"

// settings shared by every command
type Config struct {
	// bytes handed to a track per Feed call
	ChunkSize int `yaml:"chunk_size"`

	// input format; empty means detect from the file
	Format string `yaml:"format"`

	OutputFormat string `yaml:"output_format"`

	// SQLite file cues are stored in
	Database string `yaml:"database"`

	// rates for TTML documents that do not declare them
	TTML struct {
		FrameRate    float64 `yaml:"frame_rate"`
		SubFrameRate float64 `yaml:"subframe_rate"`
		TickRate     float64 `yaml:"tick_rate"`
	} `yaml:"ttml"`

	// ffmpeg binary or the directory holding ffmpeg and ffprobe
	FFmpegPath string `yaml:"ffmpeg_path"`
}

func Default() *Config {
	c := &Config{}
	c.ChunkSize = 4096
	c.OutputFormat = string(export.FormatJSON)
	c.Database = "cuetrack.db"

	tb := ttml.DefaultTimeBase()
	c.TTML.FrameRate = tb.FrameRate
	c.TTML.SubFrameRate = tb.SubFrameRate
	c.TTML.TickRate = tb.TickRate
	return c
}

// Load reads path over the defaults. A missing file yields the defaults;
// fields absent from the file keep their default values. CUETRACK_DATABASE
// overrides the database file.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if db := os.Getenv(DatabaseEnv); db != "" {
		cfg.Database = db
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.OutputFormat = strings.ToLower(strings.TrimSpace(c.OutputFormat))
	c.Database = strings.TrimSpace(c.Database)
	c.FFmpegPath = strings.TrimSpace(c.FFmpegPath)
}

func (c *Config) Validate() error {
	var errs []error
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize))
	}
	if c.Format != "" {
		if _, err := track.ParseFormat(c.Format); err != nil {
			errs = append(errs, fmt.Errorf("format: %w", err))
		}
	}
	if _, err := export.ParseFormat(c.OutputFormat); err != nil {
		errs = append(errs, fmt.Errorf("output_format: %w", err))
	}
	if c.Database == "" {
		errs = append(errs, errors.New("database must not be empty"))
	}
	if c.TTML.FrameRate <= 0 || c.TTML.SubFrameRate <= 0 || c.TTML.TickRate <= 0 {
		errs = append(errs, errors.New("ttml rates must be positive"))
	}
	return errors.Join(errs...)
}

// rates for ttml.WithTimeBase
func (c *Config) TimeBase() ttml.TimeBase {
	return ttml.TimeBase{
		FrameRate:    c.TTML.FrameRate,
		SubFrameRate: c.TTML.SubFrameRate,
		TickRate:     c.TTML.TickRate,
	}
}
