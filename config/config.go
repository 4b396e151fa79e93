// ABOUTME: Configuration management for playlist resolution and materialization runs
// ABOUTME: Handles loading/saving TOML config files and presets with fallback to defaults

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Error codes reported by Validate
const (
	ErrCodeMissingSource      = "missing_source"
	ErrCodeMissingDestination = "missing_destination"
	ErrCodeSourceNotFound     = "source_not_found"
	ErrCodeSearchPathInvalid  = "search_path_invalid"
	ErrCodeInvalidValue       = "invalid_value"
)

// Error is a configuration problem that prevents a run from starting
type Error struct {
	Code  string
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config %s: %s: %v", e.Field, e.Code, e.Err)
	}

	return fmt.Sprintf("config %s: %s", e.Field, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Duration is a time.Duration written as a Go duration string in TOML ("8s")
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}

	d.Duration = v

	return nil
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config holds every setting of a run
type Config struct {
	SourcePath         string   `toml:"source_path"`
	DestinationDir     string   `toml:"destination_dir"`
	DryRun             bool     `toml:"dry_run"`
	WritePlaylist      bool     `toml:"write_playlist"`
	SearchPath         string   `toml:"search_path"` // empty disables path fixing
	PlaylistPatterns   []string `toml:"playlist_patterns"`
	CollisionStrategy  string   `toml:"collision_strategy"`
	ReportJSONPath     string   `toml:"report_json_path"`
	ReportCSVPath      string   `toml:"report_csv_path"`
	OriginLinksCSVPath string   `toml:"origin_links_csv_path"`
	SkipExisting       bool     `toml:"skip_existing"`
	LinkMode           string   `toml:"link_mode"`
	ResolveURLFinal    bool     `toml:"resolve_url_final"`

	// URL probing
	URLTimeout   Duration `toml:"url_timeout"`
	URLProbeRate float64  `toml:"url_probe_rate"`

	MetricsPath     string `toml:"metrics_path"` // Prometheus textfile, empty disables
	ContinueOnError bool   `toml:"continue_on_error"`
}

// Accepted values, first entry is the default
var (
	CollisionStrategies = []string{"path-score", "first", "shortest"}
	LinkModes           = []string{"copy", "hardlink", "symlink"}
)

// GetConfigPath returns the default config file path
// First tries current directory, then falls back to ~/.config/m3u-dump/config.toml
func GetConfigPath() string {
	if _, err := os.Stat("./m3u-dump.toml"); err == nil {
		return "./m3u-dump.toml"
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./m3u-dump.toml"
	}

	return filepath.Join(home, ".config", "m3u-dump", "config.toml")
}

// LoadConfig loads configuration from a TOML file
// If the file doesn't exist, returns default config; keys absent from the file keep their defaults
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}

		return DefaultConfig(), fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to a TOML file, used for presets
func SaveConfig(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	defer func() {
		if err := f.Close(); err != nil {
			fmt.Printf("Warning: failed to close config file: %v\n", err)
		}
	}()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// DefaultConfig returns the default run configuration
func DefaultConfig() Config {
	return Config{
		WritePlaylist:     true,
		PlaylistPatterns:  []string{"*.m3u", "*.m3u8"},
		CollisionStrategy: CollisionStrategies[0],
		SkipExisting:      true,
		LinkMode:          LinkModes[0],
		ResolveURLFinal:   true,
		URLTimeout:        Duration{8 * time.Second},
		URLProbeRate:      5,
	}
}

// Normalize replaces unknown or empty values with their defaults
// and returns the names of the fields it changed
func (c *Config) Normalize() []string {
	var changed []string

	if !contains(CollisionStrategies, c.CollisionStrategy) {
		c.CollisionStrategy = CollisionStrategies[0]
		changed = append(changed, "collision_strategy")
	}

	if !contains(LinkModes, c.LinkMode) {
		c.LinkMode = LinkModes[0]
		changed = append(changed, "link_mode")
	}

	if len(c.PlaylistPatterns) == 0 {
		c.PlaylistPatterns = DefaultConfig().PlaylistPatterns
		changed = append(changed, "playlist_patterns")
	}

	if c.URLTimeout.Duration <= 0 {
		c.URLTimeout = DefaultConfig().URLTimeout
		changed = append(changed, "url_timeout")
	}

	if c.URLProbeRate < 0 {
		c.URLProbeRate = DefaultConfig().URLProbeRate
		changed = append(changed, "url_probe_rate")
	}

	return changed
}

// Validate checks the settings a run cannot start without
func (c Config) Validate() error {
	if c.SourcePath == "" {
		return &Error{Code: ErrCodeMissingSource, Field: "source_path"}
	}

	if c.DestinationDir == "" {
		return &Error{Code: ErrCodeMissingDestination, Field: "destination_dir"}
	}

	if _, err := os.Stat(c.SourcePath); err != nil {
		return &Error{Code: ErrCodeSourceNotFound, Field: "source_path", Err: err}
	}

	if c.SearchPath != "" {
		info, err := os.Stat(c.SearchPath)
		if err != nil {
			return &Error{Code: ErrCodeSearchPathInvalid, Field: "search_path", Err: err}
		}

		if !info.IsDir() {
			return &Error{Code: ErrCodeSearchPathInvalid, Field: "search_path", Err: fmt.Errorf("%s is not a directory", c.SearchPath)}
		}
	}

	for _, p := range c.PlaylistPatterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return &Error{Code: ErrCodeInvalidValue, Field: "playlist_patterns", Err: fmt.Errorf("bad pattern %q: %w", p, err)}
		}
	}

	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}

	return false
}
