// Package config loads najdeno.toml and applies command-line overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/erazemk/najdeno/internal/imaging"
)

// DefaultPath is the config file read when no -config flag is given.
const DefaultPath = "najdeno.toml"

// Config represents the najdeno.toml configuration file.
type Config struct {
	Server   Server   `toml:"server"`
	Database Database `toml:"database"`
	Log      Log      `toml:"log"`
	Auth     Auth     `toml:"auth"`
	Admin    Admin    `toml:"admin"`
	Images   Images   `toml:"images"`
}

// Server contains HTTP listener settings.
type Server struct {
	Addr string `toml:"addr"`
}

// Database contains storage settings.
type Database struct {
	// Path of the SQLite database file. Created with an admin account on
	// first run.
	Path string `toml:"path"`
}

// Log contains logging settings.
type Log struct {
	// Path of an optional log file that receives every level in addition to
	// stdout and stderr.
	Path string `toml:"path"`
}

// Auth contains token settings.
type Auth struct {
	// JWTSecret signs session tokens. When empty a secret is generated and
	// kept in the database.
	JWTSecret string   `toml:"jwt-secret"`
	TokenTTL  Duration `toml:"token-ttl"`
}

// Admin describes the account created on first run.
type Admin struct {
	Email string `toml:"email"`
	Name  string `toml:"name"`
}

// Images contains photo upload settings.
type Images struct {
	MaxDimension   int   `toml:"max-dimension"`
	JPEGQuality    int   `toml:"jpeg-quality"`
	MaxUploadBytes int64 `toml:"max-upload-bytes"`
}

// Duration is a time.Duration written as a string such as "168h".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used for anything the file and flags
// leave unset.
func Default() *Config {
	return &Config{
		Server:   Server{Addr: ":8080"},
		Database: Database{Path: "najdeno.sqlite3"},
		Auth:     Auth{TokenTTL: Duration{7 * 24 * time.Hour}},
		Admin:    Admin{Email: "admin@localhost", Name: "Admin"},
		Images: Images{
			MaxDimension:   imaging.DefaultMaxDimension,
			JPEGQuality:    imaging.DefaultJPEGQuality,
			MaxUploadBytes: imaging.DefaultMaxBytes,
		},
	}
}

// Load reads the config file at path on top of the defaults. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	meta, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config file %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Override sets the value named by a command-line flag. Both the long and
// the short flag names are accepted.
func (c *Config) Override(flagName, value string) error {
	switch flagName {
	case "db", "d":
		c.Database.Path = value
	case "addr", "a":
		c.Server.Addr = value
	case "admin-email", "e":
		c.Admin.Email = value
	case "log", "l":
		c.Log.Path = value
	default:
		return fmt.Errorf("flag -%s does not map to a config key", flagName)
	}
	return nil
}

// Validate checks values the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr is empty"))
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("database.path is empty"))
	}
	if c.Auth.TokenTTL.Duration <= 0 {
		errs = append(errs, errors.New("auth.token-ttl must be positive"))
	}
	if !strings.Contains(c.Admin.Email, "@") {
		errs = append(errs, fmt.Errorf("admin.email %q is not an email address", c.Admin.Email))
	}
	if q := c.Images.JPEGQuality; q < 1 || q > 100 {
		errs = append(errs, errors.New("images.jpeg-quality must be between 1 and 100"))
	}
	if c.Images.MaxDimension < 1 {
		errs = append(errs, errors.New("images.max-dimension must be positive"))
	}
	if c.Images.MaxUploadBytes < 1 {
		errs = append(errs, errors.New("images.max-upload-bytes must be positive"))
	}
	return errors.Join(errs...)
}

// ImageOptions returns the photo processing settings.
func (c *Config) ImageOptions() imaging.Options {
	return imaging.Options{
		MaxDimension: c.Images.MaxDimension,
		Quality:      c.Images.JPEGQuality,
		MaxBytes:     c.Images.MaxUploadBytes,
	}
}
