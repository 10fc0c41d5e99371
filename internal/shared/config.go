package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`
	Matching    MatchingConfig    `toml:"matching"`
	Remote      RemoteConfig      `toml:"remote"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and endpoints.
//
// The endpoint URLs exist so that tests and self-hosted mocks can stand in for accounts.spotify.com.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	AuthURL      string `toml:"auth_url"`
	TokenURL     string `toml:"token_url"`
	APIURL       string `toml:"api_url"`
}

// placeholders are sample values from older config templates. They count as unset.
var placeholders = map[string]bool{
	"your_spotify_client_id":     true,
	"your_spotify_client_secret": true,
	"change-me":                  true,
}

func isSet(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !placeholders[v]
}

// HasCredentials reports whether both client id and secret are set to real values.
func (s SpotifyConfig) HasCredentials() bool {
	return isSet(s.ClientID) && isSet(s.ClientSecret)
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	StateSecret    string   `toml:"state_secret"`
	StateTTL       Duration `toml:"state_ttl"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// HasStateSecret reports whether a non-placeholder state secret is configured.
func (s ServerConfig) HasStateSecret() bool {
	return isSet(s.StateSecret)
}

// Addr returns host:port for [http.Server].
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig controls the logger.
type LogConfig struct {
	Level string `toml:"level"`
}

// MatchingConfig holds the parameters of mood matching.
//
// Questionnaire answers (questionnaire_min..questionnaire_max) are multiplied by scale_factor
// to land on the catalog scale; extreme_widening is added to the threshold when any raw answer
// sits at either end of the questionnaire scale.
type MatchingConfig struct {
	Threshold        int `toml:"threshold"`
	ScaleMin         int `toml:"scale_min"`
	ScaleMax         int `toml:"scale_max"`
	QuestionnaireMin int `toml:"questionnaire_min"`
	QuestionnaireMax int `toml:"questionnaire_max"`
	ScaleFactor      int `toml:"scale_factor"`
	ExtremeWidening  int `toml:"extreme_widening"`
}

// RemoteConfig holds settings for the remote playlist workflow.
type RemoteConfig struct {
	Timeout           Duration `toml:"timeout"`
	SearchLimit       int      `toml:"search_limit"`
	Watermark         float64  `toml:"watermark"`
	DefaultKeywords   string   `toml:"default_keywords"`
	Description       string   `toml:"description"`
	Public            bool     `toml:"public"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	RefreshLeeway     Duration `toml:"refresh_leeway"`
	UserCacheSize     int      `toml:"user_cache_size"`
}

// Duration wraps [time.Duration] so TOML strings like "10s" decode into it.
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Validate checks the configuration for values that would break matching or the remote workflow.
func (c *Config) Validate() error {
	m := c.Matching
	switch {
	case m.ScaleMin >= m.ScaleMax:
		return fmt.Errorf("%w: matching.scale_min must be below scale_max", ErrInvalidConfig)
	case m.Threshold < 0:
		return fmt.Errorf("%w: matching.threshold must not be negative", ErrInvalidConfig)
	case m.QuestionnaireMin >= m.QuestionnaireMax:
		return fmt.Errorf("%w: matching.questionnaire_min must be below questionnaire_max", ErrInvalidConfig)
	case m.ScaleFactor < 1:
		return fmt.Errorf("%w: matching.scale_factor must be at least 1", ErrInvalidConfig)
	case m.ExtremeWidening < 0:
		return fmt.Errorf("%w: matching.extreme_widening must not be negative", ErrInvalidConfig)
	}

	r := c.Remote
	switch {
	case r.SearchLimit < 1 || r.SearchLimit > 50:
		return fmt.Errorf("%w: remote.search_limit must be within 1..50", ErrInvalidConfig)
	case r.Watermark <= 0 || r.Watermark >= 1:
		return fmt.Errorf("%w: remote.watermark must be within (0, 1)", ErrInvalidConfig)
	case r.Timeout.Duration <= 0:
		return fmt.Errorf("%w: remote.timeout must be positive", ErrInvalidConfig)
	case r.RefreshLeeway.Duration < 0:
		return fmt.Errorf("%w: remote.refresh_leeway must not be negative", ErrInvalidConfig)
	}

	return nil
}

// LoadConfig reads a TOML configuration file and overlays it onto [DefaultConfig].
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrMissingConfig, err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadConfigOrDefault loads path when it exists and falls back to [DefaultConfig] otherwise.
func LoadConfigOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
