package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultBaseURL is the backend origin used when neither the environment nor
// the config file names one.
const DefaultBaseURL = "http://127.0.0.1:5000"

// DefaultOrigin is the dev server origin a relative base URL is resolved against.
const DefaultOrigin = "http://127.0.0.1:5173"

// BaseURLEnv is the environment variable that overrides api.base_url.
const BaseURLEnv = "API_BASE_URL"

// Config is the on-disk configuration shape (YAML).
type Config struct {
	API    APIConfig    `yaml:"api"`
	Server ServerConfig `yaml:"server"`
	Proxy  ProxyConfig  `yaml:"proxy"`
	Log    LogConfig    `yaml:"log"`
}

type APIConfig struct {
	// BaseURL is either an absolute origin ("http://host:5000") or a relative
	// prefix ("/api") used behind the dev proxy.
	BaseURL string `yaml:"base_url"`
	// Origin absolutizes a relative BaseURL.
	Origin  string   `yaml:"origin" validate:"required,url"`
	Timeout Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Port      string `yaml:"port" validate:"required,numeric"`
	StaticDir string `yaml:"static_dir"`
	Env       string `yaml:"env" validate:"omitempty,oneof=development production"`
}

type ProxyConfig struct {
	Target string `yaml:"target" validate:"omitempty,url"`
	// StripPrefix is nil when unset, which means true.
	StripPrefix *bool `yaml:"strip_prefix"`
}

// StripsPrefix reports whether /api is removed before forwarding. Unset means true.
func (p ProxyConfig) StripsPrefix() bool {
	return p.StripPrefix == nil || *p.StripPrefix
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error disabled"`
	Format string `yaml:"format" validate:"omitempty,oneof=json console"`
}

func boolPtr(v bool) *bool { return &v }

// Duration lets YAML carry Go duration strings such as "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: DefaultBaseURL,
			Origin:  DefaultOrigin,
			Timeout: Duration(30 * time.Second),
		},
		Server: ServerConfig{
			Port:      "8080",
			StaticDir: "./web/dist",
			Env:       "development",
		},
		Proxy: ProxyConfig{
			Target:      DefaultBaseURL,
			StripPrefix: boolPtr(true),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path (optional), applies environment overrides and validates.
// An empty path yields the defaults plus environment overrides.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.LookupEnv)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config over the defaults, but does not
// apply the environment or validate.
func LoadUnchecked(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	merged := Merge(*c, fileCfg)
	return &merged, nil
}

// ApplyEnv overlays deployment-time overrides found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	c.API.BaseURL = ResolveBaseURL(lookup, c.API.BaseURL)
	if v, ok := lookupNonEmpty(lookup, "API_PORT"); ok {
		c.Server.Port = v
	}
	if v, ok := lookupNonEmpty(lookup, "API_ENV"); ok {
		c.Server.Env = v
	}
	if v, ok := lookupNonEmpty(lookup, "STATIC_DIR"); ok {
		c.Server.StaticDir = v
	}
	if v, ok := lookupNonEmpty(lookup, "PROXY_TARGET"); ok {
		c.Proxy.Target = v
	}
	if v, ok := lookupNonEmpty(lookup, "LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}
	if v, ok := lookupNonEmpty(lookup, "LOG_FORMAT"); ok {
		c.Log.Format = strings.ToLower(v)
	}
}

// ResolveBaseURL applies the base URL precedence: environment override, then
// the configured value, then DefaultBaseURL.
func ResolveBaseURL(lookup func(string) (string, bool), configured string) string {
	if v, ok := lookupNonEmpty(lookup, BaseURLEnv); ok {
		return v
	}
	if configured != "" {
		return configured
	}
	return DefaultBaseURL
}

func lookupNonEmpty(lookup func(string) (string, bool), key string) (string, bool) {
	if lookup == nil {
		return "", false
	}
	v, ok := lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// EffectiveBaseURL is the absolute prefix prepended to every request path.
// A relative base URL is joined onto API.Origin.
func (c *Config) EffectiveBaseURL() string {
	base := strings.TrimRight(c.API.BaseURL, "/")
	if strings.HasPrefix(base, "/") || base == "" {
		return strings.TrimRight(c.API.Origin, "/") + base
	}
	return base
}

var validate = validator.New()

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}
	if err := checkBaseURL(c.API.BaseURL); err != nil {
		return fmt.Errorf("api.base_url invalid: %w", err)
	}
	if c.API.Timeout < 0 {
		return errors.New("api.timeout must not be negative")
	}
	return nil
}

func checkBaseURL(raw string) error {
	if raw == "" {
		return errors.New("is required")
	}
	if strings.HasPrefix(raw, "/") {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q must be an http(s) origin or start with /", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}

// Merge overlays non-zero fields from override onto base.
func Merge(base, override Config) Config {
	out := base
	if override.API.BaseURL != "" {
		out.API.BaseURL = override.API.BaseURL
	}
	if override.API.Origin != "" {
		out.API.Origin = override.API.Origin
	}
	if override.API.Timeout != 0 {
		out.API.Timeout = override.API.Timeout
	}
	if override.Server.Port != "" {
		out.Server.Port = override.Server.Port
	}
	if override.Server.StaticDir != "" {
		out.Server.StaticDir = override.Server.StaticDir
	}
	if override.Server.Env != "" {
		out.Server.Env = override.Server.Env
	}
	if override.Proxy.Target != "" {
		out.Proxy.Target = override.Proxy.Target
	}
	if override.Proxy.StripPrefix != nil {
		v := *override.Proxy.StripPrefix
		out.Proxy.StripPrefix = &v
	}
	if override.Log.Level != "" {
		out.Log.Level = override.Log.Level
	}
	if override.Log.Format != "" {
		out.Log.Format = override.Log.Format
	}
	return out
}
