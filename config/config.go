package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no config path is given.
const DefaultPath = "config/app_config.yaml"

// DefaultEndpoint is the Google Places "place details" endpoint.
const DefaultEndpoint = "https://maps.googleapis.com/maps/api/place/details/json"

// Variant selects the deployment flavour of the gateway.
type Variant string

const (
	// VariantAPI serves only the API routes and answers 404 elsewhere.
	VariantAPI Variant = "api"
	// VariantWeb serves the API routes plus static files.
	VariantWeb Variant = "web"
)

// AppConfig is the full gateway configuration.
type AppConfig struct {
	App          AppSettings                 `yaml:"app"`
	Places       PlacesConfig                `yaml:"places"`
	CORS         CORSConfig                  `yaml:"cors"`
	Logging      LoggingConfig               `yaml:"logging"`
	Metrics      MetricsConfig               `yaml:"metrics"`
	Variants     map[Variant]VariantSettings `yaml:"variants"`
	Environments map[string]AppConfig        `yaml:"environments"`

	// Path is the file the config was read from, empty when defaults were used.
	Path string `yaml:"-"`
}

type AppSettings struct {
	Name        string  `yaml:"name"`
	Version     string  `yaml:"version"`
	Environment string  `yaml:"environment"`
	Variant     Variant `yaml:"variant"`
	Host        string  `yaml:"host"`
	Port        string  `yaml:"port"`
	StaticDir   string  `yaml:"static_dir"`
	Debug       bool    `yaml:"debug"`
}

type PlacesConfig struct {
	Endpoint       string        `yaml:"endpoint"`
	ReviewsPlaceID string        `yaml:"reviews_place_id"`
	DetailsPlaceID string        `yaml:"details_place_id"`
	Timeout        time.Duration `yaml:"timeout"`

	// APIKey only ever comes from the environment.
	APIKey string `yaml:"-"`
}

// VariantSettings are the settings that differ between variants. The entry
// for the running variant is applied after the top-level file settings.
type VariantSettings struct {
	Port           string `yaml:"port"`
	StaticDir      string `yaml:"static_dir"`
	ReviewsPlaceID string `yaml:"reviews_place_id"`
	DetailsPlaceID string `yaml:"details_place_id"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in settings for a variant.
func Default(variant Variant) *AppConfig {
	cfg := &AppConfig{
		App: AppSettings{
			Name:        "places-gateway",
			Version:     "1.0.0",
			Environment: "development",
			Variant:     variant,
			Host:        "0.0.0.0",
			StaticDir:   ".",
		},
		Places: PlacesConfig{
			Endpoint: DefaultEndpoint,
			Timeout:  10 * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}

	switch variant {
	case VariantAPI:
		cfg.App.Port = "8080"
		cfg.Places.ReviewsPlaceID = "ChIJ4awl5Vxr1GoRMqAvH9ef19E"
		cfg.Places.DetailsPlaceID = "ChIJwazJJyvrYmoR_5NFQT_rYOI"
	default:
		cfg.App.Port = "5000"
		cfg.Places.ReviewsPlaceID = "ChIJuXPUd1i712oRN1eR-J82Or4"
		cfg.Places.DetailsPlaceID = "ChIJuXPUd1i712oRN1eR-J82Or4"
	}

	return cfg
}

// Load builds the configuration from defaults, the YAML file at path, the
// per-variant and per-environment overrides and finally environment variables. A missing file
// is not an error; the returned config then has an empty Path.
//
// The variant is taken from the argument, then GATEWAY_VARIANT, then the file,
// and defaults to VariantWeb. It decides which defaults the file is layered on.
func Load(path string, variant Variant) (*AppConfig, error) {
	if path == "" {
		path = DefaultPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config file (%s): %w", absPath, err)
		}
		data = nil
		absPath = ""
	}

	variant = resolveVariant(variant, data)

	cfg := Default(variant)
	if data != nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file (%s): %w", absPath, err)
		}
	}
	cfg.App.Variant = variant
	cfg.Path = absPath
	cfg.applyVariantOverrides()

	if env := os.Getenv("ENVIRONMENT"); env != "" {
		cfg.App.Environment = env
	}
	cfg.applyEnvironmentOverrides()

	if err := cfg.applyEnvironmentVariables(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func resolveVariant(variant Variant, data []byte) Variant {
	if variant != "" {
		return variant
	}
	if v := os.Getenv("GATEWAY_VARIANT"); v != "" {
		return Variant(strings.ToLower(v))
	}
	if data != nil {
		var probe struct {
			App struct {
				Variant Variant `yaml:"variant"`
			} `yaml:"app"`
		}
		if err := yaml.Unmarshal(data, &probe); err == nil && probe.App.Variant != "" {
			return probe.App.Variant
		}
	}
	return VariantWeb
}

// applyVariantOverrides layers the entry of Variants matching App.Variant on
// top of the file settings.
func (c *AppConfig) applyVariantOverrides() {
	v, exists := c.Variants[c.App.Variant]
	if !exists {
		return
	}

	if v.Port != "" {
		c.App.Port = v.Port
	}
	if v.StaticDir != "" {
		c.App.StaticDir = v.StaticDir
	}
	if v.ReviewsPlaceID != "" {
		c.Places.ReviewsPlaceID = v.ReviewsPlaceID
	}
	if v.DetailsPlaceID != "" {
		c.Places.DetailsPlaceID = v.DetailsPlaceID
	}
}

// applyEnvironmentOverrides layers the entry of Environments matching
// App.Environment on top of the file settings.
func (c *AppConfig) applyEnvironmentOverrides() {
	envConfig, exists := c.Environments[c.App.Environment]
	if !exists {
		return
	}

	if envConfig.App.Debug {
		c.App.Debug = true
	}
	if envConfig.App.Port != "" {
		c.App.Port = envConfig.App.Port
	}
	if envConfig.App.StaticDir != "" {
		c.App.StaticDir = envConfig.App.StaticDir
	}
	if envConfig.Places.ReviewsPlaceID != "" {
		c.Places.ReviewsPlaceID = envConfig.Places.ReviewsPlaceID
	}
	if envConfig.Places.DetailsPlaceID != "" {
		c.Places.DetailsPlaceID = envConfig.Places.DetailsPlaceID
	}
	if envConfig.Places.Timeout > 0 {
		c.Places.Timeout = envConfig.Places.Timeout
	}
	if envConfig.Logging.Level != "" {
		c.Logging.Level = envConfig.Logging.Level
	}
	if envConfig.Logging.Format != "" {
		c.Logging.Format = envConfig.Logging.Format
	}
	if len(envConfig.CORS.AllowedOrigins) > 0 {
		c.CORS.AllowedOrigins = envConfig.CORS.AllowedOrigins
	}
	if envConfig.Metrics.Addr != "" {
		c.Metrics.Addr = envConfig.Metrics.Addr
	}
}

// applyEnvironmentVariables applies process environment overrides.
func (c *AppConfig) applyEnvironmentVariables() error {
	if host := os.Getenv("HOST"); host != "" {
		c.App.Host = host
	}
	if port := os.Getenv("PORT"); port != "" {
		c.App.Port = port
	}
	if dir := os.Getenv("STATIC_DIR"); dir != "" {
		c.App.StaticDir = dir
	}

	c.Places.APIKey = os.Getenv("GOOGLE_PLACES_API_KEY")
	if id := os.Getenv("PLACES_REVIEWS_PLACE_ID"); id != "" {
		c.Places.ReviewsPlaceID = id
	}
	if id := os.Getenv("PLACES_DETAILS_PLACE_ID"); id != "" {
		c.Places.DetailsPlaceID = id
	}
	if endpoint := os.Getenv("PLACES_ENDPOINT"); endpoint != "" {
		c.Places.Endpoint = endpoint
	}
	if timeout := os.Getenv("PLACES_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid PLACES_TIMEOUT %q: %w", timeout, err)
		}
		c.Places.Timeout = d
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		c.Metrics.Addr = addr
	}
	return nil
}

// Validate rejects settings the server cannot start with. A missing API key
// is not checked here; handlers report it per request.
func (c *AppConfig) Validate() error {
	switch c.App.Variant {
	case VariantAPI, VariantWeb:
	default:
		return fmt.Errorf("unknown variant %q (want %q or %q)", c.App.Variant, VariantAPI, VariantWeb)
	}
	if c.App.Port == "" {
		return errors.New("app.port is required")
	}
	if c.Places.Endpoint == "" {
		return errors.New("places.endpoint is required")
	}
	if c.Places.Timeout <= 0 {
		return fmt.Errorf("places.timeout must be positive, got %s", c.Places.Timeout)
	}
	if !c.CORS.OpenCORS() {
		for _, o := range c.CORS.AllowedOrigins {
			if !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
				return fmt.Errorf("cors.allowed_origins: %q must start with http:// or https://", o)
			}
		}
	}
	return nil
}

// Address returns the host:port the gateway listens on.
func (c *AppConfig) Address() string {
	return net.JoinHostPort(c.App.Host, c.App.Port)
}

// ServesStatic reports whether unmatched GET paths are looked up on disk.
func (c *AppConfig) ServesStatic() bool {
	return c.App.Variant == VariantWeb
}

// OpenCORS reports whether every origin is allowed.
func (c CORSConfig) OpenCORS() bool {
	if len(c.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

// MaskString hides all but the first four characters of a secret.
func MaskString(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-4)
}
