// Package config loads shelf configuration with the precedence
// defaults < YAML file < SHELF_* environment variables < command-line flags.
// Flags are applied by the commands after Load.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"bookshelf/src/internal/book"
	"bookshelf/src/internal/opensearch"
	"bookshelf/src/internal/sru"
	"bookshelf/src/internal/transport"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SHELF_"

// Config is the whole configuration.
type Config struct {
	Catalog   CatalogConfig   `yaml:"catalog"`
	Transport TransportConfig `yaml:"transport"`
	Search    SearchConfig    `yaml:"search"`
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
}

// CatalogConfig locates the remote catalog.
type CatalogConfig struct {
	SRUEndpoint        string `yaml:"sru_endpoint" validate:"required,url"`
	OpenSearchEndpoint string `yaml:"opensearch_endpoint" validate:"required,url"`
	DataProvider       string `yaml:"data_provider" validate:"required"`
	ThumbnailTemplate  string `yaml:"thumbnail_template" validate:"required,contains={isbn}"`
	PlaceholderImage   string `yaml:"placeholder_image" validate:"required,startswith=http"`
}

// TransportConfig selects direct access or the relay list.
type TransportConfig struct {
	UseDirectProxy bool              `yaml:"use_direct_proxy"`
	ProxyBase      string            `yaml:"proxy_base" validate:"omitempty,startswith=http"`
	Relays         []transport.Relay `yaml:"relays" validate:"dive"`
	DirectTimeout  time.Duration     `yaml:"direct_timeout" validate:"gt=0"`
	// RatePerSecond of 0 disables client-side rate limiting.
	RatePerSecond float64 `yaml:"rate_per_second" validate:"gte=0"`
	Burst         int     `yaml:"burst" validate:"gte=1"`
}

// SearchConfig tunes the SRU and OpenSearch requests.
type SearchConfig struct {
	MaxRecords int    `yaml:"max_records" validate:"gte=1,lte=50"`
	Schema     string `yaml:"schema" validate:"oneof=dc dcndl"`
	RichSchema string `yaml:"rich_schema" validate:"oneof=dc dcndl"`
	PageSize   int    `yaml:"page_size" validate:"gte=1,lte=100"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// ServerConfig configures `shelf serve`.
type ServerConfig struct {
	Addr           string        `yaml:"addr" validate:"required"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	ReadTimeout    time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout   time.Duration `yaml:"write_timeout" validate:"gte=0"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" validate:"gte=0"`
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gte=0"`
	// ClientRate limits API requests per second per client IP; 0 disables it.
	ClientRate  float64 `yaml:"client_rate" validate:"gte=0"`
	ClientBurst int     `yaml:"client_burst" validate:"gte=1"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Catalog: CatalogConfig{
			SRUEndpoint:        sru.DefaultEndpoint,
			OpenSearchEndpoint: opensearch.DefaultEndpoint,
			DataProvider:       opensearch.DefaultDataProvider,
			ThumbnailTemplate:  book.DefaultCoverURL,
			PlaceholderImage:   book.DefaultNoImage,
		},
		Transport: TransportConfig{
			Relays:        transport.DefaultRelays(),
			DirectTimeout: transport.DefaultDirectTimeout,
			RatePerSecond: 2,
			Burst:         4,
		},
		Search: SearchConfig{
			MaxRecords: sru.DefaultMaxRecords,
			Schema:     sru.SchemaDCNDL,
			RichSchema: sru.SchemaDCNDL,
			PageSize:   opensearch.DefaultPageSize,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   60 * time.Second,
			IdleTimeout:    60 * time.Second,
			RequestTimeout: 60 * time.Second,
			ClientRate:     5,
			ClientBurst:    10,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty) and the environment. It does not validate; call
// Validate once flags are applied.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path = strings.TrimSpace(path); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from SHELF_* environment variables.
func (c *Config) ApplyEnv() error {
	c.Catalog.SRUEndpoint = getEnv("SRU_ENDPOINT", c.Catalog.SRUEndpoint)
	c.Catalog.OpenSearchEndpoint = getEnv("OPENSEARCH_ENDPOINT", c.Catalog.OpenSearchEndpoint)
	c.Catalog.DataProvider = getEnv("DATA_PROVIDER", c.Catalog.DataProvider)
	c.Catalog.ThumbnailTemplate = getEnv("THUMBNAIL_TEMPLATE", c.Catalog.ThumbnailTemplate)
	c.Catalog.PlaceholderImage = getEnv("PLACEHOLDER_IMAGE", c.Catalog.PlaceholderImage)

	c.Transport.ProxyBase = getEnv("PROXY_BASE", c.Transport.ProxyBase)
	c.Search.Schema = getEnv("SCHEMA", c.Search.Schema)
	c.Search.RichSchema = getEnv("RICH_SCHEMA", c.Search.RichSchema)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	c.Server.Addr = getEnv("ADDR", c.Server.Addr)
	if v := getEnv("ALLOWED_ORIGINS", ""); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}

	var errs []error
	var err error
	if c.Transport.UseDirectProxy, err = getBool("USE_DIRECT_PROXY", c.Transport.UseDirectProxy); err != nil {
		errs = append(errs, err)
	}
	if c.Transport.DirectTimeout, err = getDuration("DIRECT_TIMEOUT", c.Transport.DirectTimeout); err != nil {
		errs = append(errs, err)
	}
	if c.Transport.RatePerSecond, err = getFloat("RATE_PER_SECOND", c.Transport.RatePerSecond); err != nil {
		errs = append(errs, err)
	}
	if c.Transport.Burst, err = getInt("BURST", c.Transport.Burst); err != nil {
		errs = append(errs, err)
	}
	if c.Search.MaxRecords, err = getInt("MAX_RECORDS", c.Search.MaxRecords); err != nil {
		errs = append(errs, err)
	}
	if c.Search.PageSize, err = getInt("PAGE_SIZE", c.Search.PageSize); err != nil {
		errs = append(errs, err)
	}
	if c.Server.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", c.Server.RequestTimeout); err != nil {
		errs = append(errs, err)
	}
	if c.Server.ClientRate, err = getFloat("CLIENT_RATE", c.Server.ClientRate); err != nil {
		errs = append(errs, err)
	}
	if c.Server.ClientBurst, err = getInt("CLIENT_BURST", c.Server.ClientBurst); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

var validate = validator.New()

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "url":
		return fmt.Sprintf("%s must be a URL", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gt", "gte", "lte":
		return fmt.Sprintf("%s must be %s %s", field, fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}

// YAML renders the configuration as it would be written to a file.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Covers returns the cover URL settings.
func (c *Config) Covers() book.Covers {
	return book.Covers{Template: c.Catalog.ThumbnailTemplate, Placeholder: c.Catalog.PlaceholderImage}
}

// TransportOptions maps the transport section to router options.
func (c *Config) TransportOptions() transport.Options {
	rps := c.Transport.RatePerSecond
	if rps == 0 {
		rps = -1
	}
	return transport.Options{
		Relays:         c.Transport.Relays,
		UseDirectProxy: c.Transport.UseDirectProxy,
		ProxyBase:      c.Transport.ProxyBase,
		DirectTimeout:  c.Transport.DirectTimeout,
		RatePerSecond:  rps,
		Burst:          c.Transport.Burst,
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) (bool, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	return b, nil
}

func getInt(key string, def int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	return n, nil
}

func getFloat(key string, def float64) (float64, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	return f, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
