package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Data    DataConfig    `yaml:"data" mapstructure:"data"`
	View    ViewConfig    `yaml:"view" mapstructure:"view"`
	Basemap BasemapConfig `yaml:"basemap" mapstructure:"basemap"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DataConfig selects where the web_data files come from. A non-empty
// BaseURL fetches over HTTP; otherwise files are read from Dir.
type DataConfig struct {
	Dir         string  `yaml:"dir" mapstructure:"dir"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ViewConfig holds the initial view and the supported cluster counts.
type ViewConfig struct {
	DefaultClusterCount int     `yaml:"default_cluster_count" mapstructure:"default_cluster_count"`
	ClusterCounts       []int   `yaml:"cluster_counts" mapstructure:"cluster_counts"`
	CenterLng           float64 `yaml:"center_lng" mapstructure:"center_lng"`
	CenterLat           float64 `yaml:"center_lat" mapstructure:"center_lat"`
	Zoom                float64 `yaml:"zoom" mapstructure:"zoom"`
	GlyphsURL           string  `yaml:"glyphs_url" mapstructure:"glyphs_url"`
}

// BasemapConfig controls the background tile source. With Proxy set, the
// style points at this server's /tiles route, which fetches from Upstream
// and caches.
type BasemapConfig struct {
	Proxy        bool    `yaml:"proxy" mapstructure:"proxy"`
	Upstream     string  `yaml:"upstream" mapstructure:"upstream"`
	PublicURL    string  `yaml:"public_url" mapstructure:"public_url"`
	CacheEntries int     `yaml:"cache_entries" mapstructure:"cache_entries"`
	CacheTTLMins int     `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CLUSTERMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("data.dir", ".")
	v.SetDefault("data.base_url", "")
	v.SetDefault("data.timeout_secs", 30)
	v.SetDefault("data.rate_limit", 20)
	v.SetDefault("view.default_cluster_count", 6)
	v.SetDefault("view.cluster_counts", []int{4, 5, 6, 7})
	v.SetDefault("view.center_lng", 130.4017)
	v.SetDefault("view.center_lat", 33.5904)
	v.SetDefault("view.zoom", 10)
	v.SetDefault("view.glyphs_url", "https://maps.gsi.go.jp/xyz/noto-jp/{fontstack}/{range}.pbf")
	v.SetDefault("basemap.proxy", false)
	v.SetDefault("basemap.upstream", "https://cyberjapandata.gsi.go.jp/xyz/pale/{z}/{x}/{y}.png")
	v.SetDefault("basemap.public_url", "http://localhost:8080")
	v.SetDefault("basemap.cache_entries", 2048)
	v.SetDefault("basemap.cache_ttl_mins", 60)
	v.SetDefault("basemap.rate_limit", 10)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs.
func (c *Config) Validate(mode string) error {
	var errs []string
	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		errs = append(errs, c.validateView()...)
		if c.Data.BaseURL == "" && c.Data.Dir == "" {
			errs = append(errs, "data.dir or data.base_url is required")
		}
		if c.Basemap.Proxy {
			if c.Basemap.Upstream == "" {
				errs = append(errs, "basemap.upstream is required when basemap.proxy is set")
			}
			if c.Basemap.PublicURL == "" {
				errs = append(errs, "basemap.public_url is required when basemap.proxy is set")
			}
		}
	case "scene":
		errs = append(errs, c.validateView()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}
	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateView() []string {
	var errs []string
	if len(c.View.ClusterCounts) == 0 {
		errs = append(errs, "view.cluster_counts must not be empty")
	}
	found := false
	for _, k := range c.View.ClusterCounts {
		if k < 2 {
			errs = append(errs, "view.cluster_counts values must be >= 2")
			break
		}
		found = found || k == c.View.DefaultClusterCount
	}
	if !found {
		errs = append(errs, "view.default_cluster_count must be one of view.cluster_counts")
	}
	if u := c.View.GlyphsURL; u != "" && (!strings.Contains(u, "{fontstack}") || !strings.Contains(u, "{range}")) {
		errs = append(errs, "view.glyphs_url must contain {fontstack} and {range}")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
