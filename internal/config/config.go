package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/newthinker/intrinsic/internal/core"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Valuation ValuationConfig `mapstructure:"valuation"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// Debug reports whether the server runs in debug mode
func (s ServerConfig) Debug() bool {
	return s.Mode == "debug"
}

// AuthConfig gates the /stock routes. At least one credential is required
// unless server.mode is debug, where an empty config leaves the routes open.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	APIKey    string        `mapstructure:"api_key"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// Enabled reports whether any credential is configured
func (a AuthConfig) Enabled() bool {
	return a.JWTSecret != "" || a.APIKey != ""
}

// DatabaseConfig points at the financial record store. An empty DSN skips
// the store tier.
type DatabaseConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

type ProvidersConfig struct {
	Eastmoney         EastmoneyConfig `mapstructure:"eastmoney"`
	Lixinger          LixingerConfig  `mapstructure:"lixinger"`
	StatementsEnabled bool            `mapstructure:"statements_enabled"`
}

type EastmoneyConfig struct {
	PushURL       string        `mapstructure:"push_url"`
	DatacenterURL string        `mapstructure:"datacenter_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type LixingerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// ValuationConfig holds request defaults and fallback constants
type ValuationConfig struct {
	DiscountRate     float64 `mapstructure:"discount_rate"`
	Stage1Years      int     `mapstructure:"stage1_years"`
	Stage1Growth     float64 `mapstructure:"stage1_growth"`
	Stage2Years      int     `mapstructure:"stage2_years"`
	Stage2Growth     float64 `mapstructure:"stage2_growth"`
	Stage3Years      int     `mapstructure:"stage3_years"`
	Stage3Growth     float64 `mapstructure:"stage3_growth"`
	PlaceholderPrice float64 `mapstructure:"placeholder_price"`
	DefaultShares    float64 `mapstructure:"default_shares"`
}

// Parameters converts the request defaults
func (v ValuationConfig) Parameters() core.ValuationParameters {
	return core.ValuationParameters{
		DiscountRate: v.DiscountRate,
		Stage1:       core.Stage{Years: v.Stage1Years, Growth: v.Stage1Growth},
		Stage2:       core.Stage{Years: v.Stage2Years, Growth: v.Stage2Growth},
		Stage3:       core.Stage{Years: v.Stage3Years, Growth: v.Stage3Growth},
	}
}

type ArchiveConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Type    string   `mapstructure:"type"` // "localfs" or "s3"
	Path    string   `mapstructure:"path"` // For localfs
	S3      S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LogConfig struct {
	Development bool `mapstructure:"development"`
}

// envAliases are the short variable names accepted next to the
// SECTION_KEY form AutomaticEnv already handles.
var envAliases = map[string]string{
	"database.dsn":               "DATABASE_URL",
	"auth.jwt_secret":            "JWT_SECRET",
	"auth.api_key":               "API_KEY",
	"providers.lixinger.api_key": "LIXINGER_API_KEY",
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from file on top of Defaults. An empty path uses
// defaults and the environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, alias := range envAliases {
		if err := v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), alias); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("auth.jwt_secret", d.Auth.JWTSecret)
	v.SetDefault("auth.api_key", d.Auth.APIKey)
	v.SetDefault("auth.token_ttl", d.Auth.TokenTTL)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.max_conns", d.Database.MaxConns)
	v.SetDefault("providers.statements_enabled", d.Providers.StatementsEnabled)
	v.SetDefault("providers.eastmoney.push_url", d.Providers.Eastmoney.PushURL)
	v.SetDefault("providers.eastmoney.datacenter_url", d.Providers.Eastmoney.DatacenterURL)
	v.SetDefault("providers.eastmoney.timeout", d.Providers.Eastmoney.Timeout)
	v.SetDefault("providers.lixinger.enabled", d.Providers.Lixinger.Enabled)
	v.SetDefault("providers.lixinger.api_key", d.Providers.Lixinger.APIKey)
	v.SetDefault("providers.lixinger.base_url", d.Providers.Lixinger.BaseURL)
	v.SetDefault("valuation.discount_rate", d.Valuation.DiscountRate)
	v.SetDefault("valuation.stage1_years", d.Valuation.Stage1Years)
	v.SetDefault("valuation.stage1_growth", d.Valuation.Stage1Growth)
	v.SetDefault("valuation.stage2_years", d.Valuation.Stage2Years)
	v.SetDefault("valuation.stage2_growth", d.Valuation.Stage2Growth)
	v.SetDefault("valuation.stage3_years", d.Valuation.Stage3Years)
	v.SetDefault("valuation.stage3_growth", d.Valuation.Stage3Growth)
	v.SetDefault("valuation.placeholder_price", d.Valuation.PlaceholderPrice)
	v.SetDefault("valuation.default_shares", d.Valuation.DefaultShares)
	v.SetDefault("archive.enabled", d.Archive.Enabled)
	v.SetDefault("archive.type", d.Archive.Type)
	v.SetDefault("archive.path", d.Archive.Path)
	v.SetDefault("archive.s3.bucket", d.Archive.S3.Bucket)
	v.SetDefault("archive.s3.endpoint", d.Archive.S3.Endpoint)
	v.SetDefault("archive.s3.region", d.Archive.S3.Region)
	v.SetDefault("archive.s3.access_key", d.Archive.S3.AccessKey)
	v.SetDefault("archive.s3.secret_key", d.Archive.S3.SecretKey)
	v.SetDefault("archive.s3.prefix", d.Archive.S3.Prefix)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
	v.SetDefault("log.development", d.Log.Development)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	params := core.DefaultValuationParameters()
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Mode: "release",
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Database: DatabaseConfig{
			MaxConns: 10,
		},
		Providers: ProvidersConfig{
			Eastmoney: EastmoneyConfig{
				PushURL:       "https://push2.eastmoney.com",
				DatacenterURL: "https://datacenter.eastmoney.com",
				Timeout:       10 * time.Second,
			},
			Lixinger: LixingerConfig{
				BaseURL: "https://open.lixinger.com/api",
			},
			StatementsEnabled: true,
		},
		Valuation: ValuationConfig{
			DiscountRate:     params.DiscountRate,
			Stage1Years:      params.Stage1.Years,
			Stage1Growth:     params.Stage1.Growth,
			Stage2Years:      params.Stage2.Years,
			Stage2Growth:     params.Stage2.Growth,
			Stage3Years:      params.Stage3.Years,
			Stage3Growth:     params.Stage3.Growth,
			PlaceholderPrice: 10.0,
			DefaultShares:    1e10,
		},
		Archive: ArchiveConfig{
			Type: "localfs",
			Path: "data/reports",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	// Auth validation
	if !c.Auth.Enabled() && !c.Server.Debug() {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("auth.jwt_secret or auth.api_key required outside debug mode"))
	}

	// Valuation validation
	v := c.Valuation
	if v.DiscountRate <= 0 || v.DiscountRate >= 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("valuation.discount_rate must be in (0,1), got %g", v.DiscountRate))
	}
	if err := v.Parameters().Validate(); err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}
	if v.Stage3Years == 0 && v.DiscountRate == v.Stage3Growth {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("valuation.discount_rate must differ from stage3_growth"))
	}
	if v.PlaceholderPrice <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("valuation.placeholder_price must be positive, got %g", v.PlaceholderPrice))
	}
	if v.DefaultShares <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("valuation.default_shares must be positive, got %g", v.DefaultShares))
	}

	// Provider validation
	if c.Providers.Lixinger.Enabled && c.Providers.Lixinger.APIKey == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("lixinger api_key required when lixinger is enabled"))
	}

	// Archive validation
	if c.Archive.Enabled {
		switch c.Archive.Type {
		case "localfs":
			if c.Archive.Path == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("archive.path required for localfs"))
			}
		case "s3":
			if c.Archive.S3.Bucket == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("archive.s3.bucket required for s3"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("archive.type must be localfs or s3, got %q", c.Archive.Type))
		}
	}

	return nil
}
