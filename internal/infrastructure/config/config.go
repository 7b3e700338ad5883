package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Log      LogConfig
	HTTP     HTTPConfig
	Esb      EsbConfig
	Sheets   SheetsConfig
	Odoo     OdooConfig
	Catalog  CatalogConfig
	Storage  StorageConfig
	Printing PrintingConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds JWT validation settings. Tokens are minted by the
// upstream identity provider; this service only verifies them.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// EsbConfig holds the ESB integration settings. Username and password
// are the fallback login pair when the credential sheet is unreachable.
type EsbConfig struct {
	BaseURL          string
	Username         string
	Password         string
	TokenTTL         time.Duration
	TokenBuffer      time.Duration
	RefreshTTL       time.Duration
	Timeout          time.Duration
	LoginTimeout     time.Duration
	DetailTimeout    time.Duration
	DetailRetryDelay time.Duration
	ListLimit        int
	FlagActive       int
	ProductListTTL   time.Duration
	ProductDetailTTL time.Duration
}

// SheetsConfig holds the Google Apps Script credential sheet settings.
// The Config* fields point the runtime config fallback at its own
// endpoint; when empty, the fallback reuses the credential endpoint.
type SheetsConfig struct {
	GasURL    string
	APISecret string
	SheetName string
	GID       string
	Timeout   time.Duration

	ConfigGasURL    string
	ConfigAPISecret string
	ConfigSheetName string
	ConfigGID       string
}

// OdooConfig holds the Odoo JSON-RPC connection settings
type OdooConfig struct {
	URL       string
	DB        string
	Username  string
	Password  string
	CompanyID int
	Timeout   time.Duration
}

// CatalogConfig holds master-data cache settings
type CatalogConfig struct {
	OutletTTL  time.Duration
	ProductTTL time.Duration
}

// StorageConfig holds S3 attachment storage settings
type StorageConfig struct {
	Enabled       bool
	Bucket        string
	Region        string
	Endpoint      string // optional, for S3-compatible stores
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
	MaxUploadSize int64
}

// PrintingConfig holds the headless-Chrome PDF renderer settings
type PrintingConfig struct {
	Enabled bool
	Timeout time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with MUTASI_ prefix (e.g., MUTASI_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("MUTASI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:   v.GetString("jwt.secret"),
			Issuer:   v.GetString("jwt.issuer"),
			Audience: v.GetString("jwt.audience"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Esb: EsbConfig{
			BaseURL:          v.GetString("esb.base_url"),
			Username:         v.GetString("esb.username"),
			Password:         v.GetString("esb.password"),
			TokenTTL:         v.GetDuration("esb.token_ttl"),
			TokenBuffer:      v.GetDuration("esb.token_buffer"),
			RefreshTTL:       v.GetDuration("esb.refresh_ttl"),
			Timeout:          v.GetDuration("esb.timeout"),
			LoginTimeout:     v.GetDuration("esb.login_timeout"),
			DetailTimeout:    v.GetDuration("esb.detail_timeout"),
			DetailRetryDelay: v.GetDuration("esb.detail_retry_delay"),
			ListLimit:        v.GetInt("esb.list_limit"),
			FlagActive:       v.GetInt("esb.flag_active"),
			ProductListTTL:   v.GetDuration("esb.product_list_ttl"),
			ProductDetailTTL: v.GetDuration("esb.product_detail_ttl"),
		},
		Sheets: SheetsConfig{
			GasURL:    v.GetString("sheets.gas_url"),
			APISecret: v.GetString("sheets.api_secret"),
			SheetName: v.GetString("sheets.sheet_name"),
			GID:       v.GetString("sheets.gid"),
			Timeout:   v.GetDuration("sheets.timeout"),

			ConfigGasURL:    v.GetString("sheets.config_gas_url"),
			ConfigAPISecret: v.GetString("sheets.config_api_secret"),
			ConfigSheetName: v.GetString("sheets.config_sheet_name"),
			ConfigGID:       v.GetString("sheets.config_gid"),
		},
		Odoo: OdooConfig{
			URL:       v.GetString("odoo.url"),
			DB:        v.GetString("odoo.db"),
			Username:  v.GetString("odoo.username"),
			Password:  v.GetString("odoo.password"),
			CompanyID: v.GetInt("odoo.company_id"),
			Timeout:   v.GetDuration("odoo.timeout"),
		},
		Catalog: CatalogConfig{
			OutletTTL:  v.GetDuration("catalog.outlet_ttl"),
			ProductTTL: v.GetDuration("catalog.product_ttl"),
		},
		Storage: StorageConfig{
			Enabled:       v.GetBool("storage.enabled"),
			Bucket:        v.GetString("storage.bucket"),
			Region:        v.GetString("storage.region"),
			Endpoint:      v.GetString("storage.endpoint"),
			AccessKey:     v.GetString("storage.access_key"),
			SecretKey:     v.GetString("storage.secret_key"),
			PublicBaseURL: v.GetString("storage.public_base_url"),
			MaxUploadSize: v.GetInt64("storage.max_upload_size"),
		},
		Printing: PrintingConfig{
			Enabled: v.GetBool("printing.enabled"),
			Timeout: v.GetDuration("printing.timeout"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "mutasi-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "mutasi"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "mutasi-backend"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 210 << 20 // attachments can run up to 200MB
	}
	// NOTE: CORS origins are intentionally not given a default fallback to "*".
	// An empty list means no cross-origin requests are allowed until
	// explicitly configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Esb.BaseURL == "" {
		cfg.Esb.BaseURL = "https://services.esb.co.id/core"
	}
	if cfg.Esb.TokenTTL == 0 {
		cfg.Esb.TokenTTL = time.Hour
	}
	if cfg.Esb.TokenBuffer == 0 {
		cfg.Esb.TokenBuffer = 5 * time.Minute
	}
	if cfg.Esb.RefreshTTL == 0 {
		cfg.Esb.RefreshTTL = 24 * time.Hour
	}
	if cfg.Esb.Timeout == 0 {
		cfg.Esb.Timeout = 15 * time.Second
	}
	if cfg.Esb.LoginTimeout == 0 {
		cfg.Esb.LoginTimeout = 10 * time.Second
	}
	if cfg.Esb.DetailTimeout == 0 {
		cfg.Esb.DetailTimeout = 5 * time.Second
	}
	if cfg.Esb.DetailRetryDelay == 0 {
		cfg.Esb.DetailRetryDelay = time.Second
	}
	if cfg.Esb.ListLimit == 0 {
		cfg.Esb.ListLimit = 100
	}
	if cfg.Esb.FlagActive == 0 {
		cfg.Esb.FlagActive = 1
	}
	if cfg.Esb.ProductListTTL == 0 {
		cfg.Esb.ProductListTTL = 10 * time.Minute
	}
	if cfg.Esb.ProductDetailTTL == 0 {
		cfg.Esb.ProductDetailTTL = time.Hour
	}
	if cfg.Sheets.SheetName == "" {
		cfg.Sheets.SheetName = "secretCredentials"
	}
	if cfg.Sheets.GID == "" {
		cfg.Sheets.GID = "1746209771"
	}
	if cfg.Sheets.Timeout == 0 {
		cfg.Sheets.Timeout = 15 * time.Second
	}
	if cfg.Odoo.Timeout == 0 {
		cfg.Odoo.Timeout = 20 * time.Second
	}
	if cfg.Catalog.OutletTTL == 0 {
		cfg.Catalog.OutletTTL = 5 * time.Minute
	}
	if cfg.Catalog.ProductTTL == 0 {
		cfg.Catalog.ProductTTL = 30 * time.Minute
	}
	if cfg.Storage.MaxUploadSize == 0 {
		cfg.Storage.MaxUploadSize = 200 << 20 // 200MB
	}
	if cfg.Printing.Timeout == 0 {
		cfg.Printing.Timeout = 45 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Storage.Enabled && (c.Storage.Bucket == "" || c.Storage.Region == "") {
			return fmt.Errorf("storage.bucket and storage.region are required when storage is enabled in production")
		}
	}

	if c.Esb.TokenBuffer >= c.Esb.TokenTTL {
		return fmt.Errorf("esb.token_buffer (%s) must be smaller than esb.token_ttl (%s)",
			c.Esb.TokenBuffer, c.Esb.TokenTTL)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
