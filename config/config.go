package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "CONSOLE"

const (
	SessionStoreMemory   = "memory"
	SessionStoreFile     = "file"
	SessionStorePostgres = "postgres"
)

type Config struct {
	Server   ServerConfig
	API      APIConfig
	Console  ConsoleConfig
	Session  SessionConfig
	Database DatabaseConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port string
	Mode string
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type ConsoleConfig struct {
	PageSize     int
	EntitiesFile string
}

type SessionConfig struct {
	Store        string
	Name         string
	FilePath     string
	Secret       string
	CookieName   string
	CookieSecure bool
	TTL          time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type LogConfig struct {
	Level  string
	Format string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8081")
	v.SetDefault("server.mode", "release")
	v.SetDefault("api.base_url", "https://shopneo-backend.onrender.com/api/v1/")
	v.SetDefault("api.timeout", 20*time.Second)
	v.SetDefault("console.page_size", 10)
	v.SetDefault("console.entities_file", "")
	v.SetDefault("session.store", SessionStoreMemory)
	v.SetDefault("session.name", "default")
	v.SetDefault("session.file_path", "")
	v.SetDefault("session.secret", "")
	v.SetDefault("session.cookie_name", "console_session")
	v.SetDefault("session.cookie_secure", false)
	v.SetDefault("session.ttl", 12*time.Hour)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "console")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads configuration from the environment (CONSOLE_*) and, when
// CONSOLE_CONFIG names one, a YAML file. Environment values win.
func Load() (*Config, error) {
	return LoadFrom(viper.New())
}

func LoadFrom(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("server.port"),
			Mode: v.GetString("server.mode"),
		},
		API: APIConfig{
			BaseURL: v.GetString("api.base_url"),
			Timeout: v.GetDuration("api.timeout"),
		},
		Console: ConsoleConfig{
			PageSize:     v.GetInt("console.page_size"),
			EntitiesFile: v.GetString("console.entities_file"),
		},
		Session: SessionConfig{
			Store:        strings.ToLower(v.GetString("session.store")),
			Name:         v.GetString("session.name"),
			FilePath:     v.GetString("session.file_path"),
			Secret:       v.GetString("session.secret"),
			CookieName:   v.GetString("session.cookie_name"),
			CookieSecure: v.GetBool("session.cookie_secure"),
			TTL:          v.GetDuration("session.ttl"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("database.host"),
			Port:     v.GetString("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			Name:     v.GetString("database.name"),
			SSLMode:  v.GetString("database.sslmode"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.API.BaseURL) == "" {
		return fmt.Errorf("api base url is required")
	}
	if cfg.API.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive, got %s", cfg.API.Timeout)
	}
	if cfg.Console.PageSize < 1 {
		return fmt.Errorf("page size must be at least 1, got %d", cfg.Console.PageSize)
	}

	if cfg.Session.CookieName == "" {
		return fmt.Errorf("session cookie name is required")
	}
	if cfg.Session.TTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", cfg.Session.TTL)
	}

	switch cfg.Session.Store {
	case SessionStoreMemory:
	case SessionStoreFile:
		if cfg.Session.FilePath == "" {
			return fmt.Errorf("session file path is required for the file store")
		}
		if cfg.Session.Secret == "" {
			return fmt.Errorf("session secret is required for the file store")
		}
	case SessionStorePostgres:
		if cfg.Session.Secret == "" {
			return fmt.Errorf("session secret is required for the postgres store")
		}
	default:
		return fmt.Errorf("unsupported session store: %s", cfg.Session.Store)
	}

	return nil
}
