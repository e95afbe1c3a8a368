package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logger   LoggerConfig   `yaml:"logger"`
	Auth     AuthConfig     `yaml:"auth"`
	Graph    GraphConfig    `yaml:"graph"`
	Sync     SyncConfig     `yaml:"sync"`
}

type ServerConfig struct {
	Port                   string `yaml:"port"`
	Mode                   string `yaml:"mode"`
	BasePath               string `yaml:"base_path"`
	ReadTimeoutSeconds     int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `yaml:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
}

// ReadTimeout returns the server read timeout as a duration
func (c *ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the server write timeout as a duration
func (c *ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

// ShutdownTimeout returns the graceful shutdown timeout as a duration
func (c *ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

type DatabaseConfig struct {
	URL                    string `yaml:"url"`
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	User                   string `yaml:"user"`
	Password               string `yaml:"password"`
	Name                   string `yaml:"name"`
	SSLMode                string `yaml:"ssl_mode"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// ConnMaxLifetime returns the connection max lifetime as a duration
func (c *DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeMinutes) * time.Minute
}

// GetDSN returns the PostgreSQL connection string. An explicit URL wins over
// the individual host/port/user fields.
func (c *DatabaseConfig) GetDSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type LoggerConfig struct {
	Level string `yaml:"level"`
}

type AuthConfig struct {
	SecretKey string `yaml:"secret_key"`
}

// GraphConfig holds the Microsoft Graph connection settings consumed by the
// sync engine.
type GraphConfig struct {
	TenantID              string  `yaml:"tenant_id"`
	ClientID              string  `yaml:"client_id"`
	ClientSecret          string  `yaml:"client_secret"`
	GroupID               string  `yaml:"group_id"`
	Scope                 string  `yaml:"scope"`
	BaseURL               string  `yaml:"base_url"`
	AuthorityURL          string  `yaml:"authority_url"`
	BatchSize             int     `yaml:"batch_size"`
	MaxRetries            int     `yaml:"max_retries"`
	InitialBackoffSeconds float64 `yaml:"initial_backoff_seconds"`
	RequestTimeoutSeconds int     `yaml:"request_timeout_seconds"`
}

// InitialBackoff returns the first retry delay as a duration
func (c *GraphConfig) InitialBackoff() time.Duration {
	return time.Duration(c.InitialBackoffSeconds * float64(time.Second))
}

// RequestTimeout returns the per-request timeout as a duration
func (c *GraphConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

type SyncConfig struct {
	IntervalMinutes int  `yaml:"interval_minutes"`
	RunOnStart      bool `yaml:"run_on_start"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:                   "8004",
			Mode:                   "debug",
			BasePath:               "/api",
			ReadTimeoutSeconds:     15,
			WriteTimeoutSeconds:    15,
			ShutdownTimeoutSeconds: 10,
		},
		Database: DatabaseConfig{
			Host:                   "localhost",
			Port:                   5432,
			User:                   "postgres",
			Name:                   "presence",
			SSLMode:                "disable",
			MaxOpenConns:           25,
			MaxIdleConns:           5,
			ConnMaxLifetimeMinutes: 5,
		},
		Logger: LoggerConfig{
			Level: "info",
		},
		Graph: GraphConfig{
			Scope:                 "https://graph.microsoft.com/.default",
			BaseURL:               "https://graph.microsoft.com/v1.0",
			AuthorityURL:          "https://login.microsoftonline.com",
			BatchSize:             100,
			MaxRetries:            4,
			InitialBackoffSeconds: 2.0,
			RequestTimeoutSeconds: 30,
		},
		Sync: SyncConfig{
			IntervalMinutes: 5,
			RunOnStart:      true,
		},
	}

	// Load from yaml file if exists
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// Override with environment variables
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		cfg.Server.Mode = mode
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.Logger.Level = logLevel
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if secretKey := os.Getenv("SECRET_KEY"); secretKey != "" {
		cfg.Auth.SecretKey = secretKey
	}
	if tenantID := os.Getenv("TENANT_ID"); tenantID != "" {
		cfg.Graph.TenantID = tenantID
	}
	if clientID := os.Getenv("CLIENT_ID"); clientID != "" {
		cfg.Graph.ClientID = clientID
	}
	if clientSecret := os.Getenv("CLIENT_SECRET"); clientSecret != "" {
		cfg.Graph.ClientSecret = clientSecret
	}
	if groupID := os.Getenv("GROUP_ID"); groupID != "" {
		cfg.Graph.GroupID = groupID
	}
	if batchSize := os.Getenv("PRESENCE_BATCH_SIZE"); batchSize != "" {
		if n, err := strconv.Atoi(batchSize); err == nil && n > 0 {
			cfg.Graph.BatchSize = n
		}
	}
	if interval := os.Getenv("SYNC_INTERVAL_MINUTES"); interval != "" {
		if n, err := strconv.Atoi(interval); err == nil && n > 0 {
			cfg.Sync.IntervalMinutes = n
		}
	}

	return cfg, nil
}
