package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            int           `yaml:"port" validate:"min=1,max=65535"`
		ReadTimeout     time.Duration `yaml:"readTimeout"`
		WriteTimeout    time.Duration `yaml:"writeTimeout"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
		MaxSpecChars    int           `yaml:"maxSpecChars" validate:"min=0"`
		AllowedOrigins  []string      `yaml:"allowedOrigins"`
		// APIKeys maps client name to key; empty disables auth
		APIKeys   map[string]string `yaml:"apiKeys"`
		RateLimit struct {
			// RPS of 0 disables limiting; unset means 1
			RPS   *float64 `yaml:"rps" validate:"omitempty,min=0"`
			Burst int      `yaml:"burst" validate:"min=0"`
		} `yaml:"rateLimit"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver" validate:"oneof=mysql postgres sqlite"`
		Host     string `yaml:"host" validate:"required_unless=Driver sqlite"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name" validate:"required_unless=Driver sqlite"`
		SSLMode  string `yaml:"sslMode"`
		// Path of the SQLite file, ":memory:" for a throwaway store
		Path            string        `yaml:"path" validate:"required_if=Driver sqlite"`
		MaxOpenConns    int           `yaml:"maxOpenConns"`
		MaxIdleConns    int           `yaml:"maxIdleConns"`
		ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
		AutoMigrate     bool          `yaml:"autoMigrate"`
	} `yaml:"database"`

	LLM struct {
		BaseURL     string          `yaml:"baseURL" validate:"required,url"`
		APIKey      string          `yaml:"apiKey"`
		Referer     string          `yaml:"referer"`
		Title       string          `yaml:"title"`
		Models      []string        `yaml:"models" validate:"dive,required"`
		Temperature *float32        `yaml:"temperature" validate:"omitempty,min=0,max=2"`
		MaxTokens   int             `yaml:"maxTokens" validate:"gt=0"`
		Timeout     time.Duration   `yaml:"timeout"`
		RetryDelays []time.Duration `yaml:"retryDelays"`
		RetryAfter  time.Duration   `yaml:"retryAfter"`
	} `yaml:"llm"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName" validate:"required_with=Endpoint"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Log struct {
		Level  string `yaml:"level" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" validate:"oneof=json text"`
	} `yaml:"log"`
}

// Path resolves the config file: flag value, then CONFIG_PATH, then config.yaml
func Path(flag string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "config.yaml"
}

// Load reads the YAML file, applies env overrides and defaults, then validates.
// A missing file is not an error; defaults and env still apply.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		c.Minio.SecretKey = v
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		c.Database.Driver = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	// analysis requests wait on model retries, keep this well above the worst case
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 5 * time.Minute
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if c.Server.MaxSpecChars == 0 {
		c.Server.MaxSpecChars = 20000
	}
	if c.Server.RateLimit.RPS == nil {
		rps := 1.0
		c.Server.RateLimit.RPS = &rps
	}
	if c.Server.RateLimit.Burst == 0 {
		c.Server.RateLimit.Burst = 5
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.Port == 0 {
		switch c.Database.Driver {
		case "postgres":
			c.Database.Port = 5432
		case "mysql":
			c.Database.Port = 3306
		}
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://openrouter.ai/api/v1"
	}
	if c.LLM.Title == "" {
		c.LLM.Title = "Requirement Analyzer"
	}
	if c.LLM.Temperature == nil {
		temp := float32(0.5)
		c.LLM.Temperature = &temp
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 6000
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 90 * time.Second
	}

	if c.Minio.BucketName == "" {
		c.Minio.BucketName = "raw-outputs"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tags; an empty model list is filled with
// defaults by the caller, so it is only validated when set.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fe := verrs[0]
			return fmt.Errorf("config: %s failed %q (%s)", fe.Namespace(), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a lib/pq URL DSN
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.Name,
		RawQuery: url.Values{"sslmode": {c.Database.SSLMode}}.Encode(),
	}
	return u.String()
}
