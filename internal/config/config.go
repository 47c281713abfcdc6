// Package config carga la configuración del servicio: YAML + .env
// (godotenv) + overrides por variables de entorno.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/eventgate/internal/session"
)

type Config struct {
	App struct {
		// dev | staging | prod. Es el tag de entorno que viaja en cada
		// sesión emitida.
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Storage struct {
		// memory | pg
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis
		Driver string `yaml:"driver"`
		Redis  struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Session struct {
		// Secret de firma activo. Mínimo 32 bytes; un secret corto o
		// ausente es error fatal al arrancar.
		Secret string `yaml:"secret"`

		// PreviousSecret habilita la ventana de rotación dual-secret.
		PreviousSecret string `yaml:"previous_secret"`

		TTL          string `yaml:"ttl"` // default 2160h (90d)
		CookieName   string `yaml:"cookie_name"`
		CookieDomain string `yaml:"cookie_domain"`
		Secure       bool   `yaml:"secure"`
	} `yaml:"session"`

	Rate struct {
		Enabled bool `yaml:"enabled"`

		Register struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"register"`

		Convert struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"convert"`
	} `yaml:"rate"`

	SMTP struct {
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		Username           string `yaml:"username"`
		Password           string `yaml:"password"`
		From               string `yaml:"from"`
		TLS                string `yaml:"tls"` // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	} `yaml:"smtp"`

	Email struct {
		BaseURL        string `yaml:"base_url"`
		DebugEchoLinks bool   `yaml:"debug_echo_links"`
	} `yaml:"email"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load lee el YAML, aplica defaults y overrides de entorno, y valida.
// Carga .env antes si existe (dev).
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// sane defaults
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Session.TTL == "" {
		c.Session.TTL = "2160h" // 90d, expiración absoluta
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "egsid"
	}
	if c.Rate.Register.Limit == 0 {
		c.Rate.Register.Limit = 30
	}
	if c.Rate.Register.Window == "" {
		c.Rate.Register.Window = "1m"
	}
	if c.Rate.Convert.Limit == 0 {
		c.Rate.Convert.Limit = 5
	}
	if c.Rate.Convert.Window == "" {
		c.Rate.Convert.Window = "10m"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	applyEnv(&c)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate chequea la configuración crítica. El secret de sesión se valida
// acá: fail fast, nunca degradar en silencio.
func (c *Config) Validate() error {
	if err := session.ValidateSecret(c.Session.Secret); err != nil {
		return fmt.Errorf("session.secret: %w", err)
	}
	if c.Session.PreviousSecret != "" {
		if err := session.ValidateSecret(c.Session.PreviousSecret); err != nil {
			return fmt.Errorf("session.previous_secret: %w", err)
		}
	}
	switch c.App.Env {
	case "dev", "staging", "prod":
	default:
		return fmt.Errorf("app.env must be dev|staging|prod, got %q", c.App.Env)
	}
	if c.Storage.Driver == "pg" && c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn required for pg driver")
	}
	return nil
}

// SessionTTL parsea el TTL configurado.
func (c *Config) SessionTTL() time.Duration {
	d, err := time.ParseDuration(c.Session.TTL)
	if err != nil || d <= 0 {
		return session.DefaultTTL
	}
	return d
}

// Window parsea una ventana de rate limit con fallback.
func Window(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func applyEnv(c *Config) {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("CACHE_DRIVER"); ok {
		c.Cache.Driver = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("SESSION_SECRET"); ok {
		c.Session.Secret = v
	}
	if v, ok := getEnvStr("SESSION_PREVIOUS_SECRET"); ok {
		c.Session.PreviousSecret = v
	}
	if v, ok := getEnvStr("SESSION_TTL"); ok {
		c.Session.TTL = v
	}
	if v, ok := getEnvBool("SESSION_SECURE"); ok {
		c.Session.Secure = v
	}
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	}
	if v, ok := getEnvStr("EMAIL_BASE_URL"); ok {
		c.Email.BaseURL = v
	}
	if v, ok := getEnvBool("EMAIL_DEBUG_ECHO_LINKS"); ok {
		c.Email.DebugEchoLinks = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
}

func getEnvStr(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	return v, ok && v != ""
}

func getEnvInt(key string) (int, bool) {
	if v, ok := getEnvStr(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if v, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b, true
		}
	}
	return false, false
}
