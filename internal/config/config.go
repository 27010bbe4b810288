package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env      string `yaml:"app_env"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Storage struct {
		// memory | postgres
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"storage"`

	TokenStore struct {
		// memory | redis
		Driver string `yaml:"driver"`
		Redis  struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"token_store"`

	JWT struct {
		Issuer     string `yaml:"issuer"`
		Alg        string `yaml:"alg"`
		KeyFile    string `yaml:"key_file"` // PEM con la clave privada
		Kid        string `yaml:"kid"`
		AccessTTL  string `yaml:"access_ttl"`
		RefreshTTL string `yaml:"refresh_ttl"`
		CodeTTL    string `yaml:"code_ttl"`
	} `yaml:"jwt"`

	Refresh struct {
		Rotate *bool `yaml:"rotate"` // default true
	} `yaml:"refresh"`

	Rate struct {
		Enabled bool   `yaml:"enabled"`
		Max     int    `yaml:"max"`
		Window  string `yaml:"window"`
	} `yaml:"rate"`
}

// Load lee el YAML (si existe) y aplica overrides por variables de entorno.
// Un path vacío o inexistente no es error: quedan defaults + env.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		if b, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(b, cfg); err != nil {
				return nil, err
			}
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setStr(&c.App.Env, "APP_ENV")
	setStr(&c.App.LogLevel, "LOG_LEVEL")
	setStr(&c.Server.Addr, "ADDR")
	setStr(&c.Storage.Driver, "STORAGE_DRIVER")
	setStr(&c.Storage.DSN, "STORAGE_DSN")
	setStr(&c.TokenStore.Driver, "TOKEN_STORE_DRIVER")
	setStr(&c.TokenStore.Redis.Addr, "REDIS_ADDR")
	setStr(&c.TokenStore.Redis.Prefix, "REDIS_PREFIX")
	setInt(&c.TokenStore.Redis.DB, "REDIS_DB")
	setStr(&c.JWT.Issuer, "JWT_ISSUER")
	setStr(&c.JWT.Alg, "JWT_ALG")
	setStr(&c.JWT.KeyFile, "JWT_KEY_FILE")
	setStr(&c.JWT.Kid, "JWT_KID")
	setStr(&c.JWT.AccessTTL, "JWT_ACCESS_TTL")
	setStr(&c.JWT.RefreshTTL, "JWT_REFRESH_TTL")
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.TokenStore.Driver == "" {
		c.TokenStore.Driver = "memory"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "http://localhost:8080"
	}
	if c.JWT.Alg == "" {
		c.JWT.Alg = "RS256"
	}
	if c.Rate.Max == 0 {
		c.Rate.Max = 60
	}
	if c.Rate.Window == "" {
		c.Rate.Window = "1m"
	}
}

// AccessTTL parsea jwt.access_ttl con default 15m.
func (c *Config) AccessTTL() time.Duration { return durOr(c.JWT.AccessTTL, 15*time.Minute) }

// RefreshTTL parsea jwt.refresh_ttl con default 30d.
func (c *Config) RefreshTTL() time.Duration { return durOr(c.JWT.RefreshTTL, 30*24*time.Hour) }

// CodeTTL parsea jwt.code_ttl con default 5m.
func (c *Config) CodeTTL() time.Duration { return durOr(c.JWT.CodeTTL, 5*time.Minute) }

// RateWindow parsea rate.window con default 1m.
func (c *Config) RateWindow() time.Duration { return durOr(c.Rate.Window, time.Minute) }

// RotateRefresh: default true si no está seteado.
func (c *Config) RotateRefresh() bool {
	if c.Refresh.Rotate == nil {
		return true
	}
	return *c.Refresh.Rotate
}

func durOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
