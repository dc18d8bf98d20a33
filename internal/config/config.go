// config - загрузка конфигурации metrics-tracker (дашборд и CLI).
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
//
// ENV всегда накладывается поверх значений из файла.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Виды хранилища учётных данных.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	API      APIConfig     `yaml:"api"`
	HTTP     HTTPConfig    `yaml:"http"`
	Metrics  MetricsConfig `yaml:"metrics"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
	Store    StoreConfig   `yaml:"store"`
	Routes   RoutesConfig  `yaml:"routes"`
}

// APIConfig - upstream REST API трекера.
type APIConfig struct {
	BaseURL         string   `yaml:"base_url"         env:"API_BASE_URL"         env-default:"http://127.0.0.1:8000/api"`
	UserAgent       string   `yaml:"user_agent"       env:"API_USER_AGENT"       env-default:"metrics-tracker/1.0"`
	PublicEndpoints []string `yaml:"public_endpoints" env:"API_PUBLIC_ENDPOINTS" env-separator:"," env-default:"/register/,/login/,/token/,/verify-email/"`
}

// Origin - scheme://host базового URL; ключ, к которому привязаны учётные данные.
func (a APIConfig) Origin() (string, error) {
	u, err := url.Parse(a.BaseURL)
	if err != nil {
		return "", fmt.Errorf("api.base_url: %w", err)
	}

	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("api.base_url %q: scheme and host are required", a.BaseURL)
	}

	return u.Scheme + "://" + u.Host, nil
}

// HTTPConfig - слушатель дашборда.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"127.0.0.1"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"3000"`
}

func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// MetricsConfig - отдельный HTTP для Prometheus.
type MetricsConfig struct {
	Host string `yaml:"host" env:"METRICS_HOST" env-default:"127.0.0.1"`
	Port string `yaml:"port" env:"METRICS_PORT" env-default:"3085"`
}

func (m MetricsConfig) Addr() string { return net.JoinHostPort(m.Host, m.Port) }

// TimeoutConfig - таймауты исходящих запросов, обновления токена и остановки.
type TimeoutConfig struct {
	Request  time.Duration `yaml:"request"  env:"TIMEOUT_REQUEST"  env-default:"15s"`
	Refresh  time.Duration `yaml:"refresh"  env:"TIMEOUT_REFRESH"  env-default:"10s"`
	Shutdown time.Duration `yaml:"shutdown" env:"TIMEOUT_SHUTDOWN" env-default:"10s"`
}

// StoreConfig - где живёт пара access/refresh.
type StoreConfig struct {
	Kind       string `yaml:"kind"       env:"STORE_KIND"       env-default:"file"`
	Dir        string `yaml:"dir"        env:"STORE_DIR"`
	Passphrase string `yaml:"passphrase" env:"STORE_PASSPHRASE"`
	RedisURL   string `yaml:"redis_url"  env:"STORE_REDIS_URL"  env-default:"redis://127.0.0.1:6379/0"`
	Prefix     string `yaml:"prefix"     env:"STORE_PREFIX"     env-default:"metrics-tracker:session:"`
}

// RoutesConfig - цели перенаправлений.
type RoutesConfig struct {
	LoginPath   string `yaml:"login_path"   env:"ROUTES_LOGIN_PATH"   env-default:"/login"`
	DefaultPath string `yaml:"default_path" env:"ROUTES_DEFAULT_PATH" env-default:"/dashboard"`
}

// Validate проверяет согласованность значений после загрузки.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.API.Origin(); err != nil {
		errs = append(errs, err)
	}

	switch c.Store.Kind {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		errs = append(errs, fmt.Errorf("store.kind %q: want memory|file|redis", c.Store.Kind))
	}

	if c.Timeouts.Refresh <= 0 {
		errs = append(errs, errors.New("timeouts.refresh must be positive"))
	}

	for _, p := range []string{c.Routes.LoginPath, c.Routes.DefaultPath} {
		if !strings.HasPrefix(p, "/") {
			errs = append(errs, fmt.Errorf("route %q must start with '/'", p))
		}
	}

	return errors.Join(errs...)
}

// MustLoad - паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config

	src, err := resolve(path)
	if err != nil {
		return nil, err
	}

	if src != "" {
		if err := cleanenv.ReadConfig(src, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %q: %w", src, err)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		if src == "" {
			return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
		}
		return nil, fmt.Errorf("failed to overlay env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// resolve выбирает файл по приоритету. Пустая строка - только ENV.
func resolve(path string) (string, error) {
	explicit := path
	if explicit == "" {
		explicit = os.Getenv("CONFIG_PATH")
	}

	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %q stat failed: %w", explicit, err)
		}
		return explicit, nil
	}

	if _, err := os.Stat("local.yaml"); err == nil {
		return "local.yaml", nil
	}

	return "", nil
}
