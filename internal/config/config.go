// config - источник загрузки конфигурации для web-gateway.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
//
// Секции ролей (user/admin) читают ENV с префиксами USER_ и ADMIN_.
// Дефолты ролей заносятся в структуру до чтения файла и ENV: ключ, заданный
// явно (в том числе пустой admin.prefix), их перекрывает.
package config

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig     `yaml:"http"`
	Backend  BackendConfig  `yaml:"backend"`
	Renderer RendererConfig `yaml:"renderer"`
	Cookies  CookieConfig   `yaml:"cookies"`
	User     RoleConfig     `yaml:"user" env-prefix:"USER_"`
	Admin    RoleConfig     `yaml:"admin" env-prefix:"ADMIN_"`
	Locale   LocaleConfig   `yaml:"locale"`
	Timeouts TimeoutConfig  `yaml:"timeouts"`
}

// TimeoutConfig — таймауты: общий на входящий запрос и на каждый вызов бэкенда.
type TimeoutConfig struct {
	Service  time.Duration `yaml:"service" env:"SERVICE" env-default:"15s"`
	Upstream time.Duration `yaml:"upstream" env:"UPSTREAM" env-default:"10s"`
}

// HTTPConfig — публичный HTTP-сервер шлюза.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// BackendConfig — REST-бэкенд (auth и ресурсы).
type BackendConfig struct {
	URL          string `yaml:"url" env:"BACKEND_URL" env-default:"http://localhost:3000"`
	UserAgent    string `yaml:"user_agent" env:"BACKEND_USER_AGENT" env-default:"web-gateway"`
	MaxBodyBytes int64  `yaml:"max_body_bytes" env:"BACKEND_MAX_BODY_BYTES" env-default:"10485760"`
}

// RendererConfig — сервер рендеринга страниц.
type RendererConfig struct {
	URL string `yaml:"url" env:"RENDERER_URL" env-default:"http://localhost:3001"`
}

// CookieConfig — общие атрибуты cookie токенов и языка.
// Cookie токенов всегда HttpOnly. Insecure снимает флаг Secure (локальная
// разработка без TLS).
type CookieConfig struct {
	Domain   string `yaml:"domain" env:"COOKIE_DOMAIN"`
	Insecure bool   `yaml:"insecure" env:"COOKIE_INSECURE"`
	SameSite string `yaml:"same_site" env:"COOKIE_SAME_SITE" env-default:"lax"`
}

func (c CookieConfig) Secure() bool { return !c.Insecure }

// SameSiteMode переводит строковое значение в http.SameSite (по умолчанию Lax).
func (c CookieConfig) SameSiteMode() http.SameSite {
	switch strings.ToLower(c.SameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// RoleConfig — параметры сессии роли.
type RoleConfig struct {
	// Prefix — префикс путей бэкенда роли ("" для user, "/admin" для admin).
	Prefix     string        `yaml:"prefix" env:"PREFIX"`
	LoginPath  string        `yaml:"login_path" env:"LOGIN_PATH"`
	AccessTTL  time.Duration `yaml:"access_ttl" env:"ACCESS_TTL"`
	RefreshTTL time.Duration `yaml:"refresh_ttl" env:"REFRESH_TTL"`
}

// LocaleConfig — нормализация языка.
type LocaleConfig struct {
	Exclude []string `yaml:"exclude" env:"LOCALE_EXCLUDE" env-default:"api,_next/static,_next/image,favicon.ico"`
}

// Дефолты ролей.
var (
	defaultUser = RoleConfig{
		Prefix:     "",
		LoginPath:  "/login",
		AccessTTL:  24 * time.Hour,
		RefreshTTL: 7 * 24 * time.Hour,
	}
	defaultAdmin = RoleConfig{
		Prefix:     "/admin",
		LoginPath:  "/admin/login",
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	}
)

// withDefaults дозаполняет обнулённые поля роли. Prefix не трогается: пустой
// префикс — допустимое значение.
func (r *RoleConfig) withDefaults(def RoleConfig) {
	if r.LoginPath == "" {
		r.LoginPath = def.LoginPath
	}
	if r.AccessTTL == 0 {
		r.AccessTTL = def.AccessTTL
	}
	if r.RefreshTTL == 0 {
		r.RefreshTTL = def.RefreshTTL
	}
	r.Prefix = strings.TrimRight(r.Prefix, "/")
}

// MustLoad — паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)

	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	cfg := Config{User: defaultUser, Admin: defaultAdmin}

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return finalize(&cfg)
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		if err := cleanenv.ReadConfig("local.yaml", &cfg); err != nil {
			return nil, fmt.Errorf("failed to read local.yaml: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return finalize(&cfg)
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return finalize(&cfg)
}

// finalize применяет дефолты ролей и проверяет обязательные поля.
func finalize(cfg *Config) (*Config, error) {
	cfg.User.withDefaults(defaultUser)
	cfg.Admin.withDefaults(defaultAdmin)
	cfg.Backend.URL = strings.TrimRight(cfg.Backend.URL, "/")

	if cfg.Backend.URL == "" {
		return nil, fmt.Errorf("backend url is required")
	}
	if cfg.Renderer.URL == "" {
		return nil, fmt.Errorf("renderer url is required")
	}

	return cfg, nil
}
