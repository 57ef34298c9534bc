package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Server struct {
	Addr           string `yaml:"addr"`
	ReadTimeoutMS  int    `yaml:"read_timeout_ms"`
	WriteTimeoutMS int    `yaml:"write_timeout_ms"`
	IdleTimeoutMS  int    `yaml:"idle_timeout_ms"`
	MaxBodyBytes   int64  `yaml:"max_body_bytes"`
}

type Observability struct {
	LogLevel       string `yaml:"log_level"`       // "debug","info","warn","error"
	PrometheusPath string `yaml:"prometheus_path"` // e.g. "/metrics"
}

type RateLimit struct {
	MaxCost       int      `yaml:"max_cost"`
	WindowSeconds int      `yaml:"window_seconds"`
	Disabled      bool     `yaml:"disabled"`
	Whitelist     []string `yaml:"whitelist"`
	Store         string   `yaml:"store"` // "memory" or "redis"
	RedisAddr     string   `yaml:"redis_addr"`
}

type Auth struct {
	BotToken      string   `yaml:"bot_token"`
	MaxAgeSeconds int      `yaml:"max_age_seconds"`
	PublicPaths   []string `yaml:"public_paths"`
}

type Root struct {
	Server        Server        `yaml:"server"`
	Observability Observability `yaml:"observability"`
	RateLimit     RateLimit     `yaml:"rate_limit"`
	Auth          Auth          `yaml:"auth"`
}

func (s Server) ReadTimeout() time.Duration {
	if s.ReadTimeoutMS == 0 {
		return 5 * time.Second
	}
	return time.Duration(s.ReadTimeoutMS) * time.Millisecond
}

func (s Server) WriteTimeout() time.Duration {
	if s.WriteTimeoutMS == 0 {
		return 10 * time.Second
	}
	return time.Duration(s.WriteTimeoutMS) * time.Millisecond
}

func (s Server) IdleTimeout() time.Duration {
	if s.IdleTimeoutMS == 0 {
		return 60 * time.Second
	}
	return time.Duration(s.IdleTimeoutMS) * time.Millisecond
}

func (s Server) MaxBody() int64 {
	if s.MaxBodyBytes == 0 {
		return 10 << 20
	}
	return s.MaxBodyBytes
} // default 10MB

func (r RateLimit) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// WhitelistSet returns the bypass identifiers as a lookup set.
func (r RateLimit) WhitelistSet() map[string]struct{} {
	set := make(map[string]struct{}, len(r.Whitelist))
	for _, ip := range r.Whitelist {
		if ip = strings.TrimSpace(ip); ip != "" {
			set[ip] = struct{}{}
		}
	}
	return set
}

func (a Auth) MaxAge() time.Duration {
	return time.Duration(a.MaxAgeSeconds) * time.Second
}

func (a Auth) PublicPathSet() map[string]struct{} {
	set := make(map[string]struct{}, len(a.PublicPaths))
	for _, p := range a.PublicPaths {
		if p = strings.TrimSpace(p); p != "" {
			set[p] = struct{}{}
		}
	}
	return set
}

func Load(path string) (*Root, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Root
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	applyEnv(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Root) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = "info"
	}
	if cfg.Observability.PrometheusPath == "" {
		cfg.Observability.PrometheusPath = "/metrics"
	}
	if cfg.RateLimit.MaxCost <= 0 {
		cfg.RateLimit.MaxCost = 200
	}
	if cfg.RateLimit.WindowSeconds <= 0 {
		cfg.RateLimit.WindowSeconds = 60
	}
	if cfg.RateLimit.Store == "" {
		cfg.RateLimit.Store = "memory"
	}
	if cfg.Auth.MaxAgeSeconds <= 0 {
		cfg.Auth.MaxAgeSeconds = 86400
	}
	if len(cfg.Auth.PublicPaths) == 0 {
		cfg.Auth.PublicPaths = []string{"/api/config"}
	}
}

// applyEnv layers the environment surface over the file: the bypass
// switches are operational toggles flipped without a config edit.
func applyEnv(cfg *Root) {
	if v := os.Getenv("DISABLE_RATE_LIMIT"); strings.EqualFold(v, "true") {
		cfg.RateLimit.Disabled = true
	}
	if v := os.Getenv("RATE_LIMIT_WHITELIST"); v != "" {
		for _, ip := range strings.Split(v, ",") {
			if ip = strings.TrimSpace(ip); ip != "" {
				cfg.RateLimit.Whitelist = append(cfg.RateLimit.Whitelist, ip)
			}
		}
	}
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		cfg.Auth.BotToken = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RateLimit.RedisAddr = v
	}
}
