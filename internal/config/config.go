// Package config loads the broker's configuration as a plain value object
// (spec §6.4); there is no package-level global configuration anywhere in
// this module.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/coachpo/logbroker/internal/svcauth"
)

// Config is the broker's configuration value object, loaded once at
// startup and passed explicitly to every constructor that needs it.
type Config struct {
	BindAddr            string        `yaml:"bindAddr"`
	CORSOrigins         []string      `yaml:"corsOrigins"`
	HeartbeatInterval   time.Duration `yaml:"heartbeatInterval"`
	QueueCapacity       int           `yaml:"queueCapacity"`
	ServiceTokens       svcauth.TokenMap
	PublishRatePerToken float64 `yaml:"publishRatePerToken"`
	PublishBurst        int     `yaml:"publishBurst"`
}

// file mirrors Config's YAML-serializable fields; ServiceTokens is loaded
// from env only (never committed to a config file) since it carries
// credentials.
type file struct {
	BindAddr            string   `yaml:"bindAddr"`
	CORSOrigins         []string `yaml:"corsOrigins"`
	HeartbeatInterval   string   `yaml:"heartbeatInterval"`
	QueueCapacity       int      `yaml:"queueCapacity"`
	PublishRatePerToken float64  `yaml:"publishRatePerToken"`
	PublishBurst        int      `yaml:"publishBurst"`
}

const (
	defaultBindAddr            = ":8080"
	defaultHeartbeatInterval   = 25 * time.Second
	defaultQueueCapacity       = 256
	defaultPublishRatePerToken = 50.0
	defaultPublishBurst        = 100
)

// Default returns the configuration spec §6.4 describes as defaults, with
// no CORS origins and an empty service-token map.
func Default() Config {
	return Config{
		BindAddr:            defaultBindAddr,
		HeartbeatInterval:   defaultHeartbeatInterval,
		QueueCapacity:       defaultQueueCapacity,
		ServiceTokens:       svcauth.TokenMap{},
		PublishRatePerToken: defaultPublishRatePerToken,
		PublishBurst:        defaultPublishBurst,
	}
}

// LoadOrDefault loads configuration from path if present (and readable),
// layering environment variable overrides on top, and otherwise returns
// Default() with the same overrides applied. A missing file is not an
// error: it mirrors the teacher's LoadOrDefault pattern
// (internal/config/app.go) of treating "no config file" as a supported
// deployment mode.
func LoadOrDefault(path string) (cfg Config, loadedFromFile bool, err error) {
	cfg = Default()

	if path != "" {
		data, readErr := os.ReadFile(path) // #nosec G304 -- path is operator-controlled.
		if readErr == nil {
			var f file
			if err := yaml.Unmarshal(data, &f); err != nil {
				return Config{}, false, err
			}
			applyFile(&cfg, f)
			loadedFromFile = true
		} else if !os.IsNotExist(readErr) {
			return Config{}, false, readErr
		}
	}

	applyEnv(&cfg)
	return cfg, loadedFromFile, nil
}

func applyFile(cfg *Config, f file) {
	if f.BindAddr != "" {
		cfg.BindAddr = f.BindAddr
	}
	if len(f.CORSOrigins) > 0 {
		cfg.CORSOrigins = f.CORSOrigins
	}
	if f.HeartbeatInterval != "" {
		if d, err := time.ParseDuration(f.HeartbeatInterval); err == nil {
			cfg.HeartbeatInterval = d
		}
	}
	if f.QueueCapacity > 0 {
		cfg.QueueCapacity = f.QueueCapacity
	}
	if f.PublishRatePerToken > 0 {
		cfg.PublishRatePerToken = f.PublishRatePerToken
	}
	if f.PublishBurst > 0 {
		cfg.PublishBurst = f.PublishBurst
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LOGBROKER_BIND_ADDR"); v != "" {
		cfg.BindAddr = v
	}
	if v := os.Getenv("LOGBROKER_CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitComma(v)
	}
	if v := os.Getenv("LOGBROKER_HEARTBEAT_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HeartbeatInterval = d
		}
	}
	if v := os.Getenv("LOGBROKER_QUEUE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.QueueCapacity = n
		}
	}
	if v := os.Getenv("LOGBROKER_SERVICE_TOKENS"); v != "" {
		cfg.ServiceTokens = svcauth.ParseTokenMap(v)
	}
	if v := os.Getenv("LOGBROKER_PUBLISH_RATE_PER_TOKEN"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.PublishRatePerToken = f
		}
	}
	if v := os.Getenv("LOGBROKER_PUBLISH_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PublishBurst = n
		}
	}
}

// AllowedOrigin reports the Access-Control-Allow-Origin value to use for a
// request with the given Origin header, or "" if the origin is not
// permitted. A single "*" entry permits every origin verbatim.
func (c Config) AllowedOrigin(requestOrigin string) string {
	for _, o := range c.CORSOrigins {
		if o == "*" {
			return "*"
		}
		if o == requestOrigin {
			return requestOrigin
		}
	}
	return ""
}

func splitComma(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
