package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort           = 8080
	defaultEnv            = "development"
	defaultBackendURL     = "http://localhost:8081/api"
	defaultBackendTimeout = 15 * time.Second
	defaultRedisHost      = "localhost"
	defaultRedisPort      = 6379
	defaultRedisDB        = 0
	defaultUploadMaxMB    = 10
	defaultCacheTTL       = 30 * time.Second
	defaultSessionTTL     = 12 * time.Hour
	defaultEditorIdleTTL  = 2 * time.Hour
	defaultTaggingModel   = "gpt-4o-mini"
	defaultMaxTags        = 8
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int
	Env            string // "development" | "production"
	Timezone       string
	AllowedOrigins []string
	// JWTSecret verifies backend token signatures when set.
	JWTSecret string
	Paths     RuntimePathsConfig
	Backend   BackendConfig
	Redis     RedisRuntimeConfig
	Upload    UploadConfig
	Cache     CacheConfig
	Session   SessionConfig
	Editor    EditorConfig
	Tagging   TaggingConfig
}

type RuntimePathsConfig struct {
	Logs string
}

type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
	// MediaBaseURL resolves relative media paths returned by the backend.
	MediaBaseURL string
}

type RedisRuntimeConfig struct {
	Enable   bool
	URL      string
	Host     string
	Port     int
	Password string
	DB       int
}

type UploadConfig struct {
	MaxBytes     int64
	AllowedTypes []string
}

type CacheConfig struct {
	TTL time.Duration
}

type SessionConfig struct {
	TTL time.Duration
}

type EditorConfig struct {
	IdleTTL time.Duration
}

// TaggingConfig selects the model provider used when the backend cannot
// suggest tags. An empty provider disables the fallback.
type TaggingConfig struct {
	Provider string
	APIKey   string
	Model    string
	Endpoint string
	MaxTags  int
}

func (c AppConfig) IsProduction() bool { return c.Env == "production" }

type rawAppConfig struct {
	Port           int             `yaml:"port"`
	Env            string          `yaml:"env"`
	Timezone       string          `yaml:"timezone"`
	TZ             string          `yaml:"tz"`
	AllowedOrigins []string        `yaml:"allowed_origins"`
	JWTSecret      string          `yaml:"jwt_secret"`
	Paths          rawPathsConfig  `yaml:"paths"`
	LogDir         string          `yaml:"log_dir"`
	Backend        rawBackend      `yaml:"backend"`
	BackendURL     string          `yaml:"backend_url"`
	Redis          rawRedisConfig  `yaml:"redis"`
	RedisURL       string          `yaml:"redis_url"`
	Upload         rawUploadConfig `yaml:"upload"`
	Cache          rawTTLConfig    `yaml:"cache"`
	Session        rawTTLConfig    `yaml:"session"`
	Editor         rawEditorConfig `yaml:"editor"`
	Tagging        rawTagging      `yaml:"tagging"`
}

type rawPathsConfig struct {
	Logs string `yaml:"logs"`
}

type rawBackend struct {
	BaseURL      string `yaml:"base_url"`
	Timeout      string `yaml:"timeout"`
	MediaBaseURL string `yaml:"media_base_url"`
}

type rawRedisConfig struct {
	Enable   *bool  `yaml:"enable"`
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       *int   `yaml:"db"`
}

type rawUploadConfig struct {
	MaxSizeMB    int      `yaml:"max_size_mb"`
	AllowedTypes []string `yaml:"allowed_types"`
}

type rawTTLConfig struct {
	TTL string `yaml:"ttl"`
}

type rawEditorConfig struct {
	IdleTTL string `yaml:"idle_ttl"`
}

type rawTagging struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Endpoint string `yaml:"endpoint"`
	MaxTags  int    `yaml:"max_tags"`
}

func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	cfg, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("config file %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML content over the defaults and validates the result.
func Parse(content []byte) (*AppConfig, error) {
	cfg := defaultAppConfig()
	raw := rawAppConfig{}
	if len(bytes.TrimSpace(content)) > 0 {
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		if err := decoder.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse: %w", err)
		}
	}

	if err := applyRawAppConfig(&cfg, raw); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Backend: BackendConfig{
			BaseURL: defaultBackendURL,
			Timeout: defaultBackendTimeout,
		},
		Redis: RedisRuntimeConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
			DB:   defaultRedisDB,
		},
		Upload: UploadConfig{
			MaxBytes:     defaultUploadMaxMB << 20,
			AllowedTypes: []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
		},
		Cache:   CacheConfig{TTL: defaultCacheTTL},
		Session: SessionConfig{TTL: defaultSessionTTL},
		Editor:  EditorConfig{IdleTTL: defaultEditorIdleTTL},
		Tagging: TaggingConfig{MaxTags: defaultMaxTags},
	}
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) error {
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.Env); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(raw.Timezone); v != "" {
		cfg.Timezone = v
	}
	if v := strings.TrimSpace(raw.TZ); v != "" {
		cfg.Timezone = v
	}
	if raw.AllowedOrigins != nil {
		cfg.AllowedOrigins = normalizeList(raw.AllowedOrigins)
	}
	if v := strings.TrimSpace(raw.JWTSecret); v != "" {
		cfg.JWTSecret = v
	}
	if v := strings.TrimSpace(raw.Paths.Logs); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.Paths.Logs = v
	}

	if v := strings.TrimSpace(raw.Backend.BaseURL); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := strings.TrimSpace(raw.BackendURL); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := strings.TrimSpace(raw.Backend.MediaBaseURL); v != "" {
		cfg.Backend.MediaBaseURL = v
	}
	if err := applyDuration(&cfg.Backend.Timeout, "backend.timeout", raw.Backend.Timeout); err != nil {
		return err
	}

	if raw.Redis.Enable != nil {
		cfg.Redis.Enable = *raw.Redis.Enable
	}
	if v := strings.TrimSpace(raw.Redis.URL); v != "" {
		cfg.Redis.URL = v
	}
	if v := strings.TrimSpace(raw.RedisURL); v != "" {
		cfg.Redis.URL = v
	}
	if v := strings.TrimSpace(raw.Redis.Host); v != "" {
		cfg.Redis.Host = v
	}
	if raw.Redis.Port != 0 {
		cfg.Redis.Port = raw.Redis.Port
	}
	if v := strings.TrimSpace(raw.Redis.Password); v != "" {
		cfg.Redis.Password = v
	}
	if raw.Redis.DB != nil {
		cfg.Redis.DB = *raw.Redis.DB
	}

	if raw.Upload.MaxSizeMB != 0 {
		cfg.Upload.MaxBytes = int64(raw.Upload.MaxSizeMB) << 20
	}
	if raw.Upload.AllowedTypes != nil {
		cfg.Upload.AllowedTypes = normalizeList(raw.Upload.AllowedTypes)
	}

	if err := applyDuration(&cfg.Cache.TTL, "cache.ttl", raw.Cache.TTL); err != nil {
		return err
	}
	if err := applyDuration(&cfg.Session.TTL, "session.ttl", raw.Session.TTL); err != nil {
		return err
	}
	if err := applyDuration(&cfg.Editor.IdleTTL, "editor.idle_ttl", raw.Editor.IdleTTL); err != nil {
		return err
	}

	cfg.Tagging.Provider = strings.ToLower(strings.TrimSpace(raw.Tagging.Provider))
	cfg.Tagging.APIKey = strings.TrimSpace(raw.Tagging.APIKey)
	cfg.Tagging.Model = strings.TrimSpace(raw.Tagging.Model)
	cfg.Tagging.Endpoint = strings.TrimRight(strings.TrimSpace(raw.Tagging.Endpoint), "/")
	if raw.Tagging.MaxTags != 0 {
		cfg.Tagging.MaxTags = raw.Tagging.MaxTags
	}

	cfg.Env = normalizeEnv(cfg.Env)
	cfg.Backend = normalizeBackendConfig(cfg.Backend)
	cfg.Redis = normalizeRedisConfig(cfg.Redis)
	cfg.Tagging = normalizeTaggingConfig(cfg.Tagging)
	return nil
}

func applyDuration(dst *time.Duration, key, raw string) error {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = d
	return nil
}

func validate(cfg AppConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", cfg.Port)
	}
	if cfg.Redis.Port < 1 || cfg.Redis.Port > 65535 {
		return fmt.Errorf("invalid redis.port %d, expected 1-65535", cfg.Redis.Port)
	}
	if cfg.Redis.DB < 0 {
		return fmt.Errorf("invalid redis.db %d, expected >= 0", cfg.Redis.DB)
	}
	if !isHTTPURL(cfg.Backend.BaseURL) {
		return fmt.Errorf("invalid backend.base_url %q, expected an http(s) URL", cfg.Backend.BaseURL)
	}
	if cfg.Backend.MediaBaseURL != "" && !isHTTPURL(cfg.Backend.MediaBaseURL) {
		return fmt.Errorf("invalid backend.media_base_url %q, expected an http(s) URL", cfg.Backend.MediaBaseURL)
	}
	for key, d := range map[string]time.Duration{
		"backend.timeout": cfg.Backend.Timeout,
		"cache.ttl":       cfg.Cache.TTL,
		"session.ttl":     cfg.Session.TTL,
		"editor.idle_ttl": cfg.Editor.IdleTTL,
	} {
		if d <= 0 {
			return fmt.Errorf("invalid %s %s, expected a positive duration", key, d)
		}
	}
	if cfg.Upload.MaxBytes <= 0 {
		return fmt.Errorf("invalid upload.max_size_mb, expected > 0")
	}
	switch cfg.Tagging.Provider {
	case "", TaggingOpenAI, TaggingAnthropic:
	default:
		return fmt.Errorf("invalid tagging.provider %q, expected %q or %q", cfg.Tagging.Provider, TaggingOpenAI, TaggingAnthropic)
	}
	if cfg.Tagging.Provider != "" && cfg.Tagging.APIKey == "" {
		return fmt.Errorf("tagging.api_key is required when tagging.provider is set")
	}
	if cfg.Tagging.MaxTags < 1 {
		return fmt.Errorf("invalid tagging.max_tags %d, expected >= 1", cfg.Tagging.MaxTags)
	}
	return nil
}
