// Package config loads toolchat settings from defaults, an optional YAML file,
// a .env file and TOOLCHAT_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
	"github.com/spf13/viper"

	"github.com/petasbytes/toolchat/internal/connector"
)

// EnvPrefix namespaces environment overrides, e.g. TOOLCHAT_MODEL_NAME.
const EnvPrefix = "TOOLCHAT"

type Config struct {
	LogLevel   string                     `mapstructure:"log_level"`
	LogFormat  string                     `mapstructure:"log_format"`
	Model      ModelConfig                `mapstructure:"model"`
	History    HistoryConfig              `mapstructure:"history"`
	Tools      ToolsConfig                `mapstructure:"tools"`
	Providers  []connector.ProviderConfig `mapstructure:"providers"`
	Telemetry  TelemetryConfig            `mapstructure:"telemetry"`
	HTTP       HTTPConfig                 `mapstructure:"http"`
	Transcript TranscriptConfig           `mapstructure:"transcript"`
}

type ModelConfig struct {
	Provider     string        `mapstructure:"provider"`
	Name         string        `mapstructure:"name"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Timeout      time.Duration `mapstructure:"timeout"`
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	SystemPrompt string        `mapstructure:"system_prompt"`
}

type HistoryConfig struct {
	Mode        string `mapstructure:"mode"`
	TokenBudget int    `mapstructure:"token_budget"`
}

type ToolsConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	Parallelism     int           `mapstructure:"parallelism"`
	OnProviderError string        `mapstructure:"on_provider_error"`
}

type TelemetryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type TranscriptConfig struct {
	Path string `mapstructure:"path"`
}

// DefaultProviders is the single local arithmetic server spawned over stdio.
func DefaultProviders() []connector.ProviderConfig {
	return []connector.ProviderConfig{{Name: "math", Transport: connector.TransportStdio, Command: "mathserver"}}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("model.provider", "anthropic")
	v.SetDefault("model.name", "")
	v.SetDefault("model.max_tokens", 1024)
	v.SetDefault("model.timeout", 60*time.Second)
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.base_url", "")
	v.SetDefault("model.system_prompt", "")
	v.SetDefault("history.mode", "latest")
	v.SetDefault("history.token_budget", 8000)
	v.SetDefault("tools.timeout", 30*time.Second)
	v.SetDefault("tools.parallelism", 1)
	v.SetDefault("tools.on_provider_error", "abort")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.dir", ".toolchat")
	v.SetDefault("http.addr", "")
	v.SetDefault("transcript.path", "toolchat-transcript.json")
}

// Load reads path (optional) and returns a validated Config. A .env file in the
// working directory is loaded first; variables already set are not replaced.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if !v.IsSet("providers") {
		cfg.Providers = DefaultProviders()
	}

	normalizeProviderKeys(cfg.Providers)
	expandValue(reflect.ValueOf(&cfg))

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if !lo.Contains([]string{"anthropic", "openai"}, strings.ToLower(c.Model.Provider)) {
		errs = append(errs, fmt.Errorf("model.provider must be anthropic or openai, got %q", c.Model.Provider))
	}
	if c.Model.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("model.max_tokens must be positive"))
	}
	if c.Model.Timeout < 0 || c.Tools.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeouts must not be negative"))
	}
	if !lo.Contains([]string{"latest", "full"}, c.History.Mode) {
		errs = append(errs, fmt.Errorf("history.mode must be latest or full, got %q", c.History.Mode))
	}
	if c.History.Mode == "full" && c.History.TokenBudget <= 0 {
		errs = append(errs, fmt.Errorf("history.token_budget must be positive in full mode"))
	}
	if c.Tools.Parallelism < 1 {
		errs = append(errs, fmt.Errorf("tools.parallelism must be at least 1"))
	}
	if !lo.Contains([]string{"abort", "skip"}, c.Tools.OnProviderError) {
		errs = append(errs, fmt.Errorf("tools.on_provider_error must be abort or skip, got %q", c.Tools.OnProviderError))
	}
	for i, p := range c.Providers {
		if strings.TrimSpace(p.Name) == "" {
			errs = append(errs, fmt.Errorf("providers[%d].name is required", i))
		}
	}
	dups := lo.FindDuplicates(lo.Map(c.Providers, func(p connector.ProviderConfig, _ int) string { return p.Name }))
	if len(dups) > 0 {
		errs = append(errs, fmt.Errorf("duplicate provider names: %s", strings.Join(dups, ", ")))
	}
	return errors.Join(errs...)
}

// FailurePolicy maps tools.on_provider_error to the connector policy.
func (c *Config) FailurePolicy() connector.FailurePolicy {
	if c.Tools.OnProviderError == "skip" {
		return connector.FailSkip
	}
	return connector.FailAbort
}

// normalizeProviderKeys undoes viper's lower-casing of map keys: environment
// variable names are upper-cased and header names canonicalized.
func normalizeProviderKeys(providers []connector.ProviderConfig) {
	for i := range providers {
		if env := providers[i].Env; env != nil {
			providers[i].Env = lo.MapKeys(env, func(_ string, k string) string { return strings.ToUpper(k) })
		}
		if h := providers[i].Headers; h != nil {
			providers[i].Headers = lo.MapKeys(h, func(_ string, k string) string { return http.CanonicalHeaderKey(k) })
		}
	}
}

// expandValue replaces ${VAR} references in every string field, slice element
// and map[string]string value.
func expandValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		expandValue(v.Elem())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			expandValue(v.Index(i))
		}
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String && v.Type().Elem().Kind() == reflect.String {
			for _, key := range v.MapKeys() {
				v.SetMapIndex(key, reflect.ValueOf(os.ExpandEnv(v.MapIndex(key).String())))
			}
		}
	}
}
