package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"tickagent/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const EnvPrefix = "TICKAGENT"

// envAliases maps config keys to the legacy variable names operators already
// export. The prefixed name (TICKAGENT_AUTH_API_KEY, ...) always wins.
var envAliases = map[string][]string{
	"auth.api_key":       {"API_KEY"},
	"ai.api_key":         {"OPENAI_API_KEY", "CHATGPT_API_KEY", "GEMINI_API_KEY"},
	"ai.model":           {"OPENAI_MODEL"},
	"mothership.url":     {"MOTHERSHIP_URL"},
	"mothership.api_key": {"MOTHERSHIP_X_API_KEY"},
}

var boundKeys = []string{
	"app.env", "app.log_level", "app.http_addr", "app.log_path", "app.llm_log_path", "app.llm_dump_payload",
	"auth.api_key", "auth.header",
	"http.rate_limit_per_sec", "http.rate_burst",
	"ai.provider", "ai.api_key", "ai.api_url", "ai.model", "ai.timeout_seconds", "ai.temperature", "ai.prompt_path",
	"ai.breaker_threshold", "ai.breaker_cooldown_seconds",
	"mothership.url", "mothership.api_key", "mothership.timeout_seconds",
	"store.positions_path", "store.history_path", "store.audit_db_path",
}

// LoadDotEnv exports variables from the given .env files into the process
// environment. Missing files are not an error; existing variables are kept.
func LoadDotEnv(paths ...string) {
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Debugf("no env file at %s, using process environment", p)
				continue
			}
			logger.Warnf("failed to read env file %s: %v", p, err)
		}
	}
}

// Load reads the YAML file at path (optional: a missing file falls back to
// environment and defaults), overlays environment variables, applies
// defaults for unset keys and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := bindEnv(v); err != nil {
		return nil, err
	}
	if strings.TrimSpace(path) != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
			}
		} else if errors.Is(err, fs.ErrNotExist) {
			logger.Warnf("config file %s not found, using environment and defaults", path)
		} else {
			return nil, fmt.Errorf("stat config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	setKeys := make(keySet)
	collectSettingsKeys(v.AllSettings(), setKeys)
	cfg.normalize()
	cfg.applyDefaults(setKeys)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func bindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range boundKeys {
		names := []string{key, EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}
		names = append(names, envAliases[key]...)
		if err := v.BindEnv(names...); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) normalize() {
	c.Auth.APIKey = strings.TrimSpace(c.Auth.APIKey)
	c.Auth.Header = strings.TrimSpace(c.Auth.Header)
	c.AI.APIKey = strings.TrimSpace(c.AI.APIKey)
	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
	c.Mothership.APIKey = strings.TrimSpace(c.Mothership.APIKey)
	c.Mothership.URL = strings.TrimRight(strings.TrimSpace(c.Mothership.URL), "/")
}

func collectSettingsKeys(settings map[string]any, dest keySet) {
	if dest == nil || len(settings) == 0 {
		return
	}
	flattenConfigKeys("", settings, dest)
}

func flattenConfigKeys(prefix string, node any, dest keySet) {
	switch val := node.(type) {
	case map[string]any:
		for k, child := range val {
			next := strings.ToLower(strings.TrimSpace(k))
			if next == "" {
				continue
			}
			if prefix != "" {
				next = prefix + "." + next
			}
			flattenConfigKeys(next, child, dest)
		}
	case nil:
	default:
		if prefix != "" {
			dest.mark(prefix)
		}
	}
}

// WatchLogLevel re-reads path whenever it changes on disk and reports the
// current app.log_level to onChange. Nothing else is reloaded at runtime.
func WatchLogLevel(path string, onChange func(level string)) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("watch requires a config path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config for watch failed: %w", err)
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
			return
		}
		level := v.GetString("app.log_level")
		logger.Infof("config change detected (%s), log level=%q", evt.Name, level)
		if onChange != nil {
			onChange(level)
		}
	})
	v.WatchConfig()
	return nil
}

// Redacted returns a copy safe to print at startup.
func (c Config) Redacted() Config {
	c.Auth.APIKey = logger.Mask(c.Auth.APIKey)
	c.AI.APIKey = logger.Mask(c.AI.APIKey)
	c.Mothership.APIKey = logger.Mask(c.Mothership.APIKey)
	return c
}
