// Package config provides configuration management for the portal client.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/auditportal/auditportal/internal/constants"
)

// Config is the client configuration.
//
// INI format:
//
//	[portal]
//	api_url = https://portal.example.com
//	collation_language = mn
//
//	[network]
//	proxy_mode = no-proxy
//	proxy_host =
//	proxy_port = 0
//	proxy_user =
//	no_proxy =
//	max_retries = 0
//	timeout_seconds = 60
//
//	[chat]
//	poll_interval_seconds = 5
type Config struct {
	APIBaseURL        string
	CollationLanguage string

	// Proxy settings
	ProxyMode     string // "no-proxy", "system", "ntlm", "basic"
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string // never persisted
	NoProxy       string // comma-separated hosts/CIDRs to bypass
	ProxyWarmup   bool

	// MaxRetries applies to API calls. Zero disables retries.
	MaxRetries int
	Timeout    time.Duration

	ChatPollInterval time.Duration

	// Token comes from AUDITPORTAL_TOKEN and overrides the session token.
	// It is never written to the config file.
	Token string
}

// Validation errors
var (
	ErrMissingAPIURL       = errors.New("api_url is required")
	ErrInvalidAPIURL       = errors.New("api_url must be an http(s) URL")
	ErrInvalidProxyMode    = errors.New("proxy_mode must be one of no-proxy, system, ntlm, basic")
	ErrMissingProxyHost    = errors.New("proxy_host is required for ntlm and basic proxy modes")
	ErrInvalidMaxRetries   = errors.New("max_retries must be between 0 and 10")
	ErrInvalidPollInterval = errors.New("poll_interval_seconds must be at least 1")
	ErrUnknownKey          = errors.New("unknown config key")
)

// Default returns a config with default values.
func Default() *Config {
	return &Config{
		APIBaseURL:        constants.DefaultAPIBaseURL,
		CollationLanguage: constants.DefaultCollationLanguage,
		ProxyMode:         "no-proxy",
		MaxRetries:        constants.APIMaxRetries,
		Timeout:           constants.DefaultRequestTimeout,
		ChatPollInterval:  constants.ChatPollInterval,
	}
}

// Load reads the INI file at path over the defaults. A missing file is not
// an error. An empty path means DefaultConfigPath().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultConfigPath()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	portal := iniFile.Section("portal")
	cfg.APIBaseURL = portal.Key("api_url").MustString(cfg.APIBaseURL)
	cfg.CollationLanguage = portal.Key("collation_language").MustString(cfg.CollationLanguage)

	network := iniFile.Section("network")
	cfg.ProxyMode = network.Key("proxy_mode").MustString(cfg.ProxyMode)
	cfg.ProxyHost = network.Key("proxy_host").String()
	cfg.ProxyPort = network.Key("proxy_port").MustInt(0)
	cfg.ProxyUser = network.Key("proxy_user").String()
	cfg.NoProxy = network.Key("no_proxy").String()
	cfg.ProxyWarmup = network.Key("proxy_warmup").MustBool(false)
	cfg.MaxRetries = network.Key("max_retries").MustInt(cfg.MaxRetries)
	cfg.Timeout = time.Duration(network.Key("timeout_seconds").MustInt(int(cfg.Timeout/time.Second))) * time.Second

	chat := iniFile.Section("chat")
	cfg.ChatPollInterval = time.Duration(chat.Key("poll_interval_seconds").MustInt(int(cfg.ChatPollInterval/time.Second))) * time.Second

	return cfg, nil
}

// Save writes cfg to path as INI, replacing the file atomically.
// The proxy password and token are not written.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	portal, err := iniFile.NewSection("portal")
	if err != nil {
		return fmt.Errorf("failed to create portal section: %w", err)
	}
	portal.Key("api_url").SetValue(cfg.APIBaseURL)
	portal.Key("collation_language").SetValue(cfg.CollationLanguage)

	network, err := iniFile.NewSection("network")
	if err != nil {
		return fmt.Errorf("failed to create network section: %w", err)
	}
	network.Key("proxy_mode").SetValue(cfg.ProxyMode)
	network.Key("proxy_host").SetValue(cfg.ProxyHost)
	network.Key("proxy_port").SetValue(strconv.Itoa(cfg.ProxyPort))
	network.Key("proxy_user").SetValue(cfg.ProxyUser)
	network.Key("no_proxy").SetValue(cfg.NoProxy)
	network.Key("proxy_warmup").SetValue(strconv.FormatBool(cfg.ProxyWarmup))
	network.Key("max_retries").SetValue(strconv.Itoa(cfg.MaxRetries))
	network.Key("timeout_seconds").SetValue(strconv.Itoa(int(cfg.Timeout / time.Second)))

	chat, err := iniFile.NewSection("chat")
	if err != nil {
		return fmt.Errorf("failed to create chat section: %w", err)
	}
	chat.Key("poll_interval_seconds").SetValue(strconv.Itoa(int(cfg.ChatPollInterval / time.Second)))

	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	// Proxy user names are mildly sensitive.
	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// MergeWithEnv applies environment overrides.
// AUDITPORTAL_API_URL wins over VITE_API_URL.
func (c *Config) MergeWithEnv() {
	if v := os.Getenv(constants.EnvLegacyAPIURL); v != "" {
		c.APIBaseURL = v
	}
	if v := os.Getenv(constants.EnvAPIURL); v != "" {
		c.APIBaseURL = v
	}
	if v := os.Getenv(constants.EnvToken); v != "" {
		c.Token = v
	}
}

// MergeWithFlags applies command-line overrides. Empty values are ignored.
func (c *Config) MergeWithFlags(apiURL, proxyMode, proxyHost string, proxyPort int) {
	if apiURL != "" {
		c.APIBaseURL = apiURL
	}
	if proxyMode != "" {
		c.ProxyMode = proxyMode
	}
	if proxyHost != "" {
		c.ProxyHost = proxyHost
	}
	if proxyPort > 0 {
		c.ProxyPort = proxyPort
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
}

// Validate checks the settings needed to talk to the backend.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return ErrMissingAPIURL
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidAPIURL
	}
	switch strings.ToLower(c.ProxyMode) {
	case "", "no-proxy", "system":
	case "ntlm", "basic":
		if c.ProxyHost == "" {
			return ErrMissingProxyHost
		}
	default:
		return ErrInvalidProxyMode
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return ErrInvalidMaxRetries
	}
	if c.ChatPollInterval < constants.MinChatPollInterval {
		return ErrInvalidPollInterval
	}
	return nil
}

type keySpec struct {
	get func(*Config) string
	set func(*Config, string) error
}

func intSetter(apply func(*Config, int)) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid integer %q: %w", v, err)
		}
		apply(c, n)
		return nil
	}
}

var keys = map[string]keySpec{
	"api_url": {
		get: func(c *Config) string { return c.APIBaseURL },
		set: func(c *Config, v string) error { c.APIBaseURL = strings.TrimRight(v, "/"); return nil },
	},
	"collation_language": {
		get: func(c *Config) string { return c.CollationLanguage },
		set: func(c *Config, v string) error { c.CollationLanguage = v; return nil },
	},
	"proxy_mode": {
		get: func(c *Config) string { return c.ProxyMode },
		set: func(c *Config, v string) error { c.ProxyMode = strings.ToLower(v); return nil },
	},
	"proxy_host": {
		get: func(c *Config) string { return c.ProxyHost },
		set: func(c *Config, v string) error { c.ProxyHost = v; return nil },
	},
	"proxy_port": {
		get: func(c *Config) string { return strconv.Itoa(c.ProxyPort) },
		set: intSetter(func(c *Config, n int) { c.ProxyPort = n }),
	},
	"proxy_user": {
		get: func(c *Config) string { return c.ProxyUser },
		set: func(c *Config, v string) error { c.ProxyUser = v; return nil },
	},
	"no_proxy": {
		get: func(c *Config) string { return c.NoProxy },
		set: func(c *Config, v string) error { c.NoProxy = v; return nil },
	},
	"proxy_warmup": {
		get: func(c *Config) string { return strconv.FormatBool(c.ProxyWarmup) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid boolean %q: %w", v, err)
			}
			c.ProxyWarmup = b
			return nil
		},
	},
	"max_retries": {
		get: func(c *Config) string { return strconv.Itoa(c.MaxRetries) },
		set: intSetter(func(c *Config, n int) { c.MaxRetries = n }),
	},
	"timeout_seconds": {
		get: func(c *Config) string { return strconv.Itoa(int(c.Timeout / time.Second)) },
		set: intSetter(func(c *Config, n int) { c.Timeout = time.Duration(n) * time.Second }),
	},
	"poll_interval_seconds": {
		get: func(c *Config) string { return strconv.Itoa(int(c.ChatPollInterval / time.Second)) },
		set: intSetter(func(c *Config, n int) { c.ChatPollInterval = time.Duration(n) * time.Second }),
	},
}

// Keys returns the settable keys in sorted order.
func Keys() []string {
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Get returns the string form of a key.
func (c *Config) Get(key string) (string, error) {
	spec, ok := keys[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return spec.get(c), nil
}

// Set updates one key from its string form.
func (c *Config) Set(key, value string) error {
	spec, ok := keys[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return spec.set(c, value)
}
