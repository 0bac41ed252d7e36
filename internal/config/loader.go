package config

import (
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

var current atomic.Pointer[Config]

var (
	onReloadMu        sync.Mutex
	onReloadCallbacks []func(*Config)
)

var pathOverride atomic.Pointer[string]

// ErrUnresolvedToken means gateway.auth.token names an environment variable that is not set.
var ErrUnresolvedToken = errors.New("gateway auth token is an unresolved placeholder")

// Get returns the current in-memory config (hot-reloaded when the file changes).
func Get() *Config { return current.Load() }

// Set sets the current in-memory config. Used at startup and by the file watcher.
func Set(c *Config) {
	if c != nil {
		current.Store(c)
	}
}

// RegisterOnReload registers a callback that runs after config is hot-reloaded (action catalog, rate limit).
func RegisterOnReload(fn func(*Config)) {
	onReloadMu.Lock()
	defer onReloadMu.Unlock()
	onReloadCallbacks = append(onReloadCallbacks, fn)
}

func notifyReload(cfg *Config) {
	onReloadMu.Lock()
	cb := make([]func(*Config), len(onReloadCallbacks))
	copy(cb, onReloadCallbacks)
	onReloadMu.Unlock()
	for _, fn := range cb {
		fn(cfg)
	}
}

//go:embed config.example.yaml
var exampleConfigBytes []byte

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return parse(data)
}

// LoadFromExample unmarshals the embedded config.example.yaml as the default config.
func LoadFromExample() (*Config, error) {
	cfg, err := parse(exampleConfigBytes)
	if err != nil {
		return nil, fmt.Errorf("parse example config: %w", err)
	}
	return cfg, nil
}

func parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ensureNonNilSlices(&cfg)
	applyLoadDefaults(&cfg)
	return &cfg, nil
}

func ensureNonNilSlices(cfg *Config) {
	if cfg.Proxy.Actions == nil {
		cfg.Proxy.Actions = []string{}
	}
	if cfg.Schedules == nil {
		cfg.Schedules = []ScheduleConfig{}
	}
}

func applyLoadDefaults(cfg *Config) {
	if cfg.Gateway.Port <= 0 {
		cfg.Gateway.Port = DefaultPort
	}
	if cfg.Gateway.Channel == "" {
		cfg.Gateway.Channel = DefaultChannel
	}
	if cfg.Proxy.RatePerMinute <= 0 {
		cfg.Proxy.RatePerMinute = DefaultRatePerMinute
	}
	if cfg.Proxy.Timeout <= 0 {
		cfg.Proxy.Timeout = DefaultTimeout
	}
	if cfg.Proxy.DedupTTL <= 0 {
		cfg.Proxy.DedupTTL = DefaultDedupTTL
	}
	if cfg.Proxy.Message.TimeoutMessage == "" {
		cfg.Proxy.Message.TimeoutMessage = DefaultTimeoutMessage
	}
	if cfg.Proxy.Message.UnreachableMessage == "" {
		cfg.Proxy.Message.UnreachableMessage = DefaultUnreachableMessage
	}
}

func expandEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// ResolveHome returns the BOTPROXY_HOME directory.
// Priority: BOTPROXY_HOME env > ~/.botproxy/
func ResolveHome() string {
	if home := os.Getenv("BOTPROXY_HOME"); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return ".botproxy"
	}
	return filepath.Join(userHome, ".botproxy")
}

// ResolveConfigPath finds the config file.
// Priority: --config flag > BOTPROXY_HOME/config.yaml
func ResolveConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	return filepath.Join(ResolveHome(), "config.yaml")
}

// SetPath pins the process-wide config path (from the --config flag).
func SetPath(p string) {
	pathOverride.Store(&p)
}

// Path returns the process-wide config file path.
// All components should use this instead of receiving the path by parameter.
func Path() string {
	if p := pathOverride.Load(); p != nil {
		return ResolveConfigPath(*p)
	}
	return ResolveConfigPath("")
}

// GenerateToken returns a random hex token (32 bytes = 64 chars) for gateway auth.
func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// CreateFromExample writes the embedded config.example.yaml to targetPath with the token placeholder replaced.
func CreateFromExample(targetPath string) error {
	dir := filepath.Dir(targetPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	token, err := GenerateToken()
	if err != nil {
		return err
	}
	content := strings.ReplaceAll(string(exampleConfigBytes), "${BOTPROXY_TOKEN}", token)
	if err := os.WriteFile(targetPath, []byte(content), 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// EnsureFile creates path from the embedded example, with a fresh token, when it
// does not exist yet. It reports whether the file was created.
func EnsureFile(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat config: %w", err)
	}
	if err := CreateFromExample(path); err != nil {
		return false, err
	}
	return true, nil
}

// Validate rejects a config whose auth token is still an unexpanded ${VAR}
// placeholder. Such a token is public text from the example file.
func (c *Config) Validate() error {
	if envVarPattern.MatchString(c.Gateway.Auth.Token) {
		return fmt.Errorf("%w: %s", ErrUnresolvedToken, c.Gateway.Auth.Token)
	}
	return nil
}
