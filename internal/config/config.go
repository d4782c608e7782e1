// Package config provides the strict settings loader for the nao-bridge.
//
// The bridge reads a plain KEY=VALUE settings file (conventionally a .env
// next to the binary). There are no defaults for the required keys: any
// missing or malformed value fails startup immediately.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Required settings keys. All five must be present and non-empty.
const (
	KeySDKPath  = "NAO_SDK_PATH"
	KeyNAOIP    = "NAO_IP"
	KeyNAOPort  = "NAO_PORT"
	KeyBindIP   = "BRIDGE_BIND_IP"
	KeyBindPort = "BRIDGE_BIND_PORT"
)

// Optional settings keys.
const (
	KeyFallbackCharset = "BRIDGE_FALLBACK_CHARSET"
	KeyLogDir          = "BRIDGE_LOG_DIR"
)

// DefaultFallbackCharset is the legacy codec tried when request text is not
// valid UTF-8. Deployment-specific; override with BRIDGE_FALLBACK_CHARSET.
const DefaultFallbackCharset = "cp949"

const commentPrefix = "#"

// Static errors.
var (
	// ErrEnvFileNotFound indicates the settings file does not exist at the
	// expected path.
	ErrEnvFileNotFound = errors.New("settings file not found")
	// ErrMissingKeys indicates one or more required keys are absent or empty.
	ErrMissingKeys = errors.New("missing required settings keys")
	// ErrInvalidPort indicates a port value did not parse as an integer.
	ErrInvalidPort = errors.New("invalid port value")
)

var requiredKeys = []string{
	KeySDKPath,
	KeyNAOIP,
	KeyNAOPort,
	KeyBindIP,
	KeyBindPort,
}

// Config is the immutable, fully validated bridge configuration. It is
// constructed exactly once at startup and passed by injection; no component
// reads the ambient environment after Load returns.
type Config struct {
	SDKPath         string
	NAOHost         string
	NAOPort         int
	BindHost        string
	BindPort        int
	FallbackCharset string
	LogDir          string
}

// Loader loads the settings file through an injectable view of the process
// environment. The zero value is not usable; use NewLoader outside of tests.
type Loader struct {
	// Lookup reports an environment value and whether it is set.
	Lookup func(key string) (string, bool)
	// Setenv exports a newly discovered key into the environment.
	Setenv func(key, value string) error
}

// NewLoader returns a Loader bound to the real process environment.
func NewLoader() Loader {
	return Loader{
		Lookup: os.LookupEnv,
		Setenv: os.Setenv,
	}
}

// Load reads the settings file at path, overlays it under the ambient
// environment and returns the validated configuration.
//
// File entries never override keys already set (non-empty) in the
// environment; newly discovered keys are exported as a side effect, so
// re-running Load is idempotent.
func (l Loader) Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrEnvFileNotFound, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	err = l.applyFile(data)
	if err != nil {
		return nil, err
	}

	return l.buildConfig()
}

// applyFile walks the file line by line and exports new keys. Lines are
// treated as UTF-8 where possible; a line with undecodable bytes is still
// processed as raw bytes rather than dropped (Go strings carry arbitrary
// bytes, so no conversion step can fail here).
func (l Loader) applyFile(data []byte) error {
	for _, rawLine := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if key == "" {
			continue
		}

		if existing, ok := l.Lookup(key); ok && existing != "" {
			continue
		}

		err := l.Setenv(key, value)
		if err != nil {
			return fmt.Errorf("failed to export settings key %s: %w", key, err)
		}
	}

	return nil
}

// buildConfig validates the merged environment and produces the typed
// configuration. All missing required keys are reported together.
func (l Loader) buildConfig() (*Config, error) {
	var missing []string

	for _, key := range requiredKeys {
		if value, ok := l.Lookup(key); !ok || strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingKeys, strings.Join(missing, ", "))
	}

	naoPort, err := l.portValue(KeyNAOPort)
	if err != nil {
		return nil, err
	}

	bindPort, err := l.portValue(KeyBindPort)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		SDKPath:         l.stringValue(KeySDKPath),
		NAOHost:         l.stringValue(KeyNAOIP),
		NAOPort:         naoPort,
		BindHost:        l.stringValue(KeyBindIP),
		BindPort:        bindPort,
		FallbackCharset: l.optionalValue(KeyFallbackCharset, DefaultFallbackCharset),
		LogDir:          l.optionalValue(KeyLogDir, os.TempDir()),
	}

	return cfg, nil
}

func (l Loader) stringValue(key string) string {
	value, _ := l.Lookup(key)

	return strings.TrimSpace(value)
}

func (l Loader) optionalValue(key, fallback string) string {
	value, ok := l.Lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}

	return strings.TrimSpace(value)
}

func (l Loader) portValue(key string) (int, error) {
	raw := l.stringValue(key)

	port, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidPort, key, raw)
	}

	return port, nil
}

// DefaultPath returns the conventional settings location: a .env file in the
// directory holding the running binary. Falls back to the working directory
// when the executable path cannot be resolved.
func DefaultPath() string {
	exe, err := os.Executable()
	if err != nil {
		return ".env"
	}

	return filepath.Join(filepath.Dir(exe), ".env")
}
