package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by LoadConfig.
const EnvPrefix = "PERSISTCTL_"

// Backends accepted in StorageConfig.Backend.
const (
	BackendFile   = "file"
	BackendBolt   = "bolt"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Storage    StorageConfig    `koanf:"storage"`
	Encryption EncryptionConfig `koanf:"encryption"`
	Serializer string           `koanf:"serializer"` // json or yaml
	Log        LogConfig        `koanf:"log"`
}

// StorageConfig selects the backend.
type StorageConfig struct {
	Backend string `koanf:"backend"`
	Dir     string `koanf:"dir"`    // data directory, e.g. $HOME/.persistctl
	Bucket  string `koanf:"bucket"` // bolt bucket or badger key prefix
}

// EncryptionConfig enables the encryption layer when Key or Passphrase is set.
type EncryptionConfig struct {
	Key        string `koanf:"key"` // hex, takes precedence over Passphrase
	Passphrase string `koanf:"passphrase"`
	Salt       string `koanf:"salt"`
	KDF        string `koanf:"kdf"`    // scrypt or argon2id
	Cipher     string `koanf:"cipher"` // gcm or chacha
}

// Enabled reports whether values should be encrypted.
func (c EncryptionConfig) Enabled() bool {
	return c.Key != "" || c.Passphrase != ""
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // text or json
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() map[string]any {
	return map[string]any{
		"storage.backend":   BackendFile,
		"storage.bucket":    "values",
		"serializer":        "json",
		"encryption.kdf":    "scrypt",
		"encryption.cipher": "gcm",
		"log.level":         "warn",
		"log.format":        "text",
	}
}

// LoadConfig builds a Config. Later sources override earlier ones:
//  1. DefaultConfig
//  2. the YAML file at path, if path is not empty
//  3. PERSISTCTL_* environment variables (PERSISTCTL_STORAGE_DIR -> storage.dir)
//  4. overrides, keyed like DefaultConfig (used for command-line flags)
func LoadConfig(path string, overrides map[string]any) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(mapProvider(DefaultConfig()), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	envKey := func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ToLower(s)
		return strings.Replace(s, "_", ".", 1)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}
	if len(overrides) > 0 {
		if err := k.Load(mapProvider(overrides), nil); err != nil {
			return Config{}, fmt.Errorf("load overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks enumerated fields.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendBolt, BackendBadger, BackendMemory:
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Serializer {
	case "json", "yaml":
	default:
		return fmt.Errorf("config: unknown serializer %q", c.Serializer)
	}
	switch c.Encryption.Cipher {
	case "gcm", "chacha":
	default:
		return fmt.Errorf("config: unknown cipher %q", c.Encryption.Cipher)
	}
	return nil
}

var errReadBytes = errors.New("app: map provider does not support ReadBytes")

// mapProvider loads a flat map with dotted keys into koanf.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errReadBytes
}

func (m mapProvider) Read() (map[string]any, error) {
	flat := make(map[string]any, len(m))
	for k, v := range m {
		flat[k] = v
	}
	return maps.Unflatten(flat, "."), nil
}
