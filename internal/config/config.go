// Package config manages the aura-mesh daemon configuration using koanf/v2.
//
// Supports YAML files and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds the complete aura-mesh daemon configuration.
type Config struct {
	Radio   RadioConfig   `koanf:"radio"`
	Store   StoreConfig   `koanf:"store"`
	LED     LEDConfig     `koanf:"led"`
	Mesh    MeshConfig    `koanf:"mesh"`
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
}

// RadioConfig selects and configures the BLE transport backend.
type RadioConfig struct {
	// Backend is one of "simulated", "bluez", "hcisocket".
	Backend string `koanf:"backend"`
	// Adapter is the BlueZ adapter object path (bluez backend only),
	// e.g. "/org/bluez/hci0".
	Adapter string `koanf:"adapter"`
	// Device is the HCI device index (hcisocket backend only).
	Device int `koanf:"device"`
}

// StoreConfig selects and configures the persistent store backend.
type StoreConfig struct {
	// Backend is one of "file", "mem".
	Backend string `koanf:"backend"`
	// Path is the backing file path (file backend only).
	Path string `koanf:"path"`
}

// LEDConfig selects and configures the LED/GPIO actuation backend.
type LEDConfig struct {
	// Backend is one of "simulated", "periph".
	Backend string `koanf:"backend"`
	// GreenPin, RedPin, OnboardPin, and OutputPin name the GPIO lines
	// (periph backend only), e.g. "GPIO17".
	GreenPin   string `koanf:"green_pin"`
	RedPin     string `koanf:"red_pin"`
	OnboardPin string `koanf:"onboard_pin"`
	OutputPin  string `koanf:"output_pin"`
	// InvertedPins lists pin names wired with inverted polarity (spec.md
	// §12: per-LED polarity).
	InvertedPins []string `koanf:"inverted_pins"`
}

// MeshConfig surfaces the RSSI thresholds and timing values among the
// protocol's compile-time constants (spec.md §6) as runtime-overridable
// defaults; the other protocol constants are not configurable.
type MeshConfig struct {
	RSSIThreshold           int           `koanf:"rssi_threshold"`
	LvlupTokenRSSIThreshold int           `koanf:"lvlup_token_rssi_threshold"`
	StartupDelay            time.Duration `koanf:"startup_delay"`
	CycleDuration           time.Duration `koanf:"cycle_duration"`
	BlinkInterval           time.Duration `koanf:"blink_interval"`
	SettleDelay             time.Duration `koanf:"settle_delay"`
	PeerDiscoveryJitterMS   int           `koanf:"peer_discovery_jitter_ms"`
	// AllowReset enables the Resetter.Reset cold-reboot primitive
	// (spec.md §12). Off by default.
	AllowReset bool `koanf:"allow_reset"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// DefaultConfig returns a Config populated with the protocol's defaults
// (spec.md §6).
func DefaultConfig() *Config {
	return &Config{
		Radio: RadioConfig{Backend: "simulated"},
		Store: StoreConfig{Backend: "file", Path: "/var/lib/auramesh/state.gob"},
		LED:   LEDConfig{Backend: "simulated"},
		Mesh: MeshConfig{
			RSSIThreshold:           -70,
			LvlupTokenRSSIThreshold: -45,
			StartupDelay:            5000 * time.Millisecond,
			CycleDuration:           3500 * time.Millisecond,
			BlinkInterval:           250 * time.Millisecond,
			SettleDelay:             100 * time.Millisecond,
			PeerDiscoveryJitterMS:   120,
			AllowReset:              false,
		},
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// envPrefix is the environment variable prefix for aura-mesh configuration.
// Variables are named AURAMESH_<section>_<key>, e.g. AURAMESH_RADIO_BACKEND.
const envPrefix = "AURAMESH_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (AURAMESH_ prefix), and merges on top of
// DefaultConfig(). Missing fields inherit defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k, DefaultConfig()); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms AURAMESH_RADIO_BACKEND -> radio.backend and
// AURAMESH_MESH_CYCLE_DURATION -> mesh.cycle_duration: only the first
// underscore after the prefix separates section from key.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	section, key, found := strings.Cut(s, "_")
	if !found {
		return s
	}
	return section + "." + key
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"radio.backend":                       defaults.Radio.Backend,
		"radio.adapter":                       defaults.Radio.Adapter,
		"radio.device":                        defaults.Radio.Device,
		"store.backend":                       defaults.Store.Backend,
		"store.path":                          defaults.Store.Path,
		"led.backend":                         defaults.LED.Backend,
		"led.green_pin":                       defaults.LED.GreenPin,
		"led.red_pin":                         defaults.LED.RedPin,
		"led.onboard_pin":                     defaults.LED.OnboardPin,
		"led.output_pin":                      defaults.LED.OutputPin,
		"mesh.rssi_threshold":                 defaults.Mesh.RSSIThreshold,
		"mesh.lvlup_token_rssi_threshold":     defaults.Mesh.LvlupTokenRSSIThreshold,
		"mesh.startup_delay":                  defaults.Mesh.StartupDelay.String(),
		"mesh.cycle_duration":                 defaults.Mesh.CycleDuration.String(),
		"mesh.blink_interval":                 defaults.Mesh.BlinkInterval.String(),
		"mesh.settle_delay":                   defaults.Mesh.SettleDelay.String(),
		"mesh.peer_discovery_jitter_ms":       defaults.Mesh.PeerDiscoveryJitterMS,
		"mesh.allow_reset":                    defaults.Mesh.AllowReset,
		"metrics.addr":                        defaults.Metrics.Addr,
		"metrics.path":                        defaults.Metrics.Path,
		"log.level":                           defaults.Log.Level,
		"log.format":                          defaults.Log.Format,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// Validation errors.
var (
	ErrInvalidRadioBackend   = errors.New("radio.backend must be simulated, bluez, or hcisocket")
	ErrInvalidStoreBackend   = errors.New("store.backend must be file or mem")
	ErrInvalidLEDBackend     = errors.New("led.backend must be simulated or periph")
	ErrEmptyStorePath        = errors.New("store.path must not be empty when store.backend is file")
	ErrInvalidCycleDuration  = errors.New("mesh.cycle_duration must be > 0")
	ErrInvalidStartupDelay   = errors.New("mesh.startup_delay must be >= 0")
	ErrEmptyMetricsAddr      = errors.New("metrics.addr must not be empty")
)

var validRadioBackends = map[string]bool{"simulated": true, "bluez": true, "hcisocket": true}
var validStoreBackends = map[string]bool{"file": true, "mem": true}
var validLEDBackends = map[string]bool{"simulated": true, "periph": true}

// Validate checks the configuration for logical errors.
func Validate(cfg *Config) error {
	if !validRadioBackends[cfg.Radio.Backend] {
		return fmt.Errorf("radio.backend %q: %w", cfg.Radio.Backend, ErrInvalidRadioBackend)
	}
	if !validStoreBackends[cfg.Store.Backend] {
		return fmt.Errorf("store.backend %q: %w", cfg.Store.Backend, ErrInvalidStoreBackend)
	}
	if cfg.Store.Backend == "file" && cfg.Store.Path == "" {
		return ErrEmptyStorePath
	}
	if !validLEDBackends[cfg.LED.Backend] {
		return fmt.Errorf("led.backend %q: %w", cfg.LED.Backend, ErrInvalidLEDBackend)
	}
	if cfg.Mesh.CycleDuration <= 0 {
		return ErrInvalidCycleDuration
	}
	if cfg.Mesh.StartupDelay < 0 {
		return ErrInvalidStartupDelay
	}
	if cfg.Metrics.Addr == "" {
		return ErrEmptyMetricsAddr
	}
	return nil
}

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

