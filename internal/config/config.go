// Package config manages miracled daemon configuration using koanf/v2.
//
// Supports YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete miracled configuration.
type Config struct {
	Metrics    MetricsConfig   `koanf:"metrics"`
	Log        LogConfig       `koanf:"log"`
	Device     DeviceConfig    `koanf:"device"`
	RTSP       RTSPConfig      `koanf:"rtsp"`
	Bin        BinariesConfig  `koanf:"bin"`
	Links      []LinkConfig    `koanf:"links"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9100").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// DeviceConfig holds the WFD device identity advertised over P2P.
type DeviceConfig struct {
	// Name is the P2P device_name (also used as the WFD session's SSID hint).
	Name string `koanf:"name"`
	// ConfigMethods is the WPS config_methods string, e.g. "pbc display keypad".
	ConfigMethods string `koanf:"config_methods"`
	// Role is "source" or "sink" (internal/wfd.Role).
	Role string `koanf:"role"`
}

// RTSPConfig holds the RTSP transport's listen behavior.
type RTSPConfig struct {
	// Addr is the RTSP listen address (e.g., ":7236", the WFD default port).
	Addr string `koanf:"addr"`
}

// BinariesConfig holds the paths to the external child-process binaries
// this daemon supervises (all three are named collaborators per spec.md's
// Non-goals, never implemented by this repo).
type BinariesConfig struct {
	// Supplicant is the wpa_supplicant-compatible P2P control binary.
	Supplicant string `koanf:"supplicant"`
	// Encoder is the GStreamer-based encoder/decoder child binary.
	Encoder string `koanf:"encoder"`
	// DHCP is the DHCP server/client helper binary.
	DHCP string `koanf:"dhcp"`
	// CtrlDir is the directory the supplicant creates its per-interface
	// control sockets in.
	CtrlDir string `koanf:"ctrl_dir"`
}

// LinkConfig describes one managed wireless interface from the
// configuration file. Each entry starts a supplicant child on daemon
// startup; a SIGHUP reload does not start or stop links.
type LinkConfig struct {
	// Interface is the kernel interface name, e.g. "wlan0".
	Interface string `koanf:"interface"`
}

// LinkKey returns a unique identifier for the link, used to reject
// duplicate link entries during validation.
func (lc LinkConfig) LinkKey() string { return lc.Interface }

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Device: DeviceConfig{
			Name:          "miraclecast",
			ConfigMethods: "pbc",
			Role:          "source",
		},
		RTSP: RTSPConfig{
			Addr: ":7236",
		},
		Bin: BinariesConfig{
			Supplicant: "/usr/sbin/wpa_supplicant",
			Encoder:    "/usr/bin/miracle-dispd-encoder",
			DHCP:       "/usr/bin/miracle-dhcp-helper",
			CtrlDir:    "/var/run/miracled/p2p",
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for miracled configuration.
// Variables are named MIRACLED_<section>_<key>, e.g., MIRACLED_RTSP_ADDR.
const envPrefix = "MIRACLED_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (MIRACLED_ prefix), and merges on top of
// DefaultConfig(). Missing fields inherit defaults.
//
// Environment variable mapping:
//
//	MIRACLED_METRICS_ADDR  -> metrics.addr
//	MIRACLED_LOG_LEVEL     -> log.level
//	MIRACLED_DEVICE_NAME   -> device.name
//	MIRACLED_RTSP_ADDR     -> rtsp.addr
//	MIRACLED_BIN_ENCODER   -> bin.encoder
//
// Uses koanf/v2 with file + env providers and YAML parser.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", path, err)
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

// envKeyMapper transforms MIRACLED_RTSP_ADDR -> rtsp.addr.
// Strips the MIRACLED_ prefix, lowercases, and replaces _ with .
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "_", ".")
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"metrics.addr":         defaults.Metrics.Addr,
		"metrics.path":         defaults.Metrics.Path,
		"log.level":            defaults.Log.Level,
		"log.format":           defaults.Log.Format,
		"device.name":          defaults.Device.Name,
		"device.config_methods": defaults.Device.ConfigMethods,
		"device.role":          defaults.Device.Role,
		"rtsp.addr":            defaults.RTSP.Addr,
		"bin.supplicant":       defaults.Bin.Supplicant,
		"bin.encoder":          defaults.Bin.Encoder,
		"bin.dhcp":             defaults.Bin.DHCP,
		"bin.ctrl_dir":         defaults.Bin.CtrlDir,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	// ErrEmptyRTSPAddr indicates the RTSP listen address is empty.
	ErrEmptyRTSPAddr = errors.New("rtsp.addr must not be empty")

	// ErrEmptyDeviceName indicates the device name is empty.
	ErrEmptyDeviceName = errors.New("device.name must not be empty")

	// ErrInvalidRole indicates device.role is not "source" or "sink".
	ErrInvalidRole = errors.New("device.role must be source or sink")

	// ErrEmptySupplicantPath indicates bin.supplicant is empty.
	ErrEmptySupplicantPath = errors.New("bin.supplicant must not be empty")

	// ErrEmptyInterface indicates a link has no interface name.
	ErrEmptyInterface = errors.New("link interface must not be empty")

	// ErrDuplicateLinkKey indicates two links share the same interface.
	ErrDuplicateLinkKey = errors.New("duplicate link key")
)

// ValidRoles lists the recognized device.role strings.
var ValidRoles = map[string]bool{
	"source": true,
	"sink":   true,
}

// Validate checks the configuration for logical errors.
// Returns the first validation error encountered.
func Validate(cfg *Config) error {
	if cfg.RTSP.Addr == "" {
		return ErrEmptyRTSPAddr
	}

	if cfg.Device.Name == "" {
		return ErrEmptyDeviceName
	}

	if !ValidRoles[cfg.Device.Role] {
		return ErrInvalidRole
	}

	if cfg.Bin.Supplicant == "" {
		return ErrEmptySupplicantPath
	}

	if err := validateLinks(cfg.Links); err != nil {
		return err
	}

	return nil
}

// validateLinks checks each declarative link entry for correctness.
func validateLinks(links []LinkConfig) error {
	seen := make(map[string]struct{}, len(links))

	for i, lc := range links {
		if lc.Interface == "" {
			return fmt.Errorf("links[%d]: %w", i, ErrEmptyInterface)
		}

		key := lc.LinkKey()
		if _, dup := seen[key]; dup {
			return fmt.Errorf("links[%d] key %q: %w", i, key, ErrDuplicateLinkKey)
		}
		seen[key] = struct{}{}
	}

	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
//
// Recognized values: "debug", "info", "warn", "error" (case-insensitive).
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
