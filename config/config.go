// Package config loads service settings from an optional YAML file and the environment.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort          = "3088"
	defaultDXInputPath   = "dx_input_log.txt"
	defaultBridgeURL     = "http://localhost:3088"
	defaultLookupBaseURL = "https://www.qrz.com/db/"
	defaultPollInterval  = time.Second
	defaultDriver        = "memory"
)

// Config holds all runtime settings.
type Config struct {
	Port     string         `yaml:"port"`
	Files    FilesConfig    `yaml:"files"`
	LastSeen LastSeenConfig `yaml:"last_seen"`
	Poller   PollerConfig   `yaml:"poller"`
}

// FilesConfig names the files the bridge serves.
type FilesConfig struct {
	Logbook string `yaml:"logbook"`
	DXInput string `yaml:"dx_input"`
}

// LastSeenConfig selects where the relay keeps its slot.
type LastSeenConfig struct {
	Driver string `yaml:"driver"` // memory, postgres, sqlite
	DSN    string `yaml:"dsn"`
}

// PollerConfig controls the in-process page poller.
type PollerConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Interval          time.Duration `yaml:"interval"`
	BridgeURL         string        `yaml:"bridge_url"`
	LookupBaseURL     string        `yaml:"lookup_base_url"`
	BrowserControlURL string        `yaml:"browser_control_url"` // empty launches a local browser
	WatchDXInput      bool          `yaml:"watch_dx_input"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Port: defaultPort,
		Files: FilesConfig{
			Logbook: defaultLogbookPath(),
			DXInput: defaultDXInputPath,
		},
		LastSeen: LastSeenConfig{Driver: defaultDriver},
		Poller: PollerConfig{
			Interval:      defaultPollInterval,
			BridgeURL:     defaultBridgeURL,
			LookupBaseURL: defaultLookupBaseURL,
		},
	}
}

// Load reads path (if non-empty) over the defaults, then applies env overrides.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("ADI_FILE_PATH"); v != "" {
		c.Files.Logbook = v
	} else if os.Getenv("CALLCHECK_CONFIG") == "" {
		log.Printf("WARNING: ADI_FILE_PATH not set, using %s", c.Files.Logbook)
	}
	if v := os.Getenv("DX_INPUT_PATH"); v != "" {
		c.Files.DXInput = v
	}
	if v := os.Getenv("LAST_SEEN_DRIVER"); v != "" {
		c.LastSeen.Driver = v
	}
	if v := os.Getenv("LAST_SEEN_DSN"); v != "" {
		c.LastSeen.DSN = v
	}
	if v := os.Getenv("POLL_ENABLED"); v != "" {
		c.Poller.Enabled = parseBool("POLL_ENABLED", v, c.Poller.Enabled)
	}
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Printf("WARNING: ignoring invalid POLL_INTERVAL %q: %v", v, err)
		} else {
			c.Poller.Interval = d
		}
	}
	if v := os.Getenv("BRIDGE_URL"); v != "" {
		c.Poller.BridgeURL = v
	}
	if v := os.Getenv("LOOKUP_BASE_URL"); v != "" {
		c.Poller.LookupBaseURL = v
	}
	if v := os.Getenv("BROWSER_CONTROL_URL"); v != "" {
		c.Poller.BrowserControlURL = v
	}
	if v := os.Getenv("WATCH_DX_INPUT"); v != "" {
		c.Poller.WatchDXInput = parseBool("WATCH_DX_INPUT", v, c.Poller.WatchDXInput)
	}
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid port %q: %w", c.Port, err)
	}
	switch c.LastSeen.Driver {
	case "memory":
	case "postgres", "sqlite":
		if c.LastSeen.DSN == "" {
			return fmt.Errorf("last_seen driver %q requires a dsn", c.LastSeen.Driver)
		}
	default:
		return fmt.Errorf("unsupported last_seen driver %q", c.LastSeen.Driver)
	}
	if c.Poller.Enabled && c.Poller.Interval <= 0 {
		return fmt.Errorf("poller interval must be positive, got %s", c.Poller.Interval)
	}
	return nil
}

func parseBool(name, v string, fallback bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("WARNING: ignoring invalid %s %q: %v", name, v, err)
		return fallback
	}
	return b
}

// defaultLogbookPath is where WSJT-X writes its ADIF log on this platform.
func defaultLogbookPath() string {
	if runtime.GOOS == "windows" {
		if dir, err := os.UserCacheDir(); err == nil { // %LocalAppData%
			return filepath.Join(dir, "WSJT-X", "wsjtx_log.adi")
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, "Library", "Application Support", "WSJT-X", "wsjtx_log.adi")
		}
		return filepath.Join(home, ".local", "share", "WSJT-X", "wsjtx_log.adi")
	}
	return "wsjtx_log.adi"
}
