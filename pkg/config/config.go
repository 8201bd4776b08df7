package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"ropix/pkg/types"
	"ropix/pkg/utils"
)

type Config struct {
	ListenAddress     string          `json:"listen_address"`
	FrontendDir       string          `json:"frontend_dir"`
	MaxUploadSize     string          `json:"max_upload_size"`
	MaxDevicesPerRoom int             `json:"max_devices_per_room"`
	SessionTTL        string          `json:"session_ttl"`
	Discovery         DiscoveryConfig `json:"discovery,omitempty"`
}

type DiscoveryConfig struct {
	Enabled  bool   `json:"enabled"`
	Instance string `json:"instance"`
	Service  string `json:"service"`
}

const (
	DefaultListenAddress = ":5000"
	DefaultFrontendDir   = "./frontend/dist"
	DefaultMaxUploadSize = "200MB"
	DefaultSessionTTL    = "5m"
	DefaultMDNSInstance  = "ropix"
	DefaultMDNSService   = "_ropix._tcp"
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func LoadFromEnv() *Config {
	cfg := &Config{
		ListenAddress:     getEnv("ROPIX_LISTEN_ADDRESS", DefaultListenAddress),
		FrontendDir:       getEnv("ROPIX_FRONTEND_DIR", DefaultFrontendDir),
		MaxUploadSize:     getEnv("ROPIX_MAX_UPLOAD_SIZE", DefaultMaxUploadSize),
		MaxDevicesPerRoom: getEnvInt("ROPIX_MAX_DEVICES_PER_ROOM", types.MaxDevicesPerRoom),
		SessionTTL:        getEnv("ROPIX_SESSION_TTL", DefaultSessionTTL),
		Discovery: DiscoveryConfig{
			Enabled:  getEnv("ROPIX_MDNS_ENABLED", "true") == "true",
			Instance: getEnv("ROPIX_MDNS_INSTANCE", DefaultMDNSInstance),
			Service:  getEnv("ROPIX_MDNS_SERVICE", DefaultMDNSService),
		},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.ListenAddress == "" {
		c.ListenAddress = DefaultListenAddress
	}
	if c.FrontendDir == "" {
		c.FrontendDir = DefaultFrontendDir
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = DefaultMaxUploadSize
	}
	if c.MaxDevicesPerRoom <= 0 {
		c.MaxDevicesPerRoom = types.MaxDevicesPerRoom
	}
	if c.SessionTTL == "" {
		c.SessionTTL = DefaultSessionTTL
	}
	if c.Discovery.Instance == "" {
		c.Discovery.Instance = DefaultMDNSInstance
	}
	if c.Discovery.Service == "" {
		c.Discovery.Service = DefaultMDNSService
	}
}

// MaxUploadBytes resolves the configured upload cap to bytes.
func (c *Config) MaxUploadBytes() int64 {
	return utils.ParseDataSizeWithDefault(c.MaxUploadSize, 200*utils.MegaByte)
}

// SessionTTLDuration resolves the upload-session TTL; invalid values fall
// back to the default.
func (c *Config) SessionTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultSessionTTL)
	}
	return d
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
