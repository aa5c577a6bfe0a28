// Package config loads application configuration from file and
// environment. Env var overrides use prefix NETRA_.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Camera   CameraConfig
	Pipeline PipelineConfig
	Server   ServerConfig
	Storage  StorageConfig
	Plugins  PluginConfig
}

// CameraConfig holds frame acquisition settings.
type CameraConfig struct {
	DeviceID int
}

// PipelineConfig holds processing settings seeded into the pipeline.
type PipelineConfig struct {
	Tier            string
	MinConfidence   float64
	DwellMs         int
	CycleTimeoutMs  int
	MotionThreshold float64
	ScreenWidth     int
	ScreenHeight    int
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Host string
	Port int
}

// StorageConfig holds sqlite settings.
type StorageConfig struct {
	Path string
}

// PluginConfig holds action plugin settings.
type PluginConfig struct {
	Dir       string
	TimeoutMs int
}

// Load reads configuration from file and env.
func Load() (Config, error) {
	v := viper.New()

	dataDir := filepath.Join(os.Getenv("HOME"), ".netra")

	// default values
	v.SetDefault("camera.device_id", 0)
	v.SetDefault("pipeline.tier", "mid")
	v.SetDefault("pipeline.min_confidence", 0.5)
	v.SetDefault("pipeline.dwell_ms", 800)
	v.SetDefault("pipeline.cycle_timeout_ms", 100)
	v.SetDefault("pipeline.motion_threshold", 1.0)
	v.SetDefault("pipeline.screen_width", 1920)
	v.SetDefault("pipeline.screen_height", 1080)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8574)
	v.SetDefault("storage.path", filepath.Join(dataDir, "netra.db"))
	v.SetDefault("plugins.dir", filepath.Join(dataDir, "plugins"))
	v.SetDefault("plugins.timeout_ms", 3000)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("NETRA_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "netra"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("NETRA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}
