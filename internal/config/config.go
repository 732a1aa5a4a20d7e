// Package config loads and validates the daemon's configuration block:
// buffer sizing, ReplayGain policy, and the audio_output / audio_filter /
// decoder plugin lists the core reads at startup.
package config

import (
	"embed"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yaml
var configFiles embed.FS

// Settings is the root configuration tree, unmarshaled from YAML by viper.
type Settings struct {
	Debug bool // true to enable debug logging across subsystems

	Main struct {
		Name string // identifies this daemon instance, used as the MQTT client ID
		Log  LogConfig
	}

	Audio      AudioSettings
	ReplayGain ReplayGainSettings

	Outputs  []AudioOutputConfig `mapstructure:"audio_output"`
	Filters  []AudioFilterConfig `mapstructure:"audio_filter"`
	Decoders []DecoderConfig     `mapstructure:"decoder"`

	MQTT    MQTTSettings
	Metrics MetricsSettings
}

// AudioSettings holds the buffer and timeout knobs from the core
// configuration block.
type AudioSettings struct {
	BufferSizeKiB      int           `mapstructure:"audio_buffer_size"`
	BufferedBeforePlay int           `mapstructure:"buffered_before_play"`
	MaxOutputBufferKiB int           `mapstructure:"max_output_buffer_size"`
	MaxCommandListKiB  int           `mapstructure:"max_command_list_size"`
	ConnectionTimeout  time.Duration `mapstructure:"connection_timeout"`
	CrossfadeSeconds   time.Duration `mapstructure:"crossfade_seconds"`
}

// ReplayGainMode selects which ReplayGain tag the output filter chain applies.
type ReplayGainMode string

const (
	ReplayGainOff   ReplayGainMode = "off"
	ReplayGainTrack ReplayGainMode = "track"
	ReplayGainAlbum ReplayGainMode = "album"
	ReplayGainAuto  ReplayGainMode = "auto"
)

// ReplayGainSettings configures the ReplayGainFilter stage of the output
// filter chain.
type ReplayGainSettings struct {
	Mode          ReplayGainMode `mapstructure:"replaygain"`
	Preamp        float64        `mapstructure:"replaygain_preamp"`
	MissingPreamp float64        `mapstructure:"replaygain_missing_preamp"`
	Limit         bool           `mapstructure:"replaygain_limit"`
}

// AudioOutputConfig configures one OutputSource. Fields beyond the common
// ones are plugin-specific and carried through Extra.
type AudioOutputConfig struct {
	Type      string `mapstructure:"type"`
	Name      string `mapstructure:"name"`
	Device    string `mapstructure:"device"`
	MixerType string `mapstructure:"mixer_type"`
	AlwaysOn  bool   `mapstructure:"always_on"`
	Exclusive bool   `mapstructure:"exclusive"`
	DoP       bool   `mapstructure:"dop"`
	Enabled   bool   `mapstructure:"enabled"`

	Extra map[string]any `mapstructure:",remain"`
}

// AudioFilterConfig configures one stage of the per-output filter chain.
type AudioFilterConfig struct {
	Name   string `mapstructure:"name"`
	Plugin string `mapstructure:"plugin"`

	Extra map[string]any `mapstructure:",remain"`
}

// DecoderConfig enables or disables one registered decoder plugin.
type DecoderConfig struct {
	Plugin  string `mapstructure:"plugin"`
	Enabled bool   `mapstructure:"enabled"`
}

// MQTTSettings configures the idle/notify publisher.
type MQTTSettings struct {
	Enabled  bool
	Broker   string
	Topic    string
	Username string
	Password string
	TLS      MQTTTLSSettings
}

// MQTTTLSSettings configures transport security for the MQTT notify sink.
type MQTTTLSSettings struct {
	Enabled            bool
	InsecureSkipVerify bool
	CACertFile         string `mapstructure:"ca_cert_file"`
	ClientCertFile     string `mapstructure:"client_cert_file"`
	ClientKeyFile      string `mapstructure:"client_key_file"`
}

// MetricsSettings configures the Prometheus exposition endpoint.
type MetricsSettings struct {
	Enabled bool
	Listen  string
}

// LogConfig defines the configuration for a log file.
type LogConfig struct {
	Enabled     bool
	Path        string
	Rotation    RotationType
	MaxSize     int64
	RotationDay time.Weekday
}

// RotationType defines different types of log rotations.
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a fresh
// Settings instance, validates it, and stores it as the process-wide
// current settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	settingsInstance = settings
	return settings, nil
}

// initViper initializes viper with default values and reads the
// configuration file, creating one from the embedded template if none
// exists yet.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := configureEnvironmentVariables(); err != nil {
		return fmt.Errorf("error configuring environment variables: %w", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if ok := isConfigNotFound(err, &notFound); ok {
			return createDefaultConfig(configPaths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

func isConfigNotFound(err error, target *viper.ConfigFileNotFoundError) bool {
	asserted, ok := err.(viper.ConfigFileNotFoundError)
	if ok {
		*target = asserted
	}
	return ok
}

// createDefaultConfig writes the embedded default config.yaml to disk and
// re-reads it through viper.
func createDefaultConfig(configDir string) error {
	configPath := filepath.Join(configDir, "config.yaml")
	defaultConfig := getDefaultConfig()

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil { //nolint:gosec // config dir, not secret
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil { //nolint:gosec // config file, not secret
		return fmt.Errorf("error writing default config file: %w", err)
	}

	log.Printf("created default config file at %s", configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded
// config.yaml file.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("error reading embedded default config: %v", err)
	}
	return string(data)
}

// GetSettings returns the current settings instance, or nil if Load/Current
// has not run yet.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Current returns the current settings instance, loading it from disk the
// first time it's called.
func Current() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}
