package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for one environment variable binding.
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{"audio.audio_buffer_size", "TUNEWAVED_AUDIO_BUFFER_SIZE", validateEnvPositiveInt},
		{"audio.max_output_buffer_size", "TUNEWAVED_MAX_OUTPUT_BUFFER_SIZE", validateEnvPositiveInt},
		{"audio.connection_timeout", "TUNEWAVED_CONNECTION_TIMEOUT", nil},
		{"replaygain.replaygain", "TUNEWAVED_REPLAYGAIN", validateEnvReplayGainMode},
		{"replaygain.replaygain_preamp", "TUNEWAVED_REPLAYGAIN_PREAMP", validateEnvPreamp},
		{"mqtt.broker", "TUNEWAVED_MQTT_BROKER", nil},
		{"mqtt.username", "TUNEWAVED_MQTT_USERNAME", nil},
		{"mqtt.password", "TUNEWAVED_MQTT_PASSWORD", nil},
		{"metrics.listen", "TUNEWAVED_METRICS_LISTEN", nil},
	}
}

func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}
		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("invalid %s value %q: %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	if n <= 0 {
		return fmt.Errorf("must be positive, got %d", n)
	}
	return nil
}

func validateEnvPreamp(value string) error {
	preamp, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid preamp: %w", err)
	}
	if preamp < -15 || preamp > 15 {
		return fmt.Errorf("preamp must be between -15 and 15 dB, got %g", preamp)
	}
	return nil
}

func validateEnvReplayGainMode(value string) error {
	switch ReplayGainMode(value) {
	case ReplayGainOff, ReplayGainTrack, ReplayGainAlbum, ReplayGainAuto:
		return nil
	default:
		return fmt.Errorf("must be one of off, track, album, auto")
	}
}

// configureEnvironmentVariables sets up environment variable support for
// viper. Binding failures are logged but never fail startup — the daemon
// still runs on config file / default values.
func configureEnvironmentVariables() error {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("TUNEWAVED")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := bindEnvVars(); err != nil {
		log.Printf("environment variable validation warnings: %v", err)
	}

	return nil
}
