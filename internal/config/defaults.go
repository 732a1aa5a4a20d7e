package config

import "github.com/spf13/viper"

// setDefaultConfig registers viper defaults so a process can run before any
// config.yaml has ever been written to disk.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "tunewaved")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/tunewaved.log")
	viper.SetDefault("main.log.rotation", RotationDaily)

	viper.SetDefault("audio.audio_buffer_size", 4096)
	viper.SetDefault("audio.buffered_before_play", 0)
	viper.SetDefault("audio.max_output_buffer_size", 8192)
	viper.SetDefault("audio.max_command_list_size", 2048)
	viper.SetDefault("audio.connection_timeout", "60s")

	viper.SetDefault("replaygain.replaygain", ReplayGainOff)
	viper.SetDefault("replaygain.replaygain_preamp", 0.0)
	viper.SetDefault("replaygain.replaygain_missing_preamp", 0.0)
	viper.SetDefault("replaygain.replaygain_limit", false)

	viper.SetDefault("audio_output", []map[string]any{
		{"type": "null", "name": "null output", "enabled": true},
	})
	viper.SetDefault("audio_filter", []map[string]any{})
	viper.SetDefault("decoder", []map[string]any{
		{"plugin": "wave", "enabled": true},
		{"plugin": "flac", "enabled": true},
	})

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topic", "tunewave/status")

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.listen", ":9091")
}
