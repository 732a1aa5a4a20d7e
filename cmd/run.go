package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tunewave/tunewaved/internal/chunk"
	"github.com/tunewave/tunewaved/internal/config"
	"github.com/tunewave/tunewaved/internal/control"
	"github.com/tunewave/tunewaved/internal/decoder"
	decoderflac "github.com/tunewave/tunewaved/internal/decoder/plugins/flac"
	decodernull "github.com/tunewave/tunewaved/internal/decoder/plugins/null"
	decoderwave "github.com/tunewave/tunewaved/internal/decoder/plugins/wave"
	"github.com/tunewave/tunewaved/internal/errors"
	"github.com/tunewave/tunewaved/internal/logging"
	"github.com/tunewave/tunewaved/internal/metrics"
	"github.com/tunewave/tunewaved/internal/mqtt"
	"github.com/tunewave/tunewaved/internal/notify"
	"github.com/tunewave/tunewaved/internal/output"
	outputnull "github.com/tunewave/tunewaved/internal/output/plugins/null"
	outputsoundcard "github.com/tunewave/tunewaved/internal/output/plugins/soundcard"
	outputstream "github.com/tunewave/tunewaved/internal/output/plugins/stream"
	outputwave "github.com/tunewave/tunewaved/internal/output/plugins/wave"
	"github.com/tunewave/tunewaved/internal/player"
)

// runCommand starts the daemon: load configuration, wire the decoder
// registry, outputs, player and notification sinks, then block until a
// termination signal arrives. Grounded on the teacher's
// cmd/realtime/realtime.go shape (load settings, build the long-running
// pipeline, wait on an interrupt channel) with the BirdNET-specific
// analysis pipeline replaced by the playback daemon's own.
func runCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "start the playback daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			logging.Init()
			if settings.Debug {
				logging.SetLevel(slog.LevelDebug)
			}

			daemon, err := buildDaemon(settings)
			if err != nil {
				return fmt.Errorf("error wiring daemon: %w", err)
			}
			daemon.Start()
			defer daemon.Stop()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
			return nil
		},
	}
}

// daemon bundles the long-lived components runCommand starts and stops
// together.
type daemon struct {
	player  *player.Player
	control *control.Server
	mqtt    mqtt.Client
	listen  string
}

func (d *daemon) Start() {
	d.player.Start()
	if d.control != nil {
		d.control.Start(d.listen)
	}
}

func (d *daemon) Stop() {
	if d.control != nil {
		_ = d.control.Shutdown(5 * time.Second)
	}
	d.player.Exit()
	if d.mqtt != nil {
		d.mqtt.Disconnect()
	}
}

// buildDaemon wires every subsystem from settings: the decoder registry,
// the shared chunk buffer, one output.Control per configured audio_output,
// the player's notification fan-out, and the read-only control server.
func buildDaemon(settings *config.Settings) (*daemon, error) {
	registry := buildDecoderRegistry(settings.Decoders)

	buf := chunk.NewMusicBuffer(settings.Audio.BufferSizeKiB)

	outputs, err := buildOutputs(settings.Outputs, settings.ReplayGain)
	if err != nil {
		return nil, err
	}
	if len(outputs) == 0 {
		return nil, errors.Newf("no audio outputs configured").
			Component("cmd").Category(errors.CategoryValidation).Build()
	}

	var mqttClient mqtt.Client
	if settings.MQTT.Enabled {
		mqttClient = mqtt.NewClient(mqtt.Config{
			Broker:   settings.MQTT.Broker,
			ClientID: settings.Main.Name,
			Username: settings.MQTT.Username,
			Password: settings.MQTT.Password,
			Topic:    settings.MQTT.Topic,
			TLS: mqtt.TLSConfig{
				Enabled:            settings.MQTT.TLS.Enabled,
				InsecureSkipVerify: settings.MQTT.TLS.InsecureSkipVerify,
				CACertFile:         settings.MQTT.TLS.CACertFile,
				ClientCertFile:     settings.MQTT.TLS.ClientCertFile,
				ClientKeyFile:      settings.MQTT.TLS.ClientKeyFile,
			},
		})
	}

	var collector *metrics.Collector
	var metricsIface control.MetricsProvider
	if settings.Metrics.Enabled {
		collector = metrics.New()
		metricsIface = collector // assigned only when non-nil, avoiding a typed-nil interface
	}

	var shoutrrrURLs []string
	sink := notify.NewSink(mqttClient, settings.MQTT.Topic, shoutrrrURLs)
	targets := []player.Notifier{sink}

	var recorder player.Recorder
	if collector != nil {
		targets = append(targets, collector)
		recorder = collector
	}
	combined := notify.NewMulti(targets...)

	p := player.New(registry, decoder.FileOpener{}, buf, outputs, settings.Audio.CrossfadeSeconds, combined, recorder)

	ctrl := control.New(p, metricsIface)

	return &daemon{player: p, control: ctrl, mqtt: mqttClient, listen: settings.Metrics.Listen}, nil
}

func buildDecoderRegistry(cfgs []config.DecoderConfig) *decoder.Registry {
	registry := decoder.NewRegistry()
	enabled := make(map[string]bool, len(cfgs))
	for _, c := range cfgs {
		enabled[c.Plugin] = c.Enabled
	}

	candidates := map[string]decoder.Plugin{
		"null": decodernull.New(),
		"wave": decoderwave.New(),
		"flac": decoderflac.New(),
	}
	for name, plugin := range candidates {
		if on, ok := enabled[name]; ok && !on {
			continue
		}
		registry.Register(plugin)
	}
	return registry
}

func buildOutputs(cfgs []config.AudioOutputConfig, rgCfg config.ReplayGainSettings) ([]*output.Control, error) {
	var outputs []*output.Control
	for _, c := range cfgs {
		if !c.Enabled {
			continue
		}
		factory, err := outputPluginFactory(c.Type)
		if err != nil {
			return nil, err
		}
		sink, err := factory.Create(c.Extra)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", c.Name, err)
		}
		outputs = append(outputs, output.New(c.Name, sink, rgCfg))
	}
	return outputs, nil
}

func outputPluginFactory(kind string) (output.Plugin, error) {
	switch kind {
	case "null":
		return outputnull.New(), nil
	case "wave":
		return outputwave.New(), nil
	case "soundcard":
		return outputsoundcard.New(), nil
	case "stream":
		return outputstream.New(), nil
	default:
		return nil, errors.Newf("unknown output type %q", kind).
			Component("cmd").Category(errors.CategoryValidation).Build()
	}
}
