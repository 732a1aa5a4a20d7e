// Package notify publishes player lifecycle events to external sinks:
// MQTT (the teacher's own reconnecting publisher, internal/mqtt) and,
// optionally, any github.com/nicholas-fedor/shoutrrr-supported service
// (Discord, Slack, and the like), per SPEC_FULL.md's supplemented
// notification surface.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nicholas-fedor/shoutrrr"

	"github.com/tunewave/tunewaved/internal/logging"
	"github.com/tunewave/tunewaved/internal/mqtt"
	"github.com/tunewave/tunewaved/internal/player"
	"github.com/tunewave/tunewaved/internal/songref"
)

const publishTimeout = 5 * time.Second

// Sink implements player.Notifier, publishing every event as a small JSON
// payload to MQTT. Idle and OutputFailed events are also sent, as a
// human-readable message, to each configured shoutrrr URL; SongChanged
// goes to MQTT only.
type Sink struct {
	mqttClient   mqtt.Client
	topic        string
	shoutrrrURLs []string
	logger       *slog.Logger
}

// NewSink creates a Sink. mqttClient may be nil (MQTT disabled); the
// shoutrrrURLs slice may be empty (no alternate sink configured).
func NewSink(mqttClient mqtt.Client, topic string, shoutrrrURLs []string) *Sink {
	logger := logging.ForService("notify")
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		mqttClient:   mqttClient,
		topic:        topic,
		shoutrrrURLs: shoutrrrURLs,
		logger:       logger.With("component", "notify_sink"),
	}
}

var _ player.Notifier = (*Sink)(nil)

// Idle implements player.Notifier (spec §4.3 "idle event fired").
func (s *Sink) Idle(source string) {
	s.publish(map[string]any{"event": "idle", "source": source})
	s.fanOut(fmt.Sprintf("playback idle (%s)", source))
}

// SongChanged implements player.Notifier.
func (s *Sink) SongChanged(song *songref.SongRef) {
	if song == nil {
		return
	}
	s.publish(map[string]any{
		"event":  "song_changed",
		"uri":    song.URI,
		"title":  song.Tag.Title,
		"artist": song.Tag.Artist,
	})
}

// OutputFailed implements player.Notifier.
func (s *Sink) OutputFailed(name string, err error) {
	s.publish(map[string]any{"event": "output_failed", "output": name, "error": err.Error()})
	s.fanOut(fmt.Sprintf("output %q failed: %v", name, err))
}

func (s *Sink) publish(payload map[string]any) {
	if s.mqttClient == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("marshal notify payload failed", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := s.mqttClient.Publish(ctx, s.topic, string(data)); err != nil {
		s.logger.Warn("mqtt publish failed", "error", err)
	}
}

func (s *Sink) fanOut(message string) {
	for _, url := range s.shoutrrrURLs {
		if err := shoutrrr.Send(url, message); err != nil {
			s.logger.Warn("shoutrrr send failed", "url", url, "error", err)
		}
	}
}

// Multi fans a single event out to every Notifier it wraps, used to run
// the MQTT/shoutrrr Sink and the metrics Collector side by side (spec §9's
// Notifier being one seam both consumers share).
type Multi struct {
	targets []player.Notifier
}

// NewMulti creates a Multi over targets, skipping any nil entry.
func NewMulti(targets ...player.Notifier) *Multi {
	m := &Multi{}
	for _, t := range targets {
		if t != nil {
			m.targets = append(m.targets, t)
		}
	}
	return m
}

var _ player.Notifier = (*Multi)(nil)

func (m *Multi) Idle(source string) {
	for _, t := range m.targets {
		t.Idle(source)
	}
}

func (m *Multi) SongChanged(song *songref.SongRef) {
	for _, t := range m.targets {
		t.SongChanged(song)
	}
}

func (m *Multi) OutputFailed(name string, err error) {
	for _, t := range m.targets {
		t.OutputFailed(name, err)
	}
}
