// Package mqtt implements a reconnecting MQTT publisher used to announce
// player state changes (song started, queue idle, output failed) to
// external subscribers such as Home Assistant or a status dashboard.
package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/tunewave/tunewaved/internal/logging"
)

// TLSConfig controls whether the client connects over a secure transport
// and how strictly it validates the broker's certificate.
type TLSConfig struct {
	Enabled            bool
	InsecureSkipVerify bool
	CACertFile         string
	ClientCertFile     string
	ClientKeyFile      string
}

// Config describes how to reach and authenticate against the MQTT broker.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	TLS      TLSConfig
}

// Client publishes player notifications over MQTT and manages its own
// reconnection with backoff when the broker connection drops.
type Client interface {
	Connect(ctx context.Context) error
	Publish(ctx context.Context, topic string, payload string) error
	IsConnected() bool
	Disconnect()
}

type serviceLogger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// client implements the Client interface.
type client struct {
	config          Config
	internalClient  mqtt.Client
	lastConnAttempt time.Time
	mu              sync.Mutex
	reconnectTimer  *time.Timer
	reconnectStop   chan struct{}
	log             serviceLogger
}

// NewClient creates a new MQTT client with the provided configuration.
func NewClient(cfg Config) Client {
	if cfg.ClientID == "" {
		cfg.ClientID = "tunewaved"
	}
	return &client{
		config:        cfg,
		reconnectStop: make(chan struct{}),
		log:           loggerOrDiscard(logging.ForService("mqtt")),
	}
}

// discardLogger swallows log calls when the global logging package has not
// been initialized yet, so the mqtt client never depends on init ordering.
type discardLogger struct{}

func (discardLogger) Info(string, ...any)  {}
func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}

func loggerOrDiscard(l serviceLogger) serviceLogger {
	if l == nil {
		return discardLogger{}
	}
	return l
}

// Connect attempts to establish a connection to the MQTT broker.
// It first resolves the broker's hostname and then attempts to connect.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Since(c.lastConnAttempt) < 1*time.Minute {
		return fmt.Errorf("connection attempt too recent")
	}
	c.lastConnAttempt = time.Now()

	if err := c.resolveBrokerHostname(); err != nil {
		return fmt.Errorf("failed to resolve broker hostname: %w", err)
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetConnectRetry(true)

	if c.config.TLS.Enabled {
		tlsCfg, err := buildTLSConfig(c.config.TLS)
		if err != nil {
			return fmt.Errorf("failed to build tls config: %w", err)
		}
		opts.SetTLSConfig(tlsCfg)
	}

	c.internalClient = mqtt.NewClient(opts)

	done := make(chan mqtt.Token, 1)
	go func() { done <- c.internalClient.Connect() }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case token := <-done:
		if !token.WaitTimeout(30 * time.Second) {
			return fmt.Errorf("connection timeout")
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("connection error: %w", err)
		}
	}

	return nil
}

// buildTLSConfig constructs a *tls.Config from the broker TLS settings,
// loading the CA and client certificate/key files when present.
func buildTLSConfig(cfg TLSConfig) (*tls.Config, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // explicit opt-in via config
		MinVersion:         tls.VersionTLS12,
	}

	if cfg.CACertFile != "" {
		caCert, err := os.ReadFile(cfg.CACertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA cert %s", cfg.CACertFile)
		}
		tlsCfg.RootCAs = pool
	}

	if cfg.ClientCertFile != "" && cfg.ClientKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertFile, cfg.ClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client keypair: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	return tlsCfg, nil
}

// resolveBrokerHostname attempts to resolve the hostname of the MQTT broker.
// Literal IP addresses are left untouched since no lookup is required.
func (c *client) resolveBrokerHostname() error {
	u, err := url.Parse(c.config.Broker)
	if err != nil {
		return fmt.Errorf("invalid broker URL: %w", err)
	}

	host := u.Hostname()
	if host == "" || isIPAddress(host) {
		return nil
	}

	_, err = net.LookupHost(host)
	if err != nil {
		return fmt.Errorf("failed to resolve hostname %s: %w", host, err)
	}

	return nil
}

// isIPAddress reports whether s (optionally wrapped in a scheme, port, or
// IPv6 brackets) names a literal IP address rather than a hostname.
func isIPAddress(s string) bool {
	if s == "" {
		return false
	}

	if strings.Contains(s, "://") {
		if u, err := url.Parse(s); err == nil {
			s = u.Host
		}
	}

	if strings.HasPrefix(s, "[") {
		if host, _, err := net.SplitHostPort(s); err == nil {
			s = host
		} else {
			s = strings.Trim(s, "[]")
		}
	} else if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}

	return net.ParseIP(s) != nil
}

// Publish sends a message to the specified topic on the MQTT broker.
func (c *client) Publish(ctx context.Context, topic string, payload string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.IsConnected() {
		return fmt.Errorf("not connected to MQTT broker")
	}

	done := make(chan mqtt.Token, 1)
	go func() { done <- c.internalClient.Publish(topic, 0, false, payload) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case token := <-done:
		if !token.WaitTimeout(10 * time.Second) {
			return fmt.Errorf("publish timeout")
		}
		return token.Error()
	}
}

// IsConnected returns true if the client is currently connected to the MQTT broker.
func (c *client) IsConnected() bool {
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Disconnect closes the connection to the MQTT broker.
func (c *client) Disconnect() {
	if c.internalClient != nil && c.internalClient.IsConnected() {
		c.internalClient.Disconnect(250)
	}
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
	}
	select {
	case <-c.reconnectStop:
	default:
		close(c.reconnectStop)
	}
}

func (c *client) onConnect(mqtt.Client) {
	c.log.Info("connected to broker", "broker", c.config.Broker)
}

func (c *client) onConnectionLost(_ mqtt.Client, err error) {
	c.log.Warn("connection to broker lost", "broker", c.config.Broker, "error", err)
	c.startReconnectTimer()
}

func (c *client) startReconnectTimer() {
	c.reconnectTimer = time.AfterFunc(time.Minute, func() {
		select {
		case <-c.reconnectStop:
			return
		default:
			c.reconnectWithBackoff()
		}
	})
}

func (c *client) reconnectWithBackoff() {
	backoff := time.Second
	maxBackoff := 5 * time.Minute

	for {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := c.Connect(ctx)
		cancel()

		if err == nil {
			c.log.Info("reconnected to broker", "broker", c.config.Broker)
			c.startReconnectTimer()
			return
		}

		c.log.Error("reconnect attempt failed", "broker", c.config.Broker, "error", err, "retry_in", backoff)

		select {
		case <-time.After(backoff):
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		case <-c.reconnectStop:
			return
		}
	}
}
