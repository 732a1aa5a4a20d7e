package mqtt

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsIPAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"Simple IPv4", "192.168.1.1", true},
		{"IPv4 with tcp protocol", "tcp://192.168.1.1:1883", true},
		{"IPv4 with port", "127.0.0.1:1883", true},
		{"Simple IPv6", "::1", true},
		{"IPv6 with brackets", "[::1]", true},
		{"IPv6 with port", "[::1]:1883", true},
		{"IPv6 with tcp protocol", "tcp://[2001:db8::1]:1883", true},
		{"Simple hostname", "localhost", false},
		{"Hostname with protocol", "mqtt://localhost:1883", false},
		{"FQDN with port", "test.mosquitto.org:1883", false},
		{"Empty string", "", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, isIPAddress(tt.input))
		})
	}
}

func TestClientPublishWhileDisconnected(t *testing.T) {
	c := NewClient(Config{Broker: "tcp://127.0.0.1:18830", ClientID: "tunewaved-test"})

	err := c.Publish(context.Background(), "tunewave/test", "payload")
	require.Error(t, err)
	assert.False(t, c.IsConnected())
}

func TestClientConnectRateLimited(t *testing.T) {
	c := NewClient(Config{Broker: "tcp://192.0.2.1:1883", ClientID: "tunewaved-test"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = c.Connect(ctx) // first attempt, expected to fail against a blackhole address

	err := c.Connect(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too recent")
}

func TestClientConnectHostnameResolutionFailure(t *testing.T) {
	c := NewClient(Config{Broker: "tcp://unresolvable.invalid.example:1883", ClientID: "tunewaved-test"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.Connect(ctx)
	require.Error(t, err)

	var dnsErr *net.DNSError
	assert.True(t, errors.As(err, &dnsErr))
}

func TestClientDisconnectIdempotent(t *testing.T) {
	c := NewClient(Config{Broker: "tcp://127.0.0.1:18831", ClientID: "tunewaved-test"})
	c.Disconnect()
	c.Disconnect() // must not panic on a double-close of the internal stop channel
}
