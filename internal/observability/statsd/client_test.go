package statsd

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientDisabledIsSafe(t *testing.T) {
	client, err := NewClient(Config{Enabled: false})
	require.NoError(t, err)
	assert.False(t, client.Enabled())

	// No-ops, must not panic.
	client.Count("a", 1, nil)
	client.Gauge("b", 1.5, nil)
	client.Timing("c", time.Second, nil)
	require.NoError(t, client.Close())
}

func TestClientEmitsLineProtocol(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() {
		_ = pc.Close()
	}()

	client, err := NewClient(Config{
		Enabled:    true,
		Address:    pc.LocalAddr().String(),
		Prefix:     "applyflow.",
		GlobalTags: map[string]string{"env": "test"},
	})
	require.NoError(t, err)
	defer func() {
		_ = client.Close()
	}()
	require.True(t, client.Enabled())

	client.Count("application.transition", 1, map[string]string{"transition": "completed"})

	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 512)
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)

	line := string(buf[:n])
	assert.True(t, strings.HasPrefix(line, "applyflow.application.transition:1|c"), line)
	assert.Contains(t, line, "env:test")
	assert.Contains(t, line, "transition:completed")
}

func TestMetricNameNormalization(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"app runs/total", "app_runs_total"},
		{"..dots..", "dots"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeMetricName(tt.in), tt.in)
	}
}
