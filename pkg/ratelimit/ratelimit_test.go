package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_Allow(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	now := start
	l := New(6, 2) // one token every 10s
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"), "burst spent")
	assert.True(t, l.Allow("b"), "clients are independent")

	now = now.Add(10 * time.Second)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	l.Reset("a")
	assert.True(t, l.Allow("a"))
}

func TestLimiter_Blocked(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New(6, 1)
	l.now = func() time.Time { return now }

	assert.False(t, l.Blocked("a"), "unknown clients are not blocked")
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Blocked("a"))
	assert.True(t, l.Blocked("a"), "checking spends nothing")

	now = now.Add(10 * time.Second)
	assert.False(t, l.Blocked("a"))
	assert.True(t, l.Allow("a"))
}

func TestLimiter_SweepsIdleClients(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New(60, 1)
	l.now = func() time.Time { return now }

	l.Allow("a")
	l.Allow("b")
	assert.Equal(t, 2, l.Len())

	now = now.Add(idleAfter + 2*time.Minute)
	l.Allow("c")
	assert.Equal(t, 1, l.Len())
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remote     string
		headers    map[string]string
		trustProxy bool
		expected   string
	}{
		{"remote addr", "10.0.0.1:5555", nil, false, "10.0.0.1"},
		{"ipv6", "[::1]:80", nil, false, "::1"},
		{"no port", "10.0.0.2", nil, false, "10.0.0.2"},
		{"forwarded ignored", "10.0.0.1:5555", map[string]string{"X-Forwarded-For": "1.2.3.4"}, false, "10.0.0.1"},
		{"forwarded trusted", "10.0.0.1:5555", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.9"}, true, "1.2.3.4"},
		{"real ip trusted", "10.0.0.1:5555", map[string]string{"X-Real-IP": "5.6.7.8"}, true, "5.6.7.8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, ClientIP(r, tt.trustProxy))
		})
	}
}
