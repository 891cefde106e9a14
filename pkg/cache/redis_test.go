package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incubatehub/compliance-api/pkg/config"
)

func TestClientOptionsFromHostAndPort(t *testing.T) {
	opts, err := clientOptions(config.RedisConfig{Host: "cache.internal", Port: 6380, Password: "pw", DB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, defaultTimeout, opts.DialTimeout)
}

func TestClientOptionsURLTakesPrecedence(t *testing.T) {
	opts, err := clientOptions(config.RedisConfig{
		URL:     "rediss://:secret@managed.example:6390/4",
		Host:    "ignored",
		Port:    1,
		Timeout: 2 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "managed.example:6390", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 4, opts.DB)
	assert.NotNil(t, opts.TLSConfig)
	assert.Equal(t, 2*time.Second, opts.ReadTimeout)
}

func TestNewRedisRejectsBadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), config.RedisConfig{URL: "http://nope"})
	assert.Error(t, err)
}
