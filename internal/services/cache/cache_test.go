package cache

import (
	"context"
	"testing"
	"time"

	"github.com/MasterHarun/fantastic-octo-fiesta/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(enabled bool) Service {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewCache(&config.Config{
		Cache: config.CacheConfig{
			Enabled: enabled,
			TTL:     time.Minute,
			MaxSize: 100,
		},
	}, logger)
}

func TestCache_SetAndGet(t *testing.T) {
	c := newTestCache(true)
	ctx := context.Background()

	_, found := c.Get(ctx, "hello", "You are a pirate.", "gpt-3.5-turbo")
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "hello", "You are a pirate.", "gpt-3.5-turbo", "Ahoy!"))

	answer, found := c.Get(ctx, "hello", "You are a pirate.", "gpt-3.5-turbo")
	assert.True(t, found)
	assert.Equal(t, "Ahoy!", answer)
}

func TestCache_KeyCoversPersonaAndModel(t *testing.T) {
	c := newTestCache(true)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "hello", "You are a pirate.", "gpt-3.5-turbo", "Ahoy!"))

	_, found := c.Get(ctx, "hello", "You are a teacher.", "gpt-3.5-turbo")
	assert.False(t, found, "different persona must not share answers")

	_, found = c.Get(ctx, "hello", "You are a pirate.", "gpt-4")
	assert.False(t, found, "different model must not share answers")
}

func TestCache_Clear(t *testing.T) {
	c := newTestCache(true)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "hello", "p", "m", "answer"))
	require.NoError(t, c.Clear(ctx))

	_, found := c.Get(ctx, "hello", "p", "m")
	assert.False(t, found)
}

func TestCache_Disabled(t *testing.T) {
	c := newTestCache(false)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "hello", "p", "m", "answer"))
	_, found := c.Get(ctx, "hello", "p", "m")
	assert.False(t, found)
}
