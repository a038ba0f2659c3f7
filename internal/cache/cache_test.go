package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGetDelete(t *testing.T) {
	c := NewCache(time.Minute, 0)
	defer c.Close()

	_, ok := c.Get("orders")
	assert.False(t, ok)

	c.Set("orders", []byte("a,b\n"))
	data, ok := c.Get("orders")
	require.True(t, ok)
	assert.Equal(t, "a,b\n", string(data))
	assert.Equal(t, 1, c.Size())

	c.Delete("orders")
	_, ok = c.Get("orders")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats["hits"])
	assert.Equal(t, int64(2), stats["misses"])
}

func TestCache_Expiry(t *testing.T) {
	c := NewCache(10*time.Millisecond, 0)
	defer c.Close()

	c.Set("rfm", []byte("x"))
	time.Sleep(20 * time.Millisecond)

	stats := c.Stats()
	assert.Equal(t, 1, stats["expired_items"])

	_, ok := c.Get("rfm")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size(), "expired entries are dropped on read")
}

func TestCache_CleanupLoop(t *testing.T) {
	c := NewCache(5*time.Millisecond, 5*time.Millisecond)
	defer c.Close()

	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))

	assert.Eventually(t, func() bool { return c.Size() == 0 }, time.Second, 5*time.Millisecond)
}

func TestCache_ClearAndClose(t *testing.T) {
	c := NewCache(time.Minute, time.Millisecond)
	c.Set("a", []byte("1"))
	c.Clear()
	assert.Equal(t, 0, c.Size())

	c.Close()
	c.Close()
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("upload", "orders"), Key("upload", "orders"))
	assert.NotEqual(t, Key("upload", "orders"), Key("upload", "rfm"))
	assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"))
	assert.Len(t, Key("x"), 32)
}
