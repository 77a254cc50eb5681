package stores

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseStoreGetSet(t *testing.T) {
	rs := NewResponseStore(5*time.Minute, 50)

	_, ok := rs.Get("GET:/api/content/1")
	assert.False(t, ok)

	rs.Set("GET:/api/content/1", 200, []byte(`{"id":"1"}`))

	entry, ok := rs.Get("GET:/api/content/1")
	require.True(t, ok)
	assert.Equal(t, 200, entry.Status)
	assert.Equal(t, []byte(`{"id":"1"}`), entry.Body)
}

func TestResponseStoreExpiry(t *testing.T) {
	rs := NewResponseStore(10*time.Millisecond, 50)

	rs.Set("key", 200, []byte("body"))
	time.Sleep(20 * time.Millisecond)

	_, ok := rs.Get("key")
	assert.False(t, ok)
	assert.Equal(t, 0, rs.Len(), "expired entries are pruned on access")
}

func TestResponseStoreEvictsOldestWhenFull(t *testing.T) {
	rs := NewResponseStore(5*time.Minute, 3)

	for i := 0; i < 3; i++ {
		rs.Set(fmt.Sprintf("key-%d", i), 200, []byte("body"))
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, 3, rs.Len())

	rs.Set("key-3", 200, []byte("body"))

	assert.Equal(t, 3, rs.Len())
	_, ok := rs.Get("key-0")
	assert.False(t, ok, "oldest entry is evicted")
	_, ok = rs.Get("key-3")
	assert.True(t, ok)
}

func TestResponseStoreOverwriteDoesNotEvict(t *testing.T) {
	rs := NewResponseStore(5*time.Minute, 2)

	rs.Set("a", 200, []byte("1"))
	rs.Set("b", 200, []byte("2"))
	rs.Set("a", 200, []byte("3"))

	assert.Equal(t, 2, rs.Len())
	entry, ok := rs.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("3"), entry.Body)
	_, ok = rs.Get("b")
	assert.True(t, ok)
}

func TestResponseStoreInvalidateAndClear(t *testing.T) {
	rs := NewResponseStore(5*time.Minute, 50)

	rs.Set("a", 200, []byte("1"))
	rs.Set("b", 200, []byte("2"))

	rs.Invalidate("a")
	_, ok := rs.Get("a")
	assert.False(t, ok)

	rs.Clear()
	assert.Equal(t, 0, rs.Len())
}
