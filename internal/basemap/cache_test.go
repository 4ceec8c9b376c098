package basemap

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_BasicGetPut(t *testing.T) {
	c := NewCache(100, time.Hour)

	assert.Nil(t, c.Get(TileKey{10, 880, 403}))

	data := []byte("png")
	c.Put(TileKey{10, 880, 403}, data)
	assert.Equal(t, data, c.Get(TileKey{10, 880, 403}))
	assert.Nil(t, c.Get(TileKey{10, 880, 404}))
}

func TestCache_TTLExpiration(t *testing.T) {
	c := NewCache(100, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Put(TileKey{1, 0, 0}, []byte("tile"))
	assert.NotNil(t, c.Get(TileKey{1, 0, 0}))

	now = now.Add(2 * time.Minute)
	assert.Nil(t, c.Get(TileKey{1, 0, 0}))
	assert.Equal(t, 0, c.Len())
}

func TestCache_LRUEviction(t *testing.T) {
	c := NewCache(3, time.Hour)

	c.Put(TileKey{0, 0, 0}, []byte("a"))
	c.Put(TileKey{1, 0, 0}, []byte("b"))
	c.Put(TileKey{1, 1, 0}, []byte("c"))

	// Touch "a" so "b" becomes the oldest.
	c.Get(TileKey{0, 0, 0})
	c.Put(TileKey{1, 1, 1}, []byte("d"))

	assert.NotNil(t, c.Get(TileKey{0, 0, 0}))
	assert.Nil(t, c.Get(TileKey{1, 0, 0}))
	assert.NotNil(t, c.Get(TileKey{1, 1, 0}))
	assert.NotNil(t, c.Get(TileKey{1, 1, 1}))
	assert.Equal(t, 3, c.Len())
}

func TestCache_UpdateInPlace(t *testing.T) {
	c := NewCache(2, time.Hour)
	c.Put(TileKey{0, 0, 0}, []byte("old"))
	c.Put(TileKey{0, 0, 0}, []byte("new"))

	assert.Equal(t, []byte("new"), c.Get(TileKey{0, 0, 0}))
	assert.Equal(t, 1, c.Len())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := NewCache(50, time.Hour)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				k := TileKey{Z: 5, X: i, Y: j % 10}
				c.Put(k, []byte("t"))
				c.Get(k)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 50)
}
