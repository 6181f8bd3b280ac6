package geom

import (
	"math"
	"sync"
)

// Cache memoizes apertures keyed by quantized (radius, track, angle), so
// the sweep's per-step detection calls don't rebuild an identical
// aperture when neighboring (motion, PA) steps round to the same pixel
// geometry. Build is pure, so caching is safe without
// invalidation.
type Cache struct {
	mu    sync.Mutex
	store map[cacheKey]Aperture
}

type cacheKey struct {
	radius int64
	track  int64
	angle  int64
}

// NewCache creates an empty aperture cache.
func NewCache() *Cache {
	return &Cache{store: make(map[cacheKey]Aperture)}
}

// quantize rounds v to the nearest 1/quantScale, returned as an integer
// key component.
func quantize(v, scale float64) int64 {
	return int64(math.Round(v * scale))
}

// Get returns the cached aperture for (radius, track, angle) if present,
// building and storing it otherwise.
func (c *Cache) Get(radius, track, angle float64) Aperture {
	const (
		radiusScale = 100.0 // 0.01 px
		trackScale  = 10.0  // 0.1 px
		angleScale  = 1000.0
	)
	key := cacheKey{
		radius: quantize(radius, radiusScale),
		track:  quantize(track, trackScale),
		angle:  quantize(WrapPA(angle), angleScale),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ap, ok := c.store[key]; ok {
		return ap
	}
	ap := Build(radius, track, angle)
	c.store[key] = ap
	return ap
}
