package volume

import "sync"

// cache holds statistics derived from the voxel data. Writers invalidate
// it; scans fill it only after they have completed, and only if no write
// happened in between.
type cache struct {
	mu  sync.Mutex
	gen uint64

	minMaxValid bool
	min, max    float64
	frameMin    []float64
	frameMax    []float64

	distributions map[int]*Histogram
}

type minMax struct {
	min, max           float64
	frameMin, frameMax []float64
}

func (c *cache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.minMaxValid = false
	c.frameMin, c.frameMax = nil, nil
	c.distributions = nil
}

func (c *cache) loadMinMax() (minMax, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.minMaxValid {
		return minMax{}, false
	}
	return minMax{min: c.min, max: c.max, frameMin: c.frameMin, frameMax: c.frameMax}, true
}

func (c *cache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *cache) storeMinMax(m minMax, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.minMaxValid = true
	c.min, c.max = m.min, m.max
	c.frameMin, c.frameMax = m.frameMin, m.frameMax
}

// loadDistribution returns the shared cached histogram; callers hand out clones.
func (c *cache) loadDistribution(bins int) *Histogram {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.distributions[bins]
}

func (c *cache) storeDistribution(bins int, h *Histogram, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	if c.distributions == nil {
		c.distributions = make(map[int]*Histogram)
	}
	c.distributions[bins] = h
}
