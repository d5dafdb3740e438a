// Copyright (c) the snow authors
// Licensed under the MIT license

// Package capacitycache memoizes per-line capacity estimates.
//
// It is grounded on the teacher's internal/decompressioncache package: the
// same "cache by key over an expensive step" shape, here applied to the
// whitespace encoder's capacity formula instead of a decompression step.
// Cover text commonly repeats identical lines (blank lines, fixed
// boilerplate, templated rows), so hashing the line content once and
// memoizing its (lo, hi) bit capacity avoids recomputing the same
// arithmetic for every repeat when reporting -S over a large file.
package capacitycache

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/allegro/bigcache/v3"
	"github.com/cespare/xxhash/v2"

	"github.com/hollowtext/snow/internal/wscode"
)

// Cache memoizes wscode.LineCapacity results keyed by (line content,
// target line length).
type Cache struct {
	bc *bigcache.BigCache
}

// New builds a capacity cache sized for a single run's worth of distinct
// cover lines.
func New() (*Cache, error) {
	bc, err := bigcache.New(context.Background(), bigcache.Config{
		HardMaxCacheSize: 64, // megabytes
		Shards:           16,
		MaxEntrySize:     64,
	})
	if err != nil {
		return nil, fmt.Errorf("capacitycache: %w", err)
	}
	return &Cache{bc: bc}, nil
}

// LineCapacity returns the memoized (lo, hi) bit capacity of line at the
// given target length, computing and caching it on a miss.
func (c *Cache) LineCapacity(line string, lineLength int) (lo, hi uint64) {
	key := cacheKey(line, lineLength)

	if entry, err := c.bc.Get(key); err == nil && len(entry) == 16 {
		return binary.LittleEndian.Uint64(entry[0:8]), binary.LittleEndian.Uint64(entry[8:16])
	}

	lo, hi = wscode.LineCapacity(line, lineLength)

	var entry [16]byte
	binary.LittleEndian.PutUint64(entry[0:8], lo)
	binary.LittleEndian.PutUint64(entry[8:16], hi)
	_ = c.bc.Set(key, entry[:]) // a cache-set failure just costs a recompute next time

	return lo, hi
}

// Capacity sums LineCapacity across lines, then allows for the sentinel
// tab consumed on the first line actually used for data, matching
// wscode.Capacity's bookkeeping.
func (c *Cache) Capacity(lines []string, lineLength int) (lo, hi uint64) {
	for _, line := range lines {
		l, h := c.LineCapacity(line, lineLength)
		lo += l
		hi += h
	}
	if lo > 0 {
		lo--
		hi--
	}
	return lo, hi
}

func cacheKey(line string, lineLength int) string {
	h := xxhash.Sum64String(line)
	return strconv.FormatUint(h, 36) + "_" + strconv.Itoa(lineLength)
}
