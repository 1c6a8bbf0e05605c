package kafka

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

type versionDedupe struct {
	mu  sync.Mutex
	lru *lru.Cache[string, uint64]
}

func newVersionDedupe(size int) *versionDedupe {
	if size <= 0 {
		size = 1024
	}
	c, _ := lru.New[string, uint64](size)
	return &versionDedupe{lru: c}
}

// returns true if v is greater than the last version applied to name
func (d *versionDedupe) shouldApply(name string, v uint64) bool {
	if v == 0 {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.lru.Get(name); ok && v <= last {
		return false
	}
	d.lru.Add(name, v)
	return true
}
