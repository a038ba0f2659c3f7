package monitoring

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"
)

// MemoryStats is a snapshot of runtime memory usage
type MemoryStats struct {
	Alloc        uint64    `json:"alloc_bytes"`
	Sys          uint64    `json:"sys_bytes"`
	HeapAlloc    uint64    `json:"heap_alloc_bytes"`
	HeapSys      uint64    `json:"heap_sys_bytes"`
	HeapInuse    uint64    `json:"heap_inuse_bytes"`
	HeapObjects  uint64    `json:"heap_objects"`
	NumGC        uint32    `json:"num_gc"`
	PauseTotalNs uint64    `json:"pause_total_ns"`
	NumGoroutine int       `json:"num_goroutine"`
	Timestamp    time.Time `json:"timestamp"`
}

// MemoryMonitor samples runtime memory into Metrics and warns when the heap
// grows past a threshold. Parsed datasets live in memory for the duration of
// a request, so large uploads show up here first
type MemoryMonitor struct {
	interval      time.Duration
	warnHeapBytes uint64
	metrics       *Metrics
	logger        *Logger

	mutex sync.RWMutex
	last  MemoryStats
}

// NewMemoryMonitor creates a monitor; warnHeapBytes of 0 disables the warning
func NewMemoryMonitor(interval time.Duration, warnHeapBytes uint64, metrics *Metrics, logger *Logger) *MemoryMonitor {
	return &MemoryMonitor{
		interval:      interval,
		warnHeapBytes: warnHeapBytes,
		metrics:       metrics,
		logger:        logger,
	}
}

// Run samples until ctx is done
func (mm *MemoryMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(mm.interval)
	defer ticker.Stop()

	mm.Collect()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mm.Collect()
		}
	}
}

// Collect takes one sample
func (mm *MemoryMonitor) Collect() MemoryStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	stats := MemoryStats{
		Alloc:        ms.Alloc,
		Sys:          ms.Sys,
		HeapAlloc:    ms.HeapAlloc,
		HeapSys:      ms.HeapSys,
		HeapInuse:    ms.HeapInuse,
		HeapObjects:  ms.HeapObjects,
		NumGC:        ms.NumGC,
		PauseTotalNs: ms.PauseTotalNs,
		NumGoroutine: runtime.NumGoroutine(),
		Timestamp:    time.Now(),
	}

	mm.mutex.Lock()
	mm.last = stats
	mm.mutex.Unlock()

	if mm.metrics != nil {
		mm.metrics.RecordGCMetrics(int64(ms.NumGC), int64(ms.PauseTotalNs), int64(ms.HeapAlloc), int64(ms.HeapSys))
	}

	if mm.warnHeapBytes > 0 && ms.HeapAlloc > mm.warnHeapBytes && mm.logger != nil {
		mm.logger.SystemLogger("heap_above_threshold", fmt.Sprintf(
			"heap:%dMB threshold:%dMB goroutines:%d",
			ms.HeapAlloc/(1024*1024),
			mm.warnHeapBytes/(1024*1024),
			stats.NumGoroutine,
		))
	}

	return stats
}

// Last returns the most recent sample
func (mm *MemoryMonitor) Last() MemoryStats {
	mm.mutex.RLock()
	defer mm.mutex.RUnlock()
	return mm.last
}
