// Package meminfo reports how much memory the station has to work with.
package meminfo

import (
	"context"
	"fmt"
	"runtime"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/mem"
)

// Report combines system memory figures with the Go runtime's own usage.
type Report struct {
	TotalBytes     uint64
	AvailableBytes uint64
	UsedPercent    float64
	HeapAllocBytes uint64
	HeapSysBytes   uint64
	StackSysBytes  uint64
	Goroutines     int
}

// External reports whether system memory beyond what the Go heap already
// reserved is available.
func (r Report) External() bool {
	return r.AvailableBytes > r.HeapSysBytes
}

func (r Report) String() string {
	return fmt.Sprintf("total %s, available %s (%.1f%% used), heap %s/%s, stack %s, %d goroutines",
		FormatBytes(r.TotalBytes), FormatBytes(r.AvailableBytes), r.UsedPercent,
		FormatBytes(r.HeapAllocBytes), FormatBytes(r.HeapSysBytes),
		FormatBytes(r.StackSysBytes), r.Goroutines)
}

// VirtualMemoryFunc returns system memory statistics.
type VirtualMemoryFunc func(ctx context.Context) (*mem.VirtualMemoryStat, error)

// Reader collects Reports.
type Reader struct {
	virtual VirtualMemoryFunc
}

func NewReader() *Reader {
	return &Reader{virtual: mem.VirtualMemoryWithContext}
}

// WithVirtualMemory replaces the system memory source.
func (r *Reader) WithVirtualMemory(f VirtualMemoryFunc) *Reader {
	r.virtual = f
	return r
}

func (r *Reader) Read(ctx context.Context) (Report, error) {
	vm, err := r.virtual(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("read system memory: %w", err)
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return Report{
		TotalBytes:     vm.Total,
		AvailableBytes: vm.Available,
		UsedPercent:    vm.UsedPercent,
		HeapAllocBytes: ms.HeapAlloc,
		HeapSysBytes:   ms.HeapSys,
		StackSysBytes:  ms.StackSys,
		Goroutines:     runtime.NumGoroutine(),
	}, nil
}

// Log reads a report and logs it at info level.
func (r *Reader) Log(ctx context.Context) {
	rep, err := r.Read(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("meminfo: report failed")
		return
	}
	log.Info().Msgf("meminfo: %s", rep)
}

// FormatBytes renders n with a binary unit, e.g. "4.0 MiB".
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
