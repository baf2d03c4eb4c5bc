package api

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// HostStats is the aggregate host-level figure set reported by GET /stats
// (SPEC_FULL §4.5/§4.7 "(NEW)").
type HostStats struct {
	CPUPercent  float64 `json:"cpu_percent"`
	MemoryUsed  uint64  `json:"memory_used_bytes"`
	MemoryTotal uint64  `json:"memory_total_bytes"`
	DiskTotal   uint64  `json:"disk_total_bytes,omitempty"`
}

type statsResponse struct {
	TotalHostStats        HostStats `json:"total_host_stats"`
	OnlineContainersCount int       `json:"online_containers_count"`
	Uptime                string    `json:"uptime"`
}

// cpuSample is two /proc/stat "cpu " lines apart; percent busy needs a delta.
// Guarded by cpuSampleMu since concurrent /stats requests call
// sampleCPUPercent from different goroutines.
var (
	cpuSampleMu   sync.Mutex
	lastCPUSample *procStatSample
)

type procStatSample struct {
	idle, total uint64
	at          time.Time
}

// SampleHostStats reads CPU and memory figures from /proc/meminfo and
// /proc/stat. If /proc/meminfo cannot be read it returns a zero HostStats
// and the error; if /proc/stat cannot be read it returns the memory figures
// with a zero CPU percentage and the error. DiskTotal is never filled in.
func SampleHostStats() (HostStats, error) {
	mem, err := sampleMemInfo()
	if err != nil {
		return HostStats{MemoryTotal: 0}, err
	}

	cpuPercent, err := sampleCPUPercent()
	if err != nil {
		return HostStats{MemoryUsed: mem.used, MemoryTotal: mem.total}, err
	}

	return HostStats{
		CPUPercent:  cpuPercent,
		MemoryUsed:  mem.used,
		MemoryTotal: mem.total,
	}, nil
}

type memSample struct {
	used, total uint64
}

func sampleMemInfo() (memSample, error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return memSample{}, fmt.Errorf("open /proc/meminfo: %w", err)
	}
	defer f.Close()

	var totalKB, availableKB uint64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			totalKB, _ = strconv.ParseUint(fields[1], 10, 64)
		case "MemAvailable:":
			availableKB, _ = strconv.ParseUint(fields[1], 10, 64)
		}
	}
	if err := scanner.Err(); err != nil {
		return memSample{}, fmt.Errorf("scan /proc/meminfo: %w", err)
	}

	total := totalKB * 1024
	available := availableKB * 1024
	used := uint64(0)
	if total > available {
		used = total - available
	}
	return memSample{used: used, total: total}, nil
}

// sampleCPUPercent computes CPU busy percentage as a delta against the last
// call's /proc/stat "cpu " line. The first call in the process's lifetime
// always returns 0 since there is no prior sample to diff against.
func sampleCPUPercent() (float64, error) {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return 0, fmt.Errorf("open /proc/stat: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return 0, fmt.Errorf("read /proc/stat: empty")
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) < 5 || fields[0] != "cpu" {
		return 0, fmt.Errorf("unexpected /proc/stat format")
	}

	var total uint64
	var idle uint64
	for i, field := range fields[1:] {
		v, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			continue
		}
		total += v
		if i == 3 { // idle is the 4th field
			idle = v
		}
	}

	now := procStatSample{idle: idle, total: total, at: time.Now()}

	cpuSampleMu.Lock()
	prev := lastCPUSample
	lastCPUSample = &now
	cpuSampleMu.Unlock()

	if prev == nil {
		return 0, nil
	}

	totalDelta := now.total - prev.total
	idleDelta := now.idle - prev.idle
	if totalDelta == 0 {
		return 0, nil
	}
	return (1 - float64(idleDelta)/float64(totalDelta)) * 100, nil
}

// formatUptime renders d as "Nd Nh Nm", omitting zero leading components and
// defaulting to "0m" (spec §4.5 GET /stats).
func formatUptime(d time.Duration) string {
	total := int(d.Minutes())
	days := total / (24 * 60)
	hours := (total % (24 * 60)) / 60
	minutes := total % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || len(parts) > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	parts = append(parts, fmt.Sprintf("%dm", minutes))
	return strings.Join(parts, " ")
}
