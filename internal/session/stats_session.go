package session

import (
	"context"
	"encoding/json"
	"io/fs"
	"path/filepath"
	"time"

	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kswarrior/ks-wings/internal/logger"
)

// statsTick is the sampling period (spec §4.7 step 2 "Every 1 second"). A
// var, not a const, so tests can shrink it for fast tick assertions.
var statsTick = 1 * time.Second

// statsSampleFrame is the JSON object sent to the client each tick (spec
// §4.7 step 2).
type statsSampleFrame struct {
	CPUPercent      float64 `json:"cpu_percent"`
	MemoryBytes     uint64  `json:"memory_bytes"`
	MemoryLimit     uint64  `json:"memory_limit"`
	NetworkRxBytes  uint64  `json:"network_rx_bytes"`
	NetworkTxBytes  uint64  `json:"network_tx_bytes"`
	VolumeSizeMiB   int64   `json:"volume_size_mib"`
	DiskLimitMiB    int64   `json:"disk_limit_mib"`
	StorageExceeded bool    `json:"storage_exceeded"`
	AutoStopped     bool    `json:"auto_stopped,omitempty"`
}

type statsErrorFrame struct {
	Error string `json:"error"`
}

// runStatsSession implements C7: periodic stats sampling, volume-size
// measurement, disk-quota breach detection and one-shot auto-stop (spec
// §4.7).
func (s *Server) runStatsSession(ctx context.Context, conn *websocket.Conn, containerID, volumeID string) {
	log := logger.GetLogger(ctx).With(zap.String("container_id", containerID))

	diskLimitMiB := s.readDiskLimit(volumeID)

	ticker := time.NewTicker(statsTick)
	defer ticker.Stop()

	frames := make(chan Frame, 4)
	go s.readFrames(conn, frames)

	autoStopped := false

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-frames:
			if !ok {
				return
			}
			// Stats sessions accept no authenticated events beyond the
			// handshake; any frame just keeps the read loop alive so a
			// client-initiated close is observed promptly.
		case <-ticker.C:
			sample, err := s.sampleOnce(ctx, containerID, volumeID, diskLimitMiB)
			if err != nil {
				log.Warn("stats sample failed", zap.Error(err))
				if writeErr := writeJSONFrame(conn, statsErrorFrame{Error: "Failed to fetch stats"}); writeErr != nil {
					return
				}
				continue
			}

			if sample.StorageExceeded && !autoStopped {
				if s.containerRunning(ctx, containerID) {
					if err := s.rt.Stop(ctx, containerID); err != nil {
						log.Error("auto-stop on quota breach failed", zap.Error(err))
					} else {
						autoStopped = true
					}
				}
			}
			sample.AutoStopped = autoStopped

			if err := writeJSONFrame(conn, sample); err != nil {
				return
			}
		}
	}
}

// containerRunning reports whether containerID is currently running (spec
// §4.7 step 3 precondition for auto-stop): a container already stopped,
// paused, or removed out-of-band shouldn't be "stopped" again.
func (s *Server) containerRunning(ctx context.Context, containerID string) bool {
	info, err := s.rt.Inspect(ctx, containerID)
	if err != nil {
		return false
	}
	return info.State != nil && info.State.Running
}

func (s *Server) volumePath(volumeID string) string {
	if volumeID == "" {
		return ""
	}
	return filepath.Join(s.volumeRoot, volumeID)
}

func (s *Server) readDiskLimit(volumeID string) int64 {
	if volumeID == "" {
		return 0
	}
	rec, ok, err := s.store.Get(volumeID)
	if err != nil || !ok {
		return 0
	}
	return rec.DiskLimitMiB
}

func (s *Server) sampleOnce(ctx context.Context, containerID, volumeID string, diskLimitMiB int64) (statsSampleFrame, error) {
	snapshot, err := s.rt.StatsSnapshot(ctx, containerID)
	if err != nil {
		return statsSampleFrame{}, err
	}

	volumeSizeMiB := measureVolumeSizeMiB(s.volumePath(volumeID))
	storageExceeded := diskLimitMiB > 0 && volumeSizeMiB >= diskLimitMiB

	memUsage := snapshot.MemoryStats.Usage
	memLimit := snapshot.MemoryStats.Limit
	var rx, tx uint64
	for _, netStat := range snapshot.Networks {
		rx += netStat.RxBytes
		tx += netStat.TxBytes
	}

	return statsSampleFrame{
		CPUPercent:      cpuPercentFromStats(snapshot),
		MemoryBytes:     memUsage,
		MemoryLimit:     memLimit,
		NetworkRxBytes:  rx,
		NetworkTxBytes:  tx,
		VolumeSizeMiB:   volumeSizeMiB,
		DiskLimitMiB:    diskLimitMiB,
		StorageExceeded: storageExceeded,
	}, nil
}

// measureVolumeSizeMiB recursively sums file sizes under path (spec §4.7
// step 2). Unreadable or nonexistent paths report 0 rather than erroring
// the whole sample.
func measureVolumeSizeMiB(path string) int64 {
	var totalBytes int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		totalBytes += info.Size()
		return nil
	})
	return totalBytes / (1024 * 1024)
}

// cpuPercentFromStats computes CPU usage percentage the same way the
// runtime's own CLI does: the delta in container CPU time over the delta in
// total system CPU time, scaled by the number of online CPUs.
func cpuPercentFromStats(snapshot dockercontainer.StatsResponse) float64 {
	cpuDelta := float64(snapshot.CPUStats.CPUUsage.TotalUsage) - float64(snapshot.PreCPUStats.CPUUsage.TotalUsage)
	systemDelta := float64(snapshot.CPUStats.SystemUsage) - float64(snapshot.PreCPUStats.SystemUsage)
	if systemDelta <= 0 || cpuDelta <= 0 {
		return 0
	}
	onlineCPUs := float64(snapshot.CPUStats.OnlineCPUs)
	if onlineCPUs == 0 {
		onlineCPUs = float64(len(snapshot.CPUStats.CPUUsage.PercpuUsage))
	}
	if onlineCPUs == 0 {
		onlineCPUs = 1
	}
	return (cpuDelta / systemDelta) * onlineCPUs * 100.0
}

func writeJSONFrame(conn *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
