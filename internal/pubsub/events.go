package pubsub

import "time"

// EventType identifies the type of event for type switches.
type EventType string

const (
	EventTypeLogLine     EventType = "log_line"
	EventTypeStatsSample EventType = "stats_sample"
	EventTypeStateChange EventType = "state_change"
)

// LogLineEvent carries one line of a container's combined stdout/stderr
// stream, demultiplexed from the runtime's framed output.
type LogLineEvent struct {
	Type        EventType `json:"type"`
	ContainerID string    `json:"container_id"`
	Line        string    `json:"line"`
	Timestamp   time.Time `json:"timestamp"`
}

// StatsSampleEvent carries one periodic resource usage sample for a
// container, including the disk usage of its attached volume.
type StatsSampleEvent struct {
	Type          EventType `json:"type"`
	ContainerID   string    `json:"container_id"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryBytes   uint64    `json:"memory_bytes"`
	MemoryLimit   uint64    `json:"memory_limit"`
	DiskBytes     uint64    `json:"disk_bytes"`
	NetworkRxBytes uint64   `json:"network_rx_bytes"`
	NetworkTxBytes uint64   `json:"network_tx_bytes"`
	QuotaExceeded bool      `json:"quota_exceeded"`
	Timestamp     time.Time `json:"timestamp"`
}

// StateChangeEvent carries a container lifecycle transition, e.g.
// INSTALLING -> RUNNING or RUNNING -> STOPPED.
type StateChangeEvent struct {
	Type        EventType `json:"type"`
	ContainerID string    `json:"container_id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
