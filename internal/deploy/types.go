package deploy

import "github.com/kswarrior/ks-wings/internal/assets"

// defaultPrimaryPort is used when a CreateRequest carries no port bindings
// at all (spec §4.4 step 3 "else a fixed default").
const defaultPrimaryPort = 25565

// PortSpec is one exposed/bound port (spec's "exposed_ports?"/"port_bindings?"
// fields, unified: a port is always exposed, and optionally bound to a host
// port).
type PortSpec struct {
	ContainerPort int
	Protocol      string // "tcp" or "udp"; defaults to "tcp"
	HostPort      int    // meaningful only when HostPortSet is true
	HostPortSet   bool   // false means exposed but not published to the host
}

// Scripts is the install-script manifest carried by CreateRequest/
// ReinstallRequest (spec §4.4 step 10).
type Scripts struct {
	Install []assets.Script
}

// CreateRequest is the deployment pipeline's input (spec §4.4).
type CreateRequest struct {
	InstanceID   string
	Image        string
	Cmd          []string
	Env          []string
	Ports        []PortSpec
	Scripts      Scripts
	MemoryMiB    int64
	CPUCount     int64
	DiskLimitMiB int64
	Variables    map[string]string
}

// CreateResult is everything the control API needs to send the early 202
// (spec §4.4 step 9).
type CreateResult struct {
	Message     string   `json:"message"`
	Env         []string `json:"env"`
	VolumeID    string   `json:"volume_id"`
	ContainerID string   `json:"container_id"`
}

// RedeployRequest replaces an instance's workload while keeping its volume
// (spec SPEC_FULL §4.4 "(NEW) Redeploy").
type RedeployRequest struct {
	InstanceID          string
	ExpectedContainerID string
	Image               string
	Cmd                 []string
	Env                 []string
	Ports               []PortSpec
	Scripts             Scripts
	Variables           map[string]string
	MemoryMiB           int64
	CPUCount            int64
}

// ReinstallRequest is identical to RedeployRequest except install scripts
// always run.
type ReinstallRequest = RedeployRequest

// EditRequest mutates resource limits and/or env on an existing instance
// without recreating its container (spec SPEC_FULL §4.4 "(NEW) Edit").
type EditRequest struct {
	InstanceID   string
	MemoryMiB    int64 // 0 means leave unchanged
	CPUCount     int64 // 0 means leave unchanged
	DiskLimitMiB int64 // meaningful only when DiskLimitSet is true
	DiskLimitSet bool  // false means leave disk_limit_mib unchanged
}
