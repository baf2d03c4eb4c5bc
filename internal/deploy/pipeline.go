// Package deploy orchestrates the multi-stage create/redeploy/reinstall/
// edit/delete workflows (spec §4.4), wiring the runtime client (C1), the
// state store (C2) and the asset fetcher (C3) together.
package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kswarrior/ks-wings/internal/assets"
	"github.com/kswarrior/ks-wings/internal/logger"
	"github.com/kswarrior/ks-wings/internal/runtime"
	"github.com/kswarrior/ks-wings/internal/state"
	"github.com/kswarrior/ks-wings/internal/utils"
)

// Pipeline orchestrates deployments. One Pipeline is shared by C5's HTTP
// handlers, grounded on the teacher's CreateBot (build env → build configs →
// pull → create → start), generalized to the spec's early-ack/background
// split.
type Pipeline struct {
	rt         runtime.Runtime
	store      *state.Store
	fetcher    *assets.Fetcher
	volumeRoot string
}

// New returns a Pipeline rooted at volumeRoot (spec §6 "<root>/volumes/").
func New(rt runtime.Runtime, store *state.Store, fetcher *assets.Fetcher, volumeRoot string) *Pipeline {
	return &Pipeline{rt: rt, store: store, fetcher: fetcher, volumeRoot: volumeRoot}
}

func (p *Pipeline) volumePath(instanceID string) string {
	return filepath.Join(p.volumeRoot, instanceID)
}

// validatePorts enforces spec §4.4 step 1: every bound host_port must parse
// to 1..=65535. Ports with no binding at all (HostPortSet == false) are
// exempt, but an explicitly supplied 0 is not a valid host port and must be
// rejected like any other out-of-range value (spec §8 boundary behavior).
func validatePorts(ports []PortSpec) error {
	for _, p := range ports {
		if !p.HostPortSet {
			continue
		}
		if p.HostPort < 1 || p.HostPort > 65535 {
			return fmt.Errorf("%w: host port %d out of range 1..65535", ErrBadRequest, p.HostPort)
		}
	}
	return nil
}

// primaryPort implements spec §4.4 step 3.
func primaryPort(ports []PortSpec) int {
	for _, p := range ports {
		if p.HostPortSet && p.HostPort != 0 {
			return p.HostPort
		}
	}
	return defaultPrimaryPort
}

// buildEnv implements spec §4.4 step 4: caller env, then KEY=VALUE derived
// from variables, then PRIMARY_PORT.
func buildEnv(callerEnv []string, variables map[string]string, primary int) []string {
	env := make([]string, 0, len(callerEnv)+len(variables)+1)
	env = append(env, callerEnv...)
	for k, v := range variables {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	env = append(env, fmt.Sprintf("PRIMARY_PORT=%d", primary))
	return env
}

// buildPortConfig turns PortSpecs into the nat types CreateContainer wants.
func buildPortConfig(ports []PortSpec) (nat.PortSet, nat.PortMap, error) {
	exposed := nat.PortSet{}
	bindings := nat.PortMap{}

	for _, spec := range ports {
		proto := spec.Protocol
		if proto == "" {
			proto = "tcp"
		}
		port, err := nat.NewPort(proto, strconv.Itoa(spec.ContainerPort))
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		exposed[port] = struct{}{}

		if spec.HostPortSet {
			bindings[port] = append(bindings[port], nat.PortBinding{
				HostIP:   "0.0.0.0",
				HostPort: strconv.Itoa(spec.HostPort),
			})
		}
	}
	return exposed, bindings, nil
}

// installVariables implements spec §4.4 step 10's variable set for
// replace_variables: {primary_port, container_name, timestamp, random_string}.
func installVariables(base map[string]string, primary int, containerID string) map[string]string {
	vars := make(map[string]string, len(base)+4)
	for k, v := range base {
		vars[k] = v
	}
	vars["primary_port"] = strconv.Itoa(primary)
	vars["container_name"] = shortID(containerID)
	vars["timestamp"] = strconv.FormatInt(time.Now().Unix(), 10)
	if rnd, err := utils.RandomString(16); err == nil {
		vars["random_string"] = rnd
	} else {
		vars["random_string"] = uuid.NewString()
	}
	return vars
}

func shortID(containerID string) string {
	if len(containerID) > 12 {
		return containerID[:12]
	}
	return containerID
}

// provision runs background install-script download + variable substitution
// for a freshly created or redeployed container (spec §4.4 step 10).
func (p *Pipeline) provision(ctx context.Context, instanceID string, scripts Scripts, variables map[string]string, primary int, containerID string) {
	if len(scripts.Install) == 0 {
		return
	}

	volPath := p.volumePath(instanceID)
	p.fetcher.DownloadInstallScripts(ctx, scripts.Install, volPath, variables)

	vars := installVariables(variables, primary, containerID)
	if err := assets.ReplaceVariables(volPath, vars); err != nil {
		logger.GetLogger(ctx).Error("install script variable substitution failed",
			zap.String("instance_id", instanceID), zap.Error(err))
	}
}

func ensureVolume(path string) error {
	return os.MkdirAll(path, 0o755)
}
