package deploy

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kswarrior/ks-wings/internal/logger"
	"github.com/kswarrior/ks-wings/internal/runtime"
	"github.com/kswarrior/ks-wings/internal/state"
)

// Create runs the synchronous portion of the deployment pipeline (spec §4.4
// steps 1-9) and returns the early-acknowledgement payload. Steps 10-12 run
// in a detached goroutine after Create returns, committing FAILED if the
// container fails to start; install-script download and variable
// substitution failures are logged and do not fail the deployment.
func (p *Pipeline) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	log := logger.GetLogger(ctx)

	// Step 1: validate port bindings before any side effect.
	if err := validatePorts(req.Ports); err != nil {
		return nil, err
	}

	// Step 3: compute primary_port.
	primary := primaryPort(req.Ports)

	// Step 4: build environment.
	env := buildEnv(req.Env, req.Variables, primary)

	// Step 5: materialize volume.
	volPath := p.volumePath(req.InstanceID)
	if err := ensureVolume(volPath); err != nil {
		return nil, fmt.Errorf("materialize volume: %w", err)
	}

	// Step 6: commit INSTALLING with container_id=null.
	if _, err := p.store.Update(req.InstanceID, state.Record{
		State:        state.StatusInstalling,
		DiskLimitMiB: req.DiskLimitMiB,
	}); err != nil {
		return nil, fmt.Errorf("commit installing state: %w", err)
	}

	// Step 7: pull image, drain progress, surface PullFailed synchronously.
	if err := p.pullImage(ctx, req.Image); err != nil {
		p.commitFailed(ctx, req.InstanceID, "", req.DiskLimitMiB)
		return nil, err
	}

	// Step 8: create container.
	exposedPorts, portBindings, err := buildPortConfig(req.Ports)
	if err != nil {
		p.commitFailed(ctx, req.InstanceID, "", req.DiskLimitMiB)
		return nil, err
	}

	containerID, err := p.rt.CreateContainer(ctx, runtime.ContainerSpec{
		Name:         req.InstanceID,
		Image:        req.Image,
		Cmd:          req.Cmd,
		Env:          env,
		ExposedPorts: exposedPorts,
		PortBindings: portBindings,
		VolumePath:   volPath,
		MemoryBytes:  req.MemoryMiB * 1024 * 1024,
		CPUCount:     req.CPUCount,
		Labels:       map[string]string{"wings.instance_id": req.InstanceID},
	})
	if err != nil {
		p.commitFailed(ctx, req.InstanceID, "", req.DiskLimitMiB)
		return nil, err
	}

	// Commit INSTALLING again now that container_id is known, so the
	// invariant "container_id is known at the moment of the 202" (spec §4.4
	// rationale) holds even before the background phase completes.
	if _, err := p.store.Update(req.InstanceID, state.Record{
		State:        state.StatusInstalling,
		ContainerID:  containerID,
		DiskLimitMiB: req.DiskLimitMiB,
	}); err != nil {
		log.Error("failed to record container id before acknowledgement",
			zap.String("instance_id", req.InstanceID), zap.Error(err))
	}

	result := &CreateResult{
		Message:     "Instance is being created",
		Env:         env,
		VolumeID:    req.InstanceID,
		ContainerID: containerID,
	}

	// Steps 10-12 run in the background, detached from the request context.
	go p.finishCreate(context.WithoutCancel(ctx), req, containerID, primary)

	return result, nil
}

func (p *Pipeline) finishCreate(ctx context.Context, req CreateRequest, containerID string, primary int) {
	log := logger.GetLogger(ctx)

	// Step 10: background provisioning.
	p.provision(ctx, req.InstanceID, req.Scripts, req.Variables, primary, containerID)

	// Step 11: start container.
	if err := p.rt.Start(ctx, containerID); err != nil {
		log.Error("failed to start container after provisioning",
			zap.String("instance_id", req.InstanceID), zap.String("container_id", containerID), zap.Error(err))
		p.commitFailed(ctx, req.InstanceID, containerID, req.DiskLimitMiB)
		return
	}

	// Step 12: commit READY.
	if _, err := p.store.Update(req.InstanceID, state.Record{
		State:        state.StatusReady,
		ContainerID:  containerID,
		DiskLimitMiB: req.DiskLimitMiB,
	}); err != nil {
		log.Error("failed to commit ready state",
			zap.String("instance_id", req.InstanceID), zap.Error(err))
	}
}

func (p *Pipeline) pullImage(ctx context.Context, image string) error {
	stream, err := p.rt.PullImage(ctx, image)
	if err != nil {
		return err
	}
	defer stream.Close()

	return runtime.DrainPullProgress(stream, nil)
}

func (p *Pipeline) commitFailed(ctx context.Context, instanceID, containerID string, diskLimitMiB int64) {
	if _, err := p.store.Update(instanceID, state.Record{
		State:        state.StatusFailed,
		ContainerID:  containerID,
		DiskLimitMiB: diskLimitMiB,
	}); err != nil {
		logger.GetLogger(ctx).Error("failed to commit FAILED state",
			zap.String("instance_id", instanceID), zap.Error(err))
	}
}
