package deploy

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kswarrior/ks-wings/internal/logger"
	"github.com/kswarrior/ks-wings/internal/runtime"
	"github.com/kswarrior/ks-wings/internal/state"
)

// Redeploy stops and removes the existing container, keeps the volume, and
// re-runs steps 6-12 of the create pipeline with a new image/env/scripts
// (SPEC_FULL §4.4 "(NEW) Redeploy"). Scripts.Install only runs if non-empty.
func (p *Pipeline) Redeploy(ctx context.Context, req RedeployRequest) (*CreateResult, error) {
	return p.replace(ctx, req, false)
}

// Reinstall is identical to Redeploy except install scripts always run
// (SPEC_FULL §4.4 "(NEW) Reinstall").
func (p *Pipeline) Reinstall(ctx context.Context, req ReinstallRequest) (*CreateResult, error) {
	return p.replace(ctx, req, true)
}

func (p *Pipeline) replace(ctx context.Context, req RedeployRequest, forceInstall bool) (*CreateResult, error) {
	rec, ok, err := p.store.Get(req.InstanceID)
	if err != nil {
		return nil, fmt.Errorf("read state record: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: instance %s", ErrNotFound, req.InstanceID)
	}
	if rec.ContainerID != "" && rec.ContainerID != req.ExpectedContainerID {
		return nil, fmt.Errorf("%w: expected container %s, state has %s", ErrConflict, req.ExpectedContainerID, rec.ContainerID)
	}

	if err := validatePorts(req.Ports); err != nil {
		return nil, err
	}
	if forceInstall && len(req.Scripts.Install) == 0 {
		return nil, fmt.Errorf("%w: reinstall requires scripts", ErrBadRequest)
	}

	if rec.ContainerID != "" {
		if err := p.rt.Stop(ctx, rec.ContainerID); err != nil {
			logger.GetLogger(ctx).Warn("stop before redeploy failed, continuing",
				zap.String("instance_id", req.InstanceID), zap.Error(err))
		}
		if err := p.rt.Remove(ctx, rec.ContainerID, true); err != nil {
			logger.GetLogger(ctx).Warn("remove before redeploy failed, continuing",
				zap.String("instance_id", req.InstanceID), zap.Error(err))
		}
	}

	primary := primaryPort(req.Ports)
	env := buildEnv(req.Env, req.Variables, primary)

	if _, err := p.store.Update(req.InstanceID, state.Record{
		State:        state.StatusInstalling,
		DiskLimitMiB: rec.DiskLimitMiB,
	}); err != nil {
		return nil, fmt.Errorf("commit installing state: %w", err)
	}

	if err := p.pullImage(ctx, req.Image); err != nil {
		p.commitFailed(ctx, req.InstanceID, "", rec.DiskLimitMiB)
		return nil, err
	}

	exposedPorts, portBindings, err := buildPortConfig(req.Ports)
	if err != nil {
		p.commitFailed(ctx, req.InstanceID, "", rec.DiskLimitMiB)
		return nil, err
	}

	containerID, err := p.rt.CreateContainer(ctx, runtime.ContainerSpec{
		Name:         req.InstanceID,
		Image:        req.Image,
		Cmd:          req.Cmd,
		Env:          env,
		ExposedPorts: exposedPorts,
		PortBindings: portBindings,
		VolumePath:   p.volumePath(req.InstanceID),
		MemoryBytes:  req.MemoryMiB * 1024 * 1024,
		CPUCount:     req.CPUCount,
		Labels:       map[string]string{"wings.instance_id": req.InstanceID},
	})
	if err != nil {
		p.commitFailed(ctx, req.InstanceID, "", rec.DiskLimitMiB)
		return nil, err
	}

	if _, err := p.store.Update(req.InstanceID, state.Record{
		State:        state.StatusInstalling,
		ContainerID:  containerID,
		DiskLimitMiB: rec.DiskLimitMiB,
	}); err != nil {
		logger.GetLogger(ctx).Error("failed to record container id before acknowledgement",
			zap.String("instance_id", req.InstanceID), zap.Error(err))
	}

	result := &CreateResult{
		Message:     "Instance is being redeployed",
		Env:         env,
		VolumeID:    req.InstanceID,
		ContainerID: containerID,
	}

	scripts := req.Scripts

	go p.finishReplace(context.WithoutCancel(ctx), req.InstanceID, scripts, req.Variables, primary, containerID, rec.DiskLimitMiB)

	return result, nil
}

func (p *Pipeline) finishReplace(ctx context.Context, instanceID string, scripts Scripts, variables map[string]string, primary int, containerID string, diskLimitMiB int64) {
	log := logger.GetLogger(ctx)

	p.provision(ctx, instanceID, scripts, variables, primary, containerID)

	if err := p.rt.Start(ctx, containerID); err != nil {
		log.Error("failed to start container after redeploy provisioning",
			zap.String("instance_id", instanceID), zap.String("container_id", containerID), zap.Error(err))
		p.commitFailed(ctx, instanceID, containerID, diskLimitMiB)
		return
	}

	if _, err := p.store.Update(instanceID, state.Record{
		State:        state.StatusReady,
		ContainerID:  containerID,
		DiskLimitMiB: diskLimitMiB,
	}); err != nil {
		log.Error("failed to commit ready state after redeploy",
			zap.String("instance_id", instanceID), zap.Error(err))
	}
}
