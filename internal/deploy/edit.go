package deploy

import (
	"context"
	"fmt"

	"github.com/kswarrior/ks-wings/internal/state"
)

// Edit mutates resource limits on an existing instance without recreating
// its container, and updates the state record's disk_limit_mib directly
// (SPEC_FULL §4.4 "(NEW) Edit"). The state field is left untouched.
func (p *Pipeline) Edit(ctx context.Context, req EditRequest) error {
	rec, ok, err := p.store.Get(req.InstanceID)
	if err != nil {
		return fmt.Errorf("read state record: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: instance %s", ErrNotFound, req.InstanceID)
	}

	if (req.MemoryMiB > 0 || req.CPUCount > 0) && rec.ContainerID != "" {
		if err := p.rt.Update(ctx, rec.ContainerID, req.MemoryMiB*1024*1024, req.CPUCount); err != nil {
			return err
		}
	}

	diskLimit := rec.DiskLimitMiB
	if req.DiskLimitSet {
		diskLimit = req.DiskLimitMiB
	}

	_, err = p.store.Update(req.InstanceID, state.Record{
		State:        rec.State,
		ContainerID:  rec.ContainerID,
		DiskLimitMiB: diskLimit,
	})
	return err
}
