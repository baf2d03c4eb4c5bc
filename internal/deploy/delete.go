package deploy

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
)

// Delete best-effort stops, removes the container, removes the volume, and
// removes the state record; failures are aggregated rather than aborting on
// the first one, so a missing container doesn't block volume/state cleanup
// (SPEC_FULL §4.4 "(NEW) Delete").
func (p *Pipeline) Delete(ctx context.Context, instanceID string) error {
	rec, ok, err := p.store.Get(instanceID)
	if err != nil {
		return fmt.Errorf("read state record: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: instance %s", ErrNotFound, instanceID)
	}

	var result *multierror.Error

	if rec.ContainerID != "" {
		if err := p.rt.Stop(ctx, rec.ContainerID); err != nil {
			result = multierror.Append(result, fmt.Errorf("stop container: %w", err))
		}
		if err := p.rt.Remove(ctx, rec.ContainerID, true); err != nil {
			result = multierror.Append(result, fmt.Errorf("remove container: %w", err))
		}
	}

	if err := os.RemoveAll(p.volumePath(instanceID)); err != nil {
		result = multierror.Append(result, fmt.Errorf("remove volume: %w", err))
	}

	if err := p.store.Delete(instanceID); err != nil {
		result = multierror.Append(result, fmt.Errorf("remove state record: %w", err))
	}

	return result.ErrorOrNil()
}
