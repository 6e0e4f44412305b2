package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/heaterpanel/internal/domain/model"
	"github.com/ericfisherdev/heaterpanel/internal/domain/port/driven"
)

// InstanceRegistry caches the last instance list fetched from the backend.
// The snapshot is only ever replaced as a whole; there is no patching or
// merging, so readers see either the previous list or the new one. When
// reloads overlap, the one issued last wins.
type InstanceRegistry struct {
	api    driven.HeaterAPI
	logger *slog.Logger

	mu        sync.RWMutex
	instances []model.Instance
	loadedAt  time.Time
	issued    uint64 // sequence of the last reload started
	applied   uint64 // sequence of the snapshot held
}

// NewInstanceRegistry creates an empty registry backed by api.
func NewInstanceRegistry(api driven.HeaterAPI, logger *slog.Logger) *InstanceRegistry {
	return &InstanceRegistry{
		api:       api,
		logger:    logger,
		instances: []model.Instance{},
	}
}

// Reload fetches the full instance list and swaps it in. On failure the
// previous snapshot is kept and the error is logged and returned. A result
// older than the snapshot already held, or than the last Reset, is dropped.
func (r *InstanceRegistry) Reload(ctx context.Context, token string) error {
	r.mu.Lock()
	r.issued++
	seq := r.issued
	r.mu.Unlock()

	instances, err := r.api.ListInstances(ctx, token)
	if err != nil {
		r.logger.Error("failed to reload instances", "error", err)
		return err
	}

	snapshot := make([]model.Instance, len(instances))
	copy(snapshot, instances)

	r.mu.Lock()
	if seq < r.applied {
		r.mu.Unlock()
		r.logger.Debug("dropped superseded instance list", "seq", seq)
		return nil
	}
	r.instances = snapshot
	r.loadedAt = time.Now()
	r.applied = seq
	r.mu.Unlock()

	r.logger.Debug("instances reloaded", "count", len(snapshot))
	return nil
}

// Current returns a copy of the last successfully loaded snapshot. It is
// empty (not nil) before the first load.
func (r *InstanceRegistry) Current() []model.Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Instance, len(r.instances))
	copy(out, r.instances)
	return out
}

// Find returns the cached instance with the given id.
func (r *InstanceRegistry) Find(id int64) (model.Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, inst := range r.instances {
		if inst.ID == id {
			return inst, true
		}
	}
	return model.Instance{}, false
}

// LoadedAt returns when the snapshot was last replaced, or the zero time if
// it never was.
func (r *InstanceRegistry) LoadedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loadedAt
}

// Reset empties the registry, as on logout. Reloads still in flight are
// dropped when they return.
func (r *InstanceRegistry) Reset() {
	r.mu.Lock()
	r.instances = []model.Instance{}
	r.loadedAt = time.Time{}
	r.issued++
	r.applied = r.issued
	r.mu.Unlock()
}
