package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/heaterpanel/internal/domain/port/driven"
)

// Devices holds one Dashboard per device session (browser cookie or CLI
// profile). Dashboards are created on first use and evicted from memory when
// idle; an evicted device's token stays in the CredentialStore and is loaded
// again on its next request.
type Devices struct {
	api    driven.HeaterAPI
	store  driven.CredentialStore // may be nil
	logger *slog.Logger
	now    func() time.Time

	mu         sync.RWMutex
	dashboards map[string]*Dashboard
}

// NewDevices creates an empty device registry. store may be nil, in which
// case sessions are memory-only.
func NewDevices(api driven.HeaterAPI, store driven.CredentialStore, logger *slog.Logger) *Devices {
	return &Devices{
		api:        api,
		store:      store,
		logger:     logger,
		now:        time.Now,
		dashboards: make(map[string]*Dashboard),
	}
}

// Get returns the Dashboard for deviceID, creating and loading it on first
// use.
func (d *Devices) Get(ctx context.Context, deviceID string) *Dashboard {
	d.mu.RLock()
	dash, ok := d.dashboards[deviceID]
	d.mu.RUnlock()
	if ok {
		dash.touch(d.now())
		return dash
	}

	session := NewSessionStore(deviceID, d.store, d.logger)
	session.Load(ctx)
	fresh := NewDashboard(d.api, session, d.logger)

	d.mu.Lock()
	defer d.mu.Unlock()

	// Another request for the same device may have won the race.
	if existing, ok := d.dashboards[deviceID]; ok {
		existing.touch(d.now())
		return existing
	}
	fresh.touch(d.now())
	d.dashboards[deviceID] = fresh
	return fresh
}

// Forget drops the in-memory dashboard for deviceID.
func (d *Devices) Forget(deviceID string) {
	d.mu.Lock()
	delete(d.dashboards, deviceID)
	d.mu.Unlock()
}

// Len returns the number of dashboards held in memory.
func (d *Devices) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.dashboards)
}

// Stored returns the number of device sessions with a persisted token.
func (d *Devices) Stored(ctx context.Context) (int, error) {
	if d.store == nil {
		return 0, nil
	}
	return d.store.Count(ctx)
}

// Evict removes dashboards idle for longer than maxIdle and returns how many
// were removed.
func (d *Devices) Evict(maxIdle time.Duration) int {
	cutoff := d.now().Add(-maxIdle)

	d.mu.Lock()
	defer d.mu.Unlock()

	evicted := 0
	for id, dash := range d.dashboards {
		if dash.idleSince().Before(cutoff) {
			delete(d.dashboards, id)
			evicted++
		}
	}
	return evicted
}

// Start runs the eviction loop until ctx is canceled.
func (d *Devices) Start(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("device eviction stopped")
			return
		case <-ticker.C:
			if n := d.Evict(maxIdle); n > 0 {
				d.logger.Info("evicted idle device sessions", "count", n, "remaining", d.Len())
			}
		}
	}
}
