// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ericfisherdev/heaterpanel/internal/domain/model"
	"github.com/ericfisherdev/heaterpanel/internal/domain/port/driven"
)

// View is a read-only snapshot of a dashboard for a rendering layer.
type View struct {
	Authenticated bool
	Instances     []model.Instance
	LoadedAt      time.Time
	PairingState  model.PairingState
	Pairing       model.PairingSession
	ShowPairing   bool
	Notices       []model.Notice
}

// Dashboard is the controller for one device session. It turns user intents
// into backend calls, refreshes the InstanceRegistry after every successful
// mutation and drives the PairingFlow. Failures are returned to the caller and
// also queued as notices for the next render.
type Dashboard struct {
	api      driven.HeaterAPI
	session  *SessionStore
	registry *InstanceRegistry
	pairing  *PairingFlow
	logger   *slog.Logger

	// inflight collapses identical concurrent mutations (double submits).
	inflight singleflight.Group

	mu       sync.Mutex
	notices  []model.Notice
	lastSeen time.Time
}

// NewDashboard creates a Dashboard for the given session.
func NewDashboard(api driven.HeaterAPI, session *SessionStore, logger *slog.Logger) *Dashboard {
	logger = logger.With("device", session.DeviceID())
	return &Dashboard{
		api:      api,
		session:  session,
		registry: NewInstanceRegistry(api, logger),
		pairing:  NewPairingFlow(api, logger),
		logger:   logger,
		lastSeen: time.Now(),
	}
}

// Session returns the dashboard's session store.
func (d *Dashboard) Session() *SessionStore { return d.session }

// Registry returns the dashboard's instance cache.
func (d *Dashboard) Registry() *InstanceRegistry { return d.registry }

// Pairing returns the dashboard's pairing flow.
func (d *Dashboard) Pairing() *PairingFlow { return d.pairing }

// Authenticated reports whether the session holds a credential.
func (d *Dashboard) Authenticated() bool {
	_, ok := d.session.Credential()
	return ok
}

// Login authenticates, stores the token and loads the instance list. A failed
// load after a successful login is logged but does not fail the login.
func (d *Dashboard) Login(ctx context.Context, username, password string) error {
	tok, err := d.api.Authenticate(ctx, username, password)
	if err != nil {
		d.fail(err)
		return fmt.Errorf("login: %w", err)
	}

	d.session.SetCredential(ctx, tok.AccessToken)
	d.registry.Reset()
	d.pairing.Reset()

	_ = d.registry.Reload(ctx, tok.AccessToken)
	d.logger.Info("logged in")
	return nil
}

// Register creates an account. The user still has to log in afterwards.
func (d *Dashboard) Register(ctx context.Context, email, password string) error {
	if _, err := d.api.Register(ctx, email, password); err != nil {
		d.fail(err)
		return fmt.Errorf("register: %w", err)
	}

	d.notify(model.NoticeInfo, "Registered! Please login.")
	return nil
}

// Logout clears the credential and every piece of cached state.
func (d *Dashboard) Logout(ctx context.Context) {
	d.session.Clear(ctx)
	d.registry.Reset()
	d.pairing.Reset()

	d.mu.Lock()
	d.notices = nil
	d.mu.Unlock()

	d.logger.Info("logged out")
}

// Refresh reloads the instance list. Failures are logged only, as a reload
// is not itself a user action that warrants a notice.
func (d *Dashboard) Refresh(ctx context.Context) error {
	token, ok := d.session.Credential()
	if !ok {
		return &model.OpError{Kind: model.KindFetch, Err: model.ErrNotAuthenticated}
	}
	return d.registry.Reload(ctx, token)
}

// CreateInstance creates an instance named name (surrounding whitespace
// trimmed) and reloads the list. Blank names are rejected locally.
func (d *Dashboard) CreateInstance(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		err := &model.OpError{Kind: model.KindCreate, Err: model.ErrEmptyName}
		d.fail(err)
		return err
	}

	token, ok := d.session.Credential()
	if !ok {
		err := &model.OpError{Kind: model.KindCreate, Err: model.ErrNotAuthenticated}
		d.fail(err)
		return err
	}

	_, err, shared := d.inflight.Do("create:"+name, func() (any, error) {
		ctx := context.WithoutCancel(ctx)
		inst, err := d.api.CreateInstance(ctx, token, name)
		if err != nil {
			return nil, err
		}
		d.logger.Info("instance created", "instance_id", inst.ID, "name", inst.Name)
		_ = d.registry.Reload(ctx, token)
		return inst, nil
	})
	if shared {
		d.logger.Debug("create request shared with in-flight call", "name", name)
	}
	if err != nil {
		d.fail(err)
		return fmt.Errorf("create instance %q: %w", name, err)
	}
	return nil
}

// ToggleWarming starts or stops warming for an instance and reloads the list.
func (d *Dashboard) ToggleWarming(ctx context.Context, instanceID int64, enable bool) error {
	token, ok := d.session.Credential()
	if !ok {
		err := &model.OpError{Kind: model.KindToggle, Err: model.ErrNotAuthenticated}
		d.fail(err)
		return err
	}

	key := fmt.Sprintf("warming:%d:%t", instanceID, enable)
	_, err, _ := d.inflight.Do(key, func() (any, error) {
		ctx := context.WithoutCancel(ctx)
		if _, err := d.api.SetWarming(ctx, token, instanceID, enable); err != nil {
			return nil, err
		}
		d.logger.Info("warming toggled", "instance_id", instanceID, "enabled", enable)
		_ = d.registry.Reload(ctx, token)
		return nil, nil
	})
	if err != nil {
		d.failWarming(err, enable)
		return fmt.Errorf("toggle warming for instance %d: %w", instanceID, err)
	}
	return nil
}

// Connect requests the pairing code for an instance. The outcome is visible
// through Snapshot: either a pairing session to show or a notice.
func (d *Dashboard) Connect(ctx context.Context, instanceID int64) error {
	token, ok := d.session.Credential()
	if !ok {
		err := &model.OpError{Kind: model.KindPairing, Err: model.ErrNotAuthenticated}
		d.fail(err)
		return err
	}

	notice, err := d.pairing.RequestPairing(ctx, token, instanceID)
	if notice != nil {
		d.push(*notice)
	}
	if err != nil {
		return fmt.Errorf("connect instance %d: %w", instanceID, err)
	}
	return nil
}

// ClosePairing hides the pairing code. It reports whether one was shown.
func (d *Dashboard) ClosePairing() bool {
	return d.pairing.Close()
}

// Notices drains and returns the queued notices.
func (d *Dashboard) Notices() []model.Notice {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := d.notices
	d.notices = nil
	return out
}

// Snapshot returns the current view and drains the notice queue.
func (d *Dashboard) Snapshot() View {
	pairing, showing := d.pairing.Session()
	return View{
		Authenticated: d.Authenticated(),
		Instances:     d.registry.Current(),
		LoadedAt:      d.registry.LoadedAt(),
		PairingState:  d.pairing.State(),
		Pairing:       pairing,
		ShowPairing:   showing,
		Notices:       d.Notices(),
	}
}

// touch records activity for idle eviction.
func (d *Dashboard) touch(now time.Time) {
	d.mu.Lock()
	d.lastSeen = now
	d.mu.Unlock()
}

func (d *Dashboard) idleSince() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastSeen
}

func (d *Dashboard) fail(err error) {
	d.notify(model.NoticeError, UserMessage(err))
}

func (d *Dashboard) failWarming(err error, enable bool) {
	if errors.Is(err, model.ErrNotAuthenticated) {
		d.fail(err)
		return
	}
	action := "stop"
	if enable {
		action = "start"
	}
	d.notify(model.NoticeError, "Error: Failed to "+action+" warming")
}

func (d *Dashboard) notify(level model.NoticeLevel, msg string) {
	d.push(model.Notice{Level: level, Message: msg})
}

// push queues n unless it repeats the last queued notice, which happens when
// a double submit shares one failed call.
func (d *Dashboard) push(n model.Notice) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if last := len(d.notices) - 1; last >= 0 && d.notices[last] == n {
		return
	}
	d.notices = append(d.notices, n)
}
