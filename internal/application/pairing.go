package application

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ericfisherdev/heaterpanel/internal/domain/model"
	"github.com/ericfisherdev/heaterpanel/internal/domain/port/driven"
)

// Notice texts shown when no QR code can be displayed.
const (
	noticeNoPairingCode    = "Could not get QR Code. Instance might be already connected or not ready."
	noticePairingCodeError = "Error: Failed to get QR code"
)

// PairingFlow manages the single QR-code slot: Idle -> Requesting -> Showing
// -> Idle. A new request always starts fresh and supersedes whatever the slot
// held, including a request still in flight; the superseded request's result
// is discarded when it arrives.
type PairingFlow struct {
	api    driven.HeaterAPI
	logger *slog.Logger

	mu      sync.Mutex
	state   model.PairingState
	session model.PairingSession
	gen     uint64
}

// NewPairingFlow creates an idle PairingFlow backed by api.
func NewPairingFlow(api driven.HeaterAPI, logger *slog.Logger) *PairingFlow {
	return &PairingFlow{api: api, logger: logger}
}

// RequestPairing fetches the pairing code for instanceID. A present code moves
// the flow to Showing and returns no notice. An absent code moves it back to
// Idle with an informational notice; a backend failure does the same with an
// error notice and returns the error. A superseded request returns (nil, nil).
func (p *PairingFlow) RequestPairing(ctx context.Context, token string, instanceID int64) (*model.Notice, error) {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.state = model.PairingRequesting
	p.session = model.PairingSession{InstanceID: instanceID}
	p.mu.Unlock()

	code, err := p.api.FetchPairingCode(ctx, token, instanceID)

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen {
		p.logger.Debug("discarding superseded pairing result", "instance_id", instanceID)
		return nil, nil
	}

	if err != nil {
		p.toIdleLocked()
		p.logger.Warn("pairing code request failed", "instance_id", instanceID, "error", err)
		return &model.Notice{Level: model.NoticeError, Message: noticePairingCodeError}, err
	}

	if code == "" {
		p.toIdleLocked()
		return &model.Notice{Level: model.NoticeInfo, Message: noticeNoPairingCode}, nil
	}

	p.state = model.PairingShowing
	p.session = model.PairingSession{InstanceID: instanceID, Code: code, Visible: true}
	return nil, nil
}

// Close discards the shown code and returns to Idle. It reports whether the
// flow was Showing; closing in any other state is a no-op.
func (p *PairingFlow) Close() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != model.PairingShowing {
		return false
	}
	p.toIdleLocked()
	return true
}

// Reset returns to Idle unconditionally and invalidates any request in
// flight, as on logout.
func (p *PairingFlow) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.gen++
	p.toIdleLocked()
}

// State returns the current state.
func (p *PairingFlow) State() model.PairingState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Session returns the shown pairing session, if the flow is Showing.
func (p *PairingFlow) Session() (model.PairingSession, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != model.PairingShowing {
		return model.PairingSession{}, false
	}
	return p.session, true
}

func (p *PairingFlow) toIdleLocked() {
	p.state = model.PairingIdle
	p.session = model.PairingSession{}
}
