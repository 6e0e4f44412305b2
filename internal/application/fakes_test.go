package application_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ericfisherdev/heaterpanel/internal/domain/model"
)

// --- Fake backend ---

// fakeAPI is an in-memory stand-in for the remote API. It keeps real state so
// tests can observe create/toggle followed by reload.
type fakeAPI struct {
	mu        sync.Mutex
	users     map[string]string // email -> password
	tokens    map[string]string // token -> email
	instances []model.Instance
	codes     map[int64]string
	nextID    int64

	// Injected failures, keyed by operation kind.
	failures map[model.ErrorKind]error

	// createGate, when set, blocks CreateInstance until closed.
	createGate chan struct{}
	// pairingGate, when set, blocks FetchPairingCode until a value is received.
	pairingGate chan struct{}

	listCalls    atomic.Int32
	createCalls  atomic.Int32
	warmingCalls atomic.Int32
	pairingCalls atomic.Int32
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		users:    map[string]string{"a@x.com": "pw"},
		tokens:   map[string]string{},
		codes:    map[int64]string{},
		failures: map[model.ErrorKind]error{},
		nextID:   1,
	}
}

func (f *fakeAPI) failWith(kind model.ErrorKind, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[kind] = &model.OpError{Kind: kind, Status: status}
}

func (f *fakeAPI) failure(kind model.ErrorKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failures[kind]
}

func (f *fakeAPI) authorized(token string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.tokens[token]
	return ok
}

func (f *fakeAPI) Authenticate(_ context.Context, username, password string) (model.Token, error) {
	if err := f.failure(model.KindAuth); err != nil {
		return model.Token{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if pw, ok := f.users[username]; !ok || pw != password {
		return model.Token{}, &model.OpError{Kind: model.KindAuth, Status: 401}
	}
	token := "t" + string(rune('0'+len(f.tokens)+1))
	f.tokens[token] = username
	return model.Token{AccessToken: token, TokenType: "bearer"}, nil
}

func (f *fakeAPI) Register(_ context.Context, email, password string) (model.Confirmation, error) {
	if err := f.failure(model.KindRegistration); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[email]; ok {
		return nil, &model.OpError{Kind: model.KindRegistration, Status: 400}
	}
	f.users[email] = password
	return model.Confirmation{"email": email}, nil
}

func (f *fakeAPI) ListInstances(_ context.Context, token string) ([]model.Instance, error) {
	f.listCalls.Add(1)
	if token == "" {
		return nil, &model.OpError{Kind: model.KindFetch, Err: model.ErrNotAuthenticated}
	}
	if err := f.failure(model.KindFetch); err != nil {
		return nil, err
	}
	if !f.authorized(token) {
		return nil, &model.OpError{Kind: model.KindFetch, Status: 401}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]model.Instance, len(f.instances))
	copy(out, f.instances)
	return out, nil
}

func (f *fakeAPI) CreateInstance(_ context.Context, token, name string) (model.Instance, error) {
	f.createCalls.Add(1)
	if f.createGate != nil {
		<-f.createGate
	}
	if err := f.failure(model.KindCreate); err != nil {
		return model.Instance{}, err
	}
	if !f.authorized(token) {
		return model.Instance{}, &model.OpError{Kind: model.KindCreate, Status: 401}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	inst := model.Instance{ID: f.nextID, Name: name, Status: model.InstanceStatusDisconnected}
	f.nextID++
	f.instances = append(f.instances, inst)
	return inst, nil
}

func (f *fakeAPI) FetchPairingCode(_ context.Context, token string, instanceID int64) (string, error) {
	f.pairingCalls.Add(1)
	if f.pairingGate != nil {
		<-f.pairingGate
	}
	if err := f.failure(model.KindPairing); err != nil {
		return "", err
	}
	if !f.authorized(token) {
		return "", &model.OpError{Kind: model.KindPairing, Status: 401}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.codes[instanceID], nil
}

func (f *fakeAPI) SetWarming(_ context.Context, token string, instanceID int64, enable bool) (model.Confirmation, error) {
	f.warmingCalls.Add(1)
	if err := f.failure(model.KindToggle); err != nil {
		return nil, err
	}
	if !f.authorized(token) {
		return nil, &model.OpError{Kind: model.KindToggle, Status: 401}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.instances {
		if f.instances[i].ID == instanceID {
			f.instances[i].WarmingEnabled = enable
			return model.Confirmation{"status": "ok"}, nil
		}
	}
	return nil, &model.OpError{Kind: model.KindToggle, Status: 404}
}

// --- Fake credential store ---

type memCredentialStore struct {
	mu     sync.Mutex
	tokens map[string]string
	err    error
}

func newMemCredentialStore() *memCredentialStore {
	return &memCredentialStore{tokens: map[string]string{}}
}

func (m *memCredentialStore) Set(_ context.Context, deviceID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.tokens[deviceID] = token
	return nil
}

func (m *memCredentialStore) Get(_ context.Context, deviceID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return m.tokens[deviceID], nil
}

func (m *memCredentialStore) List(_ context.Context) ([]model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	creds := make([]model.Credential, 0, len(m.tokens))
	for id, tok := range m.tokens {
		creds = append(creds, model.Credential{DeviceID: id, Token: tok})
	}
	return creds, nil
}

func (m *memCredentialStore) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	return len(m.tokens), nil
}

func (m *memCredentialStore) Delete(_ context.Context, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.tokens, deviceID)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
