package web

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/heaterpanel/internal/adapter/driven/heaterapi"
	"github.com/ericfisherdev/heaterpanel/internal/application"
	"github.com/ericfisherdev/heaterpanel/internal/domain/model"
)

const (
	testUser     = "a@x.com"
	testPassword = "pw"
	testToken    = "tok-1"
)

// fakeBackend is an in-memory stand-in for the heater backend HTTP API.
type fakeBackend struct {
	mu         sync.Mutex
	instances  []model.Instance
	codes      map[int64]*string
	nextID     int64
	failCreate bool
	calls      map[string]int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{codes: make(map[int64]*string), nextID: 1, calls: make(map[string]int)}
}

func (b *fakeBackend) count(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[name]
}

func (b *fakeBackend) addInstance(name string) model.Instance {
	b.mu.Lock()
	defer b.mu.Unlock()
	inst := model.Instance{ID: b.nextID, Name: name, Status: model.InstanceStatusDisconnected}
	b.nextID++
	b.instances = append(b.instances, inst)
	return inst
}

func (b *fakeBackend) setCode(id int64, code *string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.codes[id] = code
}

func (b *fakeBackend) find(id int64) (model.Instance, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, inst := range b.instances {
		if inst.ID == id {
			return inst, true
		}
	}
	return model.Instance{}, false
}

func (b *fakeBackend) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/token", func(w http.ResponseWriter, r *http.Request) {
		b.record("auth")
		if r.FormValue("username") != testUser || r.FormValue("password") != testPassword {
			http.Error(w, `{"detail":"Incorrect username or password"}`, http.StatusUnauthorized)
			return
		}
		writeTestJSON(w, map[string]string{"access_token": testToken, "token_type": "bearer"})
	})

	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		b.record("register")
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] == testUser {
			http.Error(w, `{"detail":"Email already registered"}`, http.StatusBadRequest)
			return
		}
		writeTestJSON(w, map[string]any{"id": 2, "email": body["email"]})
	})

	mux.HandleFunc("GET /instances/{$}", b.authed(func(w http.ResponseWriter, _ *http.Request) {
		b.record("list")
		b.mu.Lock()
		out := append([]model.Instance{}, b.instances...)
		b.mu.Unlock()
		writeTestJSON(w, out)
	}))

	mux.HandleFunc("POST /instances/{$}", b.authed(func(w http.ResponseWriter, r *http.Request) {
		b.record("create")
		b.mu.Lock()
		fail := b.failCreate
		b.mu.Unlock()
		if fail {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		var body struct {
			Name string `json:"name"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeTestJSON(w, b.addInstance(body.Name))
	}))

	mux.HandleFunc("GET /instances/{id}/qrcode", b.authed(func(w http.ResponseWriter, r *http.Request) {
		b.record("qrcode")
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		b.mu.Lock()
		code := b.codes[id]
		b.mu.Unlock()
		writeTestJSON(w, map[string]*string{"qrcode": code})
	}))

	mux.HandleFunc("POST /instances/{id}/warming/{action}", b.authed(func(w http.ResponseWriter, r *http.Request) {
		b.record("warming")
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		b.mu.Lock()
		defer b.mu.Unlock()
		for i := range b.instances {
			if b.instances[i].ID == id {
				b.instances[i].WarmingEnabled = r.PathValue("action") == "start"
				writeTestJSON(w, map[string]string{"status": "warming " + r.PathValue("action") + "ed"})
				return
			}
		}
		http.Error(w, `{"detail":"Instance not found"}`, http.StatusNotFound)
	}))

	return mux
}

func (b *fakeBackend) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			http.Error(w, `{"detail":"Could not validate credentials"}`, http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (b *fakeBackend) record(name string) {
	b.mu.Lock()
	b.calls[name]++
	b.mu.Unlock()
}

func writeTestJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// browser drives the web GUI like a user agent: it keeps cookies and does
// not follow redirects, so tests can assert on each 303.
type browser struct {
	t       *testing.T
	server  *httptest.Server
	client  *http.Client
	backend *fakeBackend
	devices *application.Devices
	skew    atomic.Int64 // added to the handler's clock
}

func newBrowser(t *testing.T) *browser {
	t.Helper()

	backend := newFakeBackend()
	api := httptest.NewServer(backend.routes())
	t.Cleanup(api.Close)

	client, err := heaterapi.NewClientWithHTTPClient(api.Client(), api.URL)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	devices := application.NewDevices(client, nil, logger)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	b := &browser{
		t: t,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		backend: backend,
		devices: devices,
	}

	handler := NewHandler(devices, false, logger)
	handler.now = func() time.Time { return time.Now().Add(time.Duration(b.skew.Load())) }

	mux := http.NewServeMux()
	RegisterRoutes(mux, handler)
	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

// advance moves the handler's clock forward by d.
func (b *browser) advance(d time.Duration) {
	b.skew.Add(int64(d))
}

func (b *browser) get(path string) (*http.Response, string) {
	b.t.Helper()
	resp, err := b.client.Get(b.server.URL + path)
	require.NoError(b.t, err)
	return resp, readBody(b.t, resp)
}

// post submits a form with the CSRF token from the cookie jar, fetching the
// login page first when no token has been issued yet.
func (b *browser) post(path string, form url.Values) *http.Response {
	b.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set(csrfFormField, b.csrfToken())
	return b.postRaw(path, form)
}

func (b *browser) postRaw(path string, form url.Values) *http.Response {
	b.t.Helper()
	resp, err := b.client.PostForm(b.server.URL+path, form)
	require.NoError(b.t, err)
	readBody(b.t, resp)
	return resp
}

func (b *browser) csrfToken() string {
	b.t.Helper()
	if tok := b.cookie(csrfCookieName); tok != "" {
		return tok
	}
	b.get("/login")
	tok := b.cookie(csrfCookieName)
	require.NotEmpty(b.t, tok, "csrf cookie not issued")
	return tok
}

func (b *browser) cookie(name string) string {
	u, _ := url.Parse(b.server.URL)
	for _, c := range b.client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func (b *browser) login() {
	b.t.Helper()
	resp := b.post("/login", url.Values{"email": {testUser}, "password": {testPassword}})
	require.Equal(b.t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(b.t, "/dashboard", resp.Header.Get("Location"))
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func strPtr(s string) *string { return &s }

func countOf(body, substr string) int { return strings.Count(body, substr) }
