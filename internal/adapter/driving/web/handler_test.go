package web

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/heaterpanel/internal/pairingimage"
)

func TestIndex_RedirectsByCredential(t *testing.T) {
	b := newBrowser(t)

	resp, _ := b.get("/")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	b.login()

	resp, _ = b.get("/")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
}

func TestIndex_IssuesDeviceCookie(t *testing.T) {
	b := newBrowser(t)

	b.get("/")
	id := b.cookie(deviceCookieName)
	assert.True(t, validDeviceID(id), "unexpected device id %q", id)

	b.get("/")
	assert.Equal(t, id, b.cookie(deviceCookieName), "device id must be stable")
	assert.Equal(t, 1, b.devices.Len())
}

func TestLoginPage_RendersForms(t *testing.T) {
	b := newBrowser(t)

	resp, body := b.get("/login")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, `action="/login"`)
	assert.Contains(t, body, `name="csrf_token" value="`+b.cookie(csrfCookieName)+`"`)
	assert.Contains(t, body, "Need an account? Register")

	_, body = b.get("/login?mode=register")
	assert.Contains(t, body, `action="/register"`)
	assert.Contains(t, body, "Already have an account? Login")
}

func TestLoginPage_RedirectsWhenAuthenticated(t *testing.T) {
	b := newBrowser(t)
	b.login()

	resp, _ := b.get("/login")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
}

func TestPost_RejectsMissingCSRF(t *testing.T) {
	b := newBrowser(t)
	b.get("/login")

	for _, path := range []string{"/login", "/register", "/logout", "/instances", "/instances/1/connect", "/instances/1/warming/start", "/pairing/close"} {
		resp := b.postRaw(path, url.Values{"email": {testUser}, "password": {testPassword}})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)
	}
	assert.Zero(t, b.backend.count("auth"))
}

func TestPost_RejectsWrongCSRF(t *testing.T) {
	b := newBrowser(t)
	b.get("/login")

	resp := b.postRaw("/login", url.Values{csrfFormField: {"forged"}, "email": {testUser}, "password": {testPassword}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestLogin_FailureShowsNotice(t *testing.T) {
	b := newBrowser(t)

	resp := b.post("/login", url.Values{"email": {testUser}, "password": {"wrong"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	_, body := b.get("/login")
	assert.Contains(t, body, "Error: Login failed")
	assert.Contains(t, body, `role="alert"`)

	// Notices are shown once.
	_, body = b.get("/login")
	assert.NotContains(t, body, "Login failed")
}

func TestLogin_SuccessLoadsInstances(t *testing.T) {
	b := newBrowser(t)
	b.backend.addInstance("alpha")
	b.backend.addInstance("beta")

	b.login()

	resp, body := b.get("/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "alpha")
	assert.Contains(t, body, "beta")
	assert.Equal(t, 2, countOf(body, `class="card"`))
	// Login loaded the list moments ago, so the page view does not reload.
	assert.Equal(t, 1, b.backend.count("list"))
}

func TestDashboard_RefreshForcesReload(t *testing.T) {
	b := newBrowser(t)
	b.login()
	b.backend.addInstance("late")

	_, body := b.get("/dashboard?refresh=1")
	assert.Contains(t, body, "late")
	assert.Equal(t, 2, b.backend.count("list"))
}

func TestDashboard_RedirectsWhenUnauthenticated(t *testing.T) {
	b := newBrowser(t)

	resp, _ := b.get("/dashboard")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Zero(t, b.backend.count("list"))
}

func TestDashboard_EscapesInstanceNames(t *testing.T) {
	b := newBrowser(t)
	b.backend.addInstance(`<script>alert(1)</script>`)
	b.login()

	_, body := b.get("/dashboard")
	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestRegister(t *testing.T) {
	b := newBrowser(t)

	resp := b.post("/register", url.Values{"email": {"new@x.com"}, "password": {"pw"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	_, body := b.get("/login")
	assert.Contains(t, body, "Registered! Please login.")

	resp, _ = b.get("/dashboard")
	assert.Equal(t, "/login", resp.Header.Get("Location"), "registering must not log in")
}

func TestRegister_Failure(t *testing.T) {
	b := newBrowser(t)

	resp := b.post("/register", url.Values{"email": {testUser}, "password": {"pw"}})
	assert.Equal(t, "/login?mode=register", resp.Header.Get("Location"))

	_, body := b.get("/login?mode=register")
	assert.Contains(t, body, "Error: Registration failed")
}

func TestCreateInstance(t *testing.T) {
	b := newBrowser(t)
	b.login()

	resp := b.post("/instances", url.Values{"name": {"  gamma  "}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	inst, ok := b.backend.find(1)
	require.True(t, ok)
	assert.Equal(t, "gamma", inst.Name)

	_, body := b.get("/dashboard")
	assert.Contains(t, body, "gamma")
	// login + post-create reload; the page view reuses the fresh list.
	assert.Equal(t, 2, b.backend.count("list"))
}

func TestCreateInstance_BlankNameRejectedLocally(t *testing.T) {
	b := newBrowser(t)
	b.login()

	b.post("/instances", url.Values{"name": {"   "}})

	_, body := b.get("/dashboard")
	assert.Contains(t, body, "Instance name must not be empty")
	assert.Zero(t, b.backend.count("create"))
}

func TestCreateInstance_FailureLeavesListUntouched(t *testing.T) {
	b := newBrowser(t)
	b.login()
	b.backend.mu.Lock()
	b.backend.failCreate = true
	b.backend.mu.Unlock()

	b.post("/instances", url.Values{"name": {"delta"}})

	_, body := b.get("/dashboard")
	assert.Contains(t, body, "Error creating instance: Failed to create instance")
	assert.Equal(t, 1, b.backend.count("list"), "a failed write must not reload")
}

func TestCreateInstance_UnauthenticatedGoesToLogin(t *testing.T) {
	b := newBrowser(t)

	resp := b.post("/instances", url.Values{"name": {"x"}})
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	_, body := b.get("/login")
	assert.Contains(t, body, "Please login first")
	assert.Zero(t, b.backend.count("create"))
}

func TestToggleWarming(t *testing.T) {
	b := newBrowser(t)
	b.backend.addInstance("alpha")
	b.login()

	_, body := b.get("/dashboard")
	assert.Contains(t, body, `action="/instances/1/warming/start"`)
	assert.Contains(t, body, "Start Warming")

	resp := b.post("/instances/1/warming/start", nil)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	inst, _ := b.backend.find(1)
	assert.True(t, inst.WarmingEnabled)

	_, body = b.get("/dashboard")
	assert.Contains(t, body, `action="/instances/1/warming/stop"`)
	assert.Contains(t, body, "Stop Warming")
	assert.Contains(t, body, "Active")
}

func TestToggleWarming_UnknownInstance(t *testing.T) {
	b := newBrowser(t)
	b.login()

	b.post("/instances/99/warming/stop", nil)

	_, body := b.get("/dashboard")
	assert.Contains(t, body, "Error: Failed to stop warming")
}

func TestToggleWarming_BadRequests(t *testing.T) {
	b := newBrowser(t)
	b.login()

	resp := b.post("/instances/1/warming/pause", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = b.post("/instances/abc/warming/start", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = b.post("/instances/0/connect", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Zero(t, b.backend.count("warming"))
	assert.Zero(t, b.backend.count("qrcode"))
}

func TestConnect_ShowsAndClosesPairingModal(t *testing.T) {
	b := newBrowser(t)
	inst := b.backend.addInstance("alpha")
	b.backend.setCode(inst.ID, strPtr("data:image/png;base64,AAAA"))
	b.login()

	resp := b.post("/instances/1/connect", nil)
	assert.Equal(t, keptDashboardURL, resp.Header.Get("Location"))

	_, body := b.get("/dashboard")
	assert.Contains(t, body, "Scan QR Code")
	assert.Contains(t, body, `src="data:image/png;base64,AAAA"`)

	// The modal stays until it is closed.
	_, body = b.get("/dashboard")
	assert.Contains(t, body, "Scan QR Code")

	resp = b.post("/pairing/close", nil)
	assert.Equal(t, keptDashboardURL, resp.Header.Get("Location"))

	_, body = b.get("/dashboard")
	assert.NotContains(t, body, "Scan QR Code")
}

func TestConnect_RawPayloadRenderedAsQR(t *testing.T) {
	b := newBrowser(t)
	inst := b.backend.addInstance("alpha")
	b.backend.setCode(inst.ID, strPtr("2@raw,pairing,payload"))
	b.login()

	b.post("/instances/1/connect", nil)

	_, body := b.get("/dashboard")
	assert.Contains(t, body, `src="`+pairingimage.PNGDataURIPrefix)
}

func TestConnect_AbsentCodeShowsNotice(t *testing.T) {
	b := newBrowser(t)
	b.backend.addInstance("alpha")
	b.login()

	b.post("/instances/1/connect", nil)

	_, body := b.get("/dashboard")
	assert.NotContains(t, body, "Scan QR Code")
	assert.Contains(t, body, "Could not get QR Code. Instance might be already connected or not ready.")
	assert.Contains(t, body, `notice-info`)
}

func TestClosePairing_IdleIsNoop(t *testing.T) {
	b := newBrowser(t)
	b.login()

	resp := b.post("/pairing/close", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, keptDashboardURL, resp.Header.Get("Location"))
}

func TestConnect_AbsentCodeKeepsStaleList(t *testing.T) {
	b := newBrowser(t)
	b.backend.addInstance("alpha")
	b.login()
	b.backend.addInstance("late")
	b.advance(time.Minute)
	lists := b.backend.count("list")

	resp := b.post("/instances/1/connect", nil)
	require.Equal(t, keptDashboardURL, resp.Header.Get("Location"))

	_, body := b.get(resp.Header.Get("Location"))
	assert.Equal(t, lists, b.backend.count("list"))
	assert.NotContains(t, body, "late")
	assert.Contains(t, body, "Could not get QR Code.")

	_, body = b.get("/dashboard")
	assert.Equal(t, lists+1, b.backend.count("list"))
	assert.Contains(t, body, "late")
}

func TestClosePairing_KeepsStaleList(t *testing.T) {
	b := newBrowser(t)
	inst := b.backend.addInstance("alpha")
	b.backend.setCode(inst.ID, strPtr("data:image/png;base64,AAAA"))
	b.login()
	b.post("/instances/1/connect", nil)
	b.advance(time.Minute)
	lists := b.backend.count("list")

	resp := b.post("/pairing/close", nil)
	_, body := b.get(resp.Header.Get("Location"))
	assert.Equal(t, lists, b.backend.count("list"))
	assert.NotContains(t, body, "Scan QR Code")
}

func TestDashboard_StaleListReloadsOnOpen(t *testing.T) {
	b := newBrowser(t)
	b.login()
	b.backend.addInstance("late")
	b.advance(time.Minute)

	_, body := b.get("/dashboard")
	assert.Contains(t, body, "late")
	assert.Equal(t, 2, b.backend.count("list"))
}

func TestLogout(t *testing.T) {
	b := newBrowser(t)
	b.backend.addInstance("alpha")
	b.login()

	require.Equal(t, 1, b.devices.Len())

	resp := b.post("/logout", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Equal(t, 0, b.devices.Len())

	resp, _ = b.get("/dashboard")
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	lists := b.backend.count("list")
	b.post("/instances/1/warming/start", nil)
	assert.Equal(t, lists, b.backend.count("list"))
	assert.Zero(t, b.backend.count("warming"))
}

func TestStaticAssets(t *testing.T) {
	b := newBrowser(t)

	resp, body := b.get("/static/style.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, ".card")
}
