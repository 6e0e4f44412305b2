// Package web implements the HTML GUI driving adapter using templ components.
package web

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/ericfisherdev/heaterpanel/internal/adapter/driving/web/templates"
	"github.com/ericfisherdev/heaterpanel/internal/adapter/driving/web/templates/pages"
	vm "github.com/ericfisherdev/heaterpanel/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/heaterpanel/internal/application"
)

const (
	pageTitle = "Chip Heater Dashboard"

	// reloadGrace skips the page-load reload when the list was just
	// refreshed, which is always the case right after a mutation redirect.
	reloadGrace = 2 * time.Second

	// keptDashboardURL is where actions that leave the instance list alone
	// redirect. Its page view shows the list as held, however old.
	keptDashboardURL = "/dashboard?keep=1"
)

// Handler is the web GUI driving adapter. Every request is resolved to the
// Dashboard of the requesting device, and every POST answers with a 303
// redirect.
type Handler struct {
	devices       *application.Devices
	secureCookies bool
	logger        *slog.Logger
	now           func() time.Time
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(devices *application.Devices, secureCookies bool, logger *slog.Logger) *Handler {
	return &Handler{
		devices:       devices,
		secureCookies: secureCookies,
		logger:        logger,
		now:           time.Now,
	}
}

// Index redirects to the dashboard or the login page depending on whether
// the device has a credential.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	dash := h.dashboard(w, r)
	if dash.Authenticated() {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// LoginPage renders the login form, or the register form for ?mode=register.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	dash := h.dashboard(w, r)
	if dash.Authenticated() {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	data := vm.LoginViewModel{
		CSRFToken: ensureCSRFToken(w, r, h.secureCookies),
		Register:  r.URL.Query().Get("mode") == "register",
		Notices:   toNoticeViewModels(dash.Notices()),
	}
	h.render(w, r, "login", pages.Login(data))
}

// Login handles the login form.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.checkCSRF(w, r) {
		return
	}
	dash := h.dashboard(w, r)

	if err := dash.Login(r.Context(), r.FormValue("email"), r.FormValue("password")); err != nil {
		h.logger.Info("login failed", "error", err)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// Register handles the registration form. On success the user is sent back
// to the login form with a confirmation notice.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if !h.checkCSRF(w, r) {
		return
	}
	dash := h.dashboard(w, r)

	if err := dash.Register(r.Context(), r.FormValue("email"), r.FormValue("password")); err != nil {
		h.logger.Info("registration failed", "error", err)
		http.Redirect(w, r, "/login?mode=register", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// Logout clears the device's credential and cached state, then drops the
// device's Dashboard.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if !h.checkCSRF(w, r) {
		return
	}
	id := deviceID(w, r, h.secureCookies)
	h.devices.Get(r.Context(), id).Logout(r.Context())
	h.devices.Forget(id)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// Dashboard renders the instance grid. Opening the page reloads the list
// unless it was loaded moments ago; ?refresh=1 always reloads. ?keep=1 skips
// the reload once the list has loaded at least once.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dash := h.dashboard(w, r)
	if !dash.Authenticated() {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	query := r.URL.Query()
	loadedAt := dash.Registry().LoadedAt()
	forced := query.Get("refresh") != ""
	kept := query.Get("keep") != "" && !loadedAt.IsZero()
	if forced || (!kept && !loadedWithin(loadedAt, reloadGrace, h.now())) {
		if err := dash.Refresh(r.Context()); err != nil {
			h.logger.Warn("dashboard reload failed", "error", err)
		}
	}

	data := toDashboardViewModel(dash.Snapshot(), ensureCSRFToken(w, r, h.secureCookies))
	h.render(w, r, "dashboard", pages.Dashboard(data))
}

// CreateInstance handles the new-instance form.
func (h *Handler) CreateInstance(w http.ResponseWriter, r *http.Request) {
	if !h.checkCSRF(w, r) {
		return
	}
	dash := h.dashboard(w, r)

	if err := dash.CreateInstance(r.Context(), r.FormValue("name")); err != nil {
		h.logger.Info("create instance failed", "error", err)
	}
	h.afterAction(w, r, dash, "/dashboard")
}

// Connect requests the pairing code for an instance.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	if !h.checkCSRF(w, r) {
		return
	}
	id, ok := parseInstanceID(w, r)
	if !ok {
		return
	}
	dash := h.dashboard(w, r)

	if err := dash.Connect(r.Context(), id); err != nil {
		h.logger.Info("connect failed", "instance_id", id, "error", err)
	}
	h.afterAction(w, r, dash, keptDashboardURL)
}

// ClosePairing hides the pairing modal.
func (h *Handler) ClosePairing(w http.ResponseWriter, r *http.Request) {
	if !h.checkCSRF(w, r) {
		return
	}
	dash := h.dashboard(w, r)
	dash.ClosePairing()
	h.afterAction(w, r, dash, keptDashboardURL)
}

// ToggleWarming starts or stops warming for an instance.
func (h *Handler) ToggleWarming(w http.ResponseWriter, r *http.Request) {
	if !h.checkCSRF(w, r) {
		return
	}
	id, ok := parseInstanceID(w, r)
	if !ok {
		return
	}

	var enable bool
	switch r.PathValue("action") {
	case "start":
		enable = true
	case "stop":
	default:
		http.Error(w, "unknown warming action", http.StatusBadRequest)
		return
	}

	dash := h.dashboard(w, r)
	if err := dash.ToggleWarming(r.Context(), id, enable); err != nil {
		h.logger.Info("toggle warming failed", "instance_id", id, "enable", enable, "error", err)
	}
	h.afterAction(w, r, dash, "/dashboard")
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) *application.Dashboard {
	return h.devices.Get(r.Context(), deviceID(w, r, h.secureCookies))
}

// afterAction redirects to target, or to the login page when the action
// failed because the device has no credential.
func (h *Handler) afterAction(w http.ResponseWriter, r *http.Request, dash *application.Dashboard, target string) {
	if !dash.Authenticated() {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	if validateCSRF(r) {
		return true
	}
	h.logger.Warn("csrf validation failed", "method", r.Method, "path", r.URL.Path)
	http.Error(w, "invalid csrf token", http.StatusForbidden)
	return false
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string, page templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	if err := templates.Layout(pageTitle, page).Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render page", "page", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func parseInstanceID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid instance id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
