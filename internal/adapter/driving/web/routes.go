package web

import (
	"io/fs"
	"net/http"
)

// RegisterRoutes registers all web GUI routes on the provided mux.
// Static assets are served from the embedded filesystem at /static/*.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	staticFS, _ := fs.Sub(StaticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /login", h.LoginPage)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("POST /register", h.Register)
	mux.HandleFunc("POST /logout", h.Logout)

	mux.HandleFunc("GET /dashboard", h.Dashboard)
	mux.HandleFunc("POST /instances", h.CreateInstance)
	mux.HandleFunc("POST /instances/{id}/connect", h.Connect)
	mux.HandleFunc("POST /instances/{id}/warming/{action}", h.ToggleWarming)
	mux.HandleFunc("POST /pairing/close", h.ClosePairing)
}
