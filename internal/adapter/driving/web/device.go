package web

import (
	"net/http"
	"time"
)

const (
	deviceCookieName = "heater_device"
	deviceCookieTTL  = 365 * 24 * time.Hour
)

// deviceID returns the browser's device identifier, issuing a new one when
// the request has no valid device cookie.
func deviceID(w http.ResponseWriter, r *http.Request, secure bool) string {
	if cookie, err := r.Cookie(deviceCookieName); err == nil && validDeviceID(cookie.Value) {
		return cookie.Value
	}

	id := generateToken()
	http.SetCookie(w, &http.Cookie{
		Name:     deviceCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(deviceCookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
	return id
}

// validDeviceID accepts only ids of the shape generateToken produces, so a
// forged cookie cannot smuggle arbitrary keys into the session store.
func validDeviceID(id string) bool {
	if len(id) != tokenBytes*2 {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
