// Package viewmodel holds presentation-ready structs consumed by the templ
// components. Handlers convert domain values into these before rendering.
package viewmodel

// NoticeViewModel is a rendered, sanitized notice.
type NoticeViewModel struct {
	Level string // "info" or "error"
	HTML  string
}

// InstanceCardViewModel holds presentation-ready data for one instance card.
type InstanceCardViewModel struct {
	ID             int64
	Name           string
	Status         string
	IsConnected    bool
	WarmingEnabled bool
	WarmingLabel   string // "Active" / "Inactive"
	ToggleLabel    string // "Start Warming" / "Stop Warming"
	ToggleURL      string // computed: /instances/{id}/warming/{start|stop}
	ConnectURL     string // computed: /instances/{id}/connect
	MessagesToday  int
}

// PairingViewModel holds the pairing modal contents.
type PairingViewModel struct {
	InstanceID   int64
	InstanceName string
	ImageSrc     string
	CloseURL     string
}

// LoginViewModel holds all data needed to render the login/register page.
type LoginViewModel struct {
	CSRFToken string
	Register  bool
	Notices   []NoticeViewModel
}

// DashboardViewModel holds all data needed to render the dashboard page.
type DashboardViewModel struct {
	CSRFToken     string
	Instances     []InstanceCardViewModel
	Pairing       *PairingViewModel
	Notices       []NoticeViewModel
	LastRefreshed string
}
