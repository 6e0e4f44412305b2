package model

// InstanceStatus is the connection state reported by the backend. The set of
// values is owned by the server; the dashboard treats it as opaque apart from
// recognising "connected".
type InstanceStatus string

const (
	InstanceStatusConnected    InstanceStatus = "connected"
	InstanceStatusDisconnected InstanceStatus = "disconnected"
)

// Instance is a managed messaging account tracked by the backend.
type Instance struct {
	ID             int64          `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	Status         InstanceStatus `json:"status" yaml:"status"`
	WarmingEnabled bool           `json:"warming_enabled" yaml:"warming_enabled"`
	MessagesToday  int            `json:"messages_today" yaml:"messages_today"`
}

// IsConnected reports whether the backend considers the instance paired.
func (i Instance) IsConnected() bool {
	return i.Status == InstanceStatusConnected
}
