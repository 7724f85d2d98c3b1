package models

// Dependency check states.
const (
	CheckOK      = "ok"
	CheckError   = "error"
	CheckUnknown = "unknown"
)

// Overall health states.
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
)

// HealthSnapshot is computed per request and never cached.
type HealthSnapshot struct {
	Status      string            `json:"status"`
	Timestamp   string            `json:"timestamp"`
	Uptime      float64           `json:"uptime"`
	Environment string            `json:"environment"`
	Version     string            `json:"version"`
	Checks      map[string]string `json:"checks"`
	Error       string            `json:"error,omitempty"`
}

// ServiceInfo is the liveness payload served at the root path.
type ServiceInfo struct {
	Name        string            `json:"name"`
	Status      string            `json:"status"`
	Version     string            `json:"version"`
	Environment string            `json:"environment"`
	Timestamp   string            `json:"timestamp"`
	Endpoints   map[string]string `json:"endpoints"`
}
