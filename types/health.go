package types

type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "UP"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusDown     HealthStatus = "DOWN"
)

// Component keys in HealthCheck.Components.
const (
	// HealthComponentLedgerStore is the store holding transactions, wallets
	// and budgets.
	HealthComponentLedgerStore = "ledgerStore"
	// HealthComponentRedis backs sweep locks, rate limits and ledger events.
	HealthComponentRedis = "redis"
)

var healthSeverity = map[HealthStatus]int{
	HealthStatusUp:       0,
	HealthStatusDegraded: 1,
	HealthStatusDown:     2,
}

// Worse returns the more severe of the two statuses.
func (s HealthStatus) Worse(other HealthStatus) HealthStatus {
	if healthSeverity[other] > healthSeverity[s] {
		return other
	}
	return s
}

type HealthComponent struct {
	Status  HealthStatus `json:"status"`
	Backend string       `json:"backend,omitempty"`
	Details string       `json:"details,omitempty"`
}

type HealthCheck struct {
	Status     HealthStatus               `json:"status"`
	Components map[string]HealthComponent `json:"components"`
	Version    string                     `json:"version"`
	Timestamp  string                     `json:"timestamp"`
	Uptime     string                     `json:"uptime"`
}

// Ready reports whether the instance should take traffic. A degraded
// ledger still serves requests.
func (h HealthCheck) Ready() bool {
	return h.Status != HealthStatusDown
}
