package http

import (
	"time"

	"github.com/sawpanic/optionflight/internal/persistence"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string                  `json:"status"` // healthy, degraded
	Timestamp time.Time               `json:"timestamp"`
	Store     persistence.HealthCheck `json:"store"`
}

// RunListResponse represents the run listing response
type RunListResponse struct {
	Runs  []persistence.Run `json:"runs"`
	Count int               `json:"count"`
}

// RegimeStatsResponse represents the regime distribution of a run
type RegimeStatsResponse struct {
	RunID   string           `json:"run_id"`
	Regimes map[string]int64 `json:"regimes"`
	Total   int64            `json:"total"`
}

// ErrorResponse represents standardized error responses
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}
