package models

// Requests for the HTTP read surface. Defined in domain for consistency and reuse.

type LeaderboardRequest struct {
	Limit int `query:"limit" json:"limit" default:"10" validate:"gte=1,lte=100"`
}

type TicksRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
	// Since is a lower time bound: RFC3339 or a unix seconds/millis value.
	Since string `query:"since" json:"since"`
}

// StatusResponse is the service banner served at the root path.
type StatusResponse struct {
	Service string   `json:"service"`
	Version string   `json:"version"`
	Topics  []string `json:"topics"`
}

// HealthResponse reports per-dependency health.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}
