package models

// LoadSourceResponse summarizes a completed load cycle
type LoadSourceResponse struct {
	Entities   int    `json:"entities"`
	Records    int    `json:"records"`
	Window     int    `json:"window"`
	Generation uint64 `json:"generation"`
}

// RunForecastResponse acknowledges an asynchronous model forecast request
type RunForecastResponse struct {
	Status     string       `json:"status"`
	Mode       ForecastMode `json:"mode"`
	Generation uint64       `json:"generation"`
}

// ForecastStatus describes the orchestrator for readiness checks
type ForecastStatus struct {
	State       string `json:"state"`
	Generation  uint64 `json:"generation"`
	Entities    int    `json:"entities"`
	HasForecast bool   `json:"has_forecast"`
	Degraded    bool   `json:"degraded"`
	LoadError   string `json:"load_error,omitempty"`
}

// ClassifierStatus describes classifier asset readiness
type ClassifierStatus struct {
	SessionLoaded    bool   `json:"session_loaded"`
	VocabularyLoaded bool   `json:"vocabulary_loaded"`
	Labels           int    `json:"labels"`
	LastError        string `json:"last_error,omitempty"`
}
