package models

import "time"

// Record is one historical observation for an entity
type Record struct {
	Entity string `json:"entity"`
	Period int    `json:"period"`
	Gold   int    `json:"gold"`
	Silver int    `json:"silver"`
	Bronze int    `json:"bronze"`
	Total  int    `json:"total"`
}

// EntityHistory holds one entity's records, strictly ascending by period
type EntityHistory struct {
	Entity  string   `json:"entity"`
	Records []Record `json:"records"`
}

// FeatureVector aggregates the last K periods of an entity's history
type FeatureVector struct {
	Entity   string `json:"entity"`
	Periods  int    `json:"periods"` // Records actually inside the window
	Gold     int    `json:"gold_sum"`
	Silver   int    `json:"silver_sum"`
	Bronze   int    `json:"bronze_sum"`
	Total    int    `json:"total_sum"`
	Momentum int    `json:"momentum"` // Last total minus first total of the window
}

// Forecast is the predicted medal count of one entity.
// PredictedTotal always equals PredictedGold + PredictedSilver + PredictedBronze.
type Forecast struct {
	Entity          string `json:"entity"`
	PredictedGold   int    `json:"predicted_gold"`
	PredictedSilver int    `json:"predicted_silver"`
	PredictedBronze int    `json:"predicted_bronze"`
	PredictedTotal  int    `json:"predicted_total"`
}

// ForecastMode selects the predictor behind a forecast run
type ForecastMode string

const (
	ForecastModeBaseline ForecastMode = "baseline"
	ForecastModeModel    ForecastMode = "model"
)

// Valid reports whether m is a known mode
func (m ForecastMode) Valid() bool {
	return m == ForecastModeBaseline || m == ForecastModeModel
}

// ForecastRun is the complete output of one prediction request
type ForecastRun struct {
	ID             string       `json:"id"`
	Mode           ForecastMode `json:"mode"`
	Generation     uint64       `json:"generation"`
	Degraded       bool         `json:"degraded"`
	DegradedReason string       `json:"degraded_reason,omitempty"`
	Window         int          `json:"window"`
	CreatedAt      time.Time    `json:"created_at"`
	Forecasts      []Forecast   `json:"forecasts"`
}
