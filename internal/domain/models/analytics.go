package models

import "time"

// PriceStats summarises a price series.
type PriceStats struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
	Median  float64 `json:"median"`
	Current float64 `json:"current"`
}

// PriceChange is the move of the current price against the start of a lookback window.
type PriceChange struct {
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

// VolumeStats are trailing rollups of a daily trade-count series.
type VolumeStats struct {
	Total   int64   `json:"total"`
	Average float64 `json:"average"`
	Last24h int64   `json:"last24h"`
	Last7d  int64   `json:"last7d"`
	Last30d int64   `json:"last30d"`
}

type Trend string

const (
	TrendRising  Trend = "Rising"
	TrendFalling Trend = "Falling"
	TrendStable  Trend = "Stable"
)

type DemandLevel string

const (
	DemandHigh   DemandLevel = "High"
	DemandMedium DemandLevel = "Medium"
	DemandLow    DemandLevel = "Low"
)

type PredictionMethod string

const (
	MethodInsufficientData PredictionMethod = "insufficient_data"
	MethodNoPredictions    PredictionMethod = "no_predictions"
	MethodWeightedEnsemble PredictionMethod = "weighted_ensemble"
)

// PredictionComponents holds the individual forecasts that fed an ensemble.
// A nil field means the method had too little data.
type PredictionComponents struct {
	Linear *float64 `json:"linear"`
	EMA    *float64 `json:"ema"`
	MA     *float64 `json:"ma"`
}

// Prediction is a point forecast with a confidence band.
// Nil pointers are "unavailable", not zero.
type Prediction struct {
	Predicted  *float64              `json:"predicted"`
	Confidence int                   `json:"confidence"`
	Lower      *float64              `json:"lower"`
	Upper      *float64              `json:"upper"`
	Method     PredictionMethod      `json:"method"`
	Components *PredictionComponents `json:"components,omitempty"`
}

// ProjectionPoint is a forecast value for a future date.
type ProjectionPoint struct {
	Date        time.Time `json:"date"`
	Value       float64   `json:"value"`
	IsProjected bool      `json:"isProjected"`
}

// MarketReport bundles every analytic computed for an item at one instant.
type MarketReport struct {
	ID                  string                `json:"id"`
	ItemID              string                `json:"itemId"`
	GeneratedAt         time.Time             `json:"generatedAt"`
	Item                *Item                 `json:"item,omitempty"`
	Stats               PriceStats            `json:"stats"`
	Change24h           PriceChange           `json:"change24h"`
	Change7d            PriceChange           `json:"change7d"`
	Change30d           PriceChange           `json:"change30d"`
	Volume              VolumeStats           `json:"volume"`
	Demand              DemandLevel           `json:"demand"`
	Trend               Trend                 `json:"trend"`
	Volatility          float64               `json:"volatility"`
	RSI                 float64               `json:"rsi"`
	MA7                 []PricePoint          `json:"ma7"`
	MA30                []PricePoint          `json:"ma30"`
	Predictions         map[string]Prediction `json:"predictions"`
	Projection          []ProjectionPoint     `json:"projection"`
	IncreaseProbability int                   `json:"increaseProbability"`
	Errors              map[string]string     `json:"errors,omitempty"`
}
