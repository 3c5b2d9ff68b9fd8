package models

import "time"

// Period-scoped response payloads. Period carries the machine name and
// PeriodLabel the human one ("Last 7 Days").

type StatsResult struct {
	ItemID      string      `json:"itemId"`
	Period      string      `json:"period"`
	PeriodLabel string      `json:"periodLabel"`
	Points      int         `json:"points"`
	Stats       PriceStats  `json:"stats"`
	Change24h   PriceChange `json:"change24h"`
	Change7d    PriceChange `json:"change7d"`
	Change30d   PriceChange `json:"change30d"`
	AsOf        time.Time   `json:"asOf"`
}

type VolumeResult struct {
	ItemID string      `json:"itemId"`
	Volume VolumeStats `json:"volume"`
	Demand DemandLevel `json:"demand"`
	AsOf   time.Time   `json:"asOf"`
}

type TrendResult struct {
	ItemID      string  `json:"itemId"`
	Period      string  `json:"period"`
	PeriodLabel string  `json:"periodLabel"`
	Trend       Trend   `json:"trend"`
	Volatility  float64 `json:"volatility"`
	RSI         float64 `json:"rsi"`
	RSIPeriod   int     `json:"rsiPeriod"`
}

type MovingAverageResult struct {
	ItemID      string       `json:"itemId"`
	Period      string       `json:"period"`
	PeriodLabel string       `json:"periodLabel"`
	Window      int          `json:"window"`
	SMA         []PricePoint `json:"sma"`
	EMA         *float64     `json:"ema"`
}

type PredictionResult struct {
	ItemID              string     `json:"itemId"`
	Days                int        `json:"days"`
	Prediction          Prediction `json:"prediction"`
	IncreaseProbability int        `json:"increaseProbability"`
}
