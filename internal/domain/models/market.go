package models

import "time"

// PricePoint is one observed trade price at a point in time.
type PricePoint struct {
	Value  float64   `json:"value"`
	Date   time.Time `json:"date"`
	SaleID int64     `json:"saleId,omitempty"`
}

// VolumePoint is the number of trades executed on a calendar day.
type VolumePoint struct {
	Value int64     `json:"value"`
	Date  time.Time `json:"date"`
}

// Sale is a single resale event as it arrives from the market-data feed.
type Sale struct {
	ItemID    string  `json:"item_id"`
	SaleID    int64   `json:"sale_id"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"ts"` // unix seconds
}

func (s Sale) Time() time.Time {
	return time.Unix(s.Timestamp, 0).UTC()
}

// Item is the catalogue entry of a tracked collectible.
type Item struct {
	AssetID      string    `json:"assetId"`
	Name         string    `json:"name"`
	Acronym      string    `json:"acronym,omitempty"`
	RAP          float64   `json:"rap"`
	Value        float64   `json:"value"`
	DefaultValue float64   `json:"defaultValue"`
	Demand       int       `json:"demand"`
	Trend        int       `json:"trend"`
	Rare         bool      `json:"rare"`
	LastUpdated  time.Time `json:"lastUpdated"`
}
