package models

// Requests for item analytics HTTP endpoints. Defined in domain for consistency and reuse.

type StatsRequest struct {
	ItemID string `param:"id" json:"id" validate:"required,numeric"`
	Period string `query:"period" json:"period" default:"all" validate:"oneof=24h 7d 30d 90d 1y all"`
}

type VolumeRequest struct {
	ItemID string `param:"id" json:"id" validate:"required,numeric"`
}

type TrendRequest struct {
	ItemID    string `param:"id" json:"id" validate:"required,numeric"`
	Period    string `query:"period" json:"period" default:"all" validate:"oneof=24h 7d 30d 90d 1y all"`
	RSIPeriod int    `query:"rsi" json:"rsi" default:"14" validate:"gte=2,lte=100"`
}

type MovingAverageRequest struct {
	ItemID string `param:"id" json:"id" validate:"required,numeric"`
	Period string `query:"period" json:"period" default:"all" validate:"oneof=24h 7d 30d 90d 1y all"`
	Window int    `query:"window" json:"window" default:"7" validate:"gte=1,lte=365"`
}

type PredictionRequest struct {
	ItemID string `param:"id" json:"id" validate:"required,numeric"`
	Days   int    `query:"days" json:"days" default:"1" validate:"oneof=1 7 30"`
}

type ProjectionRequest struct {
	ItemID string `param:"id" json:"id" validate:"required,numeric"`
	Days   int    `query:"days" json:"days" default:"7" validate:"gte=1,lte=90"`
}

type ItemRequest struct {
	ItemID string `param:"id" json:"id" validate:"required,numeric"`
}
