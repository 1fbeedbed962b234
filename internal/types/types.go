package types

import "time"

// Bar is one daily OHLCV interval. Immutable once fetched.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// Instrument identifies one tradable NSE symbol. Token is the provider's
// instrument token used for historical data requests. LotSize comes from the
// matching stock future and is carried for display only.
type Instrument struct {
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
	Token    uint32 `json:"token"`
	LotSize  int    `json:"lot_size"`
}

type Classification string

const (
	Full    Classification = "FULL"
	Partial Classification = "PARTIAL"
	None    Classification = "NONE"
)

// BreakoutResult is the per-instrument output of one classification.
// Created once, never mutated.
type BreakoutResult struct {
	Symbol         string         `json:"symbol"`
	Classification Classification `json:"classification"`
	ReferenceHigh  float64        `json:"reference_high"`
	LatestClose    float64        `json:"latest_close"`
	PriceExcess    float64        `json:"price_excess"`
	VolumeRatio    float64        `json:"volume_ratio"`
	ATR            float64        `json:"atr"`
	Timestamp      time.Time      `json:"timestamp"`
}
