package storage

import (
	"encoding/json"
	"time"

	"main/internal/model"
	"main/internal/model/enum"
)

// OrderRecord is the durable shape of an order. Written on creation and
// rewritten on every status change.
type OrderRecord struct {
	ID           string `gorm:"primaryKey"`
	Symbol       string `gorm:"index"`
	Side         string
	Type         string
	Quantity     float64
	Price        *float64
	StopPrice    *float64
	Status       string
	ExecutedQty  float64
	AvgFillPrice float64
	Fee          float64
	ExternalID   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (OrderRecord) TableName() string { return "orders" }

// TradeRecord is one completed fill.
type TradeRecord struct {
	ID          string `gorm:"primaryKey"`
	OrderID     string `gorm:"index"`
	Symbol      string `gorm:"index"`
	Side        string
	Quantity    float64
	Price       float64
	Fee         float64
	RealizedPnL float64   `gorm:"column:realized_pnl"`
	Timestamp   time.Time `gorm:"index"`
}

func (TradeRecord) TableName() string { return "trades" }

// RiskMetricRecord is one risk snapshot, appended every cycle.
type RiskMetricRecord struct {
	ID                 uint `gorm:"primaryKey;autoIncrement"`
	TotalBalance       float64
	AvailableBalance   float64
	UnrealizedPnL      float64 `gorm:"column:unrealized_pnl"`
	DailyRealizedPnL   float64 `gorm:"column:daily_realized_pnl"`
	MaxDrawdownPct     float64
	Level              string
	TradeAllowed       bool
	MarginUsagePct     float64
	LiquidationRiskPct float64
	Timestamp          time.Time `gorm:"index"`
}

func (RiskMetricRecord) TableName() string { return "risk_metrics" }

// RiskLimitsRecord is the single active limits row.
type RiskLimitsRecord struct {
	ID                    uint `gorm:"primaryKey"`
	MaxDailyLossPct       float64
	MaxLeverage           float64
	MaxPositionSizePct    float64
	MaxDrawdownPct        float64
	MaxOpenPositions      int
	ConcentrationLimitPct float64
	LiquidationBufferPct  float64
	UpdatedAt             time.Time
}

func (RiskLimitsRecord) TableName() string { return "risk_limits" }

// SourceConfigRecord stores one signal source's configuration. The
// list-shaped fields are kept as JSON text.
type SourceConfigRecord struct {
	ID         string `gorm:"primaryKey"`
	Enabled    bool
	Weight     float64
	Symbols    string
	Timeframes string
	Params     string
	UpdatedAt  time.Time
}

func (SourceConfigRecord) TableName() string { return "source_configs" }

func toOrderRecord(o model.Order) OrderRecord {
	return OrderRecord{
		ID:           o.ID,
		Symbol:       o.Symbol,
		Side:         string(o.Side),
		Type:         string(o.Type),
		Quantity:     o.Quantity,
		Price:        o.Price,
		StopPrice:    o.StopPrice,
		Status:       string(o.Status),
		ExecutedQty:  o.ExecutedQty,
		AvgFillPrice: o.AvgFillPrice,
		Fee:          o.Fee,
		ExternalID:   o.ExternalID,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

func toTradeRecord(t model.Trade) TradeRecord {
	return TradeRecord{
		ID:          t.ID,
		OrderID:     t.OrderID,
		Symbol:      t.Symbol,
		Side:        string(t.Side),
		Quantity:    t.Quantity,
		Price:       t.Price,
		Fee:         t.Fee,
		RealizedPnL: t.RealizedPnL,
		Timestamp:   t.Timestamp,
	}
}

func toRiskMetricRecord(s model.RiskState) RiskMetricRecord {
	return RiskMetricRecord{
		TotalBalance:       s.TotalBalance,
		AvailableBalance:   s.AvailableBalance,
		UnrealizedPnL:      s.UnrealizedPnL,
		DailyRealizedPnL:   s.DailyRealizedPnL,
		MaxDrawdownPct:     s.MaxDrawdownPct,
		Level:              string(s.Level),
		TradeAllowed:       s.TradeAllowed,
		MarginUsagePct:     s.MarginUsagePct,
		LiquidationRiskPct: s.LiquidationRiskPct,
		Timestamp:          s.Timestamp,
	}
}

func toSourceConfigRecord(cfg model.SourceConfig) (SourceConfigRecord, error) {
	symbols, err := json.Marshal(cfg.Symbols)
	if err != nil {
		return SourceConfigRecord{}, err
	}
	timeframes, err := json.Marshal(cfg.Timeframes)
	if err != nil {
		return SourceConfigRecord{}, err
	}
	params, err := json.Marshal(cfg.Params)
	if err != nil {
		return SourceConfigRecord{}, err
	}
	return SourceConfigRecord{
		ID:         cfg.ID,
		Enabled:    cfg.Enabled,
		Weight:     cfg.Weight,
		Symbols:    string(symbols),
		Timeframes: string(timeframes),
		Params:     string(params),
		UpdatedAt:  time.Now().UTC(),
	}, nil
}

func (r SourceConfigRecord) toModel() (model.SourceConfig, error) {
	cfg := model.SourceConfig{
		ID:      r.ID,
		Enabled: r.Enabled,
		Weight:  r.Weight,
	}
	if r.Symbols != "" {
		if err := json.Unmarshal([]byte(r.Symbols), &cfg.Symbols); err != nil {
			return model.SourceConfig{}, err
		}
	}
	if r.Timeframes != "" {
		if err := json.Unmarshal([]byte(r.Timeframes), &cfg.Timeframes); err != nil {
			return model.SourceConfig{}, err
		}
	}
	if r.Params != "" {
		if err := json.Unmarshal([]byte(r.Params), &cfg.Params); err != nil {
			return model.SourceConfig{}, err
		}
	}
	return cfg, nil
}

func (r OrderRecord) toModel() model.Order {
	return model.Order{
		ID:           r.ID,
		Symbol:       r.Symbol,
		Side:         enum.OrderSide(r.Side),
		Type:         enum.OrderType(r.Type),
		Quantity:     r.Quantity,
		Price:        r.Price,
		StopPrice:    r.StopPrice,
		Status:       enum.OrderStatus(r.Status),
		ExecutedQty:  r.ExecutedQty,
		AvgFillPrice: r.AvgFillPrice,
		Fee:          r.Fee,
		ExternalID:   r.ExternalID,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
