package model

import (
	"time"

	"main/internal/model/enum"
)

// Order is owned by the execution component: created there, updated only
// there, persisted on creation and on every status change.
type Order struct {
	ID           string
	Symbol       string
	Side         enum.OrderSide
	Type         enum.OrderType
	Quantity     float64
	Price        *float64 // limit price, market orders leave it nil
	StopPrice    *float64
	Status       enum.OrderStatus
	ExecutedQty  float64
	AvgFillPrice float64
	Fee          float64 // venue fee charged on the executed part
	ExternalID   string  // exchange-assigned id in live mode
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Position is one side of the book for an instrument. Closed positions are
// removed from the live view; trade history stays in durable storage.
type Position struct {
	Symbol           string
	Side             enum.PositionSide
	Size             float64
	EntryPrice       float64 // volume-weighted average
	MarkPrice        float64
	UnrealizedPnL    float64
	Leverage         float64
	MarginUsed       float64
	LiquidationPrice *float64
}

// Trade is a completed fill kept in durable history.
type Trade struct {
	ID          string
	OrderID     string
	Symbol      string
	Side        enum.OrderSide
	Quantity    float64
	Price       float64
	Fee         float64
	RealizedPnL float64
	Timestamp   time.Time
}
