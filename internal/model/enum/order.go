package enum

// OrderSide is the taker direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Opposite returns the side that closes this one.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

// OrderType selects the execution style of an order.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeStop   OrderType = "STOP"
)

// OrderStatus is the canonical exchange-facing order lifecycle.
//
// NEW -> {PARTIALLY_FILLED -> FILLED | CANCELED | REJECTED | EXPIRED}
type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
)

// Terminal reports whether no further transitions are possible.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected, OrderStatusExpired:
		return true
	default:
		return false
	}
}

// TrackStatus is the executor's local retry bookkeeping state.
// It wraps the canonical status and is never persisted.
type TrackStatus string

const (
	TrackStatusPending   TrackStatus = "PENDING"
	TrackStatusExecuting TrackStatus = "EXECUTING"
	TrackStatusCompleted TrackStatus = "COMPLETED"
	TrackStatusFailed    TrackStatus = "FAILED"
	TrackStatusCancelled TrackStatus = "CANCELLED"
)
