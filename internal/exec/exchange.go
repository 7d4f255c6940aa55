package exec

import (
	"context"
	"strings"

	"main/internal/model"
	"main/internal/model/enum"
)

// Exchange is the execution collaborator contract: balance, positions,
// order CRUD and a funding-rate lookup. The simulator implements it for
// simulated mode; a venue connector implements it for live mode.
type Exchange interface {
	Balance(ctx context.Context) (total, available float64, err error)
	Positions(ctx context.Context) ([]model.Position, error)
	SetLeverage(ctx context.Context, symbol string, leverage float64) error
	CreateOrder(ctx context.Context, order model.Order) (model.Order, error)
	CancelOrder(ctx context.Context, orderID string) error
	GetOrder(ctx context.Context, orderID string) (model.Order, bool, error)
	FundingRate(ctx context.Context, symbol string) (float64, error)
}

// MapNativeStatus folds a venue's status vocabulary onto the canonical
// enum. Unknown strings conservatively map to NEW so the monitor keeps
// polling instead of dropping the order.
func MapNativeStatus(native string) enum.OrderStatus {
	switch strings.ToUpper(native) {
	case "FILLED", "CLOSED", "DONE":
		return enum.OrderStatusFilled
	case "PARTIALLY_FILLED", "PARTIAL":
		return enum.OrderStatusPartiallyFilled
	case "CANCELED", "CANCELLED":
		return enum.OrderStatusCanceled
	case "REJECTED", "DENIED":
		return enum.OrderStatusRejected
	case "EXPIRED", "EXPIRED_IN_MATCH":
		return enum.OrderStatusExpired
	default:
		return enum.OrderStatusNew
	}
}
