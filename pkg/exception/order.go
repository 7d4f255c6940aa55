package exception

import "errors"

// Trading errors: order creation or cancellation failed against the
// execution collaborator.
var (
	ErrOrderUnknown         = errors.New("order: not found")
	ErrOrderDuplicate       = errors.New("order: already tracked")
	ErrOrderCreateFailed    = errors.New("order: create failed")
	ErrOrderCancelFailed    = errors.New("order: cancel failed")
	ErrOrderRetriesExceeded = errors.New("order: retry cap exceeded")
	ErrOrderNoReferencePx   = errors.New("order: no reference price for symbol")
	ErrExecutorHalted       = errors.New("order: executor halted")
)
