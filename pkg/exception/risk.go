package exception

import "errors"

// Risk errors: sizing fails closed, no order is placed.
var (
	ErrRiskStateUnavailable = errors.New("risk: no snapshot computed yet")
	ErrRiskTradingHalted    = errors.New("risk: trading not allowed")
	ErrRiskSizingTimeout    = errors.New("risk: no sizing available this cycle")
)
