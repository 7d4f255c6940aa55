package bus

import "main/internal/model"

// SizeRequest asks the risk component to size a position for a signal.
type SizeRequest struct {
	Signal       model.Signal
	CurrentPrice float64
}

// SizeReply answers a SizeRequest. Err carries the structured rejection
// text when sizing failed; Proposal is only meaningful when Err is empty
// and the assessment allows the trade.
type SizeReply struct {
	Proposal   model.PositionSizeProposal
	Assessment model.Assessment
	Err        string
}

// RiskUpdate is published after every risk snapshot cycle.
type RiskUpdate struct {
	State  model.RiskState
	Alerts []string
}

// OrderUpdate is published on every order status transition.
type OrderUpdate struct {
	Order model.Order
}
