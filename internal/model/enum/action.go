package enum

// Action is the directional intent carried by a signal.
type Action string

const (
	ActionBuy   Action = "BUY"
	ActionSell  Action = "SELL"
	ActionClose Action = "CLOSE"
	ActionHold  Action = "HOLD"
)

// Valid reports whether the action is part of the known vocabulary.
func (a Action) Valid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionClose, ActionHold:
		return true
	default:
		return false
	}
}
