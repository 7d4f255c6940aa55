package enum

// PositionSide distinguishes the two books held per instrument.
type PositionSide string

const (
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)
