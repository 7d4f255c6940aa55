package exception

import "errors"

// Market feed errors
var (
	ErrFeedClosed        = errors.New("feed: source closed")
	ErrFeedUnknownSymbol = errors.New("feed: unknown symbol")
)

// Bus errors
var (
	ErrBusQueueFull    = errors.New("bus: subscriber queue full")
	ErrBusClosed       = errors.New("bus: closed")
	ErrBusNoResponder  = errors.New("bus: no responder for request")
	ErrBusReplyTimeout = errors.New("bus: reply timeout")
	ErrBusUnknownReply = errors.New("bus: unknown correlation id")
)
