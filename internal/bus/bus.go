package bus

import (
	"context"
	"sync"
	"sync/atomic"

	"main/pkg/exception"
)

// Topic routes envelopes between components. Exact strings are an
// implementation choice, not a compatibility requirement.
type Topic string

const (
	TopicCommand       Topic = "command"
	TopicMarketUpdate  Topic = "market.update"
	TopicTradingSignal Topic = "signal.trading"
	TopicRiskUpdate    Topic = "risk.update"
	TopicOrderUpdate   Topic = "order.update"
	TopicCloseAll      Topic = "positions.close_all"
	TopicSizeRequest   Topic = "risk.size_position"
)

// Command is the control payload consumed by every component.
type Command string

const (
	CommandStartTrading  Command = "START_TRADING"
	CommandStopTrading   Command = "STOP_TRADING"
	CommandPauseTrading  Command = "PAUSE_TRADING"
	CommandConfigUpdate  Command = "CONFIG_UPDATE"
	CommandEmergencyStop Command = "EMERGENCY_STOP"
)

// Envelope is the unit passed through the in-process bus.
// CorrelationID is non-zero only for request/reply traffic.
type Envelope struct {
	Topic         Topic
	CorrelationID uint64
	Payload       any
}

// Bus is a bounded, non-blocking pub/sub hub with a correlation-id based
// request/reply channel on top. Delivery to a full subscriber drops the
// envelope rather than blocking the publisher.
type Bus struct {
	mu      sync.RWMutex
	subs    map[Topic][]*Subscription
	pending map[uint64]chan any
	corr    atomic.Uint64
	closed  atomic.Bool
	drops   atomic.Uint64
	cap     int
}

// Subscription is one subscriber queue for a topic.
type Subscription struct {
	C     <-chan Envelope
	ch    chan Envelope
	topic Topic
	bus   *Bus
}

// New allocates a bus; cap is the per-subscriber queue capacity.
func New(cap int) *Bus {
	if cap <= 0 {
		cap = 1
	}
	return &Bus{
		subs:    make(map[Topic][]*Subscription),
		pending: make(map[uint64]chan any),
		cap:     cap,
	}
}

// Subscribe registers a queue for the topic.
func (b *Bus) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		ch:    make(chan Envelope, b.cap),
		topic: topic,
		bus:   b,
	}
	sub.C = sub.ch

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()
	return sub
}

// Cancel removes the subscription and closes its queue.
func (s *Subscription) Cancel() {
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[s.topic]
	for i, cand := range list {
		if cand == s {
			b.subs[s.topic] = append(list[:i], list[i+1:]...)
			close(s.ch)
			return
		}
	}
}

// Publish delivers the envelope to every subscriber without blocking.
// Full subscriber queues drop the envelope; the drop is counted, not fatal.
func (b *Bus) Publish(e Envelope) error {
	if b.closed.Load() {
		return exception.ErrBusClosed
	}

	// Sends stay under the read lock so Cancel cannot close a queue
	// mid-delivery. They never block: full queues fall to the default case.
	b.mu.RLock()
	var dropped bool
	for _, sub := range b.subs[e.Topic] {
		select {
		case sub.ch <- e:
		default:
			dropped = true
			b.drops.Add(1)
		}
	}
	b.mu.RUnlock()
	if dropped {
		return exception.ErrBusQueueFull
	}
	return nil
}

// Request publishes to the topic and waits for a Respond call carrying the
// same correlation id. The caller bounds the wait with ctx; a timeout means
// "no reply available", never a crash of the responder.
func (b *Bus) Request(ctx context.Context, topic Topic, payload any) (any, error) {
	if b.closed.Load() {
		return nil, exception.ErrBusClosed
	}

	corr := b.corr.Add(1)
	replyCh := make(chan any, 1)

	b.mu.Lock()
	b.pending[corr] = replyCh
	hasResponder := len(b.subs[topic]) > 0
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, corr)
		b.mu.Unlock()
	}()

	if !hasResponder {
		return nil, exception.ErrBusNoResponder
	}
	if err := b.Publish(Envelope{Topic: topic, CorrelationID: corr, Payload: payload}); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, exception.ErrBusReplyTimeout
	case reply := <-replyCh:
		return reply, nil
	}
}

// Respond completes the request identified by the correlation id.
func (b *Bus) Respond(corr uint64, payload any) error {
	b.mu.RLock()
	replyCh, ok := b.pending[corr]
	b.mu.RUnlock()
	if !ok {
		return exception.ErrBusUnknownReply
	}

	select {
	case replyCh <- payload:
		return nil
	default:
		return exception.ErrBusUnknownReply
	}
}

// Drops returns the number of envelopes lost to full subscriber queues.
func (b *Bus) Drops() uint64 {
	return b.drops.Load()
}

// Close stops the bus from accepting new traffic.
func (b *Bus) Close() {
	b.closed.Store(true)
}

// Run consumes the subscription until the context is done or the
// subscription is cancelled, invoking handler for each envelope.
// Handlers of one subscription are serialized by construction.
func (s *Subscription) Run(ctx context.Context, handler func(Envelope)) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-s.ch:
			if !ok {
				return
			}
			handler(e)
		}
	}
}
