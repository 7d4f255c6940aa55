package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/pkg/exception"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	b := New(4)
	first := b.Subscribe(TopicMarketUpdate)
	second := b.Subscribe(TopicMarketUpdate)
	other := b.Subscribe(TopicOrderUpdate)

	require.NoError(t, b.Publish(Envelope{Topic: TopicMarketUpdate, Payload: "tick"}))

	for _, sub := range []*Subscription{first, second} {
		select {
		case e := <-sub.C:
			assert.Equal(t, "tick", e.Payload)
		default:
			t.Fatal("subscriber should have received the envelope")
		}
	}

	select {
	case <-other.C:
		t.Fatal("other topic must not receive the envelope")
	default:
	}
}

func TestPublishDropsWhenQueueFull(t *testing.T) {
	b := New(1)
	sub := b.Subscribe(TopicMarketUpdate)

	require.NoError(t, b.Publish(Envelope{Topic: TopicMarketUpdate, Payload: 1}))
	err := b.Publish(Envelope{Topic: TopicMarketUpdate, Payload: 2})
	require.ErrorIs(t, err, exception.ErrBusQueueFull)
	assert.Equal(t, uint64(1), b.Drops())

	e := <-sub.C
	assert.Equal(t, 1, e.Payload)
}

func TestCancelStopsDelivery(t *testing.T) {
	b := New(4)
	sub := b.Subscribe(TopicMarketUpdate)
	sub.Cancel()

	require.NoError(t, b.Publish(Envelope{Topic: TopicMarketUpdate, Payload: 1}))

	_, open := <-sub.C
	assert.False(t, open)
}

func TestRequestReply(t *testing.T) {
	b := New(4)
	responder := b.Subscribe(TopicSizeRequest)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go responder.Run(ctx, func(e Envelope) {
		assert.NotZero(t, e.CorrelationID)
		_ = b.Respond(e.CorrelationID, "sized")
	})

	reply, err := b.Request(t.Context(), TopicSizeRequest, "signal")
	require.NoError(t, err)
	assert.Equal(t, "sized", reply)
}

func TestRequestNoResponder(t *testing.T) {
	b := New(4)
	_, err := b.Request(t.Context(), TopicSizeRequest, "signal")
	require.ErrorIs(t, err, exception.ErrBusNoResponder)
}

func TestRequestTimeout(t *testing.T) {
	b := New(4)
	b.Subscribe(TopicSizeRequest) // registered but never answers

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	_, err := b.Request(ctx, TopicSizeRequest, "signal")
	require.ErrorIs(t, err, exception.ErrBusReplyTimeout)
}

func TestRespondUnknownCorrelation(t *testing.T) {
	b := New(4)
	require.ErrorIs(t, b.Respond(42, "late"), exception.ErrBusUnknownReply)
}

func TestClosedBusRejectsTraffic(t *testing.T) {
	b := New(4)
	b.Close()

	require.ErrorIs(t, b.Publish(Envelope{Topic: TopicMarketUpdate}), exception.ErrBusClosed)
	_, err := b.Request(t.Context(), TopicSizeRequest, nil)
	require.ErrorIs(t, err, exception.ErrBusClosed)
}

func TestRunSerializesHandlers(t *testing.T) {
	b := New(16)
	sub := b.Subscribe(TopicOrderUpdate)

	var order []int
	done := make(chan struct{})
	ctx, cancel := context.WithCancel(t.Context())
	go func() {
		sub.Run(ctx, func(e Envelope) {
			order = append(order, e.Payload.(int))
			if len(order) == 5 {
				close(done)
			}
		})
	}()

	for i := range 5 {
		require.NoError(t, b.Publish(Envelope{Topic: TopicOrderUpdate, Payload: i}))
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handlers did not run")
	}
	cancel()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}
