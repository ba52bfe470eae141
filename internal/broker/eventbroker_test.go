package broker_test

import (
	"testing"

	"github.com/myrjola/casebook/internal/broker"
	"github.com/stretchr/testify/require"
)

func TestEventBroker(t *testing.T) {
	type testCase struct {
		name     string
		testFunc func(b *broker.EventBroker[string])
	}
	tests := []testCase{
		{
			name: "every subscriber receives content",
			testFunc: func(b *broker.EventBroker[string]) {
				first := b.Subscribe(2)
				second := b.Subscribe(2)
				b.Publish("hello")
				b.Publish("again")
				require.Equal(t, "hello", <-first)
				require.Equal(t, "again", <-first)
				require.Equal(t, "hello", <-second)
				require.Equal(t, "again", <-second)
			},
		},
		{
			name: "slow subscribers miss content instead of blocking",
			testFunc: func(b *broker.EventBroker[string]) {
				slow := b.Subscribe(1)
				b.Publish("kept")
				b.Publish("dropped")
				// A subscribe round trip guarantees the second publication was handled.
				b.Unsubscribe(b.Subscribe(0))
				require.Equal(t, int64(1), b.Dropped())
				require.Equal(t, "kept", <-slow)
			},
		},
		{
			name: "unsubscribe closes the channel",
			testFunc: func(b *broker.EventBroker[string]) {
				c := b.Subscribe(1)
				b.Unsubscribe(c)
				b.Publish("nobody listens")
				msg, ok := <-c
				require.Empty(t, msg, "unsubscribed channel received content")
				require.False(t, ok, "channel not closed")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			br := broker.NewEventBroker[string]()
			go br.Start()
			t.Cleanup(func() {
				br.Stop()
			})
			tt.testFunc(br)
		})
	}
}

func TestEventBroker_Stop(t *testing.T) {
	br := broker.NewEventBroker[int]()
	go br.Start()
	c := br.Subscribe(1)
	br.Stop()

	_, ok := <-c
	require.False(t, ok, "subscriber channel not closed on stop")
	br.Publish(1)
	_, ok = <-br.Subscribe(1)
	require.False(t, ok, "subscribing to a stopped broker returns a closed channel")
}
