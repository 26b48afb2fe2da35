package pubsub_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gregoryjjb/shiftbank/pubsub"
)

func TestPubsub(t *testing.T) {
	t.Run("DeliversToAllSubscribers", func(t *testing.T) {
		ps := pubsub.New[uint64](1)

		_, ch1 := ps.Subscribe()
		id2, ch2 := ps.Subscribe()
		assert.Equal(t, 2, ps.Len())

		ps.Publish(5)
		assert.Equal(t, uint64(5), <-ch1)
		assert.Equal(t, uint64(5), <-ch2)

		ps.Unsubscribe(id2)
		assert.Equal(t, 1, ps.Len())
		_, open := <-ch2
		assert.False(t, open)

		ps.Publish(7)
		assert.Equal(t, uint64(7), <-ch1)
	})

	t.Run("DropsWhenFull", func(t *testing.T) {
		ps := pubsub.New[string](1)
		_, ch := ps.Subscribe()

		ps.Publish("a")
		ps.Publish("b")

		assert.Equal(t, "a", <-ch)
		select {
		case v := <-ch:
			t.Fatalf("unexpected value %q", v)
		default:
		}
	})

	t.Run("UnsubscribeUnknownIsNoop", func(t *testing.T) {
		ps := pubsub.New[int](0)
		ps.Unsubscribe(42)
		assert.Equal(t, 0, ps.Len())
	})
}
