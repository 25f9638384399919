package topics

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morezero/rosbridge/pkg/message"
)

func sub(topic string, cb Callback) Subscription {
	return Subscription{
		Topic:    topic,
		Type:     "std_msgs/String",
		Parser:   message.RawParser("std_msgs/String"),
		Callback: cb,
	}
}

func TestSubscribe_ReturnsDisplacedCallback(t *testing.T) {
	r := NewRegistry()
	var calls []string
	first := func(message.Message) error { calls = append(calls, "first"); return nil }
	second := func(message.Message) error { calls = append(calls, "second"); return nil }

	displaced, err := r.Subscribe(sub("/a", first))
	require.NoError(t, err)
	assert.Nil(t, displaced)

	displaced, err = r.Subscribe(sub("/a", second))
	require.NoError(t, err)
	require.NotNil(t, displaced)
	require.NoError(t, displaced(nil))
	assert.Equal(t, []string{"first"}, calls)

	got, ok := r.Resolve("/a")
	require.True(t, ok)
	require.NoError(t, got.Callback(nil))
	assert.Equal(t, []string{"first", "second"}, calls)
	assert.Len(t, r.Subscriptions(), 1)
}

func TestSubscribe_Invalid(t *testing.T) {
	r := NewRegistry()
	noop := func(message.Message) error { return nil }

	_, err := r.Subscribe(sub("", noop))
	assert.ErrorIs(t, err, ErrInvalidEntry)

	_, err = r.Subscribe(sub("/a", nil))
	assert.ErrorIs(t, err, ErrInvalidEntry)

	s := sub("/a", noop)
	s.Parser = nil
	_, err = r.Subscribe(s)
	assert.ErrorIs(t, err, ErrInvalidEntry)
	assert.Empty(t, r.Subscriptions())
}

func TestResolve_ExactMatch(t *testing.T) {
	r := NewRegistry()
	_, err := r.Subscribe(sub("/Robot/pose", func(message.Message) error { return nil }))
	require.NoError(t, err)

	_, ok := r.Resolve("/robot/pose")
	assert.False(t, ok)
	_, ok = r.Resolve("/Robot")
	assert.False(t, ok)
	_, ok = r.Resolve("/Robot/pose")
	assert.True(t, ok)
}

func TestUnsubscribe(t *testing.T) {
	r := NewRegistry()
	s := sub("/a", func(message.Message) error { return nil })
	s.ID = "subscribe:/a:1"
	_, err := r.Subscribe(s)
	require.NoError(t, err)

	removed, ok := r.Unsubscribe("/a")
	require.True(t, ok)
	assert.Equal(t, "subscribe:/a:1", removed.ID)

	_, ok = r.Unsubscribe("/a")
	assert.False(t, ok)
	_, ok = r.Resolve("/a")
	assert.False(t, ok)
}

func TestAdvertise(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Advertise(Publication{Topic: "/cmd_vel", Type: "geometry_msgs/Twist"}))
	assert.ErrorIs(t, r.Advertise(Publication{Topic: "/x"}), ErrInvalidEntry)

	pub, ok := r.Advertised("/cmd_vel")
	require.True(t, ok)
	assert.Equal(t, "geometry_msgs/Twist", pub.Type)

	// publications and subscriptions are independent
	_, ok = r.Resolve("/cmd_vel")
	assert.False(t, ok)

	_, ok = r.Unadvertise("/cmd_vel")
	assert.True(t, ok)
	_, ok = r.Unadvertise("/cmd_vel")
	assert.False(t, ok)
}

func TestSnapshotsSortedAndClear(t *testing.T) {
	r := NewRegistry()
	noop := func(message.Message) error { return nil }
	for _, topic := range []string{"/c", "/a", "/b"} {
		_, err := r.Subscribe(sub(topic, noop))
		require.NoError(t, err)
		require.NoError(t, r.Advertise(Publication{Topic: topic, Type: "std_msgs/String"}))
	}
	subs := r.Subscriptions()
	require.Len(t, subs, 3)
	assert.Equal(t, "/a", subs[0].Topic)
	assert.Equal(t, "/c", subs[2].Topic)
	assert.Equal(t, "/b", r.Publications()[1].Topic)

	r.Clear()
	assert.Empty(t, r.Subscriptions())
	assert.Empty(t, r.Publications())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	noop := func(message.Message) error { return nil }
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			topic := fmt.Sprintf("/t%d", i%2)
			for j := 0; j < 100; j++ {
				_, _ = r.Subscribe(sub(topic, noop))
				r.Resolve(topic)
				r.Unsubscribe(topic)
			}
		}(i)
	}
	wg.Wait()
}
