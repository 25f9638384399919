package bridge

import (
	"github.com/morezero/rosbridge/pkg/envelope"
	"github.com/morezero/rosbridge/pkg/message"
	"github.com/morezero/rosbridge/pkg/topics"
)

// Subscribe registers a typed callback for topic. The ROS type is taken
// from the zero value of T, so T must be a value message type such as
// geometrymsgs.PoseStamped. The callback it replaced on topic, if any, is
// returned.
func Subscribe[T message.Message](c *Client, topic string, decode func(value any) (T, error), callback func(msg T) error, opts ...envelope.SubscribeOptions) (topics.Callback, error) {
	var zero T
	return c.Subscribe(topic, zero.TypeTag(), message.ParserFor(decode), func(m message.Message) error {
		return callback(m.(T))
	}, opts...)
}

// Advertise registers topic for publishing messages of type T.
func Advertise[T message.Message](c *Client, topic string, opts ...envelope.AdvertiseOptions) error {
	var zero T
	return c.Advertise(topic, zero.TypeTag(), opts...)
}
