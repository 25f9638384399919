// Package builder constructs outgoing rosbridge envelopes. Every builder is
// a pure function; sending is left to the transport.
package builder

import (
	"fmt"

	"github.com/teris-io/shortid"

	"github.com/morezero/rosbridge/pkg/envelope"
	"github.com/morezero/rosbridge/pkg/message"
	"github.com/morezero/rosbridge/pkg/topics"
)

// NewID returns a correlation id for an op on topic, e.g.
// "subscribe:/robot/pose:Xk2p9aLQ".
func NewID(op envelope.Op, topic string) string {
	return fmt.Sprintf("%s:%s:%s", op, topic, shortid.MustGenerate())
}

// Subscribe builds the subscribe envelope for a registry subscription.
func Subscribe(sub topics.Subscription) *envelope.Envelope {
	return &envelope.Envelope{
		Op:           envelope.OpSubscribe,
		ID:           sub.ID,
		Topic:        sub.Topic,
		Type:         sub.Type,
		ThrottleRate: sub.Options.ThrottleRate,
		QueueLength:  sub.Options.QueueLength,
		Compression:  sub.Options.Compression,
	}
}

// Unsubscribe builds the unsubscribe envelope for topic. id should match
// the id of the original subscribe envelope.
func Unsubscribe(topic, id string) *envelope.Envelope {
	return &envelope.Envelope{Op: envelope.OpUnsubscribe, ID: id, Topic: topic}
}

// Advertise builds the advertise envelope for a registry publication.
func Advertise(pub topics.Publication) *envelope.Envelope {
	return &envelope.Envelope{
		Op:        envelope.OpAdvertise,
		ID:        pub.ID,
		Topic:     pub.Topic,
		Type:      pub.Type,
		Latch:     pub.Options.Latch,
		QueueSize: pub.Options.QueueSize,
	}
}

// Unadvertise builds the unadvertise envelope for topic.
func Unadvertise(topic, id string) *envelope.Envelope {
	return &envelope.Envelope{Op: envelope.OpUnadvertise, ID: id, Topic: topic}
}

// Publish builds a publish envelope embedding msg.Encode(). An empty
// typeTag is stamped from the message.
func Publish(topic, typeTag string, msg message.Message) *envelope.Envelope {
	if typeTag == "" {
		typeTag = msg.TypeTag()
	}
	return &envelope.Envelope{
		Op:    envelope.OpPublish,
		Topic: topic,
		Type:  typeTag,
		Msg:   msg.Encode(),
	}
}
