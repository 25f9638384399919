package topics

import (
	"errors"

	"github.com/morezero/rosbridge/pkg/envelope"
	"github.com/morezero/rosbridge/pkg/message"
)

// ErrInvalidEntry is returned when a subscription or publication is
// missing a required part.
var ErrInvalidEntry = errors.New("invalid registry entry")

// Callback receives a decoded message for a subscribed topic. It runs on
// the dispatching goroutine; a returned error is reported and does not stop
// dispatch of later frames.
type Callback func(msg message.Message) error

// Subscription is the single dispatch target for a topic.
type Subscription struct {
	// ID correlates the subscribe and unsubscribe envelopes sent to the gateway.
	ID       string
	Topic    string
	Type     string
	Parser   message.Parser
	Callback Callback
	Options  envelope.SubscribeOptions
}

// Publication is an advertised outgoing topic. It needs no parser; Type
// stamps outgoing publish envelopes.
type Publication struct {
	ID      string
	Topic   string
	Type    string
	Options envelope.AdvertiseOptions
}
