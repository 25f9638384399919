// Package bridge is the host-facing rosbridge client. It keeps the topic
// registry and the gateway in step: every registration change is recorded
// locally and mirrored to the gateway as a control envelope.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/morezero/rosbridge/pkg/builder"
	"github.com/morezero/rosbridge/pkg/dispatcher"
	"github.com/morezero/rosbridge/pkg/envelope"
	"github.com/morezero/rosbridge/pkg/events"
	"github.com/morezero/rosbridge/pkg/message"
	"github.com/morezero/rosbridge/pkg/topics"
)

const logPrefix = "bridge:client"

var (
	// ErrNotAdvertised is returned by Publish for a topic without an advertisement.
	ErrNotAdvertised = errors.New("topic not advertised")
	// ErrTypeMismatch is returned by Publish when the message type differs
	// from the advertised type.
	ErrTypeMismatch = errors.New("message type does not match advertised type")
)

// Transport sends raw frames to the gateway.
type Transport interface {
	Send(data []byte) error
}

// NewClientParams holds the collaborators of a Client. Only Transport is
// required.
type NewClientParams struct {
	Transport Transport
	Registry  *topics.Registry
	OutOfBand dispatcher.OutOfBandHandler
	Reporter  func(err error)
	Publisher events.EventPublisher
}

// Client registers subscriptions and publications and dispatches incoming
// frames to them.
type Client struct {
	// mu orders registry changes with the envelopes that mirror them.
	mu         sync.Mutex
	transport  Transport
	registry   *topics.Registry
	dispatcher *dispatcher.Dispatcher
}

// NewClient creates a new Client.
func NewClient(params NewClientParams) *Client {
	reg := params.Registry
	if reg == nil {
		reg = topics.NewRegistry()
	}
	return &Client{
		transport: params.Transport,
		registry:  reg,
		dispatcher: dispatcher.NewDispatcher(dispatcher.NewDispatcherParams{
			Registry:  reg,
			OutOfBand: params.OutOfBand,
			Reporter:  params.Reporter,
			Publisher: params.Publisher,
		}),
	}
}

// Registry returns the client's topic registry.
func (c *Client) Registry() *topics.Registry { return c.registry }

// Stats returns the dispatch counters.
func (c *Client) Stats() dispatcher.Stats { return c.dispatcher.Stats() }

// Subscribe registers callback for topic and sends the subscribe envelope.
// An existing subscription on topic is replaced: the gateway is told to drop
// the old subscription id first, and the displaced callback is returned.
//
// When sending fails the subscription stays registered and is replayed by
// Resync once the transport is back.
func (c *Client) Subscribe(topic, typeTag string, parser message.Parser, callback topics.Callback, opts ...envelope.SubscribeOptions) (topics.Callback, error) {
	sub := topics.Subscription{
		ID:       builder.NewID(envelope.OpSubscribe, topic),
		Topic:    topic,
		Type:     typeTag,
		Parser:   parser,
		Callback: callback,
	}
	if len(opts) > 0 {
		sub.Options = opts[0]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prev, had := c.registry.Resolve(topic)
	displaced, err := c.registry.Subscribe(sub)
	if err != nil {
		return nil, fmt.Errorf("%s - %w", logPrefix, err)
	}
	if had {
		if err := c.send(builder.Unsubscribe(topic, prev.ID)); err != nil {
			slog.Warn(fmt.Sprintf("%s - unsubscribe of replaced id=%s failed: %v", logPrefix, prev.ID, err))
		}
	}
	slog.Info(fmt.Sprintf("%s - Subscribing topic=%s type=%s id=%s", logPrefix, topic, typeTag, sub.ID))
	return displaced, c.send(builder.Subscribe(sub))
}

// Unsubscribe removes the subscription for topic and tells the gateway.
// Unsubscribing an unknown topic is a no-op.
func (c *Client) Unsubscribe(topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed, ok := c.registry.Unsubscribe(topic)
	if !ok {
		return nil
	}
	slog.Info(fmt.Sprintf("%s - Unsubscribing topic=%s id=%s", logPrefix, topic, removed.ID))
	return c.send(builder.Unsubscribe(topic, removed.ID))
}

// Advertise registers topic for publishing with typeTag and sends the
// advertise envelope.
func (c *Client) Advertise(topic, typeTag string, opts ...envelope.AdvertiseOptions) error {
	pub := topics.Publication{
		ID:    builder.NewID(envelope.OpAdvertise, topic),
		Topic: topic,
		Type:  typeTag,
	}
	if len(opts) > 0 {
		pub.Options = opts[0]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.registry.Advertise(pub); err != nil {
		return fmt.Errorf("%s - %w", logPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - Advertising topic=%s type=%s", logPrefix, topic, typeTag))
	return c.send(builder.Advertise(pub))
}

// Unadvertise removes the publication for topic and tells the gateway.
// Unadvertising an unknown topic is a no-op.
func (c *Client) Unadvertise(topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed, ok := c.registry.Unadvertise(topic)
	if !ok {
		return nil
	}
	return c.send(builder.Unadvertise(topic, removed.ID))
}

// Publish sends msg on an advertised topic.
func (c *Client) Publish(topic string, msg message.Message) error {
	pub, ok := c.registry.Advertised(topic)
	if !ok {
		return fmt.Errorf("%s - publish %s: %w", logPrefix, topic, ErrNotAdvertised)
	}
	if msg.TypeTag() != pub.Type {
		return fmt.Errorf("%s - publish %s: %s != %s: %w", logPrefix, topic, msg.TypeTag(), pub.Type, ErrTypeMismatch)
	}
	return c.send(builder.Publish(topic, pub.Type, msg))
}

// HandleFrame dispatches one frame received from the gateway. The returned
// error is scoped to this frame and has already been reported.
func (c *Client) HandleFrame(ctx context.Context, data []byte) error {
	return c.dispatcher.HandleFrame(ctx, data)
}

// Resync replays every advertise and subscribe envelope, as needed after
// the transport reconnected to the gateway.
func (c *Client) Resync() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	pubs := c.registry.Publications()
	subs := c.registry.Subscriptions()
	slog.Info(fmt.Sprintf("%s - Resync publications=%d subscriptions=%d", logPrefix, len(pubs), len(subs)))

	var errs []error
	for _, p := range pubs {
		if err := c.send(builder.Advertise(p)); err != nil {
			errs = append(errs, err)
		}
	}
	for _, s := range subs {
		if err := c.send(builder.Subscribe(s)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close unsubscribes and unadvertises every topic and clears the registry.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, s := range c.registry.Subscriptions() {
		if err := c.send(builder.Unsubscribe(s.Topic, s.ID)); err != nil {
			errs = append(errs, err)
		}
	}
	for _, p := range c.registry.Publications() {
		if err := c.send(builder.Unadvertise(p.Topic, p.ID)); err != nil {
			errs = append(errs, err)
		}
	}
	c.registry.Clear()
	return errors.Join(errs...)
}

// Teardown clears the registry without contacting the gateway, for when the
// connection is already gone for good.
func (c *Client) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry.Clear()
}

func (c *Client) send(env *envelope.Envelope) error {
	data, err := envelope.Marshal(env)
	if err != nil {
		return fmt.Errorf("%s - marshal %s: %w", logPrefix, env.Op, err)
	}
	if err := c.transport.Send(data); err != nil {
		return fmt.Errorf("%s - send %s %s: %w", logPrefix, env.Op, env.Topic, err)
	}
	return nil
}
