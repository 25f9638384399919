// Package dispatcher routes incoming rosbridge frames to the subscription
// registered for their topic.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/morezero/rosbridge/pkg/envelope"
	"github.com/morezero/rosbridge/pkg/events"
	"github.com/morezero/rosbridge/pkg/message"
	"github.com/morezero/rosbridge/pkg/topics"
)

const logPrefix = "dispatcher:dispatch"

// OutOfBandHandler receives every envelope that is not a publish, such as
// status and service_response.
type OutOfBandHandler func(ctx context.Context, env *envelope.Envelope)

// NewDispatcherParams holds the collaborators of a Dispatcher. Only
// Registry is required.
type NewDispatcherParams struct {
	Registry  *topics.Registry
	OutOfBand OutOfBandHandler
	// Reporter receives every frame-scoped failure. Defaults to slog.
	Reporter func(err error)
	// Publisher receives delivered messages and status events. Defaults to a no-op.
	Publisher events.EventPublisher
}

// Dispatcher decodes frames and invokes subscription callbacks. Callbacks
// run synchronously on the calling goroutine; frames must be handed to the
// Dispatcher one at a time in arrival order.
type Dispatcher struct {
	registry  *topics.Registry
	outOfBand OutOfBandHandler
	report    func(err error)
	publisher events.EventPublisher
	now       func() time.Time

	frames         atomic.Uint64
	delivered      atomic.Uint64
	orphans        atomic.Uint64
	envelopeErrors atomic.Uint64
	messageErrors  atomic.Uint64
	callbackErrors atomic.Uint64
	outOfBandCount atomic.Uint64
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(params NewDispatcherParams) *Dispatcher {
	d := &Dispatcher{
		registry:  params.Registry,
		outOfBand: params.OutOfBand,
		report:    params.Reporter,
		publisher: params.Publisher,
		now:       time.Now,
	}
	if d.report == nil {
		d.report = logReport
	}
	if d.publisher == nil {
		d.publisher = &events.NoOpPublisher{}
	}
	return d
}

// HandleFrame parses a raw frame and dispatches it. The returned error is
// frame-scoped and has already been reported; callers may ignore it and
// continue with the next frame.
func (d *Dispatcher) HandleFrame(ctx context.Context, data []byte) error {
	d.frames.Add(1)
	value, err := envelope.Unmarshal(data)
	if err != nil {
		return d.fail(&FrameError{Stage: StageEnvelope, Err: err})
	}
	return d.dispatchValue(ctx, value)
}

// Dispatch routes an already parsed generic JSON value.
func (d *Dispatcher) Dispatch(ctx context.Context, value any) error {
	d.frames.Add(1)
	return d.dispatchValue(ctx, value)
}

func (d *Dispatcher) dispatchValue(ctx context.Context, value any) error {
	env, err := envelope.Decode(value)
	if err != nil {
		return d.fail(&FrameError{Stage: StageEnvelope, Err: err})
	}
	return d.dispatchEnvelope(ctx, env)
}

func (d *Dispatcher) dispatchEnvelope(ctx context.Context, env *envelope.Envelope) error {
	if env.Op != envelope.OpPublish {
		d.handleOutOfBand(ctx, env)
		return nil
	}

	sub, ok := d.registry.Resolve(env.Topic)
	if !ok {
		// The gateway may still deliver for a topic we just unsubscribed from.
		d.orphans.Add(1)
		slog.Debug(fmt.Sprintf("%s - discarded publish for unsubscribed topic=%s", logPrefix, env.Topic))
		return nil
	}

	if env.Msg == nil {
		return d.fail(&FrameError{Stage: StageMessage, Topic: sub.Topic, Type: sub.Type, Err: message.MissingField("msg")})
	}
	msg, err := parse(sub, env.Msg)
	if err != nil {
		return d.fail(&FrameError{Stage: StageMessage, Topic: sub.Topic, Type: sub.Type, Err: err})
	}

	if err := invoke(sub, msg); err != nil {
		return d.fail(&FrameError{Stage: StageCallback, Topic: sub.Topic, Type: sub.Type, Err: err})
	}
	d.delivered.Add(1)

	event := &events.MessageEvent{
		Topic:          sub.Topic,
		Type:           sub.Type,
		SubscriptionID: sub.ID,
		Msg:            msg.Encode(),
		ReceivedAt:     d.now().UTC(),
	}
	if err := d.publisher.PublishMessage(ctx, event); err != nil {
		slog.Warn(fmt.Sprintf("%s - event publish failed topic=%s: %v", logPrefix, sub.Topic, err))
	}
	return nil
}

// parse runs the subscription's parser, converting a panic into a
// *ParserPanicError.
func parse(sub topics.Subscription, value any) (msg message.Message, err error) {
	defer func() {
		if r := recover(); r != nil {
			msg, err = nil, &ParserPanicError{Topic: sub.Topic, Panic: r}
		}
	}()
	return sub.Parser(value)
}

// invoke runs the callback, converting a returned error or a panic into a
// *CallbackError.
func invoke(sub topics.Subscription, msg message.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newCallbackError(sub.Topic, nil, r)
		}
	}()
	if cbErr := sub.Callback(msg); cbErr != nil {
		return newCallbackError(sub.Topic, cbErr, nil)
	}
	return nil
}

func (d *Dispatcher) handleOutOfBand(ctx context.Context, env *envelope.Envelope) {
	d.outOfBandCount.Add(1)

	if env.Op == envelope.OpStatus {
		text := statusText(env.Msg)
		logStatus(env, text)
		event := &events.StatusEvent{Level: env.Level, ID: env.ID, Msg: text, ReceivedAt: d.now().UTC()}
		if err := d.publisher.PublishStatus(ctx, event); err != nil {
			slog.Warn(fmt.Sprintf("%s - status publish failed: %v", logPrefix, err))
		}
	} else {
		slog.Debug(fmt.Sprintf("%s - out-of-band op=%s id=%s", logPrefix, env.Op, env.ID))
	}

	if d.outOfBand != nil {
		d.outOfBand(ctx, env)
	}
}

func (d *Dispatcher) fail(err *FrameError) error {
	switch err.Stage {
	case StageEnvelope:
		d.envelopeErrors.Add(1)
	case StageMessage:
		d.messageErrors.Add(1)
	case StageCallback:
		d.callbackErrors.Add(1)
	}
	d.report(err)
	return err
}

func logReport(err error) {
	if errors.Is(err, ErrCallbackFailure) {
		slog.Error(fmt.Sprintf("%s - %v", logPrefix, err))
		return
	}
	slog.Warn(fmt.Sprintf("%s - dropped frame: %v", logPrefix, err))
}

func statusText(msg any) string {
	switch v := msg.(type) {
	case nil:
		return ""
	case string:
		return v
	}
	return fmt.Sprint(msg)
}

func logStatus(env *envelope.Envelope, text string) {
	line := fmt.Sprintf("%s - gateway status level=%s id=%s: %s", logPrefix, env.Level, env.ID, text)
	switch env.Level {
	case envelope.LevelError:
		slog.Error(line)
	case envelope.LevelWarning:
		slog.Warn(line)
	case envelope.LevelInfo:
		slog.Info(line)
	default:
		slog.Debug(line)
	}
}
