package events

import (
	"context"
	"errors"
)

// EventPublisher receives dispatched ROS traffic.
type EventPublisher interface {
	PublishMessage(ctx context.Context, event *MessageEvent) error
	PublishStatus(ctx context.Context, event *StatusEvent) error
}

// NoOpPublisher is an EventPublisher that does nothing (relay and recorder disabled).
type NoOpPublisher struct{}

// PublishMessage is a no-op.
func (p *NoOpPublisher) PublishMessage(_ context.Context, _ *MessageEvent) error { return nil }

// PublishStatus is a no-op.
func (p *NoOpPublisher) PublishStatus(_ context.Context, _ *StatusEvent) error { return nil }

// CallbackPublisher forwards events to functions. Nil functions are skipped.
type CallbackPublisher struct {
	OnMessage func(ctx context.Context, event *MessageEvent) error
	OnStatus  func(ctx context.Context, event *StatusEvent) error
}

// NewCallbackPublisher creates a CallbackPublisher for message events.
func NewCallbackPublisher(cb func(ctx context.Context, event *MessageEvent) error) *CallbackPublisher {
	return &CallbackPublisher{OnMessage: cb}
}

// PublishMessage calls OnMessage.
func (p *CallbackPublisher) PublishMessage(ctx context.Context, event *MessageEvent) error {
	if p.OnMessage == nil {
		return nil
	}
	return p.OnMessage(ctx, event)
}

// PublishStatus calls OnStatus.
func (p *CallbackPublisher) PublishStatus(ctx context.Context, event *StatusEvent) error {
	if p.OnStatus == nil {
		return nil
	}
	return p.OnStatus(ctx, event)
}

// MultiPublisher fans every event out to all publishers. A failing
// publisher does not stop the others; their errors are joined.
type MultiPublisher []EventPublisher

// PublishMessage publishes to every publisher.
func (m MultiPublisher) PublishMessage(ctx context.Context, event *MessageEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishMessage(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishStatus publishes to every publisher.
func (m MultiPublisher) PublishStatus(ctx context.Context, event *StatusEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishStatus(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
