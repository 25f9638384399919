package events

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/rosbridge/pkg/commsutil"
)

const commsPublisherLogPrefix = "events:comms_publisher"

// CommsPublisherOpts configures CommsPublisher. Nil or zero values use defaults.
type CommsPublisherOpts struct {
	// SubjectPrefix overrides the subject root (e.g. from COMMS_SUBJECT_PREFIX).
	SubjectPrefix string
}

// CommsPublisher relays dispatched ROS messages to COMMS subjects, one
// subject per topic.
type CommsPublisher struct {
	nc     *comms.Conn
	prefix string
}

// NewCommsPublisher creates a new CommsPublisher. Pass nil for opts to use defaults.
func NewCommsPublisher(nc *comms.Conn, opts *CommsPublisherOpts) *CommsPublisher {
	prefix := commsutil.DefaultSubjectPrefix
	if opts != nil && opts.SubjectPrefix != "" {
		prefix = opts.SubjectPrefix
	}
	return &CommsPublisher{nc: nc, prefix: prefix}
}

// PublishMessage publishes event to the subject built from its topic.
func (p *CommsPublisher) PublishMessage(_ context.Context, event *MessageEvent) error {
	subject := commsutil.BuildTopicSubject(p.prefix, event.Topic)
	return p.publish(subject, event)
}

// PublishStatus publishes event to the status subject.
func (p *CommsPublisher) PublishStatus(_ context.Context, event *StatusEvent) error {
	return p.publish(commsutil.BuildStatusSubject(p.prefix), event)
}

func (p *CommsPublisher) publish(subject string, event any) error {
	data, err := commsutil.EncodePayload(event)
	if err != nil {
		return fmt.Errorf("%s - failed to encode event: %w", commsPublisherLogPrefix, err)
	}
	if err := p.nc.Publish(subject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, subject, err))
		return fmt.Errorf("%s - publish %s: %w", commsPublisherLogPrefix, subject, err)
	}
	slog.Debug(fmt.Sprintf("%s - Relayed %d bytes to %s", commsPublisherLogPrefix, len(data), subject))
	return nil
}
