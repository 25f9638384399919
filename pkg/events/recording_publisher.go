package events

import (
	"context"
	"fmt"

	"github.com/morezero/rosbridge/pkg/commsutil"
	"github.com/morezero/rosbridge/pkg/db"
)

const recordingPublisherLogPrefix = "events:recording_publisher"

// MessageStore persists recorded traffic. *db.Repository implements it.
type MessageStore interface {
	RecordMessage(ctx context.Context, rec *db.MessageRecord) error
	RecordStatus(ctx context.Context, rec *db.StatusRecord) error
}

// RecordingPublisher writes every event to a MessageStore.
type RecordingPublisher struct {
	store MessageStore
}

// NewRecordingPublisher creates a RecordingPublisher backed by store.
func NewRecordingPublisher(store MessageStore) *RecordingPublisher {
	return &RecordingPublisher{store: store}
}

// PublishMessage records event with its message as a JSON payload.
func (p *RecordingPublisher) PublishMessage(ctx context.Context, event *MessageEvent) error {
	payload, err := commsutil.EncodePayload(event.Msg)
	if err != nil {
		return fmt.Errorf("%s - encode payload topic=%s: %w", recordingPublisherLogPrefix, event.Topic, err)
	}
	rec := &db.MessageRecord{
		Topic:          event.Topic,
		Type:           event.Type,
		SubscriptionID: event.SubscriptionID,
		Payload:        payload,
		ReceivedAt:     event.ReceivedAt,
	}
	if err := p.store.RecordMessage(ctx, rec); err != nil {
		return fmt.Errorf("%s - record topic=%s: %w", recordingPublisherLogPrefix, event.Topic, err)
	}
	return nil
}

// PublishStatus records a gateway status event.
func (p *RecordingPublisher) PublishStatus(ctx context.Context, event *StatusEvent) error {
	rec := &db.StatusRecord{
		Level:      event.Level,
		EnvelopeID: event.ID,
		Message:    event.Msg,
		ReceivedAt: event.ReceivedAt,
	}
	if err := p.store.RecordStatus(ctx, rec); err != nil {
		return fmt.Errorf("%s - record status: %w", recordingPublisherLogPrefix, err)
	}
	return nil
}
