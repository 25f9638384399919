package db

import "time"

// MessageRecord is one row of ros_messages.
type MessageRecord struct {
	ID             int64     `json:"id"`
	Topic          string    `json:"topic"`
	Type           string    `json:"type"`
	SubscriptionID string    `json:"subscriptionId,omitempty"`
	Payload        []byte    `json:"payload"`
	ReceivedAt     time.Time `json:"receivedAt"`
}

// StatusRecord is one row of ros_status.
type StatusRecord struct {
	ID         int64     `json:"id"`
	Level      string    `json:"level"`
	EnvelopeID string    `json:"envelopeId,omitempty"`
	Message    string    `json:"message"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// ListMessagesParams filters ListMessages. Zero values mean no filter;
// Limit defaults to 100.
type ListMessagesParams struct {
	Topic string
	Since time.Time
	Limit int
}
