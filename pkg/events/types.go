// Package events defines the events emitted for dispatched ROS traffic and
// the publishers that relay or record them.
package events

import "time"

// MessageEvent is emitted after a message was decoded and delivered to its
// subscription callback.
type MessageEvent struct {
	Topic          string    `json:"topic"`
	Type           string    `json:"type"`
	SubscriptionID string    `json:"subscriptionId,omitempty"`
	Msg            any       `json:"msg"`
	ReceivedAt     time.Time `json:"receivedAt"`
}

// StatusEvent is emitted for every status envelope from the gateway.
type StatusEvent struct {
	Level      string    `json:"level"`
	ID         string    `json:"id,omitempty"`
	Msg        string    `json:"msg"`
	ReceivedAt time.Time `json:"receivedAt"`
}
