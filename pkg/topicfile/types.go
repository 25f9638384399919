// Package topicfile loads the list of topics the bridge subscribes to at
// startup.
package topicfile

import "github.com/morezero/rosbridge/pkg/envelope"

// Entry is one topic to subscribe to.
type Entry struct {
	Topic        string `yaml:"topic" json:"topic"`
	Type         string `yaml:"type" json:"type"`
	ThrottleRate int    `yaml:"throttle_rate,omitempty" json:"throttle_rate,omitempty"`
	QueueLength  int    `yaml:"queue_length,omitempty" json:"queue_length,omitempty"`
	Compression  string `yaml:"compression,omitempty" json:"compression,omitempty"`
}

// Options returns the subscribe options carried by the entry.
func (e Entry) Options() envelope.SubscribeOptions {
	return envelope.SubscribeOptions{
		ThrottleRate: e.ThrottleRate,
		QueueLength:  e.QueueLength,
		Compression:  e.Compression,
	}
}

// File is the root of a topics file.
type File struct {
	Name   string  `yaml:"name,omitempty" json:"name,omitempty"`
	Topics []Entry `yaml:"topics" json:"topics"`
}
