// Package envelope converts rosbridge v2 operation envelopes to and from
// generic JSON values. The embedded msg payload is carried as a generic
// value and never decoded into a typed message here.
package envelope

// Op is the rosbridge operation discriminator ("op" on the wire).
type Op string

const (
	OpAdvertise       Op = "advertise"
	OpUnadvertise     Op = "unadvertise"
	OpPublish         Op = "publish"
	OpSubscribe       Op = "subscribe"
	OpUnsubscribe     Op = "unsubscribe"
	OpCallService     Op = "call_service"
	OpServiceResponse Op = "service_response"
	OpStatus          Op = "status"
)

// Valid reports whether o is a known operation.
func (o Op) Valid() bool {
	switch o {
	case OpAdvertise, OpUnadvertise, OpPublish, OpSubscribe, OpUnsubscribe,
		OpCallService, OpServiceResponse, OpStatus:
		return true
	}
	return false
}

// IsTopic reports whether envelopes of this operation must carry a topic.
func (o Op) IsTopic() bool {
	switch o {
	case OpAdvertise, OpUnadvertise, OpPublish, OpSubscribe, OpUnsubscribe:
		return true
	}
	return false
}

// IsService reports whether envelopes of this operation carry a service name.
func (o Op) IsService() bool {
	return o == OpCallService || o == OpServiceResponse
}

// Status levels sent by the gateway.
const (
	LevelError   = "error"
	LevelWarning = "warning"
	LevelInfo    = "info"
	LevelNone    = "none"
)

// Envelope is one rosbridge wire unit.
type Envelope struct {
	Op    Op     `json:"op"`
	ID    string `json:"id,omitempty"`
	Topic string `json:"topic,omitempty"`
	Type  string `json:"type,omitempty"`

	// Msg is the encoded message for publish, or the status text for status.
	Msg any `json:"msg,omitempty"`

	// call_service / service_response
	Service string `json:"service,omitempty"`
	Args    any    `json:"args,omitempty"`
	Values  any    `json:"values,omitempty"`
	Result  *bool  `json:"result,omitempty"`

	// status
	Level string `json:"level,omitempty"`

	// subscribe
	ThrottleRate int    `json:"throttle_rate,omitempty"`
	QueueLength  int    `json:"queue_length,omitempty"`
	Compression  string `json:"compression,omitempty"`

	// advertise
	Latch     bool `json:"latch,omitempty"`
	QueueSize int  `json:"queue_size,omitempty"`
}

// SubscribeOptions are the optional subscribe fields understood by the gateway.
type SubscribeOptions struct {
	ThrottleRate int    `yaml:"throttle_rate" json:"throttleRate,omitempty"`
	QueueLength  int    `yaml:"queue_length" json:"queueLength,omitempty"`
	Compression  string `yaml:"compression" json:"compression,omitempty"`
}

// AdvertiseOptions are the optional advertise fields understood by the gateway.
type AdvertiseOptions struct {
	Latch     bool `yaml:"latch" json:"latch,omitempty"`
	QueueSize int  `yaml:"queue_size" json:"queueSize,omitempty"`
}
