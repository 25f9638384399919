package envelope

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/morezero/rosbridge/pkg/message"
)

// ErrMalformedFrame is returned by Parse when a frame is not valid JSON.
var ErrMalformedFrame = errors.New("malformed frame")

var wire = jsoniter.Config{
	EscapeHTML:  false,
	UseNumber:   true,
	SortMapKeys: true,
}.Froze()

// Decode reads an envelope from a generic JSON value. An unknown op yields
// an UNKNOWN_OPERATION error; topic operations without a topic and service
// operations without a service yield MISSING_FIELD.
func Decode(value any) (*Envelope, error) {
	obj, err := message.AsObject(value)
	if err != nil {
		return nil, err
	}
	tag, err := message.String(obj, "op")
	if err != nil {
		return nil, err
	}
	op := Op(tag)
	if !op.Valid() {
		return nil, message.UnknownOperation(tag)
	}

	env := &Envelope{Op: op}
	if env.ID, err = message.OptionalString(obj, "id"); err != nil {
		return nil, err
	}
	if env.Topic, err = message.OptionalString(obj, "topic"); err != nil {
		return nil, err
	}
	if op.IsTopic() && env.Topic == "" {
		return nil, message.MissingField("topic")
	}
	if env.Type, err = message.OptionalString(obj, "type"); err != nil {
		return nil, err
	}
	if env.Service, err = message.OptionalString(obj, "service"); err != nil {
		return nil, err
	}
	if op.IsService() && env.Service == "" {
		return nil, message.MissingField("service")
	}

	env.Msg = obj["msg"]
	if op == OpPublish && env.Msg != nil {
		if _, ok := env.Msg.(map[string]any); !ok {
			return nil, message.TypeMismatch("msg", message.KindObject, env.Msg)
		}
	}
	env.Args = obj["args"]
	env.Values = obj["values"]
	if v, ok := obj["result"]; ok && v != nil {
		b, ok := v.(bool)
		if !ok {
			return nil, message.TypeMismatch("result", message.KindBool, v)
		}
		env.Result = &b
	}

	if env.Level, err = message.OptionalString(obj, "level"); err != nil {
		return nil, err
	}
	if env.ThrottleRate, err = message.OptionalInt(obj, "throttle_rate"); err != nil {
		return nil, err
	}
	if env.QueueLength, err = message.OptionalInt(obj, "queue_length"); err != nil {
		return nil, err
	}
	if env.Compression, err = message.OptionalString(obj, "compression"); err != nil {
		return nil, err
	}
	if env.Latch, err = message.OptionalBool(obj, "latch"); err != nil {
		return nil, err
	}
	if env.QueueSize, err = message.OptionalInt(obj, "queue_size"); err != nil {
		return nil, err
	}
	return env, nil
}

// Encode returns the generic JSON value for env. Empty optional fields are
// omitted.
func Encode(env *Envelope) map[string]any {
	out := map[string]any{"op": string(env.Op)}
	putString(out, "id", env.ID)
	putString(out, "topic", env.Topic)
	putString(out, "type", env.Type)
	if env.Msg != nil {
		out["msg"] = env.Msg
	}
	putString(out, "service", env.Service)
	if env.Args != nil {
		out["args"] = env.Args
	}
	if env.Values != nil {
		out["values"] = env.Values
	}
	if env.Result != nil {
		out["result"] = *env.Result
	}
	putString(out, "level", env.Level)
	putInt(out, "throttle_rate", env.ThrottleRate)
	putInt(out, "queue_length", env.QueueLength)
	putString(out, "compression", env.Compression)
	if env.Latch {
		out["latch"] = true
	}
	putInt(out, "queue_size", env.QueueSize)
	return out
}

// Unmarshal parses a raw frame into a generic JSON value. Numbers are kept
// as json.Number so integer fields survive without float rounding.
func Unmarshal(data []byte) (any, error) {
	var value any
	if err := wire.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return value, nil
}

// Parse unmarshals and decodes a raw frame.
func Parse(data []byte) (*Envelope, error) {
	value, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return Decode(value)
}

// Marshal encodes env into a raw frame.
func Marshal(env *Envelope) ([]byte, error) {
	return wire.Marshal(Encode(env))
}

func putString(out map[string]any, key, v string) {
	if v != "" {
		out[key] = v
	}
}

func putInt(out map[string]any, key string, v int) {
	if v != 0 {
		out[key] = v
	}
}
