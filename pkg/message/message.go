// Package message defines the contract shared by every ROS message type
// carried over the bridge, and the helpers concrete types use to map a
// generic JSON value field by field.
//
// A generic value is whatever a JSON decoder produces for `any`:
// map[string]any, []any, string, bool, nil, and numbers as float64 or
// json.Number. Encoded messages may also hold native Go numbers
// (uint32, int64, ...); the field helpers accept both forms so a value
// produced by Encode can be fed straight back into the matching decoder.
package message

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// Message is implemented by every concrete ROS message type.
//
// Decoding is not part of the interface: each type provides a package
// level Decode<Type>(value any) (<Type>, error) function, which is
// type-erased into a Parser when the type is registered for a topic.
type Message interface {
	// TypeTag returns the ROS type on the wire, e.g. "geometry_msgs/PoseStamped".
	TypeTag() string

	// Encode returns the generic structured value for this message. It never fails.
	Encode() any

	// String returns a deterministic human readable rendering for diagnostics.
	String() string
}

// Object is a decoded JSON object.
type Object = map[string]any

// Parser decodes a generic value into a concrete message.
type Parser func(value any) (Message, error)

// ParserFor type-erases a typed decode function into a Parser.
func ParserFor[T Message](decode func(value any) (T, error)) Parser {
	return func(value any) (Message, error) {
		m, err := decode(value)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

var renderJSON = jsoniter.Config{
	EscapeHTML:  false,
	SortMapKeys: true,
}.Froze()

// JSON renders the encoded form of m as compact JSON with sorted keys.
func JSON(m Message) string {
	data, err := renderJSON.Marshal(m.Encode())
	if err != nil {
		// Encode only produces JSON compatible values
		return fmt.Sprintf("%q", err.Error())
	}
	return string(data)
}
