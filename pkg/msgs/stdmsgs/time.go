// Package stdmsgs holds the std_msgs message types and the ROS time primitive.
package stdmsgs

import (
	"fmt"
	"time"

	"github.com/morezero/rosbridge/pkg/message"
)

// Time is the ROS builtin time primitive (seconds and nanoseconds since epoch).
// It is not a message on its own and has no type tag.
type Time struct {
	Secs  uint32
	Nsecs uint32
}

// NewTime converts t to a ROS time.
func NewTime(t time.Time) Time {
	return Time{Secs: uint32(t.Unix()), Nsecs: uint32(t.Nanosecond())}
}

// Time converts to a time.Time in UTC.
func (t Time) Time() time.Time {
	return time.Unix(int64(t.Secs), int64(t.Nsecs)).UTC()
}

func (t Time) Encode() any {
	return message.Object{
		"secs":  t.Secs,
		"nsecs": t.Nsecs,
	}
}

func (t Time) String() string {
	return fmt.Sprintf("Time { secs = %d, nsecs = %d }", t.Secs, t.Nsecs)
}

// DecodeTime decodes a ROS time value.
func DecodeTime(value any) (Time, error) {
	obj, err := message.AsObject(value)
	if err != nil {
		return Time{}, err
	}
	secs, err := message.Uint32(obj, "secs")
	if err != nil {
		return Time{}, err
	}
	nsecs, err := message.Uint32(obj, "nsecs")
	if err != nil {
		return Time{}, err
	}
	return Time{Secs: secs, Nsecs: nsecs}, nil
}
