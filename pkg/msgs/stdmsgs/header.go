package stdmsgs

import (
	"fmt"

	"github.com/morezero/rosbridge/pkg/message"
)

const TypeHeader = "std_msgs/Header"

// Header is the standard metadata for higher-level stamped data types.
type Header struct {
	Seq     uint32
	Stamp   Time
	FrameID string
}

func (h Header) TypeTag() string { return TypeHeader }

func (h Header) Encode() any {
	return message.Object{
		"seq":      h.Seq,
		"stamp":    h.Stamp.Encode(),
		"frame_id": h.FrameID,
	}
}

func (h Header) String() string {
	return fmt.Sprintf("Header { seq = %d, stamp = %s, frame_id = %s }", h.Seq, h.Stamp, h.FrameID)
}

// DecodeHeader decodes a std_msgs/Header value.
func DecodeHeader(value any) (Header, error) {
	obj, err := message.AsObject(value)
	if err != nil {
		return Header{}, err
	}
	seq, err := message.Uint32(obj, "seq")
	if err != nil {
		return Header{}, err
	}
	stamp, err := message.Nested(obj, "stamp", DecodeTime)
	if err != nil {
		return Header{}, err
	}
	frameID, err := message.String(obj, "frame_id")
	if err != nil {
		return Header{}, err
	}
	return Header{Seq: seq, Stamp: stamp, FrameID: frameID}, nil
}
