package geometrymsgs

import (
	"fmt"

	"github.com/morezero/rosbridge/pkg/message"
	"github.com/morezero/rosbridge/pkg/msgs/stdmsgs"
)

const (
	TypePose        = "geometry_msgs/Pose"
	TypePoseStamped = "geometry_msgs/PoseStamped"
)

// Pose is a position and orientation in free space.
type Pose struct {
	Position    Point
	Orientation Quaternion
}

func (p Pose) TypeTag() string { return TypePose }

func (p Pose) Encode() any {
	return message.Object{
		"position":    p.Position.Encode(),
		"orientation": p.Orientation.Encode(),
	}
}

func (p Pose) String() string {
	return fmt.Sprintf("Pose { position = %s, orientation = %s }", p.Position, p.Orientation)
}

// DecodePose decodes a geometry_msgs/Pose value.
func DecodePose(value any) (Pose, error) {
	obj, err := message.AsObject(value)
	if err != nil {
		return Pose{}, err
	}
	position, err := message.Nested(obj, "position", DecodePoint)
	if err != nil {
		return Pose{}, err
	}
	orientation, err := message.Nested(obj, "orientation", DecodeQuaternion)
	if err != nil {
		return Pose{}, err
	}
	return Pose{Position: position, Orientation: orientation}, nil
}

// PoseStamped is a Pose with a reference frame and timestamp.
type PoseStamped struct {
	Header stdmsgs.Header
	Pose   Pose
}

func (p PoseStamped) TypeTag() string { return TypePoseStamped }

func (p PoseStamped) Encode() any {
	return message.Object{
		"header": p.Header.Encode(),
		"pose":   p.Pose.Encode(),
	}
}

func (p PoseStamped) String() string {
	return fmt.Sprintf("PoseStamped { header = %s, pose = %s }", p.Header, p.Pose)
}

// DecodePoseStamped decodes a geometry_msgs/PoseStamped value.
func DecodePoseStamped(value any) (PoseStamped, error) {
	obj, err := message.AsObject(value)
	if err != nil {
		return PoseStamped{}, err
	}
	header, err := message.Nested(obj, "header", stdmsgs.DecodeHeader)
	if err != nil {
		return PoseStamped{}, err
	}
	pose, err := message.Nested(obj, "pose", DecodePose)
	if err != nil {
		return PoseStamped{}, err
	}
	return PoseStamped{Header: header, Pose: pose}, nil
}
