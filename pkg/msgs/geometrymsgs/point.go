// Package geometrymsgs holds the geometry_msgs message types.
package geometrymsgs

import (
	"fmt"

	"github.com/morezero/rosbridge/pkg/message"
)

const (
	TypePoint      = "geometry_msgs/Point"
	TypeVector3    = "geometry_msgs/Vector3"
	TypeQuaternion = "geometry_msgs/Quaternion"
)

// Point is a position in free space.
type Point struct {
	X, Y, Z float64
}

func (p Point) TypeTag() string { return TypePoint }

func (p Point) Encode() any {
	return message.Object{"x": p.X, "y": p.Y, "z": p.Z}
}

func (p Point) String() string {
	return fmt.Sprintf("Point { x = %g, y = %g, z = %g }", p.X, p.Y, p.Z)
}

// DecodePoint decodes a geometry_msgs/Point value.
func DecodePoint(value any) (Point, error) {
	obj, err := message.AsObject(value)
	if err != nil {
		return Point{}, err
	}
	x, y, z, err := decodeXYZ(obj)
	if err != nil {
		return Point{}, err
	}
	return Point{X: x, Y: y, Z: z}, nil
}

// Vector3 is a direction in free space.
type Vector3 struct {
	X, Y, Z float64
}

func (v Vector3) TypeTag() string { return TypeVector3 }

func (v Vector3) Encode() any {
	return message.Object{"x": v.X, "y": v.Y, "z": v.Z}
}

func (v Vector3) String() string {
	return fmt.Sprintf("Vector3 { x = %g, y = %g, z = %g }", v.X, v.Y, v.Z)
}

// DecodeVector3 decodes a geometry_msgs/Vector3 value.
func DecodeVector3(value any) (Vector3, error) {
	obj, err := message.AsObject(value)
	if err != nil {
		return Vector3{}, err
	}
	x, y, z, err := decodeXYZ(obj)
	if err != nil {
		return Vector3{}, err
	}
	return Vector3{X: x, Y: y, Z: z}, nil
}

// Quaternion is an orientation in free space.
type Quaternion struct {
	X, Y, Z, W float64
}

// IdentityQuaternion is the no-rotation orientation.
var IdentityQuaternion = Quaternion{W: 1}

func (q Quaternion) TypeTag() string { return TypeQuaternion }

func (q Quaternion) Encode() any {
	return message.Object{"x": q.X, "y": q.Y, "z": q.Z, "w": q.W}
}

func (q Quaternion) String() string {
	return fmt.Sprintf("Quaternion { x = %g, y = %g, z = %g, w = %g }", q.X, q.Y, q.Z, q.W)
}

// DecodeQuaternion decodes a geometry_msgs/Quaternion value.
func DecodeQuaternion(value any) (Quaternion, error) {
	obj, err := message.AsObject(value)
	if err != nil {
		return Quaternion{}, err
	}
	x, y, z, err := decodeXYZ(obj)
	if err != nil {
		return Quaternion{}, err
	}
	w, err := message.Float64(obj, "w")
	if err != nil {
		return Quaternion{}, err
	}
	return Quaternion{X: x, Y: y, Z: z, W: w}, nil
}

func decodeXYZ(obj message.Object) (x, y, z float64, err error) {
	if x, err = message.Float64(obj, "x"); err != nil {
		return 0, 0, 0, err
	}
	if y, err = message.Float64(obj, "y"); err != nil {
		return 0, 0, 0, err
	}
	if z, err = message.Float64(obj, "z"); err != nil {
		return 0, 0, 0, err
	}
	return x, y, z, nil
}
