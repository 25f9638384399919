package geometrymsgs

import (
	"fmt"
	"strings"

	"github.com/morezero/rosbridge/pkg/message"
	"github.com/morezero/rosbridge/pkg/msgs/stdmsgs"
)

const (
	TypePoseWithCovariance        = "geometry_msgs/PoseWithCovariance"
	TypePoseWithCovarianceStamped = "geometry_msgs/PoseWithCovarianceStamped"
	TypeTwistWithCovariance       = "geometry_msgs/TwistWithCovariance"
)

// CovarianceSize is the number of entries in a row-major 6x6 covariance matrix.
const CovarianceSize = 36

// Covariance is a row-major 6x6 matrix over (x, y, z, rot x, rot y, rot z).
type Covariance [CovarianceSize]float64

// At returns the entry at row i, column j.
func (c Covariance) At(i, j int) float64 {
	return c[i*6+j]
}

func (c Covariance) encode() any {
	return message.Float64s(c[:])
}

func (c Covariance) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range c {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%g", v)
	}
	b.WriteByte(']')
	return b.String()
}

func decodeCovariance(obj message.Object) (Covariance, error) {
	values, err := message.FixedFloat64Array(obj, "covariance", CovarianceSize)
	if err != nil {
		return Covariance{}, err
	}
	var c Covariance
	copy(c[:], values)
	return c, nil
}

// PoseWithCovariance is a Pose with its uncertainty.
type PoseWithCovariance struct {
	Pose       Pose
	Covariance Covariance
}

func (p PoseWithCovariance) TypeTag() string { return TypePoseWithCovariance }

func (p PoseWithCovariance) Encode() any {
	return message.Object{
		"pose":       p.Pose.Encode(),
		"covariance": p.Covariance.encode(),
	}
}

func (p PoseWithCovariance) String() string {
	return fmt.Sprintf("PoseWithCovariance { pose = %s, covariance = %s }", p.Pose, p.Covariance)
}

// DecodePoseWithCovariance decodes a geometry_msgs/PoseWithCovariance value.
func DecodePoseWithCovariance(value any) (PoseWithCovariance, error) {
	obj, err := message.AsObject(value)
	if err != nil {
		return PoseWithCovariance{}, err
	}
	pose, err := message.Nested(obj, "pose", DecodePose)
	if err != nil {
		return PoseWithCovariance{}, err
	}
	covariance, err := decodeCovariance(obj)
	if err != nil {
		return PoseWithCovariance{}, err
	}
	return PoseWithCovariance{Pose: pose, Covariance: covariance}, nil
}

// PoseWithCovarianceStamped is a PoseWithCovariance with a reference frame and timestamp.
type PoseWithCovarianceStamped struct {
	Header stdmsgs.Header
	Pose   PoseWithCovariance
}

func (p PoseWithCovarianceStamped) TypeTag() string { return TypePoseWithCovarianceStamped }

func (p PoseWithCovarianceStamped) Encode() any {
	return message.Object{
		"header": p.Header.Encode(),
		"pose":   p.Pose.Encode(),
	}
}

func (p PoseWithCovarianceStamped) String() string {
	return fmt.Sprintf("PoseWithCovarianceStamped { header = %s, pose = %s }", p.Header, p.Pose)
}

// DecodePoseWithCovarianceStamped decodes a geometry_msgs/PoseWithCovarianceStamped value.
func DecodePoseWithCovarianceStamped(value any) (PoseWithCovarianceStamped, error) {
	obj, err := message.AsObject(value)
	if err != nil {
		return PoseWithCovarianceStamped{}, err
	}
	header, err := message.Nested(obj, "header", stdmsgs.DecodeHeader)
	if err != nil {
		return PoseWithCovarianceStamped{}, err
	}
	pose, err := message.Nested(obj, "pose", DecodePoseWithCovariance)
	if err != nil {
		return PoseWithCovarianceStamped{}, err
	}
	return PoseWithCovarianceStamped{Header: header, Pose: pose}, nil
}

// TwistWithCovariance is a Twist with its uncertainty.
type TwistWithCovariance struct {
	Twist      Twist
	Covariance Covariance
}

func (t TwistWithCovariance) TypeTag() string { return TypeTwistWithCovariance }

func (t TwistWithCovariance) Encode() any {
	return message.Object{
		"twist":      t.Twist.Encode(),
		"covariance": t.Covariance.encode(),
	}
}

func (t TwistWithCovariance) String() string {
	return fmt.Sprintf("TwistWithCovariance { twist = %s, covariance = %s }", t.Twist, t.Covariance)
}

// DecodeTwistWithCovariance decodes a geometry_msgs/TwistWithCovariance value.
func DecodeTwistWithCovariance(value any) (TwistWithCovariance, error) {
	obj, err := message.AsObject(value)
	if err != nil {
		return TwistWithCovariance{}, err
	}
	twist, err := message.Nested(obj, "twist", DecodeTwist)
	if err != nil {
		return TwistWithCovariance{}, err
	}
	covariance, err := decodeCovariance(obj)
	if err != nil {
		return TwistWithCovariance{}, err
	}
	return TwistWithCovariance{Twist: twist, Covariance: covariance}, nil
}
