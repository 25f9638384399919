package geometrymsgs

import (
	"fmt"

	"github.com/morezero/rosbridge/pkg/message"
)

const TypeTwist = "geometry_msgs/Twist"

// Twist is velocity in free space broken into its linear and angular parts.
type Twist struct {
	Linear  Vector3
	Angular Vector3
}

func (t Twist) TypeTag() string { return TypeTwist }

func (t Twist) Encode() any {
	return message.Object{
		"linear":  t.Linear.Encode(),
		"angular": t.Angular.Encode(),
	}
}

func (t Twist) String() string {
	return fmt.Sprintf("Twist { linear = %s, angular = %s }", t.Linear, t.Angular)
}

// DecodeTwist decodes a geometry_msgs/Twist value.
func DecodeTwist(value any) (Twist, error) {
	obj, err := message.AsObject(value)
	if err != nil {
		return Twist{}, err
	}
	linear, err := message.Nested(obj, "linear", DecodeVector3)
	if err != nil {
		return Twist{}, err
	}
	angular, err := message.Nested(obj, "angular", DecodeVector3)
	if err != nil {
		return Twist{}, err
	}
	return Twist{Linear: linear, Angular: angular}, nil
}
