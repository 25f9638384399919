package stdmsgs

import (
	"strconv"

	"github.com/morezero/rosbridge/pkg/message"
)

const TypeString = "std_msgs/String"

// String is std_msgs/String.
type String struct {
	Data string
}

func (s String) TypeTag() string { return TypeString }

func (s String) Encode() any {
	return message.Object{"data": s.Data}
}

func (s String) String() string {
	return "String { data = " + strconv.Quote(s.Data) + " }"
}

// DecodeString decodes a std_msgs/String value.
func DecodeString(value any) (String, error) {
	obj, err := message.AsObject(value)
	if err != nil {
		return String{}, err
	}
	data, err := message.String(obj, "data")
	if err != nil {
		return String{}, err
	}
	return String{Data: data}, nil
}
