package message

// Raw carries a payload whose concrete type is not in the catalog. The
// value is kept as decoded and encoded back unchanged.
type Raw struct {
	Type  string
	Value any
}

func (r Raw) TypeTag() string { return r.Type }

func (r Raw) Encode() any { return r.Value }

func (r Raw) String() string {
	return "Raw { type = " + r.Type + ", value = " + JSON(r) + " }"
}

// RawParser returns a Parser that accepts any JSON object and wraps it
// in a Raw message tagged with typeTag.
func RawParser(typeTag string) Parser {
	return func(value any) (Message, error) {
		obj, err := AsObject(value)
		if err != nil {
			return nil, err
		}
		return Raw{Type: typeTag, Value: obj}, nil
	}
}
