package commsutil

import jsoniter "github.com/json-iterator/go"

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// EncodePayload serializes a relay payload to JSON bytes.
func EncodePayload(v any) ([]byte, error) {
	return codec.Marshal(v)
}
