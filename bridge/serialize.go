package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed is returned by Decode for input that is not an envelope.
var ErrMalformed = errors.New("bridge: malformed message")

// Event is an inbound message as delivered by the host transport: the raw
// message data plus the origin of the sending document, when known.
type Event struct {
	Origin string
	Data   []byte
}

// Encode serialises a message to JSON.
func Encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses an envelope. Unknown types decode successfully so callers
// can ignore them; only non-JSON input or a missing type is an error.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if m.Type == "" {
		return Message{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return m, nil
}

// MarshalRecord serialises a Record to JSON.
func MarshalRecord(r *Record) ([]byte, error) {
	return json.Marshal(r)
}

// UnmarshalRecord deserialises a Record from JSON.
func UnmarshalRecord(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
