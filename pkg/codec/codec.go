// Package codec provides the wire encodings spoken on the websocket channel.
//
// JSON is the default. Clients that negotiate the "cbor" subprotocol get
// binary CBOR frames carrying the same message shapes.
package codec

import (
	"fmt"
	"io"
)

type Encoder interface {
	Encode(v any) error
}

type Decoder interface {
	Decode(v any) error
}

type Marshaler interface {
	Marshal(v any) ([]byte, error)
	NewEncoder(w io.Writer) Encoder
}

type Unmarshaler interface {
	Unmarshal(data []byte, dst any) error
	NewDecoder(r io.Reader) Decoder
}

// Codec pairs a Marshaler with its Unmarshaler.
type Codec interface {
	Marshaler
	Unmarshaler

	// Name is the websocket subprotocol that selects this codec.
	Name() string

	// Binary reports whether frames must be sent as binary messages.
	Binary() bool
}

const (
	NameJSON = "json"
	NameCBOR = "cbor"
)

// Subprotocols lists the names a server should offer during the handshake,
// most preferred first.
func Subprotocols() []string {
	return []string{NameCBOR, NameJSON}
}

// ForName returns the codec registered under name. An empty name selects JSON.
func ForName(name string) (Codec, error) {
	switch name {
	case NameJSON, "":
		return JSON{}, nil
	case NameCBOR:
		return CBOR{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}
