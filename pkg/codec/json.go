package codec

import (
	"bytes"
	"encoding/json"
	"io"
)

// JSON encodes text frames with encoding/json.
// Decoding preserves numbers as json.Number so integral values survive.
type JSON struct{}

func (JSON) Name() string { return NameJSON }

func (JSON) Binary() bool { return false }

func (JSON) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSON) NewEncoder(w io.Writer) Encoder {
	return json.NewEncoder(w)
}

func (c JSON) Unmarshal(data []byte, dst any) error {
	return c.NewDecoder(bytes.NewReader(data)).Decode(dst)
}

func (JSON) NewDecoder(r io.Reader) Decoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec
}
