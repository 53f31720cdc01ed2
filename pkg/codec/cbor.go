package codec

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/models"
)

// maxNestedLevels admits a list nested to models.MaxDepth inside a message
// envelope. Every subtask level costs an array and a map.
const maxNestedLevels = 2*models.MaxDepth + 16

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.EncOptions{
		Time: cbor.TimeRFC3339Nano,
		Sort: cbor.SortCanonical,
	}.EncMode()
	if err != nil {
		panic(err)
	}

	cborDec, err = cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		MaxNestedLevels: maxNestedLevels,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// CBOR encodes binary frames with fxamacker/cbor.
// Times travel as RFC 3339 strings so both codecs agree on their shape.
type CBOR struct{}

func (CBOR) Name() string { return NameCBOR }

func (CBOR) Binary() bool { return true }

func (CBOR) Marshal(v any) ([]byte, error) {
	return cborEnc.Marshal(v)
}

func (CBOR) NewEncoder(w io.Writer) Encoder {
	return cborEnc.NewEncoder(w)
}

func (CBOR) Unmarshal(data []byte, dst any) error {
	return cborDec.Unmarshal(data, dst)
}

func (CBOR) NewDecoder(r io.Reader) Decoder {
	return cborDec.NewDecoder(r)
}
