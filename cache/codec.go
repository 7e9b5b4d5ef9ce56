package cache

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec converts values to and from the bytes stored by a remote tier.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte) (any, error)
}

// JSONCodec stores values as JSON text. Stored data that is not valid JSON
// is returned verbatim as a string.
type JSONCodec struct{}

var _ Codec = JSONCodec{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(v any) ([]byte, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "cache: json encode")
	}
	return buf, nil
}

func (JSONCodec) Unmarshal(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data), nil
	}
	return v, nil
}

// MsgpackCodec stores values as msgpack. INCR writes decimal text, so
// namespaces holding counters should keep JSONCodec.
type MsgpackCodec struct{}

var _ Codec = MsgpackCodec{}

func (MsgpackCodec) Name() string { return "msgpack" }

func (MsgpackCodec) Marshal(v any) ([]byte, error) {
	buf, err := msgpack.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "cache: msgpack encode")
	}
	return buf, nil
}

func (MsgpackCodec) Unmarshal(data []byte) (any, error) {
	var v any
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return string(data), nil
	}
	return v, nil
}
