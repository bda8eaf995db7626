package lookupcache

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec serializes cached records.
type Codec interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
	Name() string
}

// JSONCodec stores values as JSON, readable from redis-cli.
type JSONCodec struct{}

func (JSONCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (JSONCodec) Name() string                               { return "json" }

// MsgpackCodec stores values as MessagePack.
type MsgpackCodec struct{}

func (MsgpackCodec) Marshal(v interface{}) ([]byte, error)      { return msgpack.Marshal(v) }
func (MsgpackCodec) Unmarshal(data []byte, v interface{}) error { return msgpack.Unmarshal(data, v) }
func (MsgpackCodec) Name() string                               { return "msgpack" }

// ParseCodec returns the codec called name ("json" or "msgpack").
func ParseCodec(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown lookup cache codec %q", name)
	}
}
