// Package api defines the tripledger.v1 wire messages and the JSON codec the
// Connect handlers and clients use to carry them.
package api

import (
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// CodecName is registered in place of Connect's default JSON codec.
const CodecName = "json"

// Codec marshals plain Go messages with encoding/json. Protobuf messages, such
// as the well-known types, go through protojson so their canonical JSON form
// is kept.
type Codec struct {
	name string
}

// CharsetCodec is Codec registered under "json; charset=utf-8", which
// browsers and curl commonly send.
var CharsetCodec = Codec{name: CodecName + "; charset=utf-8"}

func (c Codec) Name() string {
	if c.name == "" {
		return CodecName
	}
	return c.name
}

func (Codec) Marshal(msg any) ([]byte, error) {
	if m, ok := msg.(proto.Message); ok {
		return protojson.Marshal(m)
	}
	return json.Marshal(msg)
}

func (Codec) Unmarshal(data []byte, msg any) error {
	if m, ok := msg.(proto.Message); ok {
		return protojson.UnmarshalOptions{DiscardUnknown: true}.Unmarshal(data, m)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

// Amount is a decimal amount on the wire. It decodes from either a JSON string
// ("60.00") or a bare number (60) and always encodes as a string. The empty
// Amount means "not given".
type Amount string

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*a = ""
	case strings.HasPrefix(s, `"`):
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*a = Amount(strings.TrimSpace(str))
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("amount must be a string or number: %s", s)
		}
		*a = Amount(n.String())
	}
	return nil
}

func (a Amount) String() string { return string(a) }
