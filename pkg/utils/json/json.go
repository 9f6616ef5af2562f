// Package json wraps JSON serialization behind one import. It uses sonic on
// amd64/arm64 and falls back to encoding/json elsewhere, so callers never
// branch on architecture themselves.
package json

import (
	stdjson "encoding/json"
	"io"
	"runtime"

	"github.com/bytedance/sonic"
)

// Encoder is a JSON encoder interface.
type Encoder interface {
	Encode(v interface{}) error
}

// Decoder is a JSON decoder interface.
type Decoder interface {
	Decode(v interface{}) error
}

type jsonAPI struct {
	marshal    func(v interface{}) ([]byte, error)
	unmarshal  func(data []byte, v interface{}) error
	newEncoder func(w io.Writer) Encoder
	newDecoder func(r io.Reader) Decoder
}

var (
	api        *jsonAPI
	usingSonic bool
)

func init() {
	// Sonic only supports amd64 and arm64.
	if runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64" {
		api = &jsonAPI{
			marshal:   sonic.Marshal,
			unmarshal: sonic.Unmarshal,
			newEncoder: func(w io.Writer) Encoder {
				return sonic.ConfigDefault.NewEncoder(w)
			},
			newDecoder: func(r io.Reader) Decoder {
				return sonic.ConfigDefault.NewDecoder(r)
			},
		}
		usingSonic = true
	} else {
		api = &jsonAPI{
			marshal:   stdjson.Marshal,
			unmarshal: stdjson.Unmarshal,
			newEncoder: func(w io.Writer) Encoder {
				return stdjson.NewEncoder(w)
			},
			newDecoder: func(r io.Reader) Decoder {
				return stdjson.NewDecoder(r)
			},
		}
	}
}

// Marshal encodes v into JSON bytes.
func Marshal(v interface{}) ([]byte, error) {
	return api.marshal(v)
}

// Unmarshal decodes JSON bytes into v.
func Unmarshal(data []byte, v interface{}) error {
	return api.unmarshal(data, v)
}

// NewEncoder creates a new JSON encoder for the writer.
func NewEncoder(w io.Writer) Encoder {
	return api.newEncoder(w)
}

// NewDecoder creates a new JSON decoder for the reader.
func NewDecoder(r io.Reader) Decoder {
	return api.newDecoder(r)
}

// IsUsingSonic reports whether sonic backs the package on this platform.
func IsUsingSonic() bool {
	return usingSonic
}
