package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Messages are encoded canonically. Decoding caps arrays at MaxWords so a
// hostile length cannot force a huge allocation.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: encoder mode: %v", err))
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		MaxArrayElements: MaxWords,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("wire: decoder mode: %v", err))
	}
}

// EncodeRequest validates req and encodes it.
func EncodeRequest(req *Request) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return encMode.Marshal(req)
}

// DecodeRequest decodes and validates a request. A request that decodes but
// fails validation is returned together with the error, so the server can
// still echo its message id.
func DecodeRequest(data []byte) (*Request, error) {
	req := new(Request)
	if err := decMode.Unmarshal(data, req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return req, req.Validate()
}

// EncodeResponse encodes resp.
func EncodeResponse(resp *Response) ([]byte, error) {
	return encMode.Marshal(resp)
}

// DecodeResponse decodes a response.
func DecodeResponse(data []byte) (*Response, error) {
	resp := new(Response)
	if err := decMode.Unmarshal(data, resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp, nil
}
