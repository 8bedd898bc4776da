package log

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Encoder and decoder modes for event files. Timestamps keep nanoseconds
// and maps are sorted so identical events encode identically.
var (
	logEncMode cbor.EncMode
	logDecMode cbor.DecMode
)

// Untyped maps inside event values decode with string keys.
var reflectMapStringAny = reflect.TypeOf(map[string]any(nil))

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	logEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create event CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
		DefaultMapType:    reflectMapStringAny,
	}
	logDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create event CBOR decoder mode: %v", err))
	}
}

// EncodeEvent encodes an Event to CBOR bytes.
func EncodeEvent(event Event) ([]byte, error) {
	return logEncMode.Marshal(event)
}

// DecodeEvent decodes CBOR bytes into an Event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := logDecMode.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}
