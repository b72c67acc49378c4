package log

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// FileVersion is the .fplog format written by FileLogger. Readers accept
// versions up to and including it.
const FileVersion = 1

const fileMagic = "FPLOG"

var (
	// ErrNotProtocolLog is returned for files that do not start with a
	// .fplog header.
	ErrNotProtocolLog = errors.New("log: not a .fplog file")

	// ErrUnsupportedVersion is returned for .fplog files newer than
	// FileVersion.
	ErrUnsupportedVersion = errors.New("log: unsupported .fplog version")
)

// Header is the first record of every .fplog file. It encodes as a CBOR
// array while events encode as maps.
type Header struct {
	_       struct{} `cbor:",toarray"`
	Magic   string
	Version uint
	Created time.Time
}

var (
	// encMode writes canonical CBOR with RFC 3339 nanosecond timestamps.
	encMode cbor.EncMode

	// decMode tolerates duplicate keys so older .fplog files stay readable.
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("log: cbor encode mode: %v", err))
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("log: cbor decode mode: %v", err))
	}
}

// EncodeEvent encodes an Event with integer map keys.
func EncodeEvent(event Event) ([]byte, error) {
	return encMode.Marshal(event)
}

// DecodeEvent decodes a single CBOR-encoded Event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := decMode.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// NewEncoder returns a streaming event encoder writing to w. It writes no
// header; use FileLogger for .fplog files.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a streaming event decoder reading from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}

func newHeader(now time.Time) Header {
	return Header{Magic: fileMagic, Version: FileVersion, Created: now.UTC()}
}

// readHeader consumes the header at the start of a .fplog stream. An empty
// stream has no header and no events.
func readHeader(dec *cbor.Decoder) (Header, error) {
	var raw cbor.RawMessage
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return Header{}, io.EOF
		}
		return Header{}, fmt.Errorf("%w: %v", ErrNotProtocolLog, err)
	}

	// Major type 4 is an array.
	if len(raw) == 0 || raw[0]>>5 != 4 {
		return Header{}, ErrNotProtocolLog
	}
	var h Header
	if err := decMode.Unmarshal(raw, &h); err != nil || h.Magic != fileMagic {
		return Header{}, ErrNotProtocolLog
	}
	if h.Version == 0 || h.Version > FileVersion {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	return h, nil
}
