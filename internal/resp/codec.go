package resp

import (
	"bufio"
	"io"
	"strconv"

	"github.com/mediocregopher/radix/v3/resp"
	"github.com/mediocregopher/radix/v3/resp/resp2"
	"github.com/mediocregopher/radix/v3/resp/resp3"
)

// Encode writes a Command to w as a RESP array of bulk strings. Requests
// are always framed as RESP2 multi-bulk regardless of the negotiated
// reply protocol — HELLO only changes how *replies* are framed.
func Encode(w io.Writer, c *Command) error {
	if err := (resp2.ArrayHeader{N: len(c.args)}).MarshalRESP(w); err != nil {
		return err
	}
	for _, a := range c.args {
		if err := (resp2.BulkStringBytes{B: a}).MarshalRESP(w); err != nil {
			return err
		}
	}
	return nil
}

// Reply is the generic decoded shape of a shard reply: a Go value tree of
// nil, int64, float64, string, []byte, []interface{}, or
// map[string]interface{} (RESP3 maps only). Reducers in internal/reduce
// walk this tree directly rather than binding it to command-specific
// structs, because the shape varies by command and by negotiated
// protocol version.
type Reply = interface{}

// Decode reads one reply from r, dispatching on the connection's
// negotiated protocol version. RESP2 replies decode to arrays/scalars;
// RESP3 replies may additionally decode to maps, sets, and big numbers.
func Decode(r *bufio.Reader, protocolVersion int) (Reply, error) {
	var into interface{}
	if protocolVersion >= 3 {
		if err := (resp3.Any{I: &into}).UnmarshalRESP(r, new(resp.Opts)); err != nil {
			return nil, err
		}
		return into, nil
	}
	if err := (resp2.Any{I: &into}).UnmarshalRESP(r); err != nil {
		return nil, err
	}
	return into, nil
}

// AsArray type-asserts a decoded Reply into a slice, returning ok=false
// for any other shape (including RESP3 maps — callers that need map
// access should use AsMap instead).
func AsArray(r Reply) (arr []interface{}, ok bool) {
	arr, ok = r.([]interface{})
	return
}

// AsMap type-asserts a decoded Reply into a RESP3 map.
func AsMap(r Reply) (m map[string]interface{}, ok bool) {
	m, ok = r.(map[string]interface{})
	return
}

// AsInt coerces a decoded Reply scalar into an int64, accepting the
// int64/float64 shapes both resp2.Any and resp3.Any may produce.
func AsInt(r Reply) (int64, bool) {
	switch v := r.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// AsScore coerces a decoded Reply scalar into a float64, accepting the
// int64/float64/string shapes a score or numeric sort key may arrive as
// (RESP2 encodes doubles as bulk strings; RESP3 has a native double
// type).
func AsScore(r Reply) (float64, bool) {
	switch v := r.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// AsString coerces a decoded Reply scalar into a string, accepting both
// the string and []byte shapes the decoders may produce for bulk/simple
// strings.
func AsString(r Reply) (string, bool) {
	switch v := r.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	}
	return "", false
}

// IsError reports whether a decoded Reply represents a RESP error, and
// returns its message.
func IsError(r Reply) (string, bool) {
	if e, ok := r.(resp2.Error); ok {
		return e.E.Error(), true
	}
	if e, ok := r.(error); ok {
		return e.Error(), true
	}
	return "", false
}

// EncodeReply writes reply to w as a wire reply, framed per
// protocolVersion, or writes err as a RESP error if err is non-nil. Used
// by cmd/coordinatord's front-end listener to answer a client after
// Coordinator.Execute returns.
func EncodeReply(w io.Writer, reply Reply, err error, protocolVersion int) error {
	if err != nil {
		return (resp2.Error{E: err}).MarshalRESP(w)
	}
	if protocolVersion >= 3 {
		return (resp3.Any{I: reply}).MarshalRESP(w, new(resp.Opts))
	}
	return (resp2.Any{I: reply}).MarshalRESP(w)
}
