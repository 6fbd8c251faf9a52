// Package protocol implements the C4 client/daemon wire format (§4.4, §6):
// a local stream socket carrying length-prefixed JSON frames, one request
// at a time per connection, with a separate push-stream mode for
// subscribe. Neither the daemon nor the client package depends on the
// other through this package — both import protocol only.
package protocol

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// MaxFrameSize bounds a single frame to guard against a misbehaving peer
// claiming an enormous length prefix and exhausting memory.
const MaxFrameSize = 16 * 1024 * 1024

// Op names one of the seven daemon commands (§4.4).
type Op string

const (
	OpList              Op = "list"
	OpStart             Op = "start"
	OpStop              Op = "stop"
	OpStatus            Op = "status"
	OpRemove            Op = "remove"
	OpSubscribe         Op = "subscribe"
	OpResolveCheckpoint Op = "resolve_checkpoint"
)

// Request is the client-to-daemon frame: `{op, args}`.
type Request struct {
	Op   Op              `json:"op"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Response is the daemon-to-client frame for a non-streaming request:
// `{ok, value | error}`.
type Response struct {
	OK    bool            `json:"ok"`
	Value json.RawMessage `json:"value,omitempty"`
	Error string          `json:"error,omitempty"`
}

// EventFrame is one message in a subscribe push stream: `{event, agent_id,
// payload}`, sent repeatedly until the connection closes.
type EventFrame struct {
	Event   string          `json:"event"`
	AgentID int64           `json:"agent_id"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WriteFrame writes one `<uint32 length, big-endian><JSON body>` frame to w.
func WriteFrame(w io.Writer, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	if len(data) > MaxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds max %d", len(data), MaxFrameSize)
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(data)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame from r and unmarshals it into
// value.
func ReadFrame(r *bufio.Reader, value any) error {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return err // EOF/io.ErrUnexpectedEOF propagate as-is for callers to detect disconnect
	}
	length := binary.BigEndian.Uint32(header[:])
	if length > MaxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds max %d", length, MaxFrameSize)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return fmt.Errorf("read frame body: %w", err)
	}
	if err := json.Unmarshal(body, value); err != nil {
		return fmt.Errorf("unmarshal frame: %w", err)
	}
	return nil
}

// OK builds a successful Response carrying value marshaled into Value.
func OK(value any) (Response, error) {
	if value == nil {
		return Response{OK: true}, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return Response{}, fmt.Errorf("marshal response value: %w", err)
	}
	return Response{OK: true, Value: data}, nil
}

// Err builds a failed Response carrying err's message.
func Err(err error) Response {
	return Response{OK: false, Error: err.Error()}
}
