// Package wire implements the length-prefixed, magic-tagged framed
// transport used between the Simulator and the Hardware: encode and
// decode a single textual message per frame.
package wire

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Magic is the 4-byte big-endian tag prefixed to every frame.
const Magic uint32 = 0xFEEDBEEF

// MaxPayload bounds the accepted frame payload size to guard memory.
const MaxPayload = 16 << 20 // 16 MiB

// Sentinel errors, one per failure class.
var (
	ErrShortRead = errors.New("wire: short read")
	ErrBadMagic  = errors.New("wire: bad magic")
	ErrTooLarge  = errors.New("wire: frame exceeds max payload size")
	ErrEncode    = errors.New("wire: encode")
	ErrDecode    = errors.New("wire: decode")
)

// CommandMessage is the Simulator->Hardware envelope.
type CommandMessage struct {
	StepID      uint64          `json:"step_id"`
	TimestampNs int64           `json:"timestamp_ns"`
	Cmd         json.RawMessage `json:"cmd"`
}

// TelemetryMessage is the Hardware->Simulator envelope.
type TelemetryMessage struct {
	StepID     uint64          `json:"step_id"`
	TActRecvNs int64           `json:"t_act_recv_ns"`
	TActSendNs int64           `json:"t_act_send_ns"`
	MissingCmd bool            `json:"missing_cmd"`
	Note       string          `json:"note"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type commandEnvelope struct {
	Command CommandMessage `json:"command"`
}

type telemetryEnvelope struct {
	Telemetry TelemetryMessage `json:"telemetry"`
}

// EncodeCommand serializes a CommandMessage into a framed message.
func EncodeCommand(m CommandMessage) ([]byte, error) {
	return encode(commandEnvelope{Command: m})
}

// EncodeTelemetry serializes a TelemetryMessage into a framed message.
func EncodeTelemetry(m TelemetryMessage) ([]byte, error) {
	return encode(telemetryEnvelope{Telemetry: m})
}

func encode(v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(payload))
	}
	buf := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], Magic)
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(payload)))
	copy(buf[8:], payload)
	return buf, nil
}

// DecodeCommand reads exactly one framed CommandMessage from r.
func DecodeCommand(r io.Reader) (CommandMessage, error) {
	payload, err := decodeFrame(r)
	if err != nil {
		return CommandMessage{}, err
	}
	var env commandEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return CommandMessage{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return env.Command, nil
}

// DecodeTelemetry reads exactly one framed TelemetryMessage from r.
func DecodeTelemetry(r io.Reader) (TelemetryMessage, error) {
	payload, err := decodeFrame(r)
	if err != nil {
		return TelemetryMessage{}, err
	}
	var env telemetryEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return TelemetryMessage{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return env.Telemetry, nil
}

// decodeFrame reads the 8-byte header and the payload, validating magic
// and size, and returns the raw payload bytes for higher-level parsing.
// No partial-frame state is retained between calls.
func decodeFrame(r io.Reader) ([]byte, error) {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: %v", ErrShortRead, err)
	}
	magic := binary.BigEndian.Uint32(hdr[0:4])
	if magic != Magic {
		return nil, fmt.Errorf("%w: got 0x%08X", ErrBadMagic, magic)
	}
	length := binary.BigEndian.Uint32(hdr[4:8])
	if length > MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("%w: %v", ErrShortRead, err)
	}
	return payload, nil
}
