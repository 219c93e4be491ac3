// Package network implements the little-endian binary frames exchanged with
// browser clients.
package network

import (
	"encoding/binary"
	"errors"
	"math"
)

var (
	ErrInvalidMessage = errors.New("invalid message")
	ErrBufferTooSmall = errors.New("buffer too small")
)

// Protocol handles binary encoding/decoding
type Protocol struct{}

// NewProtocol creates a new protocol handler
func NewProtocol() *Protocol {
	return &Protocol{}
}

// MessageType returns the type byte of a frame.
func (p *Protocol) MessageType(data []byte) (uint8, error) {
	if len(data) == 0 {
		return 0, ErrBufferTooSmall
	}
	return data[0], nil
}

// DecodeInput decodes a client input message (4 bytes)
func (p *Protocol) DecodeInput(data []byte) (*InputMessage, error) {
	if len(data) < InputSize {
		return nil, ErrBufferTooSmall
	}

	if data[0] != MsgTypeInput {
		return nil, ErrInvalidMessage
	}

	return &InputMessage{
		MsgType:  data[0],
		Sequence: data[1],
		Forward:  int8(data[2]),
		Steering: int8(data[3]),
	}, nil
}

// EncodeInput encodes a client input message. Used by clients and tests.
func (p *Protocol) EncodeInput(seq uint8, forward, steering float64) []byte {
	return []byte{
		MsgTypeInput,
		seq,
		uint8(QuantizeAxis(forward)),
		uint8(QuantizeAxis(steering)),
	}
}

// DecodePing decodes a ping message
func (p *Protocol) DecodePing(data []byte) (*PingMessage, error) {
	if len(data) < PingSize {
		return nil, ErrBufferTooSmall
	}

	if data[0] != MsgTypePing {
		return nil, ErrInvalidMessage
	}

	return &PingMessage{
		MsgType:   data[0],
		Timestamp: binary.LittleEndian.Uint64(data[1:9]),
	}, nil
}

// EncodePose encodes a pose update (20 bytes)
func (p *Protocol) EncodePose(msg PoseMessage) []byte {
	buf := make([]byte, PoseSize)

	buf[0] = MsgTypePose
	binary.LittleEndian.PutUint16(buf[1:3], msg.Tick)
	binary.LittleEndian.PutUint32(buf[3:7], math.Float32bits(msg.X))
	binary.LittleEndian.PutUint32(buf[7:11], math.Float32bits(msg.Z))
	binary.LittleEndian.PutUint32(buf[11:15], math.Float32bits(msg.Heading))
	binary.LittleEndian.PutUint32(buf[15:19], math.Float32bits(msg.Speed))
	buf[19] = msg.Flags

	return buf
}

// DecodePose decodes a pose update
func (p *Protocol) DecodePose(data []byte) (*PoseMessage, error) {
	if len(data) < PoseSize {
		return nil, ErrBufferTooSmall
	}

	if data[0] != MsgTypePose {
		return nil, ErrInvalidMessage
	}

	return &PoseMessage{
		MsgType: data[0],
		Tick:    binary.LittleEndian.Uint16(data[1:3]),
		X:       math.Float32frombits(binary.LittleEndian.Uint32(data[3:7])),
		Z:       math.Float32frombits(binary.LittleEndian.Uint32(data[7:11])),
		Heading: math.Float32frombits(binary.LittleEndian.Uint32(data[11:15])),
		Speed:   math.Float32frombits(binary.LittleEndian.Uint32(data[15:19])),
		Flags:   data[19],
	}, nil
}

// EncodeCheckpointReached encodes a checkpoint reached event. The event ID lets
// clients drop a frame they have already handled.
func (p *Protocol) EncodeCheckpointReached(eventID, checkpointID string, reached, total uint8) []byte {
	idBytes := truncate(checkpointID)
	evBytes := truncate(eventID)

	buf := make([]byte, 0, 5+len(idBytes)+len(evBytes))
	buf = append(buf, MsgTypeCheckpointReached, uint8(len(idBytes)))
	buf = append(buf, idBytes...)
	buf = append(buf, reached, total, uint8(len(evBytes)))
	buf = append(buf, evBytes...)

	return buf
}

// DecodeCheckpointReached decodes a checkpoint reached event
func (p *Protocol) DecodeCheckpointReached(data []byte) (*CheckpointReachedMessage, error) {
	if len(data) < 5 {
		return nil, ErrBufferTooSmall
	}

	if data[0] != MsgTypeCheckpointReached {
		return nil, ErrInvalidMessage
	}

	id, offset, err := readString(data, 1)
	if err != nil {
		return nil, err
	}
	if len(data) < offset+3 {
		return nil, ErrBufferTooSmall
	}
	eventID, _, err := readString(data, offset+2)
	if err != nil {
		return nil, err
	}

	return &CheckpointReachedMessage{
		MsgType:      data[0],
		EventID:      eventID,
		CheckpointID: id,
		Reached:      data[offset],
		Total:        data[offset+1],
	}, nil
}

// EncodeCompleted encodes a session completed event
func (p *Protocol) EncodeCompleted(eventID string, reached uint8) []byte {
	evBytes := truncate(eventID)

	buf := make([]byte, 0, 3+len(evBytes))
	buf = append(buf, MsgTypeCompleted, reached, uint8(len(evBytes)))
	return append(buf, evBytes...)
}

// DecodeCompleted decodes a session completed event
func (p *Protocol) DecodeCompleted(data []byte) (*CompletedMessage, error) {
	if len(data) < 3 {
		return nil, ErrBufferTooSmall
	}

	if data[0] != MsgTypeCompleted {
		return nil, ErrInvalidMessage
	}

	eventID, _, err := readString(data, 2)
	if err != nil {
		return nil, err
	}

	return &CompletedMessage{
		MsgType: data[0],
		EventID: eventID,
		Reached: data[1],
	}, nil
}

// EncodeSessionInfo encodes session info message
func (p *Protocol) EncodeSessionInfo(sessionID string, total uint8) []byte {
	idBytes := truncate(sessionID)

	buf := make([]byte, 3+len(idBytes))
	buf[0] = MsgTypeSessionInfo
	buf[1] = uint8(len(idBytes))
	copy(buf[2:], idBytes)
	buf[2+len(idBytes)] = total

	return buf
}

// DecodeSessionInfo decodes a session info message
func (p *Protocol) DecodeSessionInfo(data []byte) (*SessionInfoMessage, error) {
	if len(data) < 3 {
		return nil, ErrBufferTooSmall
	}

	if data[0] != MsgTypeSessionInfo {
		return nil, ErrInvalidMessage
	}

	idLen := int(data[1])
	if len(data) < 3+idLen {
		return nil, ErrBufferTooSmall
	}

	return &SessionInfoMessage{
		MsgType:   data[0],
		SessionID: string(data[2 : 2+idLen]),
		Total:     data[2+idLen],
	}, nil
}

// EncodePong encodes a pong message
func (p *Protocol) EncodePong(timestamp uint64) []byte {
	buf := make([]byte, 9)
	buf[0] = MsgTypePong
	binary.LittleEndian.PutUint64(buf[1:9], timestamp)
	return buf
}

// EncodeError encodes an error message
func (p *Protocol) EncodeError(code uint8, message string) []byte {
	msgBytes := truncate(message)

	buf := make([]byte, 3+len(msgBytes))
	buf[0] = MsgTypeError
	buf[1] = code
	buf[2] = uint8(len(msgBytes))
	copy(buf[3:], msgBytes)

	return buf
}

// QuantizeAxis maps [-1, 1] onto int8 [-127, 127]. NaN maps to 0.
func QuantizeAxis(v float64) int8 {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Max(-1, math.Min(1, v))
	return int8(math.Round(v * 127))
}

// DecodeAxis converts a quantized axis back to [-1, 1]
func DecodeAxis(v int8) float64 {
	// -128 is not produced by QuantizeAxis but is a valid byte on the wire
	return math.Max(-1, float64(v)/127.0)
}

// readString reads a length-prefixed string at offset and returns the offset
// just past it.
func readString(data []byte, offset int) (string, int, error) {
	if len(data) < offset+1 {
		return "", 0, ErrBufferTooSmall
	}
	n := int(data[offset])
	end := offset + 1 + n
	if len(data) < end {
		return "", 0, ErrBufferTooSmall
	}
	return string(data[offset+1 : end]), end, nil
}

func truncate(s string) []byte {
	b := []byte(s)
	if len(b) > 255 {
		b = b[:255]
	}
	return b
}
