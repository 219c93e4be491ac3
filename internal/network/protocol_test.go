package network

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInput(t *testing.T) {
	p := NewProtocol()

	msg, err := p.DecodeInput(p.EncodeInput(7, 1, -0.5))
	require.NoError(t, err)
	assert.Equal(t, uint8(7), msg.Sequence)
	assert.Equal(t, int8(127), msg.Forward)
	assert.Equal(t, int8(-64), msg.Steering)

	_, err = p.DecodeInput([]byte{MsgTypeInput, 1, 2})
	assert.ErrorIs(t, err, ErrBufferTooSmall)

	_, err = p.DecodeInput([]byte{MsgTypePing, 1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestAxisQuantization(t *testing.T) {
	tests := []struct {
		in   float64
		want int8
	}{
		{0, 0},
		{1, 127},
		{-1, -127},
		{2, 127},
		{-7, -127},
		{math.NaN(), 0},
		{0.5, 64},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, QuantizeAxis(tt.in), "QuantizeAxis(%v)", tt.in)
	}

	assert.Equal(t, 1.0, DecodeAxis(127))
	assert.Equal(t, -1.0, DecodeAxis(-127))
	assert.Equal(t, -1.0, DecodeAxis(-128))
	assert.InDelta(t, 0.5, DecodeAxis(QuantizeAxis(0.5)), 0.01)
}

func TestPoseFrame(t *testing.T) {
	p := NewProtocol()
	in := PoseMessage{
		Tick:    513,
		X:       -12.5,
		Z:       -340.25,
		Heading: 0.75,
		Speed:   22.8,
		Flags:   FlagAutopilot | FlagEdgeContact,
	}

	buf := p.EncodePose(in)
	require.Len(t, buf, PoseSize)
	assert.Equal(t, MsgTypePose, buf[0])
	assert.Equal(t, []byte{0x01, 0x02}, buf[1:3], "tick is little-endian")

	out, err := p.DecodePose(buf)
	require.NoError(t, err)
	in.MsgType = MsgTypePose
	assert.Equal(t, in, *out)

	_, err = p.DecodePose(buf[:10])
	assert.ErrorIs(t, err, ErrBufferTooSmall)
}

func TestCheckpointReachedFrame(t *testing.T) {
	p := NewProtocol()

	buf := p.EncodeCheckpointReached("ev1", "skills", 2, 4)
	assert.Equal(t, []byte{
		MsgTypeCheckpointReached, 6, 's', 'k', 'i', 'l', 'l', 's', 2, 4, 3, 'e', 'v', '1',
	}, buf)

	msg, err := p.DecodeCheckpointReached(buf)
	require.NoError(t, err)
	assert.Equal(t, "ev1", msg.EventID)
	assert.Equal(t, "skills", msg.CheckpointID)
	assert.Equal(t, uint8(2), msg.Reached)
	assert.Equal(t, uint8(4), msg.Total)

	for _, n := range []int{len(buf) - 1, 10, 9, 5} {
		_, err = p.DecodeCheckpointReached(buf[:n])
		assert.ErrorIs(t, err, ErrBufferTooSmall, "length %d", n)
	}

	_, err = p.DecodeCheckpointReached(p.EncodeCompleted("ev1", 4))
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestCompletedFrame(t *testing.T) {
	p := NewProtocol()

	buf := p.EncodeCompleted("ev2", 4)
	assert.Equal(t, []byte{MsgTypeCompleted, 4, 3, 'e', 'v', '2'}, buf)

	msg, err := p.DecodeCompleted(buf)
	require.NoError(t, err)
	assert.Equal(t, "ev2", msg.EventID)
	assert.Equal(t, uint8(4), msg.Reached)

	_, err = p.DecodeCompleted(buf[:len(buf)-1])
	assert.ErrorIs(t, err, ErrBufferTooSmall)

	_, err = p.DecodeCompleted([]byte{MsgTypePong, 0, 0})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestSessionInfoFrame(t *testing.T) {
	p := NewProtocol()
	id := "0b9f0d6c-8a8e-4f55-9c55-0e3c7f1f5c11"

	msg, err := p.DecodeSessionInfo(p.EncodeSessionInfo(id, 4))
	require.NoError(t, err)
	assert.Equal(t, id, msg.SessionID)
	assert.Equal(t, uint8(4), msg.Total)
}

func TestSmallFrames(t *testing.T) {
	p := NewProtocol()

	pong := p.EncodePong(0x0102030405060708)
	assert.Equal(t, []byte{MsgTypePong, 8, 7, 6, 5, 4, 3, 2, 1}, pong)

	ping := append([]byte{MsgTypePing}, pong[1:]...)
	msg, err := p.DecodePing(ping)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), msg.Timestamp)

	errFrame := p.EncodeError(ErrorCodeServerFull, "full")
	assert.Equal(t, []byte{MsgTypeError, ErrorCodeServerFull, 4, 'f', 'u', 'l', 'l'}, errFrame)

	_, err = p.MessageType(nil)
	assert.ErrorIs(t, err, ErrBufferTooSmall)
}

func TestLongStringsAreTruncated(t *testing.T) {
	p := NewProtocol()
	long := make([]byte, 400)
	for i := range long {
		long[i] = 'x'
	}

	buf := p.EncodeError(ErrorCodeServerError, string(long))
	assert.Equal(t, uint8(255), buf[2])
	assert.Len(t, buf, 3+255)
}
