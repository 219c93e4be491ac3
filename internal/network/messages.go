package network

// Message types
const (
	// Client -> Server
	MsgTypeInput           uint8 = 0x01
	MsgTypeStart           uint8 = 0x02
	MsgTypeContinue        uint8 = 0x03
	MsgTypePing            uint8 = 0x04
	MsgTypeToggleAutopilot uint8 = 0x05
	MsgTypePause           uint8 = 0x06

	// Server -> Client
	MsgTypePose              uint8 = 0x10
	MsgTypeCheckpointReached uint8 = 0x11
	MsgTypeCompleted         uint8 = 0x12
	MsgTypeSessionInfo       uint8 = 0x14
	MsgTypePong              uint8 = 0x15
	MsgTypeError             uint8 = 0xFF
)

// Pose flags
const (
	FlagPaused      uint8 = 1 << 0
	FlagAutopilot   uint8 = 1 << 1
	FlagCompleted   uint8 = 1 << 2
	FlagEdgeContact uint8 = 1 << 3
	FlagLapped      uint8 = 1 << 4
)

// Frame sizes
const (
	InputSize = 4
	PingSize  = 9
	PoseSize  = 20
)

// InputMessage from client (4 bytes)
type InputMessage struct {
	MsgType  uint8
	Sequence uint8
	Forward  int8 // -127 to 127 -> -1.0 to 1.0
	Steering int8 // -127 to 127 -> -1.0 to 1.0
}

// PingMessage from client
type PingMessage struct {
	MsgType   uint8
	Timestamp uint64
}

// PoseMessage to client (20 bytes)
type PoseMessage struct {
	MsgType uint8
	Tick    uint16
	X       float32
	Z       float32
	Heading float32
	Speed   float32
	Flags   uint8
}

// CheckpointReachedMessage to client
type CheckpointReachedMessage struct {
	MsgType      uint8
	EventID      string
	CheckpointID string
	Reached      uint8
	Total        uint8
}

// CompletedMessage to client
type CompletedMessage struct {
	MsgType uint8
	EventID string
	Reached uint8
}

// SessionInfoMessage to client
type SessionInfoMessage struct {
	MsgType   uint8
	SessionID string
	Total     uint8
}

// PongMessage to client
type PongMessage struct {
	MsgType   uint8
	Timestamp uint64
}

// ErrorMessage to client
type ErrorMessage struct {
	MsgType uint8
	Code    uint8
	Message string
}

// Error codes
const (
	ErrorCodeInvalidMessage uint8 = 1
	ErrorCodeServerFull     uint8 = 2
	ErrorCodeKicked         uint8 = 3
	ErrorCodeServerError    uint8 = 4
)
