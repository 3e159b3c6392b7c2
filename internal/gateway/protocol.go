package gateway

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/soyeahso/cpbot/internal/discord"
)

// ErrMalformedFrame is returned by DecodeFrame for undecodable input.
var ErrMalformedFrame = errors.New("malformed gateway frame")

// Opcode identifies the kind of gateway frame.
type Opcode int

const (
	OpDispatch       Opcode = 0
	OpHeartbeat      Opcode = 1
	OpIdentify       Opcode = 2
	OpStatusUpdate   Opcode = 3
	OpResume         Opcode = 6
	OpReconnect      Opcode = 7
	OpInvalidSession Opcode = 9
	OpHello          Opcode = 10
	OpHeartbeatAck   Opcode = 11
)

func (op Opcode) String() string {
	switch op {
	case OpDispatch:
		return "dispatch"
	case OpHeartbeat:
		return "heartbeat"
	case OpIdentify:
		return "identify"
	case OpStatusUpdate:
		return "status_update"
	case OpResume:
		return "resume"
	case OpReconnect:
		return "reconnect"
	case OpInvalidSession:
		return "invalid_session"
	case OpHello:
		return "hello"
	case OpHeartbeatAck:
		return "heartbeat_ack"
	default:
		return fmt.Sprintf("op(%d)", int(op))
	}
}

// Dispatch event types the bot cares about.
const (
	EventReady                 = "READY"
	EventResumed               = "RESUMED"
	EventGuildCreate           = "GUILD_CREATE"
	EventChannelCreate         = "CHANNEL_CREATE"
	EventMessageCreate         = "MESSAGE_CREATE"
	EventMessageUpdate         = "MESSAGE_UPDATE"
	EventMessageDelete         = "MESSAGE_DELETE"
	EventMessageReactionAdd    = "MESSAGE_REACTION_ADD"
	EventMessageReactionRemove = "MESSAGE_REACTION_REMOVE"
)

// Frame is the envelope of every gateway message.
// S and T are only meaningful on dispatch frames.
type Frame struct {
	Op Opcode          `json:"op"`
	D  json.RawMessage `json:"d"`
	S  *int64          `json:"s,omitempty"`
	T  string          `json:"t,omitempty"`
}

// Decode unmarshals the frame payload into v.
func (f Frame) Decode(v any) error {
	if len(f.D) == 0 {
		return fmt.Errorf("%w: %s frame has no payload", ErrMalformedFrame, f.Op)
	}
	if err := json.Unmarshal(f.D, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrMalformedFrame, f.Op, err)
	}
	return nil
}

// EncodeFrame serializes an outbound frame with the given opcode and payload.
func EncodeFrame(op Opcode, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", op, err)
	}
	return json.Marshal(Frame{Op: op, D: raw})
}

// DecodeFrame parses one inbound text frame.
func DecodeFrame(data []byte) (Frame, error) {
	var wire struct {
		Op *Opcode         `json:"op"`
		D  json.RawMessage `json:"d"`
		S  *int64          `json:"s"`
		T  *string         `json:"t"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if wire.Op == nil {
		return Frame{}, fmt.Errorf("%w: missing op", ErrMalformedFrame)
	}

	f := Frame{Op: *wire.Op, D: wire.D, S: wire.S}
	if wire.T != nil {
		f.T = *wire.T
	}
	return f, nil
}

// Hello is the payload of the first frame the server sends.
type Hello struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

// Identify authenticates the session.
type Identify struct {
	Token      string             `json:"token"`
	Properties IdentifyProperties `json:"properties"`
	Compress   bool               `json:"compress"`
	Presence   *Presence          `json:"presence,omitempty"`
}

// IdentifyProperties describes the connecting client.
type IdentifyProperties struct {
	OS string `json:"$os"`
}

// Presence is the initial status advertised in Identify.
type Presence struct {
	Game   *Activity `json:"game"`
	Status string    `json:"status"`
	Since  *int64    `json:"since"`
	AFK    bool      `json:"afk"`
}

// Activity is the "playing" line of a presence.
type Activity struct {
	Name string `json:"name"`
	Type int    `json:"type"`
}

// Ready is the payload of the READY dispatch.
type Ready struct {
	Version   int          `json:"v"`
	User      discord.User `json:"user"`
	SessionID string       `json:"session_id"`
}

// NewIdentify builds the Identify payload. An empty activity omits presence.
func NewIdentify(token, os, activity string) Identify {
	id := Identify{
		Token:      token,
		Properties: IdentifyProperties{OS: os},
	}
	if activity != "" {
		id.Presence = &Presence{
			Game:   &Activity{Name: activity, Type: 0},
			Status: "online",
		}
	}
	return id
}
