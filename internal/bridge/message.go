// Package bridge implements the message protocol between a host controller
// and a sandbox runtime. Messages are plain serializable records with a
// "type" discriminant; nothing else crosses the isolation boundary.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type is the message discriminant.
type Type string

// Message types. Ready, Log and Buttons flow sandbox → host;
// RunCode and VKey flow host → sandbox.
const (
	TypeReady   Type = "ready"
	TypeLog     Type = "log"
	TypeRunCode Type = "runCode"
	TypeVKey    Type = "vkey"
	TypeButtons Type = "buttons"
)

// Level is the severity of a log message.
type Level string

// Log levels understood by the host log sink.
const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// ErrUnknownType is returned by Decode for an unrecognized discriminant.
var ErrUnknownType = errors.New("bridge: unknown message type")

// Message is the tagged variant carried by the protocol. Only the fields
// belonging to Type are meaningful.
type Message struct {
	Type Type `json:"type"`

	// log
	Msg   string `json:"msg,omitempty"`
	Level Level  `json:"level,omitempty"`

	// runCode
	Code string `json:"code,omitempty"`

	// vkey
	Key  string `json:"key,omitempty"`
	Down bool   `json:"down,omitempty"`

	// buttons
	Names []string `json:"names,omitempty"`
}

// Ready signals that the sandbox finished booting.
func Ready() Message {
	return Message{Type: TypeReady}
}

// Log carries a diagnostic for the host UI.
func Log(msg string, level Level) Message {
	return Message{Type: TypeLog, Msg: msg, Level: level}
}

// RunCode asks the sandbox to evaluate and run source text.
func RunCode(code string) Message {
	return Message{Type: TypeRunCode, Code: code}
}

// VKey reports a virtual button transition.
func VKey(key string, down bool) Message {
	return Message{Type: TypeVKey, Key: key, Down: down}
}

// Buttons forwards a game's hint about which virtual buttons it uses.
func Buttons(names []string) Message {
	return Message{Type: TypeButtons, Names: append([]string(nil), names...)}
}

// EffectiveLevel returns the log level, defaulting to info when absent.
func (m Message) EffectiveLevel() Level {
	switch m.Level {
	case LevelWarn, LevelError:
		return m.Level
	default:
		return LevelInfo
	}
}

// String returns a short description for logging. Code bodies are elided.
func (m Message) String() string {
	switch m.Type {
	case TypeLog:
		return fmt.Sprintf("log{%s: %s}", m.EffectiveLevel(), m.Msg)
	case TypeRunCode:
		return fmt.Sprintf("runCode{%d bytes}", len(m.Code))
	case TypeVKey:
		return fmt.Sprintf("vkey{%s down=%t}", m.Key, m.Down)
	case TypeButtons:
		return fmt.Sprintf("buttons%v", m.Names)
	default:
		return string(m.Type)
	}
}

// Encode serializes a message to its JSON wire form. Only the fields of the
// message's own case are written, and vkey always carries an explicit down.
func Encode(m Message) ([]byte, error) {
	wire := map[string]any{"type": m.Type}
	switch m.Type {
	case TypeReady:
	case TypeLog:
		wire["msg"] = m.Msg
		if m.Level != "" {
			wire["level"] = m.Level
		}
	case TypeRunCode:
		wire["code"] = m.Code
	case TypeVKey:
		wire["key"] = m.Key
		wire["down"] = m.Down
	case TypeButtons:
		names := m.Names
		if names == nil {
			names = []string{}
		}
		wire["names"] = names
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
	return json.Marshal(wire)
}

// Decode parses the JSON wire form. A missing vkey down decodes as false.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("bridge: cannot decode message: %w", err)
	}
	if !knownType(m.Type) {
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
	return m, nil
}

func knownType(t Type) bool {
	switch t {
	case TypeReady, TypeLog, TypeRunCode, TypeVKey, TypeButtons:
		return true
	}
	return false
}
