package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FrameSeparator joins the action and state documents of a server frame.
const FrameSeparator = '|'

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode parses and validates a client message.
func Decode(raw []byte) (ActionMessage, error) {
	var msg ActionMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return ActionMessage{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if err := Validate(msg); err != nil {
		return ActionMessage{}, err
	}
	return msg, nil
}

// Validate checks the structure a client message must have for its action.
func Validate(msg ActionMessage) error {
	if !msg.ActionType.FromClient() {
		return fmt.Errorf("%w: %s is server-only", ErrMalformed, msg.ActionType)
	}
	if err := validate.Struct(msg); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	switch msg.ActionType {
	case Register:
		if strings.TrimSpace(msg.Name) == "" {
			return fmt.Errorf("%w: Register needs a name", ErrMalformed)
		}
	case Chat:
		if len(msg.ChatMessage) == 0 {
			return fmt.Errorf("%w: Chat without content", ErrMalformed)
		}
	}
	return nil
}

// FrameEncoder builds server frames. With Ordinals set the actionType is
// written as its enum ordinal, which is what the desktop client reads.
type FrameEncoder struct {
	Ordinals bool
}

// EncodeFrame serializes an action and a state snapshot into one text frame
// with the action type written by name.
func EncodeFrame(action ActionMessage, state any) ([]byte, error) {
	return FrameEncoder{}.Encode(action, state)
}

// Encode serializes an action and a state snapshot into one text frame.
func (e FrameEncoder) Encode(action ActionMessage, state any) ([]byte, error) {
	var v any = action
	if e.Ordinals {
		v = ordinalMessage{
			ActionType:       ordinalType(action.ActionType),
			ClickedCardIndex: action.ClickedCardIndex,
			Name:             action.Name,
			ChatMessage:      action.ChatMessage,
		}
	}
	a, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode action: %w", err)
	}
	s, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}

	frame := make([]byte, 0, len(a)+1+len(s))
	frame = append(frame, a...)
	frame = append(frame, FrameSeparator)
	return append(frame, s...), nil
}

type ordinalType ActionType

func (o ordinalType) MarshalJSON() ([]byte, error) {
	if !ActionType(o).valid() {
		return nil, fmt.Errorf("protocol: cannot encode %s", ActionType(o))
	}
	return json.Marshal(int(o))
}

// ordinalMessage mirrors ActionMessage on the wire.
type ordinalMessage struct {
	ActionType       ordinalType   `json:"actionType"`
	ClickedCardIndex int           `json:"clickedCardIndex"`
	Name             string        `json:"name,omitempty"`
	ChatMessage      []ChatContent `json:"chatMessage,omitempty"`
}

// DecodeFrame splits a server frame into its action and the raw state JSON.
// The split happens after the first JSON value, so separators inside
// strings are harmless.
func DecodeFrame(frame []byte) (ActionMessage, json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(frame))

	var action ActionMessage
	if err := dec.Decode(&action); err != nil {
		return ActionMessage{}, nil, fmt.Errorf("%w: frame action: %w", ErrMalformed, err)
	}

	off := int(dec.InputOffset())
	if off >= len(frame) || frame[off] != FrameSeparator {
		return ActionMessage{}, nil, fmt.Errorf("%w: frame separator missing at %d", ErrMalformed, off)
	}

	state := json.RawMessage(frame[off+1:])
	if !json.Valid(state) {
		return ActionMessage{}, nil, fmt.Errorf("%w: frame state is not JSON", ErrMalformed)
	}
	return action, state, nil
}
