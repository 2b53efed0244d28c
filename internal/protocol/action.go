// Package protocol defines the JSON envelope exchanged with memory clients
// and the "<action>|<state>" frame the server broadcasts.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformed marks an inbound message that cannot be acted on.
var ErrMalformed = errors.New("protocol: malformed message")

// ActionType enumerates every message kind in both directions. The ordinals
// match the desktop client's enum so numeric payloads decode too.
type ActionType int

const (
	Register ActionType = iota
	StarteGame
	GetNextAction
	FirstCard
	SecondCard
	NoMatch
	MatchFound
	NewGame
	ReadyForNewGame
	NoNewGame
	Ciao
	Chat
)

var actionNames = [...]string{
	Register:        "Register",
	StarteGame:      "StarteGame",
	GetNextAction:   "GetNextAction",
	FirstCard:       "FirstCard",
	SecondCard:      "SecondCard",
	NoMatch:         "NoMatch",
	MatchFound:      "MatchFound",
	NewGame:         "NewGame",
	ReadyForNewGame: "ReadyForNewGame",
	NoNewGame:       "NoNewGame",
	Ciao:            "Ciao",
	Chat:            "Chat",
}

func (a ActionType) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return "ActionType(" + strconv.Itoa(int(a)) + ")"
	}
	return actionNames[a]
}

func (a ActionType) valid() bool {
	return a >= 0 && int(a) < len(actionNames)
}

// FromClient reports whether clients may send this action.
func (a ActionType) FromClient() bool {
	switch a {
	case Register, GetNextAction, ReadyForNewGame, NoNewGame, Ciao, Chat:
		return true
	}
	return false
}

// ParseActionType resolves an action name.
func ParseActionType(name string) (ActionType, error) {
	for i, n := range actionNames {
		if n == name {
			return ActionType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown action type %q", ErrMalformed, name)
}

// MarshalJSON writes the action name.
func (a ActionType) MarshalJSON() ([]byte, error) {
	if !a.valid() {
		return nil, fmt.Errorf("protocol: cannot encode %s", a)
	}
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts the action name or its ordinal.
func (a *ActionType) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		parsed, err := ParseActionType(name)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	}

	var ordinal int
	if err := json.Unmarshal(data, &ordinal); err != nil {
		return fmt.Errorf("%w: action type %s", ErrMalformed, data)
	}
	if !ActionType(ordinal).valid() {
		return fmt.Errorf("%w: unknown action type %d", ErrMalformed, ordinal)
	}
	*a = ActionType(ordinal)
	return nil
}

// Chat content kinds.
const (
	ContentText  = "Text"
	ContentImage = "Image"
)

// ChatContent is one item of a chat message.
type ChatContent struct {
	Type    string `json:"type" validate:"oneof=Text Image"`
	Content string `json:"content" validate:"required,max=2048"`
}

// Text returns a text chat item.
func Text(s string) ChatContent {
	return ChatContent{Type: ContentText, Content: s}
}

// Image returns an image-reference chat item.
func Image(ref string) ChatContent {
	return ChatContent{Type: ContentImage, Content: ref}
}

// ActionMessage is the envelope for every message.
type ActionMessage struct {
	ActionType       ActionType    `json:"actionType"`
	ClickedCardIndex int           `json:"clickedCardIndex" validate:"gte=0"`
	Name             string        `json:"name,omitempty" validate:"max=32"`
	ChatMessage      []ChatContent `json:"chatMessage,omitempty" validate:"max=32,dive"`
}

// NewChat builds a Chat action from the given items.
func NewChat(items ...ChatContent) ActionMessage {
	return ActionMessage{ActionType: Chat, ChatMessage: items}
}
