package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/tui-player/internal/core"
)

// Action is a player command derived from a key press.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionOpenFile
	ActionOpenURL
	ActionSample
	ActionRestart
	ActionGame // the key maps to one or more game keys
)

// KeyMapper translates Bubble Tea key messages to player actions and game
// key identifiers.
type KeyMapper struct{}

// NewKeyMapper creates a new key mapper with default bindings.
func NewKeyMapper() *KeyMapper {
	return &KeyMapper{}
}

var gameKeys = map[string]string{
	"up":    core.KeyUp,
	"down":  core.KeyDown,
	"left":  core.KeyLeft,
	"right": core.KeyRight,
	"z":     core.KeyA,
	"x":     core.KeyB,
	"q":     core.KeyL,
	"w":     core.KeyR,
	"enter": core.KeyStart,
}

// MapKey returns the action for msg and, for ActionGame, the game keys it
// presses. Terminals never report a bare Shift, so shifted keys press
// Shift together with the base key.
func (km *KeyMapper) MapKey(msg tea.KeyMsg) (Action, []string) {
	key := msg.String()

	switch key {
	case "ctrl+c":
		return ActionQuit, nil
	case "ctrl+o":
		return ActionOpenFile, nil
	case "ctrl+u":
		return ActionOpenURL, nil
	case "ctrl+s":
		return ActionSample, nil
	case "ctrl+r":
		return ActionRestart, nil
	}

	if k, ok := gameKeys[key]; ok {
		return ActionGame, []string{k}
	}
	if base, ok := strings.CutPrefix(key, "shift+"); ok {
		if k, ok := gameKeys[base]; ok {
			return ActionGame, []string{core.KeySelect, k}
		}
	}
	if len(key) == 1 {
		if k, ok := gameKeys[strings.ToLower(key)]; ok && key != strings.ToLower(key) {
			return ActionGame, []string{core.KeySelect, k}
		}
	}
	return ActionNone, nil
}

// PromptAction represents a prompt-specific action derived from input.
type PromptAction int

const (
	PromptActionNone PromptAction = iota
	PromptActionSubmit
	PromptActionCancel
	PromptActionQuit
)

// MapKeyToPromptAction translates a key to a prompt action. Anything else
// is text input.
func (km *KeyMapper) MapKeyToPromptAction(msg tea.KeyMsg) PromptAction {
	switch msg.String() {
	case "ctrl+c":
		return PromptActionQuit
	case "enter":
		return PromptActionSubmit
	case "esc":
		return PromptActionCancel
	}
	return PromptActionNone
}
