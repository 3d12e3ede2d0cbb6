package core

import "sort"

// Key identifiers shared verbatim by the physical keyboard path and the
// virtual controller. Game scripts test membership with input.keys.has(k).
const (
	KeyUp     = "ArrowUp"
	KeyDown   = "ArrowDown"
	KeyLeft   = "ArrowLeft"
	KeyRight  = "ArrowRight"
	KeyA      = "z"
	KeyB      = "x"
	KeyL      = "q"
	KeyR      = "w"
	KeyStart  = "Enter"
	KeySelect = "Shift"
)

// Mouse is the pointer snapshot in canvas coordinates.
type Mouse struct {
	X    float64
	Y    float64
	Down bool
}

// KeySet is a membership-only set of held key identifiers.
type KeySet map[string]struct{}

// Add marks k as held. Adding a held key is a no-op.
func (s KeySet) Add(k string) {
	s[k] = struct{}{}
}

// Remove releases k. Removing a key that is not held is a no-op.
func (s KeySet) Remove(k string) {
	delete(s, k)
}

// Has reports whether k is held.
func (s KeySet) Has(k string) bool {
	_, ok := s[k]
	return ok
}

// Len returns the number of held keys.
func (s KeySet) Len() int {
	return len(s)
}

// Sorted returns the held keys in lexical order.
func (s KeySet) Sorted() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// InputState is the merged input snapshot a game module sees each frame:
// every key held on the physical keyboard or the virtual controller, and
// the mouse. Only the owning sandbox mutates it.
type InputState struct {
	Keys  KeySet
	Mouse Mouse
}

// NewInputState creates an empty input state.
func NewInputState() *InputState {
	return &InputState{Keys: make(KeySet)}
}

// SetKey adds or removes a key depending on down.
func (in *InputState) SetKey(key string, down bool) {
	if down {
		in.Keys.Add(key)
		return
	}
	in.Keys.Remove(key)
}
