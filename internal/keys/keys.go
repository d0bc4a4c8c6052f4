// Package keys is the static key catalog of the virtual keyboard.
//
// A Key is a Linux evdev key code. The catalog knows which keys exist on the
// board, which of them are modifiers, which modifiers pair up as left/right
// opposites, and how each key is named in configuration files and labelled on
// screen.
package keys

import (
	"fmt"
	"sort"
)

// Key identifies one logical key by its evdev code.
type Key uint16

// Evdev codes for every key on the board (input-event-codes.h).
const (
	KeyNone       Key = 0
	KeyEsc        Key = 1
	Key1          Key = 2
	Key2          Key = 3
	Key3          Key = 4
	Key4          Key = 5
	Key5          Key = 6
	Key6          Key = 7
	Key7          Key = 8
	Key8          Key = 9
	Key9          Key = 10
	Key0          Key = 11
	KeyMinus      Key = 12
	KeyEqual      Key = 13
	KeyBackspace  Key = 14
	KeyTab        Key = 15
	KeyQ          Key = 16
	KeyW          Key = 17
	KeyE          Key = 18
	KeyR          Key = 19
	KeyT          Key = 20
	KeyY          Key = 21
	KeyU          Key = 22
	KeyI          Key = 23
	KeyO          Key = 24
	KeyP          Key = 25
	KeyLeftBrace  Key = 26
	KeyRightBrace Key = 27
	KeyEnter      Key = 28
	KeyLeftCtrl   Key = 29
	KeyA          Key = 30
	KeyS          Key = 31
	KeyD          Key = 32
	KeyF          Key = 33
	KeyG          Key = 34
	KeyH          Key = 35
	KeyJ          Key = 36
	KeyK          Key = 37
	KeyL          Key = 38
	KeySemicolon  Key = 39
	KeyApostrophe Key = 40
	KeyGrave      Key = 41
	KeyLeftShift  Key = 42
	KeyBackslash  Key = 43
	KeyZ          Key = 44
	KeyX          Key = 45
	KeyC          Key = 46
	KeyV          Key = 47
	KeyB          Key = 48
	KeyN          Key = 49
	KeyM          Key = 50
	KeyComma      Key = 51
	KeyDot        Key = 52
	KeySlash      Key = 53
	KeyRightShift Key = 54
	KeyLeftAlt    Key = 56
	KeySpace      Key = 57
	KeyCapsLock   Key = 58
	KeyRightCtrl  Key = 97
	KeyRightAlt   Key = 100
	KeyHome       Key = 102
	KeyUp         Key = 103
	KeyLeft       Key = 105
	KeyRight      Key = 106
	KeyEnd        Key = 107
	KeyDown       Key = 108
	KeyLeftMeta   Key = 125
	KeyRightMeta  Key = 126
)

// Class is the dispatch class of a key.
type Class int

const (
	ClassOrdinary Class = iota // taps once, then auto-repeats while held
	ClassModifier              // held/latched through the modifier registry
	ClassSpace                 // space: tap or cursor mode
	ClassCapsLock              // toggles the caps indicator
)

func (c Class) String() string {
	switch c {
	case ClassModifier:
		return "modifier"
	case ClassSpace:
		return "space"
	case ClassCapsLock:
		return "capslock"
	default:
		return "ordinary"
	}
}

// entry describes one catalog key.
type entry struct {
	name  string // configuration token, without the KEY_ prefix
	label string // on-screen label
}

var catalog = map[Key]entry{
	KeyEsc:        {"ESC", "Esc"},
	Key1:          {"1", "1"},
	Key2:          {"2", "2"},
	Key3:          {"3", "3"},
	Key4:          {"4", "4"},
	Key5:          {"5", "5"},
	Key6:          {"6", "6"},
	Key7:          {"7", "7"},
	Key8:          {"8", "8"},
	Key9:          {"9", "9"},
	Key0:          {"0", "0"},
	KeyMinus:      {"MINUS", "-"},
	KeyEqual:      {"EQUAL", "="},
	KeyBackspace:  {"BACKSPACE", "Backspace"},
	KeyTab:        {"TAB", "Tab"},
	KeyQ:          {"Q", "Q"},
	KeyW:          {"W", "W"},
	KeyE:          {"E", "E"},
	KeyR:          {"R", "R"},
	KeyT:          {"T", "T"},
	KeyY:          {"Y", "Y"},
	KeyU:          {"U", "U"},
	KeyI:          {"I", "I"},
	KeyO:          {"O", "O"},
	KeyP:          {"P", "P"},
	KeyLeftBrace:  {"LEFTBRACE", "["},
	KeyRightBrace: {"RIGHTBRACE", "]"},
	KeyEnter:      {"ENTER", "Enter"},
	KeyLeftCtrl:   {"LEFTCTRL", "Ctrl_L"},
	KeyA:          {"A", "A"},
	KeyS:          {"S", "S"},
	KeyD:          {"D", "D"},
	KeyF:          {"F", "F"},
	KeyG:          {"G", "G"},
	KeyH:          {"H", "H"},
	KeyJ:          {"J", "J"},
	KeyK:          {"K", "K"},
	KeyL:          {"L", "L"},
	KeySemicolon:  {"SEMICOLON", ";"},
	KeyApostrophe: {"APOSTROPHE", "'"},
	KeyGrave:      {"GRAVE", "`"},
	KeyLeftShift:  {"LEFTSHIFT", "Shift_L"},
	KeyBackslash:  {"BACKSLASH", "\\"},
	KeyZ:          {"Z", "Z"},
	KeyX:          {"X", "X"},
	KeyC:          {"C", "C"},
	KeyV:          {"V", "V"},
	KeyB:          {"B", "B"},
	KeyN:          {"N", "N"},
	KeyM:          {"M", "M"},
	KeyComma:      {"COMMA", ","},
	KeyDot:        {"DOT", "."},
	KeySlash:      {"SLASH", "/"},
	KeyRightShift: {"RIGHTSHIFT", "Shift_R"},
	KeyLeftAlt:    {"LEFTALT", "Alt_L"},
	KeySpace:      {"SPACE", "Space"},
	KeyCapsLock:   {"CAPSLOCK", "CapsLock"},
	KeyRightCtrl:  {"RIGHTCTRL", "Ctrl_R"},
	KeyRightAlt:   {"RIGHTALT", "Alt_R"},
	KeyHome:       {"HOME", "Home"},
	KeyUp:         {"UP", "↑"},
	KeyLeft:       {"LEFT", "←"},
	KeyRight:      {"RIGHT", "→"},
	KeyEnd:        {"END", "End"},
	KeyDown:       {"DOWN", "↓"},
	KeyLeftMeta:   {"LEFTMETA", "Super_L"},
	KeyRightMeta:  {"RIGHTMETA", "Super_R"},
}

// opposites pairs each modifier with its other-hand instance.
var opposites = map[Key]Key{
	KeyLeftShift:  KeyRightShift,
	KeyRightShift: KeyLeftShift,
	KeyLeftCtrl:   KeyRightCtrl,
	KeyRightCtrl:  KeyLeftCtrl,
	KeyLeftAlt:    KeyRightAlt,
	KeyRightAlt:   KeyLeftAlt,
	KeyLeftMeta:   KeyRightMeta,
	KeyRightMeta:  KeyLeftMeta,
}

// Modifiers lists every modifier key in code order.
var Modifiers = []Key{
	KeyLeftCtrl,
	KeyLeftShift,
	KeyRightShift,
	KeyLeftAlt,
	KeyRightCtrl,
	KeyRightAlt,
	KeyLeftMeta,
	KeyRightMeta,
}

// Shifts are the two Shift instances.
var Shifts = [2]Key{KeyLeftShift, KeyRightShift}

// String returns the configuration token of k, or its numeric code when k is
// not in the catalog.
func (k Key) String() string {
	if e, ok := catalog[k]; ok {
		return e.name
	}
	return fmt.Sprintf("KEY_%d", uint16(k))
}

// Valid reports whether k is part of the catalog.
func (k Key) Valid() bool {
	_, ok := catalog[k]
	return ok
}

// All returns every catalog key sorted by code.
func All() []Key {
	all := make([]Key, 0, len(catalog))
	for k := range catalog {
		all = append(all, k)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	return all
}

// IsModifier reports whether k is one of the eight modifier keys.
func IsModifier(k Key) bool {
	_, ok := opposites[k]
	return ok
}

// IsShift reports whether k is a Shift instance.
func IsShift(k Key) bool {
	return k == KeyLeftShift || k == KeyRightShift
}

// Opposite returns the other-hand instance of modifier k.
func Opposite(k Key) (Key, bool) {
	o, ok := opposites[k]
	return o, ok
}

// Pair returns both instances of the modifier class k belongs to, left first.
func Pair(k Key) ([2]Key, bool) {
	o, ok := opposites[k]
	if !ok {
		return [2]Key{}, false
	}
	if k < o {
		return [2]Key{k, o}, true
	}
	return [2]Key{o, k}, true
}

// ClassOf returns the dispatch class of k.
func ClassOf(k Key) Class {
	switch {
	case k == KeySpace:
		return ClassSpace
	case k == KeyCapsLock:
		return ClassCapsLock
	case IsModifier(k):
		return ClassModifier
	default:
		return ClassOrdinary
	}
}
