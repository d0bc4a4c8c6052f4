package keys

import "strings"

// symbols maps plain labels to the symbol shown while Shift is active.
var symbols = map[string]string{
	"`":  "~",
	"1":  "!",
	"2":  "@",
	"3":  "#",
	"4":  "$",
	"5":  "%",
	"6":  "^",
	"7":  "&",
	"8":  "*",
	"9":  "(",
	"0":  ")",
	"-":  "_",
	"=":  "+",
	"[":  "{",
	"]":  "}",
	"\\": "|",
	";":  ":",
	"'":  "\"",
	",":  "<",
	".":  ">",
	"/":  "?",
}

// aliases are accepted in configuration files in place of the sided names.
var aliases = map[string]string{
	"SHIFT": "LEFTSHIFT",
	"CTRL":  "LEFTCTRL",
	"ALT":   "LEFTALT",
	"SUPER": "LEFTMETA",
	"META":  "LEFTMETA",
	"WIN":   "LEFTMETA",
}

var (
	byName  = make(map[string]Key, len(catalog))
	byLabel = make(map[string]Key, len(catalog))
)

func init() {
	for k, e := range catalog {
		byName[e.name] = k
		byLabel[e.label] = k
	}
}

// DefaultLayout is the five-row board layout, top row first.
var DefaultLayout = [][]Key{
	{KeyGrave, Key1, Key2, Key3, Key4, Key5, Key6, Key7, Key8, Key9, Key0, KeyMinus, KeyEqual, KeyBackspace},
	{KeyTab, KeyQ, KeyW, KeyE, KeyR, KeyT, KeyY, KeyU, KeyI, KeyO, KeyP, KeyLeftBrace, KeyRightBrace, KeyBackslash},
	{KeyCapsLock, KeyA, KeyS, KeyD, KeyF, KeyG, KeyH, KeyJ, KeyK, KeyL, KeySemicolon, KeyApostrophe, KeyEnter},
	{KeyLeftShift, KeyZ, KeyX, KeyC, KeyV, KeyB, KeyN, KeyM, KeyComma, KeyDot, KeySlash, KeyRightShift, KeyUp},
	{KeyLeftCtrl, KeyLeftMeta, KeyLeftAlt, KeySpace, KeyRightAlt, KeyRightMeta, KeyRightCtrl, KeyLeft, KeyRight, KeyDown},
}

// widths are grid column spans for keys wider than the default of 2.
var widths = map[Key]int{
	KeyGrave:      1,
	KeySpace:      12,
	KeyCapsLock:   3,
	KeyLeftShift:  4,
	KeyRightShift: 4,
	KeyBackspace:  3,
	KeyBackslash:  3,
	KeyEnter:      4,
}

// Width returns the grid column span of k.
func Width(k Key) int {
	if w, ok := widths[k]; ok {
		return w
	}
	return 2
}

// Label returns the catalog label of k ("Shift_L", "A", "←").
func Label(k Key) string {
	if e, ok := catalog[k]; ok {
		return e.label
	}
	return k.String()
}

// DisplayLabel returns the label shown on the key face: sided modifier labels
// lose their _L/_R suffix, and symbol keys show their shifted symbol while
// shift is active.
func DisplayLabel(k Key, shift bool) string {
	label := Label(k)
	if strings.HasSuffix(label, "_L") || strings.HasSuffix(label, "_R") {
		return label[:len(label)-2]
	}
	if shift {
		if sym, ok := symbols[label]; ok {
			return sym
		}
	}
	return label
}

// Symbol returns the shifted symbol for k, if it has one.
func Symbol(k Key) (string, bool) {
	sym, ok := symbols[Label(k)]
	return sym, ok
}

// Lookup resolves a configuration token or on-screen label to a key. Tokens
// are case-insensitive, may carry a KEY_ prefix, and may use the unsided
// aliases SHIFT, CTRL, ALT, SUPER, META and WIN. A false result means the
// name is not a key and should be ignored.
func Lookup(name string) (Key, bool) {
	if k, ok := byLabel[name]; ok {
		return k, true
	}
	token := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(name)), "KEY_")
	if alias, ok := aliases[token]; ok {
		token = alias
	}
	k, ok := byName[token]
	return k, ok
}
