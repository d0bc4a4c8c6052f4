package keys

import "strings"

// Shortcut is an ordered key combination emitted as one unit.
type Shortcut []Key

// DefaultShortcut is used when a configured shortcut resolves to no keys.
var DefaultShortcut = Shortcut{KeyLeftShift, KeySpace}

// ParseShortcut resolves configuration tokens into a shortcut. Unknown tokens
// are skipped; when nothing resolves, DefaultShortcut is returned.
func ParseShortcut(tokens []string) Shortcut {
	var sc Shortcut
	for _, tok := range tokens {
		for _, part := range strings.Split(tok, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			if k, ok := Lookup(part); ok {
				sc = append(sc, k)
			}
		}
	}
	if len(sc) == 0 {
		return append(Shortcut(nil), DefaultShortcut...)
	}
	return sc
}

// Tokens returns the configuration tokens of the shortcut.
func (s Shortcut) Tokens() []string {
	out := make([]string, len(s))
	for i, k := range s {
		out[i] = k.String()
	}
	return out
}

func (s Shortcut) String() string {
	return strings.Join(s.Tokens(), ",")
}

// Split separates modifier members from the other members, keeping order.
func (s Shortcut) Split() (mods, others []Key) {
	for _, k := range s {
		if IsModifier(k) {
			mods = append(mods, k)
		} else {
			others = append(others, k)
		}
	}
	return mods, others
}
