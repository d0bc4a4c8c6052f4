package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"golang.org/x/term"

	"vboard/internal/keys"
)

const (
	typeContact  = "ctl:type"
	shiftContact = "ctl:shift"
)

// presser is the part of the bus client typing needs.
type presser interface {
	Begin(ctx context.Context, contact, key string, x, y float64, timeMs int64) error
	End(ctx context.Context, contact string, timeMs int64) error
}

// shifted maps each shifted symbol to the key that produces it.
var shifted = func() map[rune]keys.Key {
	m := make(map[rune]keys.Key)
	for _, k := range keys.All() {
		if sym, ok := keys.Symbol(k); ok {
			m[[]rune(sym)[0]] = k
		}
	}
	return m
}()

// runeKey resolves a typed character to a key and whether Shift is needed.
func runeKey(r rune) (keys.Key, bool, bool) {
	switch r {
	case ' ':
		return keys.KeySpace, false, true
	case '\r', '\n':
		return keys.KeyEnter, false, true
	case '\t':
		return keys.KeyTab, false, true
	case 0x7f, '\b':
		return keys.KeyBackspace, false, true
	}
	if r > unicode.MaxASCII {
		return 0, false, false
	}
	if unicode.IsLetter(r) {
		k, ok := keys.Lookup(string(unicode.ToUpper(r)))
		return k, unicode.IsUpper(r), ok
	}
	if k, ok := shifted[r]; ok {
		return k, true, true
	}
	k, ok := keys.Lookup(string(r))
	return k, false, ok
}

// typeKey taps key, holding Shift around it when asked.
func typeKey(ctx context.Context, p presser, key keys.Key, shift bool) error {
	if shift {
		if err := p.Begin(ctx, shiftContact, keys.KeyLeftShift.String(), 0, 0, 0); err != nil {
			return err
		}
	}
	err := p.Begin(ctx, typeContact, key.String(), 0, 0, 0)
	if err == nil {
		err = p.End(ctx, typeContact, 0)
	}
	if shift {
		if endErr := p.End(ctx, shiftContact, 0); err == nil {
			err = endErr
		}
	}
	return err
}

// typeText types every character of s that maps to a key. It returns the
// characters that were skipped.
func typeText(ctx context.Context, p presser, s string) (string, error) {
	var skipped strings.Builder
	for _, r := range s {
		key, shift, ok := runeKey(r)
		if !ok {
			skipped.WriteRune(r)
			continue
		}
		if err := typeKey(ctx, p, key, shift); err != nil {
			return skipped.String(), err
		}
	}
	return skipped.String(), nil
}

// arrows maps the final byte of an ANSI cursor sequence to its key.
var arrows = map[rune]keys.Key{
	'A': keys.KeyUp,
	'B': keys.KeyDown,
	'C': keys.KeyRight,
	'D': keys.KeyLeft,
	'H': keys.KeyHome,
	'F': keys.KeyEnd,
}

// typeInteractive forwards keystrokes from a raw terminal until Ctrl-C or
// Ctrl-D. Input that is not a terminal is typed as text.
func typeInteractive(ctx context.Context, p presser) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		skipped, err := typeText(ctx, p, string(data))
		if skipped != "" {
			fmt.Fprintf(os.Stderr, "skipped %d characters without a key\n", len([]rune(skipped)))
		}
		return err
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("raw mode: %w", err)
	}
	defer term.Restore(fd, state)

	fmt.Fprint(os.Stderr, "typing into vboardd, Ctrl-D to stop\r\n")
	return forward(ctx, bufio.NewReader(os.Stdin), p)
}

func forward(ctx context.Context, in *bufio.Reader, p presser) error {
	for {
		r, _, err := in.ReadRune()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		switch r {
		case 0x03, 0x04:
			return nil
		case 0x1b:
			if k, ok := readEscape(in); ok {
				if err := typeKey(ctx, p, k, false); err != nil {
					return err
				}
			}
			continue
		}

		key, shift, ok := runeKey(r)
		if !ok {
			continue
		}
		if err := typeKey(ctx, p, key, shift); err != nil {
			return err
		}
	}
}

// readEscape consumes "[X" after an escape byte when it is already buffered.
func readEscape(in *bufio.Reader) (keys.Key, bool) {
	if in.Buffered() < 2 {
		return 0, false
	}
	b, err := in.Peek(2)
	if err != nil || b[0] != '[' {
		return 0, false
	}
	k, ok := arrows[rune(b[1])]
	if ok {
		in.Discard(2)
	}
	return k, ok
}
