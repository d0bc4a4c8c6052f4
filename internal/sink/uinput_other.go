//go:build !linux

package sink

import (
	"fmt"
	"runtime"

	"vboard/internal/keys"
)

// DefaultUinputPath is the uinput control node on Linux.
const DefaultUinputPath = "/dev/uinput"

// Uinput is only available on Linux.
type Uinput struct{}

// OpenUinput always fails outside Linux.
func OpenUinput(path, name string, keyset []keys.Key) (*Uinput, error) {
	return nil, fmt.Errorf("%w: uinput is not supported on %s", ErrUnavailable, runtime.GOOS)
}

func (u *Uinput) Name() string                         { return "" }
func (u *Uinput) Emit(key keys.Key, value int32) error { return ErrUnavailable }
func (u *Uinput) Sync() error                          { return ErrUnavailable }
func (u *Uinput) Close() error                         { return nil }
