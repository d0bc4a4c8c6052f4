//go:build linux

package sink

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"vboard/internal/keys"
)

// uinput.h and input-event-codes.h
const (
	uinputMaxNameSize = 80
	uiDevCreate       = 0x5501
	uiDevDestroy      = 0x5502
	uiSetEvBit        = 0x40045564
	uiSetKeyBit       = 0x40045565
	busVirtual        = 0x06
	absSize           = 64

	evSyn     = 0x00
	evKey     = 0x01
	synReport = 0
)

// DefaultUinputPath is the uinput control node.
const DefaultUinputPath = "/dev/uinput"

type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

type uinputUserDev struct {
	Name       [uinputMaxNameSize]byte
	ID         inputID
	EffectsMax uint32
	Absmax     [absSize]int32
	Absmin     [absSize]int32
	Absfuzz    [absSize]int32
	Absflat    [absSize]int32
}

type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// Uinput is a virtual keyboard device created through /dev/uinput.
type Uinput struct {
	mu     sync.Mutex
	f      *os.File
	name   string
	closed bool
}

// OpenUinput creates a virtual keyboard named name that can emit every key
// in keyset. Opening needs write access to path (usually root or the input
// group).
func OpenUinput(path, name string, keyset []keys.Key) (*Uinput, error) {
	if path == "" {
		path = DefaultUinputPath
	}
	f, err := os.OpenFile(path, os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrUnavailable, path, err)
	}

	fd := f.Fd()
	if err := ioctl(fd, uiSetEvBit, evKey); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: enable key events: %v", ErrUnavailable, err)
	}
	if err := ioctl(fd, uiSetEvBit, evSyn); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: enable sync events: %v", ErrUnavailable, err)
	}
	for _, k := range keyset {
		if err := ioctl(fd, uiSetKeyBit, uintptr(k)); err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: enable key %s: %v", ErrUnavailable, k, err)
		}
	}

	dev := uinputUserDev{
		ID: inputID{Bustype: busVirtual, Vendor: 0x7662, Product: 0x0001, Version: 1},
	}
	copy(dev.Name[:uinputMaxNameSize-1], name)

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.NativeEndian, &dev); err != nil {
		f.Close()
		return nil, fmt.Errorf("encode device: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: write device: %v", ErrUnavailable, err)
	}
	if err := ioctl(fd, uiDevCreate, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: create device: %v", ErrUnavailable, err)
	}

	return &Uinput{f: f, name: name}, nil
}

func ioctl(fd, req, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, arg)
	if errno != 0 {
		return errno
	}
	return nil
}

// Name returns the device name shown to the host.
func (u *Uinput) Name() string {
	return u.name
}

// Emit implements Device.
func (u *Uinput) Emit(key keys.Key, value int32) error {
	return u.write(evKey, uint16(key), value)
}

// Sync implements Device.
func (u *Uinput) Sync() error {
	return u.write(evSyn, synReport, 0)
}

func (u *Uinput) write(typ, code uint16, value int32) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return ErrClosed
	}

	var buf bytes.Buffer
	ev := inputEvent{Type: typ, Code: code, Value: value}
	if err := binary.Write(&buf, binary.NativeEndian, &ev); err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := u.f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("%w: write event: %v", ErrUnavailable, err)
	}
	return nil
}

// Close destroys the virtual device.
func (u *Uinput) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return nil
	}
	u.closed = true
	_ = ioctl(u.f.Fd(), uiDevDestroy, 0)
	return u.f.Close()
}
