package busapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"vboard/internal/contact"
	"vboard/internal/input"
	"vboard/internal/keys"
)

// DefaultCallTimeout bounds how long a method call waits for the engine loop.
const DefaultCallTimeout = 2 * time.Second

// Engine is the part of the contact tracker the service drives.
type Engine interface {
	Handle(ev input.Event) error
	Reset() error
	Snapshot() contact.Snapshot
}

// Runner executes fn on the engine's thread and waits for the result.
// *sched.Loop implements it.
type Runner interface {
	Do(ctx context.Context, fn func() error) error
}

// Service implements the org.vboard.Keyboard interface. The engine is only
// touched inside closures handed to the runner.
type Service struct {
	runner  Runner
	engine  Engine
	logger  *slog.Logger
	timeout time.Duration

	// elapsed stands in for the event time when a caller sends 0.
	elapsed func() time.Duration

	observe CallObserver
}

// CallObserver is told about every method call that reached the engine.
type CallObserver func(method string, took time.Duration, err error)

// NewService creates a service driving engine through runner.
func NewService(runner Runner, engine Engine, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	return &Service{
		runner:  runner,
		engine:  engine,
		logger:  logger,
		timeout: DefaultCallTimeout,
		elapsed: func() time.Duration { return time.Since(start) },
	}
}

// SetEngine swaps the engine, for example after a configuration reload.
// It must be called on the runner's thread so the swap lands between two
// input events.
func (s *Service) SetEngine(engine Engine) {
	s.engine = engine
}

// OnCall installs fn as the call observer. Call it before Export.
func (s *Service) OnCall(fn CallObserver) {
	s.observe = fn
}

// Export publishes the service and its introspection data on conn at path
// and claims busName.
func (s *Service) Export(conn *dbus.Conn, busName string, path dbus.ObjectPath) error {
	if err := conn.Export(s, path, Interface); err != nil {
		return fmt.Errorf("export %s: %w", Interface, err)
	}
	if err := conn.Export(introspect.NewIntrospectable(&introspection), path, "org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("export introspection: %w", err)
	}

	reply, err := conn.RequestName(busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", busName)
	}
	s.logger.Info("dbus service exported", "bus_name", busName, "path", path)
	return nil
}

// Begin starts a press. A name that is not a key only ends the contact's
// current press, if any.
func (s *Service) Begin(contactID, key string, x, y float64, timeMs int64) *dbus.Error {
	if contactID == "" {
		return invalidArgs("contact id must not be empty")
	}
	k, ok := keys.Lookup(key)
	if !ok {
		s.logger.Debug("ignoring unknown key", "contact", contactID, "key", key)
		return s.dispatch("Begin", input.Event{
			Contact: input.ContactID(contactID),
			Phase:   input.PhaseEnd,
			Time:    s.eventTime(timeMs),
		})
	}
	return s.dispatch("Begin", input.Event{
		Contact: input.ContactID(contactID),
		Phase:   input.PhaseBegin,
		Key:     k,
		X:       x,
		Y:       y,
		Time:    s.eventTime(timeMs),
	})
}

// Update reports motion of an active contact.
func (s *Service) Update(contactID string, x, y float64, timeMs int64) *dbus.Error {
	if contactID == "" {
		return invalidArgs("contact id must not be empty")
	}
	return s.dispatch("Update", input.Event{
		Contact: input.ContactID(contactID),
		Phase:   input.PhaseUpdate,
		X:       x,
		Y:       y,
		Time:    s.eventTime(timeMs),
	})
}

// End finishes a press.
func (s *Service) End(contactID string, timeMs int64) *dbus.Error {
	if contactID == "" {
		return invalidArgs("contact id must not be empty")
	}
	return s.dispatch("End", input.Event{
		Contact: input.ContactID(contactID),
		Phase:   input.PhaseEnd,
		Time:    s.eventTime(timeMs),
	})
}

// Reset drops every contact and releases every key.
func (s *Service) Reset() *dbus.Error {
	return s.call("Reset", func() error {
		if s.engine == nil {
			return nil
		}
		return s.engine.Reset()
	})
}

// State reports active contacts and modifiers.
func (s *Service) State() (StateReply, *dbus.Error) {
	var snap contact.Snapshot
	derr := s.call("State", func() error {
		if s.engine != nil {
			snap = s.engine.Snapshot()
		}
		return nil
	})
	if derr != nil {
		return StateReply{}, derr
	}
	return replyFromSnapshot(snap), nil
}

func (s *Service) dispatch(method string, ev input.Event) *dbus.Error {
	return s.call(method, func() error {
		if s.engine == nil {
			return nil
		}
		return s.engine.Handle(ev)
	})
}

func (s *Service) call(method string, fn func() error) *dbus.Error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	err := s.runner.Do(ctx, fn)
	if s.observe != nil {
		s.observe(method, time.Since(start), err)
	}
	if err != nil {
		s.logger.Warn("engine call failed", "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			return dbus.NewError(ErrorEngine, []interface{}{"engine did not respond"})
		}
		return dbus.NewError(ErrorEngine, []interface{}{err.Error()})
	}
	return nil
}

func (s *Service) eventTime(ms int64) time.Duration {
	if ms <= 0 {
		return s.elapsed()
	}
	return input.Millis(ms)
}

func invalidArgs(msg string) *dbus.Error {
	return dbus.NewError(ErrorInvalidArgs, []interface{}{msg})
}

func replyFromSnapshot(snap contact.Snapshot) StateReply {
	r := StateReply{
		Contacts:    make(map[string]string, len(snap.Contacts)),
		Held:        []string{},
		Latched:     []string{},
		ShiftActive: snap.ShiftActive,
		CapsLock:    snap.CapsLock,
	}
	for id, k := range snap.Contacts {
		r.Contacts[string(id)] = k.String()
	}
	for k, st := range snap.Modifiers {
		if st.Held {
			r.Held = append(r.Held, k.String())
		}
		if st.Latched {
			r.Latched = append(r.Latched, k.String())
		}
	}
	sort.Strings(r.Held)
	sort.Strings(r.Latched)
	return r
}
