package busapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// ErrNoConnection is returned by Watch on a client built without a bus
// connection.
var ErrNoConnection = errors.New("busapi: no bus connection")

// Client calls a running vboardd.
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
	path dbus.ObjectPath
}

// Dial connects to the session bus and targets the service at busName/path.
func Dial(busName string, path dbus.ObjectPath) (*Client, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return &Client{
		conn: conn,
		obj:  conn.Object(busName, path),
		path: path,
	}, nil
}

// NewClient wraps an existing bus object.
func NewClient(obj dbus.BusObject) *Client {
	return &Client{obj: obj, path: obj.Path()}
}

// Begin starts a press of key by contact.
func (c *Client) Begin(ctx context.Context, contact, key string, x, y float64, timeMs int64) error {
	return c.call(ctx, "Begin", contact, key, x, y, timeMs)
}

// Update moves an active contact.
func (c *Client) Update(ctx context.Context, contact string, x, y float64, timeMs int64) error {
	return c.call(ctx, "Update", contact, x, y, timeMs)
}

// End finishes a press.
func (c *Client) End(ctx context.Context, contact string, timeMs int64) error {
	return c.call(ctx, "End", contact, timeMs)
}

// Tap presses and releases key on a dedicated contact.
func (c *Client) Tap(ctx context.Context, contact, key string) error {
	if err := c.Begin(ctx, contact, key, 0, 0, 0); err != nil {
		return err
	}
	return c.End(ctx, contact, 0)
}

// Reset asks the daemon to drop every contact.
func (c *Client) Reset(ctx context.Context) error {
	return c.call(ctx, "Reset")
}

// State fetches the daemon's current state.
func (c *Client) State(ctx context.Context) (StateReply, error) {
	var reply StateReply
	call := c.obj.CallWithContext(ctx, Interface+".State", 0)
	if call.Err != nil {
		return reply, fmt.Errorf("State: %w", call.Err)
	}
	if err := call.Store(&reply); err != nil {
		return reply, fmt.Errorf("decode state: %w", err)
	}
	return reply, nil
}

// Watch delivers feedback signals to fn until ctx is done.
func (c *Client) Watch(ctx context.Context, fn func(Signal)) error {
	if c.conn == nil {
		return ErrNoConnection
	}
	if err := c.conn.AddMatchSignal(
		dbus.WithMatchObjectPath(c.path),
		dbus.WithMatchInterface(Interface),
	); err != nil {
		return fmt.Errorf("add signal match: %w", err)
	}

	ch := make(chan *dbus.Signal, 64)
	c.conn.Signal(ch)
	defer c.conn.RemoveSignal(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-ch:
			if !ok {
				return nil
			}
			if s, ok := ParseSignal(sig); ok {
				fn(s)
			}
		}
	}
}

// Close closes the bus connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) call(ctx context.Context, method string, args ...interface{}) error {
	call := c.obj.CallWithContext(ctx, Interface+"."+method, 0, args...)
	if call.Err != nil {
		return fmt.Errorf("%s: %w", method, call.Err)
	}
	return nil
}
