// vboardctl is the command line client for vboardd.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"

	"vboard/internal/busapi"
	"vboard/internal/config"
	"vboard/internal/keys"
)

const tapContact = "ctl:tap"

var (
	configPath = flag.String("config", "", "path to config file")
	busName    = flag.String("bus-name", "", "D-Bus name of the daemon (default from config)")
	objectPath = flag.String("object-path", "", "D-Bus object path of the daemon (default from config)")
	format     = flag.String("format", "toml", "output format for the config command (toml, json, yaml)")
	timeout    = flag.Duration("timeout", 2*time.Second, "per-call timeout")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	cmd := flag.Arg(0)
	args := flag.Args()[1:]

	var err error
	switch cmd {
	case "tap":
		err = withClient(func(ctx context.Context, c *busapi.Client) error {
			need(args, 1, "tap <key>")
			return c.Tap(ctx, tapContact, args[0])
		})
	case "press":
		err = withClient(func(ctx context.Context, c *busapi.Client) error {
			need(args, 2, "press <contact> <key> [x y]")
			x, y := 0.0, 0.0
			if len(args) >= 4 {
				x, y = parseFloat(args[2]), parseFloat(args[3])
			}
			return c.Begin(ctx, args[0], args[1], x, y, 0)
		})
	case "release":
		err = withClient(func(ctx context.Context, c *busapi.Client) error {
			need(args, 1, "release <contact>")
			return c.End(ctx, args[0], 0)
		})
	case "move":
		err = withClient(func(ctx context.Context, c *busapi.Client) error {
			need(args, 3, "move <contact> <x> <y>")
			return c.Update(ctx, args[0], parseFloat(args[1]), parseFloat(args[2]), 0)
		})
	case "reset":
		err = withClient(func(ctx context.Context, c *busapi.Client) error {
			return c.Reset(ctx)
		})
	case "state":
		err = withClient(cmdState)
	case "type":
		err = withClient(func(_ context.Context, c *busapi.Client) error {
			return typeInteractive(context.Background(), c)
		})
	case "watch":
		err = cmdWatch()
	case "keys":
		cmdKeys()
	case "config":
		err = cmdConfig()
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `vboardctl - Control utility for vboardd

Usage: vboardctl [options] <command> [args]

Commands:
  tap <key>                      Press and release a key
  press <contact> <key> [x y]    Begin a press on a contact
  release <contact>              End the press of a contact
  move <contact> <x> <y>         Move a contact (space cursor mode)
  reset                          Drop every contact and release every key
  state                          Show active contacts and modifiers
  type                           Forward terminal keystrokes (Ctrl-D to stop)
  watch                          Print visual feedback signals
  keys                           List key names and the default layout
  config                         Print the effective configuration
  help                           Show this help message

Options:
  -config <path>       Path to config file
  -bus-name <name>     D-Bus name of the daemon
  -object-path <path>  D-Bus object path of the daemon
  -format <fmt>        Output format for config (toml, json, yaml)
  -timeout <dur>       Per-call timeout`)
}

func need(args []string, n int, syntax string) {
	if len(args) < n {
		fmt.Fprintf(os.Stderr, "Usage: vboardctl %s\n", syntax)
		os.Exit(1)
	}
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid number: %s\n", s)
		os.Exit(1)
	}
	return f
}

func loadConfig() *config.Config {
	path := *configPath
	if path == "" {
		path = config.FindConfigFile()
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func dial() (*busapi.Client, error) {
	name, path := *busName, *objectPath
	if name == "" || path == "" {
		cfg := loadConfig()
		if name == "" {
			name = cfg.DBus.BusName
		}
		if path == "" {
			path = cfg.DBus.ObjectPath
		}
	}
	return busapi.Dial(name, dbus.ObjectPath(path))
}

func withClient(fn func(ctx context.Context, c *busapi.Client) error) error {
	c, err := dial()
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	return fn(ctx, c)
}

func cmdState(ctx context.Context, c *busapi.Client) error {
	st, err := c.State(ctx)
	if err != nil {
		return err
	}
	fmt.Print(formatState(st))
	return nil
}

func formatState(st busapi.StateReply) string {
	var b strings.Builder

	ids := make([]string, 0, len(st.Contacts))
	for id := range st.Contacts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Fprintf(&b, "Contacts: %d\n", len(ids))
	for _, id := range ids {
		fmt.Fprintf(&b, "  %-16s %s\n", id, st.Contacts[id])
	}
	fmt.Fprintf(&b, "Held:     %s\n", listOrNone(st.Held))
	fmt.Fprintf(&b, "Latched:  %s\n", listOrNone(st.Latched))
	fmt.Fprintf(&b, "Shift:    %s\n", onOff(st.ShiftActive))
	fmt.Fprintf(&b, "CapsLock: %s\n", onOff(st.CapsLock))
	return b.String()
}

func listOrNone(l []string) string {
	if len(l) == 0 {
		return "-"
	}
	return strings.Join(l, " ")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func cmdWatch() error {
	c, err := dial()
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return c.Watch(ctx, func(s busapi.Signal) {
		fmt.Println(formatSignal(s))
	})
}

func formatSignal(s busapi.Signal) string {
	if s.Name == busapi.SignalKeyVisual {
		state := "up"
		if s.Active {
			state = "down"
		}
		return fmt.Sprintf("%s %s %s", s.Name, s.Key, state)
	}
	return fmt.Sprintf("%s %t", s.Name, s.Active)
}

func cmdKeys() {
	fmt.Println("Keys:")
	for _, k := range keys.All() {
		fmt.Printf("  %-12s %-10s %s\n", k.String(), keys.Label(k), keys.ClassOf(k))
	}
	fmt.Println()
	fmt.Println("Layout:")
	for _, row := range keys.DefaultLayout {
		labels := make([]string, len(row))
		for i, k := range row {
			labels[i] = keys.DisplayLabel(k, false)
		}
		fmt.Printf("  %s\n", strings.Join(labels, " "))
	}
}

func cmdConfig() error {
	cfg := loadConfig()
	data, err := config.Encode(cfg, "."+*format)
	if err != nil {
		return err
	}
	os.Stdout.Write(data)
	for _, w := range config.Check(cfg).Warnings() {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w.Error())
	}
	return nil
}
