// vboardd is the virtual keyboard daemon.
//
// It owns a uinput keyboard device and the keyboard core. Front ends send
// hit-tested contacts over the D-Bus session bus (org.vboard.Keyboard) and
// receive visual feedback as signals on the same object.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/godbus/dbus/v5"

	"vboard/internal/busapi"
	"vboard/internal/config"
	"vboard/internal/feedback"
	"vboard/internal/keys"
	"vboard/internal/logging"
	"vboard/internal/sink"
)

const shutdownTimeout = 3 * time.Second

var (
	configPath = flag.String("config", "", "path to config file")
	dryRun     = flag.Bool("dry-run", false, "log key events instead of injecting them")
	logLevel   = flag.String("log-level", "", "log level (debug, info, warn, error)")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "vboardd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	path := *configPath
	if path == "" {
		if found := config.FindConfigFile(); found != "" {
			path = found
		}
	}
	loader := config.NewLoader(path)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	defer loader.Close()

	if *dryRun {
		cfg.Device.DryRun = true
	}

	logCfg := cfg.LoggingOptions()
	if *logLevel != "" {
		level, err := logging.ParseLevel(*logLevel)
		if err != nil {
			return err
		}
		logCfg.Level = level
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logger.Close()
	logging.SetDefault(logger)
	log := logger.Logger

	for _, w := range config.Check(cfg).Warnings() {
		log.Warn("config warning", "field", w.Field, "message", w.Message)
	}

	dev, err := openDevice(cfg, log)
	if err != nil {
		return err
	}

	var (
		conn *dbus.Conn
		obs  feedback.Observer = feedback.Nop{}
	)
	if cfg.DBus.Enabled {
		conn, err = dbus.ConnectSessionBus()
		if err != nil {
			dev.Close()
			return fmt.Errorf("connect session bus: %w", err)
		}
		defer conn.Close()
		obs = busapi.NewSignals(conn, dbus.ObjectPath(cfg.DBus.ObjectPath), logger.WithComponent("signals"))
	}

	d := newDaemon(cfg, dev, obs, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.run(ctx)

	if conn != nil {
		if err := d.svc.Export(conn, cfg.DBus.BusName, dbus.ObjectPath(cfg.DBus.ObjectPath)); err != nil {
			_ = d.shutdown(context.Background())
			return err
		}
		d.health.RegisterFunc("dbus", false, func(context.Context) error {
			if !conn.Connected() {
				return errors.New("session bus connection lost")
			}
			return nil
		})
	} else {
		log.Warn("dbus disabled, no input source attached")
	}

	loader.OnChange(func(newCfg *config.Config) {
		if err := d.applyConfig(ctx, newCfg); err != nil {
			log.Warn("releasing keys before reload failed", "error", err)
		}
	})
	if err := loader.Watch(); err != nil {
		log.Warn("config hot reload unavailable", "path", loader.Path(), "error", err)
	} else {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case err := <-loader.Errors():
					d.metrics.RecordReload(err)
					log.Warn("config reload rejected", "error", err)
				}
			}
		}()
	}

	if cfg.Status.Enabled {
		if err := d.serveStatus(ctx, cfg.Status.Listen); err != nil {
			log.Warn("status endpoint unavailable", "error", err)
		}
	}
	d.health.SetReady(true)

	log.Info("vboardd started",
		"device", cfg.Device.Path,
		"dry_run", cfg.Device.DryRun,
		"config", loader.Path())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigChan {
		if sig == syscall.SIGHUP {
			if err := loader.Reload(); err != nil {
				d.metrics.RecordReload(err)
				log.Warn("config reload rejected", "error", err)
			}
			continue
		}
		log.Info("shutting down", "signal", sig.String())
		break
	}
	signal.Stop(sigChan)

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := d.shutdown(shutdownCtx); err != nil {
		log.Error("shutdown incomplete", "error", err)
	}
	return nil
}

func openDevice(cfg *config.Config, log *slog.Logger) (sink.Device, error) {
	if cfg.Device.DryRun {
		log.Info("dry run, key events are logged only")
		return sink.NewRecorder(log.With("component", "dry-run")), nil
	}
	dev, err := sink.OpenUinput(cfg.Device.Path, cfg.Device.Name, keys.All())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device.Path, err)
	}
	log.Info("uinput device created", "name", dev.Name())
	return dev, nil
}
