package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"vboard/internal/busapi"
	"vboard/internal/config"
	"vboard/internal/contact"
	"vboard/internal/feedback"
	"vboard/internal/health"
	"vboard/internal/metrics"
	"vboard/internal/sched"
	"vboard/internal/sink"
)

// daemon owns the engine and everything it runs on. The tracker is only
// touched on the loop.
type daemon struct {
	loop     *sched.Loop
	dev      sink.Device
	injector *sink.Injector
	obs      feedback.Observer
	svc      *busapi.Service
	tracker  *contact.Tracker
	metrics  *metrics.DaemonMetrics
	health   *health.Checker
	logger   *slog.Logger
}

func newDaemon(cfg *config.Config, dev sink.Device, obs feedback.Observer, logger *slog.Logger) *daemon {
	m := metrics.NewDaemonMetrics(nil)
	d := &daemon{
		loop:    sched.NewLoop(0, logger.With("component", "loop")),
		dev:     m.Device(dev),
		obs:     feedback.Multi{feedback.OrNop(obs), m.Observer()},
		metrics: m,
		health:  health.NewChecker(),
		logger:  logger,
	}
	d.injector = sink.NewInjector(d.dev)
	d.tracker = d.newTracker(cfg)
	d.svc = busapi.NewService(d.loop, d.tracker, logger.With("component", "dbus"))
	d.svc.OnCall(m.RecordCall)

	d.health.RegisterFunc("loop", true, func(ctx context.Context) error {
		return d.loop.Do(ctx, func() error { return nil })
	})
	d.health.RegisterFunc("device", true, func(ctx context.Context) error {
		return d.loop.Do(ctx, d.dev.Sync)
	})
	return d
}

func (d *daemon) newTracker(cfg *config.Config) *contact.Tracker {
	return contact.New(d.loop, d.injector, d.obs, cfg.EngineOptions(), d.logger.With("component", "tracker"))
}

// run drives the loop until ctx is done.
func (d *daemon) run(ctx context.Context) {
	d.loop.Run(ctx)
}

// applyConfig replaces the engine with one built from cfg. The old engine is
// reset first so no key stays down across the swap.
func (d *daemon) applyConfig(ctx context.Context, cfg *config.Config) error {
	d.metrics.RecordReload(nil)
	return d.loop.Do(ctx, func() error {
		err := errors.Join(d.tracker.Reset(), d.injector.ReleaseAll())
		d.tracker = d.newTracker(cfg)
		d.svc.SetEngine(d.tracker)
		d.logger.Info("engine rebuilt from configuration",
			"double_shift_timeout_ms", cfg.Input.DoubleShiftTimeoutMs,
			"shortcut", cfg.Shortcut().String(),
			"long_press_ms", cfg.Input.SpaceLongPressMs)
		return err
	})
}

// shutdown resets the engine, releases every key and closes the device,
// then stops the loop.
func (d *daemon) shutdown(ctx context.Context) error {
	d.health.SetReady(false)
	err := d.loop.Do(ctx, func() error {
		return errors.Join(d.tracker.Close(), d.injector.Close())
	})
	d.loop.Stop()
	<-d.loop.Done()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
