package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/itohio/golarder/pkg/clock"
	"github.com/itohio/golarder/pkg/config"
	"github.com/itohio/golarder/pkg/logging"
	"github.com/itohio/golarder/pkg/loop"
	"github.com/itohio/golarder/pkg/record"
	"github.com/itohio/golarder/pkg/scale"
	"github.com/itohio/golarder/pkg/sheet"
	"github.com/itohio/golarder/pkg/uploader"
	"github.com/spf13/cobra"
)

const flashPeriod = 250 * time.Millisecond

func newRunCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sample the scale and upload a row on every trigger",
		Example: `  larder run
  larder run --mock --dry-run -v`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				cfg.Sheet.DryRun = true
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runStation(ctx, cfg, logger)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log rows instead of appending them")
	return cmd
}

// runStation wires the station together and runs it until ctx is cancelled.
func runStation(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	logger.Info("larder %s", version)

	if cfg.Sheet.SpreadsheetID == "" && !cfg.Sheet.DryRun {
		return fmt.Errorf("spreadsheet id is not configured")
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	clk, err := clock.New(cfg.Clock, logger)
	if err != nil {
		return err
	}

	var (
		service  loop.Service
		appender sheet.Appender
		client   *sheet.Client
	)
	if cfg.Sheet.DryRun {
		d := sheet.DryRun{Logger: logger}
		service, appender = d, d
	} else {
		client, err = sheet.New(ctx, cfg.Sheet, logger)
		if err != nil {
			return err
		}
		service, appender = client, client
	}

	dev, err := connectDevice(cfg)
	if err != nil {
		return err
	}
	defer dev.Close()

	if err := scale.Flash(ctx, dev, 1, flashPeriod); err != nil {
		return fmt.Errorf("boot flash: %w", err)
	}

	s := scale.New(dev, cfg.Scale)
	if err := logReadings(logger, "Before setting up the scale", s); err != nil {
		return err
	}
	if cfg.Scale.TareOnStart {
		if err := s.Tare(cfg.Scale.TareSamples); err != nil {
			return err
		}
		logger.Info("Tared at %.1f counts", s.Offset())
		if err := scale.Flash(ctx, dev, 3, flashPeriod); err != nil {
			return fmt.Errorf("tare flash: %w", err)
		}
	}
	if err := logReadings(logger, "After setting up the scale", s); err != nil {
		return err
	}

	trigger, err := loop.NewTrigger(cfg.Trigger, dev)
	if err != nil {
		return err
	}

	worker := uploader.New(appender, logger)
	ctrl := loop.New(cfg, loop.Deps{
		Scale:      s,
		Trigger:    trigger,
		Service:    service,
		Dispatcher: worker,
		Clock:      clk,
		Builder:    record.NewBuilder(cfg.Record, loc, nil),
		LED:        dev,
	}, logger)

	var wg sync.WaitGroup
	if ntpClock, ok := clk.(*clock.NTP); ok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ntpClock.Run(ctx)
		}()
	}
	if client != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client.Run(ctx)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	logger.Info("Station running: %s device, %s trigger, upload every %v at most", cfg.Device.Type, cfg.Trigger.Mode, cfg.Loop.MinUploadInterval)
	err = ctrl.Run(ctx, worker.Results())
	wg.Wait()

	if errors.Is(err, context.Canceled) {
		logger.Info("Shutting down")
		return nil
	}
	return err
}
