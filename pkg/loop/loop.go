// Package loop implements the sample-and-upload cycle of the station.
package loop

import (
	"context"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/itohio/golarder/pkg/clock"
	"github.com/itohio/golarder/pkg/config"
	"github.com/itohio/golarder/pkg/logging"
	"github.com/itohio/golarder/pkg/record"
	"github.com/itohio/golarder/pkg/sheet"
	"github.com/itohio/golarder/pkg/uploader"
)

// Scale provides calibrated weight and controls the ADC power.
type Scale interface {
	Units(samples int) (float64, error)
	PowerDown() error
	PowerUp() error
}

// Service reports whether the spreadsheet client can authenticate.
type Service interface {
	Ready() bool
}

// Dispatcher accepts one upload job at a time.
type Dispatcher interface {
	Dispatch(job uploader.Job) error
	Busy() bool
}

// LED is the status indicator.
type LED interface {
	SetLED(on bool) error
}

// Outcome tells what a single Step did.
type Outcome int

const (
	Idle        Outcome = iota // trigger not active
	NotReady                   // service has no valid token
	Busy                       // previous upload in flight
	TooSoon                    // minimum upload interval not elapsed
	SensorError                // weight or trigger could not be read
	NoTime                     // wall-clock time unavailable
	Dispatched                 // job handed to the uploader
	Rejected                   // uploader refused the job
)

func (o Outcome) String() string {
	switch o {
	case Idle:
		return "idle"
	case NotReady:
		return "not ready"
	case Busy:
		return "busy"
	case TooSoon:
		return "too soon"
	case SensorError:
		return "sensor error"
	case NoTime:
		return "no time"
	case Dispatched:
		return "dispatched"
	case Rejected:
		return "rejected"
	}
	return "unknown"
}

// Deps are the collaborators of a Controller. LED is optional.
type Deps struct {
	Scale      Scale
	Trigger    Trigger
	Service    Service
	Dispatcher Dispatcher
	Clock      clock.Source
	Builder    *record.Builder
	LED        LED
}

// Controller owns the loop state. All methods must be called from one goroutine.
type Controller struct {
	Deps
	logger logging.Logger

	spreadsheetID string
	rangeSpec     string
	samples       int
	period        time.Duration
	minInterval   time.Duration

	lastUpload time.Duration
}

// New creates a controller.
func New(cfg *config.Config, deps Deps, logger logging.Logger) *Controller {
	if logger == nil {
		logger = logging.Nop{}
	}
	samples := cfg.Scale.Samples
	if samples <= 0 {
		samples = 10
	}
	period := cfg.Loop.Period
	if period <= 0 {
		period = time.Second
	}

	return &Controller{
		Deps:          deps,
		logger:        logger,
		spreadsheetID: cfg.Sheet.SpreadsheetID,
		rangeSpec:     cfg.Sheet.Range,
		samples:       samples,
		period:        period,
		minInterval:   cfg.Loop.MinUploadInterval,
	}
}

// LastUpload returns the loop time of the last attempted upload.
func (c *Controller) LastUpload() time.Duration {
	return c.lastUpload
}

// Step runs one iteration at loop time now (time since the loop started).
func (c *Controller) Step(ctx context.Context, now time.Duration) Outcome {
	weight, err := c.Scale.Units(c.samples)
	if pdErr := c.Scale.PowerDown(); pdErr != nil {
		c.logger.Error("Failed to power down scale: %v", pdErr)
	}
	defer func() {
		if err := c.Scale.PowerUp(); err != nil {
			c.logger.Error("Failed to power up scale: %v", err)
		}
	}()

	if err != nil {
		c.logger.Error("Failed to read weight: %v", err)
		return SensorError
	}
	c.logger.Info("average: %.5f", weight)

	active, err := c.Trigger.Active(weight)
	if err != nil {
		c.logger.Error("Failed to read trigger: %v", err)
		return SensorError
	}
	if !active {
		return Idle
	}

	if !c.Service.Ready() {
		c.logger.Debug("trigger ignored: service not ready")
		return NotReady
	}
	if c.Dispatcher.Busy() {
		c.logger.Debug("trigger ignored: upload in progress")
		return Busy
	}
	if elapsed := now - c.lastUpload; elapsed <= c.minInterval {
		c.logger.Debug("trigger ignored: %v since last upload", elapsed)
		return TooSoon
	}

	c.lastUpload = now

	t, err := c.Clock.Now(ctx)
	if err != nil {
		c.logger.Error("Failed to obtain time: %v", err)
		return NoTime
	}

	rec := c.Builder.Build(t, weight)
	job := uploader.NewJob(c.spreadsheetID, c.rangeSpec, rec)
	if err := c.Dispatcher.Dispatch(job); err != nil {
		c.logger.Error("Failed to queue upload %s: %v", job.ID, err)
		return Rejected
	}

	c.setLED(true)
	c.logger.Info("Uploading %s: %s", job.ID, rec)
	return Dispatched
}

// HandleResult logs the outcome of an upload.
func (c *Controller) HandleResult(res uploader.Result) {
	c.setLED(false)

	switch {
	case res.Err != nil:
		c.logger.Error("Failed to append row %s: %s", res.Job.ID, sheet.ErrorReason(res.Err))
	case res.Response == nil:
		c.logger.Info("Appended row %s in %v: {}", res.Job.ID, res.Duration.Round(time.Millisecond))
	default:
		body, err := res.Response.MarshalJSON()
		if err != nil {
			c.logger.Error("Failed to encode response of %s: %v", res.Job.ID, err)
		} else {
			c.logger.Info("Appended row %s in %v: %s", res.Job.ID, res.Duration.Round(time.Millisecond), body)
		}
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	c.logger.Info("Heap in use: %s", humanize.IBytes(ms.HeapInuse))
}

// Run steps the loop every period and handles upload results until ctx is cancelled.
func (c *Controller) Run(ctx context.Context, results <-chan uploader.Result) error {
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()
	defer c.setLED(false)

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			c.HandleResult(res)
		case <-ticker.C:
			results = c.drain(results)
			outcome := c.Step(ctx, time.Since(start))
			c.logger.Debug("step: %s", outcome)
		}
	}
}

// drain handles a result that is already waiting so that a finished upload is
// reported before a new one starts.
func (c *Controller) drain(results <-chan uploader.Result) <-chan uploader.Result {
	select {
	case res, ok := <-results:
		if !ok {
			return nil
		}
		c.HandleResult(res)
	default:
	}
	return results
}

func (c *Controller) setLED(on bool) {
	if c.LED == nil {
		return
	}
	if err := c.LED.SetLED(on); err != nil {
		c.logger.Error("Failed to set LED: %v", err)
	}
}
