package loop

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/itohio/golarder/pkg/clock"
	"github.com/itohio/golarder/pkg/config"
	"github.com/itohio/golarder/pkg/logging"
	"github.com/itohio/golarder/pkg/record"
	"github.com/itohio/golarder/pkg/uploader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/sheets/v4"
)

type fakeScale struct {
	mu    sync.Mutex
	units float64
	err   error
	calls []string
}

func (s *fakeScale) record(call string) {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
}

func (s *fakeScale) Units(int) (float64, error) {
	s.record("units")
	return s.units, s.err
}

func (s *fakeScale) PowerDown() error { s.record("down"); return nil }
func (s *fakeScale) PowerUp() error   { s.record("up"); return nil }

type fakeTrigger struct {
	active bool
	err    error
}

func (t *fakeTrigger) Active(float64) (bool, error) { return t.active, t.err }

type fakeService struct{ ready bool }

func (s *fakeService) Ready() bool { return s.ready }

type fakeDispatcher struct {
	jobs []uploader.Job
	busy bool
	err  error
}

func (d *fakeDispatcher) Dispatch(job uploader.Job) error {
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

func (d *fakeDispatcher) Busy() bool { return d.busy }

type fakeClock struct {
	t   time.Time
	err error
}

func (c *fakeClock) Now(context.Context) (time.Time, error) { return c.t, c.err }

type fakeLED struct {
	mu     sync.Mutex
	states []bool
}

func (l *fakeLED) SetLED(on bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, on)
	return nil
}

func (l *fakeLED) last() (bool, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.states) == 0 {
		return false, false
	}
	return l.states[len(l.states)-1], true
}

type fixedEstimator float64

func (f fixedEstimator) Estimate(float64) float64 { return float64(f) }

type harness struct {
	scale      *fakeScale
	trigger    *fakeTrigger
	service    *fakeService
	dispatcher *fakeDispatcher
	clock      *fakeClock
	led        *fakeLED
	logger     *logging.Recorder
	c          *Controller
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.Sheet.SpreadsheetID = "sheet-id"

	h := &harness{
		scale:      &fakeScale{units: 100.5},
		trigger:    &fakeTrigger{active: true},
		service:    &fakeService{ready: true},
		dispatcher: &fakeDispatcher{},
		clock:      &fakeClock{t: time.Unix(1700000000, 0)},
		led:        &fakeLED{},
		logger:     &logging.Recorder{},
	}
	h.c = New(cfg, Deps{
		Scale:      h.scale,
		Trigger:    h.trigger,
		Service:    h.service,
		Dispatcher: h.dispatcher,
		Clock:      h.clock,
		Builder:    record.NewBuilder(cfg.Record, time.UTC, fixedEstimator(142)),
		LED:        h.led,
	}, h.logger)
	return h
}

func (h *harness) hasError(substr string) bool {
	for _, msg := range h.logger.Errors() {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

func TestStep_Upload(t *testing.T) {
	h := newHarness(t)

	outcome := h.c.Step(context.Background(), 40*time.Second)
	assert.Equal(t, Dispatched, outcome)
	assert.Equal(t, 40*time.Second, h.c.LastUpload())

	require.Len(t, h.dispatcher.jobs, 1)
	job := h.dispatcher.jobs[0]
	assert.Equal(t, "sheet-id", job.SpreadsheetID)
	assert.Equal(t, "Sheet1!A1", job.Range)
	assert.Equal(t, "COLUMNS", job.Payload.MajorDimension)

	want := []interface{}{"14/11/23", "22:13:20", "Bag of apples", "Fruit, Compostable", 100.5, "bakery", "142.00 fake data"}
	require.Len(t, job.Payload.Values, record.Columns)
	for i, col := range job.Payload.Values {
		require.Len(t, col, 1)
		assert.Equal(t, want[i], col[0], "column %d", i)
	}

	on, ok := h.led.last()
	assert.True(t, ok)
	assert.True(t, on)
}

func TestStep_NoUpload(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(h *harness)
		now     time.Duration
		outcome Outcome
	}{
		{
			name:    "trigger inactive",
			setup:   func(h *harness) { h.trigger.active = false },
			now:     40 * time.Second,
			outcome: Idle,
		},
		{
			name:    "not ready",
			setup:   func(h *harness) { h.service.ready = false },
			now:     time.Hour,
			outcome: NotReady,
		},
		{
			name:    "upload in flight",
			setup:   func(h *harness) { h.dispatcher.busy = true },
			now:     time.Hour,
			outcome: Busy,
		},
		{
			name:    "interval not elapsed",
			setup:   func(h *harness) {},
			now:     10 * time.Second,
			outcome: TooSoon,
		},
		{
			name:    "interval exactly elapsed",
			setup:   func(h *harness) {},
			now:     30 * time.Second,
			outcome: TooSoon,
		},
		{
			name:    "weight read failed",
			setup:   func(h *harness) { h.scale.err = errors.New("timeout") },
			now:     time.Hour,
			outcome: SensorError,
		},
		{
			name:    "trigger read failed",
			setup:   func(h *harness) { h.trigger.err = errors.New("device error: timeout") },
			now:     time.Hour,
			outcome: SensorError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.setup(h)

			assert.Equal(t, tt.outcome, h.c.Step(context.Background(), tt.now))
			assert.Empty(t, h.dispatcher.jobs)
			assert.Equal(t, time.Duration(0), h.c.LastUpload())
		})
	}
}

func TestStep_TimeFailure(t *testing.T) {
	h := newHarness(t)
	h.clock.err = clock.ErrTimeUnavailable

	assert.Equal(t, NoTime, h.c.Step(context.Background(), 40*time.Second))
	assert.Empty(t, h.dispatcher.jobs)
	assert.Equal(t, 40*time.Second, h.c.LastUpload())
	assert.True(t, h.hasError("Failed to obtain time"))
}

func TestStep_DispatchRejected(t *testing.T) {
	h := newHarness(t)
	h.dispatcher.err = uploader.ErrBusy

	assert.Equal(t, Rejected, h.c.Step(context.Background(), 40*time.Second))
	assert.Equal(t, 40*time.Second, h.c.LastUpload())
	assert.True(t, h.hasError("Failed to queue upload"))
}

func TestStep_MinInterval(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.Equal(t, Dispatched, h.c.Step(ctx, 40*time.Second))
	assert.Equal(t, TooSoon, h.c.Step(ctx, 60*time.Second))
	assert.Equal(t, TooSoon, h.c.Step(ctx, 70*time.Second))
	assert.Equal(t, Dispatched, h.c.Step(ctx, 71*time.Second))

	assert.Len(t, h.dispatcher.jobs, 2)
	assert.Equal(t, 71*time.Second, h.c.LastUpload())
}

func TestStep_SensorPower(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
	}{
		{name: "upload", setup: func(h *harness) {}},
		{name: "idle", setup: func(h *harness) { h.trigger.active = false }},
		{name: "no time", setup: func(h *harness) { h.clock.err = clock.ErrTimeUnavailable }},
		{name: "read error", setup: func(h *harness) { h.scale.err = errors.New("timeout") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.setup(h)

			h.c.Step(context.Background(), 40*time.Second)
			assert.Equal(t, []string{"units", "down", "up"}, h.scale.calls)
		})
	}
}

func TestStep_LogsAverage(t *testing.T) {
	h := newHarness(t)
	h.trigger.active = false

	h.c.Step(context.Background(), 0)

	entries := h.logger.Entries()
	require.NotEmpty(t, entries)
	assert.Equal(t, logging.Entry{Level: "INFO", Message: "average: 100.50000"}, entries[0])
}

func TestHandleResult(t *testing.T) {
	h := newHarness(t)
	job := uploader.NewJob("sheet-id", "Sheet1!A1", record.UploadRecord{})

	h.c.HandleResult(uploader.Result{
		Job:      job,
		Response: &sheets.AppendValuesResponse{SpreadsheetId: "sheet-id", TableRange: "Sheet1!A1:G3"},
	})
	on, ok := h.led.last()
	require.True(t, ok)
	assert.False(t, on)
	assert.Empty(t, h.logger.Errors())

	var appended bool
	for _, e := range h.logger.Entries() {
		if strings.HasPrefix(e.Message, "Appended row "+job.ID.String()) {
			appended = true
			assert.Contains(t, e.Message, `"tableRange":"Sheet1!A1:G3"`)
		}
	}
	assert.True(t, appended)

	h.c.HandleResult(uploader.Result{Job: job, Err: errors.New("connection reset")})
	assert.True(t, h.hasError("connection reset"))
}

func TestHandleResult_EmptyResponse(t *testing.T) {
	h := newHarness(t)
	job := uploader.NewJob("sheet-id", "Sheet1!A1", record.UploadRecord{})

	assert.NotPanics(t, func() {
		h.c.HandleResult(uploader.Result{Job: job})
	})
	assert.Empty(t, h.logger.Errors())

	var appended bool
	for _, e := range h.logger.Entries() {
		if strings.HasPrefix(e.Message, "Appended row "+job.ID.String()) {
			appended = true
			assert.True(t, strings.HasSuffix(e.Message, ": {}"), e.Message)
		}
	}
	assert.True(t, appended)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "dispatched", Dispatched.String())
	assert.Equal(t, "not ready", NotReady.String())
	assert.Equal(t, "unknown", Outcome(99).String())
}

type countingAppender struct {
	mu    sync.Mutex
	calls int
}

func (a *countingAppender) Append(ctx context.Context, spreadsheetID, rangeSpec string, vr *sheets.ValueRange) (*sheets.AppendValuesResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return &sheets.AppendValuesResponse{SpreadsheetId: spreadsheetID}, nil
}

func (a *countingAppender) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// TestController_Run drives the loop against a real upload worker and checks
// that it stops on cancel.
func TestController_Run(t *testing.T) {
	cfg := config.Default()
	cfg.Loop.Period = 5 * time.Millisecond
	cfg.Loop.MinUploadInterval = 0

	app := &countingAppender{}
	logger := &logging.Recorder{}
	worker := uploader.New(app, logger)
	led := &fakeLED{}

	c := New(cfg, Deps{
		Scale:      &fakeScale{units: 100},
		Trigger:    WeightTrigger{Threshold: 50},
		Service:    &fakeService{ready: true},
		Dispatcher: worker,
		Clock:      &fakeClock{t: time.Unix(1700000000, 0)},
		Builder:    record.NewBuilder(cfg.Record, nil, nil),
		LED:        led,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, worker.Results()) }()

	assert.Eventually(t, func() bool { return app.Calls() >= 2 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	on, ok := led.last()
	require.True(t, ok)
	assert.False(t, on, "LED is off after shutdown")
	assert.Empty(t, logger.Errors())
}
