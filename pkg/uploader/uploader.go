// Package uploader runs spreadsheet appends off the sampling goroutine.
package uploader

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/itohio/golarder/pkg/logging"
	"github.com/itohio/golarder/pkg/record"
	"github.com/itohio/golarder/pkg/sheet"
	"google.golang.org/api/sheets/v4"
)

// ErrBusy is returned by Dispatch while a previous job is still uploading.
var ErrBusy = errors.New("upload in progress")

// Job is a single row to append.
type Job struct {
	ID            uuid.UUID
	SpreadsheetID string
	Range         string
	Record        record.UploadRecord
	Payload       *sheets.ValueRange
}

// NewJob wraps rec as a job for rangeSpec of the spreadsheet.
func NewJob(spreadsheetID, rangeSpec string, rec record.UploadRecord) Job {
	return Job{
		ID:            uuid.New(),
		SpreadsheetID: spreadsheetID,
		Range:         rangeSpec,
		Record:        rec,
		Payload:       rec.ValueRange(),
	}
}

// Result reports how a job ended.
type Result struct {
	Job      Job
	Response *sheets.AppendValuesResponse
	Err      error
	Duration time.Duration
}

// Worker uploads one job at a time.
type Worker struct {
	appender sheet.Appender
	logger   logging.Logger

	jobs    chan Job
	results chan Result
	busy    atomic.Bool
}

// New creates a worker sending jobs to appender.
func New(appender sheet.Appender, logger logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Worker{
		appender: appender,
		logger:   logger,
		jobs:     make(chan Job, 1),
		results:  make(chan Result, 1),
	}
}

// Dispatch queues job. It never blocks and fails with ErrBusy while another
// job has not finished.
func (w *Worker) Dispatch(job Job) error {
	if !w.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	w.jobs <- job
	return nil
}

// Busy reports whether a job is queued or uploading.
func (w *Worker) Busy() bool {
	return w.busy.Load()
}

// Results delivers one Result per dispatched job. It is closed when Run returns.
func (w *Worker) Results() <-chan Result {
	return w.results
}

// Run processes jobs until ctx is cancelled. An upload in flight is cancelled with ctx.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.results)

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-w.jobs:
			res := w.upload(ctx, job)
			select {
			case w.results <- res:
			case <-ctx.Done():
				return
			}
			w.busy.Store(false)
		}
	}
}

func (w *Worker) upload(ctx context.Context, job Job) Result {
	w.logger.Debug("uploading job %s to %s", job.ID, job.Range)

	start := time.Now()
	resp, err := w.appender.Append(ctx, job.SpreadsheetID, job.Range, job.Payload)
	return Result{
		Job:      job,
		Response: resp,
		Err:      err,
		Duration: time.Since(start),
	}
}
