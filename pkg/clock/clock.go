// Package clock resolves wall-clock time for uploaded records.
package clock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/itohio/golarder/pkg/config"
	"github.com/itohio/golarder/pkg/logging"
)

// ErrTimeUnavailable is returned when no trustworthy wall-clock time can be obtained.
var ErrTimeUnavailable = errors.New("time unavailable")

// MinValid is the earliest time accepted as synchronized. A clock that reports
// anything before it has not been set since boot.
var MinValid = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

// Source provides the current wall-clock time.
type Source interface {
	Now(ctx context.Context) (time.Time, error)
}

// New creates the Source selected by cfg.Source.
func New(cfg config.ClockConfig, logger logging.Logger) (Source, error) {
	switch cfg.Source {
	case config.ClockNTP, "":
		return NewNTP(cfg, logger), nil
	case config.ClockSystem:
		return NewSystem(), nil
	}
	return nil, fmt.Errorf("unknown clock source %q", cfg.Source)
}

// System trusts the host clock once it has been set.
type System struct {
	now func() time.Time
}

// NewSystem creates a Source backed by time.Now.
func NewSystem() *System {
	return &System{now: time.Now}
}

// Now returns the host time or ErrTimeUnavailable if the clock was never set.
func (s *System) Now(ctx context.Context) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	t := s.now()
	if t.Before(MinValid) {
		return time.Time{}, fmt.Errorf("system clock reads %s: %w", t.UTC().Format(time.RFC3339), ErrTimeUnavailable)
	}
	return t, nil
}

var (
	_ Source = (*System)(nil)
	_ Source = (*NTP)(nil)
)
