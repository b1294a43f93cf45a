package clock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/beevik/ntp"
	"github.com/itohio/golarder/pkg/config"
	"github.com/itohio/golarder/pkg/logging"
)

// retryInterval bounds the wait before a failed sync is attempted again.
const retryInterval = 10 * time.Second

// QueryFunc performs a single NTP exchange.
type QueryFunc func(host string, opt ntp.QueryOptions) (*ntp.Response, error)

// NTP keeps the offset between the host clock and an NTP server and applies it
// to the host time. Run refreshes the offset in the background; Now never
// touches the network. When a resync fails the previous offset is kept.
type NTP struct {
	server  string
	timeout time.Duration
	resync  time.Duration
	logger  logging.Logger

	query QueryFunc
	now   func() time.Time

	mu       sync.Mutex
	offset   time.Duration
	synced   bool
	lastSync time.Time
}

// NewNTP creates an NTP clock for cfg.NTPServer.
func NewNTP(cfg config.ClockConfig, logger logging.Logger) *NTP {
	if logger == nil {
		logger = logging.Nop{}
	}
	server := cfg.NTPServer
	if server == "" {
		server = "pool.ntp.org"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	resync := cfg.Resync
	if resync <= 0 {
		resync = time.Hour
	}

	return &NTP{
		server:  server,
		timeout: timeout,
		resync:  resync,
		logger:  logger,
		query:   ntp.QueryWithOptions,
		now:     time.Now,
	}
}

// Sync queries the server and updates the offset. The query runs without the
// lock held so Now is never blocked by the network.
func (c *NTP) Sync(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	resp, err := c.query(c.server, ntp.QueryOptions{Timeout: c.timeout})
	if err != nil {
		return fmt.Errorf("ntp query %s: %w", c.server, err)
	}
	if err := resp.Validate(); err != nil {
		return fmt.Errorf("ntp response from %s: %w", c.server, err)
	}

	c.mu.Lock()
	c.offset = resp.ClockOffset
	c.synced = true
	c.lastSync = c.now()
	c.mu.Unlock()

	c.logger.Debug("ntp %s offset %v rtt %v stratum %d", c.server, resp.ClockOffset, resp.RTT, resp.Stratum)
	return nil
}

// Run syncs immediately and then every resync interval until ctx is cancelled.
// A failed sync is retried sooner.
func (c *NTP) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		next := c.resync
		if err := c.Sync(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			offset, ok := c.Offset()
			if ok {
				c.logger.Error("NTP resync failed, keeping offset %v: %v", offset, err)
			} else {
				c.logger.Error("NTP sync failed: %v", err)
			}
			next = min(c.resync, retryInterval)
		}
		timer.Reset(next)
	}
}

// Offset returns the last measured clock offset and whether one was measured.
func (c *NTP) Offset() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset, c.synced
}

// LastSync returns the host time of the last successful sync.
func (c *NTP) LastSync() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSync
}

// Now returns the host time corrected by the last measured offset, or
// ErrTimeUnavailable if no sync has succeeded yet.
func (c *NTP) Now(ctx context.Context) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.synced {
		return time.Time{}, fmt.Errorf("ntp %s not synchronized yet: %w", c.server, ErrTimeUnavailable)
	}
	return c.now().Add(c.offset), nil
}
