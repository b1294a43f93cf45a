// Package scale talks to load cell front ends and turns raw HX711 counts into weight.
package scale

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/itohio/golarder/pkg/config"
)

// Scale converts raw readings of a Device into calibrated units:
//
//	units = (raw - offset) / factor
type Scale struct {
	dev Device

	mu     sync.RWMutex
	factor float64
	offset float64
}

// New creates a Scale with the calibration from cfg.
func New(dev Device, cfg config.ScaleConfig) *Scale {
	return &Scale{
		dev:    dev,
		factor: cfg.Factor,
		offset: cfg.Offset,
	}
}

// Device returns the underlying device.
func (s *Scale) Device() Device {
	return s.dev
}

// Read returns the average raw reading.
func (s *Scale) Read(samples int) (float64, error) {
	return s.dev.ReadAverage(samples)
}

// Value returns the average raw reading minus the tare offset.
func (s *Scale) Value(samples int) (float64, error) {
	raw, err := s.dev.ReadAverage(samples)
	if err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return raw - s.offset, nil
}

// Units returns the average weight in calibrated units.
func (s *Scale) Units(samples int) (float64, error) {
	v, err := s.Value(samples)
	if err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.factor == 0 {
		return 0, ErrNotCalibrated
	}
	return v / s.factor, nil
}

// Tare takes the current reading as zero.
func (s *Scale) Tare(samples int) error {
	raw, err := s.dev.ReadAverage(samples)
	if err != nil {
		return fmt.Errorf("tare: %w", err)
	}
	s.mu.Lock()
	s.offset = raw
	s.mu.Unlock()
	return nil
}

// Calibrate derives the factor from a known weight placed on a tared scale.
func (s *Scale) Calibrate(samples int, known float64) (float64, error) {
	if known == 0 {
		return 0, fmt.Errorf("known weight must not be zero")
	}
	v, err := s.Value(samples)
	if err != nil {
		return 0, fmt.Errorf("calibrate: %w", err)
	}
	if v == 0 {
		return 0, fmt.Errorf("calibrate: reading equals tare offset, is the weight on the scale?")
	}

	factor := v / known
	s.SetFactor(factor)
	return factor, nil
}

// SetFactor sets the calibration factor.
func (s *Scale) SetFactor(factor float64) {
	s.mu.Lock()
	s.factor = factor
	s.mu.Unlock()
}

// Factor returns the calibration factor.
func (s *Scale) Factor() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.factor
}

// Offset returns the tare offset.
func (s *Scale) Offset() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.offset
}

// PowerDown puts the ADC to sleep.
func (s *Scale) PowerDown() error {
	return s.dev.PowerDown()
}

// PowerUp wakes the ADC.
func (s *Scale) PowerUp() error {
	return s.dev.PowerUp()
}

// Flash blinks the device LED times times, period on and period off.
func Flash(ctx context.Context, dev Device, times int, period time.Duration) error {
	for i := 0; i < times; i++ {
		if err := dev.SetLED(true); err != nil {
			return err
		}
		if err := sleep(ctx, period); err != nil {
			return err
		}
		if err := dev.SetLED(false); err != nil {
			return err
		}
		if err := sleep(ctx, period); err != nil {
			return err
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
