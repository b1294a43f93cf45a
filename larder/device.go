package main

import (
	"fmt"

	"github.com/itohio/golarder/pkg/config"
	"github.com/itohio/golarder/pkg/scale"
)

// newDevice creates the scale backend selected in the configuration.
func newDevice(cfg *config.Config) (scale.Device, error) {
	switch cfg.Device.Type {
	case config.DeviceSerial:
		return scale.NewSerial(cfg.Serial.Port, cfg.Serial.BaudRate, cfg.Serial.Timeout), nil
	case config.DeviceGPIO:
		return scale.NewGPIO(cfg.GPIO), nil
	case config.DeviceMock:
		mockCfg := cfg.Mock
		return scale.NewMock(&mockCfg), nil
	}
	return nil, fmt.Errorf("unknown device type %q", cfg.Device.Type)
}

// connectDevice creates and connects the configured device.
func connectDevice(cfg *config.Config) (scale.Device, error) {
	dev, err := newDevice(cfg)
	if err != nil {
		return nil, err
	}
	if err := dev.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect %s device: %w", cfg.Device.Type, err)
	}
	return dev, nil
}
