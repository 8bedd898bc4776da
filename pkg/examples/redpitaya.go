package examples

import (
	"fmt"

	"github.com/ograsdijk/pyrpl/pkg/model"
)

// RedPitayaConfig configures a RedPitaya.
type RedPitayaConfig struct {
	// Device configures the underlying device. Device.Client is required.
	Device model.DeviceConfig

	// PIDs and ASGs are the number of controllers and generators
	// (defaults 3 and 2).
	PIDs int
	ASGs int

	// Measure overrides the sweep's default sampler measurement.
	Measure MeasureFunc
}

// RedPitaya is a device with the standard set of modules.
type RedPitaya struct {
	device *model.Device

	PIDs  []*PID
	ASGs  []*ASG
	Sweep *Sweep
}

// NewRedPitaya builds the device and all its modules. Persisted settings
// are loaded as each module is constructed.
func NewRedPitaya(cfg RedPitayaConfig) (*RedPitaya, error) {
	if cfg.Device.Client == nil {
		return nil, fmt.Errorf("%w: a register bus is required", model.ErrNoBus)
	}
	if cfg.Device.Name == "" {
		cfg.Device.Name = "redpitaya"
	}
	if cfg.PIDs == 0 {
		cfg.PIDs = 3
	}
	if cfg.ASGs == 0 {
		cfg.ASGs = 2
	}

	rp := &RedPitaya{device: model.NewDevice(cfg.Device)}

	for i := 0; i < cfg.PIDs; i++ {
		pid, err := NewPID(rp.device, i)
		if err != nil {
			return nil, err
		}
		rp.PIDs = append(rp.PIDs, pid)
	}
	for i := 0; i < cfg.ASGs; i++ {
		asg, err := NewASG(rp.device, i)
		if err != nil {
			return nil, err
		}
		rp.ASGs = append(rp.ASGs, asg)
	}

	sweep, err := NewSweep(rp.device, SweepConfig{Measure: cfg.Measure})
	if err != nil {
		return nil, err
	}
	rp.Sweep = sweep

	return rp, nil
}

// Device returns the underlying device.
func (rp *RedPitaya) Device() *model.Device {
	return rp.device
}
