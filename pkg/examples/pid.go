package examples

import (
	"fmt"

	"github.com/ograsdijk/pyrpl/pkg/model"
	"github.com/ograsdijk/pyrpl/pkg/register"
)

// DSP register map.
const (
	// DSPBase is the address of the first DSP module.
	DSPBase = 0x40300000

	// DSPStride is the address distance between DSP modules.
	DSPStride = 0x10000
)

// Voltage scale of 14-bit signals: full scale is +-1 V.
const voltNorm = 1 << 13

// PIDInputs are the signals a PID can lock to.
var PIDInputs = []any{"in1", "in2", "asg0", "asg1", "pid0", "pid1", "pid2", "off"}

// OutputRoutes are the analog outputs a module can drive directly.
var OutputRoutes = []any{"off", "out1", "out2", "both"}

var voltField = register.Field{Width: 14, Signed: true}

// PIDType is the module type of the FPGA PID controllers.
var PIDType = model.MustRegisterType(newPIDType())

func newPIDType() *model.ModuleType {
	t := model.NewModuleType("pid", nil)

	t.MustRegister("input", &model.Descriptor{
		Doc: "input signal", Type: model.DataTypeEnum, Options: PIDInputs,
		Register: &model.RegisterBinding{Offset: 0x0, Field: register.Field{Width: 3}},
	})
	t.MustRegister("output_direct", &model.Descriptor{
		Doc: "analog output the controller drives", Type: model.DataTypeEnum, Options: OutputRoutes,
		Register: &model.RegisterBinding{Offset: 0x4, Field: register.Field{Width: 2}},
	})
	t.MustRegister("ival", &model.Descriptor{
		Doc: "_integrator value [V]", Type: model.DataTypeFloat, Min: -1.0, Max: 1.0 - 1.0/voltNorm,
		Register: &model.RegisterBinding{Offset: 0x100, Field: voltField, Norm: voltNorm},
	})
	t.MustRegister("setpoint", &model.Descriptor{
		Doc: "setpoint [V]", Type: model.DataTypeFloat, Min: -1.0, Max: 1.0 - 1.0/voltNorm,
		Register: &model.RegisterBinding{Offset: 0x104, Field: voltField, Norm: voltNorm},
	})
	t.MustRegister("p", &model.Descriptor{
		Doc: "proportional gain", Type: model.DataTypeFloat, Min: -2048.0, Max: 2047.0,
		Register: &model.RegisterBinding{Offset: 0x108, Field: register.Field{Width: 24, Signed: true}, Norm: 1 << 12},
	})
	t.MustRegister("i", &model.Descriptor{
		Doc: "integral gain", Type: model.DataTypeFloat, Min: -32.0, Max: 31.0,
		Register: &model.RegisterBinding{Offset: 0x10C, Field: register.Field{Width: 24, Signed: true}, Norm: 1 << 18},
	})
	t.MustRegister("max_voltage", &model.Descriptor{
		Doc: "upper output limit [V]", Type: model.DataTypeFloat, Min: -1.0, Max: 1.0 - 1.0/voltNorm,
		Register: &model.RegisterBinding{Offset: 0x124, Field: voltField, Norm: voltNorm},
	})
	t.MustRegister("min_voltage", &model.Descriptor{
		Doc: "lower output limit [V]", Type: model.DataTypeFloat, Min: -1.0, Max: 1.0 - 1.0/voltNorm,
		Register: &model.RegisterBinding{Offset: 0x128, Field: voltField, Norm: voltNorm},
	})

	t.MustSetSetupAttributes("input", "output_direct", "setpoint", "p", "i", "max_voltage", "min_voltage")
	return t
}

// PID is an FPGA PID controller.
type PID struct {
	*model.Module
}

// NewPID adds PID controller number index to d.
func NewPID(d *model.Device, index int) (*PID, error) {
	bank, err := d.Bank(DSPBase + uint32(index)*DSPStride)
	if err != nil {
		return nil, err
	}
	m, err := d.NewModule(model.Config{
		Type:  PIDType,
		Name:  fmt.Sprintf("pid%d", index),
		Bank:  bank,
		Hooks: model.Hooks{Setup: setupPID},
	})
	if err != nil {
		return nil, err
	}
	return &PID{Module: m}, nil
}

// setupPID checks the output limits and resets the integrator when the
// controller has no integral action.
func setupPID(a *model.Attrs) error {
	lo, err := a.Float("min_voltage")
	if err != nil {
		return err
	}
	hi, err := a.Float("max_voltage")
	if err != nil {
		return err
	}
	if lo > hi {
		return fmt.Errorf("min_voltage %g above max_voltage %g", lo, hi)
	}

	i, err := a.Float("i")
	if err != nil {
		return err
	}
	if i == 0 {
		return a.Set("ival", 0.0)
	}
	return nil
}

// ResetIntegrator sets the integrator value to zero.
func (p *PID) ResetIntegrator() error {
	return p.Set("ival", 0.0)
}
