package examples

import (
	"fmt"
	"math"

	"github.com/ograsdijk/pyrpl/pkg/model"
	"github.com/ograsdijk/pyrpl/pkg/register"
)

// ASG register map.
const (
	ASGBase   = 0x40200000
	ASGStride = 0x20

	asgControl = 0x00
	asgLevel   = 0x04
	asgStep    = 0x10
	asgOutput  = 0x18
)

// Signal generator clock.
const (
	ClockRate = 125e6

	// stepBits is the phase resolution: a full waveform period is
	// 1<<stepBits counts.
	stepBits = 30
)

// Waveforms are the shapes an ASG can generate.
var Waveforms = []any{"sin", "cos", "ramp", "halframp", "square", "dc", "noise"}

// TriggerSources start the ASG output.
var TriggerSources = []any{"off", "immediately", "ext_positive_edge", "ext_negative_edge"}

// ASGType is the module type of the arbitrary signal generators.
var ASGType = model.MustRegisterType(newASGType())

func newASGType() *model.ModuleType {
	t := model.NewModuleType("asg", nil)

	t.MustRegister("waveform", &model.Descriptor{
		Doc: "waveform shape", Type: model.DataTypeEnum, Options: Waveforms, Default: "sin",
	})
	t.MustRegister("frequency", &model.Descriptor{
		Doc: "output frequency [Hz]", Type: model.DataTypeFloat, Default: 0.0, Min: 0.0, Max: ClockRate / 2,
	})
	t.MustRegister("amplitude", &model.Descriptor{
		Doc: "amplitude [V]", Type: model.DataTypeFloat, Min: 0.0, Max: 1.0 - 1.0/voltNorm,
		Register: &model.RegisterBinding{Offset: asgLevel, Field: register.Field{Shift: 16, Width: 14}, Norm: voltNorm, Shared: true},
	})
	t.MustRegister("offset", &model.Descriptor{
		Doc: "offset [V]", Type: model.DataTypeFloat, Min: -1.0, Max: 1.0 - 1.0/voltNorm,
		Register: &model.RegisterBinding{Offset: asgLevel, Field: voltField, Norm: voltNorm, Shared: true},
	})
	t.MustRegister("trigger_source", &model.Descriptor{
		Doc: "trigger source", Type: model.DataTypeEnum, Options: TriggerSources,
		Register: &model.RegisterBinding{Offset: asgControl, Field: register.Field{Width: 3}, Shared: true},
	})
	t.MustRegister("output_direct", &model.Descriptor{
		Doc: "analog output the generator drives", Type: model.DataTypeEnum, Options: OutputRoutes,
		Register: &model.RegisterBinding{Offset: asgOutput, Field: register.Field{Width: 2}},
	})

	t.MustSetSetupAttributes("waveform", "frequency", "amplitude", "offset", "trigger_source", "output_direct")
	t.MustSetCallbackAttributes("frequency", "amplitude", "offset", "output_direct")
	return t
}

// ASG is an arbitrary signal generator channel.
type ASG struct {
	*model.Module
}

// NewASG adds signal generator channel index to d.
func NewASG(d *model.Device, index int) (*ASG, error) {
	bank, err := d.Bank(ASGBase + uint32(index)*ASGStride)
	if err != nil {
		return nil, err
	}
	m, err := d.NewModule(model.Config{
		Type: ASGType,
		Name: fmt.Sprintf("asg%d", index),
		Bank: bank,
		Hooks: model.Hooks{
			Setup:    writeStep,
			Callback: asgCallback,
		},
	})
	if err != nil {
		return nil, err
	}
	return &ASG{Module: m}, nil
}

// asgCallback rewrites the phase step when the frequency changes. The other
// callback attributes are registers and take effect when written.
func asgCallback(a *model.Attrs, name string) error {
	if name == "frequency" {
		return writeStep(a)
	}
	return nil
}

func writeStep(a *model.Attrs) error {
	f, err := a.Float("frequency")
	if err != nil {
		return err
	}
	return a.Bank().WriteUnsigned(asgStep, FrequencyStep(f, a.FrequencyCorrection()), stepBits)
}

// Step returns the phase step currently in the hardware.
func (g *ASG) Step() (uint64, error) {
	return g.Bank().ReadUnsigned(asgStep, stepBits)
}

// FrequencyStep converts a frequency into the phase increment per clock
// cycle. correction scales the nominal clock rate.
func FrequencyStep(frequency, correction float64) uint64 {
	step := math.Round(frequency * float64(uint64(1)<<stepBits) / (ClockRate * correction))
	return uint64(step) & register.Mask(stepBits)
}

// StepFrequency is the inverse of FrequencyStep.
func StepFrequency(step uint64, correction float64) float64 {
	return float64(step) * ClockRate * correction / float64(uint64(1)<<stepBits)
}
