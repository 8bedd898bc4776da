package examples

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/ograsdijk/pyrpl/pkg/curve"
	"github.com/ograsdijk/pyrpl/pkg/model"
	"github.com/ograsdijk/pyrpl/pkg/register"
)

// Sampler register map: the current value of each analog input.
const (
	SamplerBase = 0x40100000

	samplerIn1 = 0x154
	samplerIn2 = 0x158
)

// SweepInputs are the signals a sweep can record.
var SweepInputs = []any{"in1", "in2"}

// SweepType is the module type of frequency sweeps.
var SweepType = model.MustRegisterType(newSweepType())

func newSweepType() *model.ModuleType {
	t := model.NewModuleType("sweep", nil)

	t.MustRegister("start", &model.Descriptor{
		Doc: "first frequency [Hz]", Type: model.DataTypeFloat, Default: 1e3, Min: 0.0, Max: ClockRate / 2,
	})
	t.MustRegister("stop", &model.Descriptor{
		Doc: "last frequency [Hz]", Type: model.DataTypeFloat, Default: 1e6, Min: 0.0, Max: ClockRate / 2,
	})
	t.MustRegister("points", &model.Descriptor{
		Doc: "number of frequencies", Type: model.DataTypeInt, Default: 11, Min: 2, Max: 10000,
	})
	t.MustRegister("logscale", &model.Descriptor{
		Doc: "space frequencies logarithmically", Type: model.DataTypeBool, Default: false,
	})
	t.MustRegister("amplitude", &model.Descriptor{
		Doc: "excitation amplitude [V]", Type: model.DataTypeFloat, Default: 0.1, Min: 0.0, Max: 1.0 - 1.0/voltNorm,
	})
	t.MustRegister("input", &model.Descriptor{
		Doc: "recorded signal", Type: model.DataTypeEnum, Options: SweepInputs, Default: "in1",
	})

	t.MustSetSetupAttributes("start", "stop", "points", "logscale", "amplitude", "input")
	return t
}

// MeasureFunc records one sample of input while the excitation runs at
// frequency.
type MeasureFunc func(ctx context.Context, input string, frequency float64) (float64, error)

// SweepConfig configures a Sweep.
type SweepConfig struct {
	// Name defaults to "sweep".
	Name string

	// Generators is the pool the sweep borrows its excitation from.
	// Defaults to all ASGs of the device.
	Generators *model.Pool

	// Measure defaults to reading the sampler registers.
	Measure MeasureFunc
}

// Sweep steps an ASG through a list of frequencies, records an input at
// each one and saves the result as a curve.
type Sweep struct {
	*model.Module

	generators *model.Pool
	measure    MeasureFunc
}

// NewSweep adds a sweep to d.
func NewSweep(d *model.Device, cfg SweepConfig) (*Sweep, error) {
	if cfg.Name == "" {
		cfg.Name = "sweep"
	}
	if cfg.Generators == nil {
		cfg.Generators = d.Pool(ASGType)
	}
	if cfg.Measure == nil {
		bank, err := d.Bank(SamplerBase)
		if err != nil {
			return nil, fmt.Errorf("sweep %s: no measurement: %w", cfg.Name, err)
		}
		cfg.Measure = SamplerMeasure(bank)
	}

	m, err := d.NewModule(model.Config{
		Type:  SweepType,
		Name:  cfg.Name,
		Hooks: model.Hooks{Setup: checkSweep},
	})
	if err != nil {
		return nil, err
	}
	return &Sweep{Module: m, generators: cfg.Generators, measure: cfg.Measure}, nil
}

func checkSweep(a *model.Attrs) error {
	start, err := a.Float("start")
	if err != nil {
		return err
	}
	stop, err := a.Float("stop")
	if err != nil {
		return err
	}
	logscale, err := a.Bool("logscale")
	if err != nil {
		return err
	}
	if stop < start {
		return fmt.Errorf("stop %g below start %g", stop, start)
	}
	if logscale && start <= 0 {
		return fmt.Errorf("logscale needs a positive start, got %g", start)
	}
	return nil
}

// Frequencies returns the frequencies of the next run.
func (s *Sweep) Frequencies() ([]float64, error) {
	settings, err := s.SetupAttributes()
	if err != nil {
		return nil, err
	}
	v := settings.Map()
	return frequencies(v["start"].(float64), v["stop"].(float64), int(v["points"].(int64)), v["logscale"].(bool)), nil
}

func frequencies(start, stop float64, n int, logscale bool) []float64 {
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / float64(n-1)
		if logscale {
			out[i] = start * math.Pow(stop/start, t)
		} else {
			out[i] = start + (stop-start)*t
		}
	}
	out[n-1] = stop
	return out
}

// Run borrows a free ASG, sweeps it and saves the recorded curve. The ASG
// returns to the pool, with its persisted settings, when Run ends.
func (s *Sweep) Run(ctx context.Context) (handle curve.Handle, err error) {
	settings, err := s.SetupAttributes()
	if err != nil {
		return curve.Handle{}, err
	}
	v := settings.Map()
	freqs, err := s.Frequencies()
	if err != nil {
		return curve.Handle{}, err
	}

	lease, err := s.generators.Pop(s.Name())
	if err != nil {
		return curve.Handle{}, fmt.Errorf("sweep %s: %w", s.Name(), err)
	}
	defer func() {
		err = errors.Join(err, lease.Release())
	}()

	asg := lease.Module()
	err = asg.Setup(map[string]any{
		"waveform":       "sin",
		"frequency":      freqs[0],
		"amplitude":      v["amplitude"],
		"offset":         0.0,
		"trigger_source": "immediately",
		"output_direct":  "out1",
	})
	if err != nil {
		return curve.Handle{}, err
	}

	input := v["input"].(string)
	ys := make([]float64, len(freqs))
	for i, f := range freqs {
		if err := ctx.Err(); err != nil {
			return curve.Handle{}, err
		}
		if err := asg.Set("frequency", f); err != nil {
			return curve.Handle{}, err
		}
		if ys[i], err = s.measure(ctx, input, f); err != nil {
			return curve.Handle{}, fmt.Errorf("sweep %s at %g Hz: %w", s.Name(), f, err)
		}
	}

	attrs := settings.Map()
	attrs["asg"] = asg.Name()
	s.Logger().Info("sweep finished", "asg", asg.Name(), "points", len(freqs))
	return s.SaveCurve(freqs, ys, attrs)
}

// SamplerMeasure reads the current input value from the sampler registers.
func SamplerMeasure(bank *register.Bank) MeasureFunc {
	return func(_ context.Context, input string, _ float64) (float64, error) {
		offset := uint32(samplerIn1)
		if input == "in2" {
			offset = samplerIn2
		}
		raw, err := bank.ReadField(offset, voltField)
		if err != nil {
			return 0, err
		}
		return float64(raw) / voltNorm, nil
	}
}

// SetSamplerInput writes volts into the sampler register of input. The
// hardware updates these registers itself; simulators use this to present
// a signal.
func SetSamplerInput(bank *register.Bank, input string, volts float64) error {
	var offset uint32
	switch input {
	case "in1":
		offset = samplerIn1
	case "in2":
		offset = samplerIn2
	default:
		return fmt.Errorf("%w: unknown sampler input %q", model.ErrInvalidOption, input)
	}
	if volts < -1 || volts > 1-1.0/voltNorm {
		return fmt.Errorf("%w: %g V on %s", model.ErrOutOfRange, volts, input)
	}
	return bank.WriteField(offset, voltField, int64(math.Round(volts*voltNorm)))
}
