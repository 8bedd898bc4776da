package examples

import (
	"context"
	"sync"
	"testing"

	"github.com/ograsdijk/pyrpl/pkg/bus"
	"github.com/ograsdijk/pyrpl/pkg/curve"
	"github.com/ograsdijk/pyrpl/pkg/model"
	"github.com/ograsdijk/pyrpl/pkg/register"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedPitaya(t *testing.T, cfg RedPitayaConfig) (*RedPitaya, *bus.Memory) {
	t.Helper()
	mem := bus.NewMemory()
	cfg.Device.Client = mem
	rp, err := NewRedPitaya(cfg)
	require.NoError(t, err)
	return rp, mem
}

func TestNewRedPitaya(t *testing.T) {
	rp, _ := newTestRedPitaya(t, RedPitayaConfig{})

	var names []string
	for _, m := range rp.Device().Modules() {
		names = append(names, m.Name())
	}
	assert.Equal(t, []string{"pid0", "pid1", "pid2", "asg0", "asg1", "sweep"}, names)
	assert.Equal(t, "redpitaya", rp.Device().Name())

	_, err := NewRedPitaya(RedPitayaConfig{})
	assert.ErrorIs(t, err, model.ErrNoBus)
}

func TestPIDRegisters(t *testing.T) {
	rp, mem := newTestRedPitaya(t, RedPitayaConfig{PIDs: 2})
	pid := rp.PIDs[1]
	base := uint32(DSPBase + DSPStride)

	require.NoError(t, pid.Setup(map[string]any{
		"input":       "in2",
		"setpoint":    0.5,
		"p":           -1.5,
		"max_voltage": 0.9,
	}))

	assert.Equal(t, uint32(1), mem.Peek(base))
	assert.Equal(t, uint32(0x1000), mem.Peek(base+0x104))
	assert.Equal(t, uint32(0xFFE800), mem.Peek(base+0x108), "-1.5 * 4096 in 24 bits")

	p, err := pid.Get("p")
	require.NoError(t, err)
	assert.Equal(t, -1.5, p)

	assert.ErrorIs(t, pid.Setup(map[string]any{"setpoint": 2.0}), model.ErrOutOfRange)
	assert.ErrorIs(t, pid.Set("input", "out9"), model.ErrInvalidOption)
}

func TestPIDSetupChecksLimits(t *testing.T) {
	rp, _ := newTestRedPitaya(t, RedPitayaConfig{PIDs: 1})

	err := rp.PIDs[0].Setup(map[string]any{"max_voltage": -0.5, "min_voltage": 0.5})
	assert.ErrorContains(t, err, "above max_voltage")
}

func TestPIDSetupResetsIntegrator(t *testing.T) {
	rp, mem := newTestRedPitaya(t, RedPitayaConfig{PIDs: 1})
	require.NoError(t, mem.Writes(DSPBase+0x100, []uint32{0x800}))

	require.NoError(t, rp.PIDs[0].Setup(map[string]any{"i": 0.0}))
	assert.Equal(t, uint32(0), mem.Peek(DSPBase+0x100))

	require.NoError(t, mem.Writes(DSPBase+0x100, []uint32{0x800}))
	require.NoError(t, rp.PIDs[0].Setup(map[string]any{"i": 1.0}))
	assert.Equal(t, uint32(0x800), mem.Peek(DSPBase+0x100), "integrator kept with integral action")

	require.NoError(t, rp.PIDs[0].ResetIntegrator())
	assert.Equal(t, uint32(0), mem.Peek(DSPBase+0x100))
}

func TestASGFrequencyUsesCorrection(t *testing.T) {
	const corr = 1.0001
	rp, mem := newTestRedPitaya(t, RedPitayaConfig{ASGs: 1, Device: model.DeviceConfig{FrequencyCorrection: corr}})
	asg := rp.ASGs[0]

	require.NoError(t, asg.Setup(map[string]any{"frequency": 1e6}))
	assert.Equal(t, uint32(FrequencyStep(1e6, corr)), mem.Peek(ASGBase+asgStep))
	assert.NotEqual(t, FrequencyStep(1e6, 1), FrequencyStep(1e6, corr))

	// A direct write runs the callback, which rewrites the step.
	require.NoError(t, asg.Set("frequency", 2e6))
	step, err := asg.Step()
	require.NoError(t, err)
	assert.Equal(t, FrequencyStep(2e6, corr), step)
	assert.InDelta(t, 2e6, StepFrequency(step, corr), 0.2)
}

func TestASGSharedLevelRegister(t *testing.T) {
	rp, mem := newTestRedPitaya(t, RedPitayaConfig{ASGs: 2})
	asg := rp.ASGs[1]

	require.NoError(t, asg.Setup(map[string]any{"amplitude": 0.5, "offset": -0.25}))
	assert.Equal(t, uint32(0x10003800), mem.Peek(ASGBase+ASGStride+asgLevel))

	require.NoError(t, asg.Set("offset", 0.0))
	assert.Equal(t, uint32(0x10000000), mem.Peek(ASGBase+ASGStride+asgLevel))
}

func TestFrequencyStep(t *testing.T) {
	assert.Equal(t, uint64(1)<<28, FrequencyStep(ClockRate/4, 1))
	assert.Equal(t, ClockRate/4, StepFrequency(1<<28, 1))
	assert.Equal(t, uint64(0), FrequencyStep(0, 1))
}

func TestFrequencies(t *testing.T) {
	assert.Equal(t, []float64{1, 2, 3}, frequencies(1, 3, 3, false))

	spaced := frequencies(1, 100, 3, true)
	require.Len(t, spaced, 3)
	assert.InDelta(t, 1, spaced[0], 1e-12)
	assert.InDelta(t, 10, spaced[1], 1e-9)
	assert.Equal(t, 100.0, spaced[2])
}

func TestSweepRun(t *testing.T) {
	store := curve.NewMemoryStore()

	var (
		mu     sync.Mutex
		owners []string
		rp     *RedPitaya
	)
	measure := func(_ context.Context, input string, f float64) (float64, error) {
		mu.Lock()
		defer mu.Unlock()
		owners = append(owners, rp.ASGs[0].Owner())
		return f / 1e3, nil
	}
	rp, _ = newTestRedPitaya(t, RedPitayaConfig{
		Device:  model.DeviceConfig{Curves: store},
		Measure: measure,
	})

	asg := rp.ASGs[0]
	require.NoError(t, asg.Set("frequency", 5e3))

	sweep := rp.Sweep
	require.NoError(t, sweep.Setup(map[string]any{"start": 1e3, "stop": 3e3, "points": 3}))

	h, err := sweep.Run(context.Background())
	require.NoError(t, err)

	c, err := store.Load(h.ID)
	require.NoError(t, err)
	assert.Equal(t, []float64{1e3, 2e3, 3e3}, c.X)
	assert.Equal(t, []float64{1, 2, 3}, c.Y)
	assert.Equal(t, "asg0", c.Attributes["asg"])
	assert.Equal(t, "sweep", c.Attributes["module"])
	assert.Equal(t, int64(3), c.Attributes["points"])

	assert.Equal(t, []string{"sweep", "sweep", "sweep"}, owners)

	// The generator is back in the pool with its persisted settings.
	assert.Equal(t, "", asg.Owner())
	f, err := asg.Get("frequency")
	require.NoError(t, err)
	assert.Equal(t, 5e3, f)
	step, err := asg.Step()
	require.NoError(t, err)
	assert.Equal(t, FrequencyStep(5e3, 1), step)
}

func TestSweepNeedsFreeGenerator(t *testing.T) {
	rp, _ := newTestRedPitaya(t, RedPitayaConfig{Device: model.DeviceConfig{Curves: curve.NewMemoryStore()}})

	for _, asg := range rp.ASGs {
		asg.Acquire("lockbox")
	}
	_, err := rp.Sweep.Run(context.Background())
	assert.ErrorIs(t, err, model.ErrNoFreeModule)
}

func TestSweepCanceled(t *testing.T) {
	rp, _ := newTestRedPitaya(t, RedPitayaConfig{Device: model.DeviceConfig{Curves: curve.NewMemoryStore()}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rp.Sweep.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "", rp.ASGs[0].Owner(), "lease released on error")
}

func TestSweepSamplerMeasurement(t *testing.T) {
	store := curve.NewMemoryStore()
	rp, mem := newTestRedPitaya(t, RedPitayaConfig{ASGs: 1, Device: model.DeviceConfig{Curves: store}})

	// 0x3000 is -4096 in 14 bits.
	require.NoError(t, mem.Writes(SamplerBase+samplerIn2, []uint32{0x3000}))

	require.NoError(t, rp.Sweep.Setup(map[string]any{"points": 2, "input": "in2"}))
	h, err := rp.Sweep.Run(context.Background())
	require.NoError(t, err)

	c, err := store.Load(h.ID)
	require.NoError(t, err)
	assert.Equal(t, []float64{-0.5, -0.5}, c.Y)
	assert.Equal(t, "in2", c.Attributes["input"])
}

func TestSetSamplerInput(t *testing.T) {
	mem := bus.NewMemory()
	bank := register.NewBank(mem, SamplerBase)

	require.NoError(t, SetSamplerInput(bank, "in1", 0.25))
	assert.Equal(t, uint32(0x800), mem.Peek(SamplerBase+samplerIn1))
	require.NoError(t, SetSamplerInput(bank, "in2", -0.5))
	assert.Equal(t, uint32(0x3000), mem.Peek(SamplerBase+samplerIn2))

	v, err := SamplerMeasure(bank)(context.Background(), "in2", 0)
	require.NoError(t, err)
	assert.Equal(t, -0.5, v)

	assert.ErrorIs(t, SetSamplerInput(bank, "in3", 0), model.ErrInvalidOption)
	assert.ErrorIs(t, SetSamplerInput(bank, "in1", 1.0), model.ErrOutOfRange)
}

func TestSweepSetupValidation(t *testing.T) {
	rp, _ := newTestRedPitaya(t, RedPitayaConfig{})

	assert.ErrorContains(t, rp.Sweep.Setup(map[string]any{"start": 2e3, "stop": 1e3}), "below start")
	assert.ErrorContains(t, rp.Sweep.Setup(map[string]any{"start": 0.0, "stop": 1e3, "logscale": true}), "positive start")
}
