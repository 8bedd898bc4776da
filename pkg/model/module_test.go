package model

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ograsdijk/pyrpl/pkg/config"
	"github.com/ograsdijk/pyrpl/pkg/curve"
	"github.com/ograsdijk/pyrpl/pkg/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModuleDefaults(t *testing.T) {
	h := &hookCounter{}
	d := newTestDevice(t, nil)
	m := newTestModule(t, d, newPIDType(), "", h)

	assert.Equal(t, "pid", m.Name(), "name defaults to the type name")
	assert.Equal(t, StateIdle, m.State())
	assert.True(t, m.CallbackActive())
	assert.True(t, m.AutosaveActive())
	assert.Same(t, d, m.Device())
	assert.Equal(t, 1, h.inits)
	assert.Equal(t, 0, h.setupCount(), "construction does not run setup")

	v, err := m.Get("input")
	require.NoError(t, err)
	assert.Equal(t, "in1", v)

	v, err = m.Get("setpoint")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)
}

func TestNewModuleRejectsBadConfig(t *testing.T) {
	d := newTestDevice(t, nil)

	_, err := NewModule(Config{Parent: d})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewModule(Config{Type: newPIDType()})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewModule(Config{Type: newPIDType(), Name: "states", Parent: d})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	typ := NewModuleType("bad", nil)
	typ.MustRegister("x", &Descriptor{Type: DataTypeInt, Default: "nope"})
	_, err = NewModule(Config{Type: typ, Parent: d})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	hw := NewModuleType("hw", nil)
	hw.MustRegister("x", &Descriptor{Type: DataTypeInt, Register: &RegisterBinding{}})
	_, err = NewModule(Config{Type: hw, Parent: d})
	assert.ErrorIs(t, err, ErrNoRegisterBank)
}

func TestInitHookRunsWithoutAutosave(t *testing.T) {
	store := config.NewTree()
	d := newTestDevice(t, store)

	typ := newPIDType()
	m, err := d.NewModule(Config{
		Type: typ,
		Name: "pid0",
		Hooks: Hooks{Init: func(a *Attrs) error {
			return a.Set("p", 3.0)
		}},
	})
	require.NoError(t, err)

	v, err := m.Get("p")
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	b, err := store.Lookup("modules", "pids", "pid0")
	require.NoError(t, err)
	_, persisted := b.Get("p")
	assert.False(t, persisted, "values set during init are not persisted")
}

func TestInitHookErrorFailsConstruction(t *testing.T) {
	d := newTestDevice(t, nil)
	_, err := d.NewModule(Config{
		Type:  newPIDType(),
		Hooks: Hooks{Init: func(a *Attrs) error { return errors.New("boom") }},
	})
	assert.ErrorContains(t, err, "boom")
	assert.Empty(t, d.Modules())
}

func TestConstructionLoadsPersistedValues(t *testing.T) {
	store, err := config.NewTreeFrom(map[string]any{
		"modules": map[string]any{
			"pids": map[string]any{
				"pid0": map[string]any{
					"p":        5, // integral on disk, float attribute
					"setpoint": 100,
					"running":  true, // not a setup attribute
					"legacy":   "x",  // unknown to this version
				},
			},
		},
	})
	require.NoError(t, err)

	h := &hookCounter{}
	m := newTestModule(t, newTestDevice(t, store), newPIDType(), "pid0", h)

	s, err := m.SetupAttributes()
	require.NoError(t, err)
	assert.Equal(t, 5.0, s.Map()["p"])
	assert.Equal(t, int64(100), s.Map()["setpoint"])

	running, err := m.Get("running")
	require.NoError(t, err)
	assert.Equal(t, false, running, "only setup attributes are loaded")
	assert.Equal(t, 0, h.setupCount())
}

func TestSetupAttributesOrdered(t *testing.T) {
	m := newTestModule(t, newTestDevice(t, nil), newPIDType(), "pid0", nil)

	s, err := m.SetupAttributes()
	require.NoError(t, err)
	assert.Equal(t, []string{"p", "i", "setpoint", "input"}, s.Names())

	v, ok := s.Get("input")
	assert.True(t, ok)
	assert.Equal(t, "in1", v)
}

func TestSetupAppliesOverridesAndRunsHook(t *testing.T) {
	store := config.NewTree()
	h := &hookCounter{}
	m := newTestModule(t, newTestDevice(t, store), newPIDType(), "pid0", h)

	require.NoError(t, m.Setup(map[string]any{"p": 0.5, "input": "in2"}))
	assert.Equal(t, 1, h.setupCount())

	s, err := m.SetupAttributes()
	require.NoError(t, err)
	assert.Equal(t, 0.5, s.Map()["p"])
	assert.Equal(t, "in2", s.Map()["input"])

	b, err := store.Lookup("modules", "pids", "pid0")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"p": 0.5, "input": "in2"}, b.Values(), "overrides are persisted")
}

func TestSetupKeepsValuesWithoutOverride(t *testing.T) {
	m := newTestModule(t, newTestDevice(t, nil), newPIDType(), "pid0", nil)
	require.NoError(t, m.Set("i", 0.25))

	require.NoError(t, m.Setup(map[string]any{"p": 1.0}))

	i, err := m.Get("i")
	require.NoError(t, err)
	assert.Equal(t, 0.25, i)
}

func TestCallbackSuppressedDuringSetup(t *testing.T) {
	h := &hookCounter{}
	m := newTestModule(t, newTestDevice(t, nil), newPIDType(), "pid0", h)

	// Every callback attribute at once must still give exactly one setup.
	err := m.Setup(map[string]any{"p": 1.0, "i": 2.0, "setpoint": 3, "input": "off"})
	require.NoError(t, err)
	assert.Equal(t, 1, h.setupCount())
	assert.True(t, m.CallbackActive())
	assert.Equal(t, StateIdle, m.State())
}

func TestCallbackRestoredAfterFailure(t *testing.T) {
	h := &hookCounter{setupErr: errors.New("hardware not ready")}
	m := newTestModule(t, newTestDevice(t, nil), newPIDType(), "pid0", h)

	assert.ErrorContains(t, m.Setup(map[string]any{"p": 1.0}), "hardware not ready")
	assert.True(t, m.CallbackActive())

	assert.ErrorIs(t, m.Setup(map[string]any{"bogus": 1}), ErrUnknownAttribute)
	assert.True(t, m.CallbackActive())

	assert.ErrorIs(t, m.Setup(map[string]any{"setpoint": 10000}), ErrOutOfRange)
	assert.True(t, m.CallbackActive())
	assert.Equal(t, StateIdle, m.State())
}

func TestDirectWriteRunsCallback(t *testing.T) {
	h := &hookCounter{}
	m := newTestModule(t, newTestDevice(t, nil), newPIDType(), "pid0", h)

	require.NoError(t, m.Set("p", 2.0))
	assert.Equal(t, 1, h.setupCount(), "default callback re-runs setup")

	require.NoError(t, m.Set("running", true))
	assert.Equal(t, 1, h.setupCount(), "non-callback attribute")
}

func TestCustomCallback(t *testing.T) {
	var called []string
	typ := newPIDType()
	typ.MustSetCallbackAttributes("setpoint")

	m, err := newTestDevice(t, nil).NewModule(Config{
		Type: typ,
		Name: "pid0",
		Hooks: Hooks{Callback: func(a *Attrs, name string) error {
			called = append(called, name)
			// Writes from a hook never recurse.
			return a.Set("setpoint", 7)
		}},
	})
	require.NoError(t, err)

	require.NoError(t, m.Set("p", 1.0))
	assert.Empty(t, called)

	require.NoError(t, m.Set("setpoint", 1))
	assert.Equal(t, []string{"setpoint"}, called)

	v, err := m.Get("setpoint")
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
}

func TestNestedSetupKeepsSuppression(t *testing.T) {
	var callbackDuringOuter bool
	typ := newPIDType()
	var m *Module
	m, err := newTestDevice(t, nil).NewModule(Config{
		Type: typ,
		Name: "pid0",
		Hooks: Hooks{Setup: func(a *Attrs) error {
			p, _ := a.Float("p")
			if p < 0 {
				if err := a.Setup(map[string]any{"p": 0.0}); err != nil {
					return err
				}
				callbackDuringOuter = m.callbackActive
			}
			return nil
		}},
	})
	require.NoError(t, err)

	require.NoError(t, m.Setup(map[string]any{"p": -1.0}))
	assert.False(t, callbackDuringOuter)
	assert.True(t, m.CallbackActive())
}

func TestUnknownAttributeRejected(t *testing.T) {
	m := newTestModule(t, newTestDevice(t, nil), newPIDType(), "pid0", nil)

	err := m.SetSetupAttributes(map[string]any{"p": 1.5, "zeta": 1, "alpha": 2})
	require.ErrorIs(t, err, ErrUnknownAttribute)

	var uae *UnknownAttributeError
	require.True(t, errors.As(err, &uae))
	assert.Equal(t, []string{"alpha", "zeta"}, uae.Names)
	assert.Equal(t, "pid0", uae.Module)

	p, err := m.Get("p")
	require.NoError(t, err)
	assert.Equal(t, 1.5, p, "recognized keys are applied")

	_, err = m.Get("zeta")
	assert.ErrorIs(t, err, ErrUnknownAttribute)
	assert.ErrorIs(t, m.Set("zeta", 1), ErrUnknownAttribute)
}

func TestSetSetupAttributesDoesNotRunSetup(t *testing.T) {
	h := &hookCounter{}
	m := newTestModule(t, newTestDevice(t, nil), newPIDType(), "pid0", h)

	require.NoError(t, m.SetSetupAttributes(map[string]any{"p": 1.0, "i": 2.0}))
	assert.Equal(t, 0, h.setupCount())
	assert.True(t, m.CallbackActive())
}

func TestEnumOptions(t *testing.T) {
	m := newTestModule(t, newTestDevice(t, nil), newPIDType(), "pid0", nil)
	rec := &eventRecorder{}
	m.Subscribe(rec)

	assert.ErrorIs(t, m.Set("input", "in3"), ErrInvalidOption)

	require.NoError(t, m.SetOptions("input", []any{"in1", "in2", "in3"}))
	require.NoError(t, m.Set("input", "in3"))

	opts, err := m.Options("input")
	require.NoError(t, err)
	assert.Equal(t, []any{"in1", "in2", "in3"}, opts)

	assert.ErrorIs(t, m.SetOptions("p", []any{1}), ErrValueType)

	events := rec.snapshot()
	require.NotEmpty(t, events)
	assert.Equal(t, notify.KindOptions, events[0].Kind)
	assert.Equal(t, "input", events[0].Name)
}

func TestEventsDeliveredInOrderAfterUnlock(t *testing.T) {
	m := newTestModule(t, newTestDevice(t, nil), newPIDType(), "pid0", nil)

	var seen []string
	m.Subscribe(notify.Funcs{Attribute: func(module, name string, value any) {
		// Observers may call back into the module.
		v, err := m.Get(name)
		require.NoError(t, err)
		assert.Equal(t, value, v)
		seen = append(seen, name)
	}})

	require.NoError(t, m.Setup(map[string]any{"input": "in2", "p": 1.0, "i": 2.0}))
	assert.Equal(t, []string{"p", "i", "input"}, seen, "declaration order")
}

func TestCreatePresentation(t *testing.T) {
	store := config.NewTree()
	h := &hookCounter{}
	m := newTestModule(t, newTestDevice(t, store), newPIDType(), "pid0", h)

	err := m.CreatePresentation(func(a *Attrs) error {
		return a.Set("p", 9.0)
	})
	require.NoError(t, err)

	assert.Equal(t, 0, h.setupCount())
	assert.True(t, m.CallbackActive())
	assert.True(t, m.AutosaveActive())

	b, err := store.Lookup("modules", "pids", "pid0")
	require.NoError(t, err)
	_, persisted := b.Get("p")
	assert.False(t, persisted)
}

func TestHelp(t *testing.T) {
	m := newTestModule(t, newTestDevice(t, nil), newPIDType(), "pid0", nil)

	doc, err := m.Help("p")
	require.NoError(t, err)
	assert.Equal(t, "proportional gain", doc)

	all, err := m.Help("")
	require.NoError(t, err)
	assert.Contains(t, all, "setpoint: setpoint\n")
	assert.NotContains(t, all, "running", "docs starting with _ are hidden")

	_, err = m.Help("nope")
	assert.ErrorIs(t, err, ErrUnknownAttribute)
	assert.Contains(t, m.SetupDoc(), "input: input signal")
}

func TestSaveCurve(t *testing.T) {
	curves := curve.NewMemoryStore()
	d := NewDevice(DeviceConfig{Curves: curves})
	m := newTestModule(t, d, newPIDType(), "pid0", nil)

	h, err := m.SaveCurve([]float64{1, 2}, []float64{3, 4}, map[string]any{"p": 1.0})
	require.NoError(t, err)
	assert.Equal(t, "pid0", h.Attributes["module"])

	c, err := curves.Load(h.ID)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, c.Y)

	bare := newTestModule(t, newTestDevice(t, nil), newPIDType(), "pid1", nil)
	_, err = bare.SaveCurve(nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoCurveSink)
}

func TestChildModuleConfigNesting(t *testing.T) {
	store := config.NewTree()
	d := newTestDevice(t, store)
	parent := newTestModule(t, d, newPIDType(), "pid0", nil)

	child, err := NewModule(Config{Type: newPIDType(), Name: "inner", Parent: parent})
	require.NoError(t, err)
	require.NoError(t, child.Set("p", 4.0))

	b, err := store.Lookup("modules", "pids", "pid0", "pids", "inner")
	require.NoError(t, err)
	v, ok := b.Get("p")
	require.True(t, ok)
	assert.Equal(t, 4.0, v)
	assert.Same(t, d, child.Device())
}

func TestFileStorePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.yml")
	store, err := config.OpenFileStore(path)
	require.NoError(t, err)

	m := newTestModule(t, newTestDevice(t, store), newPIDType(), "pid0", nil)
	require.NoError(t, m.Setup(map[string]any{"p": 5.0, "setpoint": -42}))

	reopened, err := config.OpenFileStore(path)
	require.NoError(t, err)
	again := newTestModule(t, newTestDevice(t, reopened), newPIDType(), "pid0", nil)

	s, err := again.SetupAttributes()
	require.NoError(t, err)
	assert.Equal(t, 5.0, s.Map()["p"], "integral floats from the file are coerced back")
	assert.Equal(t, int64(-42), s.Map()["setpoint"])
}
