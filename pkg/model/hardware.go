package model

import (
	"fmt"
)

func (m *Module) readRegister(d *Descriptor) (any, error) {
	if m.bank == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrNoRegisterBank, m.name, d.name)
	}
	raw, err := m.bank.ReadField(d.Register.Offset, d.Register.field())
	if err != nil {
		return nil, fmt.Errorf("module %s: read %s: %w", m.name, d.name, err)
	}
	v, err := d.decode(raw)
	if err != nil {
		return nil, fmt.Errorf("module %s: read %s: %w", m.name, d.name, err)
	}
	return v, nil
}

func (m *Module) writeRegister(d *Descriptor, v any) error {
	if m.bank == nil {
		return fmt.Errorf("%w: %s.%s", ErrNoRegisterBank, m.name, d.name)
	}
	raw, err := d.encode(v)
	if err != nil {
		return fmt.Errorf("module %s: write %s: %w", m.name, d.name, err)
	}

	f := d.Register.field()
	if d.Register.Shared || f.Shift != 0 {
		err = m.bank.WriteField(d.Register.Offset, f, raw)
	} else {
		err = m.bank.WriteValue(d.Register.Offset, raw, f.Width)
	}
	if err != nil {
		return fmt.Errorf("module %s: write %s: %w", m.name, d.name, err)
	}

	return nil
}
