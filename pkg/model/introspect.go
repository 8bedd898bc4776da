package model

import (
	"strings"
)

// Help returns the doc of the named attribute. With an empty name it
// returns "name: doc" lines for every attribute whose doc does not start
// with "_".
func (m *Module) Help(name string) (string, error) {
	if name != "" {
		d, err := m.lookup(name)
		if err != nil {
			return "", err
		}
		return d.Doc, nil
	}

	var b strings.Builder
	for _, d := range m.typ.Attributes() {
		if strings.HasPrefix(d.Doc, "_") {
			continue
		}
		b.WriteString(d.Name())
		b.WriteString(": ")
		b.WriteString(d.Doc)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// SetupDoc describes the arguments of Setup.
func (m *Module) SetupDoc() string {
	return m.typ.SetupDoc()
}

// SetupDoc lists the setup attributes of t with their docs.
func (t *ModuleType) SetupDoc() string {
	var b strings.Builder
	b.WriteString("attributes\n==========")
	for _, name := range t.SetupAttributes() {
		d, _ := t.Lookup(name)
		b.WriteString("\n  ")
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(d.Doc)
	}
	return b.String()
}
