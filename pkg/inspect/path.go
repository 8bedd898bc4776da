// Package inspect provides device inspection and attribute manipulation utilities.
//
// The inspect package offers a unified interface for:
//   - Parsing path expressions (e.g., "pid0/setpoint" or "0x40300104")
//   - Reading and writing attributes, states and raw registers
//   - Formatting output for display
package inspect

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Path errors.
var (
	ErrEmptyPath     = errors.New("empty path")
	ErrInvalidPath   = errors.New("invalid path format")
	ErrInvalidNumber = errors.New("invalid numeric value in path")
)

// statesSegment introduces a named state in a path.
const statesSegment = "states"

// Path represents a parsed inspection path.
// Format: module[/attribute], module/states/name or a register address.
type Path struct {
	// Module is the module name (empty for register paths).
	Module string

	// Attribute is the attribute name.
	Attribute string

	// State is the saved state name (when IsState is true).
	State string

	// IsState indicates this path refers to a saved state.
	IsState bool

	// Address is the register address (when IsRegister is true).
	Address uint32

	// IsRegister indicates this path is a raw register address.
	IsRegister bool

	// IsPartial indicates the path names a module only (used for inspect
	// operations that show all attributes).
	IsPartial bool

	// Raw stores the original input string.
	Raw string
}

// ParsePath parses a path string into a Path struct.
//
// Supported formats:
//   - "module" - partial (for listing attributes)
//   - "module/attribute" - attribute path
//   - "module.attribute" - same as above
//   - "module/states/name" - saved state
//   - "0x40300104" - register address, decimal or hex (0x prefix)
func ParsePath(input string) (*Path, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyPath
	}

	p := &Path{Raw: input}

	if isNumeric(input) {
		addr, err := parseUint32(input)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidNumber, input)
		}
		p.Address = addr
		p.IsRegister = true
		return p, nil
	}

	if !strings.Contains(input, "/") {
		input = strings.Replace(input, ".", "/", 1)
	}
	if strings.HasPrefix(input, "/") || strings.HasSuffix(input, "/") || strings.Contains(input, "//") {
		return nil, ErrInvalidPath
	}

	parts := strings.Split(input, "/")
	for _, part := range parts {
		if !isName(part) {
			return nil, fmt.Errorf("%w: %q is not a name", ErrInvalidPath, part)
		}
	}
	p.Module = parts[0]

	switch {
	case len(parts) == 1:
		p.IsPartial = true
	case parts[1] == statesSegment:
		if len(parts) != 3 {
			return nil, fmt.Errorf("%w: state path needs a state name", ErrInvalidPath)
		}
		p.State = parts[2]
		p.IsState = true
	case len(parts) == 2:
		p.Attribute = parts[1]
	default:
		return nil, fmt.Errorf("%w: too many segments", ErrInvalidPath)
	}

	return p, nil
}

// String returns the path in canonical form.
func (p *Path) String() string {
	switch {
	case p.IsRegister:
		return fmt.Sprintf("0x%08x", p.Address)
	case p.IsState:
		return p.Module + "/" + statesSegment + "/" + p.State
	case p.IsPartial:
		return p.Module
	default:
		return p.Module + "/" + p.Attribute
	}
}

func isNumeric(s string) bool {
	return s[0] >= '0' && s[0] <= '9'
}

// isName accepts identifiers: a letter or underscore, then letters,
// digits or underscores.
func isName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// parseUint32 parses a uint32 from decimal or hex string.
func parseUint32(s string) (uint32, error) {
	var v uint64
	var err error

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err = strconv.ParseUint(s[2:], 16, 32)
	} else {
		v, err = strconv.ParseUint(s, 10, 32)
	}
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
