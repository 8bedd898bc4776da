package curve

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Curve errors.
var (
	ErrLengthMismatch = errors.New("x and y have different lengths")
	ErrNotFound       = errors.New("curve not found")
)

// Curve is a stored result curve.
type Curve struct {
	ID         string         `cbor:"1,keyasint"`
	Created    time.Time      `cbor:"2,keyasint"`
	Attributes map[string]any `cbor:"3,keyasint,omitempty"`
	X          []float64      `cbor:"4,keyasint"`
	Y          []float64      `cbor:"5,keyasint"`
}

// Handle identifies a stored curve.
type Handle struct {
	ID         string
	Created    time.Time
	Attributes map[string]any
}

// Handle returns the handle of c.
func (c *Curve) Handle() Handle {
	return Handle{ID: c.ID, Created: c.Created, Attributes: maps.Clone(c.Attributes)}
}

// Len returns the number of points.
func (c *Curve) Len() int {
	return len(c.X)
}

// Sink accepts new curves.
type Sink interface {
	Create(x, y []float64, attributes map[string]any) (Handle, error)
}

// newCurve validates the series and assigns a fresh ID.
func newCurve(x, y []float64, attributes map[string]any, now time.Time) (*Curve, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(x), len(y))
	}
	return &Curve{
		ID:         uuid.New().String(),
		Created:    now,
		Attributes: maps.Clone(attributes),
		X:          slices.Clone(x),
		Y:          slices.Clone(y),
	}, nil
}

func sortByCreated(hs []Handle) {
	slices.SortStableFunc(hs, func(a, b Handle) int {
		return a.Created.Compare(b.Created)
	})
}
