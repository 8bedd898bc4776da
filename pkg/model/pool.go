package model

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrNoFreeModule is returned by Pool.Pop when every module is owned.
var ErrNoFreeModule = errors.New("no free module")

// Pool hands out free modules of the same kind to software consumers.
type Pool struct {
	mu      sync.Mutex
	name    string
	modules []*Module
}

// NewPool creates a pool over modules.
func NewPool(name string, modules ...*Module) *Pool {
	return &Pool{name: name, modules: slices.Clone(modules)}
}

// Add appends a module to the pool.
func (p *Pool) Add(m *Module) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modules = append(p.modules, m)
}

// Modules returns the pooled modules.
func (p *Pool) Modules() []*Module {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.modules)
}

// Pop acquires the first free module for owner. Ownership events are
// delivered after the pool lock is released, so observers may use the pool.
func (p *Pool) Pop(owner string) (*Lease, error) {
	if owner == "" {
		panic("model: Pop with empty owner")
	}
	modules := p.Modules()
	for _, m := range modules {
		if m.claim(owner) {
			return &Lease{module: m, owner: owner}, nil
		}
	}
	return nil, fmt.Errorf("%w: all %d %s modules are owned", ErrNoFreeModule, len(modules), p.name)
}

// Free returns the number of unowned modules.
func (p *Pool) Free() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, m := range p.modules {
		if m.Owner() == "" {
			n++
		}
	}
	return n
}
