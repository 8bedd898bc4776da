package config

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
)

// Branch errors.
var (
	ErrInvalidKey = errors.New("invalid config key")
	ErrNotBranch  = errors.New("config key holds a value, not a branch")
	ErrIsBranch   = errors.New("config key holds a branch, not a value")
)

// Branch is one level of the config hierarchy.
type Branch interface {
	// Path returns the keys leading from the root to this branch.
	Path() []string

	// Get returns the value stored under key. Nested branches are returned
	// as map[string]any copies.
	Get(key string) (any, bool)

	// Set stores value under key. A map[string]any value replaces key with
	// a nested branch holding the map's contents.
	Set(key string, value any) error

	// Branch returns the nested branch under key, creating it if absent.
	Branch(key string) (Branch, error)

	// Keys returns all keys of this branch, sorted.
	Keys() []string

	// Values returns a copy of the scalar entries of this branch.
	Values() map[string]any

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}

// Store is a source of config branches.
type Store interface {
	Root() Branch
}

// Tree is an in-memory Store. It is safe for concurrent use.
type Tree struct {
	mu   sync.RWMutex
	root *node

	// onChange runs after every mutation, outside the lock.
	onChange func() error
}

// NewTree creates an empty tree.
func NewTree() *Tree {
	t := &Tree{}
	t.root = newNode(t, nil)
	return t
}

// NewTreeFrom creates a tree holding data.
func NewTreeFrom(data map[string]any) (*Tree, error) {
	t := NewTree()
	if err := t.Replace(data); err != nil {
		return nil, err
	}
	return t, nil
}

// Root returns the root branch.
func (t *Tree) Root() Branch {
	return t.root
}

// Lookup returns the branch at path, creating intermediate branches.
func (t *Tree) Lookup(path ...string) (Branch, error) {
	var b Branch = t.root
	for _, key := range path {
		next, err := b.Branch(key)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", strings.Join(path, "."), err)
		}
		b = next
	}
	return b, nil
}

// Export returns a deep copy of the whole tree.
func (t *Tree) Export() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root.export()
}

// Replace swaps the tree contents for data. Branch handles obtained before
// the call stay valid for every branch that still exists in data.
func (t *Tree) Replace(data map[string]any) error {
	norm, err := normalizeMap(data)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.root.merge(norm)
	t.mu.Unlock()
	return nil
}

func (t *Tree) changed() error {
	if t.onChange == nil {
		return nil
	}
	return t.onChange()
}

// node implements Branch. All access goes through the owning tree's lock.
type node struct {
	tree     *Tree
	path     []string
	children map[string]any // scalar or *node
}

func newNode(t *Tree, path []string) *node {
	return &node{tree: t, path: path, children: make(map[string]any)}
}

func (n *node) Path() []string {
	return slices.Clone(n.path)
}

func (n *node) Get(key string) (any, bool) {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()

	v, ok := n.children[key]
	if !ok {
		return nil, false
	}
	if child, isNode := v.(*node); isNode {
		return child.export(), true
	}
	return v, true
}

func (n *node) Set(key string, value any) error {
	if err := validKey(key); err != nil {
		return err
	}

	if m, ok := value.(map[string]any); ok {
		norm, err := normalizeMap(m)
		if err != nil {
			return err
		}
		n.tree.mu.Lock()
		child, isNode := n.children[key].(*node)
		if !isNode {
			child = newNode(n.tree, n.childPath(key))
			n.children[key] = child
		}
		child.merge(norm)
		n.tree.mu.Unlock()
		return n.tree.changed()
	}

	v, err := normalize(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	n.tree.mu.Lock()
	n.children[key] = v
	n.tree.mu.Unlock()
	return n.tree.changed()
}

func (n *node) Branch(key string) (Branch, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}

	n.tree.mu.Lock()
	v, ok := n.children[key]
	if ok {
		n.tree.mu.Unlock()
		child, isNode := v.(*node)
		if !isNode {
			return nil, fmt.Errorf("%s: %w", key, ErrNotBranch)
		}
		return child, nil
	}
	child := newNode(n.tree, n.childPath(key))
	n.children[key] = child
	n.tree.mu.Unlock()

	// Creating a branch is a change worth persisting.
	if err := n.tree.changed(); err != nil {
		return nil, err
	}
	return child, nil
}

func (n *node) Keys() []string {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()

	keys := make([]string, 0, len(n.children))
	for k := range n.children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (n *node) Values() map[string]any {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()

	out := make(map[string]any, len(n.children))
	for k, v := range n.children {
		if _, isNode := v.(*node); isNode {
			continue
		}
		out[k] = copyValue(v)
	}
	return out
}

func (n *node) Delete(key string) error {
	n.tree.mu.Lock()
	_, ok := n.children[key]
	delete(n.children, key)
	n.tree.mu.Unlock()

	if !ok {
		return nil
	}
	return n.tree.changed()
}

func (n *node) childPath(key string) []string {
	p := make([]string, len(n.path), len(n.path)+1)
	copy(p, n.path)
	return append(p, key)
}

// export returns a deep copy. Caller holds the tree lock.
func (n *node) export() map[string]any {
	out := make(map[string]any, len(n.children))
	for k, v := range n.children {
		if child, isNode := v.(*node); isNode {
			out[k] = child.export()
			continue
		}
		out[k] = copyValue(v)
	}
	return out
}

// merge makes n hold exactly data, reusing existing child nodes.
// Caller holds the tree lock; data is normalized.
func (n *node) merge(data map[string]any) {
	for k := range n.children {
		if _, keep := data[k]; !keep {
			delete(n.children, k)
		}
	}
	for k, v := range data {
		m, isMap := v.(map[string]any)
		if !isMap {
			n.children[k] = v
			continue
		}
		child, isNode := n.children[k].(*node)
		if !isNode {
			child = newNode(n.tree, n.childPath(k))
			n.children[k] = child
		}
		child.merge(m)
	}
}

func validKey(key string) error {
	if key == "" || strings.ContainsAny(key, ".\n") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
