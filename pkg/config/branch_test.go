package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBranchGetOrCreate(t *testing.T) {
	tree := NewTree()
	root := tree.Root()

	a, err := root.Branch("pids")
	require.NoError(t, err)
	b, err := root.Branch("pids")
	require.NoError(t, err)

	// Same branch both times.
	require.NoError(t, a.Set("x", 1))
	v, ok := b.Get("x")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	assert.Equal(t, []string{"pids"}, a.Path())
	assert.Equal(t, []string{"pids"}, root.Keys())
}

func TestBranchSetNested(t *testing.T) {
	tree := NewTree()
	states, err := tree.Lookup("pids", "states")
	require.NoError(t, err)

	require.NoError(t, states.Set("locked", map[string]any{"p": 0.5, "i": int64(3)}))
	assert.Equal(t, []string{"locked"}, states.Keys())

	locked, err := states.Branch("locked")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"p": 0.5, "i": int64(3)}, locked.Values())

	// Overwriting the state keeps the same branch and replaces its contents.
	require.NoError(t, states.Set("locked", map[string]any{"p": 1.5}))
	assert.Equal(t, map[string]any{"p": 1.5}, locked.Values())

	got, ok := states.Get("locked")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"p": 1.5}, got)
}

func TestBranchValuesSkipsBranches(t *testing.T) {
	tree := NewTree()
	root := tree.Root()
	require.NoError(t, root.Set("a", "x"))
	_, err := root.Branch("sub")
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"a": "x"}, root.Values())
	assert.Equal(t, []string{"a", "sub"}, root.Keys())
}

func TestBranchErrors(t *testing.T) {
	tree := NewTree()
	root := tree.Root()

	t.Run("InvalidKey", func(t *testing.T) {
		assert.ErrorIs(t, root.Set("", 1), ErrInvalidKey)
		assert.ErrorIs(t, root.Set("a.b", 1), ErrInvalidKey)
		_, err := root.Branch("")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("ValueIsNotBranch", func(t *testing.T) {
		require.NoError(t, root.Set("scalar", 2))
		_, err := root.Branch("scalar")
		assert.ErrorIs(t, err, ErrNotBranch)
	})

	t.Run("UnsupportedValue", func(t *testing.T) {
		assert.ErrorIs(t, root.Set("ch", make(chan int)), ErrUnsupportedValue)
	})
}

func TestBranchDelete(t *testing.T) {
	tree := NewTree()
	root := tree.Root()
	require.NoError(t, root.Set("a", 1))

	require.NoError(t, root.Delete("a"))
	_, ok := root.Get("a")
	assert.False(t, ok)
	assert.NoError(t, root.Delete("missing"))
}

func TestTreeReplaceKeepsHandles(t *testing.T) {
	tree, err := NewTreeFrom(map[string]any{
		"pids": map[string]any{"pid0": map[string]any{"p": 1.0}},
	})
	require.NoError(t, err)

	pid0, err := tree.Lookup("pids", "pid0")
	require.NoError(t, err)

	require.NoError(t, tree.Replace(map[string]any{
		"pids": map[string]any{"pid0": map[string]any{"p": 2.0, "i": 3}},
		"asgs": map[any]any{"asg0": map[string]any{}},
	}))

	assert.Equal(t, map[string]any{"p": 2.0, "i": 3}, pid0.Values())
	assert.Equal(t, []string{"asgs", "pids"}, tree.Root().Keys())
}

func TestTreeChangeHook(t *testing.T) {
	tree := NewTree()
	calls := 0
	tree.onChange = func() error {
		calls++
		return nil
	}

	b, err := tree.Root().Branch("x") // creates: 1
	require.NoError(t, err)
	_, err = tree.Root().Branch("x") // exists: no change
	require.NoError(t, err)
	require.NoError(t, b.Set("k", 1)) // 2
	require.NoError(t, b.Delete("k")) // 3

	assert.Equal(t, 3, calls)
}
