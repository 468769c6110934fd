package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGatherAllMidiPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.mid", "b.midi", "c.txt"} {
		os.WriteFile(filepath.Join(dir, name), nil, 0666)
	}

	assert := assert.New(t)
	all, err := GatherAllMidiPaths(dir, 0)
	assert.NoError(err)
	assert.Equal(2, len(all))
	one, err := GatherAllMidiPaths(dir, 1)
	assert.NoError(err)
	assert.Equal(1, len(one))
}

func TestGatherAllMidiPathsMissingDir(t *testing.T) {
	_, err := GatherAllMidiPaths(filepath.Join(t.TempDir(), "nope"), 0)
	assert.Error(t, err)
}

func TestGetKeysSorted(t *testing.T) {
	m := map[string]int{"b": 2, "a": 1, "c": 3}
	assert.Equal(t, []string{"a", "b", "c"}, GetKeysSorted(m))
}

func TestMinAndSum(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(3, Min(3, 7))
	assert.Equal(uint64(6), Sum([]int64{1, 2, 3}))
}
