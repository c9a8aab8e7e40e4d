package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendToFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "scores.jsonl")
	require.NoError(t, AppendToFile(p, "a", "b"))
	require.NoError(t, AppendToFile(p, "c"))

	bs, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Equal(t, "a\nb\nc\n", string(bs))
}

func TestWriteToFileCreatesParent(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "dir", "out.txt")
	require.NoError(t, WriteToFile(p, "first", "second"))

	bs, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Equal(t, "first\nsecond\n", string(bs))
}
