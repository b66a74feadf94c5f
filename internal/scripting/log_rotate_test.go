package scripting

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSmallWriter builds a writer with a byte-sized limit; the public
// constructor only accepts whole megabytes.
func newSmallWriter(t *testing.T, path string, maxBytes int64, maxFiles int) *RotatingFileWriter {
	t.Helper()
	w := &RotatingFileWriter{path: path, maxSizeBytes: maxBytes, maxFiles: maxFiles}
	require.NoError(t, w.open())
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRotatingFileWriter_BasicWrite(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "snip.log")

	w, err := NewRotatingFileWriter(path, 1, 3)
	require.NoError(t, err)
	defer w.Close()

	n, err := w.Write([]byte("hello world\n"))
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.Equal(t, "hello world\n", readFile(t, path))
}

func TestRotatingFileWriter_RotatesAtSizeLimit(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "snip.log")
	w := newSmallWriter(t, path, 50, 3)

	first := strings.Repeat("a", 39) + "\n"
	second := strings.Repeat("b", 19) + "\n"
	_, err := w.Write([]byte(first))
	require.NoError(t, err)
	_, err = w.Write([]byte(second))
	require.NoError(t, err)

	assert.Equal(t, first, readFile(t, path+".1"))
	assert.Equal(t, second, readFile(t, path))
}

func TestRotatingFileWriter_MaxFilesEnforced(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "snip.log")
	w := newSmallWriter(t, path, 10, 2)

	for _, c := range "abcdef" {
		_, err := w.Write([]byte(strings.Repeat(string(c), 9) + "\n"))
		require.NoError(t, err)
	}

	assert.Equal(t, strings.Repeat("f", 9)+"\n", readFile(t, path))
	assert.Equal(t, strings.Repeat("e", 9)+"\n", readFile(t, path+".1"))
	assert.Equal(t, strings.Repeat("d", 9)+"\n", readFile(t, path+".2"))
	assert.NoFileExists(t, path+".3")
}

func TestRotatingFileWriter_ZeroMaxFiles(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "snip.log")
	w := newSmallWriter(t, path, 10, 0)

	_, err := w.Write([]byte("123456789\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("abcdefghi\n"))
	require.NoError(t, err)

	assert.Equal(t, "abcdefghi\n", readFile(t, path))
	assert.NoFileExists(t, path+".1")
}

func TestRotatingFileWriter_OversizedWriteGoesToFreshFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "snip.log")
	w := newSmallWriter(t, path, 10, 1)

	_, err := w.Write([]byte("x\n"))
	require.NoError(t, err)
	big := strings.Repeat("y", 30) + "\n"
	_, err = w.Write([]byte(big))
	require.NoError(t, err)

	assert.Equal(t, big, readFile(t, path))
	assert.Equal(t, "x\n", readFile(t, path+".1"))
}

func TestRotatingFileWriter_ConcurrentWrites(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "snip.log")
	w := newSmallWriter(t, path, 200, 100)

	const goroutines, writes = 8, 25
	line := []byte("0123456789\n")
	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range writes {
				_, err := w.Write(line)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	require.NoError(t, w.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var total int
	for _, e := range entries {
		content := readFile(t, filepath.Join(dir, e.Name()))
		assert.Zero(t, len(content)%len(line), "lines split across %s", e.Name())
		total += strings.Count(content, "\n")
	}
	assert.Equal(t, goroutines*writes, total)
}

func TestRotatingFileWriter_CreatesParentDirs(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "a", "b", "snip.log")

	w, err := NewRotatingFileWriter(path, 1, 1)
	require.NoError(t, err)
	defer w.Close()
	assert.FileExists(t, path)
}

func TestRotatingFileWriter_AppendsToExisting(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "snip.log")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0644))

	w, err := NewRotatingFileWriter(path, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4), w.currentSize)
	_, err = w.Write([]byte("new\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, "old\nnew\n", readFile(t, path))
}

func TestRotatingFileWriter_Clamping(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	w, err := NewRotatingFileWriter(filepath.Join(dir, "a.log"), 0, -5)
	require.NoError(t, err)
	defer w.Close()
	assert.Equal(t, int64(1<<20), w.maxSizeBytes)
	assert.Zero(t, w.maxFiles)
}

func TestRotatingFileWriter_WriteAfterClose(t *testing.T) {
	t.Parallel()
	w := newSmallWriter(t, filepath.Join(t.TempDir(), "snip.log"), 100, 1)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err := w.Write([]byte("late\n"))
	assert.ErrorIs(t, err, os.ErrClosed)
}
