package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBackend(t *testing.T) {
	fs, err := GetBackend("fs", t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &FileSystemBackend{}, fs)
	require.NoError(t, fs.Close())

	mem, err := GetBackend("memory", "registry-test")
	require.NoError(t, err)
	assert.IsType(t, &InMemoryBackend{}, mem)

	_, err = GetBackend("nope", "")
	assert.ErrorContains(t, err, "unknown storage backend: nope")

	assert.Equal(t, []string{"fs", "memory"}, BackendNames())
}

func TestParseLanguage(t *testing.T) {
	for in, want := range map[string]Language{
		"":             LanguageJavaScript,
		"js":           LanguageJavaScript,
		"JavaScript":   LanguageJavaScript,
		"ts":           LanguageTypeScript,
		" typescript ": LanguageTypeScript,
	} {
		got, err := ParseLanguage(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLanguage("python")
	assert.Error(t, err)
}
