package media

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFile_Readable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "episode.mp4")
	require.NoError(t, os.WriteFile(path, []byte("not really video"), 0o644))

	result := ValidateFile(path)

	assert.True(t, result.Readable)
	assert.Empty(t, result.Reasons)
}

func TestValidateFile_Missing(t *testing.T) {
	result := ValidateFile(filepath.Join(t.TempDir(), "missing.mp4"))

	assert.False(t, result.Readable)
	assert.Equal(t, []string{"file does not exist"}, result.Reasons)
}

func TestValidateFile_Directory(t *testing.T) {
	result := ValidateFile(t.TempDir())

	assert.False(t, result.Readable)
	assert.Contains(t, result.Reasons[0], "directory")
}

func TestIsSupportedFormat(t *testing.T) {
	formats := []string{"mp4", "mkv", "avi", "mov"}

	tests := []struct {
		path string
		want bool
	}{
		{"show.mp4", true},
		{"SHOW.MKV", true},
		{"/a/b/c.mov", true},
		{"notes.txt", false},
		{"noextension", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSupportedFormat(tt.path, formats))
		})
	}
}
