package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilename(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantTitle string
		wantYear  int
	}{
		{"dash episode", "/tv/The Office - S02E05 - Halloween.mkv", "The Office - S02E05", 0},
		{"dotted episode", "Cheers.S01E1.mp4", "Cheers - S01E01", 0},
		{"alternate episode", "Night_Court_3x12.avi", "Night Court - S03E12", 0},
		{"year in parens", "/movies/Back to the Future (1985).mp4", "Back to the Future", 1985},
		{"dotted year", "Tron.1982.1080p.mkv", "Tron", 1982},
		{"plain name", "/ads/coca_cola_ad.mp4", "coca cola ad", 0},
		{"only a year", "1999.mp4", "1999", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseFilename(tt.path)
			assert.Equal(t, tt.wantTitle, got.Title)
			if tt.wantYear == 0 {
				assert.Nil(t, got.Year)
				return
			}
			require.NotNil(t, got.Year)
			assert.Equal(t, tt.wantYear, *got.Year)
		})
	}
}

func TestParseFilename_NormalizesUnicode(t *testing.T) {
	// "e" followed by a combining acute accent
	got := ParseFilename("Pokey.Cafe\u0301.mp4")
	assert.Equal(t, "Pokey Caf\u00e9", got.Title)
}
