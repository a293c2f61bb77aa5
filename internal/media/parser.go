package media

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ParseResult holds display information derived from a file path
type ParseResult struct {
	Title string
	Year  *int
}

var (
	// "Show Name - S01E01", "Show.Name.S01E01", "Show_Name_S01E01"
	patternEpisode = regexp.MustCompile(`(?i)^(.+?)(?:\s*-\s*|[._ ])[Ss](\d+)[Ee](\d+)`)

	// "Show.Name.1x01"
	patternAlternateEpisode = regexp.MustCompile(`(?i)^(.+?)[._ ](\d+)x(\d+)`)

	// "Movie Title (1987)" or "Movie.Title.1987"
	patternYear = regexp.MustCompile(`[(\[._ ]((?:19|20)\d{2})[)\]._ ]?`)

	patternSpaces = regexp.MustCompile(`\s+`)
)

// ParseFilename derives a display title and optional release year from a path.
// It is used when a catalog entry is registered without a title.
func ParseFilename(fullPath string) ParseResult {
	base := filepath.Base(fullPath)
	name := norm.NFC.String(strings.TrimSuffix(base, filepath.Ext(base)))

	if m := patternEpisode.FindStringSubmatch(name); m != nil {
		return ParseResult{Title: episodeTitle(m[1], m[2], m[3])}
	}
	if m := patternAlternateEpisode.FindStringSubmatch(name); m != nil {
		return ParseResult{Title: episodeTitle(m[1], m[2], m[3])}
	}

	var result ParseResult
	if loc := patternYear.FindStringSubmatchIndex(name); loc != nil && loc[0] > 0 {
		year, _ := strconv.Atoi(name[loc[2]:loc[3]])
		result.Year = &year
		name = name[:loc[0]]
	}

	result.Title = cleanName(name)
	if result.Title == "" {
		result.Title = cleanName(strings.TrimSuffix(base, filepath.Ext(base)))
	}
	return result
}

// cleanName replaces separators with spaces and collapses whitespace
func cleanName(name string) string {
	cleaned := strings.NewReplacer(".", " ", "_", " ").Replace(name)
	return patternSpaces.ReplaceAllString(strings.TrimSpace(cleaned), " ")
}

func episodeTitle(show, season, episode string) string {
	s, _ := strconv.Atoi(season)
	e, _ := strconv.Atoi(episode)
	return cleanName(show) + " - S" + pad2(s) + "E" + pad2(e)
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
