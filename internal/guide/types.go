// Package guide renders channel schedules into the published documents:
// an extended M3U channel list, an XMLTV program guide and per-channel HLS
// stream playlists. Renderers are pure; Exporter and Publisher gather the
// schedules and cache the results.
package guide

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stwalsh4118/retroguide/internal/models"
	"github.com/stwalsh4118/retroguide/internal/timeline"
	"golang.org/x/text/unicode/norm"
)

// ChannelEntry is a channel as it appears in published documents
type ChannelEntry struct {
	ID     uuid.UUID
	Number int
	Name   string
	Icon   *string
	// Items is the playlist length; channels without items are not published
	Items int
}

// EntryFromChannel builds a ChannelEntry from a catalog channel
func EntryFromChannel(ch *models.Channel, items int) ChannelEntry {
	return ChannelEntry{
		ID:     ch.ID,
		Number: ch.Number,
		Name:   ch.Name,
		Icon:   ch.Icon,
		Items:  items,
	}
}

// ChannelSchedule is a channel with the programs airing in the guide window
type ChannelSchedule struct {
	Channel  ChannelEntry
	Programs []timeline.Program
}

// ListOptions configures the channel list
type ListOptions struct {
	BaseURL    string
	GroupTitle string
	IDSuffix   string
}

// GuideOptions configures the program guide
type GuideOptions struct {
	GeneratorName     string
	DescriptionPrefix string
	IDSuffix          string
	Lang              string
	Location          *time.Location
	// Clip trims the first and last programme of each channel to the window
	Clip        bool
	WindowStart time.Time
	WindowEnd   time.Time
}

// StreamOptions configures a channel's stream playlist
type StreamOptions struct {
	MediaBaseURL string
	// Sequence is the absolute number of the first program since the channel's anchor
	Sequence uint64
}

const (
	defaultLang   = "en"
	xmltvTimeFmt  = "20060102150405 -0700"
	approximate   = "Approximate times"
	categoryAds   = "Commercial"
	categoryShows = "Entertainment"
)

// GuideChannelID is the identifier shared by the channel list (tvg-id) and the guide
func GuideChannelID(number int, suffix string) string {
	if suffix == "" {
		return fmt.Sprintf("%d", number)
	}
	return fmt.Sprintf("%d.%s", number, suffix)
}

// StreamURL is the playable reference for a channel
func StreamURL(baseURL string, id uuid.UUID) string {
	return strings.TrimRight(baseURL, "/") + "/stream/" + id.String()
}

// cleanText NFC-normalizes s, repairs invalid UTF-8 and replaces characters
// that cannot appear in an XML document
func cleanText(s string) string {
	s = norm.NFC.String(strings.ToValidUTF8(s, string(utf8.RuneError)))
	return strings.Map(func(r rune) rune {
		if isXMLChar(r) {
			return r
		}
		return utf8.RuneError
	}, s)
}

// singleLine strips control characters so a value cannot start a new line
func singleLine(s string) string {
	s = norm.NFC.String(strings.ToValidUTF8(s, ""))
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}
