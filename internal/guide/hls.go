package guide

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/Eyevinn/hls-m3u8/m3u8"
	"github.com/stwalsh4118/retroguide/internal/timeline"
)

// ErrNothingAiring is returned when a stream playlist is requested for a channel with no programs
var ErrNothingAiring = errors.New("nothing airing on channel")

// RenderStreamPlaylist writes a live HLS media playlist with one segment per
// program, starting with the one airing now. Each segment carries its
// absolute start as EXT-X-PROGRAM-DATE-TIME.
func RenderStreamPlaylist(w io.Writer, programs []timeline.Program, opts StreamOptions) error {
	if len(programs) == 0 {
		return ErrNothingAiring
	}

	playlist, err := m3u8.NewMediaPlaylist(0, uint(len(programs)))
	if err != nil {
		return fmt.Errorf("failed to create media playlist: %w", err)
	}
	playlist.SeqNo = opts.Sequence

	var longest float64
	for i, p := range programs {
		uri, err := SegmentURL(opts.MediaBaseURL, p)
		if err != nil {
			return err
		}

		seconds := p.Duration().Seconds()
		longest = math.Max(longest, seconds)

		seg := &m3u8.MediaSegment{
			SeqId:           opts.Sequence + uint64(i),
			URI:             uri,
			Duration:        seconds,
			Title:           singleLine(ProgramTitle(p)),
			Discontinuity:   i > 0,
			ProgramDateTime: p.StartTime.UTC(),
		}
		if err := playlist.AppendSegment(seg); err != nil {
			return fmt.Errorf("failed to append program %d: %w", p.SequenceIndex, err)
		}
	}
	playlist.TargetDuration = uint(math.Ceil(longest))

	buf := playlist.Encode()
	if buf == nil {
		return fmt.Errorf("failed to encode playlist")
	}
	_, err = io.Copy(w, buf)
	return err
}

// SegmentURL is where a program's file is served from
func SegmentURL(mediaBaseURL string, p timeline.Program) (string, error) {
	if p.Item == nil {
		return "", fmt.Errorf("program %d has no content item", p.SequenceIndex)
	}
	rel := strings.TrimLeft(filepath.ToSlash(p.Item.FilePath), "/")
	u, err := url.JoinPath(mediaBaseURL, rel)
	if err != nil {
		return "", fmt.Errorf("invalid media url for %q: %w", p.Item.FilePath, err)
	}
	return u, nil
}
