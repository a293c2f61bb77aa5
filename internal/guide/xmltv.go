package guide

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/stwalsh4118/retroguide/internal/media"
	"github.com/stwalsh4118/retroguide/internal/timeline"
)

type tv struct {
	XMLName    xml.Name    `xml:"tv"`
	Generator  string      `xml:"generator-info-name,attr,omitempty"`
	Channels   []channel   `xml:"channel"`
	Programmes []programme `xml:"programme"`
}

type channel struct {
	ID          string `xml:"id,attr"`
	DisplayName text   `xml:"display-name"`
	Icon        *icon  `xml:"icon,omitempty"`
}

type icon struct {
	Src string `xml:"src,attr"`
}

type programme struct {
	Start    string `xml:"start,attr"`
	Stop     string `xml:"stop,attr"`
	Channel  string `xml:"channel,attr"`
	Title    text   `xml:"title"`
	Desc     text   `xml:"desc"`
	Category text   `xml:"category"`
}

type text struct {
	Lang  string `xml:"lang,attr,omitempty"`
	Value string `xml:",chardata"`
}

// GuideStats summarizes a rendered guide
type GuideStats struct {
	Channels   int
	Programmes int
}

// RenderGuide writes an XMLTV document for the given channel schedules.
// Channels without programs are omitted. All text goes through the XML
// encoder, so markup in titles or names cannot alter the document.
func RenderGuide(w io.Writer, schedules []ChannelSchedule, opts GuideOptions) (GuideStats, error) {
	lang := opts.Lang
	if lang == "" {
		lang = defaultLang
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	doc := tv{
		Generator:  cleanText(opts.GeneratorName),
		Channels:   []channel{},
		Programmes: []programme{},
	}

	for _, sched := range schedules {
		if len(sched.Programs) == 0 {
			continue
		}
		ch := sched.Channel
		id := GuideChannelID(ch.Number, opts.IDSuffix)

		entry := channel{ID: cleanText(id), DisplayName: text{Value: cleanText(ch.Name)}}
		if ch.Icon != nil && *ch.Icon != "" {
			entry.Icon = &icon{Src: cleanText(*ch.Icon)}
		}
		doc.Channels = append(doc.Channels, entry)

		for _, p := range sched.Programs {
			start, stop := p.StartTime, p.StopTime
			if opts.Clip {
				start, stop = clip(start, stop, opts.WindowStart, opts.WindowEnd)
				if !stop.After(start) {
					continue
				}
			}

			doc.Programmes = append(doc.Programmes, programme{
				Start:    start.In(loc).Format(xmltvTimeFmt),
				Stop:     stop.In(loc).Format(xmltvTimeFmt),
				Channel:  entry.ID,
				Title:    text{Lang: lang, Value: cleanText(ProgramTitle(p))},
				Desc:     text{Lang: lang, Value: cleanText(Description(opts.DescriptionPrefix, ch.Name, p))},
				Category: text{Lang: lang, Value: cleanText(Category(ch.Name, p))},
			})
		}
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return GuideStats{}, err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return GuideStats{}, fmt.Errorf("failed to encode guide: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return GuideStats{}, err
	}

	return GuideStats{Channels: len(doc.Channels), Programmes: len(doc.Programmes)}, nil
}

// ProgramTitle is the item's catalog title, or one derived from its filename
func ProgramTitle(p timeline.Program) string {
	if p.Item == nil {
		return ""
	}
	if title := strings.TrimSpace(p.Item.Title); title != "" {
		return title
	}
	return media.ParseFilename(p.Item.FilePath).Title
}

// Description composes "{prefix}: {channel} | Tags: a, b | Year: 1987",
// flagging programs whose times rest on an estimated length
func Description(prefix, channelName string, p timeline.Program) string {
	var b strings.Builder
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteString(": ")
	}
	b.WriteString(channelName)

	if p.Item != nil {
		md := p.Item.Metadata()
		if len(md.Tags) > 0 {
			b.WriteString(" | Tags: ")
			b.WriteString(strings.Join(md.Tags, ", "))
		}
		if md.Year != nil {
			b.WriteString(" | Year: ")
			b.WriteString(strconv.Itoa(*md.Year))
		}
	}
	if p.Estimated {
		b.WriteString(" | ")
		b.WriteString(approximate)
	}
	return b.String()
}

// Category is the item's category, falling back to a guess from the channel name
func Category(channelName string, p timeline.Program) string {
	if p.Item != nil {
		if c := p.Item.Metadata().Category; c != nil {
			return *c
		}
	}
	if strings.Contains(strings.ToLower(channelName), "commercial") {
		return categoryAds
	}
	return categoryShows
}

func clip(start, stop, windowStart, windowEnd time.Time) (time.Time, time.Time) {
	if !windowStart.IsZero() && start.Before(windowStart) {
		start = windowStart
	}
	if !windowEnd.IsZero() && stop.After(windowEnd) {
		stop = windowEnd
	}
	return start, stop
}
