package guide

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// RenderChannelList writes an extended M3U channel list. Channels are
// written in the given order; channels without items are omitted.
func RenderChannelList(w io.Writer, channels []ChannelEntry, opts ListOptions) error {
	buf := &bytes.Buffer{}
	buf.WriteString("#EXTM3U\n")

	for _, ch := range channels {
		if ch.Items == 0 {
			continue
		}
		name := attrValue(ch.Name)

		fmt.Fprintf(buf, `#EXTINF:-1 tvg-id="%s" tvg-chno="%d" tvg-name="%s"`,
			attrValue(GuideChannelID(ch.Number, opts.IDSuffix)), ch.Number, name)
		if ch.Icon != nil && *ch.Icon != "" {
			fmt.Fprintf(buf, ` tvg-logo="%s"`, attrValue(*ch.Icon))
		}
		fmt.Fprintf(buf, ` group-title="%s",%s`+"\n", attrValue(opts.GroupTitle), name)
		buf.WriteString(StreamURL(opts.BaseURL, ch.ID) + "\n")
	}

	_, err := io.Copy(w, buf)
	return err
}

// attrValue keeps a value inside its double quotes
func attrValue(s string) string {
	return strings.ReplaceAll(singleLine(s), `"`, "'")
}
