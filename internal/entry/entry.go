package entry

import (
	"strings"
)

// Options carries the optional display attributes of an Entry.
// Empty strings mean "not set".
type Options struct {
	TvgName  string // defaults to the entry name
	TvgID    string
	Logo     string
	Group    string
	EPGTitle string
}

// Entry represents one playable row of the playlist document.
// It is an immutable value object: all fields are set at construction.
type Entry struct {
	name      string
	streamURL string
	tvgName   string
	tvgID     string
	logo      string
	group     string
	epgTitle  string
}

// New creates an Entry for the given name and stream URL.
// If opts.TvgName is empty the name is used as the tvg-name.
func New(name, streamURL string, opts Options) Entry {
	tvgName := opts.TvgName
	if tvgName == "" {
		tvgName = name
	}
	return Entry{
		name:      name,
		streamURL: streamURL,
		tvgName:   tvgName,
		tvgID:     opts.TvgID,
		logo:      opts.Logo,
		group:     opts.Group,
		epgTitle:  opts.EPGTitle,
	}
}

// Name returns the entry name (including any country prefix).
func (e Entry) Name() string {
	return e.name
}

// StreamURL returns the playback URL.
func (e Entry) StreamURL() string {
	return e.streamURL
}

// TvgName returns the tvg-name attribute value.
func (e Entry) TvgName() string {
	return e.tvgName
}

// TvgID returns the tvg-id attribute value, or "" if unset.
func (e Entry) TvgID() string {
	return e.tvgID
}

// Logo returns the tvg-logo attribute value, or "" if unset.
func (e Entry) Logo() string {
	return e.logo
}

// Group returns the display group, or "" if the entry is ungrouped.
func (e Entry) Group() string {
	return e.group
}

// EPGTitle returns the now-playing title, or "" if unknown.
func (e Entry) EPGTitle() string {
	return e.epgTitle
}

// DisplayName returns the name shown after the comma of the #EXTINF line.
func (e Entry) DisplayName() string {
	if e.epgTitle == "" {
		return e.name
	}
	return e.name + " — " + e.epgTitle
}

// Render returns the entry block: an optional #EXTGRP line, the #EXTINF line
// and the stream URL, separated by newlines and without a trailing newline.
func (e Entry) Render() string {
	var b strings.Builder

	if e.group != "" {
		b.WriteString("#EXTGRP:")
		b.WriteString(e.group)
		b.WriteByte('\n')
	}

	b.WriteString(`#EXTINF:-1 tvg-name="`)
	b.WriteString(e.tvgName)
	b.WriteByte('"')
	writeAttr(&b, "tvg-id", e.tvgID)
	writeAttr(&b, "tvg-logo", e.logo)
	writeAttr(&b, "group-title", e.group)
	b.WriteByte(',')
	b.WriteString(e.DisplayName())
	b.WriteByte('\n')

	b.WriteString(e.streamURL)

	return b.String()
}

func writeAttr(b *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	b.WriteByte(' ')
	b.WriteString(key)
	b.WriteString(`="`)
	b.WriteString(value)
	b.WriteByte('"')
}
