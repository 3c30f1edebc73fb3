package m3u

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/usanli/acestream-playlist/internal/entry"
)

// ExternalPrefix is prepended to names and tvg-names of external entries.
const ExternalPrefix = "External "

const unknownTitle = "Unknown"

// maxLineSize bounds a single playlist line; long #EXTINF lines with
// embedded logos exceed bufio's default.
const maxLineSize = 1024 * 1024

type parserState int

const (
	stateIdle parserState = iota
	statePending
)

// pendingEntry holds the attributes captured from an #EXTINF line while
// waiting for its URL line.
type pendingEntry struct {
	name    string
	tvgName string
	tvgID   string
	logo    string
}

// ParseFragment parses an external playlist into entries stamped with the
// forced group label. Any group-title of the source is discarded.
// Entries whose #EXTINF is not followed by a URL line are skipped.
// An error is returned only if reading r fails.
func ParseFragment(r io.Reader, label string) ([]entry.Entry, error) {
	var entries []entry.Entry

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	state := stateIdle
	var current pendingEntry

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "", strings.HasPrefix(line, "#EXTM3U"):
			continue

		case strings.HasPrefix(line, extinfPrefix):
			// A previous #EXTINF without URL is dropped here.
			current = capture(line)
			state = statePending

		case strings.HasPrefix(line, "#"):
			continue

		default:
			if state != statePending {
				continue
			}
			entries = append(entries, entry.New(current.name, line, entry.Options{
				TvgName: current.tvgName,
				TvgID:   current.tvgID,
				Logo:    current.logo,
				Group:   label,
			}))
			current = pendingEntry{}
			state = stateIdle
		}
	}

	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("failed to read playlist: %w", err)
	}

	return entries, nil
}

func capture(extinf string) pendingEntry {
	title := Title(extinf)
	tvgName, _ := Attribute(extinf, "tvg-name")
	if title == "" {
		title = tvgName
	}
	if title == "" {
		title = unknownTitle
	}
	if tvgName == "" {
		tvgName = title
	}
	tvgID, _ := Attribute(extinf, "tvg-id")
	logo, _ := Attribute(extinf, "tvg-logo")

	return pendingEntry{
		name:    ExternalPrefix + title,
		tvgName: ExternalPrefix + tvgName,
		tvgID:   tvgID,
		logo:    logo,
	}
}
