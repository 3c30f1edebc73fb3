package m3u

import (
	"regexp"
	"strings"
)

const extinfPrefix = "#EXTINF:"

var attrRegex = regexp.MustCompile(`([a-zA-Z0-9_-]+)="([^"]*)"`)

// Attribute returns the value of a quoted attribute (e.g. tvg-id) of an
// #EXTINF line and whether it is present.
func Attribute(extinf string, key string) (string, bool) {
	if !strings.HasPrefix(extinf, extinfPrefix) {
		return "", false
	}

	for _, m := range attrRegex.FindAllStringSubmatch(attrSection(extinf), -1) {
		if m[1] == key {
			return m[2], true
		}
	}
	return "", false
}

// Title returns the text after the last comma of an #EXTINF line,
// or "" if the line has no comma.
func Title(extinf string) string {
	if !strings.HasPrefix(extinf, extinfPrefix) {
		return ""
	}

	commaIdx := strings.LastIndex(extinf, ",")
	if commaIdx == -1 {
		return ""
	}
	return strings.TrimSpace(extinf[commaIdx+1:])
}

// attrSection strips the display title so that quoted text inside the title
// is not mistaken for an attribute.
func attrSection(extinf string) string {
	inQuotes := false
	for i, r := range extinf {
		switch r {
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				return extinf[:i]
			}
		}
	}
	return extinf
}
