package catalog

import (
	"errors"
	"strings"
)

// Domain errors
var (
	ErrEmptyInfohash = errors.New("infohash cannot be empty")
)

// UnknownName is used for descriptors that arrive without a name.
const UnknownName = "Unknown"

// LogoCandidate is one logo URL offered by the search service.
// Type 0 marks the preferred kind of logo.
type LogoCandidate struct {
	Type int
	URL  string
}

// StreamItem represents one playable stream of a descriptor.
type StreamItem struct {
	infohash   string
	channelID  string
	countries  []string
	categories []string
}

// NewStreamItem creates a StreamItem. Countries and categories are
// lower-cased, trimmed and de-duplicated, preserving their first position.
// Returns ErrEmptyInfohash if the infohash is empty or whitespace.
func NewStreamItem(infohash, channelID string, countries, categories []string) (StreamItem, error) {
	trimmed := strings.TrimSpace(infohash)
	if trimmed == "" {
		return StreamItem{}, ErrEmptyInfohash
	}

	return StreamItem{
		infohash:   trimmed,
		channelID:  strings.TrimSpace(channelID),
		countries:  normalizeTags(countries),
		categories: normalizeTags(categories),
	}, nil
}

// Infohash returns the stream identity key.
func (s StreamItem) Infohash() string {
	return s.infohash
}

// ChannelID returns the opaque channel id, or "" if absent.
func (s StreamItem) ChannelID() string {
	return s.channelID
}

// Countries returns the lower-case country codes of the stream.
func (s StreamItem) Countries() []string {
	return s.countries
}

// Categories returns the lower-case category tags of the stream.
func (s StreamItem) Categories() []string {
	return s.categories
}

// Descriptor represents one logical channel entry of the search feed.
type Descriptor struct {
	name     string
	epgTitle string
	logo     string
	items    []StreamItem
}

// NewDescriptor creates a Descriptor. A blank name becomes UnknownName.
// The logo is picked from the candidates with PickLogo.
// Items without a channel id inherit channelID.
func NewDescriptor(name, epgTitle, channelID string, logos []LogoCandidate, items []StreamItem) Descriptor {
	trimmedName := strings.TrimSpace(name)
	if trimmedName == "" {
		trimmedName = UnknownName
	}

	channelID = strings.TrimSpace(channelID)
	resolved := make([]StreamItem, len(items))
	for i, item := range items {
		if item.channelID == "" {
			item.channelID = channelID
		}
		resolved[i] = item
	}

	return Descriptor{
		name:     trimmedName,
		epgTitle: strings.TrimSpace(epgTitle),
		logo:     PickLogo(logos),
		items:    resolved,
	}
}

// Name returns the descriptor name.
func (d Descriptor) Name() string {
	return d.name
}

// EPGTitle returns the first program title, or "" if unknown.
func (d Descriptor) EPGTitle() string {
	return d.epgTitle
}

// Logo returns the chosen logo URL, or "" if none.
func (d Descriptor) Logo() string {
	return d.logo
}

// Items returns the stream items of the descriptor.
func (d Descriptor) Items() []StreamItem {
	return d.items
}

// PickLogo returns the first type-0 candidate with a URL, otherwise the first
// candidate with a URL, otherwise "".
func PickLogo(candidates []LogoCandidate) string {
	for _, c := range candidates {
		if c.Type == 0 && c.URL != "" {
			return c.URL
		}
	}
	for _, c := range candidates {
		if c.URL != "" {
			return c.URL
		}
	}
	return ""
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		result = append(result, t)
	}
	return result
}
