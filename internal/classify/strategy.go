package classify

import (
	"github.com/usanli/acestream-playlist/internal/catalog"
	"github.com/usanli/acestream-playlist/internal/rules"
)

// Assignment places a stream item into a display group.
// CountryCode is empty when the group carries no country prefix.
type Assignment struct {
	Group       string
	CountryCode string
}

// Outcome is the result of one strategy for one stream item.
type Outcome struct {
	// Matched reports whether the rule applied to the item.
	Matched bool
	// Assignments produced by the rule. Empty for an exclusion.
	Assignments []Assignment
	// Stop skips every lower-precedence strategy.
	Stop bool
}

// Strategy is one precedence level of the classification rules.
type Strategy interface {
	Name() string
	Apply(item catalog.StreamItem) Outcome
}

// DefaultStrategies returns the precedence chain, highest first:
// blacklist, category override, country override, category map, country map.
func DefaultStrategies(tables *rules.Tables) []Strategy {
	return []Strategy{
		blacklist{tables: tables},
		categoryOverride{tables: tables},
		countryOverride{tables: tables},
		categoryMap{tables: tables},
		countryMap{tables: tables},
	}
}

type blacklist struct {
	tables *rules.Tables
}

func (blacklist) Name() string { return "blacklist" }

func (s blacklist) Apply(item catalog.StreamItem) Outcome {
	if s.tables.Blacklisted(item.Infohash()) {
		return Outcome{Matched: true, Stop: true}
	}
	return Outcome{}
}

type categoryOverride struct {
	tables *rules.Tables
}

func (categoryOverride) Name() string { return "category_override" }

func (s categoryOverride) Apply(item catalog.StreamItem) Outcome {
	groups := s.tables.CategoryOverridesFor(item.Infohash())
	if len(groups) == 0 {
		return Outcome{}
	}

	assignments := make([]Assignment, 0, len(groups))
	for _, g := range groups {
		assignments = append(assignments, Assignment{Group: g})
	}
	return Outcome{Matched: true, Assignments: assignments, Stop: true}
}

type countryOverride struct {
	tables *rules.Tables
}

func (countryOverride) Name() string { return "country_override" }

func (s countryOverride) Apply(item catalog.StreamItem) Outcome {
	groups := s.tables.CountryOverridesFor(item.Infohash())
	if len(groups) == 0 {
		return Outcome{}
	}

	assignments := make([]Assignment, 0, len(groups))
	for _, g := range groups {
		a := Assignment{Group: g}
		if row, ok := s.tables.CountryByName(g); ok {
			a.CountryCode = row.Code
		}
		assignments = append(assignments, a)
	}
	return Outcome{Matched: true, Assignments: assignments, Stop: true}
}

type categoryMap struct {
	tables *rules.Tables
}

func (categoryMap) Name() string { return "category_map" }

func (s categoryMap) Apply(item catalog.StreamItem) Outcome {
	var assignments []Assignment
	for _, tag := range item.Categories() {
		if row, ok := s.tables.CategoryBySource(tag); ok {
			assignments = append(assignments, Assignment{Group: row.Name})
		}
	}
	return Outcome{Matched: len(assignments) > 0, Assignments: assignments}
}

type countryMap struct {
	tables *rules.Tables
}

func (countryMap) Name() string { return "country_map" }

func (s countryMap) Apply(item catalog.StreamItem) Outcome {
	var assignments []Assignment
	for _, code := range item.Countries() {
		if row, ok := s.tables.CountryByCode(code); ok {
			assignments = append(assignments, Assignment{Group: row.Name, CountryCode: row.Code})
		}
	}
	return Outcome{Matched: len(assignments) > 0, Assignments: assignments}
}
