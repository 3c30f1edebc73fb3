package rules

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors
var (
	ErrEmptyCountryCode     = errors.New("country code cannot be empty")
	ErrEmptyGroupName       = errors.New("group name cannot be empty")
	ErrDuplicateCountryCode = errors.New("duplicate country code")
	ErrDuplicateCountryName = errors.New("duplicate country name")
	ErrDuplicateSourceTag   = errors.New("source tag mapped by more than one category")
)

// CountryRow maps a country code to a display group.
type CountryRow struct {
	Code     string   `yaml:"code"`
	Name     string   `yaml:"name"`
	External []string `yaml:"external,omitempty"`
}

// CategoryRow maps a set of source category tags to a display group.
type CategoryRow struct {
	Sources  []string `yaml:"sources"`
	Name     string   `yaml:"name"`
	External []string `yaml:"external,omitempty"`
}

// OverrideRule force-assigns infohashes to a display group.
type OverrideRule struct {
	Group      string   `yaml:"group"`
	Infohashes []string `yaml:"infohashes"`
}

// Spec is the serializable form of the rule tables.
// Row order is significant: it defines the group order of the playlist.
type Spec struct {
	Categories        []CategoryRow  `yaml:"categories"`
	Countries         []CountryRow   `yaml:"countries"`
	CategoryOverrides []OverrideRule `yaml:"category_overrides"`
	CountryOverrides  []OverrideRule `yaml:"country_overrides"`
	Blacklist         []string       `yaml:"blacklist"`
}

// ExternalSource is one external playlist URL bound to a display group.
type ExternalSource struct {
	Group string
	URL   string
}

// Tables is the validated, immutable rule set used by a pipeline run.
type Tables struct {
	countries  []CountryRow
	categories []CategoryRow

	countryByCode    map[string]int
	countryByName    map[string]int
	categoryBySource map[string]int

	categoryOverrides []OverrideRule
	countryOverrides  []OverrideRule
	blacklist         map[string]bool
}

// New validates spec and builds Tables from it.
// Country codes and category source tags are normalized to lower case.
// All validation problems are reported together.
func New(spec Spec) (*Tables, error) {
	var errs []error

	t := &Tables{
		countryByCode:    make(map[string]int, len(spec.Countries)),
		countryByName:    make(map[string]int, len(spec.Countries)),
		categoryBySource: make(map[string]int),
		blacklist:        make(map[string]bool, len(spec.Blacklist)),
	}

	for i, row := range spec.Countries {
		code := strings.ToLower(strings.TrimSpace(row.Code))
		name := strings.TrimSpace(row.Name)
		switch {
		case code == "":
			errs = append(errs, fmt.Errorf("country %d: %w", i, ErrEmptyCountryCode))
			continue
		case name == "":
			errs = append(errs, fmt.Errorf("country %q: %w", code, ErrEmptyGroupName))
			continue
		}
		if _, exists := t.countryByCode[code]; exists {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicateCountryCode, code))
			continue
		}
		if _, exists := t.countryByName[name]; exists {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicateCountryName, name))
			continue
		}

		t.countryByCode[code] = len(t.countries)
		t.countryByName[name] = len(t.countries)
		t.countries = append(t.countries, CountryRow{
			Code:     code,
			Name:     name,
			External: cleanList(row.External),
		})
	}

	for i, row := range spec.Categories {
		name := strings.TrimSpace(row.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("category %d: %w", i, ErrEmptyGroupName))
			continue
		}

		idx := len(t.categories)
		sources := make([]string, 0, len(row.Sources))
		for _, src := range row.Sources {
			tag := strings.ToLower(strings.TrimSpace(src))
			if tag == "" {
				continue
			}
			if owner, exists := t.categoryBySource[tag]; exists {
				if owner != idx {
					errs = append(errs, fmt.Errorf("%w: %q (%s, %s)", ErrDuplicateSourceTag, tag, t.categories[owner].Name, name))
				}
				continue
			}
			t.categoryBySource[tag] = idx
			sources = append(sources, tag)
		}

		t.categories = append(t.categories, CategoryRow{
			Sources:  sources,
			Name:     name,
			External: cleanList(row.External),
		})
	}

	var err error
	if t.categoryOverrides, err = buildOverrides("category_overrides", spec.CategoryOverrides); err != nil {
		errs = append(errs, err)
	}
	if t.countryOverrides, err = buildOverrides("country_overrides", spec.CountryOverrides); err != nil {
		errs = append(errs, err)
	}

	for _, h := range spec.Blacklist {
		if h = strings.TrimSpace(h); h != "" {
			t.blacklist[h] = true
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid rule tables: %w", errors.Join(errs...))
	}

	return t, nil
}

func buildOverrides(section string, rules []OverrideRule) ([]OverrideRule, error) {
	result := make([]OverrideRule, 0, len(rules))
	for i, rule := range rules {
		group := strings.TrimSpace(rule.Group)
		if group == "" {
			return nil, fmt.Errorf("%s %d: %w", section, i, ErrEmptyGroupName)
		}
		result = append(result, OverrideRule{
			Group:      group,
			Infohashes: cleanList(rule.Infohashes),
		})
	}
	return result, nil
}

func cleanList(values []string) []string {
	var result []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}

// Countries returns the country table in configured order.
func (t *Tables) Countries() []CountryRow {
	return append([]CountryRow(nil), t.countries...)
}

// Categories returns the category table in configured order.
func (t *Tables) Categories() []CategoryRow {
	return append([]CategoryRow(nil), t.categories...)
}

// CountryByCode looks up a country row by its (case-insensitive) code.
func (t *Tables) CountryByCode(code string) (CountryRow, bool) {
	idx, ok := t.countryByCode[strings.ToLower(code)]
	if !ok {
		return CountryRow{}, false
	}
	return t.countries[idx], true
}

// CountryByName looks up a country row by its display name.
func (t *Tables) CountryByName(name string) (CountryRow, bool) {
	idx, ok := t.countryByName[name]
	if !ok {
		return CountryRow{}, false
	}
	return t.countries[idx], true
}

// CategoryBySource finds the category row mapping the (case-insensitive) tag.
func (t *Tables) CategoryBySource(tag string) (CategoryRow, bool) {
	idx, ok := t.categoryBySource[strings.ToLower(tag)]
	if !ok {
		return CategoryRow{}, false
	}
	return t.categories[idx], true
}

// CategoryOverridesFor returns, in configured order, the groups whose
// category override lists the infohash.
func (t *Tables) CategoryOverridesFor(infohash string) []string {
	return overridesFor(t.categoryOverrides, infohash)
}

// CountryOverridesFor returns, in configured order, the groups whose
// country override lists the infohash.
func (t *Tables) CountryOverridesFor(infohash string) []string {
	return overridesFor(t.countryOverrides, infohash)
}

func overridesFor(rules []OverrideRule, infohash string) []string {
	var groups []string
	for _, rule := range rules {
		for _, h := range rule.Infohashes {
			if h == infohash {
				groups = append(groups, rule.Group)
				break
			}
		}
	}
	return groups
}

// Blacklisted reports whether the infohash must be excluded.
func (t *Tables) Blacklisted(infohash string) bool {
	return t.blacklist[infohash]
}

// ExternalSources lists every external playlist URL with its group,
// categories first and then countries, each in table order.
func (t *Tables) ExternalSources() []ExternalSource {
	var sources []ExternalSource
	for _, row := range t.categories {
		for _, u := range row.External {
			sources = append(sources, ExternalSource{Group: row.Name, URL: u})
		}
	}
	for _, row := range t.countries {
		for _, u := range row.External {
			sources = append(sources, ExternalSource{Group: row.Name, URL: u})
		}
	}
	return sources
}
