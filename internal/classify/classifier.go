package classify

import (
	"sort"
	"strings"

	"github.com/usanli/acestream-playlist/internal/catalog"
	"github.com/usanli/acestream-playlist/internal/entry"
	"github.com/usanli/acestream-playlist/internal/rules"
)

// Classifier turns descriptors into grouped playlist entries.
type Classifier struct {
	strategies []Strategy
	streamBase string
}

// New creates a Classifier using the default precedence chain over tables.
// streamBase is the playback URL the infohash is appended to.
func New(tables *rules.Tables, streamBase string) *Classifier {
	return NewWithStrategies(DefaultStrategies(tables), streamBase)
}

// NewWithStrategies creates a Classifier with an explicit precedence chain.
func NewWithStrategies(strategies []Strategy, streamBase string) *Classifier {
	return &Classifier{
		strategies: strategies,
		streamBase: streamBase,
	}
}

// Classify returns the de-duplicated group assignments of one stream item.
// The result is empty when the item is blacklisted or matches no rule.
func (c *Classifier) Classify(item catalog.StreamItem) []Assignment {
	var result []Assignment
	seen := make(map[string]bool)

	for _, s := range c.strategies {
		outcome := s.Apply(item)
		for _, a := range outcome.Assignments {
			if seen[a.Group] {
				continue
			}
			seen[a.Group] = true
			result = append(result, a)
		}
		if outcome.Matched && outcome.Stop {
			break
		}
	}

	return result
}

// Entries builds one entry per assignment of the stream item.
func (c *Classifier) Entries(d catalog.Descriptor, item catalog.StreamItem) []entry.Entry {
	assignments := c.Classify(item)
	if len(assignments) == 0 {
		return nil
	}

	streamURL := StreamURL(c.streamBase, item.Infohash())
	entries := make([]entry.Entry, 0, len(assignments))
	for _, a := range assignments {
		name := d.Name()
		if a.CountryCode != "" {
			name = "[" + strings.ToUpper(a.CountryCode) + "] " + name
		}
		entries = append(entries, entry.New(name, streamURL, entry.Options{
			TvgName:  name,
			TvgID:    item.ChannelID(),
			Logo:     d.Logo(),
			Group:    a.Group,
			EPGTitle: d.EPGTitle(),
		}))
	}
	return entries
}

// Run classifies every stream item of every descriptor.
func (c *Classifier) Run(descriptors []catalog.Descriptor) *Result {
	r := newResult()
	blacklist := c.blacklistStrategy()

	for _, d := range descriptors {
		for _, item := range d.Items() {
			if blacklist != nil && blacklist.Apply(item).Matched {
				r.diagnostics.Blacklisted++
				continue
			}

			r.observe(item)

			entries := c.Entries(d, item)
			if len(entries) == 0 {
				r.diagnostics.Unassigned++
				continue
			}
			for _, e := range entries {
				r.add(e, d.Name()+": "+item.Infohash())
			}
		}
	}

	return r
}

func (c *Classifier) blacklistStrategy() Strategy {
	for _, s := range c.strategies {
		if _, ok := s.(blacklist); ok {
			return s
		}
	}
	return nil
}

// StreamURL appends the infohash query parameter to base.
func StreamURL(base, infohash string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "infohash=" + infohash
}

// Diagnostics summarizes one classification run for logging.
type Diagnostics struct {
	Countries   []string            // distinct country codes seen, sorted
	Categories  []string            // distinct category tags seen, sorted
	Members     map[string][]string // group -> "name: infohash"
	Blacklisted int
	Unassigned  int
}

// Result holds the entries of a classification run grouped by display group.
type Result struct {
	order       []string
	entries     map[string][]entry.Entry
	countries   map[string]bool
	categories  map[string]bool
	diagnostics Diagnostics
}

func newResult() *Result {
	return &Result{
		entries:    make(map[string][]entry.Entry),
		countries:  make(map[string]bool),
		categories: make(map[string]bool),
		diagnostics: Diagnostics{
			Members: make(map[string][]string),
		},
	}
}

func (r *Result) observe(item catalog.StreamItem) {
	for _, c := range item.Countries() {
		r.countries[c] = true
	}
	for _, c := range item.Categories() {
		r.categories[c] = true
	}
}

func (r *Result) add(e entry.Entry, member string) {
	g := e.Group()
	if _, exists := r.entries[g]; !exists {
		r.order = append(r.order, g)
	}
	r.entries[g] = append(r.entries[g], e)
	r.diagnostics.Members[g] = append(r.diagnostics.Members[g], member)
}

// GroupNames returns the groups in the order they were first assigned.
func (r *Result) GroupNames() []string {
	return append([]string(nil), r.order...)
}

// Entries returns the entries of a group in classification order.
func (r *Result) Entries(group string) []entry.Entry {
	return r.entries[group]
}

// Len returns the total number of entries across all groups.
func (r *Result) Len() int {
	n := 0
	for _, es := range r.entries {
		n += len(es)
	}
	return n
}

// Diagnostics returns the observability summary of the run.
func (r *Result) Diagnostics() Diagnostics {
	d := r.diagnostics
	d.Countries = sortedKeys(r.countries)
	d.Categories = sortedKeys(r.categories)
	return d
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
