package assemble

import (
	"io"

	"github.com/usanli/acestream-playlist/internal/entry"
	"github.com/usanli/acestream-playlist/internal/m3u"
	"github.com/usanli/acestream-playlist/internal/rules"
)

// Grouping is a set of entries keyed by display group, with groups listed in
// first-encountered order.
type Grouping interface {
	GroupNames() []string
	Entries(group string) []entry.Entry
}

// Section is one display group of the playlist document.
type Section struct {
	Group   string
	Entries []entry.Entry
}

// Document is the ordered, fully assembled playlist.
type Document struct {
	epgURL   string
	sections []Section
}

// Sections returns the document sections in output order.
func (d Document) Sections() []Section {
	return d.sections
}

// Len returns the total number of entries in the document.
func (d Document) Len() int {
	n := 0
	for _, s := range d.sections {
		n += len(s.Entries)
	}
	return n
}

// WriteTo writes the rendered document to w.
func (d Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	err := d.encoder().Encode(cw)
	return cw.n, err
}

// Render returns the rendered document.
func (d Document) Render() string {
	return d.encoder().String()
}

func (d Document) encoder() *m3u.Encoder {
	enc := m3u.NewEncoder(d.epgURL)
	for _, s := range d.sections {
		enc.Add(s.Entries...)
	}
	return enc
}

// Assembler orders classified and external entries into a Document.
type Assembler struct {
	tables *rules.Tables
	epgURL string
}

// New creates an Assembler over the given rule tables. A non-empty epgURL is
// announced in the document header.
func New(tables *rules.Tables, epgURL string) *Assembler {
	return &Assembler{
		tables: tables,
		epgURL: epgURL,
	}
}

// Assemble builds the document. Category groups come first in table order,
// then country groups in table order, then any remaining internal groups in
// first-encountered order. Within a group internal entries precede external
// ones. Groups without entries are omitted.
func (a *Assembler) Assemble(internal Grouping, external map[string][]entry.Entry) Document {
	doc := Document{epgURL: a.epgURL}
	emitted := make(map[string]bool)

	emit := func(group string) {
		if emitted[group] {
			return
		}
		emitted[group] = true

		var entries []entry.Entry
		if internal != nil {
			entries = append(entries, internal.Entries(group)...)
		}
		entries = append(entries, external[group]...)
		if len(entries) == 0 {
			return
		}
		doc.sections = append(doc.sections, Section{Group: group, Entries: entries})
	}

	for _, row := range a.tables.Categories() {
		emit(row.Name)
	}
	for _, row := range a.tables.Countries() {
		emit(row.Name)
	}
	if internal != nil {
		for _, group := range internal.GroupNames() {
			emit(group)
		}
	}

	return doc
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
