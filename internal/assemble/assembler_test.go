package assemble

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/usanli/acestream-playlist/internal/entry"
	"github.com/usanli/acestream-playlist/internal/rules"
)

type mockGrouping struct {
	order   []string
	entries map[string][]entry.Entry
}

func (m *mockGrouping) GroupNames() []string {
	return m.order
}

func (m *mockGrouping) Entries(group string) []entry.Entry {
	return m.entries[group]
}

func newGrouping(es ...entry.Entry) *mockGrouping {
	g := &mockGrouping{entries: make(map[string][]entry.Entry)}
	for _, e := range es {
		if _, ok := g.entries[e.Group()]; !ok {
			g.order = append(g.order, e.Group())
		}
		g.entries[e.Group()] = append(g.entries[e.Group()], e)
	}
	return g
}

func testTables(t *testing.T) *rules.Tables {
	t.Helper()
	tables, err := rules.New(rules.Spec{
		Categories: []rules.CategoryRow{
			{Sources: []string{"movies"}, Name: "Кино", External: []string{"http://ext/movies.m3u"}},
			{Sources: []string{"music"}, Name: "Музыка"},
		},
		Countries: []rules.CountryRow{
			{Code: "ru", Name: "Россия"},
			{Code: "ua", Name: "Украина"},
		},
	})
	if err != nil {
		t.Fatalf("failed to build tables: %v", err)
	}
	return tables
}

func groupsOf(doc Document) []string {
	var groups []string
	for _, s := range doc.Sections() {
		groups = append(groups, s.Group)
	}
	return groups
}

func TestAssembler_Assemble(t *testing.T) {
	t.Run("orders categories, countries, then leftovers", func(t *testing.T) {
		internal := newGrouping(
			entry.New("Special", "http://s", entry.Options{Group: "Особое"}),
			entry.New("[UA] One", "http://1", entry.Options{Group: "Украина"}),
			entry.New("Two", "http://2", entry.Options{Group: "Кино"}),
			entry.New("[RU] Two", "http://2", entry.Options{Group: "Россия"}),
		)

		doc := New(testTables(t), "").Assemble(internal, nil)

		want := []string{"Кино", "Россия", "Украина", "Особое"}
		if got := groupsOf(doc); !reflect.DeepEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
		if doc.Len() != 4 {
			t.Errorf("expected 4 entries, got %d", doc.Len())
		}
	})

	t.Run("internal entries precede external ones", func(t *testing.T) {
		internal := newGrouping(entry.New("Film", "http://f", entry.Options{Group: "Кино"}))
		external := map[string][]entry.Entry{
			"Кино": {entry.New("External Match A", "http://x/y", entry.Options{Group: "Кино"})},
		}

		doc := New(testTables(t), "").Assemble(internal, external)

		sections := doc.Sections()
		if len(sections) != 1 {
			t.Fatalf("expected 1 section, got %d", len(sections))
		}
		if len(sections[0].Entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(sections[0].Entries))
		}
		if sections[0].Entries[0].Name() != "Film" || sections[0].Entries[1].Name() != "External Match A" {
			t.Errorf("unexpected order %q, %q", sections[0].Entries[0].Name(), sections[0].Entries[1].Name())
		}
	})

	t.Run("external-only group is emitted", func(t *testing.T) {
		external := map[string][]entry.Entry{
			"Музыка": {entry.New("External Song", "http://m", entry.Options{Group: "Музыка"})},
		}

		doc := New(testTables(t), "").Assemble(newGrouping(), external)

		if got := groupsOf(doc); !reflect.DeepEqual(got, []string{"Музыка"}) {
			t.Errorf("unexpected groups %v", got)
		}
	})

	t.Run("empty input renders header only", func(t *testing.T) {
		doc := New(testTables(t), "").Assemble(nil, nil)

		if len(doc.Sections()) != 0 {
			t.Errorf("expected no sections, got %v", groupsOf(doc))
		}
		if doc.Render() != "#EXTM3U\n" {
			t.Errorf("unexpected document %q", doc.Render())
		}
	})
}

func TestDocument_Render(t *testing.T) {
	internal := newGrouping(
		entry.New("[RU] Alpha", "http://engine/?infohash=h1", entry.Options{Group: "Россия"}),
	)

	doc := New(testTables(t), "http://epg/guide.xml").Assemble(internal, nil)

	want := "#EXTM3U x-tvg-url=\"http://epg/guide.xml\"\n" +
		"#EXTGRP:Россия\n" +
		"#EXTINF:-1 tvg-name=\"[RU] Alpha\" group-title=\"Россия\",[RU] Alpha\n" +
		"http://engine/?infohash=h1\n"
	if got := doc.Render(); got != want {
		t.Errorf("unexpected document:\nwant %q\ngot  %q", want, got)
	}

	var buf bytes.Buffer
	n, err := doc.WriteTo(&buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != want || n != int64(len(want)) {
		t.Errorf("WriteTo wrote %d bytes %q", n, buf.String())
	}
	if strings.Count(buf.String(), "#EXTM3U") != 1 {
		t.Error("expected exactly one header line")
	}
}
