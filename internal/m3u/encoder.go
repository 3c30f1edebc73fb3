package m3u

import (
	"fmt"
	"io"
	"strings"

	"github.com/usanli/acestream-playlist/internal/entry"
)

// Encoder writes a playlist document: one #EXTM3U header line followed by
// the rendered entry blocks, newline separated, with one trailing newline.
type Encoder struct {
	epgURL  string
	entries []entry.Entry
}

// NewEncoder creates an Encoder. A non-empty epgURL is announced on the
// header line as x-tvg-url.
func NewEncoder(epgURL string) *Encoder {
	return &Encoder{epgURL: epgURL}
}

// Add appends entries to the document.
func (e *Encoder) Add(entries ...entry.Entry) {
	e.entries = append(e.entries, entries...)
}

// Len returns the number of entries added so far.
func (e *Encoder) Len() int {
	return len(e.entries)
}

// Encode writes the document to w.
func (e *Encoder) Encode(w io.Writer) error {
	if _, err := io.WriteString(w, e.header()); err != nil {
		return err
	}

	for _, item := range e.entries {
		if _, err := fmt.Fprintf(w, "\n%s", item.Render()); err != nil {
			return err
		}
	}

	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}

	return nil
}

// String returns the encoded document.
func (e *Encoder) String() string {
	var b strings.Builder
	_ = e.Encode(&b)
	return b.String()
}

func (e *Encoder) header() string {
	if e.epgURL == "" {
		return "#EXTM3U"
	}
	return fmt.Sprintf(`#EXTM3U x-tvg-url="%s"`, e.epgURL)
}
