package driven

import "context"

// FragmentSource defines the interface for downloading external playlist fragments.
type FragmentSource interface {
	// Fetch returns the raw body of the playlist at url.
	Fetch(ctx context.Context, url string) ([]byte, error)
}
