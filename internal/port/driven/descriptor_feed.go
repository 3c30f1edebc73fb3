package driven

import (
	"context"

	"github.com/usanli/acestream-playlist/internal/catalog"
)

// DescriptorFeed defines the interface for retrieving the channel catalog.
// This is a driven port that will be implemented by concrete adapters (e.g., the AceStream search API).
type DescriptorFeed interface {
	// FetchAll retrieves every descriptor of the catalog, walking all pages.
	// Any transport or decoding failure aborts the whole fetch.
	FetchAll(ctx context.Context) ([]catalog.Descriptor, error)
}
