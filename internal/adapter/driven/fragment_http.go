package driven

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/usanli/acestream-playlist/internal/circuitbreaker"
	"github.com/usanli/acestream-playlist/internal/port/driven"
)

const (
	defaultFragmentTimeout = 15 * time.Second
	maxFragmentSize        = 16 * 1024 * 1024
)

// FragmentHTTPSource implements the FragmentSource port over HTTP.
// Every URL gets its own circuit breaker so one dead mirror is skipped
// quickly without affecting the others.
type FragmentHTTPSource struct {
	client   *http.Client
	breakers *circuitbreaker.Set
}

// NewFragmentHTTPSource creates a fragment source.
// If client is nil, it creates a default HTTP client with a 15-second timeout.
// If breakers is nil, fetches are not guarded.
func NewFragmentHTTPSource(client *http.Client, breakers *circuitbreaker.Set) *FragmentHTTPSource {
	if client == nil {
		client = &http.Client{Timeout: defaultFragmentTimeout}
	}
	return &FragmentHTTPSource{
		client:   client,
		breakers: breakers,
	}
}

// Fetch downloads the playlist at url.
// Returns circuitbreaker.ErrCircuitOpen without a request while the URL's breaker is open.
func (s *FragmentHTTPSource) Fetch(ctx context.Context, url string) ([]byte, error) {
	if s.breakers == nil {
		return s.fetch(ctx, url)
	}

	var body []byte
	err := s.breakers.Get(url).Execute(func() error {
		var err error
		body, err = s.fetch(ctx, url)
		return err
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (s *FragmentHTTPSource) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected HTTP status from %s: %d %s", url, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFragmentSize))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return body, nil
}

// Ensure FragmentHTTPSource implements the driven.FragmentSource interface
var _ driven.FragmentSource = (*FragmentHTTPSource)(nil)
