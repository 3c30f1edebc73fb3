package driven

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/usanli/acestream-playlist/internal/catalog"
	"github.com/usanli/acestream-playlist/internal/port/driven"
)

const (
	defaultSearchTimeout  = 15 * time.Second
	defaultPageSize       = 10
	defaultMaxPages       = 1000
	defaultRetryAttempts  = 3
	defaultRetryDelay     = time.Second
	maxSearchResponseSize = 32 * 1024 * 1024
)

// SearchConfig configures the AceStream search adapter.
type SearchConfig struct {
	URL           string
	PageSize      int
	MaxPages      int
	RetryAttempts int
	RetryDelay    time.Duration
}

// AceStreamSearchHTTPAdapter implements the DescriptorFeed port by walking
// the paginated AceStream engine search API.
type AceStreamSearchHTTPAdapter struct {
	cfg    SearchConfig
	client *http.Client
	logger *slog.Logger
}

// NewAceStreamSearchHTTPAdapter creates a new search adapter.
// If client is nil, it creates a default HTTP client with a 15-second timeout.
func NewAceStreamSearchHTTPAdapter(cfg SearchConfig, client *http.Client, logger *slog.Logger) *AceStreamSearchHTTPAdapter {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxPages
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = defaultRetryAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if client == nil {
		client = &http.Client{Timeout: defaultSearchTimeout}
	}
	return &AceStreamSearchHTTPAdapter{
		cfg:    cfg,
		client: client,
		logger: logger,
	}
}

// searchResponse is the envelope returned by the search endpoint.
type searchResponse struct {
	Result struct {
		Results []searchResult `json:"results"`
		Total   json.Number    `json:"total"`
	} `json:"result"`
}

type searchResult struct {
	Name      string       `json:"name"`
	ChannelID flexString   `json:"channel_id"`
	Icons     []searchIcon `json:"icons"`
	EPG       []searchEPG  `json:"epg"`
	Items     []searchItem `json:"items"`
}

type searchIcon struct {
	Type int    `json:"type"`
	URL  string `json:"url"`
}

type searchEPG struct {
	Name string `json:"name"`
}

type searchItem struct {
	Infohash   string     `json:"infohash"`
	ChannelID  flexString `json:"channel_id"`
	Countries  []string   `json:"countries"`
	Categories []string   `json:"categories"`
}

// flexString accepts both JSON strings and numbers; channel ids arrive as either.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("channel_id must be a string or number: %w", err)
	}
	*f = flexString(n.String())
	return nil
}

// FetchAll walks pages starting at 1 until a page returns no results.
// The reported total is logged but not used for termination.
func (a *AceStreamSearchHTTPAdapter) FetchAll(ctx context.Context) ([]catalog.Descriptor, error) {
	var descriptors []catalog.Descriptor
	var rawCount int

	for page := 1; ; page++ {
		if page > a.cfg.MaxPages {
			a.logger.Warn("search page limit reached", "max_pages", a.cfg.MaxPages, "collected", rawCount)
			break
		}

		resp, err := a.fetchPageWithRetry(ctx, page)
		if err != nil {
			return nil, err
		}

		results := resp.Result.Results
		if len(results) == 0 {
			a.logger.Info("no more search results", "page", page)
			break
		}

		rawCount += len(results)
		for _, r := range results {
			descriptors = append(descriptors, a.toDescriptor(r))
		}

		a.logger.Info("collected search results",
			"page", page,
			"collected", rawCount,
			"total", resp.Result.Total.String(),
		)
	}

	return descriptors, nil
}

func (a *AceStreamSearchHTTPAdapter) fetchPageWithRetry(ctx context.Context, page int) (*searchResponse, error) {
	resp, err := retry.DoWithData(
		func() (*searchResponse, error) {
			return a.fetchPage(ctx, page)
		},
		retry.Context(ctx),
		retry.Attempts(uint(a.cfg.RetryAttempts)),
		retry.Delay(a.cfg.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			a.logger.Warn("search page request failed, retrying",
				"page", page,
				"attempt", n+1,
				"error", err,
			)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("fetching search page %d: %w", page, err)
	}
	return resp, nil
}

func (a *AceStreamSearchHTTPAdapter) fetchPage(ctx context.Context, page int) (*searchResponse, error) {
	u, err := url.Parse(a.cfg.URL)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("parsing search URL: %w", err))
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(a.cfg.PageSize))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("creating HTTP request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	httpResp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting search results: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected HTTP status: %w", &statusError{code: httpResp.StatusCode})
	}

	var resp searchResponse
	dec := json.NewDecoder(io.LimitReader(httpResp.Body, maxSearchResponseSize))
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	return &resp, nil
}

func (a *AceStreamSearchHTTPAdapter) toDescriptor(r searchResult) catalog.Descriptor {
	logos := make([]catalog.LogoCandidate, 0, len(r.Icons))
	for _, icon := range r.Icons {
		logos = append(logos, catalog.LogoCandidate{Type: icon.Type, URL: icon.URL})
	}

	var epgTitle string
	if len(r.EPG) > 0 {
		epgTitle = r.EPG[0].Name
	}

	items := make([]catalog.StreamItem, 0, len(r.Items))
	for _, it := range r.Items {
		item, err := catalog.NewStreamItem(it.Infohash, string(it.ChannelID), it.Countries, it.Categories)
		if err != nil {
			a.logger.Debug("skipping stream item", "channel", r.Name, "error", err)
			continue
		}
		items = append(items, item)
	}

	return catalog.NewDescriptor(r.Name, epgTitle, string(r.ChannelID), logos, items)
}

// isRetryable reports whether a page request is worth repeating.
// 4xx responses are final; everything else is retried.
func isRetryable(err error) bool {
	var statusErr *statusError
	if errors.As(err, &statusErr) {
		return statusErr.code < 400 || statusErr.code >= 500
	}
	return true
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%d %s", e.code, http.StatusText(e.code))
}

// Ensure AceStreamSearchHTTPAdapter implements the driven.DescriptorFeed interface
var _ driven.DescriptorFeed = (*AceStreamSearchHTTPAdapter)(nil)
