package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/usanli/acestream-playlist/internal/assemble"
	"github.com/usanli/acestream-playlist/internal/classify"
	"github.com/usanli/acestream-playlist/internal/entry"
	"github.com/usanli/acestream-playlist/internal/m3u"
	"github.com/usanli/acestream-playlist/internal/metrics"
	"github.com/usanli/acestream-playlist/internal/port/driven"
	"github.com/usanli/acestream-playlist/internal/rules"
)

const (
	defaultExternalConcurrency = 4
	defaultWarmupAttempts      = 10
	defaultWarmupDelay         = 5 * time.Second
)

// ErrNotReady is returned by Warmup when no artifact could be produced.
var ErrNotReady = errors.New("playlist not ready")

// RefreshConfig configures the RefreshService.
type RefreshConfig struct {
	TTL                 time.Duration
	StreamBase          string
	EPGURL              string
	ExternalConcurrency int
	WarmupAttempts      int
	WarmupDelay         time.Duration
}

// RefreshResult reports the outcome of a refresh.
// Updated is false when the artifact was fresh and nothing ran.
type RefreshResult struct {
	Updated bool
	Items   int
}

// Status describes the current artifact for health reporting.
type Status struct {
	Ready bool
	Age   time.Duration
	TTL   time.Duration
}

// RefreshService gates playlist rebuilds on the artifact's age and runs the
// fetch, classify, assemble and persist pipeline.
type RefreshService struct {
	feed       driven.DescriptorFeed
	fragments  driven.FragmentSource
	store      driven.ArtifactStore
	tables     *rules.Tables
	classifier *classify.Classifier
	assembler  *assemble.Assembler
	cfg        RefreshConfig
	logger     *slog.Logger
	now        func() time.Time

	flight singleflight.Group
	runMu  sync.Mutex
}

// NewRefreshService creates a new refresh service with the required dependencies.
func NewRefreshService(
	feed driven.DescriptorFeed,
	fragments driven.FragmentSource,
	store driven.ArtifactStore,
	tables *rules.Tables,
	cfg RefreshConfig,
	logger *slog.Logger,
) *RefreshService {
	if cfg.ExternalConcurrency <= 0 {
		cfg.ExternalConcurrency = defaultExternalConcurrency
	}
	if cfg.WarmupAttempts <= 0 {
		cfg.WarmupAttempts = defaultWarmupAttempts
	}
	if cfg.WarmupDelay <= 0 {
		cfg.WarmupDelay = defaultWarmupDelay
	}
	return &RefreshService{
		feed:       feed,
		fragments:  fragments,
		store:      store,
		tables:     tables,
		classifier: classify.New(tables, cfg.StreamBase),
		assembler:  assemble.New(tables, cfg.EPGURL),
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Refresh rebuilds the playlist if it is stale or force is set.
// Concurrent callers of the same kind share one run; runs never overlap.
// On failure the previous artifact is left untouched and the error returned.
func (s *RefreshService) Refresh(ctx context.Context, force bool) (RefreshResult, error) {
	if !force && !s.isStale(ctx) {
		metrics.RecordRefresh(metrics.OutcomeFresh)
		return RefreshResult{}, nil
	}

	key := "stale"
	if force {
		key = "force"
	}

	v, err, _ := s.flight.Do(key, func() (any, error) {
		return s.runExclusive(ctx, force)
	})
	if err != nil {
		return RefreshResult{}, err
	}
	return v.(RefreshResult), nil
}

func (s *RefreshService) runExclusive(ctx context.Context, force bool) (RefreshResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	// A run that finished while we waited may have made the artifact fresh.
	if !force && !s.isStale(ctx) {
		metrics.RecordRefresh(metrics.OutcomeFresh)
		return RefreshResult{}, nil
	}

	logger := s.logger.With("run_id", uuid.NewString(), "forced", force)
	start := s.now()

	items, err := s.run(ctx, logger)
	metrics.ObserveRefreshDuration(s.now().Sub(start))
	if err != nil {
		metrics.RecordRefresh(metrics.OutcomeFailed)
		logger.Error("playlist refresh failed", "error", err)
		return RefreshResult{}, err
	}

	metrics.RecordRefresh(metrics.OutcomeUpdated)
	return RefreshResult{Updated: true, Items: items}, nil
}

func (s *RefreshService) run(ctx context.Context, logger *slog.Logger) (int, error) {
	logger.Info("playlist refresh started")

	descriptors, err := s.feed.FetchAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch descriptors: %w", err)
	}

	result := s.classifier.Run(descriptors)
	s.logDiagnostics(logger, result.Diagnostics())

	external := s.fetchExternals(ctx, logger)

	doc := s.assembler.Assemble(result, external)
	if err := s.store.Write(ctx, doc); err != nil {
		return 0, fmt.Errorf("failed to write playlist: %w", err)
	}

	metrics.SetPlaylistSize(len(descriptors), doc.Len())
	logger.Info("playlist refresh completed",
		"descriptors", len(descriptors),
		"entries", doc.Len(),
		"groups", len(doc.Sections()),
	)

	return len(descriptors), nil
}

// fetchExternals downloads and parses every configured external source.
// A failing source contributes no entries.
func (s *RefreshService) fetchExternals(ctx context.Context, logger *slog.Logger) map[string][]entry.Entry {
	sources := s.tables.ExternalSources()
	parsed := make([][]entry.Entry, len(sources))

	var g errgroup.Group
	g.SetLimit(s.cfg.ExternalConcurrency)

	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			entries, err := s.fetchExternal(ctx, src)
			if err != nil {
				metrics.RecordExternalFetchFailure(src.Group)
				logger.Warn("external playlist skipped",
					"group", src.Group,
					"url", src.URL,
					"error", err,
				)
				return nil
			}
			logger.Debug("external playlist loaded", "group", src.Group, "url", src.URL, "entries", len(entries))
			parsed[i] = entries
			return nil
		})
	}
	_ = g.Wait()

	external := make(map[string][]entry.Entry)
	for i, src := range sources {
		if len(parsed[i]) > 0 {
			external[src.Group] = append(external[src.Group], parsed[i]...)
		}
	}
	return external
}

func (s *RefreshService) fetchExternal(ctx context.Context, src rules.ExternalSource) ([]entry.Entry, error) {
	body, err := s.fragments.Fetch(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	return m3u.ParseFragment(bytes.NewReader(body), src.Group)
}

func (s *RefreshService) logDiagnostics(logger *slog.Logger, d classify.Diagnostics) {
	metrics.RecordItemsDropped(metrics.DropBlacklisted, d.Blacklisted)
	metrics.RecordItemsDropped(metrics.DropUnassigned, d.Unassigned)

	logger.Info("classification finished",
		"countries", d.Countries,
		"categories", d.Categories,
		"groups", len(d.Members),
		"blacklisted", d.Blacklisted,
		"unassigned", d.Unassigned,
	)
	for group, members := range d.Members {
		logger.Debug("group members", "group", group, "count", len(members), "members", members)
	}
}

// isStale reports whether the artifact is missing, older than the TTL in
// whole seconds, or cannot be checked.
func (s *RefreshService) isStale(ctx context.Context) bool {
	modTime, err := s.store.ModTime(ctx)
	if err != nil {
		if !errors.Is(err, driven.ErrArtifactNotFound) {
			s.logger.Warn("failed to check playlist age, treating as stale", "error", err)
		}
		return true
	}

	ageSeconds := int64(s.now().Sub(modTime) / time.Second)
	ttlSeconds := int64(s.cfg.TTL / time.Second)
	return ageSeconds > ttlSeconds
}

// Warmup retries unforced refreshes until an artifact exists.
func (s *RefreshService) Warmup(ctx context.Context) error {
	err := retry.Do(
		func() error {
			if _, err := s.Refresh(ctx, false); err != nil {
				return err
			}
			if _, err := s.store.ModTime(ctx); err != nil {
				return fmt.Errorf("%w: %v", ErrNotReady, err)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(s.cfg.WarmupAttempts)),
		retry.Delay(s.cfg.WarmupDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("initial playlist build failed, retrying",
				"attempt", n+1,
				"max_attempts", s.cfg.WarmupAttempts,
				"delay", s.cfg.WarmupDelay,
				"error", err,
			)
		}),
	)
	if err != nil {
		return fmt.Errorf("initial playlist build failed after %d attempts: %w", s.cfg.WarmupAttempts, err)
	}
	return nil
}

// Status reports the artifact's presence and age.
func (s *RefreshService) Status(ctx context.Context) Status {
	st := Status{TTL: s.cfg.TTL}
	modTime, err := s.store.ModTime(ctx)
	if err != nil {
		return st
	}
	st.Ready = true
	st.Age = s.now().Sub(modTime)
	return st
}

// Open returns the current artifact and its modification time.
// Returns driven.ErrArtifactNotFound if no playlist has been written yet.
func (s *RefreshService) Open(ctx context.Context) (io.ReadSeekCloser, time.Time, error) {
	modTime, err := s.store.ModTime(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}
	f, err := s.store.Open(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}
	return f, modTime, nil
}
