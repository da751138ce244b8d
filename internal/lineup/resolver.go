package lineup

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/paperdesk/paperdesk/internal/model"
	"github.com/paperdesk/paperdesk/internal/resilience"
	"github.com/paperdesk/paperdesk/pkg/scholar"
)

// Resolver looks up one author's metrics with a process-wide throttle.
// It never returns an error: when every attempt fails it degrades to a
// zeroed fallback record tagged with model.SourceFallback, so callers cannot
// forget the failure path.
//
// The throttle state (current delay, last-call time) is shared across all
// calls and guarded by a mutex, so the limit stays global even if lookups
// are ever parallelized.
type Resolver struct {
	client scholar.Client
	cfg    Config
	log    *zap.Logger

	mu           sync.Mutex
	limiter      *rate.Limiter
	currentDelay time.Duration
}

// NewResolver creates a Resolver around the given lookup client. The base
// inter-request delay is drawn once, uniformly from [MinDelay, MaxDelay].
func NewResolver(client scholar.Client, cfg Config) *Resolver {
	base := cfg.MinDelay
	if cfg.MaxDelay > cfg.MinDelay {
		base += time.Duration(rand.Int64N(int64(cfg.MaxDelay - cfg.MinDelay)))
	}
	if base <= 0 {
		base = time.Millisecond
	}
	return &Resolver{
		client:       client,
		cfg:          cfg,
		log:          zap.L().With(zap.String("component", "lineup.resolver")),
		limiter:      rate.NewLimiter(rate.Every(base), 1),
		currentDelay: base,
	}
}

// Resolve returns metrics for the named author. A missing profile returns
// the fallback immediately; transient failures are retried with exponential
// backoff on the shared delay before degrading to the fallback.
func (r *Resolver) Resolve(ctx context.Context, name string) model.AuthorMetrics {
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if err := r.wait(ctx); err != nil {
			r.log.Warn("throttle wait aborted", zap.String("author", name), zap.Error(err))
			return r.fallback(name)
		}

		author, err := r.client.SearchAuthor(ctx, name)
		if err == nil {
			return model.AuthorMetrics{
				Name:        name,
				HIndex:      author.HIndex,
				Citations:   author.Citations,
				Affiliation: author.Affiliation,
				IsIndustry:  r.isIndustry(author.Affiliation),
				Source:      model.SourceLive,
			}
		}

		if errors.Is(err, resilience.ErrNotFound) {
			r.log.Info("no profile found", zap.String("author", name))
			return r.fallback(name)
		}

		r.log.Warn("author lookup failed",
			zap.String("author", name),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		r.backoff()

		if ctx.Err() != nil {
			return r.fallback(name)
		}
	}
	return r.fallback(name)
}

// wait blocks until the shared inter-request delay has elapsed.
func (r *Resolver) wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// backoff doubles the shared delay, capped at MaxBackoff.
func (r *Resolver) backoff() {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.currentDelay * 2
	if next > r.cfg.MaxBackoff {
		next = r.cfg.MaxBackoff
	}
	if next != r.currentDelay {
		r.currentDelay = next
		r.limiter.SetLimit(rate.Every(next))
		r.log.Info("increasing lookup delay", zap.Duration("delay", next))
	}
}

// CurrentDelay reports the shared inter-request delay.
func (r *Resolver) CurrentDelay() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentDelay
}

// isIndustry classifies an affiliation. An affiliation containing any of the
// configured academic keywords is academic; an empty affiliation is treated
// as unknown, not industry.
func (r *Resolver) isIndustry(affiliation string) bool {
	if affiliation == "" {
		return false
	}
	lower := strings.ToLower(affiliation)
	for _, kw := range r.cfg.AcademicKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return false
		}
	}
	return true
}

func (r *Resolver) fallback(name string) model.AuthorMetrics {
	return model.AuthorMetrics{
		Name:   name,
		Source: model.SourceFallback,
	}
}
