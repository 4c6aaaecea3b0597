package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wangxuanyi/hireloop/client/internal/backend"
	"github.com/wangxuanyi/hireloop/client/internal/model/interview"
	"github.com/wangxuanyi/hireloop/client/internal/store"
)

// resolverMaxRetries bounds how often a null-decision summary is retried
// before the deterministic fallback is recorded.
const resolverMaxRetries = 3

// defaultResolverBaseDelay is the wait before the first retry; each further
// retry multiplies it by 1.5.
const defaultResolverBaseDelay = 2 * time.Second

// SummaryFetcher is the slice of the backend client the resolver needs.
type SummaryFetcher interface {
	FetchSummary(ctx context.Context, resumeID string) (*backend.SummaryResponse, error)
}

// Resolver produces the terminal hiring decision exactly once per session.
// Failure is never surfaced as a stuck state: if the backend cannot supply a
// decision the fallback verdict is persisted as authoritative instead.
type Resolver struct {
	store     store.Store
	fetcher   SummaryFetcher
	baseDelay time.Duration
}

// NewResolver wires a resolver to the store and summary endpoint.
func NewResolver(st store.Store, fetcher SummaryFetcher) *Resolver {
	return &Resolver{
		store:     st,
		fetcher:   fetcher,
		baseDelay: defaultResolverBaseDelay,
	}
}

// Resolve returns the decision for the resume id. The persisted fast path
// makes it idempotent and re-entrant: once a decision exists it is returned
// as-is with no network traffic. Otherwise the summary endpoint is polled
// with bounded backoff, and on exhaustion or request failure the fallback
// decision is committed. Every resolution path persists the decision and
// clears the clock pair.
func (r *Resolver) Resolve(ctx context.Context, resumeID string) (interview.Decision, error) {
	return r.ResolveWith(ctx, resumeID, nil)
}

// ResolveWith is Resolve with an optional decision already delivered by the
// last exchange response; when present it is committed directly instead of
// polling the summary endpoint. The fast path still wins, so a re-entrant
// call can never overwrite an earlier verdict.
func (r *Resolver) ResolveWith(ctx context.Context, resumeID string, preset *interview.Decision) (interview.Decision, error) {
	if d, ok, err := r.store.GetDecision(ctx, resumeID); err != nil {
		return interview.Decision{}, err
	} else if ok {
		return d, nil
	}
	if preset != nil {
		return r.commit(ctx, resumeID, *preset)
	}

	delay := r.baseDelay
	for attempt := 0; ; attempt++ {
		summary, err := r.fetcher.FetchSummary(ctx, resumeID)
		if err != nil {
			// A failed request is terminal for resolution, not for the
			// session: fall back rather than leave the user stuck.
			log.Debug().Str("component", "resolver").Err(err).Msg("summary fetch failed, using fallback")
			return r.commit(ctx, resumeID, interview.FallbackDecision())
		}
		if d := summary.DecisionModel(); d != nil {
			return r.commit(ctx, resumeID, *d)
		}
		if attempt == resolverMaxRetries {
			log.Debug().Str("component", "resolver").Int("attempts", attempt+1).Msg("no decision after retries, using fallback")
			return r.commit(ctx, resumeID, interview.FallbackDecision())
		}

		select {
		case <-ctx.Done():
			return interview.Decision{}, ctx.Err()
		case <-time.After(delay):
		}
		delay = delay * 3 / 2
	}
}

func (r *Resolver) commit(ctx context.Context, resumeID string, d interview.Decision) (interview.Decision, error) {
	if err := r.store.SetDecision(ctx, resumeID, d); err != nil {
		return interview.Decision{}, err
	}
	if err := r.store.ClearClock(ctx, resumeID); err != nil {
		return interview.Decision{}, err
	}
	return d, nil
}
