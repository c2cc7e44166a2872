package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"molstack/domain/core/aggregates"
	"molstack/domain/core/entities"
	"molstack/domain/resolver"
	pkgerrors "molstack/pkg/errors"
)

// ResolutionScheduler runs resolution passes through a bounded worker pool and
// collapses concurrent requests for the same document and depth into a single
// pass. Cached structures are immutable, so sharing one result between
// collapsed callers is safe.
type ResolutionScheduler struct {
	resolver *resolver.Resolver
	sem      *semaphore.Weighted
	group    singleflight.Group
	logger   *zap.Logger
}

// NewResolutionScheduler creates a scheduler with the given worker limit
func NewResolutionScheduler(res *resolver.Resolver, workers int, logger *zap.Logger) *ResolutionScheduler {
	if workers <= 0 {
		workers = 4
	}
	return &ResolutionScheduler{
		resolver: res,
		sem:      semaphore.NewWeighted(int64(workers)),
		logger:   logger,
	}
}

// Resolve returns the structure at depth, computing it if the document's cache
// has no valid entry. A mutation landing mid-pass invalidates the pass; one
// automatic retry absorbs the common case before ConflictRetry reaches the
// caller.
func (s *ResolutionScheduler) Resolve(ctx context.Context, doc *aggregates.Document, depth int) (*entities.Structure, error) {
	if structure, ok := doc.CachedStructure(depth); ok {
		return structure, nil
	}

	key := fmt.Sprintf("%s@%d", doc.ID(), depth)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer s.sem.Release(1)

		structure, err := s.resolveOnce(ctx, doc, depth)
		if pkgerrors.IsConflictRetry(err) {
			s.logger.Debug("Resolution pass invalidated by concurrent mutation, retrying",
				zap.String("document_id", doc.ID().String()),
				zap.Int("depth", depth),
			)
			structure, err = s.resolveOnce(ctx, doc, depth)
		}
		return structure, err
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*entities.Structure), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// resolveOnce runs a single snapshot-resolve-commit cycle
func (s *ResolutionScheduler) resolveOnce(ctx context.Context, doc *aggregates.Document, depth int) (*entities.Structure, error) {
	snap := doc.Snapshot()
	structure, result, resolveErr := s.resolver.Resolve(ctx, snap, depth)
	if resolveErr != nil && len(result.Entries) == 0 {
		return nil, resolveErr
	}

	// Commit even a failed pass so the failure is memoized until a mutation
	// below the failed depth clears it.
	if err := doc.CommitResolution(result); err != nil {
		return nil, err
	}
	if resolveErr != nil {
		return nil, resolveErr
	}
	return structure, nil
}
