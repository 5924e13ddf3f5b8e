package enhance

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/legendx/enhancebot/common/model"
)

// RemoteEnhancer is the optional external AI enhancement path. Implementations
// must honor the context deadline; the service never waits past its bound.
type RemoteEnhancer interface {
	Enhance(ctx context.Context, data []byte) ([]byte, error)
}

// Service runs enhancements. The local pipeline is CPU-bound, so concurrent
// requests are gated by a weighted semaphore: one user's enhancement cannot
// occupy every scheduler thread and stall the dispatch of other conversations.
type Service struct {
	remote        RemoteEnhancer // nil when no provider is configured
	remoteTimeout time.Duration
	workers       *semaphore.Weighted
	log           zerolog.Logger
}

// NewService constructs an enhancement service. remote may be nil.
func NewService(remote RemoteEnhancer, remoteTimeout time.Duration, maxWorkers int64, log zerolog.Logger) *Service {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Service{
		remote:        remote,
		remoteTimeout: remoteTimeout,
		workers:       semaphore.NewWeighted(maxWorkers),
		log:           log,
	}
}

// Enhance produces enhanced bytes for the submission. When a remote provider
// is configured it gets one attempt under a bounded timeout; any remote
// failure falls back to the local pipeline, and the outcome records which
// path produced the result so the caller can see the fallback decision.
func (s *Service) Enhance(ctx context.Context, data []byte) (model.EnhancementOutcome, error) {
	var remoteErr error

	if s.remote != nil {
		rctx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
		out, err := s.remote.Enhance(rctx, data)
		cancel()
		switch {
		case err != nil:
			remoteErr = err
		case len(out) == 0:
			remoteErr = fmt.Errorf("remote enhancer returned empty output")
		default:
			return model.EnhancementOutcome{Data: out, Source: model.SourceRemote}, nil
		}
		s.log.Warn().Err(remoteErr).Msg("remote enhancement failed, falling back to local pipeline")
	}

	if err := s.workers.Acquire(ctx, 1); err != nil {
		return model.EnhancementOutcome{}, fmt.Errorf("%w: %v", model.ErrPipeline, err)
	}
	defer s.workers.Release(1)

	out, err := Enhance(data)
	if err != nil {
		return model.EnhancementOutcome{}, err
	}

	source := model.SourceLocal
	if remoteErr != nil {
		source = model.SourceLocalFallback
	}
	return model.EnhancementOutcome{Data: out, Source: source, RemoteErr: remoteErr}, nil
}
