package engagement

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	apperrors "github.com/trexinity/another/pkg/errors"
	"github.com/trexinity/another/pkg/events"
	"github.com/trexinity/another/pkg/interfaces"
)

// DefaultAsyncTimeout bounds a fire-and-forget view increment.
const DefaultAsyncTimeout = 10 * time.Second

// Service is the request-facing side of the counter manager. It rejects a
// like toggle while another one for the same user and title is still
// running, and announces committed changes on the event bus.
type Service struct {
	manager      *Manager
	publisher    interfaces.EventPublisher
	logger       interfaces.Logger
	asyncTimeout time.Duration

	inflight sync.Map // uid/titleID -> struct{}
	wg       conc.WaitGroup
}

// NewService wraps manager.
func NewService(manager *Manager, publisher interfaces.EventPublisher, logger interfaces.Logger) *Service {
	return &Service{
		manager:      manager,
		publisher:    publisher,
		logger:       logger,
		asyncTimeout: DefaultAsyncTimeout,
	}
}

// IncrementView records a view and returns the committed count.
func (s *Service) IncrementView(ctx context.Context, titleID string) (int64, error) {
	views, err := s.manager.IncrementView(ctx, titleID)
	if err != nil {
		return 0, err
	}
	s.publish(ctx, events.NewAggregateEvent(events.TitleViewed, titleID, map[string]interface{}{
		"views": views,
	}))
	return views, nil
}

// IncrementViewAsync records a view in the background. The increment
// outlives ctx but is bounded by its own timeout; failures are logged.
func (s *Service) IncrementViewAsync(ctx context.Context, titleID string) {
	detached := context.WithoutCancel(ctx)
	s.wg.Go(func() {
		ctx, cancel := context.WithTimeout(detached, s.asyncTimeout)
		defer cancel()
		if _, err := s.IncrementView(ctx, titleID); err != nil {
			s.logger.Warn("Background view increment failed",
				interfaces.String("title_id", titleID),
				interfaces.Error(err))
		}
	})
}

// ToggleLike flips the like of uid on titleID. A concurrent toggle for
// the same pair is rejected with a CONFLICT error instead of racing.
func (s *Service) ToggleLike(ctx context.Context, titleID, uid string) (LikeResult, error) {
	if uid == "" {
		return LikeResult{}, apperrors.AuthRequired("like")
	}

	key := uid + "/" + titleID
	if _, busy := s.inflight.LoadOrStore(key, struct{}{}); busy {
		return LikeResult{}, apperrors.Conflict("toggle already in flight")
	}
	defer s.inflight.Delete(key)

	res, err := s.manager.ToggleLike(ctx, titleID, uid)
	if err != nil {
		return LikeResult{}, err
	}

	eventType := events.TitleLiked
	if !res.Liked {
		eventType = events.TitleUnliked
	}
	s.publish(ctx, events.NewAggregateEvent(eventType, titleID, map[string]interface{}{
		"uid":   uid,
		"likes": res.Likes,
	}))
	return res, nil
}

// Wait blocks until background increments have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) publish(ctx context.Context, event interfaces.Event) {
	if s.publisher != nil {
		s.publisher.PublishAsync(ctx, event)
	}
}
