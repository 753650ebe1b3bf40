package service

import (
	"context"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/trexinity/another/internal/catalog/domain"
	"github.com/trexinity/another/internal/docstore"
	"github.com/trexinity/another/internal/user/repository"
	"github.com/trexinity/another/pkg/errors"
	"github.com/trexinity/another/pkg/interfaces"
)

// ProfileService manages a user's profile, favorites and viewing progress.
type ProfileService struct {
	repo   repository.Repository
	logger interfaces.Logger
	now    func() time.Time
}

// NewProfileService creates a new profile service.
func NewProfileService(repo repository.Repository, logger interfaces.Logger) *ProfileService {
	return &ProfileService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func checkUser(uid string) error {
	if uid == "" {
		return errors.AuthRequired("profile")
	}
	if err := docstore.ValidateSegment(uid); err != nil {
		return errors.BadRequest("invalid user id")
	}
	return nil
}

func checkTitle(titleID string) error {
	if err := docstore.ValidateSegment(titleID); err != nil {
		return errors.Validation("titleId", "is not a valid title id")
	}
	return nil
}

// EnsureProfile creates users/{uid} on first sign-in. An existing profile
// is returned untouched.
func (s *ProfileService) EnsureProfile(ctx context.Context, session domain.UserSession) (*domain.Profile, error) {
	if err := checkUser(session.UID); err != nil {
		return nil, err
	}

	profile := &domain.Profile{
		Email:       strings.ToLower(strings.TrimSpace(session.Email)),
		DisplayName: session.DisplayName,
		PhotoURL:    session.PhotoURL,
		CreatedAt:   s.now(),
	}
	created, err := s.repo.CreateProfile(ctx, session.UID, profile)
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.Info("Profile created", interfaces.String("uid", session.UID))
		return profile, nil
	}
	return s.repo.GetProfile(ctx, session.UID)
}

// Session completes an identity with the user's favorites.
func (s *ProfileService) Session(ctx context.Context, identity domain.UserSession) (domain.UserSession, error) {
	if err := checkUser(identity.UID); err != nil {
		return domain.UserSession{}, err
	}
	favorites, err := s.repo.GetFavorites(ctx, identity.UID)
	if err != nil {
		return domain.UserSession{}, err
	}
	identity.Favorites = favorites
	return identity, nil
}

// Favorites lists the user's favorites in the order they were added.
func (s *ProfileService) Favorites(ctx context.Context, uid string) ([]string, error) {
	if err := checkUser(uid); err != nil {
		return nil, err
	}
	return s.repo.GetFavorites(ctx, uid)
}

// AddFavorite appends titleID. Adding a present id changes nothing.
func (s *ProfileService) AddFavorite(ctx context.Context, uid, titleID string) ([]string, error) {
	if err := checkUser(uid); err != nil {
		return nil, err
	}
	if err := checkTitle(titleID); err != nil {
		return nil, err
	}
	return s.repo.UpdateFavorites(ctx, uid, func(cur []string) ([]string, bool) {
		if slices.Contains(cur, titleID) {
			return cur, false
		}
		return append(cur, titleID), true
	})
}

// RemoveFavorite drops titleID. Removing an absent id changes nothing.
func (s *ProfileService) RemoveFavorite(ctx context.Context, uid, titleID string) ([]string, error) {
	if err := checkUser(uid); err != nil {
		return nil, err
	}
	if err := checkTitle(titleID); err != nil {
		return nil, err
	}
	return s.repo.UpdateFavorites(ctx, uid, func(cur []string) ([]string, bool) {
		i := slices.Index(cur, titleID)
		if i < 0 {
			return cur, false
		}
		return slices.Delete(cur, i, i+1), true
	})
}

// RecordProgress saves the playback position of titleID and stamps the
// watch history. Both are plain writes: a user only ever writes their
// own progress.
func (s *ProfileService) RecordProgress(ctx context.Context, uid, titleID string, progress, duration float64) (domain.WatchProgress, error) {
	if err := checkUser(uid); err != nil {
		return domain.WatchProgress{}, err
	}
	if err := checkTitle(titleID); err != nil {
		return domain.WatchProgress{}, err
	}
	if math.IsNaN(progress) || math.IsInf(progress, 0) || progress < 0 {
		return domain.WatchProgress{}, errors.Validation("progress", "must be a non-negative number of seconds")
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration < 0 {
		return domain.WatchProgress{}, errors.Validation("duration", "must be a non-negative number of seconds")
	}

	now := s.now()
	p := domain.WatchProgress{Progress: progress, Duration: duration, LastWatchedAt: now}
	if err := s.repo.PutProgress(ctx, uid, titleID, p); err != nil {
		return domain.WatchProgress{}, err
	}
	if err := s.repo.PutHistory(ctx, uid, domain.WatchHistoryEntry{TitleID: titleID, WatchedAt: now}); err != nil {
		// Progress is saved; history is best effort.
		s.logger.Warn("Failed to record watch history",
			interfaces.String("uid", uid),
			interfaces.String("title_id", titleID),
			interfaces.Error(err))
	}
	return p, nil
}

// Progress returns the user's watch progress keyed by title id.
func (s *ProfileService) Progress(ctx context.Context, uid string) (map[string]domain.WatchProgress, error) {
	if err := checkUser(uid); err != nil {
		return nil, err
	}
	return s.repo.ListProgress(ctx, uid)
}

// ClearProgress forgets the position of titleID so it leaves the
// continue-watching row.
func (s *ProfileService) ClearProgress(ctx context.Context, uid, titleID string) error {
	if err := checkUser(uid); err != nil {
		return err
	}
	if err := checkTitle(titleID); err != nil {
		return err
	}
	return s.repo.DeleteProgress(ctx, uid, titleID)
}

// History lists watched titles, most recent first.
func (s *ProfileService) History(ctx context.Context, uid string) ([]domain.WatchHistoryEntry, error) {
	if err := checkUser(uid); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListHistory(ctx, uid)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(entries, func(a, b domain.WatchHistoryEntry) int {
		return b.WatchedAt.Compare(a.WatchedAt)
	})
	return entries, nil
}
