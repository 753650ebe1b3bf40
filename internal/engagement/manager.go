// Package engagement maintains the view and like counters of titles.
package engagement

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"

	"github.com/trexinity/another/internal/catalog/domain"
	"github.com/trexinity/another/internal/docstore"
	apperrors "github.com/trexinity/another/pkg/errors"
	"github.com/trexinity/another/pkg/interfaces"
	"github.com/trexinity/another/pkg/metrics"
)

const (
	opView = "view"
	opLike = "like"
)

var errTitleMissing = errors.New("title missing")

// Config bounds transaction retries.
type Config struct {
	MaxAttempts uint
	BaseDelay   time.Duration
}

// LikeResult is the committed like state of a title for one user.
type LikeResult struct {
	Liked bool  `json:"liked"`
	Likes int64 `json:"likes"`
}

// Manager is the only writer of views, likes and likesBy. Each update is a
// single optimistic transaction on movies/{id}; fields it does not own are
// written back untouched.
type Manager struct {
	store   docstore.Store
	cfg     Config
	logger  interfaces.Logger
	metrics *metrics.Metrics
}

// NewManager creates a counter manager.
func NewManager(store docstore.Store, cfg Config, logger interfaces.Logger, m *metrics.Metrics) *Manager {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = docstore.DefaultAttempts
	}
	return &Manager{store: store, cfg: cfg, logger: logger, metrics: m}
}

// IncrementView adds one view and returns the committed count. Retrying
// after an error is safe.
func (m *Manager) IncrementView(ctx context.Context, titleID string) (int64, error) {
	var views int64
	_, err := m.transact(ctx, opView, titleID, func(doc record) error {
		views = domain.ParseCount(doc["views"]) + 1
		return doc.set("views", views)
	})
	if err != nil {
		return 0, err
	}
	return views, nil
}

// ToggleLike flips uid's like on the title and returns the committed state.
// likes is recomputed from likesBy, which heals drift left by earlier
// writers. Toggling is not idempotent; callers must not retry blindly.
func (m *Manager) ToggleLike(ctx context.Context, titleID, uid string) (LikeResult, error) {
	if uid == "" {
		return LikeResult{}, apperrors.AuthRequired("like")
	}

	var res LikeResult
	_, err := m.transact(ctx, opLike, titleID, func(doc record) error {
		var raw map[string]json.RawMessage
		if v, ok := doc["likesBy"]; ok {
			// A non-object likesBy is treated as empty.
			_ = json.Unmarshal(v, &raw)
		}
		likesBy := domain.LikesBySet(raw)
		if likesBy == nil {
			likesBy = make(map[string]bool)
		}

		if likesBy[uid] {
			delete(likesBy, uid)
			res.Liked = false
		} else {
			likesBy[uid] = true
			res.Liked = true
		}
		res.Likes = int64(len(likesBy))

		if err := doc.set("likesBy", likesBy); err != nil {
			return err
		}
		return doc.set("likes", res.Likes)
	})
	if err != nil {
		return LikeResult{}, err
	}
	return res, nil
}

func (m *Manager) transact(ctx context.Context, op, titleID string, mutate func(record) error) (docstore.Snapshot, error) {
	if err := docstore.ValidateSegment(titleID); err != nil {
		return docstore.Snapshot{}, apperrors.BadRequest("invalid title id")
	}

	snap, err := docstore.Transact(ctx, m.store, domain.TitlePath(titleID),
		func(cur docstore.Snapshot) ([]byte, error) {
			if !cur.Exists {
				return nil, errTitleMissing
			}
			doc := make(record)
			if err := json.Unmarshal(cur.Value, &doc); err != nil {
				return nil, err
			}
			if err := mutate(doc); err != nil {
				return nil, err
			}
			return json.Marshal(doc)
		},
		docstore.WithAttempts(m.cfg.MaxAttempts),
		docstore.WithBaseDelay(m.cfg.BaseDelay),
		docstore.WithOnRetry(func(attempt uint, err error) {
			m.metrics.TransactionRetry(op)
			m.logger.Debug("Counter transaction retry",
				interfaces.String("op", op),
				interfaces.String("title_id", titleID),
				interfaces.Int("attempt", int(attempt)+1))
		}),
	)

	switch {
	case err == nil:
		m.metrics.CounterTransaction(op, "committed")
		return snap, nil
	case errors.Is(err, errTitleMissing):
		m.metrics.CounterTransaction(op, "not_found")
		return snap, apperrors.NotFound("title not found")
	case errors.Is(err, docstore.ErrTransactionAborted):
		m.metrics.CounterTransaction(op, "conflict")
		m.logger.Warn("Counter transaction gave up",
			interfaces.String("op", op),
			interfaces.String("title_id", titleID),
			interfaces.Error(err))
		return snap, apperrors.CounterConflict("too much contention on title, try again", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		m.metrics.CounterTransaction(op, "error")
		return snap, err
	default:
		m.metrics.CounterTransaction(op, "error")
		return snap, apperrors.FetchFailed("counter update failed", err)
	}
}

// record is a title document decoded just far enough to patch a few
// fields. Unknown fields survive the round trip byte for byte.
type record map[string]json.RawMessage

func (r record) set(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r[key] = b
	return nil
}
