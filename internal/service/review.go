package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"inkwell/internal/diffreview"
	"inkwell/internal/domain"
)

// reviewRetention is how long an undecided session survives before the
// janitor drops it.
const reviewRetention = time.Hour

// ReviewSession pairs a chunked diff review with the document it
// belongs to. Sessions are process-local; a restart discards them.
type ReviewSession struct {
	ID        string
	DocID     string
	UserID    string
	Review    *diffreview.Review
	CreatedAt time.Time
}

// ReviewService keeps in-memory review sessions keyed by ID.
type ReviewService struct {
	mu       sync.RWMutex
	sessions map[string]*ReviewSession
	logger   *slog.Logger
}

// NewReviewService creates a new review session store
func NewReviewService(logger *slog.Logger) *ReviewService {
	return &ReviewService{
		sessions: make(map[string]*ReviewSession),
		logger:   logger,
	}
}

// Open creates a session reviewing the change from oldText to newText
func (s *ReviewService) Open(docID, userID, oldText, newText string) *ReviewSession {
	session := &ReviewSession{
		ID:        uuid.NewString(),
		DocID:     docID,
		UserID:    userID,
		Review:    diffreview.NewReview(oldText, newText),
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	s.logger.Info("review session opened",
		"session_id", session.ID,
		"doc_id", docID,
		"hunks", len(session.Review.Hunks),
	)

	return session
}

// Get returns a session by ID, scoped to its owner
func (s *ReviewService) Get(id, userID string) (*ReviewSession, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || session.UserID != userID {
		return nil, fmt.Errorf("review session %s: %w", id, domain.ErrNotFound)
	}
	return session, nil
}

// SetStatus marks one hunk accepted or rejected
func (s *ReviewService) SetStatus(id, userID, hunkID string, status diffreview.HunkStatus) (*ReviewSession, error) {
	session, err := s.Get(id, userID)
	if err != nil {
		return nil, err
	}

	if status != diffreview.StatusAccepted && status != diffreview.StatusRejected && status != diffreview.StatusPending {
		return nil, fmt.Errorf("%w: unknown hunk status %q", domain.ErrValidation, status)
	}

	if !session.Review.SetStatus(hunkID, status) {
		return nil, fmt.Errorf("hunk %s: %w", hunkID, domain.ErrNotFound)
	}
	return session, nil
}

// AcceptAll accepts every hunk of a session
func (s *ReviewService) AcceptAll(id, userID string) (*ReviewSession, error) {
	session, err := s.Get(id, userID)
	if err != nil {
		return nil, err
	}
	session.Review.AcceptAll()
	return session, nil
}

// RejectAll rejects every hunk of a session
func (s *ReviewService) RejectAll(id, userID string) (*ReviewSession, error) {
	session, err := s.Get(id, userID)
	if err != nil {
		return nil, err
	}
	session.Review.RejectAll()
	return session, nil
}

// Discard removes a session
func (s *ReviewService) Discard(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// StartCleanup launches a janitor that drops sessions older than the
// retention period. It stops when ctx is cancelled.
func (s *ReviewService) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanup()
			}
		}
	}()
}

func (s *ReviewService) cleanup() {
	cutoff := time.Now().Add(-reviewRetention)

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, session := range s.sessions {
		if session.CreatedAt.Before(cutoff) {
			delete(s.sessions, id)
			s.logger.Debug("review session expired", "session_id", id, "doc_id", session.DocID)
		}
	}
}
