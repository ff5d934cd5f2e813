package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/metrics"
)

// ResultsPerPage is the fixed page size of the result history.
const ResultsPerPage = 10

// MaxResultsPage is the largest page whose offset still fits in an int.
const MaxResultsPage = math.MaxInt / ResultsPerPage

// SessionRepository abstracts how quiz sessions are stored (in-memory, Postgres).
// Every method taking an owner must fail with domain.ErrNotFoundOrForbidden when
// the id is unknown or belongs to someone else.
type SessionRepository interface {
	CreateSession(ctx context.Context, session domain.QuizSession) (domain.QuizSession, error)
	UpdateSession(ctx context.Context, id int64, ownerID string, progress domain.Progress, at time.Time) (domain.QuizSession, error)
	ActiveSession(ctx context.Context, ownerID string) (domain.QuizSession, bool, error)
	// CompleteSession finalizes the session and creates its result in one step.
	// A session already completed yields domain.ErrSessionCompleted.
	CompleteSession(ctx context.Context, id int64, ownerID string, completion domain.Completion, at time.Time) (domain.QuizSession, domain.QuizResult, error)
}

// ResultRepository serves the read side of quiz results. Listed and single
// results embed the session they were produced from.
type ResultRepository interface {
	ListResults(ctx context.Context, ownerID string, page, perPage int) (domain.ResultPage, error)
	GetResult(ctx context.Context, id int64, ownerID string) (domain.QuizResult, error)
	Stats(ctx context.Context, ownerID string) (domain.Stats, error)
}

// CategoryRepository lists trivia categories (from cache/provider).
type CategoryRepository interface {
	Categories(ctx context.Context) ([]domain.Category, error)
}

// QuizService contains the server-side quiz lifecycle use cases.
type QuizService struct {
	sessions   SessionRepository
	results    ResultRepository
	categories CategoryRepository
	now        func() time.Time
}

func NewQuizService(sessions SessionRepository, results ResultRepository, categories CategoryRepository) *QuizService {
	return NewQuizServiceWithClock(sessions, results, categories, time.Now)
}

// NewQuizServiceWithClock is used by tests for deterministic timestamps.
func NewQuizServiceWithClock(sessions SessionRepository, results ResultRepository, categories CategoryRepository, now func() time.Time) *QuizService {
	return &QuizService{sessions: sessions, results: results, categories: categories, now: now}
}

// CreateSession starts a new, incomplete session owned by ownerID.
func (s *QuizService) CreateSession(ctx context.Context, ownerID string, req domain.NewSession) (domain.QuizSession, error) {
	if err := req.Validate(); err != nil {
		return domain.QuizSession{}, err
	}

	now := s.now().UTC()
	session, err := s.sessions.CreateSession(ctx, domain.QuizSession{
		UserID:            ownerID,
		QuizData:          req.QuizData,
		TotalQuestions:    req.TotalQuestions,
		AnsweredQuestions: 0,
		Completed:         false,
		StartedAt:         now,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		return domain.QuizSession{}, fmt.Errorf("create session: %w", err)
	}
	metrics.SessionStarted()
	return session, nil
}

// UpdateSession records progress on an active session.
func (s *QuizService) UpdateSession(ctx context.Context, ownerID string, id int64, progress domain.Progress) (domain.QuizSession, error) {
	if err := progress.Validate(); err != nil {
		return domain.QuizSession{}, err
	}
	return s.sessions.UpdateSession(ctx, id, ownerID, progress, s.now().UTC())
}

// ActiveSession returns the caller's most recent incomplete session, if any.
func (s *QuizService) ActiveSession(ctx context.Context, ownerID string) (domain.QuizSession, bool, error) {
	return s.sessions.ActiveSession(ctx, ownerID)
}

// CompleteSession finalizes a session and writes its single result.
func (s *QuizService) CompleteSession(ctx context.Context, ownerID string, id int64, completion domain.Completion) (domain.QuizSession, domain.QuizResult, error) {
	if err := completion.Validate(); err != nil {
		return domain.QuizSession{}, domain.QuizResult{}, err
	}

	session, result, err := s.sessions.CompleteSession(ctx, id, ownerID, completion, s.now().UTC())
	if err != nil {
		return domain.QuizSession{}, domain.QuizResult{}, err
	}
	metrics.SessionCompleted(result.Score)
	return session, result, nil
}

// ListResults pages through the caller's results, newest first. Pages start at 1.
func (s *QuizService) ListResults(ctx context.Context, ownerID string, page int) (domain.ResultPage, error) {
	if page < 1 {
		page = 1
	}
	if page > MaxResultsPage {
		return domain.ResultPage{}, fmt.Errorf("%w: page must not exceed %d", domain.ErrInvalidInput, MaxResultsPage)
	}
	return s.results.ListResults(ctx, ownerID, page, ResultsPerPage)
}

func (s *QuizService) GetResult(ctx context.Context, ownerID string, id int64) (domain.QuizResult, error) {
	return s.results.GetResult(ctx, id, ownerID)
}

func (s *QuizService) Stats(ctx context.Context, ownerID string) (domain.Stats, error) {
	return s.results.Stats(ctx, ownerID)
}

func (s *QuizService) Categories(ctx context.Context) ([]domain.Category, error) {
	if s.categories == nil {
		return []domain.Category{}, nil
	}
	return s.categories.Categories(ctx)
}

// LastPage computes the final page number for a total, at least 1.
func LastPage(total, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}
