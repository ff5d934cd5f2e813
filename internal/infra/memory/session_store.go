package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

// Store is an in-memory implementation of app.SessionRepository and app.ResultRepository.
type Store struct {
	mu            sync.RWMutex
	sessions      map[int64]domain.QuizSession
	results       map[int64]domain.QuizResult
	resultBySess  map[int64]int64
	nextSessionID int64
	nextResultID  int64
}

func NewStore() *Store {
	return &Store{
		sessions:     make(map[int64]domain.QuizSession),
		results:      make(map[int64]domain.QuizResult),
		resultBySess: make(map[int64]int64),
	}
}

func (s *Store) CreateSession(_ context.Context, session domain.QuizSession) (domain.QuizSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSessionID++
	session.ID = s.nextSessionID
	session.QuizData = cloneBytes(session.QuizData)
	s.sessions[session.ID] = session
	return session, nil
}

func (s *Store) UpdateSession(_ context.Context, id int64, ownerID string, progress domain.Progress, at time.Time) (domain.QuizSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok || session.UserID != ownerID {
		return domain.QuizSession{}, domain.ErrNotFoundOrForbidden
	}
	if session.Completed {
		return domain.QuizSession{}, domain.ErrSessionCompleted
	}
	if err := progress.ValidateFor(session); err != nil {
		return domain.QuizSession{}, err
	}

	session.AnsweredQuestions = *progress.AnsweredQuestions
	if len(progress.QuizData) > 0 && string(progress.QuizData) != "null" {
		session.QuizData = cloneBytes(progress.QuizData)
	}
	session.UpdatedAt = at
	s.sessions[id] = session
	return session, nil
}

func (s *Store) ActiveSession(_ context.Context, ownerID string) (domain.QuizSession, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		latest domain.QuizSession
		found  bool
	)
	for _, session := range s.sessions {
		if session.UserID != ownerID || session.Completed {
			continue
		}
		if !found || newerSession(session, latest) {
			latest = session
			found = true
		}
	}
	return latest, found, nil
}

func (s *Store) CompleteSession(_ context.Context, id int64, ownerID string, completion domain.Completion, at time.Time) (domain.QuizSession, domain.QuizResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok || session.UserID != ownerID {
		return domain.QuizSession{}, domain.QuizResult{}, domain.ErrNotFoundOrForbidden
	}
	if _, done := s.resultBySess[id]; done || session.Completed {
		return domain.QuizSession{}, domain.QuizResult{}, domain.ErrSessionCompleted
	}
	if err := completion.ValidateFor(session); err != nil {
		return domain.QuizSession{}, domain.QuizResult{}, err
	}

	score := completion.Score
	completedAt := at
	session.Score = &score
	session.Completed = true
	session.CompletedAt = &completedAt
	session.AnsweredQuestions = completion.CorrectAnswers + completion.IncorrectAnswers
	session.UpdatedAt = at
	s.sessions[id] = session

	s.nextResultID++
	result := domain.QuizResult{
		ID:               s.nextResultID,
		UserID:           ownerID,
		QuizSessionID:    id,
		Score:            completion.Score,
		TotalQuestions:   session.TotalQuestions,
		CorrectAnswers:   completion.CorrectAnswers,
		IncorrectAnswers: completion.IncorrectAnswers,
		TimeTakenSeconds: completion.TimeTakenSeconds,
		Category:         nonEmpty(completion.Category),
		Difficulty:       nonEmpty(completion.Difficulty),
		CreatedAt:        at,
	}
	s.results[result.ID] = result
	s.resultBySess[id] = result.ID
	return session, result, nil
}

func (s *Store) ListResults(_ context.Context, ownerID string, page, perPage int) (domain.ResultPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owned := s.ownedResultsLocked(ownerID)

	out := domain.ResultPage{
		Data:        []domain.QuizResult{},
		CurrentPage: page,
		PerPage:     perPage,
		Total:       len(owned),
		LastPage:    app.LastPage(len(owned), perPage),
	}
	if page < 1 || perPage < 1 || page-1 > (len(owned)-1)/perPage {
		return out, nil
	}
	start := (page - 1) * perPage
	end := start + perPage
	if end > len(owned) {
		end = len(owned)
	}
	out.Data = owned[start:end]
	for i := range out.Data {
		out.Data[i] = s.withSessionLocked(out.Data[i])
	}
	return out, nil
}

func (s *Store) GetResult(_ context.Context, id int64, ownerID string) (domain.QuizResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[id]
	if !ok || result.UserID != ownerID {
		return domain.QuizResult{}, domain.ErrNotFoundOrForbidden
	}
	return s.withSessionLocked(result), nil
}

func (s *Store) withSessionLocked(result domain.QuizResult) domain.QuizResult {
	if session, ok := s.sessions[result.QuizSessionID]; ok {
		result.Session = &session
	}
	return result
}

func (s *Store) Stats(_ context.Context, ownerID string) (domain.Stats, error) {
	s.mu.RLock()
	owned := s.ownedResultsLocked(ownerID)
	s.mu.RUnlock()

	stats := domain.Stats{
		TotalQuizzes:  len(owned),
		ByDifficulty:  []domain.DifficultyStats{},
		RecentResults: []domain.QuizResult{},
	}
	if len(owned) == 0 {
		return stats, nil
	}

	type bucket struct{ count, sum int }
	buckets := make(map[string]*bucket)
	best, sum := owned[0].Score, 0
	for _, r := range owned {
		stats.TotalQuestionsAnswered += r.TotalQuestions
		stats.TotalCorrectAnswers += r.CorrectAnswers
		stats.TotalTimeSpent += r.TimeTakenSeconds
		sum += r.Score
		if r.Score > best {
			best = r.Score
		}
		if r.Difficulty != nil {
			b, ok := buckets[*r.Difficulty]
			if !ok {
				b = &bucket{}
				buckets[*r.Difficulty] = b
			}
			b.count++
			b.sum += r.Score
		}
	}

	avg := float64(sum) / float64(len(owned))
	stats.AverageScore = &avg
	stats.BestScore = &best

	for difficulty, b := range buckets {
		stats.ByDifficulty = append(stats.ByDifficulty, domain.DifficultyStats{
			Difficulty: difficulty,
			Count:      b.count,
			AvgScore:   float64(b.sum) / float64(b.count),
		})
	}
	sort.Slice(stats.ByDifficulty, func(i, j int) bool {
		return stats.ByDifficulty[i].Difficulty < stats.ByDifficulty[j].Difficulty
	})

	recent := 5
	if len(owned) < recent {
		recent = len(owned)
	}
	stats.RecentResults = owned[:recent]
	return stats, nil
}

// ownedResultsLocked returns the owner's results newest first.
func (s *Store) ownedResultsLocked(ownerID string) []domain.QuizResult {
	owned := make([]domain.QuizResult, 0)
	for _, r := range s.results {
		if r.UserID == ownerID {
			owned = append(owned, r)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].CreatedAt.After(owned[j].CreatedAt)
		}
		return owned[i].ID > owned[j].ID
	})
	return owned
}

func newerSession(a, b domain.QuizSession) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
