package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

const resultColumns = `id, user_id, quiz_session_id, score, total_questions, correct_answers,
	incorrect_answers, time_taken_seconds, category, difficulty, created_at`

const sessionColumns = `id, user_id, quiz_data, total_questions, answered_questions, score,
	completed, started_at, completed_at, created_at, updated_at`

// ResultStore serves result history and aggregate statistics with pgx.
// Results are written by SessionStore.CompleteSession.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) ListResults(ctx context.Context, ownerID string, page, perPage int) (domain.ResultPage, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM quiz_results WHERE user_id=$1`, ownerID).Scan(&total); err != nil {
		return domain.ResultPage{}, fmt.Errorf("count results: %w", err)
	}

	data, err := s.queryResults(ctx,
		`SELECT `+resultColumns+` FROM quiz_results WHERE user_id=$1
		 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		ownerID, perPage, (page-1)*perPage)
	if err != nil {
		return domain.ResultPage{}, err
	}
	if err := s.attachSessions(ctx, data); err != nil {
		return domain.ResultPage{}, err
	}

	return domain.ResultPage{
		Data:        data,
		CurrentPage: page,
		PerPage:     perPage,
		Total:       total,
		LastPage:    app.LastPage(total, perPage),
	}, nil
}

func (s *ResultStore) GetResult(ctx context.Context, id int64, ownerID string) (domain.QuizResult, error) {
	rows, err := s.queryResults(ctx, `SELECT `+resultColumns+` FROM quiz_results WHERE id=$1`, id)
	if err != nil {
		return domain.QuizResult{}, err
	}
	if len(rows) == 0 || rows[0].UserID != ownerID {
		return domain.QuizResult{}, domain.ErrNotFoundOrForbidden
	}
	result := rows[0]

	session, err := s.loadSession(ctx, result.QuizSessionID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizResult{}, fmt.Errorf("load result session: %w", err)
	}
	if err == nil {
		result.Session = &session
	}
	return result, nil
}

func (s *ResultStore) Stats(ctx context.Context, ownerID string) (domain.Stats, error) {
	stats := domain.Stats{
		ByDifficulty:  []domain.DifficultyStats{},
		RecentResults: []domain.QuizResult{},
	}

	var (
		count, questions, correct, timeSpent int64
		avg                                  *float64
		best                                 *int64
	)
	err := s.pool.QueryRow(ctx, `
		SELECT count(*),
		       COALESCE(sum(total_questions), 0)::bigint,
		       COALESCE(sum(correct_answers), 0)::bigint,
		       avg(score)::float8,
		       max(score)::bigint,
		       COALESCE(sum(time_taken_seconds), 0)::bigint
		FROM quiz_results WHERE user_id=$1`, ownerID).
		Scan(&count, &questions, &correct, &avg, &best, &timeSpent)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("aggregate results: %w", err)
	}
	stats.TotalQuizzes = int(count)
	stats.TotalQuestionsAnswered = int(questions)
	stats.TotalCorrectAnswers = int(correct)
	stats.TotalTimeSpent = int(timeSpent)
	stats.AverageScore = avg
	if best != nil {
		b := int(*best)
		stats.BestScore = &b
	}

	rows, err := s.pool.Query(ctx, `
		SELECT difficulty, count(*), avg(score)::float8
		FROM quiz_results
		WHERE user_id=$1 AND difficulty IS NOT NULL
		GROUP BY difficulty
		ORDER BY difficulty`, ownerID)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("difficulty breakdown: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			row domain.DifficultyStats
			n   int64
		)
		if err := rows.Scan(&row.Difficulty, &n, &row.AvgScore); err != nil {
			return domain.Stats{}, fmt.Errorf("scan difficulty: %w", err)
		}
		row.Count = int(n)
		stats.ByDifficulty = append(stats.ByDifficulty, row)
	}
	if err := rows.Err(); err != nil {
		return domain.Stats{}, err
	}

	recent, err := s.queryResults(ctx,
		`SELECT `+resultColumns+` FROM quiz_results WHERE user_id=$1
		 ORDER BY created_at DESC, id DESC LIMIT 5`, ownerID)
	if err != nil {
		return domain.Stats{}, err
	}
	stats.RecentResults = recent
	return stats, nil
}

// Ping checks the pool can reach the database.
func (s *ResultStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *ResultStore) queryResults(ctx context.Context, query string, args ...interface{}) ([]domain.QuizResult, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	out := make([]domain.QuizResult, 0)
	for rows.Next() {
		var r resultRow
		var score, total, correct, incorrect, timeTakenSec int32
		if err := rows.Scan(&r.ID, &r.UserID, &r.QuizSessionID, &score, &total, &correct,
			&incorrect, &timeTakenSec, &r.Category, &r.Difficulty, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Score, r.TotalQuestions, r.CorrectAnswers = int(score), int(total), int(correct)
		r.IncorrectAnswers, r.TimeTakenSeconds = int(incorrect), int(timeTakenSec)
		out = append(out, r.toDomain())
	}
	return out, rows.Err()
}

func (s *ResultStore) loadSession(ctx context.Context, id int64) (domain.QuizSession, error) {
	return scanSession(s.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM quiz_sessions WHERE id=$1`, id))
}

// attachSessions embeds each result's session with a single query.
func (s *ResultStore) attachSessions(ctx context.Context, results []domain.QuizResult) error {
	if len(results) == 0 {
		return nil
	}
	ids := make([]int64, len(results))
	for i, r := range results {
		ids[i] = r.QuizSessionID
	}

	rows, err := s.pool.Query(ctx, `SELECT `+sessionColumns+` FROM quiz_sessions WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("query result sessions: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]domain.QuizSession, len(results))
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return fmt.Errorf("scan result session: %w", err)
		}
		byID[session.ID] = session
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range results {
		if session, ok := byID[results[i].QuizSessionID]; ok {
			results[i].Session = &session
		}
	}
	return nil
}

func scanSession(row pgx.Row) (domain.QuizSession, error) {
	var (
		r               sessionRow
		data            []byte
		total, answered int32
		score           *int32
	)
	err := row.Scan(&r.ID, &r.UserID, &data, &total, &answered, &score,
		&r.Completed, &r.StartedAt, &r.CompletedAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return domain.QuizSession{}, err
	}
	r.QuizData = data
	r.TotalQuestions, r.AnsweredQuestions = int(total), int(answered)
	if score != nil {
		v := int(*score)
		r.Score = &v
	}
	return r.toDomain(), nil
}
