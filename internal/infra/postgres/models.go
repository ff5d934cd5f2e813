package postgres

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
	"trivia-quiz-service/internal/domain"
)

type sessionRow struct {
	bun.BaseModel `bun:"table:quiz_sessions,alias:qs"`

	ID                int64           `bun:"id,pk,autoincrement"`
	UserID            string          `bun:"user_id,notnull"`
	QuizData          json.RawMessage `bun:"quiz_data,type:jsonb,notnull"`
	TotalQuestions    int             `bun:"total_questions,notnull"`
	AnsweredQuestions int             `bun:"answered_questions,notnull"`
	Score             *int            `bun:"score"`
	Completed         bool            `bun:"completed,notnull"`
	StartedAt         time.Time       `bun:"started_at,notnull"`
	CompletedAt       *time.Time      `bun:"completed_at"`
	CreatedAt         time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type resultRow struct {
	bun.BaseModel `bun:"table:quiz_results,alias:qr"`

	ID               int64     `bun:"id,pk,autoincrement"`
	UserID           string    `bun:"user_id,notnull"`
	QuizSessionID    int64     `bun:"quiz_session_id,notnull"`
	Score            int       `bun:"score,notnull"`
	TotalQuestions   int       `bun:"total_questions,notnull"`
	CorrectAnswers   int       `bun:"correct_answers,notnull"`
	IncorrectAnswers int       `bun:"incorrect_answers,notnull"`
	TimeTakenSeconds int       `bun:"time_taken_seconds,notnull"`
	Category         *string   `bun:"category"`
	Difficulty       *string   `bun:"difficulty"`
	CreatedAt        time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func sessionFromDomain(s domain.QuizSession) sessionRow {
	return sessionRow{
		ID:                s.ID,
		UserID:            s.UserID,
		QuizData:          s.QuizData,
		TotalQuestions:    s.TotalQuestions,
		AnsweredQuestions: s.AnsweredQuestions,
		Score:             s.Score,
		Completed:         s.Completed,
		StartedAt:         s.StartedAt,
		CompletedAt:       s.CompletedAt,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}

func (r sessionRow) toDomain() domain.QuizSession {
	return domain.QuizSession{
		ID:                r.ID,
		UserID:            r.UserID,
		QuizData:          r.QuizData,
		TotalQuestions:    r.TotalQuestions,
		AnsweredQuestions: r.AnsweredQuestions,
		Score:             r.Score,
		Completed:         r.Completed,
		StartedAt:         r.StartedAt,
		CompletedAt:       r.CompletedAt,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func (r resultRow) toDomain() domain.QuizResult {
	return domain.QuizResult{
		ID:               r.ID,
		UserID:           r.UserID,
		QuizSessionID:    r.QuizSessionID,
		Score:            r.Score,
		TotalQuestions:   r.TotalQuestions,
		CorrectAnswers:   r.CorrectAnswers,
		IncorrectAnswers: r.IncorrectAnswers,
		TimeTakenSeconds: r.TimeTakenSeconds,
		Category:         r.Category,
		Difficulty:       r.Difficulty,
		CreatedAt:        r.CreatedAt,
	}
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
