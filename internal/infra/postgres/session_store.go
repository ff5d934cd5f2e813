package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"trivia-quiz-service/internal/domain"
)

// SessionStore persists quiz sessions with bun. Completion runs in one
// transaction that locks the session row, so a session yields at most one result.
type SessionStore struct {
	db *bun.DB
}

func NewSessionStore(db *bun.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) CreateSession(ctx context.Context, session domain.QuizSession) (domain.QuizSession, error) {
	row := sessionFromDomain(session)
	row.ID = 0
	if _, err := s.db.NewInsert().Model(&row).Returning("*").Exec(ctx); err != nil {
		return domain.QuizSession{}, fmt.Errorf("insert session: %w", err)
	}
	return row.toDomain(), nil
}

func (s *SessionStore) UpdateSession(ctx context.Context, id int64, ownerID string, progress domain.Progress, at time.Time) (domain.QuizSession, error) {
	var out domain.QuizSession
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row, err := lockOwnedSession(ctx, tx, id, ownerID)
		if err != nil {
			return err
		}
		if row.Completed {
			return domain.ErrSessionCompleted
		}
		if err := progress.ValidateFor(row.toDomain()); err != nil {
			return err
		}

		row.AnsweredQuestions = *progress.AnsweredQuestions
		columns := []string{"answered_questions", "updated_at"}
		if len(progress.QuizData) > 0 && string(progress.QuizData) != "null" {
			row.QuizData = progress.QuizData
			columns = append(columns, "quiz_data")
		}
		row.UpdatedAt = at

		if _, err := tx.NewUpdate().Model(&row).Column(columns...).WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		out = row.toDomain()
		return nil
	})
	if err != nil {
		return domain.QuizSession{}, err
	}
	return out, nil
}

func (s *SessionStore) ActiveSession(ctx context.Context, ownerID string) (domain.QuizSession, bool, error) {
	var row sessionRow
	err := s.db.NewSelect().
		Model(&row).
		Where("user_id = ?", ownerID).
		Where("completed = FALSE").
		OrderExpr("created_at DESC, id DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.QuizSession{}, false, nil
	}
	if err != nil {
		return domain.QuizSession{}, false, fmt.Errorf("select active session: %w", err)
	}
	return row.toDomain(), true, nil
}

func (s *SessionStore) CompleteSession(ctx context.Context, id int64, ownerID string, completion domain.Completion, at time.Time) (domain.QuizSession, domain.QuizResult, error) {
	var (
		session domain.QuizSession
		result  domain.QuizResult
	)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row, err := lockOwnedSession(ctx, tx, id, ownerID)
		if err != nil {
			return err
		}
		if row.Completed {
			return domain.ErrSessionCompleted
		}
		if err := completion.ValidateFor(row.toDomain()); err != nil {
			return err
		}

		score := completion.Score
		completedAt := at
		row.Score = &score
		row.Completed = true
		row.CompletedAt = &completedAt
		row.AnsweredQuestions = completion.CorrectAnswers + completion.IncorrectAnswers
		row.UpdatedAt = at

		if _, err := tx.NewUpdate().
			Model(&row).
			Column("score", "completed", "completed_at", "answered_questions", "updated_at").
			WherePK().
			Exec(ctx); err != nil {
			return fmt.Errorf("finalize session: %w", err)
		}

		res := resultRow{
			UserID:           ownerID,
			QuizSessionID:    row.ID,
			Score:            completion.Score,
			TotalQuestions:   row.TotalQuestions,
			CorrectAnswers:   completion.CorrectAnswers,
			IncorrectAnswers: completion.IncorrectAnswers,
			TimeTakenSeconds: completion.TimeTakenSeconds,
			Category:         nonEmpty(completion.Category),
			Difficulty:       nonEmpty(completion.Difficulty),
			CreatedAt:        at,
		}
		if _, err := tx.NewInsert().Model(&res).Returning("*").Exec(ctx); err != nil {
			return fmt.Errorf("insert result: %w", err)
		}

		session = row.toDomain()
		result = res.toDomain()
		return nil
	})
	if err != nil {
		return domain.QuizSession{}, domain.QuizResult{}, err
	}
	return session, result, nil
}

// lockOwnedSession loads the session FOR UPDATE and hides rows owned by someone else.
func lockOwnedSession(ctx context.Context, tx bun.Tx, id int64, ownerID string) (sessionRow, error) {
	var row sessionRow
	err := tx.NewSelect().Model(&row).Where("qs.id = ?", id).For("UPDATE").Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return sessionRow{}, domain.ErrNotFoundOrForbidden
	}
	if err != nil {
		return sessionRow{}, fmt.Errorf("select session: %w", err)
	}
	if row.UserID != ownerID {
		return sessionRow{}, domain.ErrNotFoundOrForbidden
	}
	return row, nil
}
