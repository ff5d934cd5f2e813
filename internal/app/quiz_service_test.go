package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/memory"
)

func newTestService(now func() time.Time) *app.QuizService {
	store := memory.NewStore()
	categories := memory.NewCategoryRepository(memory.NewStaticCategoryLoader([]domain.Category{
		{ID: 9, Name: "General Knowledge"},
		{ID: 18, Name: "Science: Computers"},
	}), time.Minute)
	return app.NewQuizServiceWithClock(store, store, categories, now)
}

func fixedClock() func() time.Time {
	t := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newSession(total int) domain.NewSession {
	return domain.NewSession{
		QuizData:       json.RawMessage(`{"questions":[],"settings":{"amount":5}}`),
		TotalQuestions: total,
	}
}

func strptr(s string) *string { return &s }

func answered(n int) *int { return &n }

func TestCreateThenCompleteSession(t *testing.T) {
	ctx := context.Background()
	service := newTestService(fixedClock())

	session, err := service.CreateSession(ctx, "u1", newSession(5))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if session.AnsweredQuestions != 0 || session.Completed || session.Score != nil || session.CompletedAt != nil {
		t.Fatalf("unexpected new session: %+v", session)
	}

	done, result, err := service.CompleteSession(ctx, "u1", session.ID, domain.Completion{
		Score: 60, CorrectAnswers: 3, IncorrectAnswers: 2, TimeTakenSeconds: 95, Difficulty: strptr("medium"),
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !done.Completed || done.AnsweredQuestions != 5 || done.Score == nil || *done.Score != 60 || done.CompletedAt == nil {
		t.Fatalf("unexpected completed session: %+v", done)
	}
	if result.QuizSessionID != session.ID || result.TotalQuestions != 5 || result.CorrectAnswers+result.IncorrectAnswers != 5 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Category != nil {
		t.Fatalf("expected no category tag, got %q", *result.Category)
	}
}

func TestCompleteTwiceIsRejected(t *testing.T) {
	ctx := context.Background()
	service := newTestService(fixedClock())

	session, _ := service.CreateSession(ctx, "u1", newSession(2))
	completion := domain.Completion{Score: 50, CorrectAnswers: 1, IncorrectAnswers: 1}
	if _, _, err := service.CompleteSession(ctx, "u1", session.ID, completion); err != nil {
		t.Fatalf("first completion: %v", err)
	}
	if _, _, err := service.CompleteSession(ctx, "u1", session.ID, completion); !errors.Is(err, domain.ErrSessionCompleted) {
		t.Fatalf("expected ErrSessionCompleted, got %v", err)
	}
	if _, err := service.UpdateSession(ctx, "u1", session.ID, domain.Progress{AnsweredQuestions: answered(1)}); !errors.Is(err, domain.ErrSessionCompleted) {
		t.Fatalf("expected completed session to be immutable, got %v", err)
	}

	page, _ := service.ListResults(ctx, "u1", 1)
	if page.Total != 1 {
		t.Fatalf("expected exactly one result, got %d", page.Total)
	}
}

func TestOwnershipChecks(t *testing.T) {
	ctx := context.Background()
	service := newTestService(fixedClock())

	session, _ := service.CreateSession(ctx, "alice", newSession(2))

	if _, err := service.UpdateSession(ctx, "bob", session.ID, domain.Progress{AnsweredQuestions: answered(1)}); !errors.Is(err, domain.ErrNotFoundOrForbidden) {
		t.Fatalf("expected forbidden update, got %v", err)
	}
	if _, _, err := service.CompleteSession(ctx, "bob", session.ID, domain.Completion{Score: 100, CorrectAnswers: 2}); !errors.Is(err, domain.ErrNotFoundOrForbidden) {
		t.Fatalf("expected forbidden completion, got %v", err)
	}
	if _, ok, _ := service.ActiveSession(ctx, "bob"); ok {
		t.Fatal("bob must not see alice's session")
	}

	_, result, err := service.CompleteSession(ctx, "alice", session.ID, domain.Completion{Score: 100, CorrectAnswers: 2})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	got, err := service.GetResult(ctx, "bob", result.ID)
	if !errors.Is(err, domain.ErrNotFoundOrForbidden) {
		t.Fatalf("expected forbidden result, got %v", err)
	}
	if got.ID != 0 || got.UserID != "" {
		t.Fatalf("forbidden read leaked contents: %+v", got)
	}
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	service := newTestService(fixedClock())

	if _, err := service.CreateSession(ctx, "u1", newSession(0)); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for zero questions, got %v", err)
	}
	if _, err := service.CreateSession(ctx, "u1", domain.NewSession{QuizData: json.RawMessage(`[]`), TotalQuestions: 1}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for non-object quizData, got %v", err)
	}

	session, _ := service.CreateSession(ctx, "u1", newSession(3))
	if _, err := service.UpdateSession(ctx, "u1", session.ID, domain.Progress{AnsweredQuestions: answered(-1)}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for negative progress, got %v", err)
	}
	if _, _, err := service.CompleteSession(ctx, "u1", session.ID, domain.Completion{Score: 101, CorrectAnswers: 3}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for score > 100, got %v", err)
	}
}

func TestUpdateSessionUsesServiceClock(t *testing.T) {
	ctx := context.Background()
	clock := fixedClock()
	service := newTestService(clock)

	session, _ := service.CreateSession(ctx, "u1", newSession(3))
	updated, err := service.UpdateSession(ctx, "u1", session.ID, domain.Progress{AnsweredQuestions: answered(2)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.UpdatedAt.Equal(session.CreatedAt.Add(time.Second)) {
		t.Fatalf("expected update stamped by the service clock, created %v updated %v", session.CreatedAt, updated.UpdatedAt)
	}

	if _, err := service.UpdateSession(ctx, "u1", session.ID, domain.Progress{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected missing answeredQuestions rejected, got %v", err)
	}
	active, _, _ := service.ActiveSession(ctx, "u1")
	if active.AnsweredQuestions != 2 {
		t.Fatalf("rejected update must not reset progress, got %d", active.AnsweredQuestions)
	}
}

func TestActiveSessionIsLatestIncomplete(t *testing.T) {
	ctx := context.Background()
	service := newTestService(fixedClock())

	if _, ok, err := service.ActiveSession(ctx, "u1"); ok || err != nil {
		t.Fatalf("expected no active session, ok=%v err=%v", ok, err)
	}

	older, _ := service.CreateSession(ctx, "u1", newSession(2))
	newer, _ := service.CreateSession(ctx, "u1", newSession(2))

	active, ok, err := service.ActiveSession(ctx, "u1")
	if err != nil || !ok || active.ID != newer.ID {
		t.Fatalf("expected newest session %d, got %+v ok=%v err=%v", newer.ID, active, ok, err)
	}

	if _, _, err := service.CompleteSession(ctx, "u1", newer.ID, domain.Completion{Score: 0, IncorrectAnswers: 2}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	active, ok, _ = service.ActiveSession(ctx, "u1")
	if !ok || active.ID != older.ID {
		t.Fatalf("expected fallback to older incomplete session, got %+v", active)
	}
}

func TestListResultsPagesNewestFirst(t *testing.T) {
	ctx := context.Background()
	service := newTestService(fixedClock())

	var ids []int64
	for i := 0; i < 23; i++ {
		s, _ := service.CreateSession(ctx, "u1", newSession(1))
		_, r, err := service.CompleteSession(ctx, "u1", s.ID, domain.Completion{Score: 100, CorrectAnswers: 1})
		if err != nil {
			t.Fatalf("complete %d: %v", i, err)
		}
		ids = append(ids, r.ID)
	}

	page, err := service.ListResults(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.CurrentPage != 1 || page.PerPage != app.ResultsPerPage || page.Total != 23 || page.LastPage != 3 {
		t.Fatalf("unexpected envelope: %+v", page)
	}
	if len(page.Data) != 10 || page.Data[0].ID != ids[22] {
		t.Fatalf("expected newest result first, got %+v", page.Data[0])
	}

	last, _ := service.ListResults(ctx, "u1", 3)
	if len(last.Data) != 3 || last.Data[2].ID != ids[0] {
		t.Fatalf("unexpected last page: %+v", last.Data)
	}
	beyond, _ := service.ListResults(ctx, "u1", 4)
	if len(beyond.Data) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(beyond.Data))
	}
	if page.Data[0].Session == nil || page.Data[0].Session.ID != page.Data[0].QuizSessionID {
		t.Fatalf("expected listed result to embed its session, got %+v", page.Data[0].Session)
	}
	if _, err := service.ListResults(ctx, "u1", app.MaxResultsPage+1); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected page overflow rejected, got %v", err)
	}
}

func TestStatsAggregates(t *testing.T) {
	ctx := context.Background()
	service := newTestService(fixedClock())

	empty, err := service.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if empty.TotalQuizzes != 0 || empty.AverageScore != nil || empty.BestScore != nil {
		t.Fatalf("unexpected empty stats: %+v", empty)
	}

	runs := []struct {
		score, correct, total, secs int
		difficulty                  *string
	}{
		{80, 4, 5, 60, strptr("easy")},
		{40, 2, 5, 120, strptr("hard")},
		{60, 3, 5, 90, strptr("easy")},
		{100, 2, 2, 20, nil},
	}
	for _, r := range runs {
		s, _ := service.CreateSession(ctx, "u1", newSession(r.total))
		if _, _, err := service.CompleteSession(ctx, "u1", s.ID, domain.Completion{
			Score: r.score, CorrectAnswers: r.correct, IncorrectAnswers: r.total - r.correct,
			TimeTakenSeconds: r.secs, Difficulty: r.difficulty,
		}); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}

	stats, err := service.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalQuizzes != 4 || stats.TotalQuestionsAnswered != 17 || stats.TotalCorrectAnswers != 11 || stats.TotalTimeSpent != 290 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if stats.AverageScore == nil || *stats.AverageScore != 70 || stats.BestScore == nil || *stats.BestScore != 100 {
		t.Fatalf("unexpected score aggregates: %+v", stats)
	}
	if len(stats.ByDifficulty) != 2 || stats.ByDifficulty[0].Difficulty != "easy" || stats.ByDifficulty[0].Count != 2 || stats.ByDifficulty[0].AvgScore != 70 {
		t.Fatalf("unexpected difficulty breakdown: %+v", stats.ByDifficulty)
	}
	if len(stats.RecentResults) != 4 || stats.RecentResults[0].Score != 100 {
		t.Fatalf("unexpected recent results: %+v", stats.RecentResults)
	}
}

func TestCategories(t *testing.T) {
	service := newTestService(fixedClock())
	cats, err := service.Categories(context.Background())
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(cats) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(cats))
	}

	bare := app.NewQuizService(memory.NewStore(), memory.NewStore(), nil)
	cats, err = bare.Categories(context.Background())
	if err != nil || cats == nil || len(cats) != 0 {
		t.Fatalf("expected empty list without a category source, got %v, %v", cats, err)
	}
}

func TestLastPage(t *testing.T) {
	cases := map[[2]int]int{
		{0, 10}:  1,
		{10, 10}: 1,
		{11, 10}: 2,
		{30, 10}: 3,
	}
	for in, want := range cases {
		if got := app.LastPage(in[0], in[1]); got != want {
			t.Fatalf("LastPage(%d, %d) = %d, want %d", in[0], in[1], got, want)
		}
	}
}
