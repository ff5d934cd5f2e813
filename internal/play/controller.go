package play

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"trivia-quiz-service/internal/domain"
)

// DefaultDuration is how long a player has to finish a quiz.
const DefaultDuration = 300 * time.Second

type QuestionSource interface {
	FetchQuestions(ctx context.Context, settings domain.QuizSettings) ([]domain.Question, error)
}

// Backend is the durable session and result store as seen by a player.
type Backend interface {
	CreateSession(ctx context.Context, ownerID string, req domain.NewSession) (domain.QuizSession, error)
	UpdateSession(ctx context.Context, ownerID string, id int64, progress domain.Progress) (domain.QuizSession, error)
	CompleteSession(ctx context.Context, ownerID string, id int64, completion domain.Completion) (domain.QuizSession, domain.QuizResult, error)
}

// ResumeCache keeps one opaque snapshot per owner.
type ResumeCache interface {
	Put(ctx context.Context, ownerID string, snapshot []byte) error
	Get(ctx context.Context, ownerID string) ([]byte, bool, error)
	Delete(ctx context.Context, ownerID string) error
}

// Outcome is what a successful submission produced.
type Outcome struct {
	Session domain.QuizSession `json:"session"`
	Result  domain.QuizResult  `json:"result"`
}

// Controller drives a single player's quiz attempt. It is not safe for
// concurrent use; one goroutine owns it for the life of a connection.
type Controller struct {
	ownerID  string
	source   QuestionSource
	backend  Backend
	cache    ResumeCache
	duration int
	now      func() time.Time

	state *State
}

type Option func(*Controller)

// WithDuration overrides DefaultDuration. Sub-second values round up to one second.
func WithDuration(d time.Duration) Option {
	return func(c *Controller) {
		secs := int((d + time.Second - 1) / time.Second)
		if secs < 1 {
			secs = 1
		}
		c.duration = secs
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

func NewController(ownerID string, source QuestionSource, backend Backend, cache ResumeCache, opts ...Option) *Controller {
	c := &Controller{
		ownerID:  ownerID,
		source:   source,
		backend:  backend,
		cache:    cache,
		duration: int(DefaultDuration / time.Second),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current attempt, or nil when there is none.
func (c *Controller) State() *State {
	return c.state
}

// Duration is the full quiz time in seconds.
func (c *Controller) Duration() int {
	return c.duration
}

// Start fetches questions, opens a session record and begins a fresh attempt.
// On failure the previous state is left untouched.
func (c *Controller) Start(ctx context.Context, settings domain.QuizSettings) (*State, error) {
	if settings.Amount < 1 {
		return nil, fmt.Errorf("%w: %w: amount must be at least 1", domain.ErrSessionCreate, domain.ErrInvalidInput)
	}

	questions, err := c.source.FetchQuestions(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSessionCreate, err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: no questions returned", domain.ErrSessionCreate)
	}

	quizData, err := json.Marshal(domain.QuizData{Questions: questions, Settings: settings})
	if err != nil {
		return nil, fmt.Errorf("%w: encode quiz data: %w", domain.ErrSessionCreate, err)
	}
	rawSettings, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: encode settings: %w", domain.ErrSessionCreate, err)
	}

	session, err := c.backend.CreateSession(ctx, c.ownerID, domain.NewSession{
		QuizData:       quizData,
		TotalQuestions: len(questions),
		Settings:       rawSettings,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSessionCreate, err)
	}

	startedAt := c.now().UTC()
	c.state = &State{
		SessionID:            session.ID,
		Questions:            questions,
		CurrentQuestionIndex: 0,
		UserAnswers:          make([]*string, len(questions)),
		TimeRemaining:        c.duration,
		IsActive:             true,
		Settings:             settings,
		StartedAt:            &startedAt,
	}
	c.save(ctx)
	return c.state, nil
}

// Answer records an answer for the current question, replacing any earlier one.
func (c *Controller) Answer(ctx context.Context, answer string) *State {
	if !c.active() {
		return c.state
	}
	c.state.UserAnswers[c.state.CurrentQuestionIndex] = &answer
	c.save(ctx)
	return c.state
}

// Next moves to the following question. It stays put on the last one.
func (c *Controller) Next(ctx context.Context) *State {
	if !c.active() || c.state.CurrentQuestionIndex+1 >= len(c.state.Questions) {
		return c.state
	}
	c.state.CurrentQuestionIndex++
	c.save(ctx)
	return c.state
}

// GoTo jumps to index. Out of range indexes are ignored.
func (c *Controller) GoTo(ctx context.Context, index int) *State {
	if !c.active() || index < 0 || index >= len(c.state.Questions) {
		return c.state
	}
	c.state.CurrentQuestionIndex = index
	c.save(ctx)
	return c.state
}

// Tick advances the countdown by one second. When time runs out the attempt
// is deactivated and submitted with whatever answers it has; the returned
// outcome is non-nil only in that case.
func (c *Controller) Tick(ctx context.Context) (*Outcome, error) {
	if !c.active() {
		return nil, nil
	}
	c.state.TimeRemaining--
	if c.state.TimeRemaining > 0 {
		c.save(ctx)
		return nil, nil
	}

	// The cached snapshot keeps its last active copy so a failed submission
	// can be retried after a reconnect.
	c.state.TimeRemaining = 0
	c.state.IsActive = false
	return c.Submit(ctx)
}

// Submit grades the attempt and finalizes it. On failure the resume cache is
// kept so the same state can be submitted again.
func (c *Controller) Submit(ctx context.Context) (*Outcome, error) {
	st := c.state
	if st == nil || st.submitted {
		return nil, domain.ErrNoActiveQuiz
	}

	card := domain.Score(st.Questions, st.UserAnswers)
	elapsed := c.duration - st.TimeRemaining
	if elapsed < 0 {
		elapsed = 0
	}

	session, result, err := c.backend.CompleteSession(ctx, c.ownerID, st.SessionID, domain.Completion{
		Score:            card.Score,
		CorrectAnswers:   card.CorrectAnswers,
		IncorrectAnswers: card.IncorrectAnswers,
		TimeTakenSeconds: elapsed,
		Category:         optional(st.Settings.Category),
		Difficulty:       optional(st.Settings.Difficulty),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSubmission, err)
	}

	if err := c.cache.Delete(ctx, c.ownerID); err != nil {
		log.Printf("play: clear resume cache for %s: %v", c.ownerID, err)
	}
	st.IsActive = false
	st.submitted = true
	return &Outcome{Session: session, Result: result}, nil
}

// Resumable reports whether the cache holds an attempt that Resume would adopt.
func (c *Controller) Resumable(ctx context.Context) bool {
	_, ok := c.Peek(ctx)
	return ok
}

// Peek returns the cached attempt without adopting it, so the player can be
// shown its progress before choosing to resume or start over.
func (c *Controller) Peek(ctx context.Context) (*State, bool) {
	st := c.load(ctx)
	return st, st != nil
}

// Resume re-adopts the cached attempt, if any, without touching the backend.
func (c *Controller) Resume(ctx context.Context) (*State, bool) {
	st := c.load(ctx)
	if st == nil {
		return nil, false
	}
	c.state = st
	return st, true
}

// Reset abandons the current attempt without recording a result.
func (c *Controller) Reset(ctx context.Context) {
	c.state = nil
	if err := c.cache.Delete(ctx, c.ownerID); err != nil {
		log.Printf("play: clear resume cache for %s: %v", c.ownerID, err)
	}
}

// SyncProgress pushes the answered count and answers so far to the session
// record. Failures are logged and otherwise ignored.
func (c *Controller) SyncProgress(ctx context.Context) {
	if !c.active() {
		return
	}
	data, err := json.Marshal(c.state.quizData())
	if err != nil {
		log.Printf("play: encode progress: %v", err)
		return
	}
	answered := c.state.Answered()
	if _, err := c.backend.UpdateSession(ctx, c.ownerID, c.state.SessionID, domain.Progress{
		AnsweredQuestions: &answered,
		QuizData:          data,
	}); err != nil {
		log.Printf("play: sync progress for session %d: %v", c.state.SessionID, err)
	}
}

func (c *Controller) active() bool {
	return c.state != nil && c.state.IsActive
}

func (c *Controller) save(ctx context.Context) {
	data, err := encodeState(c.state)
	if err != nil {
		log.Printf("play: encode snapshot: %v", err)
		return
	}
	if err := c.cache.Put(ctx, c.ownerID, data); err != nil {
		log.Printf("play: save snapshot for %s: %v", c.ownerID, err)
	}
}

func (c *Controller) load(ctx context.Context) *State {
	data, ok, err := c.cache.Get(ctx, c.ownerID)
	if err != nil {
		log.Printf("play: load snapshot for %s: %v", c.ownerID, err)
		return nil
	}
	if !ok {
		return nil
	}
	return decodeState(data)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
