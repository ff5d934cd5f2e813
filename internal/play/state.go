package play

import (
	"encoding/json"
	"time"

	"trivia-quiz-service/internal/domain"
)

// State is the working copy of one quiz attempt. It is the source of truth
// until submission and is what gets snapshotted to the resume cache.
type State struct {
	SessionID            int64               `json:"sessionId"`
	Questions            []domain.Question   `json:"questions"`
	CurrentQuestionIndex int                 `json:"currentQuestionIndex"`
	UserAnswers          []*string           `json:"userAnswers"`
	TimeRemaining        int                 `json:"timeRemaining"`
	IsActive             bool                `json:"isActive"`
	Settings             domain.QuizSettings `json:"settings"`
	StartedAt            *time.Time          `json:"startedAt"`

	// submitted marks the terminal Submitted phase; it is never snapshotted.
	submitted bool
}

// Phase names a point in the attempt lifecycle.
type Phase string

const (
	PhaseActive    Phase = "active"
	PhaseExpired   Phase = "expired"
	PhaseSubmitted Phase = "submitted"
)

// Phase reports where the attempt stands. Expired means the clock ran out
// and submission has not succeeded yet.
func (s *State) Phase() Phase {
	switch {
	case s.submitted:
		return PhaseSubmitted
	case s.IsActive:
		return PhaseActive
	default:
		return PhaseExpired
	}
}

// Answered counts answered questions.
func (s *State) Answered() int {
	return domain.AnsweredCount(s.UserAnswers)
}

// CurrentQuestion returns the question under the cursor.
func (s *State) CurrentQuestion() domain.Question {
	return s.Questions[s.CurrentQuestionIndex]
}

// resumable reports whether a decoded snapshot is well formed and still active.
func (s *State) resumable() bool {
	n := len(s.Questions)
	return s.IsActive &&
		s.SessionID != 0 &&
		n > 0 &&
		len(s.UserAnswers) == n &&
		s.CurrentQuestionIndex >= 0 && s.CurrentQuestionIndex < n &&
		s.TimeRemaining > 0
}

func (s *State) quizData() domain.QuizData {
	return domain.QuizData{
		Questions: s.Questions,
		Answers:   s.UserAnswers,
		Settings:  s.Settings,
	}
}

func encodeState(s *State) ([]byte, error) {
	return json.Marshal(s)
}

// decodeState returns nil for anything that is not a resumable snapshot.
func decodeState(data []byte) *State {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil
	}
	if !st.resumable() {
		return nil
	}
	return &st
}

// PublicQuestion is a question without its answer key.
type PublicQuestion struct {
	Category   string   `json:"category"`
	Type       string   `json:"type"`
	Difficulty string   `json:"difficulty"`
	Question   string   `json:"question"`
	AllAnswers []string `json:"all_answers"`
}

// View is the state as shown to a player: the answer key is withheld.
type View struct {
	SessionID            int64               `json:"sessionId"`
	Questions            []PublicQuestion    `json:"questions"`
	CurrentQuestionIndex int                 `json:"currentQuestionIndex"`
	UserAnswers          []*string           `json:"userAnswers"`
	TimeRemaining        int                 `json:"timeRemaining"`
	IsActive             bool                `json:"isActive"`
	Settings             domain.QuizSettings `json:"settings"`
	StartedAt            *time.Time          `json:"startedAt"`
	Answered             int                 `json:"answered"`
	Phase                Phase               `json:"phase"`
}

func (s *State) View() View {
	qs := make([]PublicQuestion, len(s.Questions))
	for i, q := range s.Questions {
		qs[i] = PublicQuestion{
			Category:   q.Category,
			Type:       q.Type,
			Difficulty: q.Difficulty,
			Question:   q.Question,
			AllAnswers: q.AllAnswers,
		}
	}
	return View{
		SessionID:            s.SessionID,
		Questions:            qs,
		CurrentQuestionIndex: s.CurrentQuestionIndex,
		UserAnswers:          s.UserAnswers,
		TimeRemaining:        s.TimeRemaining,
		IsActive:             s.IsActive,
		Settings:             s.Settings,
		StartedAt:            s.StartedAt,
		Answered:             s.Answered(),
		Phase:                s.Phase(),
	}
}
