package domain

import (
	"encoding/json"
	"time"
)

// Question types and difficulties as reported by the trivia provider.
const (
	TypeMultiple = "multiple"
	TypeBoolean  = "boolean"

	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Question is a normalized trivia question. AllAnswers is shuffled once when the
// question is produced and keeps that order for the life of the session.
type Question struct {
	Category         string   `json:"category"`
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
	AllAnswers       []string `json:"all_answers"`
}

// QuizSettings is what the user picks before starting a quiz.
type QuizSettings struct {
	Amount     int    `json:"amount"`
	Category   string `json:"category,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	Type       string `json:"type,omitempty"`
}

// QuizData is the payload embedded in a session record.
type QuizData struct {
	Questions []Question   `json:"questions"`
	Answers   []*string    `json:"answers,omitempty"`
	Settings  QuizSettings `json:"settings"`
}

// QuizSession is the durable record of one quiz attempt.
type QuizSession struct {
	ID                int64           `json:"id"`
	UserID            string          `json:"userId"`
	QuizData          json.RawMessage `json:"quizData"`
	TotalQuestions    int             `json:"totalQuestions"`
	AnsweredQuestions int             `json:"answeredQuestions"`
	Score             *int            `json:"score"`
	Completed         bool            `json:"completed"`
	StartedAt         time.Time       `json:"startedAt"`
	CompletedAt       *time.Time      `json:"completedAt"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// QuizResult is the immutable scored outcome of a completed session.
type QuizResult struct {
	ID               int64        `json:"id"`
	UserID           string       `json:"userId"`
	QuizSessionID    int64        `json:"quizSessionId"`
	Score            int          `json:"score"`
	TotalQuestions   int          `json:"totalQuestions"`
	CorrectAnswers   int          `json:"correctAnswers"`
	IncorrectAnswers int          `json:"incorrectAnswers"`
	TimeTakenSeconds int          `json:"timeTaken"`
	Category         *string      `json:"category"`
	Difficulty       *string      `json:"difficulty"`
	CreatedAt        time.Time    `json:"createdAt"`
	Session          *QuizSession `json:"session,omitempty"`
}

// NewSession describes a session to create.
type NewSession struct {
	QuizData       json.RawMessage `json:"quizData"`
	TotalQuestions int             `json:"totalQuestions"`
	Settings       json.RawMessage `json:"settings,omitempty"`
}

// Progress is a partial update of an active session. AnsweredQuestions is
// required; a nil count is rejected rather than read as zero.
type Progress struct {
	AnsweredQuestions *int            `json:"answeredQuestions"`
	QuizData          json.RawMessage `json:"quizData,omitempty"`
}

// Completion carries the client-computed tallies submitted at the end of a quiz.
type Completion struct {
	Score            int     `json:"score"`
	CorrectAnswers   int     `json:"correctAnswers"`
	IncorrectAnswers int     `json:"incorrectAnswers"`
	TimeTakenSeconds int     `json:"timeTakenSeconds"`
	Category         *string `json:"category,omitempty"`
	Difficulty       *string `json:"difficulty,omitempty"`
}

// ResultPage is one page of a user's results, newest first.
type ResultPage struct {
	Data        []QuizResult `json:"data"`
	CurrentPage int          `json:"currentPage"`
	PerPage     int          `json:"perPage"`
	Total       int          `json:"total"`
	LastPage    int          `json:"lastPage"`
}

// DifficultyStats is one row of the per-difficulty breakdown.
type DifficultyStats struct {
	Difficulty string  `json:"difficulty"`
	Count      int     `json:"count"`
	AvgScore   float64 `json:"avgScore"`
}

// Stats aggregates a user's results.
type Stats struct {
	TotalQuizzes           int               `json:"totalQuizzes"`
	TotalQuestionsAnswered int               `json:"totalQuestionsAnswered"`
	TotalCorrectAnswers    int               `json:"totalCorrectAnswers"`
	AverageScore           *float64          `json:"averageScore"`
	BestScore              *int              `json:"bestScore"`
	TotalTimeSpent         int               `json:"totalTimeSpent"`
	ByDifficulty           []DifficultyStats `json:"byDifficulty"`
	RecentResults          []QuizResult      `json:"recentResults"`
}

// Category is a trivia category offered by the provider.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
