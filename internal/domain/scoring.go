package domain

import (
	"bytes"
	"fmt"
)

// ScoreCard is the outcome of grading an answer sheet.
type ScoreCard struct {
	Score            int `json:"score"`
	TotalQuestions   int `json:"totalQuestions"`
	CorrectAnswers   int `json:"correctAnswers"`
	IncorrectAnswers int `json:"incorrectAnswers"`
}

// Score grades answers against questions by index. A nil or missing answer is
// incorrect. The order of AllAnswers plays no part.
func Score(questions []Question, answers []*string) ScoreCard {
	card := ScoreCard{TotalQuestions: len(questions)}
	for i, q := range questions {
		if i < len(answers) && answers[i] != nil && *answers[i] == q.CorrectAnswer {
			card.CorrectAnswers++
		}
	}
	card.IncorrectAnswers = card.TotalQuestions - card.CorrectAnswers
	card.Score = Percentage(card.CorrectAnswers, card.TotalQuestions)
	return card
}

// Percentage returns round(100*value/total), or 0 when total is zero.
func Percentage(value, total int) int {
	if total <= 0 {
		return 0
	}
	// half rounds up, matching Math.round for non-negative values
	return (200*value + total) / (2 * total)
}

// AnsweredCount counts non-nil answers.
func AnsweredCount(answers []*string) int {
	n := 0
	for _, a := range answers {
		if a != nil {
			n++
		}
	}
	return n
}

// FormatDuration renders seconds as MM:SS.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Validate checks a session creation request.
func (n NewSession) Validate() error {
	if n.TotalQuestions < 1 {
		return fmt.Errorf("%w: totalQuestions must be at least 1", ErrInvalidInput)
	}
	if !isJSONObject(n.QuizData) {
		return fmt.Errorf("%w: quizData must be an object", ErrInvalidInput)
	}
	if len(n.Settings) > 0 && !isJSONNull(n.Settings) && !isJSONObject(n.Settings) {
		return fmt.Errorf("%w: settings must be an object", ErrInvalidInput)
	}
	return nil
}

// Validate checks a progress update.
func (p Progress) Validate() error {
	if p.AnsweredQuestions == nil {
		return fmt.Errorf("%w: answeredQuestions is required", ErrInvalidInput)
	}
	if *p.AnsweredQuestions < 0 {
		return fmt.Errorf("%w: answeredQuestions must not be negative", ErrInvalidInput)
	}
	if len(p.QuizData) > 0 && !isJSONNull(p.QuizData) && !isJSONObject(p.QuizData) {
		return fmt.Errorf("%w: quizData must be an object", ErrInvalidInput)
	}
	return nil
}

// Validate checks the shape of a completion request.
func (c Completion) Validate() error {
	switch {
	case c.Score < 0 || c.Score > 100:
		return fmt.Errorf("%w: score must be between 0 and 100", ErrInvalidInput)
	case c.CorrectAnswers < 0, c.IncorrectAnswers < 0:
		return fmt.Errorf("%w: answer counts must not be negative", ErrInvalidInput)
	case c.TimeTakenSeconds < 0:
		return fmt.Errorf("%w: timeTakenSeconds must not be negative", ErrInvalidInput)
	}
	return nil
}

// ValidateFor checks the completion against the session it finalizes.
func (c Completion) ValidateFor(session QuizSession) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.CorrectAnswers+c.IncorrectAnswers != session.TotalQuestions {
		return fmt.Errorf("%w: correctAnswers + incorrectAnswers must equal %d", ErrInvalidInput, session.TotalQuestions)
	}
	return nil
}

// ValidateFor checks the update against the session it applies to.
func (p Progress) ValidateFor(session QuizSession) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if *p.AnsweredQuestions > session.TotalQuestions {
		return fmt.Errorf("%w: answeredQuestions must not exceed %d", ErrInvalidInput, session.TotalQuestions)
	}
	return nil
}

func isJSONObject(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) >= 2 && trimmed[0] == '{' && trimmed[len(trimmed)-1] == '}'
}

func isJSONNull(raw []byte) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
