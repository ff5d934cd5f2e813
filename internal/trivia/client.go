package trivia

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/metrics"
)

const (
	DefaultBaseURL = "https://opentdb.com"
	defaultAmount  = 10
)

// Open Trivia DB response codes.
const (
	CodeSuccess         = 0
	CodeNoResults       = 1
	CodeInvalidParam    = 2
	CodeTokenNotFound   = 3
	CodeTokenEmpty      = 4
	CodeRateLimit       = 5
	codeTransportOrBody = 0
)

var codeMessages = map[int]string{
	CodeNoResults:     "No questions found for the selected criteria. Please try different settings.",
	CodeInvalidParam:  "Invalid parameter. Please check your quiz settings.",
	CodeTokenNotFound: "Session token not found.",
	CodeTokenEmpty:    "Session token has returned all possible questions. Resetting token.",
	CodeRateLimit:     "Rate limit exceeded. Please wait a few seconds and try again.",
}

// ProviderError describes why the provider could not supply questions.
// It matches domain.ErrProvider with errors.Is.
type ProviderError struct {
	Code    int
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("trivia provider: %s: %v", e.Message, e.Err)
	}
	return "trivia provider: " + e.Message
}

func (e *ProviderError) Unwrap() []error {
	if e.Err != nil {
		return []error{domain.ErrProvider, e.Err}
	}
	return []error{domain.ErrProvider}
}

// Retryable reports whether trying again later may succeed.
func (e *ProviderError) Retryable() bool {
	return e.Code == codeTransportOrBody || e.Code == CodeRateLimit
}

// rawQuestion mirrors the provider payload.
type rawQuestion struct {
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Category         string   `json:"category"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

type apiResponse struct {
	ResponseCode int           `json:"response_code"`
	Results      []rawQuestion `json:"results"`
}

type categoryResponse struct {
	TriviaCategories []domain.Category `json:"trivia_categories"`
}

// Client talks to Open Trivia DB.
type Client struct {
	baseURL string
	http    *http.Client

	mu  sync.Mutex
	rnd *rand.Rand
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithRand makes answer shuffling deterministic.
func WithRand(rnd *rand.Rand) Option {
	return func(c *Client) { c.rnd = rnd }
}

func NewClient(httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    httpClient,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchQuestions returns exactly settings.Amount normalized questions.
func (c *Client) FetchQuestions(ctx context.Context, settings domain.QuizSettings) ([]domain.Question, error) {
	amount := settings.Amount
	if amount <= 0 {
		amount = defaultAmount
	}

	params := url.Values{}
	params.Set("amount", strconv.Itoa(amount))
	if settings.Category != "" {
		params.Set("category", settings.Category)
	}
	if settings.Difficulty != "" {
		params.Set("difficulty", settings.Difficulty)
	}
	if settings.Type != "" {
		params.Set("type", settings.Type)
	}

	var payload apiResponse
	if err := c.getJSON(ctx, "/api.php?"+params.Encode(), &payload); err != nil {
		return nil, err
	}

	if payload.ResponseCode != CodeSuccess {
		return nil, providerFailure(payload.ResponseCode, nil)
	}
	if len(payload.Results) < amount {
		return nil, providerFailure(CodeNoResults, fmt.Errorf("got %d of %d questions", len(payload.Results), amount))
	}

	questions := make([]domain.Question, 0, amount)
	for _, raw := range payload.Results[:amount] {
		questions = append(questions, c.normalize(raw))
	}
	return questions, nil
}

// LoadCategories lists the provider's categories.
func (c *Client) LoadCategories(ctx context.Context) ([]domain.Category, error) {
	var payload categoryResponse
	if err := c.getJSON(ctx, "/api_category.php", &payload); err != nil {
		return nil, err
	}
	for i := range payload.TriviaCategories {
		payload.TriviaCategories[i].Name = html.UnescapeString(payload.TriviaCategories[i].Name)
	}
	return payload.TriviaCategories, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return providerFailure(codeTransportOrBody, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return providerFailure(codeTransportOrBody, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return providerFailure(CodeRateLimit, nil)
	}
	if resp.StatusCode != http.StatusOK {
		return providerFailure(codeTransportOrBody, fmt.Errorf("status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return providerFailure(codeTransportOrBody, fmt.Errorf("decode: %w", err))
	}
	return nil
}

func (c *Client) normalize(raw rawQuestion) domain.Question {
	incorrect := make([]string, len(raw.IncorrectAnswers))
	for i, a := range raw.IncorrectAnswers {
		incorrect[i] = html.UnescapeString(a)
	}
	correct := html.UnescapeString(raw.CorrectAnswer)

	all := make([]string, 0, len(incorrect)+1)
	all = append(all, correct)
	all = append(all, incorrect...)

	c.mu.Lock()
	Shuffle(c.rnd, all)
	c.mu.Unlock()

	return domain.Question{
		Category:         html.UnescapeString(raw.Category),
		Type:             raw.Type,
		Difficulty:       raw.Difficulty,
		Question:         html.UnescapeString(raw.Question),
		CorrectAnswer:    correct,
		IncorrectAnswers: incorrect,
		AllAnswers:       all,
	}
}

func providerFailure(code int, err error) *ProviderError {
	metrics.ProviderError(code)
	msg, ok := codeMessages[code]
	if !ok {
		msg = "Failed to fetch questions"
	}
	return &ProviderError{Code: code, Message: msg, Err: err}
}
