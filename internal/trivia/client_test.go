package trivia

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"sort"
	"strings"
	"testing"

	"trivia-quiz-service/internal/domain"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func newTestClient(rt http.RoundTripper) *Client {
	return NewClient(&http.Client{Transport: rt}, WithRand(rand.New(rand.NewSource(1))))
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Header:     make(http.Header),
	}
}

const twoQuestions = `{"response_code":0,"results":[
 {"type":"multiple","difficulty":"easy","category":"Science &amp; Nature",
  "question":"What is H&#039;s symbol?","correct_answer":"H",
  "incorrect_answers":["He","&quot;Hy&quot;","Hg"]},
 {"type":"boolean","difficulty":"hard","category":"History",
  "question":"Is this true?","correct_answer":"True","incorrect_answers":["False"]}
]}`

func TestFetchQuestionsBuildsQuery(t *testing.T) {
	var seen *http.Request
	client := newTestClient(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		seen = r
		return jsonResponse(http.StatusOK, twoQuestions), nil
	}))

	_, err := client.FetchQuestions(context.Background(), domain.QuizSettings{
		Amount:     2,
		Category:   "9",
		Difficulty: domain.DifficultyEasy,
		Type:       domain.TypeMultiple,
	})
	if err != nil {
		t.Fatalf("FetchQuestions returned error: %v", err)
	}
	if seen.URL.Path != "/api.php" {
		t.Fatalf("unexpected path %q", seen.URL.Path)
	}
	q := seen.URL.Query()
	if q.Get("amount") != "2" || q.Get("category") != "9" || q.Get("difficulty") != "easy" || q.Get("type") != "multiple" {
		t.Fatalf("unexpected query %q", seen.URL.RawQuery)
	}
}

func TestFetchQuestionsOmitsEmptyFilters(t *testing.T) {
	var rawQuery string
	client := newTestClient(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		rawQuery = r.URL.RawQuery
		return jsonResponse(http.StatusOK, twoQuestions), nil
	}))

	if _, err := client.FetchQuestions(context.Background(), domain.QuizSettings{Amount: 2}); err != nil {
		t.Fatalf("FetchQuestions returned error: %v", err)
	}
	if rawQuery != "amount=2" {
		t.Fatalf("expected only amount, got %q", rawQuery)
	}
}

func TestFetchQuestionsDecodesAndShuffles(t *testing.T) {
	client := newTestClient(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, twoQuestions), nil
	}))

	questions, err := client.FetchQuestions(context.Background(), domain.QuizSettings{Amount: 2})
	if err != nil {
		t.Fatalf("FetchQuestions returned error: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}

	first := questions[0]
	if first.Category != "Science & Nature" || first.Question != "What is H's symbol?" {
		t.Fatalf("entities not decoded: %+v", first)
	}
	if first.IncorrectAnswers[1] != `"Hy"` {
		t.Fatalf("incorrect answers not decoded: %v", first.IncorrectAnswers)
	}

	for _, q := range questions {
		want := append([]string{q.CorrectAnswer}, q.IncorrectAnswers...)
		got := append([]string(nil), q.AllAnswers...)
		sort.Strings(want)
		sort.Strings(got)
		if strings.Join(want, "|") != strings.Join(got, "|") {
			t.Fatalf("all_answers %v is not a permutation of %v", q.AllAnswers, want)
		}
	}
}

func TestFetchQuestionsResponseCodes(t *testing.T) {
	for code := CodeNoResults; code <= CodeRateLimit; code++ {
		body := `{"response_code":` + string(rune('0'+code)) + `,"results":[]}`
		client := newTestClient(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, body), nil
		}))

		_, err := client.FetchQuestions(context.Background(), domain.QuizSettings{Amount: 3})
		if !errors.Is(err, domain.ErrProvider) {
			t.Fatalf("code %d: expected ErrProvider, got %v", code, err)
		}
		var perr *ProviderError
		if !errors.As(err, &perr) || perr.Code != code {
			t.Fatalf("code %d: expected ProviderError with code, got %v", code, err)
		}
		if perr.Message == "" {
			t.Fatalf("code %d: expected a message", code)
		}
	}
}

func TestFetchQuestionsRateLimitIsRetryable(t *testing.T) {
	client := newTestClient(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusTooManyRequests, ""), nil
	}))

	_, err := client.FetchQuestions(context.Background(), domain.QuizSettings{Amount: 1})
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Code != CodeRateLimit || !perr.Retryable() {
		t.Fatalf("expected retryable rate limit error, got %v", err)
	}
}

func TestFetchQuestionsTransportAndDecodeErrors(t *testing.T) {
	failing := newTestClient(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	}))
	if _, err := failing.FetchQuestions(context.Background(), domain.QuizSettings{Amount: 1}); !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("expected provider error for transport failure, got %v", err)
	}

	badStatus := newTestClient(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadGateway, ""), nil
	}))
	if _, err := badStatus.FetchQuestions(context.Background(), domain.QuizSettings{Amount: 1}); !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("expected provider error for non-200 status, got %v", err)
	}

	notJSON := newTestClient(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, "not-json"), nil
	}))
	if _, err := notJSON.FetchQuestions(context.Background(), domain.QuizSettings{Amount: 1}); !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("expected provider error for bad body, got %v", err)
	}
}

func TestFetchQuestionsShortBatch(t *testing.T) {
	client := newTestClient(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, twoQuestions), nil
	}))

	if _, err := client.FetchQuestions(context.Background(), domain.QuizSettings{Amount: 5}); !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("expected provider error for short batch, got %v", err)
	}
}

func TestLoadCategories(t *testing.T) {
	client := newTestClient(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/api_category.php" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		return jsonResponse(http.StatusOK, `{"trivia_categories":[{"id":9,"name":"General Knowledge"},{"id":10,"name":"Entertainment: Books &amp; More"}]}`), nil
	}))

	cats, err := client.LoadCategories(context.Background())
	if err != nil {
		t.Fatalf("LoadCategories returned error: %v", err)
	}
	if len(cats) != 2 || cats[1].ID != 10 || cats[1].Name != "Entertainment: Books & More" {
		t.Fatalf("unexpected categories: %+v", cats)
	}
}

func TestShuffleIsUniform(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	counts := make(map[string]int)
	const trials = 60000

	for i := 0; i < trials; i++ {
		items := []string{"a", "b", "c"}
		Shuffle(rnd, items)
		counts[strings.Join(items, "")]++
	}

	if len(counts) != 6 {
		t.Fatalf("expected all 6 permutations, got %d", len(counts))
	}
	expected := trials / 6
	for perm, n := range counts {
		if n < expected*9/10 || n > expected*11/10 {
			t.Fatalf("permutation %s seen %d times, expected about %d", perm, n, expected)
		}
	}
}

func TestShuffleKeepsElements(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	items := []int{1, 2, 3, 4, 5}
	Shuffle(rnd, items)

	seen := make(map[int]bool)
	for _, v := range items {
		if seen[v] {
			t.Fatalf("duplicate %d after shuffle: %v", v, items)
		}
		seen[v] = true
	}
	if len(seen) != 5 {
		t.Fatalf("lost elements: %v", items)
	}
}
