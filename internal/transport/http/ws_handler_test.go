package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/auth"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/memory"
)

type staticSource struct {
	questions []domain.Question
}

func (s staticSource) FetchQuestions(context.Context, domain.QuizSettings) ([]domain.Question, error) {
	return s.questions, nil
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			Category:         "Science: Computers",
			Type:             domain.TypeBoolean,
			Difficulty:       domain.DifficultyEasy,
			Question:         "Go has goroutines.",
			CorrectAnswer:    "True",
			IncorrectAnswers: []string{"False"},
			AllAnswers:       []string{"False", "True"},
		},
		{
			Category:         "Science: Computers",
			Type:             domain.TypeBoolean,
			Difficulty:       domain.DifficultyEasy,
			Question:         "Go has inheritance.",
			CorrectAnswer:    "False",
			IncorrectAnswers: []string{"True"},
			AllAnswers:       []string{"True", "False"},
		},
	}
}

type wsFixture struct {
	url     string
	service *app.QuizService
	cache   *memory.ResumeCache
	issuer  *auth.Issuer
}

func newWSFixture(t *testing.T, opts ...WSOption) *wsFixture {
	t.Helper()
	store := memory.NewStore()
	service := app.NewQuizService(store, store, nil)
	cache := memory.NewResumeCache()
	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	ws := NewWSHandler(staticSource{questions: sampleQuestions()}, service, cache, opts...)
	server := httptest.NewServer(NewRouter(RouterDeps{Service: service, WS: ws, Verifier: issuer}))
	t.Cleanup(server.Close)
	return &wsFixture{
		url:     "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/play",
		service: service,
		cache:   cache,
		issuer:  issuer,
	}
}

func (f *wsFixture) dial(t *testing.T, owner string) *websocket.Conn {
	t.Helper()
	token, _ := f.issuer.Issue(owner)
	conn, _, err := websocket.DefaultDialer.Dial(f.url+"?token="+token, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) wsMessage {
	t.Helper()
	var msg wsMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%s)", expect, msg.Type, msg.Payload)
	}
	return msg
}

// readUntil skips ticks and other chatter until a message of type expect arrives.
func readUntil(conn *websocket.Conn, t *testing.T, expect string) wsMessage {
	t.Helper()
	for i := 0; i < 50; i++ {
		msg := readNext(conn, t, "")
		if msg.Type == expect {
			return msg
		}
	}
	t.Fatalf("no %s message received", expect)
	return wsMessage{}
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func TestWebSocketPlayAndSubmit(t *testing.T) {
	f := newWSFixture(t, WithTickInterval(time.Hour))
	conn := f.dial(t, "u1")

	var resumable resumablePayload
	_ = json.Unmarshal(readNext(conn, t, "resumable").Payload, &resumable)
	if resumable.Resumable || resumable.State != nil {
		t.Fatal("expected nothing to resume on first connect")
	}

	send(t, conn, "start", domain.QuizSettings{Amount: 2})
	msg := readNext(conn, t, "state")
	if strings.Contains(string(msg.Payload), "correct_answer") {
		t.Fatalf("state leaked the answer key: %s", msg.Payload)
	}

	send(t, conn, "answer", answerPayload{Answer: "True"})
	readNext(conn, t, "state")
	send(t, conn, "goto", gotoPayload{Index: 5})
	var view struct {
		CurrentQuestionIndex int `json:"currentQuestionIndex"`
	}
	_ = json.Unmarshal(readNext(conn, t, "state").Payload, &view)
	if view.CurrentQuestionIndex != 0 {
		t.Fatalf("out of range goto moved cursor to %d", view.CurrentQuestionIndex)
	}
	send(t, conn, "next", nil)
	readNext(conn, t, "state")
	send(t, conn, "answer", answerPayload{Answer: "True"})
	readNext(conn, t, "state")

	send(t, conn, "submit", nil)
	var out struct {
		Session domain.QuizSession `json:"session"`
		Result  domain.QuizResult  `json:"result"`
	}
	_ = json.Unmarshal(readNext(conn, t, "submitted").Payload, &out)
	if out.Result.Score != 50 || out.Result.CorrectAnswers != 1 || out.Result.IncorrectAnswers != 1 {
		t.Fatalf("unexpected result: %+v", out.Result)
	}
	if !out.Session.Completed || out.Result.QuizSessionID != out.Session.ID {
		t.Fatalf("unexpected session: %+v", out.Session)
	}
	if _, ok, _ := f.cache.Get(context.Background(), "u1"); ok {
		t.Fatal("expected resume cache cleared after submit")
	}
}

func TestWebSocketTimeoutAutoSubmits(t *testing.T) {
	f := newWSFixture(t, WithQuizDuration(3*time.Second), WithTickInterval(50*time.Millisecond))
	conn := f.dial(t, "u1")
	readNext(conn, t, "resumable")

	send(t, conn, "start", domain.QuizSettings{Amount: 2})
	readNext(conn, t, "state")
	send(t, conn, "answer", answerPayload{Answer: "True"})

	var out struct {
		Result domain.QuizResult `json:"result"`
	}
	_ = json.Unmarshal(readUntil(conn, t, "submitted").Payload, &out)
	if out.Result.CorrectAnswers != 1 || out.Result.IncorrectAnswers != 1 || out.Result.TimeTakenSeconds != 3 {
		t.Fatalf("unexpected timeout result: %+v", out.Result)
	}

	page, err := f.service.ListResults(context.Background(), "u1", 1)
	if err != nil || page.Total != 1 {
		t.Fatalf("expected one stored result, got %+v, %v", page, err)
	}
}

func TestWebSocketResumeAfterReconnect(t *testing.T) {
	f := newWSFixture(t, WithTickInterval(time.Hour))

	first := f.dial(t, "u1")
	readNext(first, t, "resumable")
	send(t, first, "start", domain.QuizSettings{Amount: 2})
	readNext(first, t, "state")
	send(t, first, "answer", answerPayload{Answer: "False"})
	readNext(first, t, "state")
	first.Close()

	second := f.dial(t, "u1")
	var resumable resumablePayload
	_ = json.Unmarshal(readNext(second, t, "resumable").Payload, &resumable)
	if !resumable.Resumable || resumable.State == nil {
		t.Fatalf("expected the earlier attempt to be offered with its state, got %+v", resumable)
	}
	if resumable.State.Answered != 1 || len(resumable.State.Questions) != 2 || !resumable.State.IsActive {
		t.Fatalf("expected offer to show 1 of 2 answered, got %+v", resumable.State)
	}
	send(t, second, "resume", nil)
	var view struct {
		UserAnswers []*string `json:"userAnswers"`
		Answered    int       `json:"answered"`
	}
	_ = json.Unmarshal(readNext(second, t, "state").Payload, &view)
	if view.Answered != 1 || view.UserAnswers[0] == nil || *view.UserAnswers[0] != "False" {
		t.Fatalf("unexpected resumed answers: %+v", view)
	}

	send(t, second, "reset", nil)
	readNext(second, t, "reset")
	send(t, second, "submit", nil)
	readNext(second, t, "error")
}

func TestWebSocketRequiresToken(t *testing.T) {
	f := newWSFixture(t)
	if _, resp, err := websocket.DefaultDialer.Dial(f.url, nil); err == nil || resp == nil || resp.StatusCode != 401 {
		t.Fatalf("expected 401 without token, got %v", err)
	}
}
