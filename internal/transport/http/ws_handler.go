package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/metrics"
	"trivia-quiz-service/internal/play"
	"trivia-quiz-service/internal/trivia"
)

// WSHandler runs one quiz attempt per websocket connection. The controller,
// including its countdown, is owned by a single goroutine per connection.
type WSHandler struct {
	source   play.QuestionSource
	backend  play.Backend
	cache    play.ResumeCache
	duration time.Duration
	tick     time.Duration
	upgrader websocket.Upgrader
}

type WSOption func(*WSHandler)

// WithQuizDuration sets the time allowed per attempt.
func WithQuizDuration(d time.Duration) WSOption {
	return func(h *WSHandler) { h.duration = d }
}

// WithTickInterval sets how often one second of quiz time elapses. Tests shorten it.
func WithTickInterval(d time.Duration) WSOption {
	return func(h *WSHandler) { h.tick = d }
}

func NewWSHandler(source play.QuestionSource, backend play.Backend, cache play.ResumeCache, opts ...WSOption) *WSHandler {
	h := &WSHandler{
		source:   source,
		backend:  backend,
		cache:    cache,
		duration: play.DefaultDuration,
		tick:     time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Answer string `json:"answer"`
}

type gotoPayload struct {
	Index int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// resumablePayload carries the cached attempt's public view, when there is
// one, so the player can see its progress before choosing resume or start.
type resumablePayload struct {
	Resumable bool       `json:"resumable"`
	State     *play.View `json:"state,omitempty"`
}

type tickPayload struct {
	TimeRemaining int    `json:"timeRemaining"`
	Display       string `json:"display"`
}

// ServeWS upgrades an authenticated request and plays a quiz over the socket.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	owner := OwnerID(r.Context())
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing authorization")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	metrics.PlayerConnected()
	defer metrics.PlayerDisconnected()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ctrl := play.NewController(owner, h.source, h.backend, h.cache, play.WithDuration(h.duration))

	send := make(chan outboundMessage[any], 16)
	inbound := make(chan inboundMessage)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(inbound)
		for {
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			select {
			case inbound <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	emit := func(typ string, payload any) {
		select {
		case send <- outboundMessage[any]{Type: typ, Payload: payload}:
		case <-writerDone:
		}
	}

	h.play(ctx, ctrl, inbound, emit)

	// Leave the session record reflecting what was answered before the drop.
	ctrl.SyncProgress(context.WithoutCancel(ctx))

	cancel()
	close(send)
	<-writerDone
}

func (h *WSHandler) play(ctx context.Context, ctrl *play.Controller, inbound <-chan inboundMessage, emit func(string, any)) {
	ticker := time.NewTicker(h.tick)
	defer ticker.Stop()

	offer := resumablePayload{}
	if st, ok := ctrl.Peek(ctx); ok {
		view := st.View()
		offer = resumablePayload{Resumable: true, State: &view}
	}
	emit("resumable", offer)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-inbound:
			if !ok {
				return
			}
			h.dispatch(ctx, ctrl, msg, emit)
		case <-ticker.C:
			st := ctrl.State()
			if st == nil || !st.IsActive {
				continue
			}
			out, err := ctrl.Tick(ctx)
			switch {
			case err != nil:
				emitError(emit, err)
				emit("state", ctrl.State().View())
			case out != nil:
				emit("submitted", out)
			default:
				remaining := ctrl.State().TimeRemaining
				emit("tick", tickPayload{TimeRemaining: remaining, Display: domain.FormatDuration(remaining)})
			}
		}
	}
}

func (h *WSHandler) dispatch(ctx context.Context, ctrl *play.Controller, msg inboundMessage, emit func(string, any)) {
	switch msg.Type {
	case "start":
		var settings domain.QuizSettings
		if err := json.Unmarshal(msg.Payload, &settings); err != nil {
			emit("error", errorPayload{Message: "invalid start payload"})
			return
		}
		st, err := ctrl.Start(ctx, settings)
		if err != nil {
			emitError(emit, err)
			return
		}
		emit("state", st.View())

	case "resume":
		st, ok := ctrl.Resume(ctx)
		if !ok {
			emit("error", errorPayload{Message: domain.ErrNoActiveQuiz.Error()})
			return
		}
		emit("state", st.View())

	case "reset":
		ctrl.Reset(ctx)
		emit("reset", resumablePayload{Resumable: false})

	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			emit("error", errorPayload{Message: "invalid answer payload"})
			return
		}
		if !activeState(ctrl, emit) {
			return
		}
		ctrl.Answer(ctx, payload.Answer)
		ctrl.SyncProgress(ctx)
		emit("state", ctrl.State().View())

	case "next":
		if !activeState(ctrl, emit) {
			return
		}
		emit("state", ctrl.Next(ctx).View())

	case "goto":
		var payload gotoPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			emit("error", errorPayload{Message: "invalid goto payload"})
			return
		}
		if !activeState(ctrl, emit) {
			return
		}
		emit("state", ctrl.GoTo(ctx, payload.Index).View())

	case "submit":
		out, err := ctrl.Submit(ctx)
		if err != nil {
			emitError(emit, err)
			return
		}
		emit("submitted", out)

	default:
		emit("error", errorPayload{Message: "unsupported message type"})
	}
}

func activeState(ctrl *play.Controller, emit func(string, any)) bool {
	if st := ctrl.State(); st == nil || !st.IsActive {
		emit("error", errorPayload{Message: domain.ErrNoActiveQuiz.Error()})
		return false
	}
	return true
}

// emitError reports provider failures with their message so the player can
// retry; persistence failures stay generic.
func emitError(emit func(string, any), err error) {
	var pe *trivia.ProviderError
	switch {
	case errors.As(err, &pe):
		emit("error", errorPayload{Message: pe.Message, Retryable: pe.Retryable()})
	case errors.Is(err, domain.ErrInvalidInput):
		emit("error", errorPayload{Message: err.Error()})
	case errors.Is(err, domain.ErrSessionCreate):
		emit("error", errorPayload{Message: domain.ErrSessionCreate.Error(), Retryable: true})
	case errors.Is(err, domain.ErrSubmission):
		emit("error", errorPayload{Message: domain.ErrSubmission.Error(), Retryable: true})
	default:
		emit("error", errorPayload{Message: err.Error()})
	}
}
