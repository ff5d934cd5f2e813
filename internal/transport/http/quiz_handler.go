package http

import (
	"net/http"
	"strconv"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

// QuizHandler serves the session and result REST endpoints.
type QuizHandler struct {
	service *app.QuizService
}

func NewQuizHandler(service *app.QuizService) *QuizHandler {
	return &QuizHandler{service: service}
}

type sessionResponse struct {
	Session *domain.QuizSession `json:"session"`
}

type completionResponse struct {
	Session domain.QuizSession `json:"session"`
	Result  domain.QuizResult  `json:"result"`
}

// CreateSession handles POST /api/quiz/sessions
func (h *QuizHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req domain.NewSession
	if !decodeBody(w, r, &req) {
		return
	}
	session, err := h.service.CreateSession(r.Context(), OwnerID(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Session: &session})
}

// UpdateSession handles PATCH /api/quiz/sessions/{id}
func (h *QuizHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req domain.Progress
	if !decodeBody(w, r, &req) {
		return
	}
	session, err := h.service.UpdateSession(r.Context(), OwnerID(r.Context()), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: &session})
}

// ActiveSession handles GET /api/quiz/sessions/active
func (h *QuizHandler) ActiveSession(w http.ResponseWriter, r *http.Request) {
	session, found, err := h.service.ActiveSession(r.Context(), OwnerID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	resp := sessionResponse{}
	if found {
		resp.Session = &session
	}
	writeJSON(w, http.StatusOK, resp)
}

// CompleteSession handles POST /api/quiz/sessions/{id}/complete
func (h *QuizHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req domain.Completion
	if !decodeBody(w, r, &req) {
		return
	}
	session, result, err := h.service.CompleteSession(r.Context(), OwnerID(r.Context()), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, completionResponse{Session: session, Result: result})
}

// ListResults handles GET /api/quiz/results?page=N
func (h *QuizHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "page must be a number")
			return
		}
		page = n
	}
	results, err := h.service.ListResults(r.Context(), OwnerID(r.Context()), page)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// GetResult handles GET /api/quiz/results/{id}
func (h *QuizHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	result, err := h.service.GetResult(r.Context(), OwnerID(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]domain.QuizResult{"result": result})
}

// Stats handles GET /api/quiz/stats
func (h *QuizHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context(), OwnerID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Categories handles GET /api/quiz/categories
func (h *QuizHandler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.service.Categories(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.Category{"categories": cats})
}
