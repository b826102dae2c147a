package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/p-n-ai/pai-tutor/internal/attempt"
	"github.com/p-n-ai/pai-tutor/internal/gating"
	"github.com/p-n-ai/pai-tutor/internal/platform/apperr"
	"github.com/p-n-ai/pai-tutor/internal/ratelimit"
	"github.com/p-n-ai/pai-tutor/internal/recommend"
	"github.com/p-n-ai/pai-tutor/internal/report"
)

// IdempotencyKeyHeader lets a client retry a submission safely.
const IdempotencyKeyHeader = "Idempotency-Key"

type submitRequest struct {
	SubtopicID      string                 `json:"subtopic_id" validate:"required,max=128"`
	ProblemText     string                 `json:"problem_text"`
	StudentResponse string                 `json:"student_response"`
	IsCorrect       *bool                  `json:"is_correct" validate:"required"`
	TimeSpent       int                    `json:"time_spent" validate:"gte=0"`
	HintsUsed       int                    `json:"hints_used" validate:"gte=0"`
	ImageRef        string                 `json:"image_ref" validate:"omitempty,max=2048"`
	Conversation    []attempt.TraceMessage `json:"conversation" validate:"dive"`
	Language        string                 `json:"language" validate:"omitempty,max=35"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	failed := make(map[string]string)
	for _, c := range s.checks {
		if err := c.Check(ctx); err != nil {
			failed[c.Name] = err.Error()
		}
	}
	if len(failed) > 0 {
		slog.Warn("not ready", "failed", failed)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "checks": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleSubtopics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"topics": s.graph.Topics()})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")

	var req submitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if fields := s.validator.Check(req); fields != nil {
		s.metrics.ObserveFailure("invalid")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: fields})
		return
	}

	allowed, err := s.limiter.Allow(r.Context(), ratelimit.Key(userID))
	if err != nil {
		// The limiter store being down does not block grading.
		slog.Warn("rate limiter unavailable", "user_id", userID, "error", err)
		allowed = true
	}
	if !allowed {
		s.metrics.ObserveRateLimited()
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many submissions, slow down"})
		return
	}

	var attemptID string
	if key := r.Header.Get(IdempotencyKeyHeader); key != "" {
		attemptID = attempt.IDFromKey(userID, key)
	}

	res, err := s.recorder.Submit(r.Context(), attempt.Submission{
		AttemptID:       attemptID,
		UserID:          userID,
		SubtopicID:      req.SubtopicID,
		ProblemText:     req.ProblemText,
		StudentResponse: req.StudentResponse,
		IsCorrect:       *req.IsCorrect,
		TimeSpent:       req.TimeSpent,
		HintsUsed:       req.HintsUsed,
		ImageRef:        req.ImageRef,
		Conversation:    req.Conversation,
		Language:        req.Language,
	})
	if err != nil {
		if res != nil {
			// Award computed but not stored; the client may retry with the same key.
			writeJSON(w, statusFor(err), errorResponse{Error: err.Error(), Result: res})
			return
		}
		writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultHistoryLimit, 1, maxHistoryLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := s.recorder.History(r.Context(), r.PathValue("userID"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []attempt.Attempt{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"attempts": list})
}

func (s *Server) handleAttempt(w http.ResponseWriter, r *http.Request) {
	a, err := s.recorder.Attempt(r.Context(), r.PathValue("userID"), r.PathValue("attemptID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	v, err := s.gating.View(r.Context(), r.PathValue("userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"progress":  v.Progress(),
		"subtopics": v.States(),
	})
}

type subtopicResponse struct {
	gating.SubtopicState
	MissingPrerequisites []string `json:"missing_prerequisites"`
	Unlocks              []string `json:"unlocks"`
}

func (s *Server) handleSubtopicState(w http.ResponseWriter, r *http.Request) {
	subtopicID := r.PathValue("subtopicID")
	if _, ok := s.graph.Node(subtopicID); !ok {
		writeError(w, r, apperr.NotFound("subtopic %q", subtopicID))
		return
	}
	v, err := s.gating.View(r.Context(), r.PathValue("userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	state, _ := v.State(subtopicID)
	writeJSON(w, http.StatusOK, subtopicResponse{
		SubtopicState:        state,
		MissingPrerequisites: nonNil(v.MissingPrerequisites(subtopicID)),
		Unlocks:              nonNil(v.UnlockedBy(subtopicID)),
	})
}

func (s *Server) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	rec, err := s.recommend.Next(r.Context(), r.PathValue("userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]*recommend.Recommendation{"recommendation": rec})
}

func (s *Server) handleFrontier(w http.ResponseWriter, r *http.Request) {
	count, err := queryInt(r, "count", defaultFrontierCount, 1, s.graph.Len())
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := s.recommend.Frontier(r.Context(), r.PathValue("userID"), count)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []recommend.Recommendation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"frontier": list})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	v, err := s.gating.View(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	attempts, err := s.recorder.History(r.Context(), userID, 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteWorkbook(&buf, report.Input{
		Progress: v.Progress(),
		States:   v.States(),
		Attempts: attempts,
	}); err != nil {
		writeError(w, r, fmt.Errorf("build report: %w", err))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", userID+"-progress.xlsx"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("failed to send report", "user_id", userID, "error", err)
	}
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	if userID == "" {
		writeError(w, r, apperr.Invalid("user id is required"))
		return
	}
	s.hub.Serve(w, r, userID)
}

// queryInt reads an optional integer query parameter within [lo, hi].
func queryInt(r *http.Request, name string, fallback, lo, hi int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Invalid("%s must be an integer", name)
	}
	if n < lo || n > hi {
		return 0, apperr.Invalid("%s must be between %d and %d", name, lo, hi)
	}
	return n, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
