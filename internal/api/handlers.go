package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/hooktriage/internal/apperr"
	"github.com/starford/hooktriage/internal/index"
	"github.com/starford/hooktriage/internal/pipeline"
)

// HookService runs hook messages through the triage pipeline.
// *pipeline.Service satisfies it.
type HookService interface {
	Handle(ctx context.Context, raw string) (*pipeline.Outcome, error)
	Preview(ctx context.Context, raw string) (*pipeline.Outcome, error)
}

// Handler holds API route handlers.
type Handler struct {
	hooks HookService
	idx   index.EventIndex
}

// NewHandler creates a new Handler.
func NewHandler(hooks HookService, idx index.EventIndex) *Handler {
	return &Handler{hooks: hooks, idx: idx}
}

// readMessage returns the hook text from a JSON {"message": ...} body or a
// plain-text body.
func readMessage(w http.ResponseWriter, r *http.Request) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return "", false
	}

	msg := string(body)
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "application/json" {
		var req HookRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return "", false
		}
		msg = req.Message
	}
	if strings.TrimSpace(msg) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("message is required"))
		return "", false
	}
	return msg, true
}

// hookStatus maps a pipeline error onto an HTTP status.
func hookStatus(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNoIssueNumber):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HandleHook handles POST /api/hooks.
//
//	@Summary		Triage a hook notification and record the decision in the ledger
//	@Tags			hooks
//	@Accept			json,plain
//	@Produce		json
//	@Param			body	body		HookRequest	true	"Hook message"
//	@Success		200		{object}	HookResponse
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	HookResponse
//	@Failure		502		{object}	HookResponse
//	@Failure		500		{object}	HookResponse
//	@Security		BearerAuth
//	@Router			/hooks [post]
func (h *Handler) HandleHook(w http.ResponseWriter, r *http.Request) {
	msg, ok := readMessage(w, r)
	if !ok {
		return
	}
	out, err := h.hooks.Handle(r.Context(), msg)
	if err != nil {
		attrs := []any{slog.String("error", err.Error())}
		if out != nil {
			attrs = append(attrs, slog.String("run_id", out.RunID))
		}
		slog.Error("handle hook failed", attrs...)
		writeJSON(w, hookStatus(err), HookResponse{Outcome: out, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, HookResponse{Outcome: out})
}

// PreviewHook handles POST /api/hooks/preview.
//
//	@Summary		Show the triage decision for a hook without writing the ledger
//	@Tags			hooks
//	@Accept			json,plain
//	@Produce		json
//	@Param			body	body		HookRequest	true	"Hook message"
//	@Success		200		{object}	HookResponse
//	@Failure		422		{object}	HookResponse
//	@Failure		502		{object}	HookResponse
//	@Security		BearerAuth
//	@Router			/hooks/preview [post]
func (h *Handler) PreviewHook(w http.ResponseWriter, r *http.Request) {
	msg, ok := readMessage(w, r)
	if !ok {
		return
	}
	out, err := h.hooks.Preview(r.Context(), msg)
	if err != nil {
		writeJSON(w, hookStatus(err), HookResponse{Outcome: out, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, HookResponse{Outcome: out})
}

// ListEvents handles GET /api/ledger.
//
//	@Summary		List ledger events newest first
//	@Tags			ledger
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			event	query		string	false	"Filter by event kind"	Enums(task.progress, task.blocked)
//	@Param			task	query		string	false	"Filter by task id"
//	@Param			agent	query		string	false	"Filter by agent"
//	@Success		200		{object}	EventListResponse
//	@Security		BearerAuth
//	@Router			/ledger [get]
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	rows, total, err := h.idx.ListEvents(index.Filter{
		Event:  q.Get("event"),
		Task:   q.Get("task"),
		Agent:  q.Get("agent"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		slog.Error("list events failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, EventListResponse{Events: rows, Total: total})
}

// GetEvent handles GET /api/ledger/{line}.
//
//	@Summary		Get a single ledger line
//	@Tags			ledger
//	@Produce		json
//	@Param			line	path		int	true	"1-based line number"
//	@Success		200		{object}	EventRow
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ledger/{line} [get]
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	line, err := strconv.Atoi(chi.URLParam(r, "line"))
	if err != nil || line < 1 {
		writeJSON(w, http.StatusBadRequest, errorBody("line must be a positive integer"))
		return
	}
	row, err := h.idx.GetEvent(line)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get event failed", slog.Int("line", line), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// Search handles GET /api/ledger/search.
//
//	@Summary		Full-text search across ledger text, reasons and task ids
//	@Tags			ledger
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ledger/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.idx.Search(q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// TaskHistory handles GET /api/tasks/{task}.
//
//	@Summary		List every ledger event for a task
//	@Tags			ledger
//	@Produce		json
//	@Param			task	path		string	true	"Task id (e.g. T-9)"
//	@Success		200		{object}	TaskHistoryResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks/{task} [get]
func (h *Handler) TaskHistory(w http.ResponseWriter, r *http.Request) {
	task := chi.URLParam(r, "task")
	rows, err := h.idx.TaskHistory(task)
	if err != nil {
		slog.Error("task history failed", slog.String("task", task), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if len(rows) == 0 {
		writeJSON(w, http.StatusNotFound, errorBody("no events for task"))
		return
	}
	writeJSON(w, http.StatusOK, TaskHistoryResponse{Task: task, Events: rows})
}
