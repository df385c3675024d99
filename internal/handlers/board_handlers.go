package handlers

import (
	"net/http"
	"time"

	"studiosync/internal/handlers/dto"
	"studiosync/internal/logger"
	"studiosync/internal/models/board"
	"studiosync/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type BoardHandler struct {
	BoardService BoardService
}

func NewBoardHandler(boardService BoardService) *BoardHandler {
	return &BoardHandler{BoardService: boardService}
}

// Routes монтируется в /boards.
func (h *BoardHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/{view}", func(r chi.Router) {
		r.Get("/", h.GetBoard)
		r.Post("/columns/{column}/tasks", h.AddTask)
		r.Post("/moves", h.MoveTask)
		r.Delete("/tasks/{id}", h.RemoveTask)
		r.Put("/drag-over", h.SetDragOver)
		r.Delete("/drag-over", h.ClearDragOver)
		r.Post("/reset", h.Reset)
	})
	return r
}

func viewParam(r *http.Request) service.View {
	return service.View(chi.URLParam(r, "view"))
}

func (h *BoardHandler) respondBoard(w http.ResponseWriter, r *http.Request, code int) {
	snap, err := h.BoardService.Snapshot(viewParam(r))
	if err != nil {
		handleError(w, r, err, "get_board")
		return
	}
	respond(w, code, dto.FromSnapshot(snap))
}

func (h *BoardHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	h.respondBoard(w, r, http.StatusOK)
}

func (h *BoardHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req dto.CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	priority, ok := board.ParsePriority(req.Priority)
	if !ok {
		logger.Warn("HTTP: Ошибка валидации",
			zap.String("field", "priority"),
			zap.String("value", req.Priority),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "priority должен быть low, medium или high")
		return
	}

	column := board.ColumnID(chi.URLParam(r, "column"))
	task, err := h.BoardService.AddTask(r.Context(), viewParam(r), column, req.Title,
		board.WithDescription(req.Description),
		board.WithPriority(priority),
		board.WithDueDate(req.DueDate),
		board.WithAssignee(req.Assignee),
	)
	if err != nil {
		handleError(w, r, err, "add_task")
		return
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.String("task_id", task.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))
	respond(w, http.StatusCreated, task)
}

// MoveTask - бросок карточки на колонку. Отброшенный перенос не ошибка:
// ответ 200 с moved=false и неизменённой доской.
func (h *BoardHandler) MoveTask(w http.ResponseWriter, r *http.Request) {
	var req dto.MoveTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TaskID == "" {
		responseWithError(w, http.StatusBadRequest, "taskId не может быть пустым")
		return
	}

	view := viewParam(r)
	moved, err := h.BoardService.MoveTask(r.Context(), view, req.TaskID, req.Source, req.Target)
	if err != nil {
		handleError(w, r, err, "move_task")
		return
	}

	snap, err := h.BoardService.Snapshot(view)
	if err != nil {
		handleError(w, r, err, "move_task")
		return
	}
	respond(w, http.StatusOK, dto.MoveTaskResponse{Moved: moved, Board: dto.FromSnapshot(snap)})
}

func (h *BoardHandler) RemoveTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	confirmed := queryBool(r, "confirm")

	task, err := h.BoardService.RemoveTask(r.Context(), viewParam(r), id, confirmed)
	if err != nil {
		handleError(w, r, err, "remove_task")
		return
	}
	respond(w, http.StatusOK, task)
}

func (h *BoardHandler) SetDragOver(w http.ResponseWriter, r *http.Request) {
	var req dto.DragOverRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.BoardService.SetDragOver(viewParam(r), req.Column); err != nil {
		handleError(w, r, err, "set_drag_over")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BoardHandler) ClearDragOver(w http.ResponseWriter, r *http.Request) {
	if err := h.BoardService.ClearDragOver(viewParam(r)); err != nil {
		handleError(w, r, err, "clear_drag_over")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BoardHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.BoardService.Reset(r.Context(), viewParam(r)); err != nil {
		handleError(w, r, err, "reset_board")
		return
	}
	h.respondBoard(w, r, http.StatusOK)
}
