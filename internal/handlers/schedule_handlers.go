package handlers

import (
	"net/http"
	"time"

	"studiosync/internal/handlers/dto"
	"studiosync/internal/logger"
	"studiosync/internal/models/lesson"
	"studiosync/internal/schedule"
	"studiosync/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ScheduleHandler struct {
	ScheduleService ScheduleService
}

func NewScheduleHandler(scheduleService ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{ScheduleService: scheduleService}
}

// Routes монтируется в /schedule.
func (h *ScheduleHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/week", h.GetWeek)
	r.Get("/lessons", h.ListLessons)
	r.Post("/bookings/token", h.NewBookingToken)
	r.Post("/bookings", h.CreateBooking)
	r.Get("/calendar-feed", h.CalendarFeed)
	return r
}

// GetWeek: ?anchor=YYYY-MM-DD (по умолчанию текущая неделя), ?shift=N недель,
// ?format=24h|12h для подписей строк.
func (h *ScheduleHandler) GetWeek(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	loc := h.ScheduleService.Location()

	anchor, ok := queryDate(r, "anchor", h.ScheduleService.CurrentWeek(), loc)
	if !ok {
		responseWithError(w, http.StatusBadRequest, "anchor должен быть в формате YYYY-MM-DD")
		return
	}

	shift, ok := queryInt(r, "shift", 0)
	if !ok {
		responseWithError(w, http.StatusBadRequest, "shift должен быть целым числом")
		return
	}
	anchor = schedule.Shift(anchor, shift)

	format := r.URL.Query().Get("format")
	if format != "" && format != "12h" && format != "24h" {
		responseWithError(w, http.StatusBadRequest, "format должен быть 12h или 24h")
		return
	}

	grid, err := h.ScheduleService.Week(r.Context(), anchor)
	if err != nil {
		handleError(w, r, err, "get_week")
		return
	}

	logger.Info("HTTP_OUT: Неделя получена",
		zap.Time("week_start", grid.WeekStart),
		zap.Int("placed", grid.Placed()),
		zap.Duration("ms", time.Since(start)))
	respond(w, http.StatusOK, dto.FromGrid(grid, format == "24h", h.ScheduleService.CalendarFeedURL()))
}

// ListLessons: ?start_date=YYYY-MM-DD&end_date=YYYY-MM-DD (по умолчанию
// текущая неделя), ?status, ?type, ?teacher, ?search, ?page, ?page_size.
func (h *ScheduleHandler) ListLessons(w http.ResponseWriter, r *http.Request) {
	loc := h.ScheduleService.Location()

	from, ok := queryDate(r, "start_date", h.ScheduleService.CurrentWeek(), loc)
	if !ok {
		responseWithError(w, http.StatusBadRequest, "start_date должен быть в формате YYYY-MM-DD")
		return
	}
	to, ok := queryDate(r, "end_date", from.AddDate(0, 0, schedule.DaysInWeek), loc)
	if !ok {
		responseWithError(w, http.StatusBadRequest, "end_date должен быть в формате YYYY-MM-DD")
		return
	}
	page, ok := queryInt(r, "page", 1)
	if !ok {
		responseWithError(w, http.StatusBadRequest, "page должен быть целым числом")
		return
	}
	size, ok := queryInt(r, "page_size", 0)
	if !ok {
		responseWithError(w, http.StatusBadRequest, "page_size должен быть целым числом")
		return
	}

	q := r.URL.Query()
	filter := service.LessonFilter{
		Status:    lesson.Status(q.Get("status")),
		Type:      lesson.Type(q.Get("type")),
		TeacherID: q.Get("teacher"),
		Search:    q.Get("search"),
	}

	res, err := h.ScheduleService.Lessons(r.Context(), from, to, filter, page, size)
	if err != nil {
		handleError(w, r, err, "list_lessons")
		return
	}
	respond(w, http.StatusOK, res)
}

// NewBookingToken вызывается при открытии формы бронирования.
func (h *ScheduleHandler) NewBookingToken(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusCreated, dto.BookingTokenResponse{Token: h.ScheduleService.NewBookingToken()})
}

func (h *ScheduleHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var form lesson.BookingForm
	if !decodeJSON(w, r, &form) {
		return
	}
	if form.IdempotencyKey == "" {
		form.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}

	created, err := h.ScheduleService.CreateBooking(r.Context(), form)
	if err != nil {
		handleError(w, r, err, "create_booking")
		return
	}

	logger.Info("HTTP_OUT: Занятие создано",
		zap.String("lesson_id", created.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))
	respond(w, http.StatusCreated, dto.FromBooking(created, h.ScheduleService.Location()))
}

func (h *ScheduleHandler) CalendarFeed(w http.ResponseWriter, r *http.Request) {
	responseWithJSON(w, http.StatusOK, toPayload("url", h.ScheduleService.CalendarFeedURL()))
}
