package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"studiosync/internal/listing"
	"studiosync/internal/logger"
	"studiosync/internal/models/lesson"
	"studiosync/internal/schedule"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const bookingScope = "lessons"

// maxCachedWeeks ограничивает число недель, которые обновляет воркер.
const maxCachedWeeks = 8

const defaultCacheTTL = 5 * time.Minute

type ScheduleService struct {
	api      LessonAPI
	deduper  Deduper
	loc      *time.Location
	now      func() time.Time
	cacheTTL time.Duration

	mtx   sync.RWMutex
	weeks map[int64]cachedWeek
}

type cachedWeek struct {
	grid      schedule.Grid
	fetchedAt time.Time
}

type ScheduleOption func(*ScheduleService)

func WithClock(now func() time.Time) ScheduleOption {
	return func(s *ScheduleService) {
		s.now = now
	}
}

// WithCacheTTL задаёт, сколько загруженная неделя отдаётся без запроса к API.
// Ноль отключает чтение из кэша.
func WithCacheTTL(ttl time.Duration) ScheduleOption {
	return func(s *ScheduleService) {
		s.cacheTTL = ttl
	}
}

func NewScheduleService(api LessonAPI, deduper Deduper, loc *time.Location, options ...ScheduleOption) *ScheduleService {
	if loc == nil {
		loc = time.Local
	}
	s := &ScheduleService{
		api:      api,
		deduper:  deduper,
		loc:      loc,
		now:      time.Now,
		cacheTTL: defaultCacheTTL,
		weeks:    make(map[int64]cachedWeek),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *ScheduleService) Location() *time.Location {
	return s.loc
}

// CurrentWeek - начало текущей недели в часовом поясе студии.
func (s *ScheduleService) CurrentWeek() time.Time {
	return schedule.WeekStart(s.now().In(s.loc))
}

// Week возвращает сетку недели, содержащей anchor. Свежая неделя из кэша
// отдаётся без запроса к API.
func (s *ScheduleService) Week(ctx context.Context, anchor time.Time) (schedule.Grid, error) {
	start := schedule.WeekStart(anchor.In(s.loc))

	s.mtx.RLock()
	w, ok := s.weeks[start.Unix()]
	s.mtx.RUnlock()
	if ok && s.cacheTTL > 0 && s.now().Sub(w.fetchedAt) < s.cacheTTL {
		return w.grid, nil
	}
	return s.fetch(ctx, start)
}

// fetch загружает занятия недели из API, раскладывает их по сетке и
// запоминает результат.
func (s *ScheduleService) fetch(ctx context.Context, anchor time.Time) (schedule.Grid, error) {
	from, to := schedule.WeekRange(anchor.In(s.loc))

	lessons, err := s.api.ListLessons(ctx, from, to)
	if err != nil {
		logger.Error("Service: Не удалось получить занятия", err,
			zap.Time("week_start", from))
		return schedule.Grid{}, fromUpstream("получение занятий", err, "неделя", from.Format(lesson.DateLayout))
	}

	grid := schedule.Build(from, lessons)
	if len(grid.Overflow) > 0 {
		logger.Warn("Service: Занятия вне сетки",
			zap.Time("week_start", from),
			zap.Int("count", len(grid.Overflow)))
	}

	s.remember(grid)
	return grid, nil
}

func (s *ScheduleService) invalidate(anchor time.Time) {
	start := schedule.WeekStart(anchor.In(s.loc))

	s.mtx.Lock()
	defer s.mtx.Unlock()
	delete(s.weeks, start.Unix())
}

func (s *ScheduleService) remember(grid schedule.Grid) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.weeks[grid.WeekStart.Unix()] = cachedWeek{grid: grid, fetchedAt: s.now()}
	if len(s.weeks) <= maxCachedWeeks {
		return
	}

	// вытесняем неделю, загруженную раньше всех
	var oldestKey int64
	var oldest time.Time
	first := true
	for k, w := range s.weeks {
		if first || w.fetchedAt.Before(oldest) {
			oldestKey, oldest, first = k, w.fetchedAt, false
		}
	}
	delete(s.weeks, oldestKey)
}

// Refresh перезагружает текущую неделю и все недели из кэша.
// Возвращает число обновлённых недель и первую ошибку.
func (s *ScheduleService) Refresh(ctx context.Context) (int, error) {
	s.mtx.RLock()
	starts := make([]time.Time, 0, len(s.weeks)+1)
	for _, w := range s.weeks {
		starts = append(starts, w.grid.WeekStart)
	}
	s.mtx.RUnlock()

	current := s.CurrentWeek()
	found := false
	for _, st := range starts {
		if st.Equal(current) {
			found = true
			break
		}
	}
	if !found {
		starts = append(starts, current)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	var firstErr error
	refreshed := 0
	for _, st := range starts {
		if ctx.Err() != nil {
			return refreshed, ctx.Err()
		}
		if _, err := s.fetch(ctx, st); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		refreshed++
	}
	return refreshed, firstErr
}

// NewBookingToken выдаётся при каждом открытии формы бронирования.
func (s *ScheduleService) NewBookingToken() string {
	return uuid.NewString()
}

func (s *ScheduleService) CalendarFeedURL() string {
	return s.api.CalendarFeedURL()
}

// CreateBooking проверяет форму, занимает её ключ идемпотентности и создаёт
// занятие. При ошибке API ключ освобождается, чтобы форму можно было
// отправить снова. После успеха неделя занятия загружается заново.
func (s *ScheduleService) CreateBooking(ctx context.Context, form lesson.BookingForm) (lesson.Lesson, error) {
	if err := form.Validate(); err != nil {
		var fieldErr *lesson.FieldError
		if errors.As(err, &fieldErr) {
			return lesson.Lesson{}, NewValidationError(fieldErr.Field, fieldErr.Reason)
		}
		return lesson.Lesson{}, NewValidationError("form", err.Error())
	}

	key := strings.TrimSpace(form.IdempotencyKey)
	if key == "" {
		return lesson.Lesson{}, NewValidationError("idempotency_key", "обязательное поле")
	}

	req, err := form.ToRequest(s.loc)
	if err != nil {
		var fieldErr *lesson.FieldError
		if errors.As(err, &fieldErr) {
			return lesson.Lesson{}, NewValidationError(fieldErr.Field, fieldErr.Reason)
		}
		return lesson.Lesson{}, NewValidationError("date", err.Error())
	}

	claimed, err := s.deduper.Claim(ctx, bookingScope, key)
	if err != nil {
		logger.Error("Service: Ошибка хранилища ключей", err, zap.String("idempotency_key", key))
		return lesson.Lesson{}, fromUpstream("проверка ключа бронирования", err, "бронирование", key)
	}
	if !claimed {
		logger.Warn("Service: Повторная отправка бронирования", zap.String("idempotency_key", key))
		return lesson.Lesson{}, NewDuplicateBooking(key)
	}

	created, err := s.api.CreateLesson(ctx, req, key)
	if err != nil {
		if relErr := s.deduper.Release(context.WithoutCancel(ctx), bookingScope, key); relErr != nil {
			logger.Error("Service: Не удалось освободить ключ", relErr, zap.String("idempotency_key", key))
		}
		logger.Error("Service: Бронирование не создано", err, zap.String("idempotency_key", key))
		return lesson.Lesson{}, fromUpstream("создание занятия", err, "занятие", key)
	}

	logger.Info("Service: Занятие создано",
		zap.String("lesson_id", created.ID),
		zap.Time("start", req.Start))

	s.invalidate(req.Start)
	if _, err := s.fetch(ctx, req.Start); err != nil {
		logger.Warn("Service: Неделя не обновлена после бронирования", zap.Error(err))
	}
	return created, nil
}

// LessonFilter - фильтры списка занятий; пустые поля не ограничивают выборку.
type LessonFilter struct {
	Status    lesson.Status
	Type      lesson.Type
	TeacherID string
	Search    string
}

func (f LessonFilter) match(l lesson.Lesson) bool {
	if f.Status != "" && l.Status != f.Status {
		return false
	}
	if f.Type != "" && l.Type != f.Type {
		return false
	}
	if f.TeacherID != "" && (l.TeacherID == nil || *l.TeacherID != f.TeacherID) {
		return false
	}
	return listing.Matches(f.Search, l.Title, deref(l.StudentID), deref(l.BandID), deref(l.RoomID))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// maxLessonsRange ограничивает окно списка занятий, чтобы не выгружать всё расписание.
const maxLessonsRange = 93 * 24 * time.Hour

// Lessons возвращает занятия с началом в [from, to), отфильтрованные и
// разбитые на страницы на нашей стороне.
func (s *ScheduleService) Lessons(ctx context.Context, from, to time.Time, filter LessonFilter, page, size int) (listing.Page[lesson.Lesson], error) {
	if !from.Before(to) {
		return listing.Page[lesson.Lesson]{}, NewValidationError("end_date", "должна быть позже start_date")
	}
	if to.Sub(from) > maxLessonsRange {
		return listing.Page[lesson.Lesson]{}, NewValidationError("end_date", "окно не больше 93 дней")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return listing.Page[lesson.Lesson]{}, NewValidationError("status", "неизвестный статус")
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return listing.Page[lesson.Lesson]{}, NewValidationError("lesson_type", "неизвестный тип")
	}

	all, err := s.api.ListLessons(ctx, from.In(s.loc), to.In(s.loc))
	if err != nil {
		logger.Error("Service: Не удалось получить занятия", err,
			zap.Time("from", from),
			zap.Time("to", to))
		return listing.Page[lesson.Lesson]{}, fromUpstream("получение занятий", err, "занятия", from.Format(lesson.DateLayout))
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Start.Before(all[j].Start) })
	return listing.Paginate(listing.Filter(all, filter.match), page, size), nil
}
