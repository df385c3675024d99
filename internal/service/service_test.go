package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"studiosync/internal/idempotency"
	"studiosync/internal/models/board"
	"studiosync/internal/models/lesson"
	"studiosync/internal/service"
	"studiosync/internal/studioapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockLessonAPI - мок внешнего API занятий
type MockLessonAPI struct {
	mock.Mock
}

func (m *MockLessonAPI) ListLessons(ctx context.Context, from, to time.Time) ([]lesson.Lesson, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]lesson.Lesson), args.Error(1)
}

func (m *MockLessonAPI) CreateLesson(ctx context.Context, payload lesson.CreateLessonRequest, key string) (lesson.Lesson, error) {
	args := m.Called(ctx, payload, key)
	return args.Get(0).(lesson.Lesson), args.Error(1)
}

func (m *MockLessonAPI) CalendarFeedURL() string {
	return m.Called().String(0)
}

var _ service.LessonAPI = (*MockLessonAPI)(nil)

// MockProfileAPI - мок профиля пользователя
type MockProfileAPI struct {
	mock.Mock
}

func (m *MockProfileAPI) GetMe(ctx context.Context) (lesson.UserProfile, error) {
	args := m.Called(ctx)
	return args.Get(0).(lesson.UserProfile), args.Error(1)
}

func (m *MockProfileAPI) SavePreferences(ctx context.Context, prefs lesson.Preferences) (lesson.Preferences, error) {
	args := m.Called(ctx, prefs)
	return args.Get(0).(lesson.Preferences), args.Error(1)
}

// MockResourceAPI - мок библиотеки материалов
type MockResourceAPI struct {
	mock.Mock
}

func (m *MockResourceAPI) ListResources(ctx context.Context) ([]lesson.Resource, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]lesson.Resource), args.Error(1)
}

func (m *MockResourceAPI) UploadResource(ctx context.Context, u studioapi.Upload) (lesson.Resource, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(lesson.Resource), args.Error(1)
}

func (m *MockResourceAPI) DeleteResource(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// MockDirectoryAPI - мок справочников
type MockDirectoryAPI struct {
	mock.Mock
}

func (m *MockDirectoryAPI) ListStudents(ctx context.Context) ([]lesson.Student, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]lesson.Student), args.Error(1)
}

func (m *MockDirectoryAPI) GetStudent(ctx context.Context, id string) (lesson.Student, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(lesson.Student), args.Error(1)
}

func (m *MockDirectoryAPI) GetTeacher(ctx context.Context, id string) (lesson.Teacher, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(lesson.Teacher), args.Error(1)
}

func (m *MockDirectoryAPI) GetBand(ctx context.Context, id string) (lesson.Band, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(lesson.Band), args.Error(1)
}

func businessCode(t *testing.T, err error) string {
	t.Helper()
	var busErr *service.BusinessError
	require.True(t, errors.As(err, &busErr), "ожидалась BusinessError, получено %v", err)
	return busErr.Code
}

// memStore - хранилище доски в памяти
type memStore struct {
	data map[string][]byte
}

func (s *memStore) Load(_ context.Context, key string) ([]byte, error) {
	d, ok := s.data[key]
	if !ok {
		return nil, errors.New("нет данных")
	}
	return d, nil
}

func (s *memStore) Save(_ context.Context, key string, data []byte) error {
	s.data[key] = append([]byte(nil), data...)
	return nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	delete(s.data, key)
	return nil
}

// TestBoardService_Views тестирует возможности двух досок
func TestBoardService_Views(t *testing.T) {
	ctx := context.Background()
	store := &memStore{data: map[string][]byte{}}
	svc := service.NewBoardService(store, "studiosync_kanban_v1")
	svc.Init(ctx)

	kanban, err := svc.Snapshot(service.ViewKanban)
	require.NoError(t, err)
	assert.True(t, kanban.Persistent)
	assert.False(t, kanban.CanDelete)

	projects, err := svc.Snapshot(service.ViewProjects)
	require.NoError(t, err)
	assert.False(t, projects.Persistent)
	assert.True(t, projects.CanDelete)

	_, err = svc.Snapshot("archive")
	assert.Equal(t, service.CodeNotFound, businessCode(t, err))
}

func TestBoardService_AddAndPersist(t *testing.T) {
	ctx := context.Background()
	store := &memStore{data: map[string][]byte{}}
	svc := service.NewBoardService(store, "key")
	svc.Init(ctx)

	task, err := svc.AddTask(ctx, service.ViewKanban, board.ColumnTodo, "Order Strings", board.WithPriority(board.PriorityHigh))
	require.NoError(t, err)
	assert.Equal(t, board.PriorityHigh, task.Priority)
	assert.Contains(t, string(store.data["key"]), "Order Strings")

	_, err = svc.AddTask(ctx, service.ViewKanban, board.ColumnTodo, "")
	assert.Equal(t, service.CodeValidation, businessCode(t, err))

	_, err = svc.AddTask(ctx, service.ViewKanban, "backlog", "x")
	assert.Equal(t, service.CodeNotFound, businessCode(t, err))

	// повторная инициализация читает сохранённое состояние
	reloaded := service.NewBoardService(store, "key")
	reloaded.Init(ctx)
	snap, err := reloaded.Snapshot(service.ViewKanban)
	require.NoError(t, err)
	todo := snap.Columns[0]
	assert.Equal(t, "Order Strings", todo.Tasks[len(todo.Tasks)-1].Title)
}

func TestBoardService_RemoveTask(t *testing.T) {
	ctx := context.Background()
	svc := service.NewBoardService(nil, "")

	tests := []struct {
		name      string
		view      service.View
		taskID    string
		confirmed bool
		code      string
	}{
		{name: "kanban cannot delete", view: service.ViewKanban, taskID: "t1", confirmed: true, code: service.CodeDeletionDisabled},
		{name: "not confirmed", view: service.ViewProjects, taskID: "t1", confirmed: false, code: service.CodeNotConfirmed},
		{name: "missing task", view: service.ViewProjects, taskID: "nope", confirmed: true, code: service.CodeNotFound},
		{name: "success", view: service.ViewProjects, taskID: "t1", confirmed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RemoveTask(ctx, tt.view, tt.taskID, tt.confirmed)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.code, businessCode(t, err))
		})
	}
}

func TestBoardService_MoveAndDragOver(t *testing.T) {
	ctx := context.Background()
	svc := service.NewBoardService(nil, "")

	require.NoError(t, svc.SetDragOver(service.ViewKanban, board.ColumnDone))
	snap, _ := svc.Snapshot(service.ViewKanban)
	assert.Equal(t, board.ColumnDone, snap.DragOver)

	moved, err := svc.MoveTask(ctx, service.ViewKanban, "t1", board.ColumnTodo, board.ColumnDone)
	require.NoError(t, err)
	assert.True(t, moved)

	snap, _ = svc.Snapshot(service.ViewKanban)
	assert.Empty(t, snap.DragOver)
	done := snap.Columns[len(snap.Columns)-1]
	assert.Equal(t, "t1", done.Tasks[len(done.Tasks)-1].ID)

	moved, err = svc.MoveTask(ctx, service.ViewKanban, "t1", board.ColumnTodo, board.ColumnDone)
	require.NoError(t, err)
	assert.False(t, moved)

	err = svc.SetDragOver(service.ViewKanban, "backlog")
	assert.Equal(t, service.CodeNotFound, businessCode(t, err))
}

var studio = time.UTC

func bookingForm() lesson.BookingForm {
	return lesson.BookingForm{
		Date:           "2024-03-04",
		Time:           "09:00",
		Duration:       60,
		StudentID:      "s1",
		Type:           lesson.TypePrivate,
		IdempotencyKey: "form-1",
	}
}

// TestScheduleService_Week тестирует загрузку недели и раскладку по сетке
func TestScheduleService_Week(t *testing.T) {
	ctx := context.Background()
	monday := time.Date(2024, time.March, 4, 0, 0, 0, 0, studio)

	api := new(MockLessonAPI)
	api.On("ListLessons", mock.Anything, monday, monday.AddDate(0, 0, 7)).Return([]lesson.Lesson{
		{ID: "l1", Start: time.Date(2024, time.March, 4, 9, 0, 0, 0, studio)},
		{ID: "l2", Start: time.Date(2024, time.March, 5, 7, 0, 0, 0, studio)},
	}, nil)

	svc := service.NewScheduleService(api, idempotency.NewMemoryDeduper(time.Minute), studio)
	grid, err := svc.Week(ctx, time.Date(2024, time.March, 6, 15, 0, 0, 0, studio))
	require.NoError(t, err)

	cell, ok := grid.At(0, 9)
	require.True(t, ok)
	require.Len(t, cell.Lessons, 1)
	assert.Equal(t, "l1", cell.Lessons[0].ID)
	require.Len(t, grid.Overflow, 1)
	assert.Equal(t, "l2", grid.Overflow[0].Lesson.ID)

	again, err := svc.Week(ctx, monday)
	require.NoError(t, err)
	assert.Equal(t, grid.WeekStart, again.WeekStart)
	api.AssertNumberOfCalls(t, "ListLessons", 1)
	api.AssertExpectations(t)
}

// TestScheduleService_WeekCacheExpires тестирует повторную загрузку устаревшей недели
func TestScheduleService_WeekCacheExpires(t *testing.T) {
	now := time.Date(2024, time.March, 6, 12, 0, 0, 0, studio)
	api := new(MockLessonAPI)
	api.On("ListLessons", mock.Anything, mock.Anything, mock.Anything).Return([]lesson.Lesson{}, nil)

	svc := service.NewScheduleService(api, idempotency.NewMemoryDeduper(time.Minute), studio,
		service.WithClock(func() time.Time { return now }),
		service.WithCacheTTL(time.Minute))

	_, err := svc.Week(context.Background(), now)
	require.NoError(t, err)
	now = now.Add(30 * time.Second)
	_, err = svc.Week(context.Background(), now)
	require.NoError(t, err)
	api.AssertNumberOfCalls(t, "ListLessons", 1)

	now = now.Add(time.Minute)
	_, err = svc.Week(context.Background(), now)
	require.NoError(t, err)
	api.AssertNumberOfCalls(t, "ListLessons", 2)
}

// TestScheduleService_BookingRefreshesCachedWeek тестирует, что новая бронь
// видна в сетке сразу, без ожидания истечения кэша
func TestScheduleService_BookingRefreshesCachedWeek(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, time.March, 4, 9, 0, 0, 0, studio)
	booked := lesson.Lesson{ID: "new", Start: start, End: start.Add(time.Hour)}

	api := new(MockLessonAPI)
	api.On("ListLessons", mock.Anything, mock.Anything, mock.Anything).Return([]lesson.Lesson{}, nil).Once()
	api.On("CreateLesson", mock.Anything, mock.Anything, "form-1").Return(booked, nil).Once()
	api.On("ListLessons", mock.Anything, mock.Anything, mock.Anything).Return([]lesson.Lesson{booked}, nil).Once()

	svc := service.NewScheduleService(api, idempotency.NewMemoryDeduper(time.Minute), studio)

	grid, err := svc.Week(ctx, start)
	require.NoError(t, err)
	assert.Equal(t, 0, grid.Placed())

	_, err = svc.CreateBooking(ctx, bookingForm())
	require.NoError(t, err)

	grid, err = svc.Week(ctx, start)
	require.NoError(t, err)
	assert.Equal(t, 1, grid.Placed())
	api.AssertExpectations(t)
}

func TestScheduleService_WeekUpstreamError(t *testing.T) {
	api := new(MockLessonAPI)
	api.On("ListLessons", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	svc := service.NewScheduleService(api, idempotency.NewMemoryDeduper(time.Minute), studio)
	_, err := svc.Week(context.Background(), time.Now())
	assert.Equal(t, service.CodeUpstream, businessCode(t, err))
}

// TestScheduleService_CreateBooking тестирует создание занятия и идемпотентность
func TestScheduleService_CreateBooking(t *testing.T) {
	start := time.Date(2024, time.March, 4, 9, 0, 0, 0, studio)

	tests := []struct {
		name      string
		form      func() lesson.BookingForm
		setupMock func(*MockLessonAPI)
		submits   int
		code      string
	}{
		{
			name: "success",
			form: bookingForm,
			setupMock: func(m *MockLessonAPI) {
				m.On("CreateLesson", mock.Anything, mock.MatchedBy(func(r lesson.CreateLessonRequest) bool {
					return r.Start.Equal(start) && r.End.Sub(r.Start) == time.Hour && *r.StudentID == "s1"
				}), "form-1").Return(lesson.Lesson{ID: "new", Start: start}, nil).Once()
				m.On("ListLessons", mock.Anything, mock.Anything, mock.Anything).Return([]lesson.Lesson{}, nil)
			},
			submits: 1,
		},
		{
			name: "duplicate submit",
			form: bookingForm,
			setupMock: func(m *MockLessonAPI) {
				m.On("CreateLesson", mock.Anything, mock.Anything, "form-1").Return(lesson.Lesson{ID: "new"}, nil).Once()
				m.On("ListLessons", mock.Anything, mock.Anything, mock.Anything).Return([]lesson.Lesson{}, nil)
			},
			submits: 2,
			code:    service.CodeDuplicateBooking,
		},
		{
			name: "validation",
			form: func() lesson.BookingForm {
				f := bookingForm()
				f.BandID = "b1"
				return f
			},
			setupMock: func(m *MockLessonAPI) {},
			submits:   1,
			code:      service.CodeValidation,
		},
		{
			name: "missing token",
			form: func() lesson.BookingForm {
				f := bookingForm()
				f.IdempotencyKey = ""
				return f
			},
			setupMock: func(m *MockLessonAPI) {},
			submits:   1,
			code:      service.CodeValidation,
		},
		{
			name: "api rejects",
			form: bookingForm,
			setupMock: func(m *MockLessonAPI) {
				m.On("CreateLesson", mock.Anything, mock.Anything, "form-1").
					Return(lesson.Lesson{}, &studioapi.APIError{StatusCode: http.StatusBadRequest, Message: "room busy"})
			},
			submits: 1,
			code:    service.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(MockLessonAPI)
			tt.setupMock(api)
			svc := service.NewScheduleService(api, idempotency.NewMemoryDeduper(time.Minute), studio)

			var err error
			for i := 0; i < tt.submits; i++ {
				_, err = svc.CreateBooking(context.Background(), tt.form())
			}

			if tt.code == "" {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, tt.code, businessCode(t, err))
			}
			api.AssertExpectations(t)
		})
	}
}

func TestScheduleService_FailedBookingReleasesToken(t *testing.T) {
	api := new(MockLessonAPI)
	api.On("CreateLesson", mock.Anything, mock.Anything, "form-1").
		Return(lesson.Lesson{}, errors.New("timeout")).Once()
	api.On("CreateLesson", mock.Anything, mock.Anything, "form-1").
		Return(lesson.Lesson{ID: "new"}, nil).Once()
	api.On("ListLessons", mock.Anything, mock.Anything, mock.Anything).Return([]lesson.Lesson{}, nil)

	svc := service.NewScheduleService(api, idempotency.NewMemoryDeduper(time.Minute), studio)

	_, err := svc.CreateBooking(context.Background(), bookingForm())
	assert.Equal(t, service.CodeUpstream, businessCode(t, err))

	created, err := svc.CreateBooking(context.Background(), bookingForm())
	require.NoError(t, err)
	assert.Equal(t, "new", created.ID)
}

func TestScheduleService_Refresh(t *testing.T) {
	now := time.Date(2024, time.March, 6, 12, 0, 0, 0, studio)
	api := new(MockLessonAPI)
	api.On("ListLessons", mock.Anything, mock.Anything, mock.Anything).Return([]lesson.Lesson{}, nil)

	svc := service.NewScheduleService(api, idempotency.NewMemoryDeduper(time.Minute), studio,
		service.WithClock(func() time.Time { return now }))

	_, err := svc.Week(context.Background(), now.AddDate(0, 0, 14))
	require.NoError(t, err)

	n, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n, "текущая неделя и неделя из кэша")
	api.AssertNumberOfCalls(t, "ListLessons", 3)

	// текущая неделя уже загружена воркером
	_, err = svc.Week(context.Background(), now)
	require.NoError(t, err)
	api.AssertNumberOfCalls(t, "ListLessons", 3)
}

// TestScheduleService_Lessons тестирует фильтрацию и страницы списка занятий
func TestScheduleService_Lessons(t *testing.T) {
	from := time.Date(2024, time.March, 1, 0, 0, 0, 0, studio)
	to := from.AddDate(0, 1, 0)
	teacher := "t1"
	student := "s-anna"

	lessons := []lesson.Lesson{
		{ID: "l3", Start: from.AddDate(0, 0, 3), Type: lesson.TypeGroup, Status: lesson.StatusScheduled, TeacherID: &teacher},
		{ID: "l1", Start: from.AddDate(0, 0, 1), Type: lesson.TypePrivate, Status: lesson.StatusScheduled, TeacherID: &teacher, StudentID: &student},
		{ID: "l2", Start: from.AddDate(0, 0, 2), Type: lesson.TypePrivate, Status: lesson.StatusCancelled, Title: "Scales"},
	}

	tests := []struct {
		name   string
		filter service.LessonFilter
		page   int
		size   int
		ids    []string
		total  int
	}{
		{name: "all sorted by start", ids: []string{"l1", "l2", "l3"}, total: 3},
		{name: "by status", filter: service.LessonFilter{Status: lesson.StatusScheduled}, ids: []string{"l1", "l3"}, total: 2},
		{name: "by type", filter: service.LessonFilter{Type: lesson.TypePrivate}, ids: []string{"l1", "l2"}, total: 2},
		{name: "by teacher", filter: service.LessonFilter{TeacherID: "t1"}, ids: []string{"l1", "l3"}, total: 2},
		{name: "search title", filter: service.LessonFilter{Search: "scal"}, ids: []string{"l2"}, total: 1},
		{name: "search student", filter: service.LessonFilter{Search: "anna"}, ids: []string{"l1"}, total: 1},
		{name: "second page", page: 2, size: 2, ids: []string{"l3"}, total: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(MockLessonAPI)
			api.On("ListLessons", mock.Anything, from, to).Return(append([]lesson.Lesson(nil), lessons...), nil)
			svc := service.NewScheduleService(api, idempotency.NewMemoryDeduper(time.Minute), studio)

			page, err := svc.Lessons(context.Background(), from, to, tt.filter, tt.page, tt.size)
			require.NoError(t, err)

			ids := make([]string, 0, len(page.Items))
			for _, l := range page.Items {
				ids = append(ids, l.ID)
			}
			assert.Equal(t, tt.ids, ids)
			assert.Equal(t, tt.total, page.Total)
		})
	}
}

func TestScheduleService_LessonsValidation(t *testing.T) {
	from := time.Date(2024, time.March, 1, 0, 0, 0, 0, studio)
	api := new(MockLessonAPI)
	svc := service.NewScheduleService(api, idempotency.NewMemoryDeduper(time.Minute), studio)

	tests := []struct {
		name   string
		to     time.Time
		filter service.LessonFilter
	}{
		{name: "empty range", to: from},
		{name: "range too long", to: from.AddDate(1, 0, 0)},
		{name: "unknown status", to: from.AddDate(0, 0, 7), filter: service.LessonFilter{Status: "lost"}},
		{name: "unknown type", to: from.AddDate(0, 0, 7), filter: service.LessonFilter{Type: "jam"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Lessons(context.Background(), from, tt.to, tt.filter, 1, 10)
			assert.Equal(t, service.CodeValidation, businessCode(t, err))
		})
	}
	api.AssertNotCalled(t, "ListLessons", mock.Anything, mock.Anything, mock.Anything)
}

func TestScheduleService_TokensAndFeed(t *testing.T) {
	api := new(MockLessonAPI)
	api.On("CalendarFeedURL").Return("https://studio.example.com/api/calendar/my/lessons.ics")
	svc := service.NewScheduleService(api, idempotency.NewMemoryDeduper(time.Minute), studio)

	assert.NotEqual(t, svc.NewBookingToken(), svc.NewBookingToken())
	assert.Equal(t, "https://studio.example.com/api/calendar/my/lessons.ics", svc.CalendarFeedURL())
}

// TestPreferencesService_DraftCommit тестирует черновик настроек
func TestPreferencesService_DraftCommit(t *testing.T) {
	ctx := context.Background()
	api := new(MockProfileAPI)
	api.On("GetMe", mock.Anything).Return(lesson.UserProfile{
		ID:          "u1",
		Preferences: lesson.Preferences{DashboardLayout: []string{"lessons"}},
	}, nil).Once()
	api.On("SavePreferences", mock.Anything, mock.MatchedBy(func(p lesson.Preferences) bool {
		return p.TimeFormat24h && p.DashboardLayout[0] == "lessons"
	})).Return(lesson.Preferences{DashboardLayout: []string{"lessons"}, TimeFormat24h: true}, nil).Once()

	svc := service.NewPreferencesService(api)

	draft, err := svc.Draft(ctx)
	require.NoError(t, err)
	assert.False(t, draft.Dirty)

	draft, err = svc.Update(ctx, func(p *lesson.Preferences) { p.TimeFormat24h = true })
	require.NoError(t, err)
	assert.True(t, draft.Dirty)

	saved, err := svc.Commit(ctx)
	require.NoError(t, err)
	assert.True(t, saved.TimeFormat24h)

	draft, err = svc.Draft(ctx)
	require.NoError(t, err)
	assert.False(t, draft.Dirty)
	assert.True(t, draft.Preferences.TimeFormat24h)

	_, err = svc.Commit(ctx)
	assert.Equal(t, service.CodeNotFound, businessCode(t, err))
	api.AssertExpectations(t)
}

func TestPreferencesService_FailedCommitKeepsDraft(t *testing.T) {
	ctx := context.Background()
	api := new(MockProfileAPI)
	api.On("GetMe", mock.Anything).Return(lesson.UserProfile{}, nil).Once()
	api.On("SavePreferences", mock.Anything, mock.Anything).Return(lesson.Preferences{}, errors.New("offline"))

	svc := service.NewPreferencesService(api)
	_, err := svc.Update(ctx, func(p *lesson.Preferences) { p.TimeFormat24h = true })
	require.NoError(t, err)

	_, err = svc.Commit(ctx)
	assert.Equal(t, service.CodeUpstream, businessCode(t, err))

	draft, err := svc.Draft(ctx)
	require.NoError(t, err)
	assert.True(t, draft.Preferences.TimeFormat24h)
	assert.True(t, draft.Dirty)

	assert.True(t, svc.Discard())
	assert.False(t, svc.Discard())

	draft, err = svc.Draft(ctx)
	require.NoError(t, err)
	assert.False(t, draft.Preferences.TimeFormat24h)
	api.AssertExpectations(t)
}

// TestPreferencesService_UpdateDuringCommit тестирует правку, сделанную
// пока запрос сохранения ещё не вернулся
func TestPreferencesService_UpdateDuringCommit(t *testing.T) {
	ctx := context.Background()
	api := new(MockProfileAPI)
	api.On("GetMe", mock.Anything).Return(lesson.UserProfile{}, nil).Once()

	started := make(chan struct{})
	release := make(chan struct{})
	api.On("SavePreferences", mock.Anything, mock.MatchedBy(func(p lesson.Preferences) bool {
		return !p.TimeFormat24h
	})).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(lesson.Preferences{DashboardLayout: []string{"kanban"}}, nil).Once()
	api.On("SavePreferences", mock.Anything, mock.MatchedBy(func(p lesson.Preferences) bool {
		return p.TimeFormat24h
	})).Return(lesson.Preferences{DashboardLayout: []string{"kanban"}, TimeFormat24h: true}, nil).Once()

	svc := service.NewPreferencesService(api)
	_, err := svc.Update(ctx, func(p *lesson.Preferences) { p.DashboardLayout = []string{"kanban"} })
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Commit(ctx)
		done <- err
	}()

	<-started
	_, err = svc.Update(ctx, func(p *lesson.Preferences) { p.TimeFormat24h = true })
	require.NoError(t, err)
	close(release)
	require.NoError(t, <-done)

	draft, err := svc.Draft(ctx)
	require.NoError(t, err)
	assert.True(t, draft.Dirty)
	assert.True(t, draft.Preferences.TimeFormat24h)
	assert.Equal(t, []string{"kanban"}, draft.Preferences.DashboardLayout)

	saved, err := svc.Commit(ctx)
	require.NoError(t, err)
	assert.True(t, saved.TimeFormat24h)
	api.AssertExpectations(t)
}

func ptr(s string) *string { return &s }

// TestResourceService_List тестирует фильтры библиотеки
func TestResourceService_List(t *testing.T) {
	resources := []lesson.Resource{
		{ID: "r1", Title: "Prelude in C", Type: lesson.ResourceSheetMusic, Composer: "Bach", Tags: []string{"piano"}},
		{ID: "r2", Title: "Blues chords", Type: lesson.ResourceChordChart, BandID: ptr("b1"), Tags: []string{"guitar"}},
		{ID: "r3", Title: "Recital poster", Type: lesson.ResourceImage},
	}

	tests := []struct {
		name   string
		filter service.ResourceFilter
		ids    []string
	}{
		{name: "no filter", ids: []string{"r1", "r2", "r3"}},
		{name: "by type", filter: service.ResourceFilter{Type: lesson.ResourceImage}, ids: []string{"r3"}},
		{name: "music only", filter: service.ResourceFilter{MusicOnly: true}, ids: []string{"r1", "r2"}},
		{name: "by band", filter: service.ResourceFilter{BandID: "b1"}, ids: []string{"r2"}},
		{name: "by tag", filter: service.ResourceFilter{Tag: "PIANO"}, ids: []string{"r1"}},
		{name: "search composer", filter: service.ResourceFilter{Search: "bach"}, ids: []string{"r1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(MockResourceAPI)
			api.On("ListResources", mock.Anything).Return(resources, nil)

			page, err := service.NewResourceService(api).List(context.Background(), tt.filter, 1, 10)
			require.NoError(t, err)

			ids := make([]string, 0, len(page.Items))
			for _, r := range page.Items {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.ids, ids)
			assert.Equal(t, len(tt.ids), page.Total)
		})
	}
}

func TestResourceService_Upload(t *testing.T) {
	api := new(MockResourceAPI)
	svc := service.NewResourceService(api)

	_, err := svc.Upload(context.Background(), studioapi.Upload{Title: "x", Type: lesson.ResourceLink})
	assert.Equal(t, service.CodeValidation, businessCode(t, err))

	upload := studioapi.Upload{Title: "Site", Type: lesson.ResourceLink, ExternalURL: "https://example.com"}
	api.On("UploadResource", mock.Anything, upload).Return(lesson.Resource{ID: "r9"}, nil)

	created, err := svc.Upload(context.Background(), upload)
	require.NoError(t, err)
	assert.Equal(t, "r9", created.ID)
	api.AssertExpectations(t)
}

func TestDirectoryService_NotFound(t *testing.T) {
	api := new(MockDirectoryAPI)
	api.On("GetBand", mock.Anything, "b404").
		Return(lesson.Band{}, &studioapi.APIError{StatusCode: http.StatusNotFound, Message: "Not found."})

	_, err := service.NewDirectoryService(api).Band(context.Background(), "b404")
	assert.Equal(t, service.CodeNotFound, businessCode(t, err))
}

func TestDirectoryService_Students(t *testing.T) {
	api := new(MockDirectoryAPI)
	api.On("ListStudents", mock.Anything).Return([]lesson.Student{
		{ID: "s1", FirstName: "Ann", Instrument: "piano", IsActive: true},
		{ID: "s2", FirstName: "Bob", Instrument: "piano", IsActive: false},
		{ID: "s3", FirstName: "Cid", Instrument: "drums", IsActive: true},
	}, nil)

	page, err := service.NewDirectoryService(api).Students(context.Background(), "piano", true, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "s1", page.Items[0].ID)
}
